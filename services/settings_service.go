package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	settingsCacheAll    = "settings:all"
	settingsCachePublic = "settings:public"
	defaultSettingsTTL  = 10 * time.Minute
)

// SettingsCache is the subset of the Redis cache used for settings
type SettingsCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// SettingsService stores site settings as key/value strings
type SettingsService struct {
	db    *gorm.DB
	cache SettingsCache
	ttl   time.Duration
}

// NewSettingsService creates a new settings service. cache may be nil.
func NewSettingsService(db *gorm.DB, cache SettingsCache) *SettingsService {
	return &SettingsService{db: db, cache: cache, ttl: defaultSettingsTTL}
}

// SetSettingInput is an upsert of one setting
type SetSettingInput struct {
	Key         string
	Value       string
	Description string
	IsPublic    *bool
}

// GetSettings returns every stored setting merged over the defaults
func (s *SettingsService) GetSettings(ctx context.Context) (map[string]string, error) {
	return s.load(ctx, settingsCacheAll, false)
}

// GetPublicSettings is GetSettings without the keys marked private
func (s *SettingsService) GetPublicSettings(ctx context.Context) (map[string]string, error) {
	return s.load(ctx, settingsCachePublic, true)
}

func (s *SettingsService) load(ctx context.Context, cacheKey string, publicOnly bool) (map[string]string, error) {
	if s.cache != nil {
		var cached map[string]string
		if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && cached != nil {
			return cached, nil
		}
	}

	var records []model.AppSetting
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, apperror.Internal("failed to load settings", err)
	}

	settings := model.DefaultSettings()
	for _, r := range records {
		if publicOnly && !r.IsPublic {
			delete(settings, r.Key)
			continue
		}
		settings[r.Key] = r.Value
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, settings, s.ttl); err != nil {
			log.Warnw("settings cache write failed", "key", cacheKey, "error", err)
		}
	}
	return settings, nil
}

// Get returns one setting, falling back to its default
func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	var record model.AppSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&record).Error
	if err == nil {
		return record.Value, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperror.Internal("failed to load setting", err)
	}
	if value, ok := model.DefaultSettings()[key]; ok {
		return value, nil
	}
	return "", apperror.NotFound("setting %q not found", key)
}

// ListRecords returns the stored rows for the admin screen
func (s *SettingsService) ListRecords(ctx context.Context) ([]model.AppSetting, error) {
	var records []model.AppSetting
	if err := s.db.WithContext(ctx).Order("key ASC").Find(&records).Error; err != nil {
		return nil, apperror.Internal("failed to list settings", err)
	}
	return records, nil
}

// Set upserts a setting. Values are not validated.
func (s *SettingsService) Set(ctx context.Context, in SetSettingInput) (*model.AppSetting, error) {
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return nil, apperror.InvalidArgument("key is required")
	}

	record := model.AppSetting{
		Key:         key,
		Value:       in.Value,
		Description: in.Description,
		IsPublic:    true,
	}
	updateColumns := []string{"value", "updated_at"}
	if in.Description != "" {
		updateColumns = append(updateColumns, "description")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns(updateColumns),
		}).Create(&record).Error; err != nil {
			return err
		}
		// is_public has a column default, so false never makes it through the insert
		if in.IsPublic != nil {
			return tx.Model(&model.AppSetting{}).Where("key = ?", key).
				Update("is_public", *in.IsPublic).Error
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Internal("failed to save setting", err)
	}

	s.invalidate(ctx)

	var stored model.AppSetting
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&stored).Error; err != nil {
		return nil, apperror.Internal("failed to reload setting", err)
	}
	return &stored, nil
}

// Delete removes a stored setting. Keys with a default fall back to it.
// Deleting an absent key is not an error.
func (s *SettingsService) Delete(ctx context.Context, key string) error {
	result := s.db.WithContext(ctx).Where("key = ?", key).Delete(&model.AppSetting{})
	if result.Error != nil {
		return apperror.Internal("failed to delete setting", result.Error)
	}
	if result.RowsAffected > 0 {
		s.invalidate(ctx)
	}
	return nil
}

func (s *SettingsService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, settingsCacheAll, settingsCachePublic); err != nil {
		log.Warnw("settings cache invalidation failed", "error", err)
	}
}
