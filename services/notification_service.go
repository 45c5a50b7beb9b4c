package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultFanOutBatchSize = 500
	defaultBroadcastStale  = 10 * time.Minute
	maxBroadcastAttempts   = 5

	broadcastBookkeepingTimeout = 10 * time.Second
)

// NotificationConfig tunes the fan-out
type NotificationConfig struct {
	BatchSize int
	// Async runs broadcasts on a background goroutine instead of the caller's
	Async bool
	// StaleAfter is how long a running broadcast may go without progress
	// before another worker may take it over
	StaleAfter time.Duration
}

// NotificationService handles user notifications and preference based fan-out
type NotificationService struct {
	db         *gorm.DB
	batchSize  int
	async      bool
	staleAfter time.Duration
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *gorm.DB, cfg NotificationConfig) *NotificationService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultFanOutBatchSize
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultBroadcastStale
	}
	return &NotificationService{
		db:         db,
		batchSize:  cfg.BatchSize,
		async:      cfg.Async,
		staleAfter: cfg.StaleAfter,
	}
}

// NotificationInput is the content of a notification
type NotificationInput struct {
	Title     string
	Message   string
	Type      model.NotificationType
	Icon      string
	Color     string
	RelatedID string
	Metadata  map[string]interface{}
}

func (in NotificationInput) validate() error {
	if in.Title == "" {
		return apperror.InvalidArgument("notification title is required")
	}
	if !model.IsValidNotificationType(in.Type) {
		return apperror.InvalidArgument("unknown notification type %q", in.Type)
	}
	return nil
}

func encodeMetadata(metadata map[string]interface{}) (datatypes.JSON, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperror.InvalidArgument("metadata is not serializable: %v", err)
	}
	return datatypes.JSON(data), nil
}

// ListNotificationsOptions represents options for listing notifications
type ListNotificationsOptions struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Type       string
	Limit      int
	Offset     int
}

// Notify creates a notification for one user
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, in NotificationInput) (*model.Notification, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	metadata, err := encodeMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}

	n := &model.Notification{
		UserID:    &userID,
		Title:     in.Title,
		Message:   in.Message,
		Type:      in.Type,
		Icon:      in.Icon,
		Color:     in.Color,
		RelatedID: in.RelatedID,
		Metadata:  metadata,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, apperror.Internal("failed to create notification", err)
	}
	return n, nil
}

// TryNotify is Notify for side effects of a workflow step: a failure is
// logged and otherwise ignored. Safe on a nil service.
func (s *NotificationService) TryNotify(ctx context.Context, userID uuid.UUID, in NotificationInput) {
	if s == nil {
		return
	}
	if _, err := s.Notify(ctx, userID, in); err != nil {
		log.Warnw("notification not delivered", "user_id", userID, "type", in.Type, "error", err)
	}
}

// CreateGlobal creates a single notification visible to every user
func (s *NotificationService) CreateGlobal(ctx context.Context, in NotificationInput) (*model.Notification, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	metadata, err := encodeMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}

	n := &model.Notification{
		Title:     in.Title,
		Message:   in.Message,
		Type:      in.Type,
		Icon:      in.Icon,
		Color:     in.Color,
		RelatedID: in.RelatedID,
		Metadata:  metadata,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, apperror.Internal("failed to create notification", err)
	}
	return n, nil
}

// NotifyByPreference sends one notification to every user whose
// preferenceKey is enabled. Users without preferences, or without that key,
// are included.
func (s *NotificationService) NotifyByPreference(ctx context.Context, in NotificationInput, preferenceKey string) (*model.NotificationBroadcast, error) {
	return s.Broadcast(ctx, in, preferenceKey, nil)
}

// Broadcast records a fan-out job and runs it. With audienceCourseID set only
// users enrolled in that course are considered. An empty preferenceKey skips
// the preference check.
func (s *NotificationService) Broadcast(ctx context.Context, in NotificationInput, preferenceKey string, audienceCourseID *uuid.UUID) (*model.NotificationBroadcast, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if preferenceKey != "" && !model.IsValidPreferenceKey(preferenceKey) {
		return nil, apperror.InvalidArgument("unknown preference key %q", preferenceKey)
	}
	metadata, err := encodeMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}

	job := &model.NotificationBroadcast{
		Title:            in.Title,
		Message:          in.Message,
		Type:             in.Type,
		Icon:             in.Icon,
		Color:            in.Color,
		PreferenceKey:    preferenceKey,
		AudienceCourseID: audienceCourseID,
		RelatedID:        in.RelatedID,
		Metadata:         metadata,
		Status:           model.BroadcastStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, apperror.Internal("failed to create broadcast", err)
	}

	if s.async {
		go func(id uuid.UUID) {
			if err := s.RunBroadcast(context.Background(), id); err != nil {
				log.Errorw("broadcast failed", "broadcast_id", id, "error", err)
			}
		}(job.ID)
		return job, nil
	}

	if err := s.RunBroadcast(ctx, job.ID); err != nil {
		return nil, err
	}
	return s.GetBroadcast(ctx, job.ID)
}

// TryBroadcast is Broadcast with failures logged instead of returned. Safe
// on a nil service.
func (s *NotificationService) TryBroadcast(ctx context.Context, in NotificationInput, preferenceKey string, audienceCourseID *uuid.UUID) {
	if s == nil {
		return
	}
	if _, err := s.Broadcast(ctx, in, preferenceKey, audienceCourseID); err != nil {
		log.Warnw("broadcast not delivered", "type", in.Type, "preference", preferenceKey, "error", err)
	}
}

// GetBroadcast loads a fan-out job
func (s *NotificationService) GetBroadcast(ctx context.Context, id uuid.UUID) (*model.NotificationBroadcast, error) {
	var job model.NotificationBroadcast
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("broadcast not found")
		}
		return nil, apperror.Internal("failed to load broadcast", err)
	}
	return &job, nil
}

// ListBroadcasts returns recent fan-out jobs, newest first
func (s *NotificationService) ListBroadcasts(ctx context.Context, limit, offset int) ([]model.NotificationBroadcast, int64, error) {
	var jobs []model.NotificationBroadcast
	var total int64

	query := s.db.WithContext(ctx).Model(&model.NotificationBroadcast{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal("failed to count broadcasts", err)
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error; err != nil {
		return nil, 0, apperror.Internal("failed to list broadcasts", err)
	}
	return jobs, total, nil
}

// claimBroadcast moves a runnable job to running. It returns false when the
// job is finished, out of attempts, or actively run by someone else.
func (s *NotificationService) claimBroadcast(ctx context.Context, id uuid.UUID) (bool, error) {
	staleBefore := time.Now().UTC().Add(-s.staleAfter)
	result := s.db.WithContext(ctx).Model(&model.NotificationBroadcast{}).
		Where("id = ? AND attempts < ?", id, maxBroadcastAttempts).
		Where("(status IN ? OR (status = ? AND updated_at < ?))",
			[]model.BroadcastStatus{model.BroadcastStatusPending, model.BroadcastStatusFailed},
			model.BroadcastStatusRunning, staleBefore).
		Updates(map[string]interface{}{
			"status":     model.BroadcastStatusRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "",
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RunBroadcast walks users in id order starting after the job's cursor.
// Each batch's notifications and the cursor advance commit together, so a
// failed run leaves a consistent prefix and can be resumed.
func (s *NotificationService) RunBroadcast(ctx context.Context, id uuid.UUID) error {
	claimed, err := s.claimBroadcast(ctx, id)
	if err != nil {
		return apperror.Internal("failed to claim broadcast", err)
	}
	if !claimed {
		return nil
	}

	job, err := s.GetBroadcast(ctx, id)
	if err != nil {
		return err
	}

	for {
		done, err := s.runBatch(ctx, job)
		if err != nil {
			log.Errorw("broadcast batch failed", "broadcast_id", id, "cursor", job.Cursor, "error", err)
			s.markBroadcastFailed(ctx, id, err)
			return apperror.Internal("broadcast failed", err)
		}
		if done {
			break
		}
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&model.NotificationBroadcast{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.BroadcastStatusCompleted,
			"completed_at": now,
		}).Error; err != nil {
		return apperror.Internal("failed to complete broadcast", err)
	}

	log.Infow("broadcast completed", "broadcast_id", id, "type", job.Type,
		"preference", job.PreferenceKey, "recipients", job.RecipientsNotified)
	return nil
}

// markBroadcastFailed records a failed run so the resume job can pick it up.
// It outlives ctx, which may be the cancelled cause of the failure.
func (s *NotificationService) markBroadcastFailed(ctx context.Context, id uuid.UUID, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), broadcastBookkeepingTimeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Model(&model.NotificationBroadcast{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.BroadcastStatusFailed,
			"last_error": cause.Error(),
		}).Error; err != nil {
		log.Errorw("failed to mark broadcast failed", "broadcast_id", id, "error", err)
	}
}

// runBatch processes the next batch of users. It reports true when no users
// remain after the cursor.
func (s *NotificationService) runBatch(ctx context.Context, job *model.NotificationBroadcast) (bool, error) {
	var users []model.User
	query := s.db.WithContext(ctx).Model(&model.User{}).
		Select("id", "notification_preferences").
		Order("id ASC").
		Limit(s.batchSize)
	if job.Cursor != nil {
		query = query.Where("id > ?", *job.Cursor)
	}
	if job.AudienceCourseID != nil {
		query = query.Where("id IN (?)", s.db.Model(&model.Enrollment{}).
			Select("user_id").Where("course_id = ?", *job.AudienceCourseID))
	}
	if err := query.Find(&users).Error; err != nil {
		return false, fmt.Errorf("load users: %w", err)
	}
	if len(users) == 0 {
		return true, nil
	}

	broadcastID := job.ID
	var batch []model.Notification
	for i := range users {
		u := users[i]
		if job.PreferenceKey != "" && !u.Preferences().Allows(job.PreferenceKey) {
			continue
		}
		userID := u.ID
		batch = append(batch, model.Notification{
			UserID:      &userID,
			Title:       job.Title,
			Message:     job.Message,
			Type:        job.Type,
			Icon:        job.Icon,
			Color:       job.Color,
			RelatedID:   job.RelatedID,
			Metadata:    job.Metadata,
			BroadcastID: &broadcastID,
		})
	}

	last := users[len(users)-1].ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(batch) > 0 {
			if err := tx.CreateInBatches(batch, 100).Error; err != nil {
				return fmt.Errorf("insert notifications: %w", err)
			}
		}
		return tx.Model(&model.NotificationBroadcast{}).Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"cursor":              last,
				"recipients_notified": gorm.Expr("recipients_notified + ?", len(batch)),
			}).Error
	})
	if err != nil {
		return false, err
	}

	job.Cursor = &last
	job.RecipientsNotified += len(batch)
	return len(users) < s.batchSize, nil
}

// ResumeBroadcasts runs every job that is pending, failed with attempts
// left, or running without progress for longer than the stale window
func (s *NotificationService) ResumeBroadcasts(ctx context.Context) (int, error) {
	staleBefore := time.Now().UTC().Add(-s.staleAfter)

	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&model.NotificationBroadcast{}).
		Where("attempts < ?", maxBroadcastAttempts).
		Where("(status IN ? OR (status = ? AND updated_at < ?))",
			[]model.BroadcastStatus{model.BroadcastStatusPending, model.BroadcastStatusFailed},
			model.BroadcastStatusRunning, staleBefore).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, apperror.Internal("failed to find resumable broadcasts", err)
	}

	resumed := 0
	for _, id := range ids {
		if err := s.RunBroadcast(ctx, id); err != nil {
			log.Warnw("broadcast resume failed", "broadcast_id", id, "error", err)
			continue
		}
		resumed++
	}
	return resumed, nil
}

// List returns the user's own notifications plus global ones, newest first
func (s *NotificationService) List(ctx context.Context, opts ListNotificationsOptions) ([]model.Notification, int64, error) {
	var notifications []model.Notification
	var total int64

	query := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? OR user_id IS NULL", opts.UserID)

	if opts.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if opts.Type != "" {
		query = query.Where("type = ?", opts.Type)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal("failed to count notifications", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	if err := query.Order("created_at DESC").Limit(limit).Offset(opts.Offset).Find(&notifications).Error; err != nil {
		return nil, 0, apperror.Internal("failed to fetch notifications", err)
	}

	return notifications, total, nil
}

// GetUnreadCount counts the user's own unread notifications
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperror.Internal("failed to count unread notifications", err)
	}
	return count, nil
}

// MarkAsRead marks one of the user's notifications as read
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return apperror.Internal("failed to mark notification as read", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("notification not found")
	}
	return nil
}

// MarkAllAsRead marks all of the user's notifications as read
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, apperror.Internal("failed to mark all notifications as read", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes one of the user's notifications. Deleting an absent or
// foreign notification is a no-op.
func (s *NotificationService) Delete(ctx context.Context, notificationID, userID uuid.UUID) error {
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&model.Notification{}).Error; err != nil {
		return apperror.Internal("failed to delete notification", err)
	}
	return nil
}

// DeleteAll removes every notification owned by the user
func (s *NotificationService) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Notification{})
	if result.Error != nil {
		return 0, apperror.Internal("failed to delete notifications", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupOldNotifications removes read notifications older than olderThan
func (s *NotificationService) CleanupOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	result := s.db.WithContext(ctx).
		Where("created_at < ? AND is_read = ?", cutoff, true).
		Delete(&model.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup old notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// GetPreferences returns the effective value of every preference key
func (s *NotificationService) GetPreferences(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Select("id", "notification_preferences").
		Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal("failed to load preferences", err)
	}
	return effectivePreferences(user.Preferences()), nil
}

// UpdatePreferences sets the given keys and leaves the others untouched
func (s *NotificationService) UpdatePreferences(ctx context.Context, userID uuid.UUID, updates map[string]bool) (map[string]bool, error) {
	for key := range updates {
		if !model.IsValidPreferenceKey(key) {
			return nil, apperror.InvalidArgument("unknown preference key %q", key)
		}
	}

	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal("failed to load user", err)
	}

	prefs := user.Preferences()
	for key, value := range updates {
		v := value
		switch key {
		case model.PreferenceCourseUpdates:
			prefs.CourseUpdates = &v
		case model.PreferenceNewCourses:
			prefs.NewCourses = &v
		case model.PreferencePromotions:
			prefs.Promotions = &v
		}
	}
	if err := user.SetPreferences(prefs); err != nil {
		return nil, apperror.Internal("failed to encode preferences", err)
	}

	if err := s.db.WithContext(ctx).Model(&user).
		Update("notification_preferences", user.NotificationPreferences).Error; err != nil {
		return nil, apperror.Internal("failed to save preferences", err)
	}
	return effectivePreferences(prefs), nil
}

func effectivePreferences(p model.NotificationPreferences) map[string]bool {
	return map[string]bool{
		model.PreferenceCourseUpdates: p.Allows(model.PreferenceCourseUpdates),
		model.PreferenceNewCourses:    p.Allows(model.PreferenceNewCourses),
		model.PreferencePromotions:    p.Allows(model.PreferencePromotions),
	}
}
