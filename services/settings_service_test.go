package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return errors.New("miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func TestSettingsDefaults(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewSettingsService(db, nil)

	settings, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), settings)

	value, err := svc.Get(ctx, model.SettingCurrency)
	require.NoError(t, err)
	assert.Equal(t, "IDR", value)

	_, err = svc.Get(ctx, "unknown_key")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSettingsSetAndDelete(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	cache := newMemoryCache()
	svc := NewSettingsService(db, cache)

	// Prime the cache
	_, err := svc.GetSettings(ctx)
	require.NoError(t, err)

	_, err = svc.Set(ctx, SetSettingInput{Key: model.SettingSiteName, Value: "Kelas Online"})
	require.NoError(t, err)
	private := false
	_, err = svc.Set(ctx, SetSettingInput{Key: "smtp_note", Value: "internal", IsPublic: &private})
	require.NoError(t, err)

	// Upsert keeps one row
	stored, err := svc.Set(ctx, SetSettingInput{Key: model.SettingSiteName, Value: "Kelas Online 2"})
	require.NoError(t, err)
	assert.Equal(t, "Kelas Online 2", stored.Value)
	assert.Equal(t, int64(1), countRows(t, db, &model.AppSetting{}, "key = ?", model.SettingSiteName))

	settings, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Kelas Online 2", settings[model.SettingSiteName])
	assert.Equal(t, "internal", settings["smtp_note"])

	public, err := svc.GetPublicSettings(ctx)
	require.NoError(t, err)
	assert.NotContains(t, public, "smtp_note")
	assert.Equal(t, "Kelas Online 2", public[model.SettingSiteName])

	require.NoError(t, svc.Delete(ctx, model.SettingSiteName))
	value, err := svc.Get(ctx, model.SettingSiteName)
	require.NoError(t, err)
	assert.Equal(t, "Course Market", value)

	settings, err = svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Course Market", settings[model.SettingSiteName])

	require.NoError(t, svc.Delete(ctx, model.SettingSiteName))
	require.NoError(t, svc.Delete(ctx, "never_set"))

	_, err = svc.Set(ctx, SetSettingInput{Key: "  "})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}
