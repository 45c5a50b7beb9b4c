package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *CronManager {
	db := dbtest.New(t)
	notifier := services.NewNotificationService(db, services.NotificationConfig{})
	return NewCronManager(db, notifier, services.NewCatalogService(db, notifier))
}

func TestRunJobRecordsCompletion(t *testing.T) {
	m := newTestManager(t)

	m.runJob(context.Background(), "sample", func(ctx context.Context) (string, error) {
		return "did things", nil
	})

	var entry model.CronJobLog
	require.NoError(t, m.db.Where("job_name = ?", "sample").First(&entry).Error)
	assert.Equal(t, model.CronStatusCompleted, entry.Status)
	assert.Equal(t, "did things", entry.Message)
	assert.NotNil(t, entry.CompletedAt)
	assert.Empty(t, entry.ErrorMsg)
}

func TestRunJobRecordsFailure(t *testing.T) {
	m := newTestManager(t)

	m.runJob(context.Background(), "broken", func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})

	var entry model.CronJobLog
	require.NoError(t, m.db.Where("job_name = ?", "broken").First(&entry).Error)
	assert.Equal(t, model.CronStatusFailed, entry.Status)
	assert.Equal(t, "boom", entry.ErrorMsg)
}

func TestCleanupExpiredTokens(t *testing.T) {
	m := newTestManager(t)
	user := model.User{Email: "a@example.com", Name: "A", PasswordHash: "x", Role: model.RoleStudent}
	require.NoError(t, m.db.Create(&user).Error)

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	require.NoError(t, m.db.Create(&model.JWTTokenBlacklist{Token: uuid.NewString(), UserID: user.ID, ExpiresAt: past}).Error)
	require.NoError(t, m.db.Create(&model.JWTTokenBlacklist{Token: uuid.NewString(), UserID: user.ID, ExpiresAt: future}).Error)

	msg, err := m.CleanupExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Contains(t, msg, "Removed 1 blacklisted tokens")

	var remaining int64
	m.db.Model(&model.JWTTokenBlacklist{}).Count(&remaining)
	assert.Equal(t, int64(1), remaining)
}

func TestCleanupCronLogs(t *testing.T) {
	m := newTestManager(t)
	old := model.CronJobLog{JobName: "old", Status: model.CronStatusCompleted, StartedAt: time.Now().UTC().AddDate(0, 0, -45)}
	recent := model.CronJobLog{JobName: "recent", Status: model.CronStatusCompleted, StartedAt: time.Now().UTC()}
	require.NoError(t, m.db.Create(&old).Error)
	require.NoError(t, m.db.Create(&recent).Error)

	_, err := m.CleanupCronLogs(context.Background())
	require.NoError(t, err)

	var names []string
	m.db.Model(&model.CronJobLog{}).Pluck("job_name", &names)
	assert.Equal(t, []string{"recent"}, names)
}

func TestRegisterJobsAcceptsSchedules(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.registerJobs())
	assert.Len(t, m.cron.Entries(), len(m.jobs()))
}
