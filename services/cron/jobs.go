package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/auth"
)

const (
	notificationRetention = 90 * 24 * time.Hour
	cronLogRetention      = 30 * 24 * time.Hour
)

// ResumeNotificationBroadcasts picks up pending, failed and stalled fan-out
// jobs from their cursor
func (m *CronManager) ResumeNotificationBroadcasts(ctx context.Context) (string, error) {
	resumed, err := m.notifications.ResumeBroadcasts(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Resumed %d broadcasts", resumed), nil
}

// CleanupOldNotifications deletes read notifications past the retention window
func (m *CronManager) CleanupOldNotifications(ctx context.Context) (string, error) {
	removed, err := m.notifications.CleanupOldNotifications(ctx, notificationRetention)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed %d read notifications", removed), nil
}

// CleanupExpiredTokens removes blacklist entries for tokens that expired on
// their own and reset tokens past their expiry
func (m *CronManager) CleanupExpiredTokens(ctx context.Context) (string, error) {
	blacklist := auth.NewBlacklistService(m.db)
	blacklisted, err := blacklist.CleanupExpiredTokens(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to cleanup token blacklist: %w", err)
	}
	resets, err := blacklist.CleanupExpiredResetTokens(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to cleanup reset tokens: %w", err)
	}
	return fmt.Sprintf("Removed %d blacklisted tokens and %d reset tokens", blacklisted, resets), nil
}

// ReconcileCourseAggregates rewrites Course.rating and total_students from
// the reviews and enrollments tables
func (m *CronManager) ReconcileCourseAggregates(ctx context.Context) (string, error) {
	changed, err := m.catalog.ReconcileCourseAggregates(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Corrected %d courses", changed), nil
}

// CleanupCronLogs drops cron_job_logs rows older than the retention window
func (m *CronManager) CleanupCronLogs(ctx context.Context) (string, error) {
	cutoff := time.Now().Add(-cronLogRetention)
	result := m.db.WithContext(ctx).Where("started_at < ?", cutoff).Delete(&model.CronJobLog{})
	if result.Error != nil {
		return "", fmt.Errorf("failed to cleanup cron logs: %w", result.Error)
	}
	return fmt.Sprintf("Removed %d log rows", result.RowsAffected), nil
}
