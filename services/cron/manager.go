package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"gorm.io/gorm"
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron          *cron.Cron
	db            *gorm.DB
	notifications *services.NotificationService
	catalog       *services.CatalogService
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, notifications *services.NotificationService, catalog *services.CatalogService) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:          c,
		db:            db,
		notifications: notifications,
		catalog:       catalog,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs and waits for running ones
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

type job struct {
	name     string
	schedule string
	timeout  time.Duration
	run      func(ctx context.Context) (string, error)
}

func (m *CronManager) jobs() []job {
	return []job{
		// Every minute: resume interrupted notification broadcasts
		{"resume_notification_broadcasts", "0 * * * * *", 10 * time.Minute, m.ResumeNotificationBroadcasts},
		// Every hour: drop expired token blacklist and reset token rows
		{"cleanup_expired_tokens", "0 5 * * * *", 5 * time.Minute, m.CleanupExpiredTokens},
		// Daily at 2 AM: remove old read notifications
		{"cleanup_old_notifications", "0 0 2 * * *", 10 * time.Minute, m.CleanupOldNotifications},
		// Daily at 3 AM: recompute course rating and student counters
		{"reconcile_course_aggregates", "0 0 3 * * *", 30 * time.Minute, m.ReconcileCourseAggregates},
		// Weekly on Sunday at 4 AM: trim the cron log itself
		{"cleanup_cron_logs", "0 0 4 * * 0", 5 * time.Minute, m.CleanupCronLogs},
	}
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	for _, j := range m.jobs() {
		j := j
		if _, err := m.cron.AddFunc(j.schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
			defer cancel()
			m.runJob(ctx, j.name, j.run)
		}); err != nil {
			return err
		}
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// runJob records the run in cron_job_logs around fn
func (m *CronManager) runJob(ctx context.Context, jobName string, fn func(ctx context.Context) (string, error)) {
	started := time.Now()
	log.Printf("[CRON] Starting job: %s at %s", jobName, started.Format(time.RFC3339))

	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronStatusStarted,
		StartedAt: started,
	}
	if err := m.db.WithContext(ctx).Create(&cronLog).Error; err != nil {
		log.Printf("[CRON] Failed to record start of %s: %v", jobName, err)
	}

	message, err := fn(ctx)

	completed := time.Now()
	updates := map[string]interface{}{
		"completed_at": completed,
		"duration":     completed.Sub(started).Milliseconds(),
		"message":      message,
	}
	if err != nil {
		log.Printf("[CRON] Error in job: %s - %v", jobName, err)
		updates["status"] = model.CronStatusFailed
		updates["error_msg"] = err.Error()
	} else {
		log.Printf("[CRON] Completed job: %s - %s", jobName, message)
		updates["status"] = model.CronStatusCompleted
	}

	if cronLog.ID == 0 {
		return
	}
	// The job context may have expired; the log row is still written
	if err := m.db.Model(&model.CronJobLog{}).Where("id = ?", cronLog.ID).Updates(updates).Error; err != nil {
		log.Printf("[CRON] Failed to record completion of %s: %v", jobName, err)
	}
}
