package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyByPreference(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewNotificationService(db, NotificationConfig{BatchSize: 2})

	noPrefs := createUser(t, db, "a@example.com")
	optedIn := createUserWithPrefs(t, db, "b@example.com", model.NotificationPreferences{NewCourses: boolPtr(true)})
	optedOut := createUserWithPrefs(t, db, "c@example.com", model.NotificationPreferences{NewCourses: boolPtr(false)})
	otherKeyOnly := createUserWithPrefs(t, db, "d@example.com", model.NotificationPreferences{Promotions: boolPtr(false)})
	extra := createUser(t, db, "e@example.com")

	job, err := svc.NotifyByPreference(ctx, NotificationInput{
		Title:   "New course",
		Message: "Go for beginners",
		Type:    model.NotificationTypeNewCourse,
	}, model.PreferenceNewCourses)
	require.NoError(t, err)

	assert.Equal(t, model.BroadcastStatusCompleted, job.Status)
	assert.Equal(t, 4, job.RecipientsNotified)
	assert.NotNil(t, job.CompletedAt)

	for _, u := range []*model.User{noPrefs, optedIn, otherKeyOnly, extra} {
		assert.Equal(t, int64(1), countRows(t, db, &model.Notification{}, "user_id = ?", u.ID), u.Email)
	}
	assert.Equal(t, int64(0), countRows(t, db, &model.Notification{}, "user_id = ?", optedOut.ID))

	// Opting out of one key leaves the others on
	promo, err := svc.NotifyByPreference(ctx, NotificationInput{
		Title:   "Discount",
		Message: "50% off this week",
		Type:    model.NotificationTypePromotion,
	}, model.PreferencePromotions)
	require.NoError(t, err)
	assert.Equal(t, 4, promo.RecipientsNotified)

	assert.Equal(t, int64(1), countRows(t, db, &model.Notification{},
		"user_id = ? AND type = ?", optedOut.ID, model.NotificationTypePromotion))
	assert.Equal(t, int64(0), countRows(t, db, &model.Notification{},
		"user_id = ? AND type = ?", otherKeyOnly.ID, model.NotificationTypePromotion))
}

func TestBroadcastToCourseAudience(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewNotificationService(db, NotificationConfig{})

	course := createCourse(t, db, "Go", 100)
	enrolled := createUser(t, db, "enrolled@example.com")
	createUser(t, db, "other@example.com")
	createEnrollment(t, db, enrolled.ID, course.ID)

	job, err := svc.Broadcast(ctx, NotificationInput{
		Title: "New lesson",
		Type:  model.NotificationTypeCourseUpdate,
	}, model.PreferenceCourseUpdates, &course.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, job.RecipientsNotified)
	assert.Equal(t, int64(1), countRows(t, db, &model.Notification{}, ""))
	assert.Equal(t, int64(1), countRows(t, db, &model.Notification{}, "user_id = ?", enrolled.ID))
}

func TestRunBroadcastResumesFromCursor(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewNotificationService(db, NotificationConfig{BatchSize: 2})

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"} {
		createUser(t, db, email)
	}

	var users []model.User
	require.NoError(t, db.Order("id ASC").Find(&users).Error)

	// A previous run delivered to the first two users and then failed.
	job := &model.NotificationBroadcast{
		Title:              "Promo",
		Type:               model.NotificationTypePromotion,
		PreferenceKey:      model.PreferencePromotions,
		Status:             model.BroadcastStatusFailed,
		Cursor:             &users[1].ID,
		RecipientsNotified: 2,
		Attempts:           1,
	}
	require.NoError(t, db.Create(job).Error)
	for _, u := range users[:2] {
		userID := u.ID
		require.NoError(t, db.Create(&model.Notification{
			UserID: &userID, Title: "Promo", Type: model.NotificationTypePromotion, BroadcastID: &job.ID,
		}).Error)
	}

	resumed, err := svc.ResumeBroadcasts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resumed)

	reloaded, err := svc.GetBroadcast(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BroadcastStatusCompleted, reloaded.Status)
	assert.Equal(t, 4, reloaded.RecipientsNotified)
	assert.Equal(t, 2, reloaded.Attempts)

	for _, u := range users {
		assert.Equal(t, int64(1), countRows(t, db, &model.Notification{}, "user_id = ?", u.ID))
	}

	// Completed jobs are not picked up again
	resumed, err = svc.ResumeBroadcasts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, resumed)
}

func TestRunBroadcastSkipsActiveRun(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewNotificationService(db, NotificationConfig{StaleAfter: time.Hour})
	createUser(t, db, "a@example.com")

	job := &model.NotificationBroadcast{
		Title:  "Running elsewhere",
		Type:   model.NotificationTypeSystem,
		Status: model.BroadcastStatusRunning,
	}
	require.NoError(t, db.Create(job).Error)

	require.NoError(t, svc.RunBroadcast(ctx, job.ID))
	assert.Equal(t, int64(0), countRows(t, db, &model.Notification{}, ""))
}

func TestMarkBroadcastFailedOutlivesCancelledContext(t *testing.T) {
	db := dbtest.New(t)
	svc := NewNotificationService(db, NotificationConfig{})

	job := &model.NotificationBroadcast{
		Title:  "Interrupted",
		Type:   model.NotificationTypeSystem,
		Status: model.BroadcastStatusRunning,
	}
	require.NoError(t, db.Create(job).Error)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.markBroadcastFailed(ctx, job.ID, context.Canceled)

	reloaded, err := svc.GetBroadcast(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BroadcastStatusFailed, reloaded.Status)
	assert.Equal(t, context.Canceled.Error(), reloaded.LastError)
}

func TestNotifyRejectsUnknownType(t *testing.T) {
	db := dbtest.New(t)
	svc := NewNotificationService(db, NotificationConfig{})
	user := createUser(t, db, "a@example.com")

	_, err := svc.Notify(context.Background(), user.ID, NotificationInput{Title: "x", Type: "bogus"})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = svc.NotifyByPreference(context.Background(), NotificationInput{Title: "x", Type: model.NotificationTypeSystem}, "bogus")
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestNotificationInbox(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewNotificationService(db, NotificationConfig{})

	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	first, err := svc.Notify(ctx, alice.ID, NotificationInput{Title: "one", Type: model.NotificationTypePayment})
	require.NoError(t, err)
	_, err = svc.Notify(ctx, alice.ID, NotificationInput{Title: "two", Type: model.NotificationTypeEnrollment})
	require.NoError(t, err)
	bobs, err := svc.Notify(ctx, bob.ID, NotificationInput{Title: "bob", Type: model.NotificationTypePayment})
	require.NoError(t, err)
	_, err = svc.CreateGlobal(ctx, NotificationInput{Title: "maintenance", Type: model.NotificationTypeSystem})
	require.NoError(t, err)

	list, total, err := svc.List(ctx, ListNotificationsOptions{UserID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 3)

	list, _, err = svc.List(ctx, ListNotificationsOptions{UserID: alice.ID, Type: string(model.NotificationTypePayment)})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "one", list[0].Title)

	unread, err := svc.GetUnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	require.NoError(t, svc.MarkAsRead(ctx, first.ID, alice.ID))
	assert.ErrorIs(t, svc.MarkAsRead(ctx, bobs.ID, alice.ID), apperror.ErrNotFound)

	unread, err = svc.GetUnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	marked, err := svc.MarkAllAsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	require.NoError(t, svc.Delete(ctx, bobs.ID, alice.ID))
	assert.Equal(t, int64(1), countRows(t, db, &model.Notification{}, "id = ?", bobs.ID))
	require.NoError(t, svc.Delete(ctx, first.ID, alice.ID))
	require.NoError(t, svc.Delete(ctx, first.ID, alice.ID))

	deleted, err := svc.DeleteAll(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Global and other users' notifications survive
	assert.Equal(t, int64(2), countRows(t, db, &model.Notification{}, ""))
}

func TestCleanupOldNotifications(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewNotificationService(db, NotificationConfig{})
	user := createUser(t, db, "a@example.com")

	old := time.Now().UTC().Add(-100 * 24 * time.Hour)
	for _, read := range []bool{true, false} {
		n := &model.Notification{UserID: &user.ID, Title: "old", Type: model.NotificationTypeSystem, IsRead: read}
		require.NoError(t, db.Create(n).Error)
		require.NoError(t, db.Model(n).UpdateColumn("created_at", old).Error)
	}
	_, err := svc.Notify(ctx, user.ID, NotificationInput{Title: "fresh", Type: model.NotificationTypeSystem})
	require.NoError(t, err)

	removed, err := svc.CleanupOldNotifications(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, int64(2), countRows(t, db, &model.Notification{}, ""))
}

func TestNotificationPreferences(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewNotificationService(db, NotificationConfig{})
	user := createUser(t, db, "a@example.com")

	prefs, err := svc.GetPreferences(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{
		model.PreferenceCourseUpdates: true,
		model.PreferenceNewCourses:    true,
		model.PreferencePromotions:    true,
	}, prefs)

	prefs, err = svc.UpdatePreferences(ctx, user.ID, map[string]bool{model.PreferencePromotions: false})
	require.NoError(t, err)
	assert.False(t, prefs[model.PreferencePromotions])
	assert.True(t, prefs[model.PreferenceNewCourses])

	prefs, err = svc.GetPreferences(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, prefs[model.PreferencePromotions])

	_, err = svc.UpdatePreferences(ctx, user.ID, map[string]bool{"sms": true})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}
