package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLessonProgress(t *testing.T) {
	assert.Equal(t, 0.0, lessonProgress(0, 0))
	assert.Equal(t, 33.33, lessonProgress(1, 3))
	assert.Equal(t, 66.67, lessonProgress(2, 3))
	assert.Equal(t, 100.0, lessonProgress(3, 3))
}

func TestCompleteLesson(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewEnrollmentService(db)

	user := createUser(t, db, "a@example.com")
	stranger := createUser(t, db, "b@example.com")
	course := createCourse(t, db, "Go", 100)
	l1 := createLesson(t, db, course.ID, "Intro", 1)
	l2 := createLesson(t, db, course.ID, "Types", 2)
	l3 := createLesson(t, db, course.ID, "Interfaces", 3)
	enrollment := createEnrollment(t, db, user.ID, course.ID)

	_, err := svc.CompleteLesson(ctx, stranger.ID, l1.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = svc.CompleteLesson(ctx, user.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	res, err := svc.CompleteLesson(ctx, user.ID, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, 33.33, res.Enrollment.Progress)
	assert.False(t, res.CourseFinished)

	// Repeat is idempotent
	res, err = svc.CompleteLesson(ctx, user.ID, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.CompletedLessons)

	_, err = svc.CompleteLesson(ctx, user.ID, l2.ID)
	require.NoError(t, err)
	res, err = svc.CompleteLesson(ctx, user.ID, l3.ID)
	require.NoError(t, err)
	assert.True(t, res.CourseFinished)
	assert.Equal(t, 100.0, res.Enrollment.Progress)

	ids, err := svc.CompletedLessonIDs(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	stored, err := svc.Get(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Progress)
	assert.Equal(t, model.EnrollmentStatusActive, stored.Status)
}

func TestCompleteLessonKeepsCompletedEnrollment(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewEnrollmentService(db)

	user := createUser(t, db, "a@example.com")
	course := createCourse(t, db, "Go", 100)
	lesson := createLesson(t, db, course.ID, "Intro", 1)
	createLesson(t, db, course.ID, "New lesson added later", 2)

	now := time.Now()
	enrollment := createEnrollment(t, db, user.ID, course.ID)
	require.NoError(t, db.Model(enrollment).Updates(map[string]interface{}{
		"status": model.EnrollmentStatusCompleted, "progress": 100, "completed_at": now,
	}).Error)

	_, err := svc.CompleteLesson(ctx, user.ID, lesson.ID)
	require.NoError(t, err)

	stored, err := svc.Get(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentStatusCompleted, stored.Status)
	assert.Equal(t, 100.0, stored.Progress)
}

func TestEnrollmentQueries(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewEnrollmentService(db)

	user := createUser(t, db, "a@example.com")
	goCourse := createCourse(t, db, "Go", 100)
	rustCourse := createCourse(t, db, "Rust", 100)
	createEnrollment(t, db, user.ID, goCourse.ID)

	enrolled, err := svc.IsEnrolled(ctx, user.ID, goCourse.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	enrolled, err = svc.IsEnrolled(ctx, user.ID, rustCourse.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)

	list, err := svc.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Course)
	assert.Equal(t, "Go", list[0].Course.Title)

	all, total, err := svc.ListAll(ctx, EnrollmentFilter{CourseID: &rustCourse.ID})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, all)

	_, err = svc.GetForCourse(ctx, user.ID, rustCourse.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
