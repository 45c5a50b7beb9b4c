package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAddAndDuplicate(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewCartService(db)

	user := createUser(t, db, "a@example.com")
	course := createCourse(t, db, "Go", 150000)

	item, err := svc.Add(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, item.AddedAt.IsZero())

	_, err = svc.Add(ctx, user.ID, course.ID)
	assert.ErrorIs(t, err, apperror.ErrDuplicateEntry)

	count, err := svc.Count(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = svc.Add(ctx, user.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCartRejectsCoursesNotOnSale(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewCartService(db)

	user := createUser(t, db, "a@example.com")
	draft := createCourse(t, db, "Draft", 50)
	archived := createCourse(t, db, "Archived", 100)
	free := createCourse(t, db, "Free", 0)
	require.NoError(t, db.Model(draft).Update("status", model.CourseStatusDraft).Error)
	require.NoError(t, db.Model(archived).Update("status", model.CourseStatusArchived).Error)

	for _, c := range []*model.Course{draft, archived, free} {
		_, err := svc.Add(ctx, user.ID, c.ID)
		assert.ErrorIs(t, err, apperror.ErrInvalidArgument, c.Title)
	}

	count, err := svc.Count(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCartListAndClear(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewCartService(db)

	user := createUser(t, db, "a@example.com")
	other := createUser(t, db, "b@example.com")
	goCourse := createCourse(t, db, "Go", 100)
	rustCourse := createCourse(t, db, "Rust", 200)

	_, err := svc.Add(ctx, user.ID, goCourse.ID)
	require.NoError(t, err)
	_, err = svc.Add(ctx, user.ID, rustCourse.ID)
	require.NoError(t, err)
	_, err = svc.Add(ctx, other.ID, goCourse.ID)
	require.NoError(t, err)

	// Soft-deleted course shows up as missing
	require.NoError(t, db.Delete(&model.Course{}, "id = ?", rustCourse.ID).Error)

	entries, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var missing int
	for _, e := range entries {
		if e.CourseMissing {
			missing++
			assert.Nil(t, e.Course)
		}
	}
	assert.Equal(t, 1, missing)
	assert.Equal(t, float64(100), Total(entries))

	removed, err := svc.Clear(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	count, err := svc.Count(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = svc.Count(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCartRemoveAbsent(t *testing.T) {
	db := dbtest.New(t)
	svc := NewCartService(db)
	user := createUser(t, db, "a@example.com")

	course := createCourse(t, db, "Go", 100)

	assert.NoError(t, svc.Remove(context.Background(), user.ID, uuid.New()))
	assert.NoError(t, svc.RemoveCourse(context.Background(), user.ID, course.ID))
}

func TestCartRemoveIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewCartService(db)
	owner := createUser(t, db, "a@example.com")
	other := createUser(t, db, "b@example.com")
	course := createCourse(t, db, "Go", 100)

	item, err := svc.Add(ctx, owner.ID, course.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, other.ID, item.ID))
	count, err := svc.Count(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.Remove(ctx, owner.ID, item.ID))
	count, err = svc.Count(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
