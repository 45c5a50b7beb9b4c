package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	payments := NewPaymentService(db, nil, nil)
	svc := NewAnalyticsService(db)

	user := createUser(t, db, "a@example.com")
	course := createCourse(t, db, "Go", 150000)
	createCourse(t, db, "Rust", 200000)

	paid, err := payments.Create(ctx, CreatePaymentInput{UserID: user.ID, CourseID: course.ID, Amount: 150000})
	require.NoError(t, err)
	_, err = payments.Verify(ctx, paid.ID)
	require.NoError(t, err)

	other := createUser(t, db, "b@example.com")
	_, err = payments.Create(ctx, CreatePaymentInput{UserID: other.ID, CourseID: course.ID, Amount: 150000})
	require.NoError(t, err)

	stats, err := svc.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.TotalCourses)
	assert.Equal(t, int64(2), stats.PublishedCourses)
	assert.Equal(t, int64(1), stats.TotalEnrollments)
	assert.Equal(t, int64(1), stats.PendingPayments)
	assert.Equal(t, 150000.0, stats.VerifiedRevenue)
	assert.Equal(t, int64(2), stats.NewUsersToday)

	top, err := svc.GetTopCourses(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Go", top[0].Title)
	assert.Equal(t, 1, top[0].TotalStudents)
	assert.Equal(t, 150000.0, top[0].Revenue)

	series, err := svc.GetEnrollmentTimeSeries(ctx, 7)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, int64(1), series[0].Count)

	var courses int64
	require.NoError(t, db.Model(&model.Course{}).Count(&courses).Error)
	assert.Equal(t, int64(2), courses)
}
