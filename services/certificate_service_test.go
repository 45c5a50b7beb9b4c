package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services/events"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateNumber(t *testing.T) {
	userID := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	at := time.UnixMilli(1700000000123)

	assert.Equal(t, "CERT-1700000000123-174000", CertificateNumber(at, userID))
}

func TestGenerateCertificate(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	pub := &recordingPublisher{}
	svc := NewCertificateService(db, NewNotificationService(db, NotificationConfig{}), pub)

	user := createUser(t, db, "a@example.com")
	course := createCourse(t, db, "Go", 100)
	require.NoError(t, db.Model(course).Update("certificate_template", "https://cdn.example.com/cert.pdf").Error)
	enrollment := createEnrollment(t, db, user.ID, course.ID)

	in := GenerateCertificateInput{UserID: user.ID, CourseID: course.ID, EnrollmentID: enrollment.ID}
	first, err := svc.Generate(ctx, in)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.NoError(t, first.EnrollmentUpdateError)
	assert.Equal(t, "https://cdn.example.com/cert.pdf", first.Certificate.PDFURL)
	assert.True(t, strings.HasPrefix(first.Certificate.CertificateNumber, "CERT-"))
	assert.True(t, strings.HasSuffix(first.Certificate.CertificateNumber, user.ID.String()[len(user.ID.String())-6:]))

	var stored model.Enrollment
	require.NoError(t, db.First(&stored, "id = ?", enrollment.ID).Error)
	assert.Equal(t, model.EnrollmentStatusCompleted, stored.Status)
	assert.Equal(t, 100.0, stored.Progress)
	assert.NotNil(t, stored.CompletedAt)

	// Idempotent per (user, course)
	second, err := svc.Generate(ctx, in)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Certificate.ID, second.Certificate.ID)
	assert.Equal(t, int64(1), countRows(t, db, &model.Certificate{}, ""))

	assert.Equal(t, []string{events.TypeCertificateIssued}, pub.types())
	assert.Equal(t, int64(1), countRows(t, db, &model.Notification{}, "type = ?", model.NotificationTypeCertificate))

	found, err := svc.GetByNumber(ctx, first.Certificate.CertificateNumber)
	require.NoError(t, err)
	assert.Equal(t, first.Certificate.ID, found.ID)

	_, err = svc.GetByNumber(ctx, "CERT-0-000000")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGenerateCertificateEnrollmentPatch(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewCertificateService(db, nil, nil)

	user := createUser(t, db, "a@example.com")
	course := createCourse(t, db, "Go", 100)

	// Strict mode surfaces the missing enrollment and issues nothing
	_, err := svc.Generate(ctx, GenerateCertificateInput{
		UserID: user.ID, CourseID: course.ID, EnrollmentID: uuid.New(), Strict: true,
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, int64(0), countRows(t, db, &model.Certificate{}, ""))

	// Best-effort mode issues anyway and reports the failure
	res, err := svc.Generate(ctx, GenerateCertificateInput{
		UserID: user.ID, CourseID: course.ID, EnrollmentID: uuid.New(),
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Error(t, res.EnrollmentUpdateError)
	assert.Equal(t, int64(1), countRows(t, db, &model.Certificate{}, ""))
}

func TestGenerateCertificateUnknownCourse(t *testing.T) {
	db := dbtest.New(t)
	svc := NewCertificateService(db, nil, nil)
	user := createUser(t, db, "a@example.com")

	_, err := svc.Generate(context.Background(), GenerateCertificateInput{
		UserID: user.ID, CourseID: uuid.New(), EnrollmentID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
