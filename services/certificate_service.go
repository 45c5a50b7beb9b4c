package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services/events"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"gorm.io/gorm"
)

// CertificateService issues course completion certificates
type CertificateService struct {
	db        *gorm.DB
	notifier  *NotificationService
	publisher events.Publisher
	now       func() time.Time
}

// NewCertificateService creates a new certificate service. notifier and
// publisher may be nil.
func NewCertificateService(db *gorm.DB, notifier *NotificationService, publisher events.Publisher) *CertificateService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &CertificateService{
		db:        db,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// GenerateCertificateInput identifies the completed course
type GenerateCertificateInput struct {
	UserID       uuid.UUID
	CourseID     uuid.UUID
	EnrollmentID uuid.UUID
	// Strict fails issuance when the enrollment cannot be marked completed
	Strict bool
}

// GenerateResult is the outcome of Generate
type GenerateResult struct {
	Certificate *model.Certificate `json:"certificate"`
	// Created is false when an existing certificate was returned
	Created bool `json:"created"`
	// EnrollmentUpdateError is set when the enrollment patch failed in
	// non-strict mode
	EnrollmentUpdateError error `json:"-"`
}

// CertificateNumber builds CERT-<unix millis>-<last 6 chars of the user id>
func CertificateNumber(at time.Time, userID uuid.UUID) string {
	id := userID.String()
	suffix := id
	if len(id) > 6 {
		suffix = id[len(id)-6:]
	}
	return fmt.Sprintf("CERT-%d-%s", at.UnixMilli(), suffix)
}

// Generate issues the certificate for a (user, course) pair. It is
// idempotent: an existing certificate is returned unchanged.
func (s *CertificateService) Generate(ctx context.Context, in GenerateCertificateInput) (*GenerateResult, error) {
	db := s.db.WithContext(ctx)

	var existing model.Certificate
	err := db.Where("user_id = ? AND course_id = ?", in.UserID, in.CourseID).
		Order("issued_at ASC").
		First(&existing).Error
	if err == nil {
		return &GenerateResult{Certificate: &existing, Created: false}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Internal("failed to look up certificate", err)
	}

	var course model.Course
	if err := db.Where("id = ?", in.CourseID).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("course not found")
		}
		return nil, apperror.Internal("failed to load course", err)
	}

	now := s.now()
	result := &GenerateResult{}

	if err := s.completeEnrollment(ctx, in, now); err != nil {
		if in.Strict {
			return nil, err
		}
		result.EnrollmentUpdateError = err
		log.Warnw("certificate issued without enrollment update",
			"user_id", in.UserID, "course_id", in.CourseID,
			"enrollment_id", in.EnrollmentID, "error", err)
	}

	cert := &model.Certificate{
		UserID:            in.UserID,
		CourseID:          in.CourseID,
		EnrollmentID:      in.EnrollmentID,
		CertificateNumber: CertificateNumber(now, in.UserID),
		IssuedAt:          now,
		PDFURL:            course.CertificateTemplate,
	}
	if err := db.Create(cert).Error; err != nil {
		return nil, apperror.Internal("failed to create certificate", err)
	}
	result.Certificate = cert
	result.Created = true

	log.Infow("certificate issued", "certificate_id", cert.ID, "number", cert.CertificateNumber,
		"user_id", in.UserID, "course_id", in.CourseID)

	s.notifier.TryNotify(ctx, in.UserID, NotificationInput{
		Title:     "Certificate issued",
		Message:   fmt.Sprintf("Congratulations! You completed %s. Your certificate number is %s.", course.Title, cert.CertificateNumber),
		Type:      model.NotificationTypeCertificate,
		Icon:      "award",
		Color:     "yellow",
		RelatedID: cert.ID.String(),
		Metadata: map[string]interface{}{
			"course_id":          course.ID.String(),
			"certificate_number": cert.CertificateNumber,
		},
	})
	publish(ctx, s.publisher, events.TypeCertificateIssued, events.CertificateIssued{
		CertificateID:     cert.ID,
		CertificateNumber: cert.CertificateNumber,
		UserID:            in.UserID,
		CourseID:          in.CourseID,
		PDFURL:            cert.PDFURL,
	})

	return result, nil
}

func (s *CertificateService) completeEnrollment(ctx context.Context, in GenerateCertificateInput, now time.Time) error {
	update := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ?", in.EnrollmentID).
		Updates(map[string]interface{}{
			"status":       model.EnrollmentStatusCompleted,
			"progress":     100,
			"completed_at": now,
		})
	if update.Error != nil {
		return apperror.Internal("failed to complete enrollment", update.Error)
	}
	if update.RowsAffected == 0 {
		return apperror.NotFound("enrollment %s not found", in.EnrollmentID)
	}
	return nil
}

// ListForUser returns the user's certificates, newest first
func (s *CertificateService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Certificate, error) {
	var certs []model.Certificate
	if err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certs).Error; err != nil {
		return nil, apperror.Internal("failed to list certificates", err)
	}
	return certs, nil
}

// Get loads a certificate by id
func (s *CertificateService) Get(ctx context.Context, id uuid.UUID) (*model.Certificate, error) {
	var cert model.Certificate
	if err := s.db.WithContext(ctx).Preload("Course").Where("id = ?", id).First(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("certificate not found")
		}
		return nil, apperror.Internal("failed to load certificate", err)
	}
	return &cert, nil
}

// GetByNumber looks a certificate up by its public number. Numbers are not
// unique; the most recently issued match wins.
func (s *CertificateService) GetByNumber(ctx context.Context, number string) (*model.Certificate, error) {
	var cert model.Certificate
	if err := s.db.WithContext(ctx).Preload("Course").
		Where("certificate_number = ?", number).
		Order("issued_at DESC").
		First(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("certificate not found")
		}
		return nil, apperror.Internal("failed to load certificate", err)
	}
	return &cert, nil
}
