package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services/events"
	"gorm.io/gorm"
)

// EventMailer turns domain events into transactional email
type EventMailer struct {
	db    *gorm.DB
	email *EmailService
}

// NewEventMailer creates a new event mailer
func NewEventMailer(db *gorm.DB, email *EmailService) *EventMailer {
	return &EventMailer{db: db, email: email}
}

// Handle sends the email for one event. Unknown event types and events whose
// user or course no longer exists are dropped without error.
func (m *EventMailer) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.TypePaymentVerified:
		var p events.PaymentVerified
		if err := event.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type, err)
		}
		user, course, ok := m.lookup(ctx, event, p.UserID, p.CourseID)
		if !ok {
			return nil
		}
		return m.deliver(event, m.email.SendPaymentVerifiedEmail(user.Email, user.Name, course.Title, p.InvoiceNumber, p.Amount))

	case events.TypePaymentRejected:
		var p events.PaymentRejected
		if err := event.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type, err)
		}
		user, course, ok := m.lookup(ctx, event, p.UserID, p.CourseID)
		if !ok {
			return nil
		}
		return m.deliver(event, m.email.SendPaymentRejectedEmail(user.Email, user.Name, course.Title, p.InvoiceNumber, p.Reason))

	case events.TypeCertificateIssued:
		var p events.CertificateIssued
		if err := event.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type, err)
		}
		user, course, ok := m.lookup(ctx, event, p.UserID, p.CourseID)
		if !ok {
			return nil
		}
		return m.deliver(event, m.email.SendCertificateEmail(user.Email, user.Name, course.Title, p.CertificateNumber, p.PDFURL))
	}

	log.Warnw("event ignored", "type", event.Type, "event_id", event.ID)
	return nil
}

func (m *EventMailer) lookup(ctx context.Context, event events.Event, userID, courseID uuid.UUID) (*model.User, *model.Course, bool) {
	db := m.db.WithContext(ctx)

	var user model.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		log.Warnw("event user missing", "type", event.Type, "event_id", event.ID, "user_id", userID, "error", err)
		return nil, nil, false
	}
	// Unscoped so archived or deleted courses still render their title
	var course model.Course
	if err := db.Unscoped().Where("id = ?", courseID).First(&course).Error; err != nil {
		log.Warnw("event course missing", "type", event.Type, "event_id", event.ID, "course_id", courseID, "error", err)
		return nil, nil, false
	}
	return &user, &course, true
}

func (m *EventMailer) deliver(event events.Event, err error) error {
	if errors.Is(err, ErrSMTPNotConfigured) {
		log.Warnw("email skipped, SMTP not configured", "type", event.Type, "event_id", event.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("send %s email: %w", event.Type, err)
	}
	log.Infow("event email sent", "type", event.Type, "event_id", event.ID)
	return nil
}
