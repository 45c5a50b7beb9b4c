package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/services/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMailerSendsPaymentVerified(t *testing.T) {
	db := dbtest.New(t)
	email, sent := newCapturingEmailService()
	mailer := NewEventMailer(db, email)

	user := createUser(t, db, "buyer@example.com")
	course := createCourse(t, db, "Go Basics", 150000)

	event, err := events.New(events.TypePaymentVerified, events.PaymentVerified{
		PaymentID:     uuid.New(),
		UserID:        user.ID,
		CourseID:      course.ID,
		InvoiceNumber: "INV-20240101-ABCDEF",
		Amount:        150000,
	})
	require.NoError(t, err)

	require.NoError(t, mailer.Handle(context.Background(), event))
	require.Len(t, *sent, 1)
	assert.Equal(t, "buyer@example.com", (*sent)[0].to)
	assert.Contains(t, (*sent)[0].body, "Go Basics")
}

func TestEventMailerDropsUnknownAndOrphanEvents(t *testing.T) {
	db := dbtest.New(t)
	email, sent := newCapturingEmailService()
	mailer := NewEventMailer(db, email)

	unknown, err := events.New("course.archived", map[string]string{"id": "x"})
	require.NoError(t, err)
	assert.NoError(t, mailer.Handle(context.Background(), unknown))

	orphan, err := events.New(events.TypeCertificateIssued, events.CertificateIssued{
		CertificateID: uuid.New(),
		UserID:        uuid.New(),
		CourseID:      uuid.New(),
	})
	require.NoError(t, err)
	assert.NoError(t, mailer.Handle(context.Background(), orphan))

	assert.Empty(t, *sent)
}

func TestEventMailerRejectsMalformedPayload(t *testing.T) {
	mailer := NewEventMailer(dbtest.New(t), &EmailService{})
	bad := events.Event{ID: "1", Type: events.TypePaymentRejected, Payload: []byte(`"not an object"`)}
	assert.Error(t, mailer.Handle(context.Background(), bad))
}
