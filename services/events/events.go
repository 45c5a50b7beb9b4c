// Package events publishes domain events to RabbitMQ so side work such as
// transactional email runs outside the request path.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Routing keys
const (
	TypePaymentVerified   = "payment.verified"
	TypePaymentRejected   = "payment.rejected"
	TypeCertificateIssued = "certificate.issued"
)

// Event is the envelope written to the broker
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// PaymentVerified is published after a payment was verified and the
// enrollment exists
type PaymentVerified struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	UserID        uuid.UUID `json:"user_id"`
	CourseID      uuid.UUID `json:"course_id"`
	EnrollmentID  uuid.UUID `json:"enrollment_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Amount        float64   `json:"amount"`
}

// PaymentRejected is published after an admin rejected a payment
type PaymentRejected struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	UserID        uuid.UUID `json:"user_id"`
	CourseID      uuid.UUID `json:"course_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Reason        string    `json:"reason"`
}

// CertificateIssued is published once per newly created certificate
type CertificateIssued struct {
	CertificateID     uuid.UUID `json:"certificate_id"`
	CertificateNumber string    `json:"certificate_number"`
	UserID            uuid.UUID `json:"user_id"`
	CourseID          uuid.UUID `json:"course_id"`
	PDFURL            string    `json:"pdf_url,omitempty"`
}

// New wraps payload in an Event envelope
func New(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    data,
	}, nil
}

// Decode unmarshals the payload into dest
func (e Event) Decode(dest interface{}) error {
	return json.Unmarshal(e.Payload, dest)
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }
