package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndDecode(t *testing.T) {
	payload := PaymentVerified{
		PaymentID:     uuid.New(),
		UserID:        uuid.New(),
		CourseID:      uuid.New(),
		EnrollmentID:  uuid.New(),
		InvoiceNumber: "INV-20240101-ABC123",
		Amount:        150000,
	}

	event, err := New(TypePaymentVerified, payload)
	require.NoError(t, err)
	assert.Equal(t, TypePaymentVerified, event.Type)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.OccurredAt.IsZero())

	var decoded PaymentVerified
	require.NoError(t, event.Decode(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeCertificateIssued}))
	assert.NoError(t, p.Close())
}
