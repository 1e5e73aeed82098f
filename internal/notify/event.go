// Package notify delivers participant emails outside the request path.
package notify

import "conference_registration/internal/model"

// Kind selects the message sent for an event.
type Kind string

const (
	KindRegistrationPending Kind = "registration_pending"
	KindPaymentVerified     Kind = "payment_verified"
	KindPaymentRejected     Kind = "payment_rejected"
)

// Event is handed to the dispatcher after the state change it describes has
// been committed.
type Event struct {
	Kind          Kind
	ParticipantID int64
	PaymentID     int64
	Email         string
	FullName      string
	Track         model.Track
	TeamName      *string
	Method        model.PaymentMethod
	Reason        string
	// Ticket is the rendered QR image for a verified payment. It is filled
	// once before delivery so retries resend the same image.
	Ticket []byte
}
