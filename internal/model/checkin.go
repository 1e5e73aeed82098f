package model

import "time"

// DefaultEventType is used when a check-in request does not name one.
const DefaultEventType = "main_entry"

// CheckIn records a participant entering an event
type CheckIn struct {
	ID            int64     `json:"id"`
	ParticipantID int64     `json:"participant_id"`
	EventType     string    `json:"event_type"`
	CheckedBy     int64     `json:"checked_by"`
	CheckedInAt   time.Time `json:"checked_in_at"`
}

// QRRequest carries the scanned ticket payload.
type QRRequest struct {
	QRData    string `json:"qr_data" binding:"required"`
	EventType string `json:"event_type"`
}

// TicketInfo is the result of verifying a scanned ticket.
type TicketInfo struct {
	ParticipantID int64         `json:"participant_id"`
	FullName      string        `json:"full_name"`
	Email         string        `json:"email"`
	Track         Track         `json:"track"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CheckedIn     bool          `json:"checked_in"`
}
