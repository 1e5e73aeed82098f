package model

import "time"

// Audit actions
const (
	AuditPaymentVerified = "payment_verified"
	AuditPaymentRejected = "payment_rejected"
	AuditCashCollected   = "cash_collected"
	AuditRolesChanged    = "roles_changed"
	AuditPaymentFlagged  = "payment_flagged"
	AuditCheckIn         = "check_in"
	AuditUserCreated     = "user_created"
)

// AuditLog is an append-only record of a privileged action
type AuditLog struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	RecordID  int64     `json:"record_id"`
	Details   *string   `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditFilters struct {
	UserID *int64
	Action *string
	Limit  int
	Offset int
}
