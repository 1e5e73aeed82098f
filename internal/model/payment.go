package model

import (
	"time"

	"conference_registration/internal/apperrors"
)

type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCash   PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodOnline || m == PaymentMethodCash
}

type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusPendingCash PaymentStatus = "pending_cash"
	PaymentStatusVerified    PaymentStatus = "verified"
	PaymentStatusRejected    PaymentStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusVerified || s == PaymentStatusRejected
}

// InitialStatus returns the state a payment is created in for a method.
func InitialStatus(m PaymentMethod) PaymentStatus {
	if m == PaymentMethodCash {
		return PaymentStatusPendingCash
	}
	return PaymentStatusPending
}

// ErrAlreadyFinalized is returned for any transition out of a terminal state.
var ErrAlreadyFinalized = apperrors.Conflict("payment already finalized")

// CheckTransition validates moving a payment from one status to another and
// returns the capability required to perform it.
func CheckTransition(method PaymentMethod, from, to PaymentStatus) (Capability, error) {
	if from.IsTerminal() {
		return "", ErrAlreadyFinalized
	}
	switch {
	case method == PaymentMethodOnline && from == PaymentStatusPending &&
		(to == PaymentStatusVerified || to == PaymentStatusRejected):
		return CapVerifyOnline, nil
	case method == PaymentMethodCash && from == PaymentStatusPendingCash && to == PaymentStatusVerified:
		return CapCollectCash, nil
	case method == PaymentMethodCash && to == PaymentStatusRejected:
		return "", apperrors.Validation("cash payments cannot be rejected")
	}
	return "", apperrors.Validation("invalid payment transition %s -> %s for %s payment", from, to, method)
}

// Payment is the single payment record of a participant
type Payment struct {
	ID              int64         `json:"id"`
	ParticipantID   int64         `json:"participant_id"`
	TeamID          *int64        `json:"team_id,omitempty"`
	Amount          int64         `json:"amount"`
	Method          PaymentMethod `json:"method"`
	Status          PaymentStatus `json:"status"`
	TransactionID   *string       `json:"transaction_id,omitempty"`
	BankName        *string       `json:"bank_name,omitempty"`
	ReceiptPath     *string       `json:"receipt_path,omitempty"`
	UploadedAt      *time.Time    `json:"uploaded_at,omitempty"`
	AmountCollected *int64        `json:"amount_collected,omitempty"`
	CollectedAt     *time.Time    `json:"collected_at,omitempty"`
	Notes           *string       `json:"notes,omitempty"`
	VerifiedBy      *int64        `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time    `json:"verified_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Transition carries the fields written by a successful status change.
type Transition struct {
	PaymentID       int64
	From            PaymentStatus
	To              PaymentStatus
	VerifiedBy      int64
	VerifiedAt      time.Time
	AmountCollected *int64
	CollectedAt     *time.Time
	Notes           *string
}

type SelectMethodRequest struct {
	Method PaymentMethod `json:"method" binding:"required"`
}

// ReceiptDetails accompanies an uploaded receipt as form fields.
type ReceiptDetails struct {
	TransactionID string `form:"transaction_id"`
	BankName      string `form:"bank_name"`
}

// VerifyCashRequest records a cash collection. CollectedAt defaults to now.
type VerifyCashRequest struct {
	AmountCollected int64      `json:"amount_collected" binding:"required"`
	CollectedAt     *time.Time `json:"collected_at"`
	Notes           *string    `json:"notes"`
}

// Decision values for admin review of online payments.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

type VerifyOnlineRequest struct {
	Decision string  `json:"decision" binding:"required,oneof=approve reject"`
	Remarks  *string `json:"remarks"`
}

// PaymentDetail is a payment joined with its participant's identity.
type PaymentDetail struct {
	Payment
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	StudentID string `json:"student_id"`
	Track     Track  `json:"track"`
}

// FlagRequest lets the registration desk mark a payment for admin attention.
type FlagRequest struct {
	PaymentID int64  `json:"payment_id" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// Receipt is the proof attached to an online payment.
type Receipt struct {
	Path          string
	TransactionID *string
	BankName      *string
	UploadedAt    time.Time
}

// PaymentFilters narrows payment listings and exports
type PaymentFilters struct {
	Status        *PaymentStatus
	Method        *PaymentMethod
	VerifiedBy    *int64
	Email         *string
	StudentID     *string
	TransactionID *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}
