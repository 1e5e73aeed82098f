package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"conference_registration/internal/model"

	"github.com/jackc/pgx/v5"
)

// PaymentRepository defines operations for the payment ledger
type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	FindByID(ctx context.Context, id int64) (*model.Payment, error)
	FindByParticipantID(ctx context.Context, participantID int64) (*model.Payment, error)
	// AttachReceipt stores receipt details on a pending online payment and
	// returns the receipt it replaced, if any. It returns ErrStaleState when
	// the payment is no longer pending.
	AttachReceipt(ctx context.Context, id int64, receipt model.Receipt) (*string, error)
	// Transition applies a status change conditionally on the current status.
	// It returns ErrStaleState when another caller changed the status first.
	Transition(ctx context.Context, t model.Transition) error
	AppendNote(ctx context.Context, id int64, note string) error
	List(ctx context.Context, filters model.PaymentFilters) ([]model.PaymentDetail, error)
}

type paymentRepository struct {
	db DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `pay.id, pay.participant_id, pay.team_id, pay.amount, pay.method, pay.status,
	pay.transaction_id, pay.bank_name, pay.receipt_path, pay.uploaded_at, pay.amount_collected,
	pay.collected_at, pay.notes, pay.verified_by, pay.verified_at, pay.created_at, pay.updated_at`

func paymentDest(p *model.Payment) []any {
	return []any{&p.ID, &p.ParticipantID, &p.TeamID, &p.Amount, &p.Method, &p.Status,
		&p.TransactionID, &p.BankName, &p.ReceiptPath, &p.UploadedAt, &p.AmountCollected,
		&p.CollectedAt, &p.Notes, &p.VerifiedBy, &p.VerifiedAt, &p.CreatedAt, &p.UpdatedAt}
}

// Create inserts a payment in its initial state
func (r *paymentRepository) Create(ctx context.Context, p *model.Payment) error {
	sql := `INSERT INTO payments (participant_id, team_id, amount, method, status)
            VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	err := querier(ctx, r.db).QueryRow(ctx, sql, p.ParticipantID, p.TeamID, p.Amount, p.Method, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", mapUniqueViolation(err))
	}
	return nil
}

func (r *paymentRepository) findOne(ctx context.Context, where string, arg any) (*model.Payment, error) {
	p := &model.Payment{}
	sql := `SELECT ` + paymentColumns + ` FROM payments pay WHERE ` + where
	if err := querier(ctx, r.db).QueryRow(ctx, sql, arg).Scan(paymentDest(p)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return p, nil
}

// FindByID retrieves a payment by its ID
func (r *paymentRepository) FindByID(ctx context.Context, id int64) (*model.Payment, error) {
	return r.findOne(ctx, "pay.id = $1", id)
}

// FindByParticipantID retrieves the payment owned by a participant
func (r *paymentRepository) FindByParticipantID(ctx context.Context, participantID int64) (*model.Payment, error) {
	return r.findOne(ctx, "pay.participant_id = $1", participantID)
}

// AttachReceipt replaces the receipt of a pending online payment. The row is
// locked before the previous path is read, so concurrent uploads each see the
// path the other one wrote.
func (r *paymentRepository) AttachReceipt(ctx context.Context, id int64, receipt model.Receipt) (*string, error) {
	sql := `UPDATE payments pay
            SET receipt_path = $1, transaction_id = $2, bank_name = $3, uploaded_at = $4
            FROM (SELECT id, receipt_path FROM payments WHERE id = $5 FOR UPDATE) prev
            WHERE pay.id = prev.id AND pay.method = 'online' AND pay.status = 'pending'
            RETURNING prev.receipt_path`
	var previous *string
	err := querier(ctx, r.db).QueryRow(ctx, sql, receipt.Path, receipt.TransactionID, receipt.BankName, receipt.UploadedAt, id).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaleState
		}
		return nil, fmt.Errorf("failed to attach receipt: %w", err)
	}
	return previous, nil
}

// Transition moves a payment out of t.From. The WHERE clause on status makes
// the update the arbiter when two verifiers race.
func (r *paymentRepository) Transition(ctx context.Context, t model.Transition) error {
	sql := `UPDATE payments
            SET status = $1, verified_by = $2, verified_at = $3,
                amount_collected = COALESCE($4, amount_collected),
                collected_at = COALESCE($5, collected_at),
                notes = COALESCE($6, notes)
            WHERE id = $7 AND status = $8`
	tag, err := querier(ctx, r.db).Exec(ctx, sql,
		t.To, t.VerifiedBy, t.VerifiedAt, t.AmountCollected, t.CollectedAt, t.Notes, t.PaymentID, t.From)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

// AppendNote adds a line to the payment's notes
func (r *paymentRepository) AppendNote(ctx context.Context, id int64, note string) error {
	sql := `UPDATE payments
            SET notes = CASE WHEN notes IS NULL OR notes = '' THEN $1 ELSE notes || E'\n' || $1 END
            WHERE id = $2`
	tag, err := querier(ctx, r.db).Exec(ctx, sql, note, id)
	if err != nil {
		return fmt.Errorf("failed to append payment note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// List returns payments joined with participant identity, newest first
func (r *paymentRepository) List(ctx context.Context, filters model.PaymentFilters) ([]model.PaymentDetail, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + paymentColumns + `, u.full_name, u.email, p.student_id, p.track
                               FROM payments pay
                               JOIN participants p ON p.id = pay.participant_id
                               JOIN users u ON u.id = p.user_id`)

	args := []any{}
	argCount := 1
	var conditions []string

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("pay.status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.Method != nil {
		conditions = append(conditions, fmt.Sprintf("pay.method = $%d", argCount))
		args = append(args, *filters.Method)
		argCount++
	}
	if filters.VerifiedBy != nil {
		conditions = append(conditions, fmt.Sprintf("pay.verified_by = $%d", argCount))
		args = append(args, *filters.VerifiedBy)
		argCount++
	}
	if filters.Email != nil {
		conditions = append(conditions, fmt.Sprintf("u.email = LOWER($%d)", argCount))
		args = append(args, *filters.Email)
		argCount++
	}
	if filters.StudentID != nil {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", argCount))
		args = append(args, *filters.StudentID)
		argCount++
	}
	if filters.TransactionID != nil {
		conditions = append(conditions, fmt.Sprintf("pay.transaction_id = $%d", argCount))
		args = append(args, *filters.TransactionID)
		argCount++
	}
	if filters.CreatedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("pay.created_at >= $%d", argCount))
		args = append(args, *filters.CreatedFrom)
		argCount++
	}
	if filters.CreatedTo != nil {
		conditions = append(conditions, fmt.Sprintf("pay.created_at <= $%d", argCount))
		args = append(args, *filters.CreatedTo)
		argCount++
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY pay.created_at DESC, pay.id DESC")
	if filters.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
		args = append(args, filters.Limit, filters.Offset)
	}

	rows, err := querier(ctx, r.db).Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []model.PaymentDetail
	for rows.Next() {
		var d model.PaymentDetail
		dest := append(paymentDest(&d.Payment), &d.FullName, &d.Email, &d.StudentID, &d.Track)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment rows: %w", err)
	}
	return payments, nil
}
