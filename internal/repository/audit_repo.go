package repository

import (
	"context"
	"fmt"
	"strings"

	"conference_registration/internal/model"
)

// AuditRepository appends and lists audit entries
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filters model.AuditFilters) ([]model.AuditLog, error)
}

type auditRepository struct {
	db DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db DB) AuditRepository {
	return &auditRepository{db: db}
}

// Create appends an entry. Call it with the transaction ctx of the change it
// describes so both commit together.
func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	sql := `INSERT INTO audit_logs (user_id, action, entity, record_id, details)
            VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := querier(ctx, r.db).QueryRow(ctx, sql, entry.UserID, entry.Action, entry.Entity, entry.RecordID, entry.Details).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// List returns entries newest first
func (r *auditRepository) List(ctx context.Context, filters model.AuditFilters) ([]model.AuditLog, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, user_id, action, entity, record_id, details, created_at FROM audit_logs`)
	args := []any{}
	argCount := 1
	var conditions []string

	if filters.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argCount))
		args = append(args, *filters.UserID)
		argCount++
	}
	if filters.Action != nil && *filters.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argCount))
		args = append(args, *filters.Action)
		argCount++
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	if filters.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
		args = append(args, filters.Limit, filters.Offset)
	}

	rows, err := querier(ctx, r.db).Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditLog
	for rows.Next() {
		var e model.AuditLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Entity, &e.RecordID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return entries, nil
}
