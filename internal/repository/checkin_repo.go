package repository

import (
	"context"
	"fmt"

	"conference_registration/internal/model"
)

// CheckInRepository records event entries
type CheckInRepository interface {
	Create(ctx context.Context, c *model.CheckIn) error
	Exists(ctx context.Context, participantID int64, eventType string) (bool, error)
}

type checkInRepository struct {
	db DB
}

// NewCheckInRepository creates a new CheckInRepository
func NewCheckInRepository(db DB) CheckInRepository {
	return &checkInRepository{db: db}
}

// Create inserts a check-in. A second check-in for the same event is a conflict.
func (r *checkInRepository) Create(ctx context.Context, c *model.CheckIn) error {
	sql := `INSERT INTO checkins (participant_id, event_type, checked_by)
            VALUES ($1, $2, $3) RETURNING id, checked_in_at`
	err := querier(ctx, r.db).QueryRow(ctx, sql, c.ParticipantID, c.EventType, c.CheckedBy).Scan(&c.ID, &c.CheckedInAt)
	if err != nil {
		return fmt.Errorf("failed to create check-in: %w", mapUniqueViolation(err))
	}
	return nil
}

// Exists reports whether the participant already checked in for eventType
func (r *checkInRepository) Exists(ctx context.Context, participantID int64, eventType string) (bool, error) {
	var exists bool
	sql := `SELECT EXISTS (SELECT 1 FROM checkins WHERE participant_id = $1 AND event_type = $2)`
	if err := querier(ctx, r.db).QueryRow(ctx, sql, participantID, eventType).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing check-in: %w", err)
	}
	return exists, nil
}
