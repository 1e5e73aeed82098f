package repository

import (
	"context"
	"fmt"

	"conference_registration/internal/model"
)

// StatsRepository computes the aggregate views shown on dashboards
type StatsRepository interface {
	Public(ctx context.Context) (*model.PublicStats, error)
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
	Verifier(ctx context.Context, userID int64) (*model.VerifierStats, error)
	Desk(ctx context.Context, userID int64) (*model.DeskStats, error)
}

type statsRepository struct {
	db DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) countByTrack(ctx context.Context) (map[model.Track]int64, error) {
	rows, err := querier(ctx, r.db).Query(ctx, `SELECT track, COUNT(*) FROM participants GROUP BY track`)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants by track: %w", err)
	}
	defer rows.Close()

	byTrack := make(map[model.Track]int64, len(model.Tracks))
	for _, t := range model.Tracks {
		byTrack[t] = 0
	}
	for rows.Next() {
		var track model.Track
		var n int64
		if err := rows.Scan(&track, &n); err != nil {
			return nil, fmt.Errorf("failed to scan track count: %w", err)
		}
		byTrack[track] = n
	}
	return byTrack, rows.Err()
}

// Public returns participant and team totals
func (r *statsRepository) Public(ctx context.Context) (*model.PublicStats, error) {
	stats := &model.PublicStats{}
	sql := `SELECT (SELECT COUNT(*) FROM participants), (SELECT COUNT(*) FROM teams)`
	if err := querier(ctx, r.db).QueryRow(ctx, sql).Scan(&stats.TotalParticipants, &stats.TotalTeams); err != nil {
		return nil, fmt.Errorf("failed to get public stats: %w", err)
	}
	byTrack, err := r.countByTrack(ctx)
	if err != nil {
		return nil, err
	}
	stats.ByTrack = byTrack
	return stats, nil
}

// Dashboard returns the admin overview
func (r *statsRepository) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{}
	sql := `SELECT
                (SELECT COUNT(*) FROM participants),
                (SELECT COUNT(*) FROM teams),
                (SELECT COUNT(DISTINCT participant_id) FROM checkins),
                (SELECT COALESCE(SUM(COALESCE(amount_collected, amount)), 0) FROM payments WHERE status = 'verified')`
	if err := querier(ctx, r.db).QueryRow(ctx, sql).Scan(
		&stats.TotalParticipants, &stats.TotalTeams, &stats.CheckedIn, &stats.RevenueVerified,
	); err != nil {
		return nil, fmt.Errorf("failed to get dashboard totals: %w", err)
	}

	byTrack, err := r.countByTrack(ctx)
	if err != nil {
		return nil, err
	}
	stats.ByTrack = byTrack

	rows, err := querier(ctx, r.db).Query(ctx, `SELECT status, COUNT(*) FROM payments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments by status: %w", err)
	}
	defer rows.Close()

	stats.ByPaymentStatus = map[model.PaymentStatus]int64{
		model.PaymentStatusPending:     0,
		model.PaymentStatusPendingCash: 0,
		model.PaymentStatusVerified:    0,
		model.PaymentStatusRejected:    0,
	}
	for rows.Next() {
		var status model.PaymentStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.ByPaymentStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	return stats, nil
}

// Verifier summarizes what one ambassador has collected
func (r *statsRepository) Verifier(ctx context.Context, userID int64) (*model.VerifierStats, error) {
	stats := &model.VerifierStats{}
	sql := `SELECT
                COUNT(*) FILTER (WHERE verified_by = $1 AND method = 'cash' AND status = 'verified'),
                COALESCE(SUM(amount_collected) FILTER (WHERE verified_by = $1 AND method = 'cash' AND status = 'verified'), 0),
                COUNT(*) FILTER (WHERE status = 'pending_cash')
            FROM payments`
	if err := querier(ctx, r.db).QueryRow(ctx, sql, userID).Scan(
		&stats.VerifiedCount, &stats.TotalCollected, &stats.PendingCash,
	); err != nil {
		return nil, fmt.Errorf("failed to get verifier stats: %w", err)
	}
	return stats, nil
}

// Desk summarizes registrations entered by one registration team member
func (r *statsRepository) Desk(ctx context.Context, userID int64) (*model.DeskStats, error) {
	sql := `SELECT pay.status, COUNT(*)
            FROM participants p
            JOIN payments pay ON pay.participant_id = p.id
            WHERE p.registered_by = $1
            GROUP BY pay.status`
	rows, err := querier(ctx, r.db).Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get desk stats: %w", err)
	}
	defer rows.Close()

	stats := &model.DeskStats{ByStatus: make(map[model.PaymentStatus]int64)}
	for rows.Next() {
		var status model.PaymentStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan desk stats row: %w", err)
		}
		stats.ByStatus[status] = n
		stats.Registered += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating desk stats: %w", err)
	}
	return stats, nil
}
