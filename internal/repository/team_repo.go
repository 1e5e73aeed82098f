package repository

import (
	"context"
	"errors"
	"fmt"

	"conference_registration/internal/model"

	"github.com/jackc/pgx/v5"
)

// ErrTeamCodeTaken is returned by Create when the generated code collides.
var ErrTeamCodeTaken = errors.New("team code already in use")

// TeamRepository defines operations for teams
type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	FindByID(ctx context.Context, id int64) (*model.Team, error)
	FindByCode(ctx context.Context, code string) (*model.Team, error)
	// LockByCode loads a team and holds its row lock until the surrounding
	// transaction ends. It must be called inside Transactor.InTx.
	LockByCode(ctx context.Context, code string) (*model.Team, error)
	MemberStatuses(ctx context.Context, teamID int64) ([]model.TeamMemberStatus, error)
}

type teamRepository struct {
	db DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db DB) TeamRepository {
	return &teamRepository{db: db}
}

// Create inserts a team. A code collision is absorbed by ON CONFLICT so the
// surrounding transaction stays usable and the caller can retry with a new
// code.
func (r *teamRepository) Create(ctx context.Context, team *model.Team) error {
	sql := `INSERT INTO teams (name, code, track) VALUES ($1, $2, $3)
            ON CONFLICT (code) DO NOTHING
            RETURNING id, created_at`
	err := querier(ctx, r.db).QueryRow(ctx, sql, team.Name, team.Code, team.Track).Scan(&team.ID, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTeamCodeTaken
		}
		return fmt.Errorf("failed to create team: %w", mapUniqueViolation(err))
	}
	return nil
}

const teamSelect = `SELECT t.id, t.name, t.code, t.track, t.created_at,
	(SELECT COUNT(*) FROM participants p WHERE p.team_id = t.id)
	FROM teams t`

func (r *teamRepository) findOne(ctx context.Context, sql string, arg any) (*model.Team, error) {
	t := &model.Team{}
	err := querier(ctx, r.db).QueryRow(ctx, sql, arg).Scan(&t.ID, &t.Name, &t.Code, &t.Track, &t.CreatedAt, &t.MemberCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return t, nil
}

// FindByID retrieves a team with its member count
func (r *teamRepository) FindByID(ctx context.Context, id int64) (*model.Team, error) {
	return r.findOne(ctx, teamSelect+` WHERE t.id = $1`, id)
}

// FindByCode retrieves a team by join code
func (r *teamRepository) FindByCode(ctx context.Context, code string) (*model.Team, error) {
	return r.findOne(ctx, teamSelect+` WHERE t.code = $1`, code)
}

// LockByCode takes FOR UPDATE on the team row so concurrent joins serialize.
// Members are counted in a second statement: under READ COMMITTED its
// snapshot is taken after the lock is granted, so it sees joins committed by
// the previous lock holder.
func (r *teamRepository) LockByCode(ctx context.Context, code string) (*model.Team, error) {
	q := querier(ctx, r.db)
	t := &model.Team{}
	sql := `SELECT id, name, code, track, created_at FROM teams WHERE code = $1 FOR UPDATE`
	if err := q.QueryRow(ctx, sql, code).Scan(&t.ID, &t.Name, &t.Code, &t.Track, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock team: %w", err)
	}
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM participants WHERE team_id = $1`, t.ID).Scan(&t.MemberCount); err != nil {
		return nil, fmt.Errorf("failed to count team members: %w", err)
	}
	return t, nil
}

// MemberStatuses lists members with their payment status, lead first
func (r *teamRepository) MemberStatuses(ctx context.Context, teamID int64) ([]model.TeamMemberStatus, error) {
	sql := `SELECT p.id, u.full_name, p.is_team_lead, pay.status
            FROM participants p
            JOIN users u ON u.id = p.user_id
            LEFT JOIN payments pay ON pay.participant_id = p.id
            WHERE p.team_id = $1
            ORDER BY p.is_team_lead DESC, p.id`
	rows, err := querier(ctx, r.db).Query(ctx, sql, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query team members: %w", err)
	}
	defer rows.Close()

	var members []model.TeamMemberStatus
	for rows.Next() {
		var m model.TeamMemberStatus
		if err := rows.Scan(&m.ParticipantID, &m.FullName, &m.IsTeamLead, &m.PaymentStatus); err != nil {
			return nil, fmt.Errorf("failed to scan team member row: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team member rows: %w", err)
	}
	return members, nil
}
