package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"conference_registration/internal/model"

	"github.com/jackc/pgx/v5"
)

// ParticipantRepository defines operations for participant profiles
type ParticipantRepository interface {
	Create(ctx context.Context, p *model.Participant) error
	FindByID(ctx context.Context, id int64) (*model.Participant, error)
	FindByUserID(ctx context.Context, userID int64) (*model.Participant, error)
	FindDetailByID(ctx context.Context, id int64) (*model.ParticipantDetail, error)
	FindDetailByEmail(ctx context.Context, email string) (*model.ParticipantDetail, error)
	Search(ctx context.Context, req model.SearchRequest) ([]model.ParticipantDetail, error)
	List(ctx context.Context, filters model.ParticipantFilters) ([]model.ParticipantDetail, error)
	SetTeam(ctx context.Context, participantID, teamID int64, isLead bool) error
}

type participantRepository struct {
	db DB
}

// NewParticipantRepository creates a new ParticipantRepository
func NewParticipantRepository(db DB) ParticipantRepository {
	return &participantRepository{db: db}
}

const participantColumns = `p.id, p.user_id, p.track, p.team_id, p.is_team_lead, p.student_id, p.cnic,
	p.tshirt_size, p.emergency_contact, p.skills, p.github_url, p.portfolio_url,
	p.dietary_requirements, p.registered_by, p.created_at, p.updated_at`

func participantDest(p *model.Participant) []any {
	return []any{&p.ID, &p.UserID, &p.Track, &p.TeamID, &p.IsTeamLead, &p.StudentID, &p.CNIC,
		&p.TShirtSize, &p.EmergencyContact, &p.Skills, &p.GithubURL, &p.PortfolioURL,
		&p.DietaryRequirements, &p.RegisteredBy, &p.CreatedAt, &p.UpdatedAt}
}

const participantDetailSelect = `SELECT ` + participantColumns + `,
	u.email, u.full_name, u.university, u.phone_number, t.name, pay.status, pay.method,
	EXISTS (SELECT 1 FROM checkins c WHERE c.participant_id = p.id)
	FROM participants p
	JOIN users u ON u.id = p.user_id
	LEFT JOIN teams t ON t.id = p.team_id
	LEFT JOIN payments pay ON pay.participant_id = p.id`

func scanParticipantDetail(row scanner) (*model.ParticipantDetail, error) {
	d := &model.ParticipantDetail{}
	dest := append(participantDest(&d.Participant),
		&d.Email, &d.FullName, &d.University, &d.PhoneNumber, &d.TeamName,
		&d.PaymentStatus, &d.PaymentMethod, &d.CheckedIn)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return d, nil
}

// Create inserts a participant profile
func (r *participantRepository) Create(ctx context.Context, p *model.Participant) error {
	sql := `INSERT INTO participants (user_id, track, team_id, is_team_lead, student_id, cnic, tshirt_size,
                emergency_contact, skills, github_url, portfolio_url, dietary_requirements, registered_by)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
            RETURNING id, created_at, updated_at`
	err := querier(ctx, r.db).QueryRow(ctx, sql,
		p.UserID, p.Track, p.TeamID, p.IsTeamLead, p.StudentID, p.CNIC, p.TShirtSize,
		p.EmergencyContact, p.Skills, p.GithubURL, p.PortfolioURL, p.DietaryRequirements, p.RegisteredBy,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", mapUniqueViolation(err))
	}
	return nil
}

func (r *participantRepository) findOne(ctx context.Context, where string, arg any) (*model.Participant, error) {
	p := &model.Participant{}
	sql := `SELECT ` + participantColumns + ` FROM participants p WHERE ` + where
	if err := querier(ctx, r.db).QueryRow(ctx, sql, arg).Scan(participantDest(p)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return p, nil
}

// FindByID retrieves a participant by ID
func (r *participantRepository) FindByID(ctx context.Context, id int64) (*model.Participant, error) {
	return r.findOne(ctx, "p.id = $1", id)
}

// FindByUserID retrieves the participant profile of a user
func (r *participantRepository) FindByUserID(ctx context.Context, userID int64) (*model.Participant, error) {
	return r.findOne(ctx, "p.user_id = $1", userID)
}

func (r *participantRepository) findDetail(ctx context.Context, where string, arg any) (*model.ParticipantDetail, error) {
	d, err := scanParticipantDetail(querier(ctx, r.db).QueryRow(ctx, participantDetailSelect+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find participant detail: %w", err)
	}
	return d, nil
}

// FindDetailByID retrieves a participant joined with user, team and payment
func (r *participantRepository) FindDetailByID(ctx context.Context, id int64) (*model.ParticipantDetail, error) {
	return r.findDetail(ctx, "p.id = $1", id)
}

// FindDetailByEmail retrieves a participant by the owning user's email
func (r *participantRepository) FindDetailByEmail(ctx context.Context, email string) (*model.ParticipantDetail, error) {
	return r.findDetail(ctx, "LOWER(u.email) = LOWER($1)", strings.TrimSpace(email))
}

// Search looks participants up by the first non-empty identifier in req
func (r *participantRepository) Search(ctx context.Context, req model.SearchRequest) ([]model.ParticipantDetail, error) {
	var where string
	var arg string
	switch {
	case req.Email != "":
		where, arg = "LOWER(u.email) = LOWER($1)", strings.TrimSpace(req.Email)
	case req.StudentID != "":
		where, arg = "p.student_id = $1", strings.TrimSpace(req.StudentID)
	case req.CNIC != "":
		where, arg = "p.cnic = $1", strings.TrimSpace(req.CNIC)
	case req.Phone != "":
		where, arg = "u.phone_number = $1", strings.TrimSpace(req.Phone)
	default:
		return nil, nil
	}
	return r.query(ctx, participantDetailSelect+" WHERE "+where+" ORDER BY p.id LIMIT 20", arg)
}

// List returns participants matching filters, newest first
func (r *participantRepository) List(ctx context.Context, filters model.ParticipantFilters) ([]model.ParticipantDetail, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(participantDetailSelect)
	queryBuilder.WriteString(" WHERE 1=1")
	args := []any{}
	argCount := 1

	if filters.Track != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND p.track = $%d", argCount))
		args = append(args, *filters.Track)
		argCount++
	}
	if filters.PaymentStatus != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND pay.status = $%d", argCount))
		args = append(args, *filters.PaymentStatus)
		argCount++
	}
	if filters.RegisteredBy != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND p.registered_by = $%d", argCount))
		args = append(args, *filters.RegisteredBy)
		argCount++
	}
	if filters.Search != nil && *filters.Search != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND (u.full_name ILIKE $%d OR u.email ILIKE $%d OR p.student_id ILIKE $%d)", argCount, argCount, argCount))
		args = append(args, "%"+*filters.Search+"%")
		argCount++
	}

	queryBuilder.WriteString(" ORDER BY p.created_at DESC, p.id DESC")
	if filters.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
		args = append(args, filters.Limit, filters.Offset)
	}
	return r.query(ctx, queryBuilder.String(), args...)
}

func (r *participantRepository) query(ctx context.Context, sql string, args ...any) ([]model.ParticipantDetail, error) {
	rows, err := querier(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var out []model.ParticipantDetail
	for rows.Next() {
		d, err := scanParticipantDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		out = append(out, *d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	return out, nil
}

// SetTeam assigns a participant to a team. It only succeeds for participants
// that are not yet in a team.
func (r *participantRepository) SetTeam(ctx context.Context, participantID, teamID int64, isLead bool) error {
	sql := `UPDATE participants SET team_id = $1, is_team_lead = $2 WHERE id = $3 AND team_id IS NULL`
	tag, err := querier(ctx, r.db).Exec(ctx, sql, teamID, isLead, participantID)
	if err != nil {
		return fmt.Errorf("failed to set participant team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}
