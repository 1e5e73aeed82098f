package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"conference_registration/internal/apperrors"
	"conference_registration/internal/logger"
	"conference_registration/internal/model"
	"conference_registration/internal/repository"
	"conference_registration/internal/utils"
)

const maxCodeAttempts = 5

// TeamService forms teams and reports their aggregate payment status
type TeamService interface {
	Create(ctx context.Context, principal model.Principal, name string) (*model.Team, error)
	Join(ctx context.Context, principal model.Principal, code string) (*model.Team, error)
	PaymentStatus(ctx context.Context, principal model.Principal, teamID int64) (*model.TeamPaymentStatus, error)
}

type teamService struct {
	teams        repository.TeamRepository
	participants repository.ParticipantRepository
	tx           repository.Transactor
	settings     Settings
}

// NewTeamService creates a new TeamService
func NewTeamService(teams repository.TeamRepository, participants repository.ParticipantRepository, tx repository.Transactor, settings Settings) TeamService {
	return &teamService{teams: teams, participants: participants, tx: tx, settings: settings}
}

func (s *teamService) currentParticipant(ctx context.Context, principal model.Principal) (*model.Participant, error) {
	p, err := s.participants.FindByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find participant profile: %w", err)
	}
	if p == nil {
		return nil, apperrors.NotFound("participant profile not found")
	}
	return p, nil
}

// Create registers a new team with the caller as lead
func (s *teamService) Create(ctx context.Context, principal model.Principal, name string) (*model.Team, error) {
	if err := principal.Authorize(model.CapParticipate); err != nil {
		return nil, err
	}
	p, err := s.currentParticipant(ctx, principal)
	if err != nil {
		return nil, err
	}
	if p.TeamID != nil {
		return nil, apperrors.Conflict("you are already in a team")
	}

	var team *model.Team
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		team, err = s.createTeam(ctx, name, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// Join adds the caller to the team identified by code
func (s *teamService) Join(ctx context.Context, principal model.Principal, code string) (*model.Team, error) {
	if err := principal.Authorize(model.CapParticipate); err != nil {
		return nil, err
	}
	p, err := s.currentParticipant(ctx, principal)
	if err != nil {
		return nil, err
	}

	var team *model.Team
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		team, err = s.joinTeam(ctx, code, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// PaymentStatus is visible to team members and to anyone who can view reports
func (s *teamService) PaymentStatus(ctx context.Context, principal model.Principal, teamID int64) (*model.TeamPaymentStatus, error) {
	team, err := s.teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	if team == nil {
		return nil, apperrors.NotFound("team not found")
	}

	if !principal.Roles.Can(model.CapViewReports) {
		p, err := s.participants.FindByUserID(ctx, principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find participant profile: %w", err)
		}
		if p == nil || p.TeamID == nil || *p.TeamID != teamID {
			return nil, apperrors.Permission("not a member of this team")
		}
	}

	members, err := s.teams.MemberStatuses(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team members: %w", err)
	}
	team.MemberCount = len(members)
	return &model.TeamPaymentStatus{
		Team:     team,
		Members:  members,
		Complete: model.IsPaymentComplete(members, s.settings.TeamMinSize),
	}, nil
}

// createTeam must run inside a transaction. The lead's track becomes the
// team's track.
func (s *teamService) createTeam(ctx context.Context, name string, lead *model.Participant) (*model.Team, error) {
	name = strings.TrimSpace(name)
	if !utils.ValidTeamName(name) {
		return nil, apperrors.Validation("team name must be 3-50 letters, digits, spaces, '-', '_' or '.'")
	}

	team := &model.Team{Name: name, Track: lead.Track}
	for attempt := 1; ; attempt++ {
		code, err := utils.GenerateTeamCode()
		if err != nil {
			return nil, err
		}
		team.Code = code
		err = s.teams.Create(ctx, team)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrTeamCodeTaken) || attempt >= maxCodeAttempts {
			return nil, err
		}
	}

	if err := s.participants.SetTeam(ctx, lead.ID, team.ID, true); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.Conflict("you are already in a team")
		}
		return nil, err
	}
	lead.TeamID = &team.ID
	lead.IsTeamLead = true
	team.MemberCount = 1
	logger.Info().Int64("team_id", team.ID).Str("code", team.Code).Int64("lead_id", lead.ID).Msg("team created")
	return team, nil
}

// joinTeam must run inside a transaction: the team row stays locked until it
// ends, which serializes the capacity check across concurrent joins.
func (s *teamService) joinTeam(ctx context.Context, code string, p *model.Participant) (*model.Team, error) {
	code = utils.NormalizeTeamCode(code)
	if code == "" {
		return nil, apperrors.Validation("team code is required")
	}
	if p.TeamID != nil {
		return nil, apperrors.Conflict("you are already in a team")
	}

	team, err := s.teams.LockByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, apperrors.NotFound("team with code %s not found", code)
	}
	if team.Track != p.Track {
		return nil, apperrors.Validation("team %s is registered for the %s track", team.Name, team.Track)
	}
	if team.MemberCount >= s.settings.TeamMaxSize {
		return nil, apperrors.Conflict("team %s is full (maximum %d members)", team.Name, s.settings.TeamMaxSize)
	}

	if err := s.participants.SetTeam(ctx, p.ID, team.ID, false); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.Conflict("you are already in a team")
		}
		return nil, err
	}
	p.TeamID = &team.ID
	team.MemberCount++
	logger.Info().Int64("team_id", team.ID).Int64("participant_id", p.ID).Int("members", team.MemberCount).Msg("participant joined team")
	return team, nil
}
