package service

import (
	"context"
	"fmt"
	"strings"

	"conference_registration/internal/apperrors"
	"conference_registration/internal/logger"
	"conference_registration/internal/model"
	"conference_registration/internal/notify"
	"conference_registration/internal/repository"
	"conference_registration/internal/utils"
)

// RegistrationService handles signup, both self-service and at the desk
type RegistrationService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.RegisterResponse, error)
	RegisterManual(ctx context.Context, principal model.Principal, req model.ManualRegisterRequest) (*model.RegisterResponse, error)
	CheckStatus(ctx context.Context, email string) (*model.StatusResponse, error)
	Tracks() []model.Track
	Universities() []string
	PublicStats(ctx context.Context) (*model.PublicStats, error)
}

type registrationService struct {
	users        repository.UserRepository
	participants repository.ParticipantRepository
	payments     repository.PaymentRepository
	stats        repository.StatsRepository
	teams        *teamService
	tx           repository.Transactor
	notifier     Notifier
	settings     Settings
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	users repository.UserRepository,
	participants repository.ParticipantRepository,
	teams repository.TeamRepository,
	payments repository.PaymentRepository,
	stats repository.StatsRepository,
	tx repository.Transactor,
	notifier Notifier,
	settings Settings,
) RegistrationService {
	return &registrationService{
		users:        users,
		participants: participants,
		payments:     payments,
		stats:        stats,
		teams:        &teamService{teams: teams, participants: participants, tx: tx, settings: settings},
		tx:           tx,
		notifier:     notifier,
		settings:     settings,
	}
}

func validateRegistration(req *model.RegisterRequest) error {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.CNIC = strings.TrimSpace(req.CNIC)

	switch {
	case !utils.ValidPassword(req.Password):
		return apperrors.Validation("password must be between 8 and 72 characters")
	case !req.Track.Valid():
		return apperrors.Validation("unknown track %q", req.Track)
	case !req.TShirtSize.Valid():
		return apperrors.Validation("unknown t-shirt size %q", req.TShirtSize)
	case !utils.ValidStudentID(req.StudentID):
		return apperrors.Validation("student id must be at least 4 letters or digits")
	case !utils.ValidCNIC(req.CNIC):
		return apperrors.Validation("CNIC must have the format 12345-1234567-1")
	case req.GithubURL != nil && !utils.ValidGithubURL(*req.GithubURL):
		return apperrors.Validation("github url must look like https://github.com/username")
	case req.TeamName != nil && req.TeamCode != nil && *req.TeamName != "" && *req.TeamCode != "":
		return apperrors.Validation("provide either team_name to create a team or team_code to join one, not both")
	}
	return nil
}

// register runs the shared signup steps inside one transaction.
func (s *registrationService) register(ctx context.Context, req model.RegisterRequest, registeredBy *int64, method *model.PaymentMethod) (*model.RegisterResponse, error) {
	if err := validateRegistration(&req); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	roles := model.NewRoleSet(model.RoleParticipant)
	if s.settings.InitialAdminEmail != "" && strings.EqualFold(req.Email, s.settings.InitialAdminEmail) {
		roles[model.RoleAdmin] = struct{}{}
		logger.Info().Str("email", req.Email).Msg("registering initial admin account")
	}

	resp := &model.RegisterResponse{}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		user := &model.User{
			Email:        req.Email,
			PasswordHash: hash,
			FullName:     strings.TrimSpace(req.FullName),
			University:   req.University,
			PhoneNumber:  req.PhoneNumber,
			Roles:        roles,
			IsActive:     true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}

		p := &model.Participant{
			UserID:              user.ID,
			Track:               req.Track,
			StudentID:           req.StudentID,
			CNIC:                req.CNIC,
			TShirtSize:          req.TShirtSize,
			EmergencyContact:    req.EmergencyContact,
			Skills:              req.Skills,
			GithubURL:           req.GithubURL,
			PortfolioURL:        req.PortfolioURL,
			DietaryRequirements: req.DietaryRequirements,
			RegisteredBy:        registeredBy,
		}
		if err := s.participants.Create(ctx, p); err != nil {
			return err
		}

		switch {
		case req.TeamName != nil && strings.TrimSpace(*req.TeamName) != "":
			team, err := s.teams.createTeam(ctx, *req.TeamName, p)
			if err != nil {
				return err
			}
			resp.Team = team
		case req.TeamCode != nil && strings.TrimSpace(*req.TeamCode) != "":
			team, err := s.teams.joinTeam(ctx, *req.TeamCode, p)
			if err != nil {
				return err
			}
			resp.Team = team
		}

		if method != nil {
			pay := &model.Payment{
				ParticipantID: p.ID,
				TeamID:        p.TeamID,
				Amount:        s.settings.RegistrationFee,
				Method:        *method,
				Status:        model.InitialStatus(*method),
			}
			if err := s.payments.Create(ctx, pay); err != nil {
				return err
			}
			resp.Payment = pay
		}

		resp.User = user
		resp.Participant = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Register creates the user, the participant profile and optionally a team.
// The payment is created later, when the participant selects a method.
func (s *registrationService) Register(ctx context.Context, req model.RegisterRequest) (*model.RegisterResponse, error) {
	resp, err := s.register(ctx, req, nil, nil)
	if err != nil {
		return nil, err
	}
	logger.Info().Int64("user_id", resp.User.ID).Int64("participant_id", resp.Participant.ID).Str("track", string(resp.Participant.Track)).Msg("participant registered")
	return resp, nil
}

// RegisterManual is used at the registration desk. The payment method is
// chosen in the same call and the payment starts in its pending state.
func (s *registrationService) RegisterManual(ctx context.Context, principal model.Principal, req model.ManualRegisterRequest) (*model.RegisterResponse, error) {
	if err := principal.Authorize(model.CapRegisterManual); err != nil {
		return nil, err
	}
	if !req.PaymentMethod.Valid() {
		return nil, apperrors.Validation("payment method must be online or cash")
	}
	method := req.PaymentMethod
	resp, err := s.register(ctx, req.RegisterRequest, &principal.UserID, &method)
	if err != nil {
		return nil, err
	}

	logger.Info().Int64("participant_id", resp.Participant.ID).Int64("registered_by", principal.UserID).Msg("manual registration")
	s.notifier.Notify(notify.Event{
		Kind:          notify.KindRegistrationPending,
		ParticipantID: resp.Participant.ID,
		PaymentID:     resp.Payment.ID,
		Email:         resp.User.Email,
		FullName:      resp.User.FullName,
		Track:         resp.Participant.Track,
		Method:        resp.Payment.Method,
	})
	return resp, nil
}

// CheckStatus answers the public "where is my registration" query
func (s *registrationService) CheckStatus(ctx context.Context, email string) (*model.StatusResponse, error) {
	d, err := s.participants.FindDetailByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up registration: %w", err)
	}
	if d == nil {
		return nil, apperrors.NotFound("no registration found for this email")
	}
	return &model.StatusResponse{
		FullName:      d.FullName,
		Track:         d.Track,
		TeamName:      d.TeamName,
		PaymentStatus: d.PaymentStatus,
		PaymentMethod: d.PaymentMethod,
		CheckedIn:     d.CheckedIn,
	}, nil
}

func (s *registrationService) Tracks() []model.Track {
	return model.Tracks
}

// Universities lists the institutions offered on the registration form
func (s *registrationService) Universities() []string {
	return s.settings.Universities
}

func (s *registrationService) PublicStats(ctx context.Context) (*model.PublicStats, error) {
	stats, err := s.stats.Public(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}
