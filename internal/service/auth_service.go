package service

import (
	"context"
	"fmt"

	"conference_registration/internal/apperrors"
	"conference_registration/internal/logger"
	"conference_registration/internal/model"
	"conference_registration/internal/repository"
	"conference_registration/internal/utils"
)

var errInvalidCredentials = apperrors.Authentication("invalid email or password")

// AuthService provides authentication related services
type AuthService interface {
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	Me(ctx context.Context, principal model.Principal) (*model.User, *model.Participant, error)
}

type authService struct {
	userRepo        repository.UserRepository
	participantRepo repository.ParticipantRepository
	jwtUtil         *utils.JWTUtil
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, participantRepo repository.ParticipantRepository, jwtUtil *utils.JWTUtil) AuthService {
	return &authService{
		userRepo:        userRepo,
		participantRepo: participantRepo,
		jwtUtil:         jwtUtil,
	}
}

// Login authenticates a user and returns a JWT carrying their role set
func (s *authService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("error finding user by email: %w", err)
	}
	if user == nil || !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, "", errInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", apperrors.Authentication("account is disabled")
	}

	token, err := s.jwtUtil.GenerateToken(user.ID, user.Roles.Strings())
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	logger.Info().Int64("user_id", user.ID).Strs("roles", user.Roles.Strings()).Msg("user logged in")
	return user, token, nil
}

// Me returns the caller's account and, when they have one, participant profile
func (s *authService) Me(ctx context.Context, principal model.Principal) (*model.User, *model.Participant, error) {
	user, err := s.userRepo.FindByID(ctx, principal.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, apperrors.Authentication("account no longer exists")
	}
	participant, err := s.participantRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find participant profile: %w", err)
	}
	return user, participant, nil
}
