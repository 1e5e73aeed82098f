package service

import (
	"context"
	"fmt"
	"strings"

	"conference_registration/internal/apperrors"
	"conference_registration/internal/logger"
	"conference_registration/internal/model"
	"conference_registration/internal/repository"
	"conference_registration/internal/utils"
)

// AdminService covers staff accounts, dashboards and the audit trail
type AdminService interface {
	Dashboard(ctx context.Context, principal model.Principal) (*model.DashboardStats, error)
	DeskDashboard(ctx context.Context, principal model.Principal) (*model.DeskStats, error)
	VerifierStats(ctx context.Context, principal model.Principal) (*model.VerifierStats, error)
	ListUsers(ctx context.Context, principal model.Principal, limit, offset int) ([]model.User, error)
	CreateStaffUser(ctx context.Context, principal model.Principal, req model.CreateStaffUserRequest) (*model.User, error)
	UpdateRoles(ctx context.Context, principal model.Principal, userID int64, req model.UpdateRolesRequest) (*model.User, error)
	AuditLog(ctx context.Context, principal model.Principal, filters model.AuditFilters) ([]model.AuditLog, error)
	MyActions(ctx context.Context, principal model.Principal, limit, offset int) ([]model.AuditLog, error)
}

type adminService struct {
	users repository.UserRepository
	stats repository.StatsRepository
	audit repository.AuditRepository
	tx    repository.Transactor
}

// NewAdminService creates a new AdminService
func NewAdminService(users repository.UserRepository, stats repository.StatsRepository, audit repository.AuditRepository, tx repository.Transactor) AdminService {
	return &adminService{users: users, stats: stats, audit: audit, tx: tx}
}

func (s *adminService) Dashboard(ctx context.Context, principal model.Principal) (*model.DashboardStats, error) {
	if err := principal.Authorize(model.CapViewReports); err != nil {
		return nil, err
	}
	stats, err := s.stats.Dashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}
	return stats, nil
}

// DeskDashboard summarizes the caller's manual registrations
func (s *adminService) DeskDashboard(ctx context.Context, principal model.Principal) (*model.DeskStats, error) {
	if err := principal.Authorize(model.CapRegisterManual); err != nil {
		return nil, err
	}
	stats, err := s.stats.Desk(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load desk stats: %w", err)
	}
	return stats, nil
}

// VerifierStats summarizes the caller's cash collections
func (s *adminService) VerifierStats(ctx context.Context, principal model.Principal) (*model.VerifierStats, error) {
	if err := principal.Authorize(model.CapCollectCash); err != nil {
		return nil, err
	}
	stats, err := s.stats.Verifier(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load verifier stats: %w", err)
	}
	return stats, nil
}

func (s *adminService) ListUsers(ctx context.Context, principal model.Principal, limit, offset int) ([]model.User, error) {
	if err := principal.Authorize(model.CapManageUsers); err != nil {
		return nil, err
	}
	limit, offset = Page(limit, offset)
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateStaffUser creates an account with the requested roles and no
// participant profile
func (s *adminService) CreateStaffUser(ctx context.Context, principal model.Principal, req model.CreateStaffUserRequest) (*model.User, error) {
	if err := principal.Authorize(model.CapManageUsers); err != nil {
		return nil, err
	}
	roles, err := model.ParseRoleSet(req.Roles)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, apperrors.Validation("at least one role is required")
	}
	if !utils.ValidPassword(req.Password) {
		return nil, apperrors.Validation("password must be between 8 and 72 characters")
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Roles:        roles,
		IsActive:     true,
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		return writeAudit(ctx, s.audit, principal.UserID, model.AuditUserCreated, "user", user.ID, map[string]any{
			"roles": roles.Strings(),
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Int64("user_id", user.ID).Strs("roles", roles.Strings()).Int64("created_by", principal.UserID).Msg("staff user created")
	return user, nil
}

// UpdateRoles replaces a user's role set. Admins cannot drop their own admin
// role, so the system always keeps one.
func (s *adminService) UpdateRoles(ctx context.Context, principal model.Principal, userID int64, req model.UpdateRolesRequest) (*model.User, error) {
	if err := principal.Authorize(model.CapManageUsers); err != nil {
		return nil, err
	}
	roles, err := model.ParseRoleSet(req.Roles)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, apperrors.Validation("at least one role is required")
	}
	if userID == principal.UserID && !roles.Has(model.RoleAdmin) {
		return nil, apperrors.Validation("you cannot remove your own admin role")
	}

	var user *model.User
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.FindByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return apperrors.NotFound("user %d not found", userID)
		}
		previous := user.Roles.Strings()
		if err := s.users.UpdateRoles(ctx, userID, roles); err != nil {
			return err
		}
		user.Roles = roles
		return writeAudit(ctx, s.audit, principal.UserID, model.AuditRolesChanged, "user", userID, map[string]any{
			"from": previous,
			"to":   roles.Strings(),
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Int64("user_id", userID).Strs("roles", roles.Strings()).Int64("changed_by", principal.UserID).Msg("user roles updated")
	return user, nil
}

func (s *adminService) AuditLog(ctx context.Context, principal model.Principal, filters model.AuditFilters) ([]model.AuditLog, error) {
	if err := principal.Authorize(model.CapViewReports); err != nil {
		return nil, err
	}
	filters.Limit, filters.Offset = Page(filters.Limit, filters.Offset)
	entries, err := s.audit.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit log: %w", err)
	}
	return entries, nil
}

// MyActions is the audit trail of the calling verifier
func (s *adminService) MyActions(ctx context.Context, principal model.Principal, limit, offset int) ([]model.AuditLog, error) {
	if err := principal.Authorize(model.CapCollectCash); err != nil {
		return nil, err
	}
	limit, offset = Page(limit, offset)
	userID := principal.UserID
	entries, err := s.audit.List(ctx, model.AuditFilters{UserID: &userID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to load audit log: %w", err)
	}
	return entries, nil
}
