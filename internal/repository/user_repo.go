package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"conference_registration/internal/model"

	"github.com/jackc/pgx/v5"
)

// UserRepository defines operations for user data
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	UpdateRoles(ctx context.Context, id int64, roles model.RoleSet) error
	HasRole(ctx context.Context, role model.Role) (bool, error)
}

type userRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, full_name, university, phone_number, roles, is_active, created_at, updated_at`

func scanUser(row scanner) (*model.User, error) {
	u := &model.User{}
	var roles []string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.University,
		&u.PhoneNumber, &roles, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	set, err := model.ParseRoleSet(roles)
	if err != nil {
		return nil, fmt.Errorf("user %d has invalid roles: %w", u.ID, err)
	}
	u.Roles = set
	return u, nil
}

// Create inserts a new user. Email is stored lowercased.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	sql := `INSERT INTO users (email, password_hash, full_name, university, phone_number, roles, is_active)
            VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	err := querier(ctx, r.db).QueryRow(ctx, sql,
		user.Email, user.PasswordHash, user.FullName, user.University, user.PhoneNumber,
		user.Roles.Strings(), user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapUniqueViolation(err))
	}
	return nil
}

// FindByEmail retrieves a user by email, case-insensitively
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	user, err := scanUser(querier(ctx, r.db).QueryRow(ctx, sql, strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found is not an error here, service layer decides
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByID retrieves a user by their ID
func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(querier(ctx, r.db).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// List returns users ordered by creation, newest first
func (r *userRepository) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := querier(ctx, r.db).Query(ctx, sql, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// UpdateRoles replaces the role set of a user
func (r *userRepository) UpdateRoles(ctx context.Context, id int64, roles model.RoleSet) error {
	sql := `UPDATE users SET roles = $1 WHERE id = $2`
	tag, err := querier(ctx, r.db).Exec(ctx, sql, roles.Strings(), id)
	if err != nil {
		return fmt.Errorf("failed to update user roles: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// HasRole reports whether any user holds role
func (r *userRepository) HasRole(ctx context.Context, role model.Role) (bool, error) {
	var exists bool
	sql := `SELECT EXISTS (SELECT 1 FROM users WHERE $1 = ANY(roles))`
	if err := querier(ctx, r.db).QueryRow(ctx, sql, string(role)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return exists, nil
}
