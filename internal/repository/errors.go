package repository

import (
	"errors"

	"conference_registration/internal/apperrors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// ErrStaleState is returned when a conditional update matched no row because
// the record is no longer in the expected state.
var ErrStaleState = errors.New("record is not in the expected state")

var uniqueMessages = map[string]string{
	"users_email_key":                "email already registered",
	"participants_user_id_key":       "user already has a participant profile",
	"participants_student_id_key":    "student id already registered",
	"participants_cnic_key":          "CNIC already registered",
	"teams_name_key":                 "team name already taken",
	"teams_code_key":                 "team code already in use",
	"payments_participant_id_key":    "payment method already selected",
	"checkins_participant_event_key": "participant already checked in",
}

// mapUniqueViolation turns a unique constraint failure into a conflict error
// and returns any other error unchanged.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	if msg, ok := uniqueMessages[pgErr.ConstraintName]; ok {
		return apperrors.Conflict("%s", msg)
	}
	return apperrors.Conflict("record already exists")
}
