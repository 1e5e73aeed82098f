package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"conference_registration/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN string
}

// LoadDBConfig loads database configuration from environment variables
func LoadDBConfig() (*DBConfig, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return &DBConfig{DSN: url}, nil
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	if dbHost == "" || dbPort == "" || dbUser == "" || dbName == "" {
		return nil, fmt.Errorf("database environment variables not set (DATABASE_URL or DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbHost, dbPort, dbUser, dbPassword, dbName, sslMode)

	return &DBConfig{DSN: dsn}, nil
}

// ConnectDB opens the pool, retrying while the database comes up
func ConnectDB(ctx context.Context, cfg *DBConfig) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	maxRetries := 5
	retryInterval := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.New(ctx, cfg.DSN)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				logger.Info().Msg("connected to PostgreSQL")
				return pool, nil
			}
			pool.Close()
		}
		logger.Warn().Err(err).
			Int("attempt", i+1).
			Int("max_attempts", maxRetries).
			Dur("retry_in", retryInterval).
			Msg("failed to connect to database")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
}

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}
	logger.Info().Msg("AutoMigrate applied successfully")
	return nil
}

// Constraint names are matched in repository.mapUniqueViolation.
const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL,
		university TEXT,
		phone_number TEXT,
		roles TEXT[] NOT NULL DEFAULT ARRAY['participant']::TEXT[],
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT users_roles_check CHECK (roles <@ ARRAY['participant','ambassador','registration_team','admin']::TEXT[])
	);
	CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email));

	CREATE TABLE IF NOT EXISTS teams (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL CONSTRAINT teams_name_key UNIQUE,
		code CHAR(8) NOT NULL CONSTRAINT teams_code_key UNIQUE,
		track TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS participants (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL CONSTRAINT participants_user_id_key UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		track TEXT NOT NULL CHECK (track IN ('programming', 'ideathon', 'competitive_programming', 'gaming', 'socialite')),
		team_id BIGINT REFERENCES teams(id) ON DELETE SET NULL,
		is_team_lead BOOLEAN NOT NULL DEFAULT FALSE,
		student_id TEXT NOT NULL CONSTRAINT participants_student_id_key UNIQUE,
		cnic TEXT NOT NULL CONSTRAINT participants_cnic_key UNIQUE,
		tshirt_size TEXT NOT NULL CHECK (tshirt_size IN ('S', 'M', 'L', 'XL', 'XXL')),
		emergency_contact TEXT NOT NULL,
		skills TEXT,
		github_url TEXT,
		portfolio_url TEXT,
		dietary_requirements TEXT,
		registered_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_participants_team_id ON participants(team_id);
	CREATE INDEX IF NOT EXISTS idx_participants_track ON participants(track);

	CREATE TABLE IF NOT EXISTS payments (
		id BIGSERIAL PRIMARY KEY,
		participant_id BIGINT NOT NULL CONSTRAINT payments_participant_id_key UNIQUE REFERENCES participants(id) ON DELETE CASCADE,
		team_id BIGINT REFERENCES teams(id) ON DELETE SET NULL,
		amount BIGINT NOT NULL CHECK (amount > 0), -- whole currency units
		method TEXT NOT NULL CHECK (method IN ('online', 'cash')),
		status TEXT NOT NULL CHECK (status IN ('pending', 'pending_cash', 'verified', 'rejected')),
		transaction_id TEXT,
		bank_name TEXT,
		receipt_path TEXT, -- reference returned by the file store
		uploaded_at TIMESTAMP WITH TIME ZONE,
		amount_collected BIGINT,
		collected_at TIMESTAMP WITH TIME ZONE,
		notes TEXT,
		verified_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
		verified_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);
	CREATE INDEX IF NOT EXISTS idx_payments_verified_by ON payments(verified_by);

	CREATE TABLE IF NOT EXISTS checkins (
		id BIGSERIAL PRIMARY KEY,
		participant_id BIGINT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
		event_type TEXT NOT NULL,
		checked_by BIGINT NOT NULL REFERENCES users(id),
		checked_in_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT checkins_participant_event_key UNIQUE (participant_id, event_type)
	);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		action TEXT NOT NULL,
		entity TEXT NOT NULL,
		record_id BIGINT NOT NULL,
		details TEXT,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);

	CREATE OR REPLACE FUNCTION update_updated_at_column()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ language 'plpgsql';

	DO $$
	DECLARE
		t TEXT;
	BEGIN
		FOREACH t IN ARRAY ARRAY['users', 'participants', 'payments'] LOOP
			IF NOT EXISTS (
				SELECT 1 FROM pg_trigger
				WHERE tgname = 'set_' || t || '_updated_at' AND tgrelid = t::regclass
			) THEN
				EXECUTE format('CREATE TRIGGER %I BEFORE UPDATE ON %I FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()', 'set_' || t || '_updated_at', t);
			END IF;
		END LOOP;
	END
	$$;
`
