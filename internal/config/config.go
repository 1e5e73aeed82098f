package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// AppConfig holds every tunable the services need. It is built once in main
// and passed down explicitly.
type AppConfig struct {
	Server struct {
		Port       string `yaml:"port" env:"SERVER_PORT"`
		GinMode    string `yaml:"gin_mode" env:"GIN_MODE"`
		CORSOrigin string `yaml:"cors_origin" env:"CORS_ORIGIN"`
	} `yaml:"server"`

	Auth struct {
		JWTSecret          string `yaml:"jwt_secret" env:"JWT_SECRET_KEY"`
		JWTExpirationHours int    `yaml:"jwt_expiration_hours" env:"JWT_EXPIRATION_HOURS"`
		TicketSecret       string `yaml:"ticket_secret" env:"TICKET_SECRET_KEY"`
		InitialAdminEmail  string `yaml:"initial_admin_email" env:"INITIAL_ADMIN_EMAIL"`
	} `yaml:"auth"`

	Event struct {
		Name            string `yaml:"name" env:"EVENT_NAME"`
		RegistrationFee int64  `yaml:"registration_fee" env:"REGISTRATION_FEE"`
		TeamMinSize     int    `yaml:"team_min_size" env:"TEAM_MIN_SIZE"`
		TeamMaxSize     int    `yaml:"team_max_size" env:"TEAM_MAX_SIZE"`
		// Universities is offered to the registration form; free text is
		// still accepted.
		Universities []string `yaml:"universities" env:"UNIVERSITIES" envSeparator:";"`
	} `yaml:"event"`

	Storage struct {
		UploadsDir    string `yaml:"uploads_dir" env:"UPLOADS_DIR"`
		QRCodeDir     string `yaml:"qr_code_dir" env:"QR_CODE_DIR"`
		MaxUploadSize int64  `yaml:"max_upload_size" env:"MAX_UPLOAD_SIZE"`
	} `yaml:"storage"`

	SMTP struct {
		Host     string `yaml:"host" env:"SMTP_HOST"`
		Port     int    `yaml:"port" env:"SMTP_PORT"`
		Username string `yaml:"username" env:"SMTP_USERNAME"`
		Password string `yaml:"password" env:"SMTP_PASSWORD"`
		From     string `yaml:"from" env:"SMTP_FROM"`
	} `yaml:"smtp"`

	Notify struct {
		Workers     int           `yaml:"workers" env:"NOTIFY_WORKERS"`
		QueueSize   int           `yaml:"queue_size" env:"NOTIFY_QUEUE_SIZE"`
		MaxAttempts int           `yaml:"max_attempts" env:"NOTIFY_MAX_ATTEMPTS"`
		Backoff     time.Duration `yaml:"backoff" env:"NOTIFY_BACKOFF"`
	} `yaml:"notify"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
	} `yaml:"log"`
}

// LoadAppConfig reads defaults, then the YAML file at path if it exists, then
// environment overrides.
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	setDefaults(cfg)

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// Unset variables leave the default or file value in place.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(cfg *AppConfig) {
	cfg.Server.Port = "8080"
	cfg.Server.GinMode = "debug"
	cfg.Server.CORSOrigin = "*"

	cfg.Auth.JWTExpirationHours = 72

	cfg.Event.Name = "Conference"
	cfg.Event.RegistrationFee = 1000
	cfg.Event.TeamMinSize = 2
	cfg.Event.TeamMaxSize = 5
	cfg.Event.Universities = []string{
		"University of Engineering and Technology (UET) Lahore",
		"Lahore University of Management Sciences (LUMS)",
		"Information Technology University (ITU) Punjab",
		"University of Central Punjab (UCP)",
		"Punjab University College of Information Technology (PUCIT)",
		"Forman Christian College (FCCU)",
		"Government College University (GCU) Lahore",
		"National University of Computer and Emerging Sciences (FAST-NUCES)",
		"Comsats University Islamabad (CUI)",
		"University of Management and Technology (UMT)",
		"Superior University",
		"Lahore Leads University",
		"Other",
	}

	cfg.Storage.UploadsDir = "./uploads"
	cfg.Storage.QRCodeDir = "./uploads/qr"
	cfg.Storage.MaxUploadSize = 5 * 1024 * 1024

	cfg.SMTP.Port = 587

	cfg.Notify.Workers = 2
	cfg.Notify.QueueSize = 100
	cfg.Notify.MaxAttempts = 3
	cfg.Notify.Backoff = 2 * time.Second

	cfg.Log.Level = "info"
	cfg.Log.Pretty = true
}

// Validate checks values that have no sane default.
func (c *AppConfig) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	if c.Auth.TicketSecret == "" {
		return errors.New("TICKET_SECRET_KEY is required")
	}
	if c.Auth.JWTExpirationHours <= 0 {
		return errors.New("JWT_EXPIRATION_HOURS must be positive")
	}
	if c.Event.RegistrationFee <= 0 {
		return errors.New("REGISTRATION_FEE must be positive")
	}
	if c.Event.TeamMinSize < 1 || c.Event.TeamMaxSize < c.Event.TeamMinSize {
		return fmt.Errorf("invalid team size bounds [%d, %d]", c.Event.TeamMinSize, c.Event.TeamMaxSize)
	}
	if c.Storage.MaxUploadSize <= 0 {
		return errors.New("MAX_UPLOAD_SIZE must be positive")
	}
	if c.Notify.Workers < 1 || c.Notify.QueueSize < 1 || c.Notify.MaxAttempts < 1 {
		return errors.New("notify workers, queue size and max attempts must be at least 1")
	}
	return nil
}

// SMTPConfigured reports whether mail can actually be sent.
func (c *AppConfig) SMTPConfigured() bool {
	return c.SMTP.Host != "" && c.SMTP.Username != "" && c.SMTP.Password != ""
}
