package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"survey-backend/utils"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Question-set policies for submitted items.
const (
	QuestionSetAny   = "any"
	QuestionSetExact = "exact"
)

// Config is built once at startup and passed down explicitly.
type Config struct {
	Port string

	DBDriver    string
	DatabaseURL string // raw DSN; wins over the DB_* parts
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	BodyLimitBytes  int
	AllowedOrigins  string
	RateLimitMax    int
	RateLimitWindow time.Duration

	// UnsetStatusOpen decides how a survey row without a status is treated.
	UnsetStatusOpen bool
	QuestionSet     string
	ReversedScales  []string

	OrphanGrace      time.Duration
	SweepInterval    time.Duration
	IdempotencyTTL   time.Duration
	IdempotencyLease time.Duration // pending claims older than this may be retried

	AdminJWTSecret string

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:        utils.EnvString("PORT", "8080"),
		DBDriver:    strings.ToLower(utils.EnvString("DB_DRIVER", DriverPostgres)),
		DatabaseURL: utils.EnvString("DATABASE_URL", ""),
		DBHost:      utils.EnvString("DB_HOST", "db"),
		DBUser:      utils.EnvString("DB_USER", ""),
		DBPassword:  utils.EnvString("DB_PASSWORD", ""),
		DBName:      utils.EnvString("DB_NAME", ""),
		DBSSLMode:   utils.EnvString("DB_SSLMODE", "disable"),

		AllowedOrigins:  utils.EnvString("ALLOWED_ORIGINS", "*"),
		RateLimitMax:    utils.EnvInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow: time.Duration(utils.EnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		QuestionSet:    strings.ToLower(utils.EnvString("QUESTION_SET_POLICY", QuestionSetAny)),
		ReversedScales: utils.EnvList("REVERSED_SCALES"),

		OrphanGrace:      utils.EnvDuration("ORPHAN_GRACE", 10*time.Minute),
		SweepInterval:    utils.EnvDuration("SWEEP_INTERVAL", 0),
		IdempotencyTTL:   utils.EnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		IdempotencyLease: utils.EnvDuration("IDEMPOTENCY_LEASE", 30*time.Second),

		AdminJWTSecret: utils.EnvString("ADMIN_JWT_SECRET", ""),

		LogLevel:  strings.ToLower(utils.EnvString("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(utils.EnvString("LOG_FORMAT", "text")),
	}

	// Fiber default BodyLimit is 4 MiB; BODY_LIMIT_BYTES wins over BODY_LIMIT_MB.
	cfg.BodyLimitBytes = utils.EnvInt("BODY_LIMIT_BYTES", 0)
	if cfg.BodyLimitBytes <= 0 {
		cfg.BodyLimitBytes = utils.EnvInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		cfg.DBPort = utils.EnvString("DB_PORT", "5432")
	case DriverMySQL:
		cfg.DBPort = utils.EnvString("DB_PORT", "3306")
	case DriverSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "survey.db"
		}
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q (want postgres, mysql or sqlite)", cfg.DBDriver)
	}

	switch unset := strings.ToLower(utils.EnvString("SURVEY_UNSET_STATUS", "open")); unset {
	case "open":
		cfg.UnsetStatusOpen = true
	case "closed":
		cfg.UnsetStatusOpen = false
	default:
		return Config{}, fmt.Errorf("invalid SURVEY_UNSET_STATUS %q (want open or closed)", unset)
	}

	if cfg.QuestionSet != QuestionSetAny && cfg.QuestionSet != QuestionSetExact {
		return Config{}, fmt.Errorf("invalid QUESTION_SET_POLICY %q (want any or exact)", cfg.QuestionSet)
	}
	if cfg.OrphanGrace < 0 || cfg.SweepInterval < 0 {
		return Config{}, errors.New("ORPHAN_GRACE and SWEEP_INTERVAL must not be negative")
	}
	if cfg.IdempotencyLease <= 0 {
		return Config{}, errors.New("IDEMPOTENCY_LEASE must be positive")
	}

	return cfg, nil
}
