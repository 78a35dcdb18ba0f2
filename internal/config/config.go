package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets are never defaulted: a missing
// SESSION_SECRET is a configuration error.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DB DBConfig

	SessionSecret       string        // HMAC key used to sign session cookies
	SessionTTL          time.Duration // sliding inactivity window
	SessionBackend      string        // "sql" or "redis"
	SessionCookieName   string
	SessionCookieSecure bool

	BcryptCost             int
	AutoLoginOnRegister    bool // establish a session right after registration
	PasswordRequireClasses bool // require upper, lower, digit and special characters

	RabbitURL string // empty disables audit event publishing

	LogDir   string
	LogDebug bool
}

// DBConfig describes the storage engine connection.  Driver selects the
// dialect; Path is only used by sqlite.
type DBConfig struct {
	Driver string // mysql | postgres | sqlite
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
	Path   string
	SSL    string // postgres sslmode
}

// Load reads configuration values from the environment, after merging an
// optional .env file.  All missing required variables are reported together.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env file is fine

	l := &loader{}
	cfg := Config{
		Env:  envStr("APP_ENV", "dev"),
		Port: envStr("APP_PORT", "8080"),
		DB: DBConfig{
			Driver: strings.ToLower(envStr("DB_DRIVER", "mysql")),
			User:   os.Getenv("DB_USER"),
			Pass:   os.Getenv("DB_PASS"),
			Host:   envStr("DB_HOST", "localhost"),
			Port:   os.Getenv("DB_PORT"),
			Name:   os.Getenv("DB_NAME"),
			Path:   envStr("DB_PATH", "journal.db"),
			SSL:    envStr("DB_SSLMODE", "disable"),
		},
		SessionSecret:          l.must("SESSION_SECRET"),
		SessionTTL:             time.Duration(envInt("SESSION_TTL_MIN", 30)) * time.Minute,
		SessionBackend:         strings.ToLower(envStr("SESSION_BACKEND", "sql")),
		SessionCookieName:      envStr("SESSION_COOKIE_NAME", "journal_session"),
		SessionCookieSecure:    envBool("SESSION_COOKIE_SECURE", false),
		BcryptCost:             envInt("BCRYPT_COST", bcrypt.DefaultCost),
		AutoLoginOnRegister:    envBool("AUTO_LOGIN_ON_REGISTER", true),
		PasswordRequireClasses: envBool("PASSWORD_REQUIRE_CLASSES", true),
		RabbitURL:              firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
		LogDir:                 envStr("LOG_DIR", "logs"),
		LogDebug:               envBool("LOG_DEBUG", false),
	}

	switch cfg.DB.Driver {
	case "mysql", "postgres":
		cfg.DB.User = l.must("DB_USER")
		cfg.DB.Name = l.must("DB_NAME")
		if cfg.DB.Port == "" {
			cfg.DB.Port = map[string]string{"mysql": "3306", "postgres": "5432"}[cfg.DB.Driver]
		}
	case "sqlite":
	default:
		l.errs = append(l.errs, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver))
	}
	if cfg.SessionBackend != "sql" && cfg.SessionBackend != "redis" {
		l.errs = append(l.errs, fmt.Errorf("unsupported SESSION_BACKEND %q", cfg.SessionBackend))
	}
	if cfg.SessionTTL <= 0 {
		l.errs = append(l.errs, errors.New("SESSION_TTL_MIN must be positive"))
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		l.errs = append(l.errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	return cfg, errors.Join(l.errs...)
}

// loader accumulates missing-variable errors so they can be reported at once.
type loader struct{ errs []error }

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
