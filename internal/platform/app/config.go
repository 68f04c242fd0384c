package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration, read from the environment.
type Config struct {
	Env       string `env:"CREWBASE_ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Addr         string `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseFile string `env:"DATABASE_FILE" envDefault:"crewbase.db"`
	PepperFile   string `env:"PEPPER_FILE" envDefault:"pepper"`

	// SigningSeed is a base64url-encoded 32-byte Ed25519 seed. When empty
	// an ephemeral keypair is generated; tokens then die with the process,
	// which is fine for dev and useless for multi-instance deployments.
	SigningSeed string `env:"TOKEN_SIGNING_SEED"`
	Issuer      string `env:"TOKEN_ISSUER" envDefault:"crewbase"`

	AccessTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	InviteTTL  time.Duration `env:"INVITE_TTL" envDefault:"168h"`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
	SessionRetention     time.Duration `env:"SESSION_RETENTION" envDefault:"720h"`

	// RedisAddr switches the audit sink from the structured log to a Redis
	// Stream when set.
	RedisAddr   string `env:"REDIS_ADDR"`
	AuditStream string `env:"AUDIT_STREAM" envDefault:"audit_events"`

	// Bootstrap credentials for the first platform admin. Only consulted
	// when the email is not registered yet.
	BootstrapAdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`

	SecureCookies bool `env:"SECURE_COOKIES" envDefault:"false"`
}

// LoadConfig reads configuration from the environment, with a .env file for
// local development.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"ACCESS_TOKEN_TTL", cfg.AccessTTL},
		{"REFRESH_TOKEN_TTL", cfg.RefreshTTL},
		{"INVITE_TTL", cfg.InviteTTL},
		{"SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod},
		{"HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval},
		{"SESSION_RETENTION", cfg.SessionRetention},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	return nil
}
