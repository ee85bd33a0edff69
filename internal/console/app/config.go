package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/brightpay/console/pkg/cryptox"
	"github.com/caarlos0/env/v10"
)

// Config is the process-wide configuration. It is parsed exactly once at
// startup and passed explicitly into the components that need it; nothing
// reads the environment after boot.
type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`           // dev, staging, prod
	Port      int    `env:"PORT" envDefault:"8080"`         // HTTP listen port
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`    // debug, info, warn, error
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`   // json, text

	// TokenSecret signs session tokens. Required: a deployment serving
	// protected routes cannot run without it. Rotation means restarting
	// with a new value, which invalidates all outstanding tokens.
	TokenSecret string        `env:"TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	TokenIssuer string        `env:"TOKEN_ISSUER" envDefault:"console-api"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	DatabaseFile        string        `env:"DATABASE_FILE" envDefault:"console.db"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
}

// LoadConfig parses the environment and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces startup invariants. A missing token secret is a fatal
// configuration error, not something to limp along without.
func (c *Config) Validate() error {
	if c.TokenSecret == "" {
		return errors.New("TOKEN_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.BcryptCost < cryptox.MinCost {
		c.BcryptCost = cryptox.MinCost
	}
	return nil
}

// DevMode reports whether detailed error bodies may be sent to clients.
func (c *Config) DevMode() bool { return c.Env == "dev" }
