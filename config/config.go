package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/example/moderated-room/modules/session"
)

// Config holds process settings read from the environment.
type Config struct {
	Port             string        `env:"PORT" envDefault:"3000"`
	DBPath           string        `env:"DB_PATH" envDefault:"rooms.db"`
	DBDebug          bool          `env:"DB_DEBUG" envDefault:"false"`
	CORSAllowOrigins string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	SendRatePerSec   float64       `env:"SEND_RATE_PER_SEC" envDefault:"5"`
	SendBurst        int           `env:"SEND_BURST" envDefault:"10"`
	WSSendBuffer     int           `env:"WS_SEND_BUFFER" envDefault:"64"`
	StoreTimeout     time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	AuditCapacity    int           `env:"AUDIT_CAPACITY" envDefault:"200"`

	SuperadminKey string `env:"SUPERADMIN_KEY,required,notEmpty"`
	AdminKey      string `env:"ADMIN_KEY,required,notEmpty"`
	BroadcastKey  string `env:"BROADCAST_KEY,required,notEmpty"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SendRatePerSec <= 0 || cfg.SendBurst <= 0 {
		return Config{}, fmt.Errorf("parse env: send rate and burst must be positive")
	}
	if cfg.WSSendBuffer <= 0 {
		return Config{}, fmt.Errorf("parse env: WS_SEND_BUFFER must be positive")
	}
	cfg.CORSAllowOrigins = strings.TrimSpace(cfg.CORSAllowOrigins)
	return cfg, nil
}

// Credentials returns the role secrets as used by the session coordinator.
func (c Config) Credentials() session.Credentials {
	return session.Credentials{
		Superadmin: c.SuperadminKey,
		Admin:      c.AdminKey,
		Broadcast:  c.BroadcastKey,
	}
}
