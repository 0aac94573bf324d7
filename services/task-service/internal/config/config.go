package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vasapolrittideah/task-manager-api/shared/logger"
	"github.com/vasapolrittideah/task-manager-api/shared/mailer"
)

const (
	DriverMongoDB = "mongodb"
	DriverSQLite  = "sqlite"
)

// TaskServiceConfig holds the configuration of the task service process.
type TaskServiceConfig struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8000"`
	Database  DatabaseConfig
	Session   SessionConfig
	SMTP      mailer.Config
	Log       logger.Config
	Discovery DiscoveryConfig
}

// DatabaseConfig selects and locates the store.
type DatabaseConfig struct {
	Driver string `env:"DATABASE_DRIVER" envDefault:"mongodb"`
	// URI is a MongoDB connection string or a SQLite DSN depending on Driver.
	URI  string `env:"DB_URI"`
	Name string `env:"DB_NAME" envDefault:"task_manager"`
}

// SessionConfig holds the session token and cookie settings.
type SessionConfig struct {
	Secret       string        `env:"JWT_SECRET_KEY"`
	Issuer       string        `env:"JWT_ISSUER"            envDefault:"task-service"`
	ExpiresIn    time.Duration `env:"SESSION_EXPIRES_IN"    envDefault:"300s"`
	CookieName   string        `env:"SESSION_COOKIE_NAME"   envDefault:"jwtToken"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
}

// DiscoveryConfig controls the optional gRPC health endpoint and Consul registration.
// Both are disabled when their address is empty.
type DiscoveryConfig struct {
	GRPCHealthAddr string `env:"GRPC_HEALTH_ADDR"`
	ConsulAddr     string `env:"CONSUL_ADDR"`
	ServiceName    string `env:"SERVICE_NAME"     envDefault:"task-service"`
	ServiceHost    string `env:"SERVICE_HOST"     envDefault:"localhost"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*TaskServiceConfig, error) {
	cfg, err := env.ParseAs[TaskServiceConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *TaskServiceConfig) validate() error {
	switch c.Database.Driver {
	case DriverMongoDB, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.Database.URI == "" {
		return errors.New("missing DB_URI environment variable")
	}
	if c.Session.Secret == "" {
		return errors.New("missing JWT_SECRET_KEY environment variable")
	}
	if c.Session.ExpiresIn <= 0 {
		return errors.New("SESSION_EXPIRES_IN must be positive")
	}

	return c.SMTP.Validate()
}
