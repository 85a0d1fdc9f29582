package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	BackendMemory    = "memory"
	BackendMongo     = "mongo"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

type Config struct {
	Telegram Telegram
	Storage  Storage
	Identity Identity

	SeedDemo bool   `env:"SEED_DEMO" envDefault:"true"`
	FeedSize int    `env:"FEED_SIZE" envDefault:"5"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type Telegram struct {
	Token   string `env:"TG_TOKEN"`
	Timeout int    `env:"TIMEOUT" envDefault:"60"`
	Debug   bool   `env:"TG_DEBUG" envDefault:"false"`
}

type Storage struct {
	Backend          string `env:"STORAGE_BACKEND" envDefault:"memory"`
	MongoURI         string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase    string `env:"MONGO_DATABASE" envDefault:"mood_tracker"`
	PostgresEndpoint string `env:"POSTGRES_ENDPOINT"`
	FirestoreProject string `env:"FIRESTORE_PROJECT"`
}

// Identity describes the actor used until a provider reports a login
type Identity struct {
	OwnerTag string `env:"OWNER_TAG" envDefault:"demo@example.com"`
	Username string `env:"AUTH_USERNAME"`
	Email    string `env:"AUTH_EMAIL"`
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using environment only")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config couldn't parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendMongo:
	case BackendPostgres:
		if c.Storage.PostgresEndpoint == "" {
			return fmt.Errorf("POSTGRES_ENDPOINT is required for %s storage backend", BackendPostgres)
		}
	case BackendFirestore:
		if c.Storage.FirestoreProject == "" {
			return fmt.Errorf("FIRESTORE_PROJECT is required for %s storage backend", BackendFirestore)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config LOG_LEVEL: %w", err)
	}
	return nil
}
