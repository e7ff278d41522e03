package config

import (
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RELIEF_STORE_PATH
const EnvPrefix = "RELIEF"

// Store backends
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

type ServerConfig struct {
	Addr         string        `yaml:"addr" envconfig:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" envconfig:"idle_timeout"`
	RatePerSec   float64       `yaml:"rate_per_second" envconfig:"rate_per_second"` // 0 disables limiting
	Burst        int           `yaml:"burst" envconfig:"burst"`
}

type DynamoDBConfig struct {
	Table    string `yaml:"table" envconfig:"table"`
	Key      string `yaml:"key" envconfig:"key"`
	Region   string `yaml:"region" envconfig:"region"`
	Endpoint string `yaml:"endpoint" envconfig:"endpoint"` // local emulator
}

type StoreConfig struct {
	Backend        string         `yaml:"backend" envconfig:"backend"`
	Path           string         `yaml:"path" envconfig:"path"`
	PersistRetries uint           `yaml:"persist_retries" envconfig:"persist_retries"`
	PersistBackoff time.Duration  `yaml:"persist_backoff" envconfig:"persist_backoff"`
	DynamoDB       DynamoDBConfig `yaml:"dynamodb" envconfig:"dynamodb"`
}

type AllocationConfig struct {
	Timeout       time.Duration `yaml:"timeout" envconfig:"timeout"`
	PersistCursor bool          `yaml:"persist_cursor" envconfig:"persist_cursor"`
}

type EventsConfig struct {
	Retention int `yaml:"retention" envconfig:"retention"`
}

type LogConfig struct {
	Level       string `yaml:"level" envconfig:"level"`
	Development bool   `yaml:"development" envconfig:"development"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"server"`
	Store      StoreConfig      `yaml:"store" envconfig:"store"`
	Allocation AllocationConfig `yaml:"allocation" envconfig:"allocation"`
	Events     EventsConfig     `yaml:"events" envconfig:"events"`
	Log        LogConfig        `yaml:"log" envconfig:"log"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":5000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			RatePerSec:   50,
			Burst:        100,
		},
		Store: StoreConfig{
			Backend:        BackendFile,
			Path:           "data/hubs.json",
			PersistRetries: 3,
			PersistBackoff: 50 * time.Millisecond,
			DynamoDB: DynamoDBConfig{
				Table:  "relief",
				Key:    "inventory",
				Region: "us-east-1",
			},
		},
		Allocation: AllocationConfig{
			Timeout: 5 * time.Second,
		},
		Events: EventsConfig{
			Retention: 1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies RELIEF_*
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config %s", path)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to process env config")
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the settings that would otherwise fail late
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the file backend")
		}
	case BackendMemory:
	case BackendDynamoDB:
		if c.Store.DynamoDB.Table == "" {
			return errors.New("store.dynamodb.table is required for the dynamodb backend")
		}
	default:
		return errors.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Allocation.Timeout <= 0 {
		return errors.New("allocation.timeout must be positive")
	}
	if c.Events.Retention <= 0 {
		return errors.New("events.retention must be positive")
	}
	if c.Server.RatePerSec < 0 {
		return errors.New("server.rate_per_second cannot be negative")
	}
	return nil
}
