package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"

	"github.com/example/ticketdesk/internal/logging"
)

// Storage drivers understood by the CLI.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// ConfigFileEnv names the variable pointing at an explicit TOML file.
const ConfigFileEnv = "TICKETDESK_CONFIG_FILE"

// DefaultConfigFile is read when present and ConfigFileEnv is unset.
const DefaultConfigFile = "ticketdesk.toml"

// Config captures file and environment driven configuration for ticketdesk.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`
}

type StorageConfig struct {
	Driver     string      `toml:"driver" env:"TICKETDESK_STORAGE_DRIVER"`
	SQLitePath string      `toml:"sqlite_path" env:"TICKETDESK_SQLITE_PATH"`
	Redis      RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	Addr     string `toml:"addr" env:"TICKETDESK_REDIS_ADDR"`
	Password string `toml:"password" env:"TICKETDESK_REDIS_PASSWORD"`
	DB       int    `toml:"db" env:"TICKETDESK_REDIS_DB"`
	Prefix   string `toml:"prefix" env:"TICKETDESK_REDIS_PREFIX"`
}

type SessionConfig struct {
	TTL time.Duration `toml:"ttl" env:"TICKETDESK_SESSION_TTL"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"TICKETDESK_LOG_LEVEL"`
	Format string `toml:"format" env:"TICKETDESK_LOG_FORMAT"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Driver:     DriverSQLite,
			SQLitePath: "ticketdesk.db",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "ticketdesk:",
			},
		},
		Session: SessionConfig{TTL: 24 * time.Hour},
		Log:     LogConfig{Level: "warn", Format: logging.FormatText},
	}
}

// Load resolves configuration from defaults, an optional TOML file and the
// process environment, in that order of precedence.
//
// The file named by TICKETDESK_CONFIG_FILE must exist; the default file is
// read only when present. Every invalid key is reported in a single error.
func Load() (Config, error) {
	cfg := Default()

	path := strings.TrimSpace(os.Getenv(ConfigFileEnv))
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := decodeFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid environment configuration: %w", err)
	}

	cfg.normalize()
	if invalid := cfg.validate(); len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) normalize() {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Storage.SQLitePath = strings.TrimSpace(c.Storage.SQLitePath)
	c.Storage.Redis.Addr = strings.TrimSpace(c.Storage.Redis.Addr)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

func (c Config) validate() []string {
	invalid := make([]string, 0, 4)

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			invalid = append(invalid, "storage.sqlite_path")
		}
	case DriverRedis:
		if c.Storage.Redis.Addr == "" {
			invalid = append(invalid, "storage.redis.addr")
		}
		if c.Storage.Redis.DB < 0 {
			invalid = append(invalid, "storage.redis.db")
		}
	case DriverMemory:
	default:
		invalid = append(invalid, "storage.driver")
	}

	if c.Session.TTL <= 0 {
		invalid = append(invalid, "session.ttl")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		invalid = append(invalid, "log.level")
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		invalid = append(invalid, "log.format")
	}

	return invalid
}
