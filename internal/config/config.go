package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/claritypixel/pixel-health/internal/engine"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PIXEL_HEALTH_"

// Config captures the settings required to boot the event health service.
type Config struct {
	Server  ServerConfig    `yaml:"server"`
	Store   StoreConfig     `yaml:"store"`
	Logging LoggingConfig   `yaml:"logging"`
	Health  engine.Settings `yaml:"health"`
	Hints   HintsConfig     `yaml:"hints"`
}

// ServerConfig controls the gRPC and HTTP listeners.
type ServerConfig struct {
	GRPCAddress     string        `yaml:"grpcAddress"`
	HTTPAddress     string        `yaml:"httpAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
}

// StoreConfig selects the event log backend.
type StoreConfig struct {
	Driver      string        `yaml:"driver"`
	DSN         string        `yaml:"dsn"`
	Table       string        `yaml:"table"`
	Timeout     time.Duration `yaml:"timeout"`
	BaseURL     string        `yaml:"baseURL"`
	QueryPath   string        `yaml:"queryPath"`
	AutoMigrate bool          `yaml:"autoMigrate"`
	SeedFile    string        `yaml:"seedFile"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// HintsConfig points at the remediation hint book.
type HintsConfig struct {
	Path string `yaml:"path"`
}

// Load initialises Config from a YAML file, .env files and environment overrides.
func Load(path string) (*Config, error) {
	loadDotEnv()

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the sections the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Health.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("health: %w", err))
	}
	switch strings.ToLower(c.Store.Driver) {
	case "", "memory":
	case "postgres", "clickhouse", "sqlite":
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store: dsn is required for driver %q", c.Store.Driver))
		}
	case "http":
		if c.Store.BaseURL == "" {
			errs = append(errs, errors.New("store: baseURL is required for driver \"http\""))
		}
	default:
		errs = append(errs, fmt.Errorf("store: unknown driver %q", c.Store.Driver))
	}
	if c.Server.GracefulTimeout < 0 || c.Server.RequestTimeout < 0 {
		errs = append(errs, errors.New("server: timeouts must not be negative"))
	}
	return errors.Join(errs...)
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			GRPCAddress:     ":50051",
			HTTPAddress:     ":8080",
			GracefulTimeout: 10 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Store: StoreConfig{
			Driver:    "memory",
			Table:     "events",
			Timeout:   5 * time.Second,
			QueryPath: "/api/v1/events/query",
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Health:  engine.DefaultSettings(),
		Hints:   HintsConfig{Path: "configs/hints/default.yaml"},
	}
}

// loadDotEnv loads .env from the working directory, then the file named by
// PIXEL_HEALTH_ENV_FILE. Variables already set in the environment win.
func loadDotEnv() {
	_ = godotenv.Load()
	if envFile := os.Getenv(EnvPrefix + "ENV_FILE"); envFile != "" {
		_ = godotenv.Load(envFile)
	}
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *float64) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = strings.EqualFold(v, "true") || v == "1"
		}
	}

	str("GRPC_ADDRESS", &cfg.Server.GRPCAddress)
	str("HTTP_ADDRESS", &cfg.Server.HTTPAddress)
	dur("GRACEFUL_TIMEOUT", &cfg.Server.GracefulTimeout)
	dur("REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)

	str("STORE_DRIVER", &cfg.Store.Driver)
	str("STORE_DSN", &cfg.Store.DSN)
	str("STORE_TABLE", &cfg.Store.Table)
	dur("STORE_TIMEOUT", &cfg.Store.Timeout)
	str("STORE_BASE_URL", &cfg.Store.BaseURL)
	str("STORE_QUERY_PATH", &cfg.Store.QueryPath)
	flag("STORE_AUTO_MIGRATE", &cfg.Store.AutoMigrate)
	str("STORE_SEED_FILE", &cfg.Store.SeedFile)

	str("LOG_LEVEL", &cfg.Logging.Level)
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}

	dur("HEALTH_WINDOW", &cfg.Health.HealthWindow)
	dur("DUPLICATE_WINDOW", &cfg.Health.DuplicateWindow)
	dur("QUALITY_WINDOW", &cfg.Health.QualityWindow)
	dur("WARNING_AGE", &cfg.Health.WarningAge)
	dur("ERROR_AGE", &cfg.Health.ErrorAge)
	num("IDENTITY_BONUS", &cfg.Health.IdentityBonus)
	num("QUALITY_THRESHOLD", &cfg.Health.QualityAlertThreshold)
	str("CHECKOUT_EVENT", &cfg.Health.CheckoutEvent)
	if v := os.Getenv(EnvPrefix + "STANDARD_EVENTS"); v != "" {
		var names []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		cfg.Health.StandardEvents = names
	}

	str("HINTS_PATH", &cfg.Hints.Path)
	return errors.Join(errs...)
}
