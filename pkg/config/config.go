package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeMemory     = "memory"
	ModeStorefront = "storefront"
)

type Config struct {
	AppEnv    string `yaml:"app_env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	GRPCPort  int    `yaml:"grpc_port"`
	HTTPPort  int    `yaml:"http_port"`

	// TraceStdout prints sync pass spans to stdout.
	TraceStdout bool `yaml:"trace_stdout"`

	SyncTimeout    time.Duration `yaml:"sync_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`

	Checkout CheckoutConfig `yaml:"checkout"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

type CheckoutConfig struct {
	Mode          string        `yaml:"mode"`
	BaseURL       string        `yaml:"base_url"`
	AccessToken   string        `yaml:"access_token"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
}

type SnapshotConfig struct {
	// Driver is one of memory, sqlite, postgres or firestore.
	// An empty DSN means cart.db for sqlite.
	Driver     string         `yaml:"driver"`
	DSN        string         `yaml:"dsn"`
	Postgres   PostgresConfig `yaml:"postgres"`
	ProjectID  string         `yaml:"project_id"`
	Collection string         `yaml:"collection"`
}

// PostgresConfig is used when the postgres driver has no DSN.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
	SSLMode  string `yaml:"sslmode"`
}

func Default() Config {
	return Config{
		AppEnv:         "dev",
		LogLevel:       "info",
		LogFormat:      "json",
		GRPCPort:       8081,
		HTTPPort:       8080,
		SyncTimeout:    10 * time.Second,
		AllowedOrigins: []string{"*"},
		Checkout: CheckoutConfig{
			Mode:          ModeMemory,
			Timeout:       5 * time.Second,
			MaxRetries:    3,
			RatePerSecond: 5,
			Burst:         5,
		},
		Snapshot: SnapshotConfig{
			Driver:     "sqlite",
			Collection: "cart_snapshots",
			Postgres:   PostgresConfig{Port: 5432},
		},
	}
}

// Load reads the YAML file named by CONFIG_FILE (if set) over the defaults,
// then applies environment overrides.
func Load() (Config, error) {
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

// LoadFrom is Load with an explicit config file path; empty skips the file.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.GRPCPort = getEnvInt("GRPC_PORT", cfg.GRPCPort)
	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.TraceStdout = getEnvBool("TRACE_STDOUT", cfg.TraceStdout)
	cfg.SyncTimeout = getEnvDuration("SYNC_TIMEOUT", cfg.SyncTimeout)
	if v := getEnv("ALLOWED_ORIGINS", ""); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	cfg.Checkout.Mode = getEnv("CHECKOUT_MODE", cfg.Checkout.Mode)
	cfg.Checkout.BaseURL = getEnv("STOREFRONT_URL", cfg.Checkout.BaseURL)
	cfg.Checkout.AccessToken = getEnv("STOREFRONT_TOKEN", cfg.Checkout.AccessToken)

	cfg.Snapshot.Driver = getEnv("SNAPSHOT_DRIVER", cfg.Snapshot.Driver)
	cfg.Snapshot.DSN = getEnv("SNAPSHOT_DSN", cfg.Snapshot.DSN)
	cfg.Snapshot.ProjectID = getEnv("FIRESTORE_PROJECT", cfg.Snapshot.ProjectID)
	cfg.Snapshot.Postgres.Host = getEnv("POSTGRES_HOST", cfg.Snapshot.Postgres.Host)
	cfg.Snapshot.Postgres.Port = getEnvInt("POSTGRES_PORT", cfg.Snapshot.Postgres.Port)
	cfg.Snapshot.Postgres.User = getEnv("POSTGRES_USER", cfg.Snapshot.Postgres.User)
	cfg.Snapshot.Postgres.Password = getEnv("POSTGRES_PASSWORD", cfg.Snapshot.Postgres.Password)
	cfg.Snapshot.Postgres.DB = getEnv("POSTGRES_DB", cfg.Snapshot.Postgres.DB)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http_port out of range: %d", c.HTTPPort))
	}
	if c.GRPCPort <= 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("grpc_port out of range: %d", c.GRPCPort))
	}
	if c.SyncTimeout <= 0 {
		errs = append(errs, errors.New("sync_timeout must be positive"))
	}

	switch c.Checkout.Mode {
	case ModeMemory:
	case ModeStorefront:
		if c.Checkout.BaseURL == "" {
			errs = append(errs, errors.New("checkout.base_url is required in storefront mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown checkout mode %q", c.Checkout.Mode))
	}

	switch c.Snapshot.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Snapshot.DSN == "" && c.Snapshot.Postgres.Host == "" {
			errs = append(errs, errors.New("snapshot.dsn or snapshot.postgres.host is required for postgres"))
		}
	case "firestore":
		if c.Snapshot.ProjectID == "" {
			errs = append(errs, errors.New("snapshot.project_id is required for firestore"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown snapshot driver %q", c.Snapshot.Driver))
	}

	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// splitList splits a comma separated value, trimming entries and dropping
// empty ones.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
