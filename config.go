package gate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config controls routing, collaborators and observability of a [Gate].
//
// Config values are copied by the Builder; mutating a Config after Build has no effect.
type Config struct {
	Routes   RoutesConfig  `yaml:"routes"`
	API      APIConfig     `yaml:"api"`
	Store    StoreConfig   `yaml:"store"`
	Audit    AuditConfig   `yaml:"audit"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Dev      DevConfig     `yaml:"dev"`
	Ordering Ordering      `yaml:"ordering" env:"REUSE_ORDERING"`
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig names the anonymous routes and the two redirect targets.
type RoutesConfig struct {
	Login  string   `yaml:"login"`
	Home   string   `yaml:"home"`
	Public []string `yaml:"public"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote marketplace API.
type APIConfig struct {
	BaseURL     string        `yaml:"base_url" env:"REUSE_API_URL"`
	Prefix      string        `yaml:"prefix" env:"REUSE_API_PREFIX"`
	Timeout     time.Duration `yaml:"timeout" env:"REUSE_API_TIMEOUT"`
	PingTimeout time.Duration `yaml:"ping_timeout" env:"REUSE_API_PING_TIMEOUT"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreBackend selects a tokenstore implementation.
type StoreBackend string

const (
	// StoreMemory keeps the credential in process memory.
	StoreMemory StoreBackend = "memory"
	// StoreFile keeps the credential in a 0600 file.
	StoreFile StoreBackend = "file"
	// StoreRedis keeps the credential under a Redis key.
	StoreRedis StoreBackend = "redis"
)

// StoreConfig selects and configures the token store.
type StoreConfig struct {
	Backend     StoreBackend  `yaml:"backend" env:"REUSE_TOKEN_STORE"`
	FilePath    string        `yaml:"file_path" env:"REUSE_TOKEN_FILE"`
	RedisAddr   string        `yaml:"redis_addr" env:"REUSE_REDIS_ADDR"`
	RedisPrefix string        `yaml:"redis_prefix" env:"REUSE_REDIS_PREFIX"`
	RedisTTL    time.Duration `yaml:"redis_ttl" env:"REUSE_REDIS_TTL"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled" env:"REUSE_AUDIT_ENABLED"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"REUSE_METRICS_ENABLED"`
	EnableLatencyHistograms bool `yaml:"latency_histograms"`
}

/*
====================================
DEV CONFIG
====================================
*/

// DevConfig holds development-only overrides. Every field must stay false in production.
type DevConfig struct {
	// ClearOnBoot wipes the stored credential before the first check on Mount.
	ClearOnBoot bool `yaml:"clear_on_boot" env:"REUSE_CLEAR_ON_BOOT"`
}

// Ordering decides which of several overlapping check completions wins.
type Ordering string

const (
	// OrderingLastCompletion applies every completion of the current mount, so the
	// check that finishes last wins even if it was triggered first.
	OrderingLastCompletion Ordering = "last-completion"
	// OrderingStrict discards a completion when a newer-triggered check has already
	// been applied.
	OrderingStrict Ordering = "strict"
)

const (
	defaultAPITimeout  = 8 * time.Second
	defaultPingTimeout = 2 * time.Second
)

// DefaultConfig returns the configuration the mobile client shipped with.
func DefaultConfig() Config {
	return Config{
		Routes: RoutesConfig{
			Login:  "/login",
			Home:   "/home",
			Public: []string{"/login", "/forgot-password", "/register"},
		},
		API: APIConfig{
			BaseURL:     "http://localhost:8000",
			Prefix:      "/api",
			Timeout:     defaultAPITimeout,
			PingTimeout: defaultPingTimeout,
		},
		Store: StoreConfig{
			Backend:     StoreFile,
			RedisPrefix: "reuse",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Ordering: OrderingLastCompletion,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Routes.Public = append([]string(nil), cfg.Routes.Public...)
	return out
}

// Validate reports the first configuration error, wrapped with [ErrInvalidConfig].
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	if !strings.HasPrefix(c.Routes.Login, "/") {
		return fmt.Errorf("%w: Routes.Login must start with /", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.Routes.Home, "/") {
		return fmt.Errorf("%w: Routes.Home must start with /", ErrInvalidConfig)
	}
	for _, p := range c.Routes.Public {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: Routes.Public contains an empty route", ErrInvalidConfig)
		}
	}
	if !c.Routes.IsPublic(c.Routes.Login) {
		return fmt.Errorf("%w: Routes.Login must be a public route", ErrInvalidConfig)
	}
	if c.Routes.IsPublic(c.Routes.Home) {
		return fmt.Errorf("%w: Routes.Home must not be a public route", ErrInvalidConfig)
	}

	if c.API.Timeout <= 0 || c.API.Timeout > 2*time.Minute {
		return fmt.Errorf("%w: API.Timeout must be in (0, 2m]", ErrInvalidConfig)
	}
	if c.API.PingTimeout <= 0 || c.API.PingTimeout > c.API.Timeout {
		return fmt.Errorf("%w: API.PingTimeout must be in (0, API.Timeout]", ErrInvalidConfig)
	}

	switch c.Store.Backend {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("%w: Store.RedisAddr required for redis backend", ErrInvalidConfig)
		}
		if c.Store.RedisTTL < 0 {
			return fmt.Errorf("%w: Store.RedisTTL must be >= 0", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown Store.Backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.Audit.BufferSize < 0 {
		return fmt.Errorf("%w: Audit.BufferSize must be >= 0", ErrInvalidConfig)
	}

	switch c.Ordering {
	case OrderingLastCompletion, OrderingStrict:
	default:
		return fmt.Errorf("%w: unknown Ordering %q", ErrInvalidConfig, c.Ordering)
	}

	return nil
}

// LoadConfig layers configuration sources over [DefaultConfig]: the YAML file at
// path (skipped when path is empty), then a .env file in the working directory
// when present, then REUSE_* environment variables. The result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	cfg.API.Prefix = strings.TrimRight(cfg.API.Prefix, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
