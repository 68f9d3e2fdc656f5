package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// EnvPrefix prefixes every environment variable read into Config.
const EnvPrefix = "MOCKDECK_"

// Config holds all configurable parameters for the application.
type Config struct {
	RootDir        string `env:"ROOT_DIR, overwrite"`
	Port           int    `env:"PORT, overwrite"`
	RoutePrefix    string `env:"ROUTE_PREFIX, overwrite"`
	DefinitionGlob string `env:"DEFINITION_GLOB, overwrite"`
	TraceSize      int    `env:"TRACE_SIZE, overwrite"`
	LogLevel       string `env:"LOG_LEVEL, overwrite"`
	LogFormat      string `env:"LOG_FORMAT, overwrite"`
	MaxBodyBytes   int64  `env:"MAX_BODY_BYTES, overwrite"`

	MaxLoopIterations int `env:"MAX_LOOP_ITERATIONS, overwrite"`
	TemplateCacheSize int `env:"TEMPLATE_CACHE_SIZE, overwrite"`

	AdminRate      float64       `env:"ADMIN_RATE, overwrite"`
	AdminBurst     int           `env:"ADMIN_BURST, overwrite"`
	RateLimiterTTL time.Duration `env:"RATE_LIMITER_TTL, overwrite"`

	Watch           bool          `env:"WATCH, overwrite"`
	WatcherDebounce time.Duration `env:"WATCHER_DEBOUNCE, overwrite"`
	ReloadAttempts  uint          `env:"RELOAD_ATTEMPTS, overwrite"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT, overwrite"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT, overwrite"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT, overwrite"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, overwrite"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		RootDir:      "./mock",
		Port:         8080,
		TraceSize:    200,
		LogLevel:     "info",
		LogFormat:    "text",
		MaxBodyBytes: 10 << 20,

		MaxLoopIterations: 1000,
		TemplateCacheSize: 512,

		AdminRate:      20,
		AdminBurst:     40,
		RateLimiterTTL: 10 * time.Minute,

		Watch:           true,
		WatcherDebounce: 500 * time.Millisecond,
		ReloadAttempts:  3,

		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ApplyEnv overlays values found through l, keyed by EnvPrefix plus the
// field's env name. A nil l reads the process environment.
func (c *Config) ApplyEnv(ctx context.Context, l envconfig.Lookuper) error {
	if l == nil {
		l = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   c,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	}); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.RootDir) == "" {
		errs = append(errs, errors.New("root dir is required"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.RoutePrefix != "" && !strings.HasPrefix(c.RoutePrefix, "/") {
		errs = append(errs, fmt.Errorf("route prefix %q must start with /", c.RoutePrefix))
	}
	if strings.HasPrefix(c.RoutePrefix, "/__admin") {
		errs = append(errs, fmt.Errorf("route prefix %q collides with the admin namespace", c.RoutePrefix))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.AdminRate < 0 {
		errs = append(errs, fmt.Errorf("admin rate %v must not be negative", c.AdminRate))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("max body bytes %d must not be negative", c.MaxBodyBytes))
	}
	return errors.Join(errs...)
}
