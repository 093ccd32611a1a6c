package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/patchbridge/pkg/resolver"
)

// Config holds all host configuration
type Config struct {
	// Plugin loading configuration
	Plugins PluginsConfig

	// Library resolution configuration
	Resolver ResolverConfig

	// Native bridge configuration
	Bridge BridgeConfig

	// Admin HTTP server configuration
	Admin AdminConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// PluginsConfig holds plugin directory settings
type PluginsConfig struct {
	Dir         string
	LibsDirName string
	Watch       bool
	SettleDelay time.Duration
}

// ResolverConfig holds Maven resolution settings
type ResolverConfig struct {
	Repositories []resolver.Repository
	HTTPTimeout  time.Duration
	Workers      int

	// Cache pruning of the per-archive library directories
	PruneSchedule string
	MaxAge        time.Duration
}

// BridgeConfig holds native bridge settings
type BridgeConfig struct {
	RegistryCacheSize int
	RegistryCacheTTL  time.Duration
}

// AdminConfig holds admin HTTP server settings. An empty Addr disables the
// server.
type AdminConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  logrus.Level
	LogFormat string // text or json

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	resolverCfg, err := loadResolverConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Plugins:       loadPluginsConfig(),
		Resolver:      resolverCfg,
		Bridge:        loadBridgeConfig(),
		Admin:         loadAdminConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	return &Config{
		Plugins: PluginsConfig{
			Dir:         "./plugins",
			LibsDirName: "patchbridge-libs",
			SettleDelay: 500 * time.Millisecond,
		},
		Resolver: ResolverConfig{
			Repositories:  resolver.DefaultRepositories,
			HTTPTimeout:   2 * time.Minute,
			Workers:       4,
			PruneSchedule: "@daily",
			MaxAge:        720 * time.Hour,
		},
		Bridge: BridgeConfig{
			RegistryCacheSize: 64,
			RegistryCacheTTL:  5 * time.Minute,
		},
		Admin: AdminConfig{
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:           logrus.InfoLevel,
			LogFormat:          "text",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "patchbridge",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

func loadPluginsConfig() PluginsConfig {
	return PluginsConfig{
		Dir:         getEnv("PATCHBRIDGE_PLUGINS_DIR", "./plugins"),
		LibsDirName: getEnv("PATCHBRIDGE_LIBS_DIR_NAME", "patchbridge-libs"),
		Watch:       getEnvBool("PATCHBRIDGE_WATCH_PLUGINS", false),
		SettleDelay: getEnvDuration("PATCHBRIDGE_WATCH_SETTLE", 500*time.Millisecond),
	}
}

func loadResolverConfig() (ResolverConfig, error) {
	cfg := ResolverConfig{
		Repositories:  resolver.DefaultRepositories,
		HTTPTimeout:   getEnvDuration("PATCHBRIDGE_HTTP_TIMEOUT", 2*time.Minute),
		Workers:       getEnvInt("PATCHBRIDGE_RESOLVE_WORKERS", 4),
		PruneSchedule: getEnv("PATCHBRIDGE_CACHE_PRUNE_SCHEDULE", "@daily"),
		MaxAge:        getEnvDuration("PATCHBRIDGE_CACHE_MAX_AGE", 720*time.Hour),
	}

	if raw := getEnv("PATCHBRIDGE_REPOSITORIES", ""); raw != "" {
		repos, err := resolver.ParseRepositories(raw)
		if err != nil {
			return cfg, fmt.Errorf("PATCHBRIDGE_REPOSITORIES: %w", err)
		}
		cfg.Repositories = repos
	}

	return cfg, nil
}

func loadBridgeConfig() BridgeConfig {
	return BridgeConfig{
		RegistryCacheSize: getEnvInt("PATCHBRIDGE_REGISTRY_CACHE_SIZE", 64),
		RegistryCacheTTL:  getEnvDuration("PATCHBRIDGE_REGISTRY_CACHE_TTL", 5*time.Minute),
	}
}

func loadAdminConfig() AdminConfig {
	return AdminConfig{
		Addr:            getEnv("PATCHBRIDGE_ADMIN_ADDR", ""),
		ReadTimeout:     getEnvDuration("PATCHBRIDGE_ADMIN_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PATCHBRIDGE_ADMIN_WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getEnvDuration("PATCHBRIDGE_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("PATCHBRIDGE_LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("PATCHBRIDGE_LOG_FORMAT", "text")),
		MetricsEnabled:     getEnvBool("PATCHBRIDGE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("PATCHBRIDGE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("PATCHBRIDGE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("PATCHBRIDGE_OTEL_SERVICE_NAME", "patchbridge"),
		OTelServiceVersion: getEnv("PATCHBRIDGE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("PATCHBRIDGE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Plugins.Dir == "" {
		return fmt.Errorf("plugins directory is required")
	}
	if c.Plugins.LibsDirName == "" || strings.ContainsAny(c.Plugins.LibsDirName, `/\`) {
		return fmt.Errorf("invalid libraries directory name: %q", c.Plugins.LibsDirName)
	}

	if len(c.Resolver.Repositories) == 0 {
		return fmt.Errorf("at least one repository is required")
	}
	if c.Resolver.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive")
	}
	if c.Resolver.Workers < 1 {
		return fmt.Errorf("resolve workers must be at least 1")
	}
	if c.Resolver.PruneSchedule != "" {
		if _, err := cron.ParseStandard(c.Resolver.PruneSchedule); err != nil {
			return fmt.Errorf("invalid cache prune schedule %q: %w", c.Resolver.PruneSchedule, err)
		}
		if c.Resolver.MaxAge <= 0 {
			return fmt.Errorf("cache max age must be positive when pruning is scheduled")
		}
	}

	if c.Bridge.RegistryCacheSize < 1 {
		return fmt.Errorf("registry cache size must be at least 1")
	}

	switch c.Observability.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Observability.LogFormat)
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string, falling back to info
func parseLogLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
