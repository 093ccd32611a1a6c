package config

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/patchbridge/pkg/resolver"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{name: "true", envValue: "true", want: true},
		{name: "TRUE", envValue: "TRUE", want: true},
		{name: "one", envValue: "1", want: true},
		{name: "false", envValue: "false", defaultValue: true, want: false},
		{name: "garbage is false", envValue: "yes", defaultValue: true, want: false},
		{name: "unset uses default", envValue: "", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("TEST_BOOL", tt.envValue)
			}
			if got := getEnvBool("TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvInt tests the getEnvInt helper function
func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{name: "valid", envValue: "8", want: 8},
		{name: "negative", envValue: "-3", want: -3},
		{name: "invalid uses default", envValue: "eight", want: 4},
		{name: "unset uses default", envValue: "", want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("TEST_INT", tt.envValue)
			}
			if got := getEnvInt("TEST_INT", 4); got != tt.want {
				t.Errorf("getEnvInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{name: "seconds", envValue: "30s", want: 30 * time.Second},
		{name: "hours", envValue: "720h", want: 720 * time.Hour},
		{name: "invalid uses default", envValue: "soon", want: time.Minute},
		{name: "unset uses default", envValue: "", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("TEST_DURATION", tt.envValue)
			}
			if got := getEnvDuration("TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestParseLogLevel tests log level parsing
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  logrus.Level
	}{
		{"trace", logrus.TraceLevel},
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"verbose", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestLoadConfig_Defaults tests that an empty environment yields the defaults
func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := Default()
	if cfg.Plugins != want.Plugins {
		t.Errorf("Plugins = %+v, want %+v", cfg.Plugins, want.Plugins)
	}
	if cfg.Bridge != want.Bridge {
		t.Errorf("Bridge = %+v, want %+v", cfg.Bridge, want.Bridge)
	}
	if cfg.Admin != want.Admin {
		t.Errorf("Admin = %+v, want %+v", cfg.Admin, want.Admin)
	}
	if cfg.Observability != want.Observability {
		t.Errorf("Observability = %+v, want %+v", cfg.Observability, want.Observability)
	}
	if got := resolver.FormatRepositories(cfg.Resolver.Repositories); got != resolver.FormatRepositories(resolver.DefaultRepositories) {
		t.Errorf("Repositories = %s", got)
	}
	if cfg.Resolver.HTTPTimeout != 2*time.Minute || cfg.Resolver.Workers != 4 {
		t.Errorf("Resolver = %+v", cfg.Resolver)
	}
	if cfg.Resolver.PruneSchedule != "@daily" || cfg.Resolver.MaxAge != 720*time.Hour {
		t.Errorf("Resolver pruning = %q %v", cfg.Resolver.PruneSchedule, cfg.Resolver.MaxAge)
	}
}

// TestLoadConfig_FromEnvironment tests that every variable is honored
func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("PATCHBRIDGE_PLUGINS_DIR", "/srv/server/plugins")
	t.Setenv("PATCHBRIDGE_LIBS_DIR_NAME", "libs")
	t.Setenv("PATCHBRIDGE_WATCH_PLUGINS", "true")
	t.Setenv("PATCHBRIDGE_REPOSITORIES", "internal=https://maven.example.com/releases/,central=https://repo1.maven.org/maven2/")
	t.Setenv("PATCHBRIDGE_HTTP_TIMEOUT", "45s")
	t.Setenv("PATCHBRIDGE_RESOLVE_WORKERS", "8")
	t.Setenv("PATCHBRIDGE_CACHE_PRUNE_SCHEDULE", "0 3 * * *")
	t.Setenv("PATCHBRIDGE_CACHE_MAX_AGE", "48h")
	t.Setenv("PATCHBRIDGE_REGISTRY_CACHE_SIZE", "16")
	t.Setenv("PATCHBRIDGE_REGISTRY_CACHE_TTL", "1m")
	t.Setenv("PATCHBRIDGE_ADMIN_ADDR", "127.0.0.1:9400")
	t.Setenv("PATCHBRIDGE_LOG_LEVEL", "debug")
	t.Setenv("PATCHBRIDGE_LOG_FORMAT", "JSON")
	t.Setenv("PATCHBRIDGE_METRICS_ENABLED", "false")
	t.Setenv("PATCHBRIDGE_OTEL_ENABLED", "true")
	t.Setenv("PATCHBRIDGE_OTEL_ENDPOINT", "collector:4317")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Plugins.Dir != "/srv/server/plugins" || cfg.Plugins.LibsDirName != "libs" || !cfg.Plugins.Watch {
		t.Errorf("Plugins = %+v", cfg.Plugins)
	}
	if len(cfg.Resolver.Repositories) != 2 || cfg.Resolver.Repositories[0].ID != "internal" {
		t.Errorf("Repositories = %+v", cfg.Resolver.Repositories)
	}
	if cfg.Resolver.HTTPTimeout != 45*time.Second || cfg.Resolver.Workers != 8 {
		t.Errorf("Resolver = %+v", cfg.Resolver)
	}
	if cfg.Resolver.PruneSchedule != "0 3 * * *" || cfg.Resolver.MaxAge != 48*time.Hour {
		t.Errorf("Resolver pruning = %q %v", cfg.Resolver.PruneSchedule, cfg.Resolver.MaxAge)
	}
	if cfg.Bridge.RegistryCacheSize != 16 || cfg.Bridge.RegistryCacheTTL != time.Minute {
		t.Errorf("Bridge = %+v", cfg.Bridge)
	}
	if cfg.Admin.Addr != "127.0.0.1:9400" {
		t.Errorf("Admin.Addr = %q", cfg.Admin.Addr)
	}
	obs := cfg.Observability
	if obs.LogLevel != logrus.DebugLevel || obs.LogFormat != "json" || obs.MetricsEnabled {
		t.Errorf("Observability = %+v", obs)
	}
	if !obs.OTelEnabled || obs.OTelEndpoint != "collector:4317" {
		t.Errorf("OTel = %+v", obs)
	}
}

// TestLoadConfig_InvalidRepositories tests repository parse failures
func TestLoadConfig_InvalidRepositories(t *testing.T) {
	t.Setenv("PATCHBRIDGE_REPOSITORIES", "central")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for repository without url")
	}
	if !strings.Contains(err.Error(), "PATCHBRIDGE_REPOSITORIES") {
		t.Errorf("error = %v, want it to name the variable", err)
	}
}

// TestValidate tests configuration validation
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing plugins dir",
			mutate:  func(c *Config) { c.Plugins.Dir = "" },
			wantErr: "plugins directory",
		},
		{
			name:    "libs dir name with separator",
			mutate:  func(c *Config) { c.Plugins.LibsDirName = "a/b" },
			wantErr: "libraries directory",
		},
		{
			name:    "no repositories",
			mutate:  func(c *Config) { c.Resolver.Repositories = nil },
			wantErr: "repository",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Resolver.HTTPTimeout = 0 },
			wantErr: "timeout",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Resolver.Workers = 0 },
			wantErr: "workers",
		},
		{
			name:    "bad schedule",
			mutate:  func(c *Config) { c.Resolver.PruneSchedule = "every day" },
			wantErr: "schedule",
		},
		{
			name: "empty schedule disables pruning",
			mutate: func(c *Config) {
				c.Resolver.PruneSchedule = ""
				c.Resolver.MaxAge = 0
			},
		},
		{
			name:    "schedule without max age",
			mutate:  func(c *Config) { c.Resolver.MaxAge = 0 },
			wantErr: "max age",
		},
		{
			name:    "registry cache size",
			mutate:  func(c *Config) { c.Bridge.RegistryCacheSize = 0 },
			wantErr: "registry cache",
		},
		{
			name:    "log format",
			mutate:  func(c *Config) { c.Observability.LogFormat = "xml" },
			wantErr: "log format",
		},
		{
			name: "otel without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "endpoint",
		},
		{
			name: "otel without service name",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelServiceName = ""
			},
			wantErr: "service name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
