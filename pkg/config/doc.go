// Package config loads host configuration from environment variables.
//
// # Overview
//
// Every setting has a default, so the host starts with an empty
// environment. LoadConfig reads the environment and validates the result.
//
// # Configuration Structure
//
// Plugin settings:
//
//	PATCHBRIDGE_PLUGINS_DIR="./plugins"
//	PATCHBRIDGE_LIBS_DIR_NAME="patchbridge-libs"
//	PATCHBRIDGE_WATCH_PLUGINS="false"
//	PATCHBRIDGE_WATCH_SETTLE="500ms"
//
// Library resolution:
//
//	PATCHBRIDGE_REPOSITORIES="papermc=https://repo.papermc.io/repository/maven-public/,central=https://repo1.maven.org/maven2/"
//	PATCHBRIDGE_HTTP_TIMEOUT="2m"
//	PATCHBRIDGE_RESOLVE_WORKERS="4"
//	PATCHBRIDGE_CACHE_PRUNE_SCHEDULE="@daily"  # empty disables pruning
//	PATCHBRIDGE_CACHE_MAX_AGE="720h"
//
// Bridge settings:
//
//	PATCHBRIDGE_REGISTRY_CACHE_SIZE="64"
//	PATCHBRIDGE_REGISTRY_CACHE_TTL="5m"
//
// Admin server (empty address disables it):
//
//	PATCHBRIDGE_ADMIN_ADDR="127.0.0.1:9400"
//	PATCHBRIDGE_SHUTDOWN_TIMEOUT="30s"
//
// Observability settings:
//
//	PATCHBRIDGE_LOG_LEVEL="info"  # trace, debug, info, warn, error
//	PATCHBRIDGE_LOG_FORMAT="text" # text, json
//	PATCHBRIDGE_METRICS_ENABLED="true"
//	PATCHBRIDGE_OTEL_ENABLED="true"
//	PATCHBRIDGE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Plugins: %s\n", cfg.Plugins.Dir)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/host: Builds the runtime from a Config
//   - pkg/observability: Uses observability configuration
package config
