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

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "a2agate.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// A2AGATE_CONFIG overrides the YAML path; a missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if v := os.Getenv("A2AGATE_CONFIG"); v != "" {
		path = v
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "A2AGATE_PORT")
	setString(&cfg.Server.BaseURL, "A2AGATE_BASE_URL")

	// Gateway
	setString(&cfg.Gateway.DefaultEnv, "A2AGATE_DEFAULT_ENV")
	setInt(&cfg.Gateway.MaxHops, "A2AGATE_MAX_HOPS")
	setDuration(&cfg.Gateway.DefaultTimeout, "A2AGATE_TIMEOUT")
	setString(&cfg.Gateway.RuntimePath, "A2AGATE_RUNTIME_PATH")

	// Static tables
	setString(&cfg.Registry.ProtocolVersion, "A2AGATE_PROTOCOL_VERSION")
	setString(&cfg.Registry.CardsFile, "A2AGATE_CARDS_FILE")
	setString(&cfg.Features.File, "A2AGATE_FEATURES_FILE")
	setString(&cfg.Environments.File, "A2AGATE_ENVIRONMENTS_FILE")

	// Discovery
	setString(&cfg.Discovery.AddressTemplate, "A2AGATE_DISCOVERY_ADDRESS_TEMPLATE")
	setInt64(&cfg.Discovery.CacheSizeMB, "A2AGATE_DISCOVERY_CACHE_SIZE_MB")
	setDuration(&cfg.Discovery.CacheTTL, "A2AGATE_DISCOVERY_CACHE_TTL")
	setDuration(&cfg.Discovery.FetchTimeout, "A2AGATE_DISCOVERY_FETCH_TIMEOUT")
	setString(&cfg.Discovery.SharedBucket, "A2AGATE_DISCOVERY_SHARED_BUCKET")

	// Infrastructure
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "A2AGATE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "A2AGATE_PG_MIN_CONNS")
	setString(&cfg.NATS.URL, "NATS_URL")
	setInt(&cfg.Breaker.MaxFailures, "A2AGATE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "A2AGATE_BREAKER_TIMEOUT")

	// Observability
	setString(&cfg.Logging.Level, "A2AGATE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "A2AGATE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "A2AGATE_LOG_ASYNC")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Telemetry.ServiceName, "OTEL_SERVICE_NAME")

	// MCP
	setBool(&cfg.MCP.Enabled, "A2AGATE_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "A2AGATE_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "A2AGATE_MCP_API_KEY")

	// Readiness
	setString(&cfg.Readiness.ProjectEnv, "A2AGATE_PROJECT_ENV")
	setString(&cfg.Readiness.LocationEnv, "A2AGATE_LOCATION_ENV")
	setString(&cfg.Readiness.RepoRoot, "A2AGATE_REPO_ROOT")
	setString(&cfg.Readiness.EntrypointsFile, "A2AGATE_ENTRYPOINTS_FILE")
	setStrings(&cfg.Readiness.PlaceholderPatterns, "A2AGATE_PLACEHOLDER_PATTERNS")
	setStrings(&cfg.Readiness.SourcePackages, "A2AGATE_SOURCE_PACKAGES")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Gateway.DefaultEnv == "" {
		return errors.New("gateway.default_env is required")
	}
	if cfg.Gateway.MaxHops < 1 {
		return errors.New("gateway.max_hops must be >= 1")
	}
	if cfg.Gateway.DefaultTimeout <= 0 {
		return errors.New("gateway.default_timeout must be > 0")
	}
	for env, d := range cfg.Gateway.Timeouts {
		if d <= 0 {
			return fmt.Errorf("gateway.timeouts.%s must be > 0", env)
		}
	}
	if cfg.Registry.ProtocolVersion == "" {
		return errors.New("registry.protocol_version is required")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Readiness.ProjectEnv == "" || cfg.Readiness.LocationEnv == "" {
		return errors.New("readiness.project_env and readiness.location_env are required")
	}
	for i, a := range cfg.Discovery.Agents {
		if a.Role == "" || a.Environment == "" {
			return fmt.Errorf("discovery.agents[%d]: role and environment are required", i)
		}
		if a.URL == "" && cfg.Discovery.AddressTemplate == "" {
			return fmt.Errorf("discovery.agents[%d]: url or discovery.address_template is required", i)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
