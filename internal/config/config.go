// Package config provides hierarchical configuration loading for a2agate.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the gateway and readiness gate.
type Config struct {
	Server       Server       `yaml:"server"`
	Gateway      Gateway      `yaml:"gateway"`
	Registry     Registry     `yaml:"registry"`
	Features     Features     `yaml:"features"`
	Environments Environments `yaml:"environments"`
	Discovery    Discovery    `yaml:"discovery"`
	Postgres     Postgres     `yaml:"postgres"`
	NATS         NATS         `yaml:"nats"`
	Breaker      Breaker      `yaml:"breaker"`
	Logging      Logging      `yaml:"logging"`
	Telemetry    Telemetry    `yaml:"telemetry"`
	MCP          MCP          `yaml:"mcp"`
	Readiness    Readiness    `yaml:"readiness"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port    string `yaml:"port"`
	BaseURL string `yaml:"base_url"` // advertised in the gateway's own agent card
}

// Gateway holds routing behaviour.
type Gateway struct {
	DefaultEnv     string                   `yaml:"default_env"`     // used when a call names no target_env
	MaxHops        int                      `yaml:"max_hops"`        // call_chain length limit (default: 5)
	DefaultTimeout time.Duration            `yaml:"default_timeout"` // outbound runtime call bound (default: 90s)
	Timeouts       map[string]time.Duration `yaml:"timeouts"`        // per-environment override of DefaultTimeout
	RuntimePath    string                   `yaml:"runtime_path"`    // appended to a card's base_address
}

// TimeoutFor returns the outbound call timeout for env.
func (g *Gateway) TimeoutFor(env string) time.Duration {
	if d, ok := g.Timeouts[env]; ok && d > 0 {
		return d
	}
	return g.DefaultTimeout
}

// Registry holds AgentCard registry configuration.
type Registry struct {
	ProtocolVersion string `yaml:"protocol_version"`
	CardsFile       string `yaml:"cards_file"` // optional YAML seed of cards
}

// Features points at the role x environment live-routing table.
type Features struct {
	File string `yaml:"file"`
}

// Environments points at the environment profile table.
type Environments struct {
	File string `yaml:"file"`
}

// DiscoveryAgent is one agent whose card is fetched at startup.
type DiscoveryAgent struct {
	Role        string `yaml:"role"`
	Environment string `yaml:"environment"`
	URL         string `yaml:"url"` // empty = built from AddressTemplate
}

// Discovery holds remote AgentCard discovery configuration.
type Discovery struct {
	Agents          []DiscoveryAgent `yaml:"agents"`
	AddressTemplate string           `yaml:"address_template"` // {project}, {location}, {role}, {env}
	CacheSizeMB     int64            `yaml:"cache_size_mb"`
	CacheTTL        time.Duration    `yaml:"cache_ttl"`
	FetchTimeout    time.Duration    `yaml:"fetch_timeout"`
	MaxParallel     int              `yaml:"max_parallel"`
	SharedBucket    string           `yaml:"shared_bucket"` // NATS KV bucket shared by replicas; empty = local cache only
}

// Postgres holds PostgreSQL connection configuration. An empty DSN disables
// card persistence.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds NATS JetStream configuration. An empty URL disables route events.
type NATS struct {
	URL string `yaml:"url"`
}

// Breaker holds per-target circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Telemetry holds OpenTelemetry export configuration. An empty endpoint
// keeps the no-op providers.
type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Insecure     bool   `yaml:"insecure"`
}

// MCP holds the agent tool surface configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`    // empty = mounted at /mcp on the main server
	APIKey  string `yaml:"api_key"` // empty = no auth
}

// Readiness holds deployment readiness gate configuration.
type Readiness struct {
	ProjectEnv          string   `yaml:"project_env"`  // name of the project identifier variable
	LocationEnv         string   `yaml:"location_env"` // name of the location/region variable
	RepoRoot            string   `yaml:"repo_root"`
	EntrypointsFile     string   `yaml:"entrypoints_file"`
	PlaceholderPatterns []string `yaml:"placeholder_patterns"`
	SourcePackages      []string `yaml:"source_packages"` // checked for every agent
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:    "8080",
			BaseURL: "http://localhost:8080",
		},
		Gateway: Gateway{
			DefaultEnv:     "dev",
			MaxHops:        5,
			DefaultTimeout: 90 * time.Second,
			RuntimePath:    "/invoke",
		},
		Registry: Registry{
			ProtocolVersion: "0.3.0",
			CardsFile:       "cards.yaml",
		},
		Features: Features{
			File: "features.yaml",
		},
		Environments: Environments{
			File: "environments.yaml",
		},
		Discovery: Discovery{
			CacheSizeMB:  16,
			CacheTTL:     5 * time.Minute,
			FetchTimeout: 10 * time.Second,
			MaxParallel:  4,
			SharedBucket: "a2agate_cards",
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Logging: Logging{
			Level:   "info",
			Service: "a2agate",
		},
		Telemetry: Telemetry{
			ServiceName: "a2agate",
			Insecure:    true,
		},
		MCP: MCP{
			Enabled: true,
		},
		Readiness: Readiness{
			ProjectEnv:          "GOOGLE_CLOUD_PROJECT",
			LocationEnv:         "GOOGLE_CLOUD_LOCATION",
			RepoRoot:            ".",
			EntrypointsFile:     "entrypoints.yaml",
			PlaceholderPatterns: []string{"placeholder", "test-project"},
		},
	}
}
