// Package platform wires the gateway together: configuration, toolkits,
// the MCP server, the session router and the HTTP surface.
package platform

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hatif03/algorand-mcp/pkg/algorand"
)

// Transports supported by the gateway.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Wallet store kinds.
const (
	WalletStoreMemory   = "memory"
	WalletStorePostgres = "postgres"
)

// Audit store kinds.
const (
	AuditStoreMemory   = "memory"
	AuditStorePostgres = "postgres"
)

const (
	defaultServerName      = "algorand-mcp"
	defaultServerVersion   = "1.0.0"
	defaultAddress         = ":8081"
	defaultShutdownTimeout = 25 * time.Second
	defaultMaxOpenConns    = 10
	defaultMetricsPath     = "/metrics"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultAuditCapacity   = 1000
	defaultAuditRetention  = 30
	defaultAuditCleanup    = time.Hour
)

// Config holds the complete gateway configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Sessions SessionsConfig `yaml:"sessions"`
	Auth     AuthConfig     `yaml:"auth"`
	Algorand AlgorandConfig `yaml:"algorand"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Database DatabaseConfig `yaml:"database"`
	Audit    AuditConfig    `yaml:"audit"`
	Tools    ToolsConfig    `yaml:"tools"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the MCP server and its HTTP listener.
type ServerConfig struct {
	Name            string         `yaml:"name"`
	Version         string         `yaml:"version"`
	Instructions    string         `yaml:"instructions"` // Returned to clients on initialize
	Prompts         []PromptConfig `yaml:"prompts"`
	Transport       string         `yaml:"transport"` // "stdio", "http"
	Address         string         `yaml:"address"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
	CORS            CORSConfig     `yaml:"cors"`
}

// PromptConfig defines a server-level MCP prompt.
type PromptConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

// CORSConfig configures cross-origin access to the MCP endpoint.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SessionsConfig configures the session router.
type SessionsConfig struct {
	// IdleTimeout closes sessions idle for longer than this. Zero keeps
	// sessions until the client deletes them or the server stops.
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	ReapInterval time.Duration `yaml:"reap_interval"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// AuthConfig configures access to the MCP endpoint.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// AlgorandConfig configures the upstream Algorand APIs.
type AlgorandConfig struct {
	Network           string             `yaml:"network"` // "testnet", "mainnet", "localnet"
	Endpoints         algorand.Endpoints `yaml:"endpoints"`
	AlgodToken        string             `yaml:"algod_token"`
	IndexerToken      string             `yaml:"indexer_token"`
	RequestsPerSecond float64            `yaml:"requests_per_second"`
	Timeout           time.Duration      `yaml:"timeout"`
}

// WalletConfig configures the encrypted wallet store.
type WalletConfig struct {
	Store string    `yaml:"store"` // "memory", "postgres"
	KDF   KDFConfig `yaml:"kdf"`
}

// KDFConfig holds scrypt cost parameters. Zero values use the defaults.
type KDFConfig struct {
	N int `yaml:"n"`
	R int `yaml:"r"`
	P int `yaml:"p"`
}

// DatabaseConfig configures the database connection.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// AuditConfig configures the tool-call audit trail.
type AuditConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Store           string        `yaml:"store"`    // "memory", "postgres"
	Capacity        int           `yaml:"capacity"` // memory store only
	RetentionDays   int           `yaml:"retention_days"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// ToolsConfig filters which tools are exposed.
type ToolsConfig struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "text"
}

// envOverlay holds the environment variables that override file settings.
type envOverlay struct {
	Port         string   `env:"PORT"`
	Network      string   `env:"ALGORAND_NETWORK"`
	AlgodURL     string   `env:"ALGORAND_ALGOD_URL"`
	AlgodToken   string   `env:"ALGORAND_ALGOD_TOKEN"`
	IndexerURL   string   `env:"ALGORAND_INDEXER_URL"`
	IndexerToken string   `env:"ALGORAND_INDEXER_TOKEN"`
	DatabaseURL  string   `env:"DATABASE_URL"`
	LogLevel     string   `env:"LOG_LEVEL"`
	APIKeys      []string `env:"MCP_API_KEYS" envSeparator:","`
}

// LoadConfig loads configuration from a file, then applies the environment
// overlay and defaults. An empty path yields defaults plus environment.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		// #nosec G304 -- path is from CLI args, controlled by admin
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// Expand environment variables
		data = []byte(expandEnvVars(string(data)))

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyEnv overrides file settings with any set environment variables.
func applyEnv(cfg *Config) error {
	var o envOverlay
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	if o.Port != "" {
		cfg.Server.Address = ":" + o.Port
	}
	setIfNotEmpty(&cfg.Algorand.Network, o.Network)
	setIfNotEmpty(&cfg.Algorand.Endpoints.AlgodURL, o.AlgodURL)
	setIfNotEmpty(&cfg.Algorand.AlgodToken, o.AlgodToken)
	setIfNotEmpty(&cfg.Algorand.Endpoints.IndexerURL, o.IndexerURL)
	setIfNotEmpty(&cfg.Algorand.IndexerToken, o.IndexerToken)
	setIfNotEmpty(&cfg.Database.DSN, o.DatabaseURL)
	setIfNotEmpty(&cfg.Logging.Level, o.LogLevel)
	if len(o.APIKeys) > 0 {
		cfg.Auth.APIKeys = o.APIKeys
	}
	return nil
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = defaultServerName
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = defaultServerVersion
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Algorand.Network == "" {
		cfg.Algorand.Network = string(algorand.Testnet)
	}
	if cfg.Algorand.Timeout == 0 {
		cfg.Algorand.Timeout = algorand.DefaultTimeout
	}
	if cfg.Wallet.Store == "" {
		cfg.Wallet.Store = WalletStoreMemory
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Audit.Store == "" {
		cfg.Audit.Store = AuditStoreMemory
	}
	if cfg.Audit.Capacity == 0 {
		cfg.Audit.Capacity = defaultAuditCapacity
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = defaultAuditRetention
	}
	if cfg.Audit.CleanupInterval == 0 {
		cfg.Audit.CleanupInterval = defaultAuditCleanup
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaultLogFormat
	}
}

// Validate validates the configuration. Empty fields are accepted because
// defaults fill them.
func (c *Config) Validate() error {
	var errs []string

	if t := c.Server.Transport; t != "" && t != TransportStdio && t != TransportHTTP {
		errs = append(errs, fmt.Sprintf("server.transport must be %q or %q, got %q", TransportStdio, TransportHTTP, t))
	}

	if c.Algorand.Network != "" {
		if _, err := algorand.Preset(algorand.Network(c.Algorand.Network)); err != nil {
			errs = append(errs, "algorand.network: "+err.Error())
		}
	}

	switch c.Wallet.Store {
	case "", WalletStoreMemory:
	case WalletStorePostgres:
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required when wallet.store is postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("wallet.store must be %q or %q, got %q", WalletStoreMemory, WalletStorePostgres, c.Wallet.Store))
	}

	switch c.Audit.Store {
	case "", AuditStoreMemory:
	case AuditStorePostgres:
		if c.Audit.Enabled && c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required when audit.store is postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("audit.store must be %q or %q, got %q", AuditStoreMemory, AuditStorePostgres, c.Audit.Store))
	}
	if c.Audit.Capacity < 0 || c.Audit.RetentionDays < 0 || c.Audit.CleanupInterval < 0 {
		errs = append(errs, "audit capacity, retention_days and cleanup_interval must not be negative")
	}

	if c.Sessions.IdleTimeout < 0 {
		errs = append(errs, "sessions.idle_timeout must not be negative")
	}
	if c.Sessions.MaxBodyBytes < 0 {
		errs = append(errs, "sessions.max_body_bytes must not be negative")
	}

	if p := c.Metrics.Path; p != "" && !strings.HasPrefix(p, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if l := c.Logging.Level; l != "" && !slices.Contains([]string{"debug", "info", "warn", "error"}, l) {
		errs = append(errs, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", l))
	}
	if f := c.Logging.Format; f != "" && f != "json" && f != "text" {
		errs = append(errs, fmt.Sprintf("logging.format %q is not one of json, text", f))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
