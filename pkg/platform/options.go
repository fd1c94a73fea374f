package platform

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hatif03/algorand-mcp/pkg/audit"
	algotoolkit "github.com/hatif03/algorand-mcp/pkg/toolkits/algorand"
	"github.com/hatif03/algorand-mcp/pkg/wallet"
)

// Options configures the platform.
type Options struct {
	// Config is the gateway configuration.
	Config *Config

	// Database connection (optional, will be opened from config if the
	// postgres wallet store is selected and this is nil).
	DB *sql.DB

	// AlgorandClient (optional, will be created from config if not provided).
	AlgorandClient algotoolkit.Client

	// WalletStore (optional, will be created from config if not provided).
	WalletStore wallet.Store

	// AuditLogger (optional, will be created from config when audit is
	// enabled and this is nil). Supplying one enables auditing.
	AuditLogger audit.Logger

	// MetricsRegistry (optional, a fresh registry is created when metrics
	// are enabled and this is nil).
	MetricsRegistry *prometheus.Registry
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithDB sets the database connection.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithAlgorandClient sets the Algorand API client.
func WithAlgorandClient(c algotoolkit.Client) Option {
	return func(o *Options) {
		o.AlgorandClient = c
	}
}

// WithWalletStore sets the wallet store.
func WithWalletStore(store wallet.Store) Option {
	return func(o *Options) {
		o.WalletStore = store
	}
}

// WithMetricsRegistry sets the Prometheus registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *Options) {
		o.MetricsRegistry = reg
	}
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(l audit.Logger) Option {
	return func(o *Options) {
		o.AuditLogger = l
	}
}
