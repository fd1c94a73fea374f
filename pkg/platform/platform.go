package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/lib/pq" // PostgreSQL driver

	algoclient "github.com/hatif03/algorand-mcp/pkg/algorand"
	"github.com/hatif03/algorand-mcp/pkg/audit"
	auditpostgres "github.com/hatif03/algorand-mcp/pkg/audit/postgres"
	"github.com/hatif03/algorand-mcp/pkg/database/migrate"
	"github.com/hatif03/algorand-mcp/pkg/health"
	"github.com/hatif03/algorand-mcp/pkg/middleware"
	"github.com/hatif03/algorand-mcp/pkg/registry"
	"github.com/hatif03/algorand-mcp/pkg/session"
	algotoolkit "github.com/hatif03/algorand-mcp/pkg/toolkits/algorand"
	"github.com/hatif03/algorand-mcp/pkg/toolkits/utility"
	wallettoolkit "github.com/hatif03/algorand-mcp/pkg/toolkits/wallet"
	"github.com/hatif03/algorand-mcp/pkg/wallet"
	"github.com/hatif03/algorand-mcp/pkg/wallet/postgres"
)

const (
	defaultToolkitName = "default"

	slogKeyError = "error"
)

// Platform is the main gateway facade.
type Platform struct {
	config *Config

	// Core components
	mcpServer *mcp.Server
	lifecycle *Lifecycle
	health    *health.Checker

	// Session router, built only for the HTTP transport.
	router *session.Router

	// Registries
	toolkitRegistry *registry.Registry
	metricsRegistry *prometheus.Registry

	// Metrics, nil when disabled
	toolMetrics    *middleware.Metrics
	sessionMetrics *session.Metrics

	algorandClient algotoolkit.Client

	// Audit trail, nil when disabled
	auditLogger audit.Logger

	db       *sql.DB
	ownsDB   bool
	migrated bool
}

// New creates a new gateway instance.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, errors.New("config is required")
	}

	p := &Platform{
		config:    options.Config,
		lifecycle: NewLifecycle(),
	}

	if err := p.initializeComponents(options); err != nil {
		if closeErr := p.Close(); closeErr != nil {
			slog.Warn("platform: cleanup after failed init", slogKeyError, closeErr)
		}
		return nil, fmt.Errorf("initializing components: %w", err)
	}

	return p, nil
}

// initializeComponents initializes all gateway components.
func (p *Platform) initializeComponents(opts *Options) error {
	p.initMetrics(opts)
	if err := p.initToolkits(opts); err != nil {
		return err
	}
	if err := p.initAudit(opts); err != nil {
		return err
	}
	p.initServer()
	p.initRouter()
	p.initLifecycle()
	p.validateToolFilters()
	return nil
}

// initMetrics creates the Prometheus registry and collectors. Metrics are
// enabled by config or by supplying a registry.
func (p *Platform) initMetrics(opts *Options) {
	reg := opts.MetricsRegistry
	if reg == nil {
		if !p.config.Metrics.Enabled {
			return
		}
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	p.metricsRegistry = reg
	p.toolMetrics = middleware.NewMetrics(reg)
	p.sessionMetrics = session.NewMetrics(reg)
}

// initToolkits creates the toolkits and registers them.
func (p *Platform) initToolkits(opts *Options) error {
	p.toolkitRegistry = registry.NewRegistry()

	client, err := p.createAlgorandClient(opts)
	if err != nil {
		return fmt.Errorf("creating algorand client: %w", err)
	}
	p.algorandClient = client

	algoTK, err := algotoolkit.New(defaultToolkitName, client)
	if err != nil {
		return fmt.Errorf("creating algorand toolkit: %w", err)
	}

	store, err := p.createWalletStore(opts)
	if err != nil {
		return fmt.Errorf("creating wallet store: %w", err)
	}

	kdf := p.config.Wallet.KDF
	walletTK, err := wallettoolkit.New(defaultToolkitName, store, wallet.NewVault(wallet.KDFParams{
		N: kdf.N,
		R: kdf.R,
		P: kdf.P,
	}))
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("creating wallet toolkit: %w", err)
	}

	for _, tk := range []registry.Toolkit{utility.New(defaultToolkitName), algoTK, walletTK} {
		if err := p.toolkitRegistry.Register(tk); err != nil {
			return fmt.Errorf("registering %s toolkit: %w", tk.Kind(), err)
		}
	}
	return nil
}

// createAlgorandClient returns the injected client or builds one from config.
func (p *Platform) createAlgorandClient(opts *Options) (algotoolkit.Client, error) {
	if opts.AlgorandClient != nil {
		return opts.AlgorandClient, nil
	}

	cfg := p.config.Algorand
	c, err := algoclient.NewClient(algoclient.Config{
		Network:           algoclient.Network(cfg.Network),
		Endpoints:         cfg.Endpoints,
		AlgodToken:        cfg.AlgodToken,
		IndexerToken:      cfg.IndexerToken,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	return c, nil
}

// createWalletStore returns the injected store or builds one from config.
func (p *Platform) createWalletStore(opts *Options) (wallet.Store, error) {
	if opts.WalletStore != nil {
		return opts.WalletStore, nil
	}

	switch p.config.Wallet.Store {
	case WalletStorePostgres:
		db, err := p.migratedDB(opts)
		if err != nil {
			return nil, err
		}
		return postgres.New(db), nil
	case "", WalletStoreMemory:
		return wallet.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown wallet store %q", p.config.Wallet.Store)
	}
}

// initAudit creates the audit logger. Auditing is enabled by config or by
// supplying a logger.
func (p *Platform) initAudit(opts *Options) error {
	if opts.AuditLogger != nil {
		p.auditLogger = opts.AuditLogger
		return nil
	}

	cfg := p.config.Audit
	if !cfg.Enabled {
		return nil
	}

	switch cfg.Store {
	case AuditStorePostgres:
		db, err := p.migratedDB(opts)
		if err != nil {
			return fmt.Errorf("creating audit store: %w", err)
		}
		store := auditpostgres.New(db, auditpostgres.Config{RetentionDays: cfg.RetentionDays})
		if cfg.CleanupInterval > 0 {
			store.StartCleanupRoutine(cfg.CleanupInterval)
		}
		p.auditLogger = store
	case "", AuditStoreMemory:
		p.auditLogger = audit.NewMemoryLogger(cfg.Capacity)
	default:
		return fmt.Errorf("unknown audit store %q", cfg.Store)
	}
	return nil
}

// migratedDB returns the database with the schema migrated. Migrations
// run once however many stores share the database.
func (p *Platform) migratedDB(opts *Options) (*sql.DB, error) {
	db, err := p.openDB(opts)
	if err != nil {
		return nil, err
	}
	if !p.migrated {
		if err := migrate.Run(db); err != nil {
			return nil, fmt.Errorf("migrating database schema: %w", err)
		}
		p.migrated = true
	}
	return db, nil
}

// openDB returns the injected database or opens one from config.
func (p *Platform) openDB(opts *Options) (*sql.DB, error) {
	if p.db != nil {
		return p.db, nil
	}
	if opts.DB != nil {
		p.db = opts.DB
		return opts.DB, nil
	}
	if p.config.Database.DSN == "" {
		return nil, errors.New("database.dsn is required for postgres stores")
	}

	db, err := sql.Open("postgres", p.config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(p.config.Database.MaxOpenConns)

	p.db = db
	p.ownsDB = true
	return db, nil
}

// initServer creates the MCP server and registers tools, prompts and
// resources on it.
func (p *Platform) initServer() {
	p.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    p.config.Server.Name,
		Version: p.config.Server.Version,
	}, &mcp.ServerOptions{
		Instructions: p.config.Server.Instructions,
	})

	p.toolkitRegistry.RegisterAllTools(p.mcpServer)
	p.registerInfoTool()
	p.registerAuditTool()
	p.registerServerPrompts()

	// The tool-call middleware is outermost so logging, audit, metrics and
	// the visibility gate all run inside its CallContext.
	p.mcpServer.AddReceivingMiddleware(
		middleware.MCPToolCallMiddleware(p.toolkitRegistry),
		middleware.MCPLoggingMiddleware(),
		middleware.MCPAuditMiddleware(p.auditLogger),
		middleware.MCPMetricsMiddleware(p.toolMetrics),
		middleware.MCPToolVisibilityMiddleware(p.config.Tools.Allow, p.config.Tools.Deny),
	)
}

// initRouter builds the session router for the HTTP transport.
func (p *Platform) initRouter() {
	var counter health.SessionCounter
	if p.config.Server.Transport == TransportHTTP {
		p.router = session.NewRouter(session.NewSDKFactory(p.mcpServer), session.RouterConfig{
			Metrics:      p.sessionMetrics,
			MaxBodyBytes: p.config.Sessions.MaxBodyBytes,
			IdleTimeout:  p.config.Sessions.IdleTimeout,
			ReapInterval: p.config.Sessions.ReapInterval,
		})
		counter = p.router.Registry()
	}
	p.health = health.NewChecker(counter)
}

// initLifecycle registers session shutdown and readiness with the
// lifecycle. Readiness is registered last so it drains first on Stop.
func (p *Platform) initLifecycle() {
	p.lifecycle.Append(Hook{
		Name: "sessions",
		OnStop: func(ctx context.Context) error {
			if p.router == nil {
				return nil
			}
			if err := p.router.Close(ctx); err != nil {
				return fmt.Errorf("closing sessions: %w", err)
			}
			return nil
		},
	})
	p.lifecycle.Append(Hook{
		Name: "readiness",
		OnStart: func(_ context.Context) error {
			p.health.SetReady()
			return nil
		},
		OnStop: func(_ context.Context) error {
			p.health.SetDraining()
			return nil
		},
	})
}

// Start starts the gateway.
func (p *Platform) Start(ctx context.Context) error {
	return p.lifecycle.Start(ctx)
}

// Stop drains the gateway and closes every live session.
func (p *Platform) Stop(ctx context.Context) error {
	return p.lifecycle.Stop(ctx)
}

// MCPServer returns the MCP server.
func (p *Platform) MCPServer() *mcp.Server {
	return p.mcpServer
}

// Config returns the gateway configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// ToolkitRegistry returns the toolkit registry.
func (p *Platform) ToolkitRegistry() *registry.Registry {
	return p.toolkitRegistry
}

// Router returns the session router, or nil for the stdio transport.
func (p *Platform) Router() *session.Router {
	return p.router
}

// Health returns the readiness checker.
func (p *Platform) Health() *health.Checker {
	return p.health
}

// AuditLogger returns the audit logger, or nil when auditing is disabled.
func (p *Platform) AuditLogger() audit.Logger {
	return p.auditLogger
}

// MetricsRegistry returns the Prometheus registry, or nil when metrics are
// disabled.
func (p *Platform) MetricsRegistry() *prometheus.Registry {
	return p.metricsRegistry
}

// closeResource closes a resource and appends any error.
func closeResource(errs *[]error, closer Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		*errs = append(*errs, err)
	}
}

// Close closes all gateway resources. It does not close live sessions;
// call Stop first.
func (p *Platform) Close() error {
	var errs []error

	if p.toolkitRegistry != nil {
		closeResource(&errs, p.toolkitRegistry)
	}
	if p.auditLogger != nil {
		closeResource(&errs, p.auditLogger)
	}
	if p.ownsDB && p.db != nil {
		closeResource(&errs, p.db)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing platform: %w", errors.Join(errs...))
	}
	return nil
}
