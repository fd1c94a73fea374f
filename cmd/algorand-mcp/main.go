// Package main provides the entry point for the algorand-mcp server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata" // IANA zones for get_current_time on minimal images

	"github.com/hatif03/algorand-mcp/pkg/platform"
)

// version is set at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type serverOptions struct {
	configPath  string
	transport   string
	address     string
	showVersion bool

	// set records which flags were given explicitly.
	set map[string]bool
}

func parseFlags(args []string) (serverOptions, error) {
	opts := serverOptions{set: make(map[string]bool)}
	fs := flag.NewFlagSet("algorand-mcp", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.transport, "transport", platform.TransportStdio, "Transport type: stdio, http")
	fs.StringVar(&opts.address, "address", ":8081", "Listen address for the http transport")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("parsing flags: %w", err)
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// loadConfig loads the file and environment configuration, then applies
// explicitly set flags on top.
func loadConfig(opts serverOptions) (*platform.Config, error) {
	cfg, err := platform.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if opts.set["transport"] {
		cfg.Server.Transport = opts.transport
	}
	if opts.set["address"] {
		cfg.Server.Address = opts.address
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Output goes to w, which is stderr
// in production so the stdio transport keeps stdout for protocol traffic.
func newLogger(cfg platform.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}

func run(args []string) error {
	if len(args) > 0 && args[0] == "migrate" {
		return runMigrate(args[1:], os.Stdout)
	}

	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Printf("algorand-mcp version %s\n", version)
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg.Logging, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := platform.New(platform.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("creating platform: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			slog.Warn("closing platform", "error", err)
		}
	}()

	slog.Info("starting algorand-mcp",
		"version", version,
		"transport", cfg.Server.Transport,
		"network", cfg.Algorand.Network,
		"wallet_store", cfg.Wallet.Store,
	)
	return startServer(ctx, p, cfg.Server.Transport)
}

// server is the part of the platform startServer drives.
type server interface {
	RunStdio(ctx context.Context) error
	ListenAndServe(ctx context.Context) error
}

func startServer(ctx context.Context, s server, transport string) error {
	var err error
	switch transport {
	case platform.TransportStdio:
		err = s.RunStdio(ctx)
	case platform.TransportHTTP:
		err = s.ListenAndServe(ctx)
	default:
		return fmt.Errorf("unknown transport: %s", transport)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s transport: %w", transport, err)
	}
	return nil
}
