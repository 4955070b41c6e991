// Momentd matches a user's captured thoughts to upcoming moments.
//
// This binary starts the momentd HTTP API and, when NATS is enabled, the
// calendar subscriber and lifecycle event publisher.
//
// Configuration is read from ~/.config/momentd/config.yaml (or -config) and
// MOMENTD_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	momentd
//
//	# Use a specific config file
//	momentd -config /etc/momentd/config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/momentd/internal/config"
	"github.com/fyrsmithlabs/momentd/internal/events"
	httpserver "github.com/fyrsmithlabs/momentd/internal/http"
	"github.com/fyrsmithlabs/momentd/internal/learning"
	"github.com/fyrsmithlabs/momentd/internal/logging"
	"github.com/fyrsmithlabs/momentd/internal/matching"
	"github.com/fyrsmithlabs/momentd/internal/moments"
	"github.com/fyrsmithlabs/momentd/internal/scorer"
	"github.com/fyrsmithlabs/momentd/internal/secrets"
	"github.com/fyrsmithlabs/momentd/internal/store"
	"github.com/fyrsmithlabs/momentd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  momentd [-config path]   Start the momentd daemon\n")
			fmt.Fprintf(os.Stderr, "  momentd version          Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("momentd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts momentd and blocks until ctx is cancelled.
//
//  1. Loads and validates configuration
//  2. Initializes telemetry and the logger
//  3. Opens the database and connects to NATS
//  4. Builds the scorer, learning and moment services
//  5. Starts the calendar subscriber and HTTP server
//  6. Shuts down gracefully on cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting momentd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Driver),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.Bool("nats", cfg.NATS.Enabled),
		zap.Bool("telemetry", tel.IsEnabled()))
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", h.Reason))
	}

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	svc, err := initServices(cfg, deps, tel, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	opts := []httpserver.Option{
		httpserver.WithHealthCheck("database", deps.store.Ping),
		httpserver.WithMeterProvider(tel.MeterProvider()),
	}
	if deps.natsConn != nil {
		nc := deps.natsConn
		opts = append(opts, httpserver.WithHealthCheck("nats", func(context.Context) error {
			if !nc.IsConnected() {
				return fmt.Errorf("nats %s", nc.Status())
			}
			return nil
		}))

		sub := events.NewCalendarSubscriber(nc, cfg.NATS.SubjectPrefix, svc, logger)
		if err := sub.Start(); err != nil {
			return err
		}
		defer func() {
			_ = sub.Stop()
		}()
	}

	srv, err := httpserver.NewServer(svc, logger, &httpserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	go watchConfig(ctx, configPath, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// dependencies holds all infrastructure dependencies.
type dependencies struct {
	store    *store.Store
	natsConn *nats.Conn
	logger   *logging.Logger
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	if d.natsConn != nil {
		_ = d.natsConn.Drain()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn(context.Background(), "failed to close database", zap.Error(err))
		}
	}
}

// initLogger builds the logger, bridging to OTEL when telemetry is up.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	lcfg, err := logging.FromAppConfig(cfg.Logging, tel.IsEnabled())
	if err != nil {
		return nil, err
	}
	if tel.IsEnabled() {
		return logging.NewLogger(lcfg, tel.LoggerProvider())
	}
	return logging.NewLogger(lcfg, nil)
}

// initDependencies opens the database and, when enabled, connects to NATS.
func initDependencies(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*dependencies, error) {
	st, err := store.Open(ctx, cfg.Database, logger.Named("store"))
	if err != nil {
		return nil, err
	}
	deps := &dependencies{store: st, logger: logger}

	if cfg.NATS.Enabled {
		nc, err := events.Connect(ctx, cfg.NATS, logger)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.natsConn = nc
	}
	return deps, nil
}

// initServices builds the scorer and the learning and moment services.
func initServices(cfg *config.Config, deps *dependencies, tel *telemetry.Telemetry, logger *logging.Logger) (*moments.Service, error) {
	scrubber, err := initScrubber(cfg.Secrets)
	if err != nil {
		return nil, err
	}

	sc, err := scorer.New(cfg.AI)
	if err != nil {
		return nil, err
	}
	logger.Info(context.Background(), "scorer configured",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", cfg.AI.Model),
		logging.Secret("api_key", cfg.AI.APIKey))
	client := matching.NewClient(sc,
		matching.WithScrubber(scrubber),
		matching.WithLogger(logger.Named("matching")),
	)

	learner, err := learning.NewService(deps.store, logger.Named("learning"))
	if err != nil {
		return nil, err
	}

	opts := []moments.Option{
		moments.WithLogger(logger.Named("moments")),
		moments.WithTracerProvider(tel.TracerProvider()),
	}
	if deps.natsConn != nil {
		opts = append(opts, moments.WithNotifier(events.NewPublisher(deps.natsConn, cfg.NATS.SubjectPrefix, logger)))
	}
	return moments.NewService(deps.store, learner, client, opts...)
}

// initScrubber builds the scrubber applied to text sent to the AI provider.
func initScrubber(cfg config.SecretsConfig) (secrets.Scrubber, error) {
	if !cfg.Enabled {
		return secrets.NoopScrubber{}, nil
	}
	allow, err := secrets.LoadAllowlist(cfg.AllowlistPath)
	if err != nil {
		return nil, fmt.Errorf("loading secrets allowlist: %w", err)
	}
	return secrets.New(secrets.DefaultConfig().WithAllowlist(allow))
}

// watchConfig applies log level changes from the config file without a
// restart. Other settings need a restart.
func watchConfig(ctx context.Context, path string, logger *logging.Logger) {
	err := config.Watch(ctx, path, func(c *config.Config) {
		level, err := logging.LevelFromString(c.Logging.Level)
		if err != nil {
			return
		}
		if level != logger.Level() {
			logger.SetLevel(level)
			logger.Info(ctx, "log level changed", zap.String("level", c.Logging.Level))
		}
	}, func(err error) {
		logger.Warn(ctx, "config reload failed", zap.Error(err))
	})
	if err != nil {
		logger.Debug(ctx, "config watch disabled", zap.Error(err))
	}
}
