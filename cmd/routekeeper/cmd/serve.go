package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/routekeeper/internal/assignment"
	"github.com/solatis/routekeeper/internal/completion"
	"github.com/solatis/routekeeper/internal/core/api"
	"github.com/solatis/routekeeper/internal/core/config"
	"github.com/solatis/routekeeper/internal/core/db"
	"github.com/solatis/routekeeper/internal/core/server"
	"github.com/solatis/routekeeper/internal/core/store"
	"github.com/solatis/routekeeper/internal/preview"
	"github.com/solatis/routekeeper/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC rule service and the metrics endpoint",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50061, "gRPC server port")
	serveCmd.Flags().String("metrics-addr", ":9161", "metrics and health listen address (empty disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Server.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	}

	registry, err := loadRegistry(cfg.Catalog)
	if err != nil {
		return err
	}
	engine, err := loadEngine(cfg.Catalog)
	if err != nil {
		return err
	}
	directory, err := loadDirectory(cfg.Catalog)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)

	deps := api.Deps{
		Engine:   engine,
		Registry: registry,
		Metrics:  metrics,
		Logger:   logger,
		Hub: preview.NewHub(preview.Options{
			Resolver: assignment.NewResolver(directory, logger),
			Engine:   engine,
			Metrics:  metrics,
			Logger:   logger,
			Timeout:  cfg.Preview.Timeout,
		}, preview.HubLimits{
			MaxSessions: cfg.Preview.MaxSessions,
			IdleTTL:     cfg.Preview.SessionTTL,
		}),
		Retention:   cfg.Completion.Retention,
		MaxFinished: cfg.Completion.MaxFinished,
	}

	health := func() error { return nil }
	if url := config.DatabaseURL(dbURL); url != "" {
		st, closeDB, err := openStore(cmd.Context(), url)
		if err != nil {
			return err
		}
		defer closeDB()
		deps.Policies = st
		deps.Claims = st
		deps.Configs = st
		health = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return st.Ping(ctx)
		}
	} else {
		deps.Policies = completion.NewMemoryStore()
		logger.Warn().Msg("no database configured; policies and completion claims are kept in memory, step config storage is disabled")
	}

	service, err := api.NewService(deps)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	grpcServer, err := server.NewGRPCServer(&cfg.Server, service, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	var httpServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		httpServer = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           telemetry.NewRouter(metrics, reg, health),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	logger.Info().Str("addr", cfg.Server.Addr()).Str("metrics_addr", cfg.Server.MetricsAddr).Msg("starting routekeeper")
	g.Go(func() error {
		return grpcServer.Start(gctx)
	})
	if httpServer != nil {
		g.Go(func() error {
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("metrics server shutdown")
			}
		}
		return grpcServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore opens the database, refuses to serve on a schema with pending
// migrations and returns the store with its close func.
func openStore(ctx context.Context, url string) (*store.Store, func(), error) {
	conn, err := db.Open(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	statuses, err := db.MigrateStatus(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			conn.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'routekeeper migrate up' first", s.ID)
		}
	}

	st, err := store.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return st, func() { conn.Close() }, nil
}
