package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/RAXITGAJERA/product-management/pkg/api"
	"github.com/RAXITGAJERA/product-management/pkg/auth"
	"github.com/RAXITGAJERA/product-management/pkg/catalog"
	"github.com/RAXITGAJERA/product-management/pkg/config"
	"github.com/RAXITGAJERA/product-management/pkg/observability"
	"github.com/RAXITGAJERA/product-management/pkg/storage"
)

func main() {
	seed := flag.Bool("seed", false, "create one default account per role and exit")
	flag.Parse()

	if err := run(*seed); err != nil {
		fmt.Fprintf(os.Stderr, "catalogd: %v\n", err)
		os.Exit(1)
	}
}

func run(seed bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"storage": cfg.Storage.Type,
		"port":    cfg.Server.Port,
	}).Info("starting catalogd")

	db, err := storage.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := storage.RunMigrations(migrateCtx, db, cfg.Storage.Type); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	users := auth.NewStore(db, logger)
	if seed {
		if err := users.SeedDefaultUsers(ctx); err != nil {
			return err
		}
		logger.Info("seed complete")
		return nil
	}

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	sessions := auth.NewSessionManager(db, cfg.Session.TTL, logger)
	if err := sessions.StartSweeper(cfg.Session.CleanupSchedule); err != nil {
		return err
	}
	defer sessions.StopSweeper()

	catalogService := catalog.NewService(db, logger, metrics)
	server := api.NewServer(cfg.Server, catalogService, users, sessions, logger, metrics)

	healthMux := http.NewServeMux()
	observability.NewHealthChecker(db).RegisterHealthEndpoints(healthMux)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})

	if metrics != nil {
		g.Go(func() error {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					metrics.CollectDBStats(db)
					if err := catalogService.UpdateGauges(gctx); err != nil {
						logger.WithError(err).Warn("failed to update catalog gauges")
					}
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("server shutdown failed")
		}
		return healthServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("catalogd stopped")
	return nil
}
