package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/kvhuynh79-oss/sda-management-sub004/internal/app"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/config"
)

// defaultShutdownTimeout bounds graceful shutdown when DB_CONN_MAX_LIFETIME is not set.
const defaultShutdownTimeout = 30 * time.Second

// server is started and stopped by RunServer.
type server interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// RunServer starts the HTTP server with graceful shutdown support.
// Loads configuration, initializes the DI container, and starts the Gin HTTP server together
// with the metrics server when metrics are enabled. Blocks until receiving SIGINT/SIGTERM or
// until one server fails; both servers are then shut down.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()

	// Set Gin mode based on log level
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Surface key configuration errors at startup
	if _, err := container.FieldCipher(); err != nil {
		return fmt.Errorf("failed to initialize field cipher: %w", err)
	}

	httpServer, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	servers := []server{httpServer}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	if metricsServer != nil {
		servers = append(servers, metricsServer)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTimeout := cfg.DBConnMaxLifetime
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	return serve(ctx, logger, shutdownTimeout, servers...)
}

// serve runs every server until ctx is done or one of them fails, then shuts all of them
// down within shutdownTimeout.
func serve(ctx context.Context, logger *slog.Logger, shutdownTimeout time.Duration, servers ...server) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, s := range servers {
		group.Go(func() error {
			return s.Start(groupCtx)
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		if ctx.Err() != nil {
			logger.Info("shutdown signal received")
		} else {
			logger.Error("server error, initiating shutdown")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		var shutdownErrors []error
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, err)
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return group.Wait()
}
