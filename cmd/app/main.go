package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"lastmile/cmd"
	"lastmile/internal/adapters/out/postgres"
	"lastmile/internal/pkg/logger"

	"github.com/labstack/gommon/log"
	"go.uber.org/zap"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configs, err := cmd.LoadConfig(".")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLogger, err := logger.New(configs.Environment, configs.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, configs, zapLogger); err != nil {
		zapLogger.Fatal("service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, configs cmd.Config, zapLogger *zap.Logger) error {
	dsn := configs.Database.DSN()
	if err := postgres.Migrate(ctx, dsn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	gormDB, err := gorm.Open(postgresdriver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()

	app, err := cmd.NewCompositionRoot(configs, gormDB, zapLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			zapLogger.Warn("close adapters", zap.Error(err))
		}
	}()

	if err = app.JobManager().StartAll(); err != nil {
		return err
	}
	defer app.JobManager().StopAll()

	return startWebServer(ctx, app, configs.HTTPPort, zapLogger)
}

// startWebServer serves until ctx is canceled, then drains open requests.
func startWebServer(ctx context.Context, app *cmd.CompositionRoot, port string, zapLogger *zap.Logger) error {
	e, err := app.CreateRouter()
	if err != nil {
		return err
	}
	// Open event streams end with ctx so Shutdown does not wait on them.
	e.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("http server listening", zap.String("port", port))
		errCh <- e.Start(fmt.Sprintf("0.0.0.0:%s", port))
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
