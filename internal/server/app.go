// Package server wires the ResDex server together: Postgres with migrations,
// the document bucket, the change hub, the gRPC front end, the admin HTTP
// listener and token housekeeping.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/resdex/resdex/internal/logging"
	"github.com/resdex/resdex/internal/server/admin"
	"github.com/resdex/resdex/internal/server/broker"
	"github.com/resdex/resdex/internal/server/config"
	gs "github.com/resdex/resdex/internal/server/grpc"
	"github.com/resdex/resdex/internal/server/metrics"
	"github.com/resdex/resdex/internal/server/repositories/repomanager"
	"github.com/resdex/resdex/internal/server/services"
	"github.com/resdex/resdex/internal/server/storage"
)

const tokenPurgeInterval = time.Hour

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *prometheus.Registry
	users    *services.UserService
	grpc     *gs.GRPCServer
	admin    *admin.Server
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, parseLevel(c.LogLevel))

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	objects, err := storage.NewS3ObjectStore(ctx, storage.Options{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	hub := broker.NewHub(c.MaxWatchers)

	us := services.NewUserService(db, rm, hub, c)
	ps := services.NewProfileService(db, rm, objects, hub, c.SnapshotLimit, logger)

	grpcServer := gs.NewGRPCServer(gs.Options{
		Address:   c.EndpointAddrGRPC,
		Users:     us,
		Profiles:  ps,
		Hub:       hub,
		Metrics:   collector,
		Logger:    logger,
		RateLimit: rate.Limit(c.RateLimitRPS),
		RateBurst: c.RateLimitBurst,
	})

	adminServer := admin.NewServer(c.AdminAddr, admin.NewRouter(db, registry), logger)

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		registry: registry,
		users:    us,
		grpc:     grpcServer,
		admin:    adminServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// purgeTokens removes expired refresh tokens every interval until ctx ends.
func (app *App) purgeTokens(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.users.PurgeExpiredTokens(ctx)
			if err != nil {
				app.logger.Error(ctx, "token purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := app.grpc.Run(ctx); err != nil {
			app.logger.Error(ctx, "grpc server stopped", "error", err)
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		if err := app.admin.Run(ctx); err != nil {
			app.logger.Error(ctx, "admin server stopped", "error", err)
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		app.purgeTokens(ctx, tokenPurgeInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
