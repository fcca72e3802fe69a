package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/leafit/leafit-backend/config"
	"github.com/leafit/leafit-backend/internal/api/http/middleware"
	diagrepo "github.com/leafit/leafit-backend/internal/diagnoses/repository"
	diagservice "github.com/leafit/leafit-backend/internal/diagnoses/service"
	"github.com/leafit/leafit-backend/internal/observability"
	"github.com/leafit/leafit-backend/internal/photos"
	"github.com/leafit/leafit-backend/internal/platform/docstore"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/leafit/leafit-backend/internal/session"
	"github.com/leafit/leafit-backend/internal/stats"
	"github.com/leafit/leafit-backend/internal/storage/postgres"
	treatrepo "github.com/leafit/leafit-backend/internal/treatments/repository"
	treatservice "github.com/leafit/leafit-backend/internal/treatments/service"
	userrepo "github.com/leafit/leafit-backend/internal/users/repository"
	userservice "github.com/leafit/leafit-backend/internal/users/service"
)

const (
	ServiceName       = "leafit-backend"
	limiterSweepEvery = time.Minute
	limiterMaxIdle    = 10 * time.Minute
)

// App owns every long-lived resource of the API process.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	pool      *pgxpool.Pool
	sqlDB     *sql.DB
	redis     *redis.Client
	scheduler *stats.Scheduler
	limiter   *middleware.RateLimiter
	server    *http.Server
}

// NewApp opens connections, applies the schema and wires the router. On error
// everything opened so far is closed again.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (app *App, err error) {
	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	dsn := cfg.PostgresDSN()
	if a.pool, err = OpenDB(ctx, DBOptions{DSN: dsn}); err != nil {
		return nil, err
	}
	if err = postgres.MigratePool(ctx, a.pool); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if a.sqlDB, err = postgres.NewConnection(ctx, dsn); err != nil {
		return nil, err
	}
	if a.redis, err = OpenRedis(ctx, RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	prefix := cfg.Redis.Prefix
	retryHook := docstore.WithRetryHook(metrics.StoreRetry)

	treatments := treatservice.NewTreatmentService(
		treatrepo.NewTreatmentRepository(a.redis, prefix, retryHook), metrics, log)
	diagRepo := diagrepo.NewDiagnosisRepository(a.redis, prefix, log, retryHook)
	diagnoses := diagservice.NewDiagnosisService(diagRepo, treatments, metrics, log)
	users := userservice.NewUserService(userrepo.NewUserRepository(a.sqlDB), log)
	sessions := session.NewManager(a.redis, prefix, cfg.Session.Secret, cfg.Session.TTL, cfg.IsProduction(), log)

	statsSvc := stats.NewService(a.redis, prefix, diagnoses, treatments,
		userrepo.NewMemberCounter(a.pool), metrics, log)
	a.scheduler = stats.NewScheduler(statsSvc, log)

	var photoStore *photos.Store
	if cfg.Storage.Bucket != "" {
		photoStore, err = photos.NewStore(ctx, photos.Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			PathStyle:       cfg.Storage.PathStyle,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
	} else {
		log.Info("S3_BUCKET not set, photo uploads disabled")
	}

	a.limiter = middleware.NewRateLimiter(cfg.Server.AuthRateRPS, cfg.Server.AuthRateBurst)

	router := BuildRouter(RouterDeps{
		ServiceName:    ServiceName,
		Version:        cfg.App.Version,
		StaticDir:      cfg.Server.StaticDir,
		CORSOrigins:    cfg.Server.CORSOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		Log:            log,
		DB:             a.pool,
		Redis:          a.redis,
		Metrics:        metrics,
		Gatherer:       reg,
		Sessions:       sessions,
		AuthLimiter:    a.limiter,
		Users:          users,
		Diagnoses:      diagnoses,
		Treatments:     treatments,
		Stats:          statsSvc,
		Photos:         photoStore,
		PhotoMaxBytes:  cfg.Storage.PhotoMaxBytes,
	})

	a.server = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run serves until ctx is cancelled, then shuts the server and the stats
// scheduler down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	if err := a.scheduler.Start(a.Config.Stats.Cron); err != nil {
		return fmt.Errorf("start stats scheduler: %w", err)
	}
	go a.sweepLimiter(ctx)

	// cancelled on Shutdown so open event streams return
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()
	a.server.BaseContext = func(net.Listener) context.Context { return streamCtx }
	a.server.RegisterOnShutdown(cancelStreams)

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("http server listening", "addr", a.server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		a.Log.Info("shutting down")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("http shutdown incomplete", "error", err)
			_ = a.server.Close()
		}
		a.scheduler.Stop(shutdownCtx)
		return nil
	case err := <-errCh:
		a.scheduler.Stop(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(limiterSweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.limiter.Sweep(limiterMaxIdle)
		}
	}
}

func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
