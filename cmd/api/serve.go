package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/geocoder89/labsmonitor/internal/auth"
	"github.com/geocoder89/labsmonitor/internal/cache"
	"github.com/geocoder89/labsmonitor/internal/codes"
	"github.com/geocoder89/labsmonitor/internal/config"
	"github.com/geocoder89/labsmonitor/internal/db"
	"github.com/geocoder89/labsmonitor/internal/domain/panel"
	httpx "github.com/geocoder89/labsmonitor/internal/http"
	"github.com/geocoder89/labsmonitor/internal/http/handlers"
	"github.com/geocoder89/labsmonitor/internal/http/middlewares"
	"github.com/geocoder89/labsmonitor/internal/mail"
	"github.com/geocoder89/labsmonitor/internal/observability"
	"github.com/geocoder89/labsmonitor/internal/redisclient"
	"github.com/geocoder89/labsmonitor/internal/repo/memory"
	"github.com/geocoder89/labsmonitor/internal/repo/postgres"
	"github.com/geocoder89/labsmonitor/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const (
	migrateTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

// stores bundles whichever persistence driver is configured.
type stores struct {
	users   service.UserStore
	records service.RecordStore
	panels  service.PanelStore
	ready   map[string]handlers.Pinger
	close   func()
}

func serve(ctx context.Context) error {
	// Load the config set up
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		Endpoint:    cfg.OTELEndpoint,
		Environment: cfg.Env,
		SampleRatio: cfg.OTELSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := config.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	st, err := openStores(ctx, cfg, prom, log)
	if err != nil {
		return err
	}
	defer st.close()

	tokens, err := auth.NewManager(auth.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		RememberMeTTL: cfg.RememberMeTTL,
	})
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	authLimiter, apiLimiter, closeRedis := rateLimiters(ctx, cfg, st.ready, log)
	defer closeRedis()

	var draining atomic.Bool

	router := httpx.NewRouter(httpx.Deps{
		Config:  cfg,
		Log:     log,
		Prom:    prom,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Auth: service.NewAuthService(
			st.users,
			tokens,
			codes.NewManager(cfg.CodeTTL),
			newDispatcher(cfg, prom, log),
			prom,
			log,
		),
		Records:     service.NewRecordService(st.records, prom),
		Panels:      service.NewPanelService(st.panels, cache.New[[]panel.Panel](cfg.PanelCacheTTL)),
		AuthLimiter: authLimiter,
		APILimiter:  apiLimiter,
		Ready:       st.ready,
		Draining:    draining.Load,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver, "mail", cfg.MailDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("server shutting down")
	draining.Store(true)

	sctx, cancel := config.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}

func openStores(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (stores, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		return stores{
			users:   memory.NewUsersRepo(),
			records: memory.NewRecordsRepo(),
			panels:  memory.NewPanelsRepo(),
			ready:   map[string]handlers.Pinger{},
			close:   func() {},
		}, nil
	}

	cctx, cancel := config.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	pool, err := db.NewPool(cctx, cfg.DBURL)
	if err != nil {
		return stores{}, fmt.Errorf("connect db: %w", err)
	}

	if err := db.Migrate(cctx, pool, db.MigrateUp); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("migrate: %w", err)
	}
	if err := db.SeedPanels(cctx, pool); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("seed panels: %w", err)
	}
	if err := db.EnsureAdminUser(cctx, pool, cfg); err != nil {
		// the API is still useful without the admin account
		log.Error("admin seed failed", "err", err)
	}

	return stores{
		users:   postgres.NewUsersRepo(pool, prom),
		records: postgres.NewRecordsRepo(pool, prom),
		panels:  postgres.NewPanelsRepo(pool, prom),
		ready:   map[string]handlers.Pinger{"postgres": pool.Ping},
		close:   pool.Close,
	}, nil
}

func newDispatcher(cfg config.Config, prom *observability.Prom, log *slog.Logger) mail.Dispatcher {
	var inner mail.Dispatcher
	switch cfg.MailDriver {
	case "resend":
		inner = mail.NewResendDispatcher(cfg.ResendAPIKey, cfg.MailFrom)
	default:
		inner = mail.NewLogDispatcher(log)
	}

	return mail.NewProtectedDispatcher(inner, mail.ProtectedConfig{
		Timeout:          cfg.MailTimeout,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
		Observe: func(kind mail.Kind, outcome string) {
			prom.MailOutcome(string(kind), outcome)
		},
	})
}

// rateLimiters shares counters through redis when configured. A redis that
// cannot be reached at startup falls back to per-process limits.
func rateLimiters(ctx context.Context, cfg config.Config, ready map[string]handlers.Pinger, log *slog.Logger) (authL, apiL middlewares.Limiter, closeFn func()) {
	memAuth := middlewares.NewMemoryLimiter(cfg.AuthRatePerMinute, time.Minute)
	memAPI := middlewares.NewMemoryLimiter(cfg.APIRatePerMinute, time.Minute)

	if cfg.RedisAddr == "" {
		return memAuth, memAPI, func() {}
	}

	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pctx, cancel := config.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pctx); err != nil {
		log.Warn("redis unavailable, using in-process rate limits", "addr", cfg.RedisAddr, "err", err)
		_ = rdb.Close()
		return memAuth, memAPI, func() {}
	}

	ready["redis"] = rdb.Ping
	return middlewares.NewRedisLimiter(rdb.Cmdable(), cfg.AuthRatePerMinute, time.Minute),
		middlewares.NewRedisLimiter(rdb.Cmdable(), cfg.APIRatePerMinute, time.Minute),
		func() { _ = rdb.Close() }
}
