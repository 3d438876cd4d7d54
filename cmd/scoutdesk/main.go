package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/scoutdesk/scoutdesk/internal/app"
	"github.com/scoutdesk/scoutdesk/internal/audit"
	audithttp "github.com/scoutdesk/scoutdesk/internal/audit/http"
	"github.com/scoutdesk/scoutdesk/internal/observability"
	"github.com/scoutdesk/scoutdesk/internal/platform/cache"
	"github.com/scoutdesk/scoutdesk/internal/platform/db"
	"github.com/scoutdesk/scoutdesk/internal/rbac"
	"github.com/scoutdesk/scoutdesk/internal/reports"
	"github.com/scoutdesk/scoutdesk/internal/scouts"
	"github.com/scoutdesk/scoutdesk/internal/shared"
	"github.com/scoutdesk/scoutdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	matrix, err := loadMatrix(cfg)
	if err != nil {
		logger.Error("load permission matrix", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, StatementTimeout: cfg.PGStatementTimeout})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.PGAutoMigrate {
		applied, err := db.Migrate(ctx, dbpool)
		if err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied", slog.Any("versions", applied))
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		_ = inspector.Close()
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	rbacMiddleware := rbac.Middleware{Matrix: matrix, Logger: logger}

	auditStore := audit.NewStore(dbpool)
	var auditRecorder shared.AuditRecorder = auditStore
	if cfg.AuditAsync {
		auditRecorder = jobClient
	}

	scoutService := scouts.NewService(scouts.NewRepository(dbpool), matrix, cache.NewJSONCache(redisClient, cfg.SummaryCacheTTL), logger)

	reportService := reports.NewService(reports.NewRepository(dbpool), matrix, reports.ServiceConfig{
		Audit:     auditRecorder,
		Summaries: scoutService,
		Metrics:   reports.NewMetrics(metrics.Registerer()),
		Logger:    logger,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		RBACMiddleware:     rbacMiddleware,
		PermissionsHandler: rbac.NewPermissionsHandler(matrix, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, reportService, shared.NewIdempotencyStore(dbpool), rbacMiddleware),
		ScoutsHandler:      scouts.NewHandler(scoutService, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(auditStore, matrix), rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
		HealthChecks: map[string]app.HealthCheck{
			"postgres": pingPostgres(dbpool),
			"redis":    pingRedis(redisClient),
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr), slog.Bool("audit_async", cfg.AuditAsync))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	logger.Info("http server stopped")
}

func loadMatrix(cfg *app.Config) (*rbac.Matrix, error) {
	if cfg.PermissionsFile != "" {
		return rbac.LoadMatrixFile(cfg.PermissionsFile)
	}
	return rbac.DefaultMatrix()
}

func pingPostgres(pool *pgxpool.Pool) app.HealthCheck {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}

func pingRedis(client *redis.Client) app.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
