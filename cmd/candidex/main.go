package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hirestack/candidex/internal/config"
	dbMemory "github.com/hirestack/candidex/internal/db/memory"
	dbRedis "github.com/hirestack/candidex/internal/db/redis"
	"github.com/hirestack/candidex/internal/domain"
	"github.com/hirestack/candidex/internal/domain/skills"
	logpkg "github.com/hirestack/candidex/internal/logger"
	"github.com/hirestack/candidex/internal/metrics"
	candidaterepo "github.com/hirestack/candidex/internal/repository/candidate"
	feedbackrepo "github.com/hirestack/candidex/internal/repository/feedback"
	"github.com/hirestack/candidex/internal/repository/resultcache"
	chiTransport "github.com/hirestack/candidex/internal/transport/chi"
	openaiTransport "github.com/hirestack/candidex/internal/transport/openai"
	feedbackuc "github.com/hirestack/candidex/internal/usecase/feedback"
	healthuc "github.com/hirestack/candidex/internal/usecase/health"
	"github.com/hirestack/candidex/internal/usecase/ratelimit"
	searchuc "github.com/hirestack/candidex/internal/usecase/search"
	"github.com/hirestack/candidex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting candidex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Synonym table: built-in unless an override file is configured
	table := skills.Default()
	if cfg.Search.SynonymsPath != "" {
		table, err = skills.Load(cfg.Search.SynonymsPath)
		if err != nil {
			logger.Fatal("Failed to load synonym table",
				zap.String("path", cfg.Search.SynonymsPath), zap.Error(err))
		}
		logger.Info("Loaded synonym table", zap.String("path", cfg.Search.SynonymsPath))
	}

	// Repositories
	candRepo := candidaterepo.New(store)
	fbRepo := feedbackrepo.New(store)

	// Search pipeline — composition root
	searchSvc := searchuc.New(candRepo, table).WithFanout(cfg.Search.Fanout)

	var ranker *openaiTransport.Ranker
	if cfg.Ranking.APIKey != "" {
		ranker = openaiTransport.NewRanker(&openaiTransport.Config{
			APIKey:  cfg.Ranking.APIKey,
			BaseURL: cfg.Ranking.BaseURL,
			Model:   cfg.Ranking.Model,
			Logger:  logger,
		})
		searchSvc = searchSvc.WithRanker(ranker)
		logger.Info("Semantic ranking enabled", zap.String("model", cfg.Ranking.Model))
	}

	// Background refresh pool for the result cache. Its tasks run on the
	// process context so an aborted request does not cancel a refresh.
	pool, err := ants.NewPool(cfg.Search.RefreshWorkers)
	if err != nil {
		logger.Fatal("Failed to create refresh pool", zap.Error(err))
	}
	defer pool.Release()

	appCtx, appCancel := context.WithCancel(ctx)
	defer appCancel()

	cached := resultcache.New(searchSvc, store, pool, appCtx, resultcache.Config{
		FreshTTL:  time.Duration(cfg.Cache.FreshSec) * time.Second,
		StaleTTL:  time.Duration(cfg.Cache.StaleSec) * time.Second,
		LockTTL:   time.Duration(cfg.Cache.LockSec) * time.Second,
		RetryWait: time.Duration(cfg.Cache.RetryWaitMil) * time.Millisecond,
	}, logger)

	// Rate limiter: shared counters in the store, per-instance counters as
	// the degraded fallback when the store is unreachable.
	fallbackCounters := dbMemory.NewStore(time.Minute)
	defer fallbackCounters.Close()

	limiter := ratelimit.New(store, fallbackCounters, ratelimit.Config{
		Window:         time.Duration(cfg.RateLimit.WindowSec) * time.Second,
		AddressLimit:   cfg.RateLimit.AddressLimit,
		PlanLimits:     cfg.RateLimit.PlanLimits,
		DefaultLimit:   cfg.RateLimit.DefaultLimit,
		AbuseThreshold: cfg.RateLimit.AbuseThreshold,
		AbuseWindow:    time.Duration(cfg.RateLimit.AbuseWindowSec) * time.Second,
	}, logger)

	feedbackSvc := feedbackuc.New(fbRepo)

	var healthRanker healthuc.RankerChecker
	if ranker != nil {
		healthRanker = ranker
	}
	healthSvc := healthuc.New(store, healthRanker)

	server := chiTransport.NewServer(
		cached, searchSvc, feedbackSvc, healthSvc,
		cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize,
		logger,
	)

	apiKeys := make(map[string]domain.Tenant, len(cfg.Auth.APIKeys))
	for key, tc := range cfg.Auth.APIKeys {
		plan := tc.Plan
		if plan == "" {
			plan = domain.PlanFree
		}
		apiKeys[key] = domain.Tenant{ID: tc.Tenant, Plan: plan}
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(apiKeys))
	r.Use(chiTransport.RateLimitMiddleware(limiter, cfg.HTTP.RealIPHeader))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	appCancel()

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			ctx := logpkg.ContextWithLogger(r.Context(), logger)
			ctx = logpkg.With(ctx, zap.String("request_id", requestID))

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			logpkg.FromContext(ctx).Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
