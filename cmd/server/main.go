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

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/adapters"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/analysis"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/cache"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/config"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/database"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/middleware"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/model"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/monitoring"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/ratelimit"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/resilience"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logging setup
	appLogger := monitoring.NewLogger(monitoring.ParseLevel(cfg.Server.LogLevel))
	slog.SetDefault(appLogger.Logger)
	gin.SetMode(cfg.Server.GinMode)

	appMetrics := monitoring.NewMetrics()

	// Risk model; a missing artifact means heuristic-only scoring
	riskModel := model.Load(cfg.Model.Path, appLogger.With("component", "model"))
	appLogger.ModelLogger("load", cfg.Model.Path, riskModel.State().String(), modelError(riskModel))

	// Baseline store
	db, err := database.NewDB(cfg.Storage.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	baselineCache := cache.NewCache[*database.Baseline](cfg.Storage.BaselineCacheTTL, time.Minute, appMetrics)
	defer baselineCache.Close()
	baselines := database.NewBaselineService(database.NewRepository(db), baselineCache, appLogger.With("component", "baselines"))

	// Rate limiting with Redis when reachable
	redisClient, err := ratelimit.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", err)
	}
	defer redisClient.Close()

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.IPLimit = cfg.RateLimit.PerMinute
	limiterConfig.AnalyzeLimit = cfg.RateLimit.AnalyzePerMinute
	limiter := ratelimit.NewRateLimiter(redisClient, limiterConfig, appMetrics)
	defer limiter.Close()

	lexical := adapters.NewLexicalAdapter(adapters.LexicalConfig{
		URL:     cfg.Lexical.URL,
		APIKey:  cfg.Lexical.APIKey,
		Model:   cfg.Lexical.Model,
		Timeout: cfg.Lexical.Timeout,
	}, appMetrics, appLogger)
	if !lexical.IsConfigured() {
		slog.Warn("Lexical analysis API key not configured, cognitive scores require cognitive_risk_score")
	}

	// Register dependencies for degradation management
	degradation := resilience.NewDegradationManager(resilience.DefaultDegradationConfig(), appLogger.With("component", "degradation"))
	degradation.RegisterService(resilience.ServiceRiskModel, modelHealthCheck(riskModel))
	degradation.RegisterService(resilience.ServiceBaselines, db.PingContext)
	degradation.RegisterService(resilience.ServiceLexicalAPI, func(context.Context) error {
		if lexical.BreakerState() == resilience.StateOpen {
			return errors.New("lexical circuit breaker is open")
		}
		return nil
	})
	if redisClient.IsEnabled() {
		degradation.RegisterService(resilience.ServiceRedis, redisClient.HealthCheck)
	}
	if riskModel.State() != model.StateReady {
		degradation.MarkUnavailable(resilience.ServiceRiskModel, modelError(riskModel))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go degradation.StartHealthChecks(ctx)
	if retention := cfg.BaselineRetention(); retention > 0 {
		go baselines.StartPurger(ctx, cfg.Storage.PurgeInterval, retention)
	}

	securityMiddleware := security.NewSecurityMiddleware(security.SecurityConfig{
		MaxBodyBytes:        cfg.Server.MaxBodyBytes,
		MaxTranscriptLength: cfg.Server.MaxTranscriptLength,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		TrustedProxies:      cfg.Server.TrustedProxies,
		RequestTimeout:      cfg.Server.RequestTimeout,
		EnableHSTS:          cfg.Server.EnableHSTS,
	})

	compression := middleware.NewCompression(middleware.DefaultCompressionConfig())

	srv := &server{
		model:        riskModel,
		engine:       analysis.NewEngine(riskModel, appLogger.With("component", "engine")),
		baselines:    baselines,
		lexical:      lexical,
		security:     securityMiddleware,
		compression:  compression,
		limiter:      limiter,
		analyzeLimit: cfg.RateLimit.AnalyzePerMinute,
		degradation:  degradation,
		metrics:      appMetrics,
		logger:       appLogger,
		stats: map[string]func() map[string]interface{}{
			"baseline_cache": baselineCache.Stats,
			"database_pool":  db.GetPoolStats,
			"compression":    compression.Stats,
			"baseline_store": baselineStoreStats(baselines),
			"redis":          redisClient.GetPoolStats,
		},
		startedAt: time.Now(),
	}

	r := srv.routes()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		slog.Error("Invalid trusted proxies", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server",
			"port", cfg.Server.Port,
			"model_state", riskModel.State().String(),
			"lexical_configured", lexical.IsConfigured(),
			"redis_enabled", redisClient.IsEnabled(),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// SIGHUP reloads the model artifact; SIGINT and SIGTERM shut down
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range signals {
		if sig == syscall.SIGHUP {
			reloadModel(riskModel, cfg.Model.Path, degradation, appMetrics, appLogger)
			continue
		}
		break
	}
	slog.Info("Shutting down server...")

	stop()
	degradation.GracefulShutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// reloadModel swaps in a freshly read artifact. A failed reload keeps the
// previous model serving.
func reloadModel(m *model.Model, path string, dm *resilience.DegradationManager, metrics *monitoring.Metrics, logger *monitoring.Logger) {
	if path == "" {
		logger.Warn("Model reload requested but no model path is configured")
		return
	}

	err := m.Reload(path)
	metrics.RecordModelReload(err == nil)
	logger.ModelLogger("reload", path, m.State().String(), err)

	if err != nil {
		if m.State() != model.StateReady {
			dm.MarkUnavailable(resilience.ServiceRiskModel, err)
		}
		return
	}
	dm.MarkHealthy(resilience.ServiceRiskModel)
}

func baselineStoreStats(s *database.BaselineService) func() map[string]interface{} {
	return func() map[string]interface{} {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		n, err := s.Count(ctx)
		if err != nil {
			return map[string]interface{}{"error": err.Error()}
		}
		return map[string]interface{}{"baselines": n}
	}
}

func modelError(m *model.Model) error {
	if msg := m.Info().Error; msg != "" {
		return errors.New(msg)
	}
	return nil
}
