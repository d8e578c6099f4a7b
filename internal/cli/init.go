// Package cli provides the startup and shutdown plumbing shared by
// cmd/keuangan, cmd/keuangan-worker and cmd/ledgerctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"keuangan/internal/ai"
	"keuangan/internal/backend"
	"keuangan/internal/cache"
	"keuangan/internal/clock"
	"keuangan/internal/config"
	"keuangan/internal/log"
	"keuangan/internal/middleware/ratelimit"
	"keuangan/internal/services"
)

// SetupLogger builds the process logger at level and makes it the default.
func SetupLogger(level string) *log.Logger {
	lvl := log.ParseLevel(level)
	logger := log.NewText(os.Stdout, lvl, log.ComponentApp)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// App is the assembled message pipeline and the resources behind it.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Backend *backend.Result
	Clock   *clock.Provider
	Model   ai.Model
	Service *services.MessageService
	Caches  *cache.Manager

	limiter *ratelimit.Limiter
}

// Bootstrap wires ledger backend, time provider, AI model and message service
// from cfg. Call Close when done.
func Bootstrap(ctx context.Context, logger *log.Logger, cfg *config.Config) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	provider, err := clock.New(cfg.Timezone,
		clock.WithBaseURL(cfg.TimeAPIURL),
		clock.WithLogger(logger.WithComponent(log.ComponentClock)))
	if err != nil {
		closeBackend(logger, res)
		return nil, err
	}

	var model ai.Model = ai.Unavailable{}
	if cfg.AIEnabled() {
		gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			closeBackend(logger, res)
			return nil, fmt.Errorf("create Gemini client: %w", err)
		}
		model = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, AI features disabled")
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	svc, err := services.NewMessageService(services.Config{
		Ledger:    res.Store,
		Model:     model,
		Clock:     provider,
		Authorize: services.AllowList(cfg.AuthorizedNumbers),
		Limiter:   limiter,
		AITimeout: cfg.AITimeout,
		Logger:    logger,
	})
	if err != nil {
		limiter.Stop()
		closeBackend(logger, res)
		return nil, err
	}

	caches := cache.NewManager()
	caches.Register(provider.Cache())
	caches.StartCleanup(5 * time.Minute)

	logger.Info("Message pipeline ready",
		log.FieldBackend, res.Type.String(),
		"ai_enabled", cfg.AIEnabled(),
		"authorized_senders", len(cfg.AuthorizedNumbers),
		"timezone", cfg.Timezone)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Backend: res,
		Clock:   provider,
		Model:   model,
		Service: svc,
		Caches:  caches,
		limiter: limiter,
	}, nil
}

// Close releases the app's background loops and backend handles.
func (a *App) Close() {
	a.Caches.Stop()
	a.limiter.Stop()
	closeBackend(a.Logger, a.Backend)
}

func closeBackend(logger *log.Logger, res *backend.Result) {
	if res == nil || res.Cleanup == nil {
		return
	}
	if err := res.Cleanup(); err != nil {
		logger.Error("Backend cleanup failed", log.FieldError, err.Error())
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
