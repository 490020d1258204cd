package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/planwise/planwise/internal/auth"
	"github.com/planwise/planwise/internal/catalog"
	"github.com/planwise/planwise/internal/config"
	"github.com/planwise/planwise/internal/health"
	"github.com/planwise/planwise/internal/llm"
	"github.com/planwise/planwise/internal/metrics"
	"github.com/planwise/planwise/internal/server"
	"github.com/planwise/planwise/internal/stories"
	"github.com/planwise/planwise/internal/store"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Int("http_port", cfg.HTTPPort).
		Str("database", cfg.DatabasePath).
		Bool("groq_configured", cfg.GroqConfigured()).
		Msg("starting planwise API")

	// Groq credentials are validated once at startup. A malformed key is a
	// misconfiguration surfaced immediately, not a runtime upstream failure.
	// The rest of the API keeps serving either way.
	credErr := cfg.ValidateGroqKey()
	if credErr != nil {
		logger.Warn().Err(credErr).Msg("story generation disabled until GROQ_API_KEY is fixed")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Persistence
	st, err := store.New(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	// Metrics + health
	m := metrics.New()
	checker := health.NewChecker(logger)
	checker.Register("store", func(ctx context.Context) health.Status {
		if err := st.DB().PingContext(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	// Model service client + catalog
	groq := llm.NewGroqClient(cfg.GroqAPIKey,
		llm.WithBaseURL(cfg.GroqBaseURL),
		llm.WithLogger(logger))

	policy := catalog.DefaultPolicy()
	if cfg.ModelPolicyPath != "" {
		policy, err = catalog.LoadPolicy(cfg.ModelPolicyPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.ModelPolicyPath).Msg("model policy file unusable, using defaults")
		}
	}

	modelCatalog := catalog.New(groq, catalog.NewCache(),
		catalog.WithOverride(cfg.GroqModel),
		catalog.WithTTL(cfg.ModelCacheTTL),
		catalog.WithPolicy(policy),
		catalog.WithLogger(logger))

	if credErr == nil {
		checker.Register("groq", func(ctx context.Context) health.Status {
			if _, err := groq.ListModels(ctx); err != nil {
				return health.StatusDegraded
			}
			return health.StatusOK
		})
	}

	// Story workflow
	generator := stories.NewGenerator(groq, modelCatalog, m, logger)
	storySvc := stories.NewService(generator, st, credErr, m, logger)

	// Auth
	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	// API server
	srv := server.New(server.Config{
		ListenAddr:  fmt.Sprintf(":%d", cfg.HTTPPort),
		CORSOrigins: cfg.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
	}, st, storySvc, tokens, checker, m, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("API server error")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}

	logger.Info().Msg("shutdown complete")
}
