package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/semaphore"

	"hairfit/internal/adapter/repo"
	"hairfit/internal/artifact"
	"hairfit/internal/http/handlers"
	httpapi "hairfit/internal/http/httpapi"
	"hairfit/internal/infra"
	"hairfit/internal/infra/credentials"
	"hairfit/internal/infra/geoip"
	"hairfit/internal/infra/identity"
	"hairfit/internal/ledger"
	"hairfit/internal/mailer"
	"hairfit/internal/middleware"
	"hairfit/internal/payments"
	"hairfit/internal/pricing"
	"hairfit/internal/providers/image"
	"hairfit/internal/providers/prompt"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	geminiKey, err := credentials.NewStore(runner).ResolveGeminiAPIKey(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("stored gemini api key unavailable")
	}
	if geminiKey == "" {
		logger.Warn().Msg("gemini api key missing; prompts use the heuristic composer and image generation is disabled")
	}

	genOpts := prompt.GeneratorOptions{
		PromptModel:   cfg.PromptModel,
		ResearchModel: cfg.ResearchModel,
		Grounding:     cfg.DeepResearchGrounding,
		AgentTimeout:  cfg.PromptAgentTimeout,
		Logger:        logger.With().Str("component", "prompt").Logger(),
	}
	if geminiKey != "" {
		model, err := prompt.NewGeminiTextModel(ctx, prompt.GeminiOptions{APIKey: geminiKey, BaseURL: cfg.GeminiBaseURL})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create gemini text model")
		}
		genOpts.Model = model
	}

	codec, err := artifact.NewCodec(cfg.ArtifactSecret, cfg.ArtifactTokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid artifact secret")
	}

	verifier, err := identity.New(identity.Config{
		JWKSURL:  cfg.AuthJWKSURL,
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		Secret:   cfg.AuthJWTSecret,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure session verification")
	}

	app := &handlers.App{
		Logger:    logger,
		Economics: pricing.Resolve(cfg.Pricing),
		Prompts:   prompt.NewGenerator(genOpts),
		Images: image.NewGeminiClient(image.GeminiOptions{
			APIKey:  geminiKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.ImageModel,
			Logger:  logger.With().Str("component", "image").Logger(),
		}),
		Artifacts:       codec,
		Generations:     repo.NewGenerationRepository(runner),
		Ledger:          ledger.New(runner),
		Payments:        repo.NewPaymentRepository(runner),
		Profiles:        repo.NewProfileRepository(runner),
		Reviews:         repo.NewReviewRepository(runner),
		ImageModel:      cfg.ImageModel,
		ImageSlots:      semaphore.NewWeighted(int64(cfg.ImageMaxConcurrency)),
		ImageTimeout:    cfg.ImageTimeout,
		AppBaseURL:      cfg.AppBaseURL,
		PolarProductIDs: cfg.PolarProductIDs,
		PolarSuccessURL: cfg.PolarSuccessURL,
	}
	if cfg.PolarConfigured() {
		app.Polar = payments.NewPolarClient(payments.PolarOptions{AccessToken: cfg.PolarAccessToken, BaseURL: cfg.PolarAPIBaseURL()})
	}
	if cfg.PolarWebhookSecret != "" {
		app.Webhooks = payments.NewWebhookVerifier(cfg.PolarWebhookSecret)
	}
	if cfg.ResendAPIKey != "" {
		app.Mailer = mailer.New(cfg.ResendAPIKey, cfg.ResendFromEmail, logger.With().Str("component", "mailer").Logger())
	}

	opts := httpapi.Options{
		Logger:         logger,
		Verifier:       verifier,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		DefaultLocale:  cfg.DefaultLocale,
		RetryAfter:     time.Minute,
	}

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable; locale falls back to headers")
	}
	if resolver != nil {
		defer resolver.Close()
		opts.CountryLookup = resolver.CountryCode
	}

	if cfg.RateLimitPerMin > 0 {
		opts.Limiter = middleware.NewMemoryLimiter(cfg.RateLimitPerMin, time.Minute)
		rdb, err := infra.NewRedisClient(ctx, cfg)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("redis unavailable; using in-process rate limiter")
		case rdb != nil:
			defer rdb.Close()
			opts.Limiter = middleware.NewRedisLimiter(rdb, "hairfit:rl", cfg.RateLimitPerMin, time.Minute)
		}
	}

	router := httpapi.NewRouter(app, opts)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
