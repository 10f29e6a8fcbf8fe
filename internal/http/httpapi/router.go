package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"hairfit/internal/http/handlers"
	"hairfit/internal/infra/identity"
	"hairfit/internal/middleware"
)

// Options carries the cross-cutting dependencies of the router.
type Options struct {
	Logger         zerolog.Logger
	Verifier       identity.Verifier
	AllowedOrigins []string
	DefaultLocale  string
	CountryLookup  middleware.CountryLookup
	Limiter        middleware.Limiter
	RetryAfter     time.Duration
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.Recoverer(opts.Logger),
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Route("/v1", func(r chi.Router) {
		// Public
		r.Get("/healthz", app.Health)
		r.Get("/pricing", app.Pricing)
		r.Post("/payments/webhook", app.PaymentWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(opts.Verifier, opts.Logger))

			r.Get("/me", app.Me)
			r.Get("/generations/{id}", app.GenerationStatus)
			r.Post("/credits/consume", app.ConsumeCredits)
			r.Post("/payments/checkout", app.Checkout)
			r.Get("/reviews", app.GetReview)
			r.Post("/reviews", app.UpsertReview)

			r.Group(func(r chi.Router) {
				if opts.Limiter != nil {
					r.Use(middleware.RateLimit(opts.Limiter, opts.RetryAfter, opts.Logger))
				}
				r.Post("/prompts/generate", app.GeneratePrompt)
				r.Post("/generations/run", app.RunGeneration)
			})
		})
	})

	return r
}
