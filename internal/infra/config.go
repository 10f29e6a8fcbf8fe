package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"hairfit/internal/pricing"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	AppBaseURL         string
	DatabaseURL        string
	RedisURL           string
	GeoIPDBPath        string
	DefaultLocale      string
	CORSAllowedOrigins []string
	RateLimitPerMin    int

	AuthJWKSURL   string
	AuthIssuer    string
	AuthAudience  string
	AuthJWTSecret string

	ArtifactSecret   string
	ArtifactTokenTTL time.Duration

	GeminiAPIKey          string
	GeminiBaseURL         string
	PromptModel           string
	ResearchModel         string
	DeepResearchGrounding bool
	PromptAgentTimeout    time.Duration
	ImageModel            string
	ImageMaxConcurrency   int
	ImageTimeout          time.Duration

	PolarAccessToken   string
	PolarServer        string
	PolarWebhookSecret string
	PolarProductIDs    map[string]string
	PolarSuccessURL    string

	ResendAPIKey    string
	ResendFromEmail string

	Pricing pricing.Settings

	SweepStaleAfter time.Duration
	SweepInterval   time.Duration
	SweepBatchSize  int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultPromptModel   = "gemini-2.5-pro"
	defaultImageModel    = "gemini-3-pro-image-preview"
	defaultFromEmail     = "HairFit <onboarding@resend.dev>"
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	appBaseURL := strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/")
	promptModel := getEnv("PROMPT_LLM_MODEL", defaultPromptModel)
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		AppBaseURL:         appBaseURL,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "ko"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{originOf(appBaseURL)}),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 20),

		AuthJWKSURL:   getSecret("AUTH_JWKS_URL"),
		AuthIssuer:    getSecret("AUTH_ISSUER"),
		AuthAudience:  getSecret("AUTH_AUDIENCE"),
		AuthJWTSecret: getSecret("AUTH_JWT_SECRET"),

		ArtifactSecret:   getSecret("PROMPT_ARTIFACT_SECRET"),
		ArtifactTokenTTL: time.Minute * time.Duration(getEnvInt("PROMPT_ARTIFACT_TTL_MINUTES", 30)),

		GeminiAPIKey:          firstSecret("GOOGLE_API_KEY", "GEMINI_API_KEY"),
		GeminiBaseURL:         getEnv("GEMINI_BASE_URL", defaultGeminiBaseURL),
		PromptModel:           promptModel,
		ResearchModel:         getEnv("PROMPT_RESEARCH_MODEL", promptModel),
		DeepResearchGrounding: getEnvBool("PROMPT_DEEP_RESEARCH_GROUNDING", true),
		PromptAgentTimeout:    time.Second * time.Duration(getEnvInt("PROMPT_AGENT_TIMEOUT_SECONDS", 60)),
		ImageModel:            getEnv("GEMINI_IMAGE_MODEL", defaultImageModel),
		ImageMaxConcurrency:   getEnvInt("IMAGE_MAX_CONCURRENCY", 4),
		ImageTimeout:          time.Second * time.Duration(getEnvInt("IMAGE_TIMEOUT_SECONDS", 120)),

		PolarAccessToken:   getSecret("POLAR_ACCESS_TOKEN"),
		PolarServer:        strings.ToLower(getEnv("POLAR_SERVER", "production")),
		PolarWebhookSecret: getSecret("POLAR_WEBHOOK_SECRET"),
		PolarProductIDs: map[string]string{
			"starter": getSecret("POLAR_PRODUCT_ID_STARTER"),
			"pro":     getSecret("POLAR_PRODUCT_ID_PRO"),
		},
		PolarSuccessURL: getSecret("POLAR_SUCCESS_URL"),

		ResendAPIKey:    getSecret("RESEND_API_KEY"),
		ResendFromEmail: getEnv("RESEND_FROM_EMAIL", defaultFromEmail),

		Pricing: pricing.Settings{
			StyleCostUSD:         getEnvFloat("PRICING_STYLE_COST_USD", pricing.DefaultStyleCostUSD),
			TargetMargin:         getEnvFloat("PRICING_TARGET_MARGIN", pricing.DefaultTargetMargin),
			CreditsPerStyle:      getEnvFloat("PRICING_CREDITS_PER_STYLE", pricing.DefaultCreditsPerStyle),
			USDToKRW:             getEnvFloat("PRICING_USD_TO_KRW", pricing.DefaultUSDToKRW),
			SafetyMultiplier:     getEnvFloat("PRICING_SAFETY_MULTIPLIER", pricing.DefaultSafetyMultiplier),
			StarterFixedPriceUSD: getEnvFloat("PRICING_STARTER_FIXED_PRICE_USD", pricing.DefaultStarterFixedPriceUSD),
		},

		SweepStaleAfter: time.Minute * time.Duration(getEnvInt("SWEEP_STALE_AFTER_MINUTES", 15)),
		SweepInterval:   time.Second * time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 60)),
		SweepBatchSize:  getEnvInt("SWEEP_BATCH_SIZE", 20),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ArtifactSecret == "" {
		return nil, fmt.Errorf("PROMPT_ARTIFACT_SECRET is required")
	}
	if cfg.AuthJWKSURL == "" && cfg.AuthJWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWKS_URL or AUTH_JWT_SECRET is required")
	}
	if cfg.ImageMaxConcurrency < 1 {
		cfg.ImageMaxConcurrency = 1
	}
	// A run still inside its image timeout must never look stale to the sweeper.
	if cfg.SweepStaleAfter <= cfg.ImageTimeout {
		return nil, fmt.Errorf("SWEEP_STALE_AFTER_MINUTES (%s) must exceed IMAGE_TIMEOUT_SECONDS (%s)", cfg.SweepStaleAfter, cfg.ImageTimeout)
	}

	return cfg, nil
}

// PolarAPIBaseURL returns the Polar API root for the configured server.
func (c *Config) PolarAPIBaseURL() string {
	if c.PolarServer == "sandbox" {
		return "https://sandbox-api.polar.sh/v1"
	}
	return "https://api.polar.sh/v1"
}

// PolarConfigured reports whether checkout sessions can be created.
func (c *Config) PolarConfigured() bool {
	return c.PolarAccessToken != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// getSecret treats unset placeholders such as "YOUR_API_KEY" as missing.
func getSecret(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" || strings.Contains(v, "YOUR_") {
		return ""
	}
	return v
}

func firstSecret(keys ...string) string {
	for _, key := range keys {
		if v := getSecret(key); v != "" {
			return v
		}
	}
	return ""
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
