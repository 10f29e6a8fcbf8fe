package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PROMPT_ARTIFACT_SECRET", "artifact-secret")
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_BASE_URL", "")
	t.Setenv("PROMPT_LLM_MODEL", "")
	t.Setenv("PROMPT_RESEARCH_MODEL", "")
	t.Setenv("PROMPT_DEEP_RESEARCH_GROUNDING", "")
	t.Setenv("GEMINI_IMAGE_MODEL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PromptModel != "gemini-2.5-pro" || cfg.ResearchModel != "gemini-2.5-pro" {
		t.Fatalf("prompt models = %q/%q", cfg.PromptModel, cfg.ResearchModel)
	}
	if !cfg.DeepResearchGrounding {
		t.Fatalf("grounding should default to enabled")
	}
	if cfg.ImageModel != "gemini-3-pro-image-preview" {
		t.Fatalf("ImageModel = %q", cfg.ImageModel)
	}
	if cfg.ArtifactTokenTTL != 30*time.Minute {
		t.Fatalf("ArtifactTokenTTL = %s", cfg.ArtifactTokenTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.Pricing.CreditsPerStyle != 5 {
		t.Fatalf("CreditsPerStyle = %v", cfg.Pricing.CreditsPerStyle)
	}
}

func TestLoadConfigResearchModelInheritsPromptModel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PROMPT_LLM_MODEL", "gemini-2.5-flash")
	t.Setenv("PROMPT_RESEARCH_MODEL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ResearchModel != "gemini-2.5-flash" {
		t.Fatalf("ResearchModel = %q, want gemini-2.5-flash", cfg.ResearchModel)
	}
}

func TestLoadConfigIgnoresPlaceholderSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GOOGLE_API_KEY", "YOUR_GOOGLE_API_KEY")
	t.Setenv("GEMINI_API_KEY", "real-key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "real-key" {
		t.Fatalf("GeminiAPIKey = %q, want fallback alias", cfg.GeminiAPIKey)
	}
}

func TestLoadConfigGroundingToggle(t *testing.T) {
	cases := map[string]bool{"off": false, "0": false, "yes": true, "garbage": true}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("PROMPT_DEEP_RESEARCH_GROUNDING", raw)
			cfg, err := LoadConfig()
			if err != nil {
				t.Fatalf("LoadConfig returned error: %v", err)
			}
			if cfg.DeepResearchGrounding != want {
				t.Fatalf("DeepResearchGrounding = %v, want %v", cfg.DeepResearchGrounding, want)
			}
		})
	}
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PROMPT_ARTIFACT_SECRET", "")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without artifact secret")
	}

	t.Setenv("PROMPT_ARTIFACT_SECRET", "artifact")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_JWKS_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without auth configuration")
	}
}

func TestLoadConfigRejectsStaleWindowInsideImageTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IMAGE_TIMEOUT_SECONDS", "300")
	t.Setenv("SWEEP_STALE_AFTER_MINUTES", "5")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when the stale window equals the image timeout")
	}

	t.Setenv("SWEEP_STALE_AFTER_MINUTES", "6")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SweepStaleAfter != 6*time.Minute {
		t.Fatalf("SweepStaleAfter = %s", cfg.SweepStaleAfter)
	}
}

func TestPolarAPIBaseURL(t *testing.T) {
	cfg := &Config{PolarServer: "sandbox"}
	if got := cfg.PolarAPIBaseURL(); got != "https://sandbox-api.polar.sh/v1" {
		t.Fatalf("sandbox base = %q", got)
	}
	cfg.PolarServer = "production"
	if got := cfg.PolarAPIBaseURL(); got != "https://api.polar.sh/v1" {
		t.Fatalf("production base = %q", got)
	}
}
