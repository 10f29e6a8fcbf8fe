package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hairfit/internal/domain"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-3-pro-image-preview"
)

var dataURLPattern = regexp.MustCompile(`^data:([^;]+);base64,(.+)$`)

type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	Now        func() time.Time
}

// GeminiClient edits a reference photo with a Gemini image model over the REST API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time
}

func NewGeminiClient(opts GeminiOptions) *GeminiClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &GeminiClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     opts.Logger,
		now:        now,
	}
}

// Model returns the configured image model identifier.
func (c *GeminiClient) Model() string {
	return c.model
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type requestPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type generateRequest struct {
	Contents []struct {
		Parts []requestPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
	} `json:"generationConfig"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	if req.ImageDataURL == "" {
		return nil, errors.New("imageDataUrl is required for hairstyle editing")
	}
	m := dataURLPattern.FindStringSubmatch(req.ImageDataURL)
	if m == nil {
		return nil, errors.New("imageDataUrl must be a valid base64 data URL")
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key", domain.ErrNotConfigured)
	}

	var payload generateRequest
	payload.Contents = append(payload.Contents, struct {
		Parts []requestPart `json:"parts"`
	}{Parts: []requestPart{
		{Text: buildPrompt(req)},
		{InlineData: &inlineData{MimeType: m[1], Data: m[2]}},
	}})
	payload.GenerationConfig.ResponseModalities = []string{"TEXT", "IMAGE"}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr errorResponse
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("gemini status %d: Gemini image generation request failed", resp.StatusCode)
	}

	normalized, err := normalizeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if normalized.Usage != nil {
		c.logger.Info().
			Str("phase", "image_generate").
			Str("model", c.model).
			Interface("usage", normalized.Usage).
			Msg("gemini usage")
	}
	if normalized.OutputURL == "" {
		return nil, errors.New("Gemini image generation returned no image output")
	}

	return &Result{
		ID:        fmt.Sprintf("gemini_%d", c.now().UnixMilli()),
		Status:    "completed",
		OutputURL: normalized.OutputURL,
		Usage:     normalized.Usage,
	}, nil
}

var _ Generator = (*GeminiClient)(nil)
