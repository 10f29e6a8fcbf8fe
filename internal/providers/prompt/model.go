package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// TextRequest is one agent call: an instruction with optional inline image.
type TextRequest struct {
	Model    string
	Text     string
	Image    *InlineImage
	Grounded bool
}

// TextResponse carries the model text and any web sources it was grounded on.
type TextResponse struct {
	Text       string
	References []string
}

// TextModel is the language-model transport used by both agents.
type TextModel interface {
	GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error)
}

type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiTextModel calls Gemini through the genai SDK.
type GeminiTextModel struct {
	client *genai.Client
}

func NewGeminiTextModel(ctx context.Context, opts GeminiOptions) (*GeminiTextModel, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if base := strings.TrimRight(opts.BaseURL, "/"); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base + "/"}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiTextModel{client: client}, nil
}

func (g *GeminiTextModel) GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Text)}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	var config *genai.GenerateContentConfig
	if req.Grounded {
		config = &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, []*genai.Content{{Role: "user", Parts: parts}}, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	out := &TextResponse{Text: strings.TrimSpace(resp.Text())}
	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
			if chunk != nil && chunk.Web != nil {
				out.References = append(out.References, chunk.Web.URI)
			}
		}
	}
	return out, nil
}

var _ TextModel = (*GeminiTextModel)(nil)
