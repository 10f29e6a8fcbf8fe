package image

import "context"

// GenerateRequest is one hairstyle edit of a reference photo.
type GenerateRequest struct {
	Prompt              string
	ProductRequirements string
	ResearchReport      string
	ImageDataURL        string
}

// Usage reports token counts. Fields the provider did not report stay nil.
type Usage struct {
	PromptTokenCount        *int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount    *int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount         *int `json:"totalTokenCount,omitempty"`
	ThoughtsTokenCount      *int `json:"thoughtsTokenCount,omitempty"`
	CachedContentTokenCount *int `json:"cachedContentTokenCount,omitempty"`
}

// Result is a completed generation. OutputURL is a data URL of the edited image.
type Result struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	OutputURL string `json:"outputUrl"`
	Usage     *Usage `json:"usage"`
}

// Generator is implemented by image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Result, error)
}
