package domain

import "time"

// GenerationStatus enumerates the lifecycle of one styling attempt.
type GenerationStatus string

const (
	GenerationQueued     GenerationStatus = "queued"
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
)

// Generation is one attempt to restyle a user's photo. UserID never changes after creation.
type Generation struct {
	ID                 string
	UserID             string
	OriginalImagePath  string
	GeneratedImagePath *string
	PromptUsed         string
	Options            map[string]any
	Status             GenerationStatus
	ErrorMessage       *string
	CreditsUsed        int
	ModelProvider      string
	ModelName          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// OwnedBy reports whether userID may operate on the generation.
func (g *Generation) OwnedBy(userID string) bool {
	return g != nil && g.UserID != "" && g.UserID == userID
}

// MergeOptions returns a copy of base with every key of patch applied on top.
func MergeOptions(base map[string]any, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// GenerationSummary is the projection shown on the profile page.
type GenerationSummary struct {
	ID         string           `json:"id"`
	CreatedAt  time.Time        `json:"createdAt"`
	PromptUsed string           `json:"promptUsed"`
	Status     GenerationStatus `json:"status"`
}
