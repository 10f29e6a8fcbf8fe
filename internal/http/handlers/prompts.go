package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"hairfit/internal/artifact"
	"hairfit/internal/domain"
	"hairfit/internal/providers/prompt"
)

const maxImageDataURL = 12_000_000

type generatePromptRequest struct {
	GenerationID          *string              `json:"generationId"`
	UserInput             *string              `json:"userInput"`
	StyleOptions          *prompt.StyleOptions `json:"styleOptions"`
	HasReferenceImage     *bool                `json:"hasReferenceImage"`
	ReferenceImageDataURL *string              `json:"referenceImageDataUrl"`
}

type generatePromptResponse struct {
	GenerationID        *string `json:"generationId"`
	PromptArtifactToken string  `json:"promptArtifactToken"`
	*prompt.Result
}

var controlChars = regexp.MustCompile(`[\x00-\x08\x0E-\x1F\x7F-\x{9F}]`)

// sanitizePrompt is applied to every prompt bound into or checked against an artifact token.
func sanitizePrompt(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

func (a *App) GeneratePrompt(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req generatePromptRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	generationID := trimmed(req.GenerationID)
	userInput := trimmed(req.UserInput)
	referenceImage := trimmed(req.ReferenceImageDataURL)
	hasReference := req.HasReferenceImage != nil && *req.HasReferenceImage

	if userInput == "" {
		a.error(w, http.StatusBadRequest, "userInput is required")
		return
	}
	if len(referenceImage) > maxImageDataURL {
		a.error(w, http.StatusBadRequest, "referenceImageDataUrl is too large")
		return
	}
	if generationID != "" && !isUUID(generationID) {
		a.error(w, http.StatusBadRequest, "generationId must be a valid UUID")
		return
	}

	ctx := r.Context()
	var existing *domain.Generation
	if generationID != "" {
		g, ok := a.ownedGeneration(w, r, generationID, userID)
		if !ok {
			return
		}
		existing = g
	}

	in := prompt.Input{
		UserInput:    userInput,
		StyleOptions: req.StyleOptions,
		ImageContext: prompt.ImageContext{
			HasReferenceImage:     &hasReference,
			ReferenceImageDataURL: referenceImage,
		},
	}
	if existing != nil && existing.OriginalImagePath != "" {
		path := existing.OriginalImagePath
		in.ImageContext.OriginalImagePath = &path
	}

	result, err := a.Prompts.Generate(ctx, in)
	if err != nil {
		if errors.Is(err, prompt.ErrInputTooShort) || errors.Is(err, prompt.ErrInputTooLong) {
			a.error(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("prompt generation failed")
		a.error(w, http.StatusInternalServerError, "Prompt generation failed")
		return
	}

	token, err := a.Artifacts.Mint(artifact.Subject{
		UserID:              userID,
		Prompt:              sanitizePrompt(result.Prompt),
		ProductRequirements: optional(strings.TrimSpace(result.ProductRequirements)),
		ResearchReport:      optional(strings.TrimSpace(result.ResearchReport)),
		Model:               result.Model,
		PromptVersion:       result.PromptVersion,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("mint prompt artifact token failed")
		a.error(w, http.StatusInternalServerError, "Failed to sign prompt artifact")
		return
	}

	if existing != nil {
		options := domain.MergeOptions(existing.Options, map[string]any{
			"normalizedOptions": result.NormalizedOptions,
			"promptVersion":     result.PromptVersion,
			"promptModel":       result.Model,
			"promptSource":      "prompt-generator-api",
			"promptUserInput":   userInput,
		})
		if err := a.Generations.UpdatePrompt(ctx, existing.ID, result.Prompt, options); err != nil {
			a.Logger.Error().Err(err).Str("generation_id", existing.ID).Msg("update generation prompt failed")
			a.error(w, http.StatusInternalServerError, "Failed to update generation")
			return
		}
	}

	a.json(w, http.StatusOK, generatePromptResponse{
		GenerationID:        optional(generationID),
		PromptArtifactToken: token,
		Result:              result,
	})
}

// ownedGeneration loads a generation and writes 404/403/500 itself when it cannot be used.
func (a *App) ownedGeneration(w http.ResponseWriter, r *http.Request, id, userID string) (*domain.Generation, bool) {
	g, err := a.Generations.Get(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "Generation not found")
		return nil, false
	case err != nil:
		a.Logger.Error().Err(err).Str("generation_id", id).Msg("load generation failed")
		a.error(w, http.StatusInternalServerError, "Failed to load generation")
		return nil, false
	case !g.OwnedBy(userID):
		a.error(w, http.StatusForbidden, "Forbidden")
		return nil, false
	}
	return g, true
}
