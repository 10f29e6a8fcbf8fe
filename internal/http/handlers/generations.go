package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hairfit/internal/adapter/repo"
	"hairfit/internal/artifact"
	"hairfit/internal/domain"
	"hairfit/internal/ledger"
	"hairfit/internal/providers/image"
)

const (
	maxRunPrompt      = 20_000
	maxRunDocument    = 30_000
	runSource         = "api/generations/run"
	imageProviderName = "gemini"
	refundTimeout     = 15 * time.Second
)

type runGenerationRequest struct {
	GenerationID        *string `json:"generationId"`
	Prompt              *string `json:"prompt"`
	PromptArtifactToken *string `json:"promptArtifactToken"`
	ProductRequirements *string `json:"productRequirements"`
	ResearchReport      *string `json:"researchReport"`
	ImageDataURL        *string `json:"imageDataUrl"`
}

type runGenerationResponse struct {
	ID             string       `json:"id"`
	Status         string       `json:"status"`
	OutputURL      string       `json:"outputUrl"`
	Usage          *image.Usage `json:"usage"`
	ChargedCredits int          `json:"chargedCredits"`
}

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func inlineOriginalImagePath(userID string, now time.Time) string {
	return fmt.Sprintf("inline-upload://%s/%d", unsafePathChars.ReplaceAllString(userID, "_"), now.UnixMilli())
}

func inlineGeneratedImagePath(runID string) string {
	return "inline-output://" + unsafePathChars.ReplaceAllString(runID, "_")
}

// RunGeneration charges the caller, runs the image model on a verified prompt and refunds the
// charge when the run fails.
func (a *App) RunGeneration(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req runGenerationRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	generationID := trimmed(req.GenerationID)
	token := trimmed(req.PromptArtifactToken)
	productRequirements := trimmed(req.ProductRequirements)
	researchReport := trimmed(req.ResearchReport)
	imageDataURL := ""
	if req.ImageDataURL != nil {
		imageDataURL = *req.ImageDataURL
	}
	promptText := ""
	if req.Prompt != nil {
		promptText = sanitizePrompt(*req.Prompt)
	}

	switch {
	case promptText == "":
		a.error(w, http.StatusBadRequest, "prompt is required")
		return
	case token == "":
		a.error(w, http.StatusBadRequest, "promptArtifactToken is required")
		return
	case generationID != "" && !isUUID(generationID):
		a.error(w, http.StatusBadRequest, "generationId must be a valid UUID")
		return
	case len([]rune(promptText)) > maxRunPrompt:
		a.error(w, http.StatusBadRequest, "prompt is too long")
		return
	case len([]rune(productRequirements)) > maxRunDocument:
		a.error(w, http.StatusBadRequest, "productRequirements is too long")
		return
	case len([]rune(researchReport)) > maxRunDocument:
		a.error(w, http.StatusBadRequest, "researchReport is too long")
		return
	case len(imageDataURL) > maxImageDataURL:
		a.error(w, http.StatusBadRequest, "imageDataUrl is too large")
		return
	case imageDataURL == "":
		a.error(w, http.StatusBadRequest, "imageDataUrl is required")
		return
	}

	payload, ok := a.Artifacts.Verify(token, artifact.Subject{
		UserID:              userID,
		Prompt:              promptText,
		ProductRequirements: optional(productRequirements),
		ResearchReport:      optional(researchReport),
	})
	if !ok {
		a.error(w, http.StatusBadRequest, "Invalid prompt artifact token")
		return
	}

	ctx := r.Context()
	creditCost := a.Economics.CreditsPerStyle()
	runStartedAt := a.now()
	log := a.Logger.With().Str("user_id", userID).Logger()

	var existingOptions map[string]any
	if generationID != "" {
		g, ok := a.ownedGeneration(w, r, generationID, userID)
		if !ok {
			return
		}
		existingOptions = g.Options
	} else {
		created, err := a.Generations.Create(ctx, repo.NewGeneration{
			UserID:            userID,
			OriginalImagePath: inlineOriginalImagePath(userID, runStartedAt),
			PromptUsed:        promptText,
			Options: map[string]any{
				"runSource":           runSource,
				"promptArtifactModel": payload.Model,
				"promptVersion":       payload.PromptVersion,
			},
			Status:        domain.GenerationProcessing,
			CreditsUsed:   creditCost,
			ModelProvider: imageProviderName,
			ModelName:     a.ImageModel,
		})
		if err != nil {
			log.Error().Err(err).Msg("create generation failed")
			a.error(w, http.StatusInternalServerError, "Failed to create generation record")
			return
		}
		generationID = created.ID
		existingOptions = created.Options
	}
	log = log.With().Str("generation_id", generationID).Logger()

	processingOptions := domain.MergeOptions(existingOptions, map[string]any{
		"runStartedAt":        runStartedAt.UTC().Format(time.RFC3339Nano),
		"promptArtifactModel": payload.Model,
		"promptVersion":       payload.PromptVersion,
		"requestedCreditCost": creditCost,
		"imageModel":          a.ImageModel,
	})
	if err := a.Generations.MarkProcessing(ctx, generationID, repo.ProcessingUpdate{
		PromptUsed:    promptText,
		CreditsUsed:   creditCost,
		ModelProvider: imageProviderName,
		ModelName:     a.ImageModel,
		Options:       processingOptions,
	}); err != nil {
		log.Error().Err(err).Msg("mark generation processing failed")
		a.failGeneration(ctx, generationID, err.Error())
		a.error(w, http.StatusInternalServerError, "Failed to start generation")
		return
	}

	if _, err := a.Ledger.Consume(ctx, ledger.ConsumeRequest{
		UserID:       userID,
		GenerationID: generationID,
		Amount:       creditCost,
		Reason:       domain.ReasonGenerationUsage,
		Metadata: map[string]any{
			"source":              runSource,
			"promptArtifactModel": payload.Model,
			"promptVersion":       payload.PromptVersion,
			"chargedAt":           a.now().UTC().Format(time.RFC3339Nano),
		},
	}); err != nil {
		a.failGeneration(ctx, generationID, err.Error())
		if errors.Is(err, domain.ErrInsufficientCredits) {
			a.error(w, http.StatusConflict, "Insufficient credits")
			return
		}
		log.Error().Err(err).Msg("consume credits failed")
		a.error(w, http.StatusInternalServerError, "Failed to charge credits")
		return
	}

	result, err := a.invokeImage(ctx, image.GenerateRequest{
		Prompt:              promptText,
		ProductRequirements: productRequirements,
		ResearchReport:      researchReport,
		ImageDataURL:        imageDataURL,
	})
	if err != nil {
		log.Warn().Err(err).Msg("image generation failed after charge")
		if a.failGeneration(ctx, generationID, err.Error()) {
			a.refund(ctx, userID, generationID, creditCost, err.Error())
		} else {
			log.Warn().Msg("generation already settled or not failed; refund left to the sweeper")
		}
		a.error(w, http.StatusInternalServerError, err.Error())
		return
	}

	completedOptions := domain.MergeOptions(processingOptions, map[string]any{
		"runCompletedAt":     a.now().UTC().Format(time.RFC3339Nano),
		"imageProviderRunId": result.ID,
		"imageUsage":         result.Usage,
	})
	err = a.Generations.Complete(ctx, generationID, inlineGeneratedImagePath(result.ID), completedOptions)
	switch {
	case errors.Is(err, domain.ErrNotProcessing):
		log.Warn().Msg("generation was reaped while running; its charge was already refunded")
		a.error(w, http.StatusConflict, "Generation expired before completion; credits were refunded")
		return
	case err != nil:
		log.Error().Err(err).Msg("completed update failed")
	}

	a.json(w, http.StatusOK, runGenerationResponse{
		ID:             generationID,
		Status:         result.Status,
		OutputURL:      result.OutputURL,
		Usage:          result.Usage,
		ChargedCredits: creditCost,
	})
}

// invokeImage runs the image model inside a concurrency slot. The configured timeout covers
// the wait for the slot as well as the model call.
func (a *App) invokeImage(ctx context.Context, req image.GenerateRequest) (*image.Result, error) {
	if a.ImageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.ImageTimeout)
		defer cancel()
	}
	if a.ImageSlots != nil {
		if err := a.ImageSlots.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("wait for image slot: %w", err)
		}
		defer a.ImageSlots.Release(1)
	}
	return a.Images.Generate(ctx, req)
}

// failGeneration reports whether this call moved the generation from processing to failed.
func (a *App) failGeneration(ctx context.Context, generationID, message string) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()
	err := a.Generations.Fail(ctx, generationID, message)
	switch {
	case errors.Is(err, domain.ErrNotProcessing):
		a.Logger.Warn().Str("generation_id", generationID).Msg("generation already settled")
		return false
	case err != nil:
		a.Logger.Error().Err(err).Str("generation_id", generationID).Msg("mark generation failed failed")
		return false
	}
	return true
}

// refund returns a charge for a failed run. Errors are logged only.
func (a *App) refund(ctx context.Context, userID, generationID string, amount int, cause string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()
	genID := generationID
	ledgerID, err := a.Ledger.Grant(ctx, ledger.GrantRequest{
		UserID:    userID,
		Amount:    amount,
		EntryType: domain.LedgerRefund,
		Reason:    domain.ReasonGenerationRefund,
		Metadata: map[string]any{
			"source":       runSource,
			"generationId": generationID,
			"reason":       domain.RefundReasonAfterCharge,
			"error":        cause,
		},
		GenerationID: &genID,
	})
	if err != nil {
		a.Logger.Error().Err(err).Str("generation_id", generationID).Msg("refund failed")
		return
	}
	a.Logger.Info().Str("generation_id", generationID).Str("ledger_id", ledgerID).Int("amount", amount).Msg("refunded failed generation")
}

// GenerationStatus answers the retired polling route.
func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	if a.currentUserID(r) == "" {
		a.error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		a.error(w, http.StatusBadRequest, "prediction id is required")
		return
	}
	a.json(w, http.StatusGone, map[string]string{
		"id":     id,
		"status": string(domain.GenerationFailed),
		"error":  "Polling route is not used in Gemini sync image generation flow.",
	})
}
