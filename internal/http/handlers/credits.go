package handlers

import (
	"errors"
	"net/http"

	"hairfit/internal/domain"
	"hairfit/internal/ledger"
)

type consumeCreditsRequest struct {
	GenerationID *string        `json:"generationId"`
	Amount       *float64       `json:"amount"`
	Reason       *string        `json:"reason"`
	Metadata     map[string]any `json:"metadata"`
}

func (a *App) ConsumeCredits(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req consumeCreditsRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	generationID := trimmed(req.GenerationID)
	if !isUUID(generationID) {
		a.error(w, http.StatusBadRequest, "generationId must be a valid UUID")
		return
	}
	amount := a.Economics.CreditsPerStyle()
	if req.Amount != nil {
		n, ok := positiveInt(req.Amount)
		if !ok {
			a.error(w, http.StatusBadRequest, "amount must be a positive integer")
			return
		}
		amount = n
	}
	reason := trimmed(req.Reason)
	if reason == "" {
		reason = domain.ReasonGenerationUsage
	}
	if _, ok := a.ownedGeneration(w, r, generationID, userID); !ok {
		return
	}

	ledgerID, err := a.Ledger.Consume(r.Context(), ledger.ConsumeRequest{
		UserID:       userID,
		GenerationID: generationID,
		Amount:       amount,
		Reason:       reason,
		Metadata:     req.Metadata,
	})
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusConflict, "Insufficient credits")
		return
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		a.Logger.Error().Err(err).Str("user_id", userID).Str("generation_id", generationID).Msg("consume credits failed")
		a.error(w, http.StatusInternalServerError, "Failed to consume credits")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"ledgerId": ledgerID})
}
