package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

const maxReviewGenerationID = 120

type reviewRequest struct {
	GenerationID *string  `json:"generationId"`
	Rating       *float64 `json:"rating"`
	Comment      *string  `json:"comment"`
}

func validReviewGenerationID(a *App, w http.ResponseWriter, id string) bool {
	if id == "" {
		a.error(w, http.StatusBadRequest, "generationId is required")
		return false
	}
	if len(id) > maxReviewGenerationID {
		a.error(w, http.StatusBadRequest, "generationId is too long")
		return false
	}
	return true
}

func (a *App) GetReview(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	generationID := strings.TrimSpace(r.URL.Query().Get("generationId"))
	if !validReviewGenerationID(a, w, generationID) {
		return
	}
	review, err := a.Reviews.Get(r.Context(), userID, generationID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("load review failed")
		a.error(w, http.StatusInternalServerError, "Failed to load review")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"review": review})
}

func (a *App) UpsertReview(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req reviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	generationID := trimmed(req.GenerationID)
	if !validReviewGenerationID(a, w, generationID) {
		return
	}
	rating, ok := positiveInt(req.Rating)
	if !ok || rating > 5 {
		a.error(w, http.StatusBadRequest, "rating must be an integer between 1 and 5")
		return
	}
	comment := trimmed(req.Comment)
	if n := utf8.RuneCountInString(comment); n < 5 || n > 800 {
		a.error(w, http.StatusBadRequest, "comment must be between 5 and 800 characters")
		return
	}
	review, err := a.Reviews.Upsert(r.Context(), userID, generationID, rating, comment)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("upsert review failed")
		a.error(w, http.StatusInternalServerError, "Failed to save review")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"review": review})
}
