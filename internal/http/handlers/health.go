package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Pricing publishes the resolved economics and the suggested plans.
func (a *App) Pricing(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"economics": a.Economics,
		"tiers":     a.Economics.Tiers(),
	})
}
