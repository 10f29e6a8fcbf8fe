package handlers

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"hairfit/internal/domain"
	"hairfit/internal/middleware"
	"hairfit/internal/pricing"
)

const recentGenerationsLimit = 10

type meResponse struct {
	UserID            string                     `json:"userId"`
	Email             string                     `json:"email"`
	DisplayName       string                     `json:"displayName"`
	Plan              string                     `json:"plan"`
	Credits           int                        `json:"credits"`
	CreditsPerStyle   int                        `json:"creditsPerStyle"`
	EstimatedStyles   int                        `json:"estimatedStyles"`
	RecentGenerations []domain.GenerationSummary `json:"recentGenerations"`
}

func placeholderEmail(userID string) string {
	return userID + "@placeholder.local"
}

// Me ensures the caller's profile exists and returns it with the latest plan and recent runs.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok || id.UserID == "" {
		a.error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	email := id.Email
	if email == "" {
		email = placeholderEmail(id.UserID)
	}

	var (
		profile *domain.UserProfile
		plan    string
		recent  []domain.GenerationSummary
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		p, err := a.Profiles.Ensure(ctx, id.UserID, email, id.Name, pricing.FreeTierCredits())
		profile = p
		return err
	})
	g.Go(func() error {
		p, err := a.Payments.LatestPaidPlan(ctx, id.UserID)
		plan = p
		return err
	})
	g.Go(func() error {
		list, err := a.Generations.ListRecent(ctx, id.UserID, recentGenerationsLimit)
		recent = list
		return err
	})
	if err := g.Wait(); err != nil {
		a.Logger.Error().Err(err).Str("user_id", id.UserID).Msg("load profile failed")
		a.error(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	if plan == "" {
		plan = pricing.TierFree
	}
	if recent == nil {
		recent = []domain.GenerationSummary{}
	}
	perStyle := a.Economics.CreditsPerStyle()
	a.json(w, http.StatusOK, meResponse{
		UserID:            id.UserID,
		Email:             profile.Email,
		DisplayName:       profile.DisplayName,
		Plan:              plan,
		Credits:           profile.Credits,
		CreditsPerStyle:   perStyle,
		EstimatedStyles:   profile.Credits / perStyle,
		RecentGenerations: recent,
	})
}
