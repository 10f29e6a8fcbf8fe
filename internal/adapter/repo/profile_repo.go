package repo

import (
	"context"
	"fmt"

	"hairfit/internal/domain"
	"hairfit/internal/infra"
	"hairfit/internal/sqlinline"
)

// ProfileRepository manages user profiles and their cached balances.
type ProfileRepository struct {
	sql infra.SQLExecutor
}

func NewProfileRepository(sql infra.SQLExecutor) *ProfileRepository {
	return &ProfileRepository{sql: sql}
}

// Ensure creates the profile on first sight, granting signupCredits once, and refreshes contact details.
func (r *ProfileRepository) Ensure(ctx context.Context, userID, email, displayName string, signupCredits int) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := r.sql.QueryRow(ctx, sqlinline.QEnsureUserProfile, userID, email, displayName, signupCredits).
		Scan(&p.UserID, &p.Email, &p.DisplayName, &p.Credits, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ensure user profile: %w", err)
	}
	return &p, nil
}

// Contact returns email, display name and balance. domain.ErrNotFound when the profile is missing.
func (r *ProfileRepository) Contact(ctx context.Context, userID string) (*domain.UserProfile, error) {
	p := domain.UserProfile{UserID: userID}
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectUserContact, userID).Scan(&p.Email, &p.DisplayName, &p.Credits); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select user contact: %w", err)
	}
	return &p, nil
}
