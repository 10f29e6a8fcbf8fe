package repo

import (
	"context"
	"fmt"

	"hairfit/internal/domain"
	"hairfit/internal/infra"
	"hairfit/internal/sqlinline"
)

type ReviewRepository struct {
	sql infra.SQLExecutor
}

func NewReviewRepository(sql infra.SQLExecutor) *ReviewRepository {
	return &ReviewRepository{sql: sql}
}

// Get returns the caller's review of a generation, or nil when there is none.
func (r *ReviewRepository) Get(ctx context.Context, userID, generationID string) (*domain.Review, error) {
	var rv domain.Review
	err := r.sql.QueryRow(ctx, sqlinline.QSelectReview, userID, generationID).
		Scan(&rv.ID, &rv.UserID, &rv.GenerationID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("select review: %w", err)
	}
	return &rv, nil
}

// Upsert writes one review per (user, generation).
func (r *ReviewRepository) Upsert(ctx context.Context, userID, generationID string, rating int, comment string) (*domain.Review, error) {
	var rv domain.Review
	err := r.sql.QueryRow(ctx, sqlinline.QUpsertReview, userID, generationID, rating, comment).
		Scan(&rv.ID, &rv.UserID, &rv.GenerationID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert review: %w", err)
	}
	return &rv, nil
}
