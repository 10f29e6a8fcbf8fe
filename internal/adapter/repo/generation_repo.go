package repo

import (
	"context"
	"fmt"
	"time"

	"hairfit/internal/domain"
	"hairfit/internal/infra"
	"hairfit/internal/sqlinline"
)

// GenerationRepository persists generation records.
type GenerationRepository struct {
	sql infra.SQLExecutor
}

func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepository {
	return &GenerationRepository{sql: sql}
}

// NewGeneration holds the columns set when a record is first created.
type NewGeneration struct {
	UserID            string
	OriginalImagePath string
	PromptUsed        string
	Options           map[string]any
	Status            domain.GenerationStatus
	CreditsUsed       int
	ModelProvider     string
	ModelName         string
}

// ProcessingUpdate moves a generation (back) into processing for a run.
type ProcessingUpdate struct {
	PromptUsed    string
	CreditsUsed   int
	ModelProvider string
	ModelName     string
	Options       map[string]any
}

// StaleGeneration identifies a record reaped by the sweeper.
type StaleGeneration struct {
	ID     string
	UserID string
}

// Get loads a generation by id. domain.ErrNotFound is returned when it does not exist.
func (r *GenerationRepository) Get(ctx context.Context, id string) (*domain.Generation, error) {
	var (
		g       domain.Generation
		options []byte
		status  string
	)
	err := r.sql.QueryRow(ctx, sqlinline.QSelectGeneration, id).
		Scan(&g.ID, &g.UserID, &g.OriginalImagePath, &options, &status)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select generation: %w", err)
	}
	g.Options = decodeJSONB(options)
	g.Status = domain.GenerationStatus(status)
	return &g, nil
}

func (r *GenerationRepository) Create(ctx context.Context, in NewGeneration) (*domain.Generation, error) {
	options, err := encodeJSONB(in.Options)
	if err != nil {
		return nil, err
	}
	var (
		id      string
		created []byte
	)
	err = r.sql.QueryRow(ctx, sqlinline.QInsertGeneration,
		in.UserID,
		in.OriginalImagePath,
		in.PromptUsed,
		options,
		string(in.Status),
		in.CreditsUsed,
		in.ModelProvider,
		in.ModelName,
	).Scan(&id, &created)
	if err != nil {
		return nil, fmt.Errorf("insert generation: %w", err)
	}
	if id == "" {
		return nil, fmt.Errorf("insert generation: empty id")
	}
	return &domain.Generation{
		ID:                id,
		UserID:            in.UserID,
		OriginalImagePath: in.OriginalImagePath,
		PromptUsed:        in.PromptUsed,
		Options:           decodeJSONB(created),
		Status:            in.Status,
		CreditsUsed:       in.CreditsUsed,
		ModelProvider:     in.ModelProvider,
		ModelName:         in.ModelName,
	}, nil
}

func (r *GenerationRepository) MarkProcessing(ctx context.Context, id string, u ProcessingUpdate) error {
	options, err := encodeJSONB(u.Options)
	if err != nil {
		return err
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QMarkGenerationProcessing,
		id, u.PromptUsed, u.CreditsUsed, u.ModelProvider, u.ModelName, options,
	); err != nil {
		return fmt.Errorf("mark generation processing: %w", err)
	}
	return nil
}

// Complete settles a processing generation. domain.ErrNotProcessing is returned when the
// generation was already failed, for example by the stale sweeper.
func (r *GenerationRepository) Complete(ctx context.Context, id, generatedImagePath string, options map[string]any) error {
	raw, err := encodeJSONB(options)
	if err != nil {
		return err
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteGeneration, id, generatedImagePath, raw)
	if err != nil {
		return fmt.Errorf("complete generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete generation: %w", domain.ErrNotProcessing)
	}
	return nil
}

// Fail marks a processing generation failed. Only the caller whose update wins may refund it.
func (r *GenerationRepository) Fail(ctx context.Context, id, message string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailGeneration, id, message)
	if err != nil {
		return fmt.Errorf("fail generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fail generation: %w", domain.ErrNotProcessing)
	}
	return nil
}

func (r *GenerationRepository) UpdatePrompt(ctx context.Context, id, prompt string, options map[string]any) error {
	raw, err := encodeJSONB(options)
	if err != nil {
		return err
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QUpdateGenerationPrompt, id, prompt, raw); err != nil {
		return fmt.Errorf("update generation prompt: %w", err)
	}
	return nil
}

func (r *GenerationRepository) ListRecent(ctx context.Context, userID string, limit int) ([]domain.GenerationSummary, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListRecentGenerations, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.GenerationSummary, 0, limit)
	for rows.Next() {
		var (
			s      domain.GenerationSummary
			status string
		)
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.PromptUsed, &status); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		s.Status = domain.GenerationStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReapStale fails up to limit generations that have been processing for longer than olderThan.
func (r *GenerationRepository) ReapStale(ctx context.Context, olderThan time.Duration, limit int, message string) ([]StaleGeneration, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QReapStaleGenerations, int(olderThan.Seconds()), limit, message)
	if err != nil {
		return nil, fmt.Errorf("reap stale generations: %w", err)
	}
	defer rows.Close()

	var out []StaleGeneration
	for rows.Next() {
		var s StaleGeneration
		if err := rows.Scan(&s.ID, &s.UserID); err != nil {
			return nil, fmt.Errorf("scan stale generation: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
