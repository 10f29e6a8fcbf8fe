// Package credentials reads and writes provider secrets kept in the integration_tokens table.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"hairfit/internal/infra"
	"hairfit/internal/sqlinline"
)

const ProviderGemini = "gemini"

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	var token string
	if err := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider).Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

// SetGeminiAPIKey stores key, recording who set it and when.
func (s *Store) SetGeminiAPIKey(ctx context.Context, key, setBy string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	props := map[string]any{"updated_at": time.Now().UTC().Format(time.RFC3339)}
	if setBy = strings.TrimSpace(setBy); setBy != "" {
		props["set_by"] = setBy
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, ProviderGemini, key, raw)
	return err
}

// ResolveGeminiAPIKey prefers the configured key and falls back to the stored one.
func (s *Store) ResolveGeminiAPIKey(ctx context.Context, configured string) (string, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured, nil
	}
	if s == nil {
		return "", nil
	}
	return s.GeminiAPIKey(ctx)
}
