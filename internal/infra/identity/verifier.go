// Package identity verifies session bearer tokens and extracts the caller identity.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email,omitempty"`
	Name         string         `json:"name,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

func (c *sessionClaims) identity() (Identity, error) {
	sub := strings.TrimSpace(c.Subject)
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		for _, key := range []string{"full_name", "name"} {
			if v, ok := c.UserMetadata[key].(string); ok && strings.TrimSpace(v) != "" {
				name = strings.TrimSpace(v)
				break
			}
		}
	}
	return Identity{UserID: sub, Email: strings.TrimSpace(c.Email), Name: name}, nil
}

// HMACVerifier accepts HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), now: time.Now}
}

func (v *HMACVerifier) Verify(_ context.Context, token string) (Identity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	var claims sessionClaims
	if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.identity()
}

// Config selects and configures a Verifier.
type Config struct {
	JWKSURL  string
	Issuer   string
	Audience string
	Secret   string
}

// New returns a JWKS verifier when a JWKS URL is configured, otherwise an HS256 verifier.
func New(cfg Config) (Verifier, error) {
	if strings.TrimSpace(cfg.JWKSURL) != "" {
		return NewJWKSVerifier(cfg.JWKSURL, cfg.Issuer, cfg.Audience), nil
	}
	if strings.TrimSpace(cfg.Secret) != "" {
		return NewHMACVerifier(cfg.Secret), nil
	}
	return nil, errors.New("identity: no verifier configured")
}
