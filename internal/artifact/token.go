// Package artifact mints and verifies prompt artifact tokens: short-lived HS256 tokens that bind
// a generated prompt (and its optional long-form context) to the user it was generated for.
package artifact

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the token lifetime when none is configured.
const DefaultTTL = 30 * time.Minute

// Subject is the content a token is bound to. A nil pointer and an empty string fingerprint differently.
type Subject struct {
	UserID              string
	Prompt              string
	ProductRequirements *string
	ResearchReport      *string
	Model               string
	PromptVersion       string
}

// Payload is what a verified token asserts.
type Payload struct {
	Fingerprint   string
	UserID        string
	Model         string
	PromptVersion string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

type claims struct {
	Fingerprint   string `json:"fp"`
	UserID        string `json:"uid"`
	Model         string `json:"model"`
	PromptVersion string `json:"pv"`
	jwt.RegisteredClaims
}

// Codec holds the signing secret and token lifetime.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("artifact: secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Mint signs a token for s.
func (c *Codec) Mint(s Subject) (string, error) {
	fp, err := Fingerprint(s)
	if err != nil {
		return "", err
	}
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Fingerprint:   fp,
		UserID:        s.UserID,
		Model:         s.Model,
		PromptVersion: s.PromptVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	return token.SignedString(c.secret)
}

// Verify checks the signature and expiry of token and that it was minted for exactly the
// user and content in s. Model and PromptVersion in s are ignored; the token's own values are
// returned in the payload. Any failure yields ok=false.
func (c *Codec) Verify(token string, s Subject) (*Payload, bool) {
	if token == "" {
		return nil, false
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	var cl claims
	if _, err := parser.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}); err != nil {
		return nil, false
	}
	if cl.UserID == "" || cl.UserID != s.UserID {
		return nil, false
	}

	want, err := Fingerprint(s)
	if err != nil {
		return nil, false
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(cl.Fingerprint)) != 1 {
		return nil, false
	}

	p := &Payload{
		Fingerprint:   cl.Fingerprint,
		UserID:        cl.UserID,
		Model:         cl.Model,
		PromptVersion: cl.PromptVersion,
	}
	if cl.IssuedAt != nil {
		p.IssuedAt = cl.IssuedAt.Time
	}
	if cl.ExpiresAt != nil {
		p.ExpiresAt = cl.ExpiresAt.Time
	}
	return p, true
}

// Fingerprint hashes the bound content as length-prefixed raw bytes. Optional fields carry a
// presence byte so nil and empty differ.
func Fingerprint(s Subject) (string, error) {
	h := sha256.New()
	writeField := func(v []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(v)))
		h.Write(n[:])
		h.Write(v)
	}
	writeOptional := func(v *string) {
		if v == nil {
			h.Write([]byte{0})
			return
		}
		h.Write([]byte{1})
		writeField([]byte(*v))
	}
	writeField([]byte(s.UserID))
	writeField([]byte(s.Prompt))
	writeOptional(s.ProductRequirements)
	writeOptional(s.ResearchReport)
	return hex.EncodeToString(h.Sum(nil)), nil
}
