package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"hairfit/internal/adapter/repo"
	"hairfit/internal/artifact"
	"hairfit/internal/domain"
	"hairfit/internal/ledger"
	"hairfit/internal/mailer"
	"hairfit/internal/middleware"
	"hairfit/internal/payments"
	"hairfit/internal/pricing"
	"hairfit/internal/providers/image"
	"hairfit/internal/providers/prompt"
)

type PromptGenerator interface {
	Generate(ctx context.Context, in prompt.Input) (*prompt.Result, error)
}

type ArtifactCodec interface {
	Mint(s artifact.Subject) (string, error)
	Verify(token string, s artifact.Subject) (*artifact.Payload, bool)
}

type GenerationStore interface {
	Get(ctx context.Context, id string) (*domain.Generation, error)
	Create(ctx context.Context, in repo.NewGeneration) (*domain.Generation, error)
	MarkProcessing(ctx context.Context, id string, u repo.ProcessingUpdate) error
	Complete(ctx context.Context, id, generatedImagePath string, options map[string]any) error
	Fail(ctx context.Context, id, message string) error
	UpdatePrompt(ctx context.Context, id, prompt string, options map[string]any) error
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.GenerationSummary, error)
}

type CreditLedger interface {
	Consume(ctx context.Context, req ledger.ConsumeRequest) (string, error)
	Grant(ctx context.Context, req ledger.GrantRequest) (string, error)
	ApplyPaymentCredits(ctx context.Context, paymentTransactionID, reason string) (string, error)
}

type PaymentStore interface {
	CreatePending(ctx context.Context, p repo.NewPayment) (string, error)
	AttachCheckout(ctx context.Context, id, checkoutID string, metadata map[string]any) error
	MarkFailed(ctx context.Context, id string, metadata map[string]any) error
	MarkPaid(ctx context.Context, id string, u repo.PaidUpdate) error
	ClaimReceipt(ctx context.Context, id string) (*repo.ReceiptClaim, bool, error)
	MarkReceiptSent(ctx context.Context, id string) error
	ReleaseReceiptClaim(ctx context.Context, id string) error
	LatestPaidPlan(ctx context.Context, userID string) (string, error)
}

type ProfileStore interface {
	Ensure(ctx context.Context, userID, email, displayName string, signupCredits int) (*domain.UserProfile, error)
	Contact(ctx context.Context, userID string) (*domain.UserProfile, error)
}

type ReviewStore interface {
	Get(ctx context.Context, userID, generationID string) (*domain.Review, error)
	Upsert(ctx context.Context, userID, generationID string, rating int, comment string) (*domain.Review, error)
}

type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, in payments.CheckoutInput) (*payments.CheckoutSession, error)
}

type WebhookVerifier interface {
	Verify(payload []byte, headers http.Header) (*payments.Event, error)
}

type ReceiptMailer interface {
	SendPaymentReceipt(ctx context.Context, r mailer.Receipt) error
}

// App holds the dependencies shared by every handler. Polar, Webhooks and Mailer are
// optional; the routes that need them answer 503 or skip the step when they are nil.
type App struct {
	Logger    zerolog.Logger
	Economics pricing.Economics

	Prompts   PromptGenerator
	Images    image.Generator
	Artifacts ArtifactCodec

	Generations GenerationStore
	Ledger      CreditLedger
	Payments    PaymentStore
	Profiles    ProfileStore
	Reviews     ReviewStore

	Polar    CheckoutCreator
	Webhooks WebhookVerifier
	Mailer   ReceiptMailer

	ImageModel   string
	ImageSlots   *semaphore.Weighted
	ImageTimeout time.Duration

	AppBaseURL      string
	PolarProductIDs map[string]string
	PolarSuccessURL string

	Now func() time.Time
}

const maxJSONBody = 16 << 20

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, message string) {
	a.json(w, status, map[string]string{"error": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// decodeBody reads a JSON object into dst. An empty body leaves dst zero-valued.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// isUUID accepts canonical RFC 4122 UUIDs of versions 1 through 8.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Variant() == uuid.RFC4122 && id.Version() >= 1 && id.Version() <= 8
}

func positiveInt(v *float64) (int, bool) {
	if v == nil || *v <= 0 || *v != math.Trunc(*v) || *v > math.MaxInt32 {
		return 0, false
	}
	return int(*v), true
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
