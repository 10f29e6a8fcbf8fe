package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hairfit/internal/adapter/repo"
	"hairfit/internal/artifact"
	"hairfit/internal/domain"
	"hairfit/internal/infra/identity"
	"hairfit/internal/ledger"
	"hairfit/internal/mailer"
	"hairfit/internal/middleware"
	"hairfit/internal/payments"
	"hairfit/internal/pricing"
	"hairfit/internal/providers/image"
	"hairfit/internal/providers/prompt"
)

type fakeGenerations struct {
	mu      sync.Mutex
	seq     int
	records map[string]*domain.Generation
	fails   []string
}

func newFakeGenerations() *fakeGenerations {
	return &fakeGenerations{records: map[string]*domain.Generation{}}
}

func (f *fakeGenerations) put(g *domain.Generation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[g.ID] = g
}

func (f *fakeGenerations) get(id string) *domain.Generation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id]
}

func (f *fakeGenerations) Get(_ context.Context, id string) (*domain.Generation, error) {
	if g := f.get(id); g != nil {
		cp := *g
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGenerations) Create(_ context.Context, in repo.NewGeneration) (*domain.Generation, error) {
	f.mu.Lock()
	f.seq++
	id := fmt.Sprintf("00000000-0000-4000-8000-%012d", f.seq)
	f.mu.Unlock()
	g := &domain.Generation{
		ID:                id,
		UserID:            in.UserID,
		OriginalImagePath: in.OriginalImagePath,
		PromptUsed:        in.PromptUsed,
		Options:           in.Options,
		Status:            in.Status,
		CreditsUsed:       in.CreditsUsed,
		ModelProvider:     in.ModelProvider,
		ModelName:         in.ModelName,
	}
	f.put(g)
	return g, nil
}

func (f *fakeGenerations) MarkProcessing(_ context.Context, id string, u repo.ProcessingUpdate) error {
	g := f.get(id)
	if g == nil {
		return domain.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	g.Status = domain.GenerationProcessing
	g.ErrorMessage = nil
	g.PromptUsed = u.PromptUsed
	g.Options = u.Options
	return nil
}

func (f *fakeGenerations) Complete(_ context.Context, id, path string, options map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := f.records[id]
	if g.Status != domain.GenerationProcessing {
		return domain.ErrNotProcessing
	}
	g.Status = domain.GenerationCompleted
	g.GeneratedImagePath = &path
	g.Options = options
	return nil
}

func (f *fakeGenerations) Fail(_ context.Context, id, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := f.records[id]
	if g == nil || g.Status != domain.GenerationProcessing {
		return domain.ErrNotProcessing
	}
	f.fails = append(f.fails, id)
	g.Status = domain.GenerationFailed
	g.ErrorMessage = &message
	return nil
}

func (f *fakeGenerations) UpdatePrompt(_ context.Context, id, p string, options map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := f.records[id]
	g.PromptUsed = p
	g.Options = options
	return nil
}

func (f *fakeGenerations) ListRecent(_ context.Context, userID string, limit int) ([]domain.GenerationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.GenerationSummary
	for _, g := range f.records {
		if g.UserID == userID && len(out) < limit {
			out = append(out, domain.GenerationSummary{ID: g.ID, PromptUsed: g.PromptUsed, Status: g.Status})
		}
	}
	return out, nil
}

type grantCall struct {
	req ledger.GrantRequest
}

// fakeLedger mirrors the procedures: guarded consume, grant, idempotent payment credit.
type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]int
	consumes []ledger.ConsumeRequest
	grants   []grantCall
	applied  map[string]string
	paid     map[string]bool
	seq      int
	failWith error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: map[string]int{}, applied: map[string]string{}, paid: map[string]bool{}}
}

func (f *fakeLedger) nextID() string {
	f.seq++
	return fmt.Sprintf("ledger-%d", f.seq)
}

func (f *fakeLedger) Consume(_ context.Context, req ledger.ConsumeRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	if f.balances[req.UserID] < req.Amount {
		return "", fmt.Errorf("consume credits: %w", domain.ErrInsufficientCredits)
	}
	f.balances[req.UserID] -= req.Amount
	f.consumes = append(f.consumes, req)
	return f.nextID(), nil
}

func (f *fakeLedger) Grant(_ context.Context, req ledger.GrantRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[req.UserID] += req.Amount
	f.grants = append(f.grants, grantCall{req: req})
	return f.nextID(), nil
}

func (f *fakeLedger) ApplyPaymentCredits(_ context.Context, txID, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.applied[txID]; ok {
		return id, nil
	}
	if !f.paid[txID] {
		return "", fmt.Errorf("apply payment credits: %w", domain.ErrPaymentNotPaid)
	}
	id := f.nextID()
	f.applied[txID] = id
	return id, nil
}

type fakeTx struct {
	userID   string
	status   domain.PaymentStatus
	amount   int
	currency string
	credits  int
	metadata map[string]any
	claimed  bool
	sent     bool
}

type fakePayments struct {
	mu     sync.Mutex
	ledger *fakeLedger
	txs    map[string]*fakeTx
	seq    int
	plan   string
}

func newFakePayments(l *fakeLedger) *fakePayments {
	return &fakePayments{ledger: l, txs: map[string]*fakeTx{}}
}

func (f *fakePayments) CreatePending(_ context.Context, p repo.NewPayment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("11111111-1111-4111-8111-%012d", f.seq)
	f.txs[id] = &fakeTx{userID: p.UserID, status: domain.PaymentPending, amount: p.Amount, currency: p.Currency, credits: p.CreditsToGrant, metadata: p.Metadata}
	return id, nil
}

func (f *fakePayments) AttachCheckout(_ context.Context, id, checkoutID string, metadata map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[id].metadata = metadata
	return nil
}

func (f *fakePayments) MarkFailed(_ context.Context, id string, metadata map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := f.txs[id]
	tx.status = domain.PaymentFailed
	tx.metadata = domain.MergeOptions(tx.metadata, metadata)
	return nil
}

func (f *fakePayments) MarkPaid(_ context.Context, id string, u repo.PaidUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[id]
	if !ok {
		return fmt.Errorf("mark payment paid: %w", domain.ErrPaymentNotFound)
	}
	tx.status = domain.PaymentPaid
	if u.Amount != nil {
		tx.amount = *u.Amount
	}
	f.ledger.mu.Lock()
	f.ledger.paid[id] = true
	f.ledger.mu.Unlock()
	return nil
}

func (f *fakePayments) ClaimReceipt(_ context.Context, id string) (*repo.ReceiptClaim, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := f.txs[id]
	if tx == nil || tx.claimed || tx.sent {
		return nil, false, nil
	}
	tx.claimed = true
	return &repo.ReceiptClaim{UserID: tx.userID, Currency: tx.currency, Amount: tx.amount, CreditsToGrant: tx.credits, Metadata: tx.metadata}, true, nil
}

func (f *fakePayments) MarkReceiptSent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[id].sent = true
	return nil
}

func (f *fakePayments) ReleaseReceiptClaim(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[id].claimed = false
	return nil
}

func (f *fakePayments) LatestPaidPlan(context.Context, string) (string, error) {
	return f.plan, nil
}

type fakeProfiles struct {
	ledger *fakeLedger
	emails map[string]string
}

func (f *fakeProfiles) Ensure(_ context.Context, userID, email, name string, signup int) (*domain.UserProfile, error) {
	f.ledger.mu.Lock()
	defer f.ledger.mu.Unlock()
	if _, ok := f.ledger.balances[userID]; !ok {
		f.ledger.balances[userID] = signup
	}
	return &domain.UserProfile{UserID: userID, Email: email, DisplayName: name, Credits: f.ledger.balances[userID]}, nil
}

func (f *fakeProfiles) Contact(_ context.Context, userID string) (*domain.UserProfile, error) {
	email, ok := f.emails[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	f.ledger.mu.Lock()
	defer f.ledger.mu.Unlock()
	return &domain.UserProfile{UserID: userID, Email: email, Credits: f.ledger.balances[userID]}, nil
}

type fakeReviews struct {
	saved *domain.Review
}

func (f *fakeReviews) Get(context.Context, string, string) (*domain.Review, error) {
	return f.saved, nil
}

func (f *fakeReviews) Upsert(_ context.Context, userID, generationID string, rating int, comment string) (*domain.Review, error) {
	f.saved = &domain.Review{ID: "review-1", UserID: userID, GenerationID: generationID, Rating: rating, Comment: comment}
	return f.saved, nil
}

type fakeImages struct {
	calls  int
	err    error
	during func()
}

func (f *fakeImages) Generate(_ context.Context, req image.GenerateRequest) (*image.Result, error) {
	f.calls++
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return nil, f.err
	}
	total := 42
	return &image.Result{ID: "gemini_1700000000000", Status: "succeeded", OutputURL: "data:image/png;base64,AAAA", Usage: &image.Usage{TotalTokenCount: &total}}, nil
}

type fakePrompts struct {
	result *prompt.Result
	err    error
	got    prompt.Input
}

func (f *fakePrompts) Generate(_ context.Context, in prompt.Input) (*prompt.Result, error) {
	f.got = in
	return f.result, f.err
}

type fakePolar struct {
	err error
	got payments.CheckoutInput
}

func (f *fakePolar) CreateCheckout(_ context.Context, in payments.CheckoutInput) (*payments.CheckoutSession, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &payments.CheckoutSession{ID: "chk_1", URL: "https://polar.test/chk_1"}, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Receipt
	err  error
}

func (f *fakeMailer) SendPaymentReceipt(_ context.Context, r mailer.Receipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, r)
	return nil
}

const testUser = "user_2abc"

type testEnv struct {
	app         *App
	generations *fakeGenerations
	ledger      *fakeLedger
	payments    *fakePayments
	images      *fakeImages
	prompts     *fakePrompts
	polar       *fakePolar
	mailer      *fakeMailer
	reviews     *fakeReviews
	codec       *artifact.Codec
	webhook     *payments.WebhookVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	codec, err := artifact.NewCodec("artifact-secret", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	l := newFakeLedger()
	env := &testEnv{
		generations: newFakeGenerations(),
		ledger:      l,
		payments:    newFakePayments(l),
		images:      &fakeImages{},
		prompts:     &fakePrompts{},
		polar:       &fakePolar{},
		mailer:      &fakeMailer{},
		reviews:     &fakeReviews{},
		codec:       codec,
		webhook:     payments.NewWebhookVerifier("whsec_dGVzdC13ZWJob29rLXNlY3JldA=="),
	}
	env.app = &App{
		Logger:          zerolog.Nop(),
		Economics:       pricing.Resolve(pricing.DefaultSettings()),
		Prompts:         env.prompts,
		Images:          env.images,
		Artifacts:       codec,
		Generations:     env.generations,
		Ledger:          l,
		Payments:        env.payments,
		Profiles:        &fakeProfiles{ledger: l, emails: map[string]string{testUser: "user@hairfit.test"}},
		Reviews:         env.reviews,
		Polar:           env.polar,
		Webhooks:        env.webhook,
		Mailer:          env.mailer,
		ImageModel:      "gemini-3-pro-image-preview",
		AppBaseURL:      "https://hairfit.test",
		PolarProductIDs: map[string]string{"starter": "prod_starter", "pro": "prod_pro"},
	}
	return env
}

func (e *testEnv) mintToken(t *testing.T, userID, p string, prd, report *string) string {
	t.Helper()
	token, err := e.codec.Mint(artifact.Subject{UserID: userID, Prompt: p, ProductRequirements: prd, ResearchReport: report, Model: "gemini-2.5-pro-deep-research-agent", PromptVersion: prompt.Version})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return token
}

func authed(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.ContextWithIdentity(req.Context(), identity.Identity{UserID: userID}))
}

func postJSON(t *testing.T, h http.HandlerFunc, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = authed(req, userID)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

var errProvider = errors.New("gemini status 503: model overloaded")

func newPaymentForTest() repo.NewPayment {
	return repo.NewPayment{
		UserID:         testUser,
		Currency:       "KRW",
		Amount:         13900,
		CreditsToGrant: 120,
		Metadata:       map[string]any{"plan": "starter", "locale": "ko"},
	}
}
