package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"hairfit/internal/adapter/repo"
	"hairfit/internal/domain"
	"hairfit/internal/mailer"
	"hairfit/internal/middleware"
	"hairfit/internal/payments"
	"hairfit/internal/pricing"
)

const (
	maxWebhookBody  = 1 << 20
	checkoutSource  = "api/payments/checkout"
	orderPaidEvent  = "order.paid"
	receiptTimeout  = 20 * time.Second
	placeholderMail = "@placeholder.local"
)

type checkoutRequest struct {
	Plan           *string  `json:"plan"`
	ProductID      *string  `json:"productId"`
	Amount         *float64 `json:"amount"`
	CreditsToGrant *float64 `json:"creditsToGrant"`
	Currency       *string  `json:"currency"`
	SuccessURL     *string  `json:"successUrl"`
}

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

func parsePlan(raw string) string {
	switch raw {
	case pricing.TierStarter, pricing.TierPro:
		return raw
	}
	return ""
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Checkout opens a pending payment transaction and a hosted checkout session for it.
func (a *App) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if a.Polar == nil {
		a.error(w, http.StatusServiceUnavailable, "Polar is not configured")
		return
	}
	var req checkoutRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	plan := parsePlan(trimmed(req.Plan))
	productID := trimmed(req.ProductID)
	if productID == "" && plan != "" {
		productID = strings.TrimSpace(a.PolarProductIDs[plan])
	}
	if productID == "" {
		a.error(w, http.StatusBadRequest, "Missing product ID. Provide productId in request body or set POLAR_PRODUCT_ID_STARTER / POLAR_PRODUCT_ID_PRO.")
		return
	}

	var tier *pricing.Tier
	if plan != "" {
		if t, ok := a.Economics.Tier(plan); ok {
			tier = &t
		}
	}
	// A known plan fixes the grant and the price; client values only apply to custom checkouts.
	credits, ok := positiveInt(req.CreditsToGrant)
	if tier != nil && tier.MonthlyCredits > 0 {
		credits, ok = tier.MonthlyCredits, true
	}
	if !ok {
		a.error(w, http.StatusBadRequest, "Unable to resolve creditsToGrant. Provide creditsToGrant in request body or use plan starter/pro.")
		return
	}
	amount, ok := positiveInt(req.Amount)
	currency := strings.ToUpper(trimmed(req.Currency))
	if tier != nil && tier.MonthlyPriceKRW > 0 {
		amount, ok = int(tier.MonthlyPriceKRW), true
		currency = "KRW"
	}
	if !ok {
		a.error(w, http.StatusBadRequest, "Unable to resolve amount. Provide amount in request body or use plan starter/pro.")
		return
	}
	if currency == "" {
		currency = "KRW"
	}
	if !currencyCode.MatchString(currency) {
		a.error(w, http.StatusBadRequest, "currency must be a 3-letter ISO code")
		return
	}
	successURL := trimmed(req.SuccessURL)
	if successURL == "" {
		successURL = strings.TrimSpace(a.PolarSuccessURL)
	}
	if successURL == "" {
		successURL = strings.TrimRight(a.AppBaseURL, "/") + "/mypage?payment=success&checkout_id={CHECKOUT_ID}"
	}
	if !isAbsoluteHTTPURL(successURL) {
		a.error(w, http.StatusBadRequest, "successUrl must be an absolute http(s) URL")
		return
	}

	ctx := r.Context()
	txMetadata := map[string]any{
		"product_id":      productID,
		"checkout_source": checkoutSource,
		domain.MetaLocale: middleware.LocaleFromContext(ctx),
	}
	checkoutMetadata := map[string]any{
		"user_id":          userID,
		"credits_to_grant": credits,
	}
	if plan != "" {
		txMetadata[domain.MetaPlan] = plan
		checkoutMetadata[domain.MetaPlan] = plan
	}

	txID, err := a.Payments.CreatePending(ctx, repo.NewPayment{
		UserID:         userID,
		Currency:       currency,
		Amount:         amount,
		CreditsToGrant: credits,
		Metadata:       txMetadata,
	})
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("create payment transaction failed")
		a.error(w, http.StatusInternalServerError, "Failed to create payment transaction")
		return
	}
	log := a.Logger.With().Str("payment_transaction_id", txID).Logger()
	checkoutMetadata["payment_transaction_id"] = txID

	session, err := a.Polar.CreateCheckout(ctx, payments.CheckoutInput{
		ProductIDs:         []string{productID},
		ExternalCustomerID: userID,
		SuccessURL:         successURL,
		Metadata:           checkoutMetadata,
	})
	if err != nil {
		log.Error().Err(err).Msg("create checkout failed")
		if markErr := a.Payments.MarkFailed(context.WithoutCancel(ctx), txID, map[string]any{"checkout_error": err.Error()}); markErr != nil {
			log.Error().Err(markErr).Msg("mark payment failed failed")
		}
		a.error(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := a.Payments.AttachCheckout(ctx, txID, session.ID, domain.MergeOptions(txMetadata, map[string]any{
		"checkout_id": session.ID,
		"success_url": successURL,
	})); err != nil {
		log.Error().Err(err).Str("checkout_id", session.ID).Msg("attach checkout failed")
	}

	a.json(w, http.StatusOK, map[string]string{
		"paymentTransactionId": txID,
		"checkoutId":           session.ID,
		"checkoutUrl":          session.URL,
	})
}

// PaymentWebhook settles paid orders. Every delivery of the same order yields the same ledger
// entry; deliveries that cannot be correlated are acknowledged with 202 so they are not retried.
func (a *App) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if a.Webhooks == nil {
		a.error(w, http.StatusServiceUnavailable, "Polar webhook secret is not configured")
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	if len(raw) == 0 {
		a.error(w, http.StatusBadRequest, "Missing webhook payload")
		return
	}

	event, err := a.Webhooks.Verify(raw, r.Header)
	if err != nil {
		a.Logger.Warn().Err(err).Str("webhook_id", r.Header.Get("webhook-id")).Msg("webhook rejected")
		a.error(w, http.StatusForbidden, err.Error())
		return
	}
	if event.Type != orderPaidEvent {
		a.json(w, http.StatusOK, map[string]any{"received": true, "ignoredType": event.Type})
		return
	}

	order, ok := payments.ExtractOrderPaid(event.Data)
	if !ok {
		a.ignoreWebhook(w, "payment_transaction_id missing")
		return
	}
	if !isUUID(order.PaymentTransactionID) {
		a.ignoreWebhook(w, domain.ErrPaymentNotFound.Error())
		return
	}
	ctx := r.Context()
	log := a.Logger.With().Str("payment_transaction_id", order.PaymentTransactionID).Logger()

	err = a.Payments.MarkPaid(ctx, order.PaymentTransactionID, repo.PaidUpdate{
		ProviderOrderID: order.ProviderOrderID,
		CustomerID:      order.CustomerID,
		Amount:          order.Amount,
		Currency:        order.Currency,
	})
	if errors.Is(err, domain.ErrPaymentNotFound) {
		a.ignoreWebhook(w, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("mark payment paid failed")
		a.error(w, http.StatusInternalServerError, "Failed to update payment transaction")
		return
	}

	ledgerID, err := a.Ledger.ApplyPaymentCredits(ctx, order.PaymentTransactionID, domain.ReasonPolarOrderPaid)
	if errors.Is(err, domain.ErrPaymentNotFound) || errors.Is(err, domain.ErrPaymentNotPaid) {
		a.ignoreWebhook(w, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("apply payment credits failed")
		a.error(w, http.StatusInternalServerError, "Failed to apply payment credits")
		return
	}
	log.Info().Str("ledger_id", ledgerID).Msg("payment credited")

	a.sendReceipt(ctx, order.PaymentTransactionID)

	a.json(w, http.StatusOK, map[string]any{
		"received":             true,
		"paymentTransactionId": order.PaymentTransactionID,
		"ledgerId":             ledgerID,
	})
}

func (a *App) ignoreWebhook(w http.ResponseWriter, reason string) {
	a.Logger.Info().Str("reason", reason).Msg("webhook ignored")
	a.json(w, http.StatusAccepted, map[string]any{"received": true, "ignoredReason": reason})
}

// sendReceipt emails a payment receipt at most once per transaction. Failures release the
// claim so a later delivery can retry; they never fail the webhook.
func (a *App) sendReceipt(ctx context.Context, txID string) {
	if a.Mailer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), receiptTimeout)
	defer cancel()
	log := a.Logger.With().Str("payment_transaction_id", txID).Logger()

	claim, won, err := a.Payments.ClaimReceipt(ctx, txID)
	if err != nil {
		log.Warn().Err(err).Msg("claim receipt failed")
		return
	}
	if !won {
		return
	}
	release := func(cause error, msg string) {
		log.Warn().Err(cause).Msg(msg)
		if err := a.Payments.ReleaseReceiptClaim(ctx, txID); err != nil {
			log.Error().Err(err).Msg("release receipt claim failed")
		}
	}

	profile, err := a.Profiles.Contact(ctx, claim.UserID)
	if err != nil {
		release(err, "load receipt recipient failed")
		return
	}
	if profile.Email == "" || strings.HasSuffix(profile.Email, placeholderMail) {
		release(domain.ErrNotFound, "receipt recipient has no email")
		return
	}

	plan, _ := claim.Metadata[domain.MetaPlan].(string)
	locale, _ := claim.Metadata[domain.MetaLocale].(string)
	balance := profile.Credits
	err = a.Mailer.SendPaymentReceipt(ctx, mailer.Receipt{
		To:                   profile.Email,
		CreditsGranted:       claim.CreditsToGrant,
		CurrentCredits:       &balance,
		Amount:               claim.Amount,
		Currency:             claim.Currency,
		Plan:                 plan,
		MyPageURL:            strings.TrimRight(a.AppBaseURL, "/") + "/mypage",
		PaymentTransactionID: txID,
		Locale:               locale,
	})
	if err != nil {
		release(err, "send receipt failed")
		return
	}
	if err := a.Payments.MarkReceiptSent(ctx, txID); err != nil {
		log.Error().Err(err).Msg("mark receipt sent failed")
	}
}
