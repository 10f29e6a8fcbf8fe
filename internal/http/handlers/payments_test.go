package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"hairfit/internal/domain"
)

func (e *testEnv) deliver(t *testing.T, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	now := time.Now()
	ts := strconv.FormatInt(now.Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("webhook-id", id)
	req.Header.Set("webhook-timestamp", ts)
	req.Header.Set("webhook-signature", e.webhook.Sign(id, now, []byte(body)))
	rr := httptest.NewRecorder()
	e.app.PaymentWebhook(rr, req)
	return rr
}

func orderPaidBody(txID string) string {
	return `{"type":"order.paid","data":{"id":"ord_1","customer":{"id":"cus_1"},"amount":13900,"currency":"krw","metadata":{"payment_transaction_id":"` + txID + `"}}}`
}

func TestCheckoutCreatesPendingTransaction(t *testing.T) {
	env := newTestEnv(t)
	rr := postJSON(t, env.app.Checkout, testUser, `{"plan":"starter"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	tx := env.payments.txs[resp["paymentTransactionId"]]
	if tx == nil || tx.status != domain.PaymentPending || tx.credits != 120 || tx.amount != 13900 || tx.currency != "KRW" {
		t.Fatalf("transaction = %+v", tx)
	}
	if tx.metadata["checkout_id"] != "chk_1" || tx.metadata["plan"] != "starter" || tx.metadata["locale"] != "ko" {
		t.Fatalf("metadata = %#v", tx.metadata)
	}
	got := env.polar.got
	if got.ProductIDs[0] != "prod_starter" || got.ExternalCustomerID != testUser {
		t.Fatalf("checkout input = %+v", got)
	}
	if got.SuccessURL != "https://hairfit.test/mypage?payment=success&checkout_id={CHECKOUT_ID}" {
		t.Fatalf("success url = %q", got.SuccessURL)
	}
	if got.Metadata["payment_transaction_id"] != resp["paymentTransactionId"] {
		t.Fatalf("checkout metadata = %#v", got.Metadata)
	}
	if resp["checkoutUrl"] != "https://polar.test/chk_1" {
		t.Fatalf("response = %v", resp)
	}
}

func TestCheckoutPlanOverridesClientAmounts(t *testing.T) {
	env := newTestEnv(t)
	rr := postJSON(t, env.app.Checkout, testUser, `{"plan":"starter","creditsToGrant":9999,"amount":1,"currency":"usd"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	tx := env.payments.txs[resp["paymentTransactionId"]]
	if tx == nil || tx.credits != 120 || tx.amount != 13900 || tx.currency != "KRW" {
		t.Fatalf("transaction = %+v", tx)
	}
}

func TestCheckoutValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"no product", `{"plan":"team"}`, http.StatusBadRequest},
		{"no credits", `{"productId":"prod_x","amount":1000}`, http.StatusBadRequest},
		{"no amount", `{"productId":"prod_x","creditsToGrant":10}`, http.StatusBadRequest},
		{"bad currency", `{"productId":"prod_x","amount":1000,"creditsToGrant":10,"currency":"wn"}`, http.StatusBadRequest},
		{"relative success url", `{"plan":"pro","successUrl":"/mypage"}`, http.StatusBadRequest},
		{"explicit values", `{"productId":"prod_x","amount":5000,"creditsToGrant":40,"currency":"usd"}`, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			rr := postJSON(t, env.app.Checkout, testUser, tc.body)
			if rr.Code != tc.code {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tc.code, rr.Body.String())
			}
		})
	}

	env := newTestEnv(t)
	env.app.Polar = nil
	if rr := postJSON(t, env.app.Checkout, testUser, `{"plan":"pro"}`); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured status = %d", rr.Code)
	}
}

func TestCheckoutProviderFailureMarksTransactionFailed(t *testing.T) {
	env := newTestEnv(t)
	env.polar.err = errors.New("Polar checkout creation failed (422): bad product")
	rr := postJSON(t, env.app.Checkout, testUser, `{"plan":"pro"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
	for _, tx := range env.payments.txs {
		if tx.status != domain.PaymentFailed || tx.metadata["checkout_error"] == nil {
			t.Fatalf("transaction = %+v", tx)
		}
	}
}

func TestPaymentWebhookIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.balances[testUser] = 20
	txID, _ := env.payments.CreatePending(t.Context(), newPaymentForTest())

	first := env.deliver(t, "msg_1", orderPaidBody(txID))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d body=%s", first.Code, first.Body.String())
	}
	second := env.deliver(t, "msg_1", orderPaidBody(txID))
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d body=%s", second.Code, second.Body.String())
	}

	var a, b map[string]any
	_ = json.Unmarshal(first.Body.Bytes(), &a)
	_ = json.Unmarshal(second.Body.Bytes(), &b)
	if a["ledgerId"] == nil || a["ledgerId"] != b["ledgerId"] {
		t.Fatalf("ledger ids differ: %v vs %v", a["ledgerId"], b["ledgerId"])
	}
	if len(env.ledger.applied) != 1 {
		t.Fatalf("applied = %d, want 1", len(env.ledger.applied))
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("receipts sent = %d, want 1", len(env.mailer.sent))
	}
	receipt := env.mailer.sent[0]
	if receipt.To != "user@hairfit.test" || receipt.CreditsGranted != 120 || receipt.Plan != "starter" || receipt.MyPageURL != "https://hairfit.test/mypage" {
		t.Fatalf("receipt = %+v", receipt)
	}
}

func TestPaymentWebhookReleasesReceiptClaimOnSendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errors.New("resend 500")
	txID, _ := env.payments.CreatePending(t.Context(), newPaymentForTest())

	if rr := env.deliver(t, "msg_1", orderPaidBody(txID)); rr.Code != http.StatusOK {
		t.Fatalf("status = %d; receipt errors must not fail the webhook", rr.Code)
	}
	tx := env.payments.txs[txID]
	if tx.claimed || tx.sent {
		t.Fatalf("claim should be released: %+v", tx)
	}

	env.mailer.err = nil
	env.deliver(t, "msg_2", orderPaidBody(txID))
	if len(env.mailer.sent) != 1 || !env.payments.txs[txID].sent {
		t.Fatalf("redelivery should send the receipt")
	}
}

func TestPaymentWebhookSoftIgnores(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"other type", `{"type":"checkout.created","data":{"id":"c"}}`, http.StatusOK, `"ignoredType":"checkout.created"`},
		{"no correlation", `{"type":"order.paid","data":{"id":"ord_1"}}`, http.StatusAccepted, "payment_transaction_id missing"},
		{"unknown transaction", orderPaidBody("99999999-9999-4999-8999-999999999999"), http.StatusAccepted, "not found"},
		{"non uuid transaction", orderPaidBody("tx-1"), http.StatusAccepted, "not found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.deliver(t, "msg_x", tc.body)
			if rr.Code != tc.code || !strings.Contains(rr.Body.String(), tc.want) {
				t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
			}
		})
	}
	if len(env.ledger.applied) != 0 {
		t.Fatalf("nothing should be credited")
	}
}

func TestPaymentWebhookRejects(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader(orderPaidBody("x")))
	req.Header.Set("webhook-id", "msg_1")
	req.Header.Set("webhook-timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("webhook-signature", "v1,AAAA")
	rr := httptest.NewRecorder()
	env.app.PaymentWebhook(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("bad signature status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	env.app.PaymentWebhook(rr, httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader("")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty body status = %d", rr.Code)
	}

	env.app.Webhooks = nil
	rr = httptest.NewRecorder()
	env.app.PaymentWebhook(rr, httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader("{}")))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured status = %d", rr.Code)
	}
}
