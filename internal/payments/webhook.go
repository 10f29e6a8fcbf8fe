package payments

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
)

var ErrMissingSignatureHeaders = errors.New("Missing required webhook signature headers")

// Event is a verified webhook delivery.
type Event struct {
	Type string
	Data map[string]any
}

// WebhookVerifier checks standard-webhooks signatures on Polar deliveries.
type WebhookVerifier struct {
	wh *standardwebhooks.Webhook
}

// NewWebhookVerifier accepts "whsec_<base64>" secrets, bare base64 secrets, or raw strings.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	secret = strings.TrimSpace(secret)
	if key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_")); err == nil && len(key) > 0 {
		if wh, err := standardwebhooks.NewWebhook(secret); err == nil {
			return &WebhookVerifier{wh: wh}
		}
	}
	wh, _ := standardwebhooks.NewWebhookRaw([]byte(secret))
	return &WebhookVerifier{wh: wh}
}

// Verify authenticates payload and decodes its {type, data} envelope.
func (v *WebhookVerifier) Verify(payload []byte, headers http.Header) (*Event, error) {
	if err := v.wh.Verify(payload, headers); err != nil {
		return nil, verifyError(err)
	}

	var envelope map[string]any
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope == nil {
		return nil, errors.New("Invalid webhook event payload")
	}
	eventType, _ := envelope["type"].(string)
	data, _ := envelope["data"].(map[string]any)
	if eventType == "" || data == nil {
		return nil, errors.New("Invalid webhook event shape")
	}
	return &Event{Type: eventType, Data: data}, nil
}

// Sign returns the "v1,<base64>" signature for a delivery sent at the given time.
func (v *WebhookVerifier) Sign(id string, at time.Time, payload []byte) string {
	sig, _ := v.wh.Sign(id, at, payload)
	return sig
}

func verifyError(err error) error {
	switch {
	case errors.Is(err, standardwebhooks.ErrRequiredHeaders):
		return ErrMissingSignatureHeaders
	case errors.Is(err, standardwebhooks.ErrMessageTooOld):
		return invalidSignature("Message timestamp too old")
	case errors.Is(err, standardwebhooks.ErrMessageTooNew):
		return invalidSignature("Message timestamp too new")
	case errors.Is(err, standardwebhooks.ErrNoMatchingSignature):
		return invalidSignature("No matching signature found")
	default:
		return invalidSignature("Invalid Signature Headers")
	}
}

func invalidSignature(reason string) error {
	return fmt.Errorf("Invalid Polar webhook signature: %s", reason)
}
