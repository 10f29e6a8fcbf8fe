// Package mailer sends transactional email through Resend.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"hairfit/internal/domain"
	"hairfit/internal/pricing"
)

// Receipt is the content of a payment confirmation.
type Receipt struct {
	To                   string
	CreditsGranted       int
	CurrentCredits       *int
	Amount               int
	Currency             string
	Plan                 string
	MyPageURL            string
	PaymentTransactionID string
	Locale               string
}

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type Mailer struct {
	emails emailSender
	from   string
	logger zerolog.Logger
}

// New returns a mailer. An empty apiKey yields a mailer whose sends fail with domain.ErrNotConfigured.
func New(apiKey, from string, logger zerolog.Logger) *Mailer {
	m := &Mailer{from: from, logger: logger}
	if strings.TrimSpace(apiKey) != "" {
		m.emails = resend.NewClient(apiKey).Emails
	}
	return m
}

func (m *Mailer) SendPaymentReceipt(ctx context.Context, r Receipt) error {
	if m.emails == nil {
		m.logger.Warn().Str("payment_transaction_id", r.PaymentTransactionID).Msg("skipping receipt email: resend is not configured")
		return fmt.Errorf("%w: resend api key", domain.ErrNotConfigured)
	}
	if strings.TrimSpace(r.To) == "" {
		return fmt.Errorf("%w: receipt recipient", domain.ErrInvalidInput)
	}
	subject, html, err := renderReceipt(r)
	if err != nil {
		return err
	}
	resp, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{r.To},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("send receipt email: %w", err)
	}
	m.logger.Info().
		Str("payment_transaction_id", r.PaymentTransactionID).
		Str("email_id", resp.Id).
		Msg("receipt email sent")
	return nil
}

type receiptCopy struct {
	Subject    string
	Heading    string
	Intro      string
	Plan       string
	Amount     string
	Credits    string
	Balance    string
	PaymentID  string
	OpenMyPage string
}

var copies = map[string]receiptCopy{
	"ko": {
		Subject:    "[HairFit] 결제가 완료되었어요 (+%s credits)",
		Heading:    "결제가 완료되었습니다",
		Intro:      "HairFit 크레딧이 정상적으로 충전되었습니다.",
		Plan:       "플랜",
		Amount:     "결제 금액",
		Credits:    "충전 크레딧",
		Balance:    "현재 크레딧",
		PaymentID:  "결제 ID",
		OpenMyPage: "마이페이지 열기",
	},
	"en": {
		Subject:    "[HairFit] Your payment is complete (+%s credits)",
		Heading:    "Payment complete",
		Intro:      "Your HairFit credits have been added.",
		Plan:       "Plan",
		Amount:     "Amount",
		Credits:    "Credits added",
		Balance:    "Current credits",
		PaymentID:  "Payment ID",
		OpenMyPage: "Open my page",
	},
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`
  <div style="font-family:Arial,sans-serif;line-height:1.6;color:#111827">
    <h2 style="margin:0 0 12px">{{.Copy.Heading}}</h2>
    <p style="margin:0 0 14px">{{.Copy.Intro}}</p>
    <ul style="padding-left:18px;margin:0 0 16px">
      <li><strong>{{.Copy.Plan}}:</strong> {{.Plan}}</li>
      {{- if .Amount}}
      <li><strong>{{.Copy.Amount}}:</strong> {{.Amount}}</li>
      {{- end}}
      <li><strong>{{.Copy.Credits}}:</strong> +{{.Credits}}</li>
      {{- if .Balance}}
      <li><strong>{{.Copy.Balance}}:</strong> {{.Balance}}</li>
      {{- end}}
      <li><strong>{{.Copy.PaymentID}}:</strong> {{.PaymentID}}</li>
    </ul>
    <a href="{{.MyPageURL}}" style="display:inline-block;background:#111827;color:#fff;text-decoration:none;padding:10px 14px;border-radius:8px">
      {{.Copy.OpenMyPage}}
    </a>
  </div>
`))

func renderReceipt(r Receipt) (string, string, error) {
	lang := "ko"
	if strings.HasPrefix(strings.ToLower(r.Locale), "en") {
		lang = "en"
	}
	c := copies[lang]
	p := message.NewPrinter(language.Make(lang))

	data := struct {
		Copy      receiptCopy
		Plan      string
		Amount    string
		Credits   string
		Balance   string
		PaymentID string
		MyPageURL string
	}{
		Copy:      c,
		Plan:      PlanLabel(r.Plan),
		Credits:   p.Sprintf("%d", r.CreditsGranted),
		PaymentID: r.PaymentTransactionID,
		MyPageURL: r.MyPageURL,
	}
	if r.Amount > 0 {
		data.Amount = formatMoney(p, r.Amount, r.Currency)
	}
	if r.CurrentCredits != nil {
		data.Balance = p.Sprintf("%d", *r.CurrentCredits)
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render receipt: %w", err)
	}
	return fmt.Sprintf(c.Subject, data.Credits), buf.String(), nil
}

var planCaser = cases.Title(language.English)

// PlanLabel renders a plan key for display; an empty plan is "Custom".
func PlanLabel(plan string) string {
	normalized := strings.ToLower(strings.TrimSpace(plan))
	if normalized == "" {
		return "Custom"
	}
	return planCaser.String(normalized)
}

func formatMoney(p *message.Printer, amount int, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == "KRW" {
		return pricing.FormatKRW(int64(amount))
	}
	return p.Sprintf("%d %s", amount, currency)
}
