package domain

import "time"

// PaymentStatus enumerates checkout settlement states.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentTransaction is one checkout attempt. Credits are granted at most once per transaction.
type PaymentTransaction struct {
	ID              string
	UserID          string
	Provider        string
	Status          PaymentStatus
	Currency        string
	Amount          int
	CreditsToGrant  int
	CheckoutID      *string
	ProviderOrderID *string
	CustomerID      *string
	Metadata        map[string]any
	PaidAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Metadata keys written on payment transactions.
const (
	MetaReceiptClaimedAt = "receipt_email_claimed_at"
	MetaReceiptSentAt    = "receipt_email_sent_at"
	MetaLocale           = "locale"
	MetaPlan             = "plan"
)

// Review is a user's rating of one generation.
type Review struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	GenerationID string    `json:"generationId"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
