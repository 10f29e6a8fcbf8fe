package domain

import "time"

// LedgerEntryType classifies a credit movement.
type LedgerEntryType string

const (
	LedgerUsage  LedgerEntryType = "usage"
	LedgerRefund LedgerEntryType = "refund"
	LedgerGrant  LedgerEntryType = "grant"
)

func (t LedgerEntryType) Valid() bool {
	switch t {
	case LedgerUsage, LedgerRefund, LedgerGrant:
		return true
	default:
		return false
	}
}

// LedgerEntry is an immutable signed credit movement. A user's balance is the sum of their entries.
type LedgerEntry struct {
	ID                   string
	UserID               string
	Amount               int
	EntryType            LedgerEntryType
	Reason               string
	Metadata             map[string]any
	GenerationID         *string
	PaymentTransactionID *string
	CreatedAt            time.Time
}

// Ledger reason codes.
const (
	ReasonGenerationUsage   = "generation_usage"
	ReasonGenerationRefund  = "generation_failure_refund"
	ReasonStaleRefund       = "generation_stale_refund"
	ReasonPolarOrderPaid    = "polar_order_paid"
	ReasonSignupBonus       = "signup_bonus"
	ReasonOperatorGrant     = "operator_grant"
	RefundReasonAfterCharge = "generation_failed_after_charge"
)

// UserProfile caches the credit balance next to identity details.
type UserProfile struct {
	UserID      string
	Email       string
	DisplayName string
	Credits     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
