// Package ledger charges, refunds and grants credits through the store's atomic procedures.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"hairfit/internal/domain"
	"hairfit/internal/infra"
	"hairfit/internal/sqlinline"
)

// Ledger is the credit ledger. Every balance change goes through a stored procedure so the
// cached balance and the entry are written in one transaction.
type Ledger struct {
	sql infra.SQLExecutor
}

func New(sql infra.SQLExecutor) *Ledger {
	return &Ledger{sql: sql}
}

type ConsumeRequest struct {
	UserID       string
	GenerationID string
	Amount       int
	Reason       string
	Metadata     map[string]any
}

type GrantRequest struct {
	UserID               string
	Amount               int
	EntryType            domain.LedgerEntryType
	Reason               string
	Metadata             map[string]any
	PaymentTransactionID *string
	GenerationID         *string
}

// Consume charges credits against a generation and returns the ledger id.
// domain.ErrInsufficientCredits is returned when the balance cannot cover the amount.
func (l *Ledger) Consume(ctx context.Context, req ConsumeRequest) (string, error) {
	if req.Amount <= 0 {
		return "", fmt.Errorf("%w: amount must be a positive integer", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.GenerationID) == "" {
		return "", fmt.Errorf("%w: user and generation are required", domain.ErrInvalidInput)
	}
	reason := req.Reason
	if reason == "" {
		reason = domain.ReasonGenerationUsage
	}
	meta, err := encodeMetadata(req.Metadata)
	if err != nil {
		return "", err
	}

	var ledgerID string
	err = l.sql.QueryRow(ctx, sqlinline.QConsumeCredits, req.UserID, req.GenerationID, req.Amount, reason, meta).Scan(&ledgerID)
	if err != nil {
		return "", mapProcedureError("consume credits", err)
	}
	return ledgerID, nil
}

// Grant adds credits. EntryType must be grant or refund.
func (l *Ledger) Grant(ctx context.Context, req GrantRequest) (string, error) {
	if req.Amount <= 0 {
		return "", fmt.Errorf("%w: amount must be a positive integer", domain.ErrInvalidInput)
	}
	if req.EntryType != domain.LedgerGrant && req.EntryType != domain.LedgerRefund {
		return "", fmt.Errorf("%w: entry type %q cannot add credits", domain.ErrInvalidInput, req.EntryType)
	}
	meta, err := encodeMetadata(req.Metadata)
	if err != nil {
		return "", err
	}

	var ledgerID string
	err = l.sql.QueryRow(ctx, sqlinline.QGrantCredits,
		req.UserID,
		req.Amount,
		string(req.EntryType),
		req.Reason,
		meta,
		req.PaymentTransactionID,
		req.GenerationID,
	).Scan(&ledgerID)
	if err != nil {
		return "", mapProcedureError("grant credits", err)
	}
	return ledgerID, nil
}

// ApplyPaymentCredits grants the credits of a paid transaction. Repeated calls return the
// original ledger id.
func (l *Ledger) ApplyPaymentCredits(ctx context.Context, paymentTransactionID, reason string) (string, error) {
	var ledgerID string
	if err := l.sql.QueryRow(ctx, sqlinline.QApplyPaymentCredits, paymentTransactionID, reason).Scan(&ledgerID); err != nil {
		return "", mapProcedureError("apply payment credits", err)
	}
	return ledgerID, nil
}

// Balance returns the cached balance. Users without a profile have zero credits.
func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	var credits int
	if err := l.sql.QueryRow(ctx, sqlinline.QSelectCreditBalance, userID).Scan(&credits); err != nil {
		if infra.IsNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("select balance: %w", err)
	}
	return credits, nil
}

// OutstandingCharge returns credits userID was charged for a generation that have not been refunded.
func (l *Ledger) OutstandingCharge(ctx context.Context, userID, generationID string) (int, error) {
	var outstanding int
	if err := l.sql.QueryRow(ctx, sqlinline.QSelectOutstandingCharge, generationID, userID).Scan(&outstanding); err != nil {
		return 0, fmt.Errorf("select outstanding charge: %w", err)
	}
	if outstanding < 0 {
		return 0, nil
	}
	return outstanding, nil
}

func mapProcedureError(op string, err error) error {
	msg, ok := infra.RaisedMessage(err)
	if !ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "insufficient credits"):
		return domain.ErrInsufficientCredits
	case strings.Contains(lower, "payment transaction not found"):
		return domain.ErrPaymentNotFound
	case strings.Contains(lower, "must be paid"):
		return domain.ErrPaymentNotPaid
	default:
		return fmt.Errorf("%s: %s", op, msg)
	}
}

func encodeMetadata(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode ledger metadata: %w", err)
	}
	return raw, nil
}
