package repo

import (
	"context"
	"fmt"

	"hairfit/internal/domain"
	"hairfit/internal/infra"
	"hairfit/internal/sqlinline"
)

// PaymentRepository persists checkout attempts and their settlement.
type PaymentRepository struct {
	sql infra.SQLExecutor
}

func NewPaymentRepository(sql infra.SQLExecutor) *PaymentRepository {
	return &PaymentRepository{sql: sql}
}

type NewPayment struct {
	UserID         string
	Currency       string
	Amount         int
	CreditsToGrant int
	Metadata       map[string]any
}

// PaidUpdate carries the optional order details reported by the payment provider.
type PaidUpdate struct {
	ProviderOrderID *string
	CustomerID      *string
	Amount          *int
	Currency        *string
}

// ReceiptClaim is the transaction snapshot returned to the caller that won the receipt claim.
type ReceiptClaim struct {
	UserID         string
	Currency       string
	Amount         int
	CreditsToGrant int
	Metadata       map[string]any
}

// CreatePending inserts a pending transaction and returns its id.
func (r *PaymentRepository) CreatePending(ctx context.Context, p NewPayment) (string, error) {
	meta, err := encodeJSONB(p.Metadata)
	if err != nil {
		return "", err
	}
	var id string
	if err := r.sql.QueryRow(ctx, sqlinline.QInsertPendingPayment,
		p.UserID, p.Currency, p.Amount, p.CreditsToGrant, meta,
	).Scan(&id); err != nil {
		return "", fmt.Errorf("insert payment transaction: %w", err)
	}
	return id, nil
}

func (r *PaymentRepository) AttachCheckout(ctx context.Context, id, checkoutID string, metadata map[string]any) error {
	meta, err := encodeJSONB(metadata)
	if err != nil {
		return err
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QAttachCheckout, id, checkoutID, meta); err != nil {
		return fmt.Errorf("attach checkout: %w", err)
	}
	return nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, id string, metadata map[string]any) error {
	meta, err := encodeJSONB(metadata)
	if err != nil {
		return err
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QFailPayment, id, meta); err != nil {
		return fmt.Errorf("fail payment transaction: %w", err)
	}
	return nil
}

// MarkPaid settles the transaction. It returns domain.ErrPaymentNotFound when no row matched.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id string, u PaidUpdate) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkPaymentPaid, id, u.ProviderOrderID, u.CustomerID, u.Amount, u.Currency)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// ClaimReceipt atomically claims the right to send the receipt email. ok is false when
// another delivery already claimed or sent it.
func (r *PaymentRepository) ClaimReceipt(ctx context.Context, id string) (*ReceiptClaim, bool, error) {
	var (
		c    ReceiptClaim
		meta []byte
	)
	err := r.sql.QueryRow(ctx, sqlinline.QClaimReceiptEmail, id).
		Scan(&c.UserID, &c.Currency, &c.Amount, &c.CreditsToGrant, &meta)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("claim receipt email: %w", err)
	}
	c.Metadata = decodeJSONB(meta)
	return &c, true, nil
}

func (r *PaymentRepository) MarkReceiptSent(ctx context.Context, id string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QMarkReceiptSent, id); err != nil {
		return fmt.Errorf("mark receipt sent: %w", err)
	}
	return nil
}

func (r *PaymentRepository) ReleaseReceiptClaim(ctx context.Context, id string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QReleaseReceiptClaim, id); err != nil {
		return fmt.Errorf("release receipt claim: %w", err)
	}
	return nil
}

// LatestPaidPlan returns the plan of the user's most recent paid transaction, or "".
func (r *PaymentRepository) LatestPaidPlan(ctx context.Context, userID string) (string, error) {
	var plan string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectLatestPaidPlan, userID).Scan(&plan); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("select latest plan: %w", err)
	}
	return plan, nil
}
