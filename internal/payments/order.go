package payments

import (
	"math"
	"strings"
)

// OrderPaid is the part of an order.paid event used to settle a transaction.
type OrderPaid struct {
	PaymentTransactionID string
	ProviderOrderID      *string
	CustomerID           *string
	Amount               *int
	Currency             *string
}

// ExtractOrderPaid reads the correlation id and order details. ok is false when the event
// carries no payment transaction id.
func ExtractOrderPaid(data map[string]any) (OrderPaid, bool) {
	meta, _ := data["metadata"].(map[string]any)
	txID := firstString(meta["payment_transaction_id"], meta["paymentTransactionId"],
		data["payment_transaction_id"], data["paymentTransactionId"])
	if txID == "" {
		return OrderPaid{}, false
	}

	out := OrderPaid{PaymentTransactionID: txID}
	customer, _ := data["customer"].(map[string]any)
	if v := firstString(data["customer_id"], data["customerId"], customer["id"]); v != "" {
		out.CustomerID = &v
	}
	if v := firstString(data["id"]); v != "" {
		out.ProviderOrderID = &v
	}
	if v := firstString(data["currency"]); v != "" {
		upper := strings.ToUpper(v)
		out.Currency = &upper
	}
	for _, key := range []string{"amount", "net_amount", "total_amount"} {
		if n, ok := positiveInt(data[key]); ok {
			out.Amount = &n
			break
		}
	}
	return out, true
}

func firstString(values ...any) string {
	for _, v := range values {
		if s, ok := v.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func positiveInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
