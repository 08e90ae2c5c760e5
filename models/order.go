package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle status recorded in the ledger.
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
)

// Order is an immutable snapshot of a confirmed cart.
type Order struct {
	ID            int64           `json:"id"`
	SessionID     string          `json:"sessionId"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	Lines         []CartLine      `json:"lines"`
	Total         decimal.Decimal `json:"total"`
	Status        OrderStatus     `json:"status"`
	PlacedAt      time.Time       `json:"placedAt"`
}

// OrderConfirmation is the UI-facing view of a placed order.
type OrderConfirmation struct {
	OrderID      int64           `json:"orderId"`
	CustomerName string          `json:"customerName"`
	MaskedPhone  string          `json:"maskedPhone"`
	Lines        []CartLine      `json:"lines"`
	Total        decimal.Decimal `json:"total"`
	Status       OrderStatus     `json:"status"`
	PlacedAt     time.Time       `json:"placedAt"`
}

// Confirmation builds the UI view, masking the phone number.
func (o Order) Confirmation() *OrderConfirmation {
	return &OrderConfirmation{
		OrderID:      o.ID,
		CustomerName: o.CustomerName,
		MaskedPhone:  MaskPhone(o.CustomerPhone),
		Lines:        o.Lines,
		Total:        o.Total,
		Status:       o.Status,
		PlacedAt:     o.PlacedAt,
	}
}

// MaskPhone keeps the first four and last three digits.
func MaskPhone(phone string) string {
	if len(phone) >= 7 {
		return phone[:4] + "****" + phone[len(phone)-3:]
	}
	return phone
}

// OrderPlacedEvent is published once an order is committed.
type OrderPlacedEvent struct {
	OrderID      int64           `json:"order_id"`
	CustomerName string          `json:"customer_name"`
	Items        []CartLine      `json:"items"`
	Total        decimal.Decimal `json:"total_amount"`
	Status       OrderStatus     `json:"status"`
	PlacedAt     time.Time       `json:"placed_at"`
}
