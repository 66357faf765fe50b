package dto

import (
	"github.com/shopspring/decimal"

	"github.com/hongminglow/paygate/internal/models"
)

type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    models.OrderNotes `json:"notes"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

type OrderList struct {
	Count  int            `json:"count"`
	Orders []models.Order `json:"orders"`
}

type PaymentList struct {
	Count    int              `json:"count"`
	Payments []models.Payment `json:"payments"`
}

type StatusCounts map[string]int

// MerchantDashboard aggregates a merchant's own gateway activity.
type MerchantDashboard struct {
	TotalRevenue       decimal.Decimal  `json:"totalRevenue"`
	PendingAmount      decimal.Decimal  `json:"pendingAmount"`
	TotalOrders        int              `json:"totalOrders"`
	TotalPayments      int              `json:"totalPayments"`
	PaymentStatusCount StatusCounts     `json:"paymentStatusCounts"`
	OrderStatusCount   StatusCounts     `json:"orderStatusCounts"`
	RecentOrders       []models.Order   `json:"recentOrders"`
	RecentPayments     []models.Payment `json:"recentPayments"`
}

// CreateOrderResponse carries the order plus the public key the checkout
// widget needs.
type CreateOrderResponse struct {
	Order models.Order `json:"order"`
	KeyID string       `json:"keyId"`
}

type VerifyPaymentResponse struct {
	OrderID       string          `json:"orderId"`
	PaymentID     string          `json:"paymentId"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
}
