package models

import "time"

type OrderStatus string

const (
	OrderCreated OrderStatus = "created"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

type PaymentStatus string

const (
	// PaymentAuthorized is a payment the processor holds but has not settled.
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// OrderNotes is the contact snapshot a client attaches to an order.
type OrderNotes struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Order logs a gateway order minted on behalf of a user. Amount is in minor units.
type Order struct {
	ProcessorOrderID string      `json:"orderId"`
	UserID           int64       `json:"user"`
	Amount           int64       `json:"amount"`
	Currency         string      `json:"currency"`
	Receipt          string      `json:"receipt,omitempty"`
	Status           OrderStatus `json:"status"`
	PaymentID        string      `json:"paymentId,omitempty"`
	Notes            OrderNotes  `json:"notes"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Payment mirrors a processor payment after its signature was verified.
type Payment struct {
	ProcessorPaymentID string        `json:"paymentId"`
	ProcessorOrderID   string        `json:"orderId"`
	UserID             int64         `json:"user"`
	Signature          string        `json:"-"`
	Amount             int64         `json:"amount"`
	Currency           string        `json:"currency"`
	Status             PaymentStatus `json:"status"`
	Method             string        `json:"method,omitempty"`
	Email              string        `json:"email,omitempty"`
	Contact            string        `json:"contact,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
}
