package gateway

import (
	"context"
	"fmt"
	"math"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/hongminglow/paygate/internal/models"
)

// OrderRequest is what the processor needs to mint an order.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    models.OrderNotes
}

// ProcessorOrder is the processor's view of a freshly minted order.
type ProcessorOrder struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// ProcessorPayment is the authoritative payment record held by the processor.
type ProcessorPayment struct {
	ID       string
	OrderID  string
	Amount   int64
	Currency string
	Status   string
	Method   string
	Email    string
	Contact  string
}

// Processor is the external card/payment processor.
type Processor interface {
	CreateOrder(ctx context.Context, req OrderRequest) (ProcessorOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (ProcessorPayment, error)
	// CapturePayment settles an authorized payment for amount minor units.
	CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (ProcessorPayment, error)
}

// RazorpayProcessor talks to Razorpay through its official SDK.
type RazorpayProcessor struct {
	client *razorpay.Client
}

func NewRazorpayProcessor(keyID, keySecret string) *RazorpayProcessor {
	return &RazorpayProcessor{client: razorpay.NewClient(keyID, keySecret)}
}

func (p *RazorpayProcessor) CreateOrder(_ context.Context, req OrderRequest) (ProcessorOrder, error) {
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes": map[string]interface{}{
			"name":  req.Notes.Name,
			"email": req.Notes.Email,
			"phone": req.Notes.Phone,
		},
	}
	body, err := p.client.Order.Create(data, nil)
	if err != nil {
		return ProcessorOrder{}, fmt.Errorf("razorpay create order: %w", err)
	}
	order := ProcessorOrder{
		ID:       stringField(body, "id"),
		Amount:   intField(body, "amount"),
		Currency: stringField(body, "currency"),
		Receipt:  stringField(body, "receipt"),
		Status:   stringField(body, "status"),
	}
	if order.ID == "" {
		return ProcessorOrder{}, fmt.Errorf("razorpay create order: response missing id")
	}
	return order, nil
}

func (p *RazorpayProcessor) FetchPayment(_ context.Context, paymentID string) (ProcessorPayment, error) {
	body, err := p.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return ProcessorPayment{}, fmt.Errorf("razorpay fetch payment: %w", err)
	}
	return paymentFromBody(body), nil
}

func (p *RazorpayProcessor) CapturePayment(_ context.Context, paymentID string, amount int64, currency string) (ProcessorPayment, error) {
	body, err := p.client.Payment.Capture(paymentID, int(amount), map[string]interface{}{"currency": currency}, nil)
	if err != nil {
		return ProcessorPayment{}, fmt.Errorf("razorpay capture payment: %w", err)
	}
	return paymentFromBody(body), nil
}

func paymentFromBody(body map[string]interface{}) ProcessorPayment {
	return ProcessorPayment{
		ID:       stringField(body, "id"),
		OrderID:  stringField(body, "order_id"),
		Amount:   intField(body, "amount"),
		Currency: stringField(body, "currency"),
		Status:   stringField(body, "status"),
		Method:   stringField(body, "method"),
		Email:    stringField(body, "email"),
		Contact:  stringField(body, "contact"),
	}
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// intField reads a JSON number, which the SDK decodes as float64.
func intField(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(math.Round(v))
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
