// Package gatewaytest provides an in-memory payment processor for tests and
// local development.
package gatewaytest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hongminglow/paygate/internal/gateway"
)

// ErrUnknownPayment is returned by FetchPayment for ids never registered.
var ErrUnknownPayment = errors.New("unknown payment")

// Processor mints sequential order ids and serves payments registered with Pay.
type Processor struct {
	mu       sync.Mutex
	seq      int
	orders   map[string]gateway.ProcessorOrder
	payments map[string]gateway.ProcessorPayment

	// Prefix is placed in every minted id. Tests sharing a database set it to
	// something unique per run.
	Prefix string
	// FailCreate makes CreateOrder fail when set.
	FailCreate error
	// FailCapture makes CapturePayment fail when set.
	FailCapture error
	// Captures counts successful CapturePayment calls.
	Captures int
}

func NewProcessor() *Processor {
	return &Processor{
		orders:   make(map[string]gateway.ProcessorOrder),
		payments: make(map[string]gateway.ProcessorPayment),
		Prefix:   "test",
	}
}

func (p *Processor) CreateOrder(_ context.Context, req gateway.OrderRequest) (gateway.ProcessorOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailCreate != nil {
		return gateway.ProcessorOrder{}, p.FailCreate
	}
	p.seq++
	order := gateway.ProcessorOrder{
		ID:       fmt.Sprintf("order_%s%04d", p.Prefix, p.seq),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}
	p.orders[order.ID] = order
	return order, nil
}

// Pay registers a captured card payment for orderID covering the full order
// amount and returns its id.
func (p *Processor) Pay(orderID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	order := p.orders[orderID]
	p.seq++
	payment := gateway.ProcessorPayment{
		ID:       fmt.Sprintf("pay_%s%04d", p.Prefix, p.seq),
		OrderID:  orderID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Status:   "captured",
		Method:   "card",
		Email:    "payer@example.com",
		Contact:  "9999999999",
	}
	p.payments[payment.ID] = payment
	return payment.ID
}

// SetPayment overrides or adds a payment record.
func (p *Processor) SetPayment(payment gateway.ProcessorPayment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments[payment.ID] = payment
}

func (p *Processor) FetchPayment(_ context.Context, paymentID string) (gateway.ProcessorPayment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	payment, ok := p.payments[paymentID]
	if !ok {
		return gateway.ProcessorPayment{}, ErrUnknownPayment
	}
	return payment, nil
}

// CapturePayment settles an authorized payment when amount covers it in full.
func (p *Processor) CapturePayment(_ context.Context, paymentID string, amount int64, _ string) (gateway.ProcessorPayment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailCapture != nil {
		return gateway.ProcessorPayment{}, p.FailCapture
	}
	payment, ok := p.payments[paymentID]
	if !ok {
		return gateway.ProcessorPayment{}, ErrUnknownPayment
	}
	if payment.Status != "authorized" || payment.Amount != amount {
		return gateway.ProcessorPayment{}, fmt.Errorf("payment %s cannot be captured from %s", paymentID, payment.Status)
	}
	payment.Status = "captured"
	p.payments[paymentID] = payment
	p.Captures++
	return payment, nil
}
