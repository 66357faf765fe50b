// Package gateway bridges the external payment processor and the wallet
// ledger: it mints orders and turns verified payments into deposits.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/clock"
	"github.com/hongminglow/paygate/internal/ledger"
	"github.com/hongminglow/paygate/internal/metrics"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage"
)

var (
	ErrInvalidAmount      = errors.New("amount must be at least 100 (smallest currency unit)")
	ErrSignatureMismatch  = errors.New("payment verification failed")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotPending    = errors.New("order is not awaiting payment")
	ErrPaymentMismatch    = errors.New("payment does not match order")
	ErrPaymentNotCaptured = errors.New("payment not captured")
	ErrProcessor          = errors.New("payment processor error")
)

// MinAmount is the smallest order in minor units.
const MinAmount = 100

const depositDescription = "Payment deposit via Razorpay"

type Bridge struct {
	processor Processor
	orders    storage.OrderStore
	engine    *ledger.Engine
	keySecret string
	clock     clock.Clock
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewBridge(processor Processor, orders storage.OrderStore, engine *ledger.Engine, keySecret string, clk clock.Clock, m *metrics.Metrics, log *zap.Logger) *Bridge {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{processor: processor, orders: orders, engine: engine, keySecret: keySecret, clock: clk, metrics: m, log: log}
}

// CreateOrder mints an order with the processor and records it as created.
func (b *Bridge) CreateOrder(ctx context.Context, userID int64, req OrderRequest) (models.Order, error) {
	if req.Amount < MinAmount {
		return models.Order{}, ErrInvalidAmount
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = models.DefaultCurrency
	}
	if strings.TrimSpace(req.Receipt) == "" {
		req.Receipt = fmt.Sprintf("receipt_%d", b.clock.Now().UnixMilli())
	}

	minted, err := b.processor.CreateOrder(ctx, req)
	if err != nil {
		b.log.Error("processor order creation failed", zap.Int64("user_id", userID), zap.Error(err))
		return models.Order{}, fmt.Errorf("%w: %v", ErrProcessor, err)
	}
	order, err := b.orders.CreateOrder(ctx, models.Order{
		ProcessorOrderID: minted.ID,
		UserID:           userID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Receipt:          req.Receipt,
		Status:           models.OrderCreated,
		Notes:            req.Notes,
	})
	if err != nil {
		return models.Order{}, fmt.Errorf("save order: %w", err)
	}
	b.log.Info("order created", zap.String("order_id", order.ProcessorOrderID), zap.Int64("user_id", userID), zap.Int64("amount", order.Amount))
	return order, nil
}

// Verification is the outcome of a successful Verify.
type Verification struct {
	Order       models.Order
	Payment     models.Payment
	Transaction models.Transaction
}

// Verify checks the checkout signature and, only when it matches, captures the
// payment and credits the order owner. A mismatch changes nothing.
func (b *Bridge) Verify(ctx context.Context, orderID, paymentID, signature string) (Verification, error) {
	out, err := b.verify(ctx, orderID, paymentID, signature)
	b.metrics.ObserveVerification(err)
	if err != nil {
		b.log.Warn("payment verification rejected", zap.String("order_id", orderID), zap.String("payment_id", paymentID), zap.Error(err))
	}
	return out, err
}

func (b *Bridge) verify(ctx context.Context, orderID, paymentID, signature string) (Verification, error) {
	if orderID == "" || paymentID == "" || !validSignature(b.keySecret, orderID, paymentID, signature) {
		return Verification{}, ErrSignatureMismatch
	}

	order, err := b.orders.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Verification{}, ErrOrderNotFound
		}
		return Verification{}, fmt.Errorf("find order: %w", err)
	}
	if order.Status != models.OrderCreated {
		return Verification{}, ErrOrderNotPending
	}

	fetched, err := b.processor.FetchPayment(ctx, paymentID)
	if err != nil {
		return Verification{}, fmt.Errorf("%w: %v", ErrProcessor, err)
	}
	if fetched.OrderID != "" && fetched.OrderID != orderID {
		return Verification{}, ErrPaymentMismatch
	}
	if fetched.Amount != order.Amount {
		return Verification{}, ErrPaymentMismatch
	}
	switch models.PaymentStatus(fetched.Status) {
	case models.PaymentCaptured:
	case models.PaymentAuthorized:
		captured, err := b.processor.CapturePayment(ctx, paymentID, order.Amount, order.Currency)
		if err != nil {
			return Verification{}, fmt.Errorf("%w: %v", ErrProcessor, err)
		}
		if captured.Status != string(models.PaymentCaptured) {
			return Verification{}, ErrPaymentNotCaptured
		}
		fetched.Status = captured.Status
		b.log.Info("authorized payment captured", zap.String("order_id", orderID), zap.String("payment_id", paymentID))
	default:
		return Verification{}, ErrPaymentNotCaptured
	}

	currency := fetched.Currency
	if currency == "" {
		currency = order.Currency
	}
	payment := models.Payment{
		ProcessorPaymentID: paymentID,
		ProcessorOrderID:   orderID,
		UserID:             order.UserID,
		Signature:          signature,
		Amount:             fetched.Amount,
		Currency:           currency,
		Status:             models.PaymentCaptured,
		Method:             fetched.Method,
		Email:              fetched.Email,
		Contact:            fetched.Contact,
	}
	tx, err := b.engine.MoveWith(ctx, ledger.Intent{
		Type:        models.TxDeposit,
		SenderID:    order.UserID,
		ReceiverID:  order.UserID,
		Amount:      decimal.New(fetched.Amount, -2),
		Currency:    currency,
		Description: depositDescription,
		PaymentID:   paymentID,
		Metadata: map[string]any{
			"orderId": orderID,
			"method":  fetched.Method,
		},
	}, func(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
		return b.orders.CapturePayment(ctx, payment, tx)
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) || errors.Is(err, storage.ErrAlreadyExists) {
			return Verification{}, ErrOrderNotPending
		}
		return Verification{}, err
	}

	order.Status = models.OrderPaid
	order.PaymentID = paymentID
	payment.CreatedAt = tx.CreatedAt
	b.log.Info("payment captured",
		zap.String("order_id", orderID),
		zap.String("payment_id", paymentID),
		zap.String("transaction_id", tx.TransactionID),
		zap.Int64("user_id", order.UserID))
	return Verification{Order: order, Payment: payment, Transaction: tx}, nil
}
