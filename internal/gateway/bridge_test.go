package gateway_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/paygate/internal/clock"
	"github.com/hongminglow/paygate/internal/gateway"
	"github.com/hongminglow/paygate/internal/gateway/gatewaytest"
	"github.com/hongminglow/paygate/internal/ledger"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage/memory"
)

const secret = "rzp_test_secret"

type fixture struct {
	bridge    *gateway.Bridge
	processor *gatewaytest.Processor
	store     *memory.Store
	clock     *clock.Fake
	user      models.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	store := memory.NewWithClock(clk.Now)
	user, err := store.CreateUser(context.Background(), models.User{Name: "Payer", Email: "payer@example.com"})
	require.NoError(t, err)
	processor := gatewaytest.NewProcessor()
	engine := ledger.NewEngine(store, store, clk, nil, nil)
	return fixture{
		bridge:    gateway.NewBridge(processor, store, engine, secret, clk, nil, nil),
		processor: processor,
		store:     store,
		clock:     clk,
		user:      user,
	}
}

func (f fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	b, err := f.store.Balance(context.Background(), f.user.ID)
	require.NoError(t, err)
	return b
}

func TestCreateOrderValidatesAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.bridge.CreateOrder(context.Background(), f.user.ID, gateway.OrderRequest{Amount: 99})
	require.ErrorIs(t, err, gateway.ErrInvalidAmount)

	order, err := f.bridge.CreateOrder(context.Background(), f.user.ID, gateway.OrderRequest{Amount: 100})
	require.NoError(t, err)
	require.Equal(t, models.OrderCreated, order.Status)
	require.Equal(t, "INR", order.Currency)
	require.Regexp(t, `^receipt_\d+$`, order.Receipt)
}

func TestCreateOrderProcessorFailure(t *testing.T) {
	f := newFixture(t)
	f.processor.FailCreate = errors.New("upstream down")

	_, err := f.bridge.CreateOrder(context.Background(), f.user.ID, gateway.OrderRequest{Amount: 5000})
	require.ErrorIs(t, err, gateway.ErrProcessor)
	orders, err := f.store.ListOrders(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestVerifyCreditsDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.bridge.CreateOrder(ctx, f.user.ID, gateway.OrderRequest{Amount: 150050})
	require.NoError(t, err)
	paymentID := f.processor.Pay(order.ProcessorOrderID)

	res, err := f.bridge.Verify(ctx, order.ProcessorOrderID, paymentID, gateway.Signature(secret, order.ProcessorOrderID, paymentID))
	require.NoError(t, err)
	require.Equal(t, models.TxDeposit, res.Transaction.Type)
	require.True(t, res.Transaction.Amount.Equal(decimal.RequireFromString("1500.50")))
	require.Equal(t, order.ProcessorOrderID, res.Transaction.Metadata["orderId"])
	require.Equal(t, "card", res.Transaction.Metadata["method"])
	require.True(t, f.balance(t).Equal(decimal.RequireFromString("1500.50")))

	stored, err := f.store.FindOrder(ctx, order.ProcessorOrderID)
	require.NoError(t, err)
	require.Equal(t, models.OrderPaid, stored.Status)
	require.Equal(t, paymentID, stored.PaymentID)

	_, err = f.bridge.Verify(ctx, order.ProcessorOrderID, paymentID, gateway.Signature(secret, order.ProcessorOrderID, paymentID))
	require.ErrorIs(t, err, gateway.ErrOrderNotPending)
	require.True(t, f.balance(t).Equal(decimal.RequireFromString("1500.50")))
}

func TestVerifyRejectsAnySingleCharacterMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.bridge.CreateOrder(ctx, f.user.ID, gateway.OrderRequest{Amount: 1000})
	require.NoError(t, err)
	paymentID := f.processor.Pay(order.ProcessorOrderID)
	sig := gateway.Signature(secret, order.ProcessorOrderID, paymentID)

	mutate := func(s string, i int) string {
		b := []byte(s)
		if b[i] == 'a' {
			b[i] = 'b'
		} else {
			b[i] = 'a'
		}
		return string(b)
	}

	for i := range order.ProcessorOrderID {
		_, err := f.bridge.Verify(ctx, mutate(order.ProcessorOrderID, i), paymentID, sig)
		require.ErrorIs(t, err, gateway.ErrSignatureMismatch)
	}
	for i := range paymentID {
		_, err := f.bridge.Verify(ctx, order.ProcessorOrderID, mutate(paymentID, i), sig)
		require.ErrorIs(t, err, gateway.ErrSignatureMismatch)
	}
	for i := range sig {
		_, err := f.bridge.Verify(ctx, order.ProcessorOrderID, paymentID, mutate(sig, i))
		require.ErrorIs(t, err, gateway.ErrSignatureMismatch)
	}

	require.True(t, f.balance(t).IsZero())
	stored, err := f.store.FindOrder(ctx, order.ProcessorOrderID)
	require.NoError(t, err)
	require.Equal(t, models.OrderCreated, stored.Status)
}

func TestVerifyRequiresMatchingSettledPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.bridge.CreateOrder(ctx, f.user.ID, gateway.OrderRequest{Amount: 1000})
	require.NoError(t, err)

	f.processor.SetPayment(gateway.ProcessorPayment{ID: "pay_failed", OrderID: order.ProcessorOrderID, Amount: 1000, Status: "failed"})
	_, err = f.bridge.Verify(ctx, order.ProcessorOrderID, "pay_failed", gateway.Signature(secret, order.ProcessorOrderID, "pay_failed"))
	require.ErrorIs(t, err, gateway.ErrPaymentNotCaptured)

	f.processor.SetPayment(gateway.ProcessorPayment{ID: "pay_short", OrderID: order.ProcessorOrderID, Amount: 500, Status: "captured"})
	_, err = f.bridge.Verify(ctx, order.ProcessorOrderID, "pay_short", gateway.Signature(secret, order.ProcessorOrderID, "pay_short"))
	require.ErrorIs(t, err, gateway.ErrPaymentMismatch)

	_, err = f.bridge.Verify(ctx, "order_missing", "pay_short", gateway.Signature(secret, "order_missing", "pay_short"))
	require.ErrorIs(t, err, gateway.ErrOrderNotFound)

	require.True(t, f.balance(t).IsZero())
	require.Zero(t, f.processor.Captures)
}

func TestVerifyCapturesAuthorizedPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.bridge.CreateOrder(ctx, f.user.ID, gateway.OrderRequest{Amount: 1000})
	require.NoError(t, err)
	f.processor.SetPayment(gateway.ProcessorPayment{ID: "pay_auth", OrderID: order.ProcessorOrderID, Amount: 1000, Status: "authorized"})
	sig := gateway.Signature(secret, order.ProcessorOrderID, "pay_auth")

	f.processor.FailCapture = errors.New("gateway timeout")
	_, err = f.bridge.Verify(ctx, order.ProcessorOrderID, "pay_auth", sig)
	require.ErrorIs(t, err, gateway.ErrProcessor)
	require.True(t, f.balance(t).IsZero())

	f.processor.FailCapture = nil
	out, err := f.bridge.Verify(ctx, order.ProcessorOrderID, "pay_auth", sig)
	require.NoError(t, err)
	require.Equal(t, models.PaymentCaptured, out.Payment.Status)
	require.Equal(t, models.OrderPaid, out.Order.Status)
	require.Equal(t, 1, f.processor.Captures)
	require.True(t, f.balance(t).Equal(decimal.NewFromInt(10)))

	fetched, err := f.processor.FetchPayment(ctx, "pay_auth")
	require.NoError(t, err)
	require.Equal(t, "captured", fetched.Status)
}

func TestConcurrentVerifyCreditsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.bridge.CreateOrder(ctx, f.user.ID, gateway.OrderRequest{Amount: 2500})
	require.NoError(t, err)
	paymentID := f.processor.Pay(order.ProcessorOrderID)
	sig := gateway.Signature(secret, order.ProcessorOrderID, paymentID)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.bridge.Verify(ctx, order.ProcessorOrderID, paymentID, sig); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.True(t, f.balance(t).Equal(decimal.NewFromInt(25)))
}

func TestExpireStaleOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.bridge.CreateOrder(ctx, f.user.ID, gateway.OrderRequest{Amount: 1000})
	require.NoError(t, err)
	f.clock.Advance(20 * time.Minute)
	fresh, err := f.bridge.CreateOrder(ctx, f.user.ID, gateway.OrderRequest{Amount: 1000})
	require.NoError(t, err)
	f.clock.Advance(11 * time.Minute)

	n, err := f.bridge.ExpireStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := f.store.FindOrder(ctx, old.ProcessorOrderID)
	require.NoError(t, err)
	require.Equal(t, models.OrderFailed, got.Status)
	got, err = f.store.FindOrder(ctx, fresh.ProcessorOrderID)
	require.NoError(t, err)
	require.Equal(t, models.OrderCreated, got.Status)

	paymentID := f.processor.Pay(old.ProcessorOrderID)
	_, err = f.bridge.Verify(ctx, old.ProcessorOrderID, paymentID, gateway.Signature(secret, old.ProcessorOrderID, paymentID))
	require.ErrorIs(t, err, gateway.ErrOrderNotPending)
}
