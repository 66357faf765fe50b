package upi

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/paygate/internal/ledger"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage/memory"
)

type fixture struct {
	svc   *Service
	store *memory.Store
	alice models.User
	bob   models.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	alice, err := store.CreateUser(ctx, models.User{Name: "Alice", Email: "alice@example.com", Balance: decimal.NewFromInt(500)})
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, models.User{Name: "Bob", Email: "bob@example.com", Balance: decimal.NewFromInt(100)})
	require.NoError(t, err)
	engine := ledger.NewEngine(store, store, nil, nil, nil)
	return fixture{svc: NewService(store, engine, nil), store: store, alice: alice, bob: bob}
}

func TestSetupValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Setup(ctx, f.alice.ID, "", "12a4")
	require.ErrorIs(t, err, ErrPINFormat)
	_, err = f.svc.Setup(ctx, f.alice.ID, "", "12345")
	require.ErrorIs(t, err, ErrPINFormat)
	_, err = f.svc.Setup(ctx, f.alice.ID, "a@1", "1234")
	require.ErrorIs(t, err, ErrHandleFormat)
}

func TestSetupGeneratesHandle(t *testing.T) {
	f := newFixture(t)

	details, err := f.svc.Setup(context.Background(), f.alice.ID, "", "1234")
	require.NoError(t, err)
	require.True(t, details.HasSetupUPI)
	require.Regexp(t, `^alice\d{3}@paygateway$`, details.UPIID)
}

func TestSetupRejectsTakenHandle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Setup(ctx, f.alice.ID, "alice@okbank", "1234")
	require.NoError(t, err)
	_, err = f.svc.Setup(ctx, f.bob.ID, "alice@okbank", "4321")
	require.ErrorIs(t, err, ErrHandleTaken)

	_, err = f.svc.Setup(ctx, f.alice.ID, "alice@okbank", "5678")
	require.NoError(t, err, "re-running setup with own handle updates the PIN")
	require.NoError(t, f.svc.VerifyPIN(ctx, f.alice.ID, "5678"))
}

func TestPayWithWrongPINChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Setup(ctx, f.alice.ID, "alice@okbank", "1234")
	require.NoError(t, err)
	_, err = f.svc.Setup(ctx, f.bob.ID, "bob@okbank", "4321")
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, f.alice.ID, "bob@okbank", decimal.NewFromInt(50), "9999", "")
	require.ErrorIs(t, err, ErrInvalidPIN)

	a, _ := f.store.Balance(ctx, f.alice.ID)
	b, _ := f.store.Balance(ctx, f.bob.ID)
	require.True(t, a.Equal(decimal.NewFromInt(500)))
	require.True(t, b.Equal(decimal.NewFromInt(100)))
	txs, total, err := f.store.ListTransactions(ctx, models.TransactionFilter{UserID: f.alice.ID})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, txs)
}

func TestPayMovesFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Setup(ctx, f.alice.ID, "alice@okbank", "1234")
	require.NoError(t, err)
	_, err = f.svc.Setup(ctx, f.bob.ID, "bob@okbank", "4321")
	require.NoError(t, err)

	payment, err := f.svc.Pay(ctx, f.alice.ID, "bob@okbank", decimal.NewFromInt(120), "1234", "")
	require.NoError(t, err)
	tx := payment.Transaction
	require.Regexp(t, `^UPI\d+[0-9a-f]{8}$`, tx.TransactionID)
	require.Equal(t, models.TxPayment, tx.Type)
	require.Equal(t, "UPI Payment", tx.Description)
	require.Equal(t, "UPI", tx.Metadata["method"])
	require.Equal(t, "alice@okbank", tx.Metadata["senderUpiId"])
	require.Equal(t, "bob@okbank", tx.Metadata["receiverUpiId"])
	require.Equal(t, f.bob.ID, payment.Receiver.ID)

	a, _ := f.store.Balance(ctx, f.alice.ID)
	require.True(t, a.Equal(decimal.NewFromInt(380)))

	_, err = f.svc.Pay(ctx, f.alice.ID, "bob@okbank", decimal.NewFromInt(1000), "1234", "")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = f.svc.Pay(ctx, f.alice.ID, "alice@okbank", decimal.NewFromInt(1), "1234", "")
	require.ErrorIs(t, err, ledger.ErrSelfMovement)

	_, err = f.svc.Pay(ctx, f.alice.ID, "nobody@okbank", decimal.NewFromInt(1), "1234", "")
	require.ErrorIs(t, err, ErrReceiverNotFound)
}

func TestPayRequiresSetup(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Pay(context.Background(), f.alice.ID, "bob@okbank", decimal.NewFromInt(1), "1234", "")
	require.ErrorIs(t, err, ErrNotSetUp)
}

func TestUpdatePIN(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Setup(ctx, f.alice.ID, "", "1234")
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.UpdatePIN(ctx, f.alice.ID, "0000", "5555"), ErrInvalidPIN)
	require.ErrorIs(t, f.svc.UpdatePIN(ctx, f.alice.ID, "1234", "55"), ErrPINFormat)
	require.NoError(t, f.svc.UpdatePIN(ctx, f.alice.ID, "1234", "5555"))
	require.ErrorIs(t, f.svc.VerifyPIN(ctx, f.alice.ID, "1234"), ErrInvalidPIN)
	require.NoError(t, f.svc.VerifyPIN(ctx, f.alice.ID, "5555"))
}
