// Package ledger moves money between wallet balances. Every successful
// movement leaves exactly one completed Transaction behind and a failed one
// leaves no trace.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/clock"
	"github.com/hongminglow/paygate/internal/metrics"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage"
)

const maxDescription = 200

// Intent describes one requested movement.
type Intent struct {
	Type        models.TransactionType
	SenderID    int64
	ReceiverID  int64
	Amount      decimal.Decimal
	Currency    string
	Description string
	PaymentID   string
	Metadata    map[string]any
}

// CommitFunc persists a fully built Transaction and its balance effects.
type CommitFunc func(ctx context.Context, tx models.Transaction) (models.Transaction, error)

type Engine struct {
	store   storage.LedgerStore
	users   storage.UserStore
	clock   clock.Clock
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewEngine(store storage.LedgerStore, users storage.UserStore, clk clock.Clock, m *metrics.Metrics, log *zap.Logger) *Engine {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, users: users, clock: clk, metrics: m, log: log}
}

// Move validates the intent and applies it through the ledger store.
func (e *Engine) Move(ctx context.Context, in Intent) (models.Transaction, error) {
	return e.MoveWith(ctx, in, e.store.ApplyMovement)
}

// MoveWith validates the intent and hands the built Transaction to commit, which
// must apply the balance changes and append the record atomically. Callers use
// it to fold extra writes into the same unit.
func (e *Engine) MoveWith(ctx context.Context, in Intent, commit CommitFunc) (models.Transaction, error) {
	tx, err := e.build(in)
	if err == nil {
		tx, err = commit(ctx, tx)
		err = mapStoreErr(err)
	}
	e.metrics.ObserveMovement(string(in.Type), err)
	if err != nil {
		e.log.Info("ledger movement rejected",
			zap.String("type", string(in.Type)),
			zap.Int64("sender_id", in.SenderID),
			zap.Int64("receiver_id", in.ReceiverID),
			zap.String("amount", in.Amount.String()),
			zap.Error(err))
		return models.Transaction{}, err
	}
	e.log.Info("ledger movement applied",
		zap.String("transaction_id", tx.TransactionID),
		zap.String("type", string(tx.Type)),
		zap.Int64("sender_id", tx.SenderID),
		zap.Int64("receiver_id", tx.ReceiverID),
		zap.String("amount", tx.Amount.String()))
	return tx, nil
}

func (e *Engine) build(in Intent) (models.Transaction, error) {
	if !in.Type.Valid() {
		return models.Transaction{}, ErrInvalidType
	}
	if err := ValidateAmount(in.Amount); err != nil {
		return models.Transaction{}, err
	}
	if (in.Type == models.TxTransfer || in.Type == models.TxPayment) && in.SenderID == in.ReceiverID {
		return models.Transaction{}, ErrSelfMovement
	}
	desc := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(desc) > maxDescription {
		return models.Transaction{}, ErrDescriptionLength
	}
	currency := in.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	now := e.clock.Now()
	id, err := newTransactionID(in.Type, now)
	if err != nil {
		return models.Transaction{}, err
	}
	return models.Transaction{
		TransactionID: id,
		SenderID:      in.SenderID,
		ReceiverID:    in.ReceiverID,
		Amount:        in.Amount,
		Currency:      currency,
		Status:        models.TxCompleted,
		Type:          in.Type,
		Description:   desc,
		PaymentID:     in.PaymentID,
		Metadata:      in.Metadata,
		CreatedAt:     now,
	}, nil
}

// ValidateAmount accepts positive amounts expressed in whole paise.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// Transfer moves amount from senderID to the account registered under
// receiverEmail.
func (e *Engine) Transfer(ctx context.Context, senderID int64, receiverEmail string, amount decimal.Decimal, description string) (models.Transaction, models.User, error) {
	receiver, err := e.users.FindByEmail(ctx, strings.TrimSpace(receiverEmail))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Transaction{}, models.User{}, ErrReceiverNotFound
		}
		return models.Transaction{}, models.User{}, fmt.Errorf("find receiver: %w", err)
	}
	if strings.TrimSpace(description) == "" {
		description = "Money transfer"
	}
	tx, err := e.Move(ctx, Intent{
		Type:        models.TxTransfer,
		SenderID:    senderID,
		ReceiverID:  receiver.ID,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return models.Transaction{}, models.User{}, err
	}
	return tx, receiver, nil
}

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return ErrAccountNotFound
	case errors.Is(err, storage.ErrInsufficientFunds):
		return ErrInsufficientFunds
	}
	return err
}
