package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/paygate/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrInsufficientFunds indicates a debit would take a balance below zero.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrConflict indicates a conditional state transition did not apply.
var ErrConflict = errors.New("state conflict")

// UserStore captures credential and profile persistence.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUPIID(ctx context.Context, upiID string) (models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (models.User, error)
	MarkEmailVerified(ctx context.Context, id int64) error
	UpdateProfile(ctx context.Context, id int64, update models.AdminUserUpdate) (models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetUPI(ctx context.Context, id int64, upiID, pinHash string) (models.User, error)
	UpdateUPIPIN(ctx context.Context, id int64, pinHash string) error
	SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error
	// ConsumeOTP clears the code iff it matches and now is not past its expiry.
	ConsumeOTP(ctx context.Context, email, code string, now time.Time) error
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// LedgerStore applies money movements. ApplyMovement must lock both accounts,
// check funds for debiting types, update balances and append the record as one
// failure-atomic unit.
type LedgerStore interface {
	ApplyMovement(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error)
	FindTransaction(ctx context.Context, transactionID string, participantID int64) (models.Transaction, error)
}

// OrderStore persists gateway orders and payments.
type OrderStore interface {
	CreateOrder(ctx context.Context, order models.Order) (models.Order, error)
	FindOrder(ctx context.Context, processorOrderID string) (models.Order, error)
	// CapturePayment flips the order created->paid, stores the payment and applies
	// the deposit in one transaction. ErrConflict when the order is not created.
	CapturePayment(ctx context.Context, payment models.Payment, deposit models.Transaction) (models.Transaction, error)
	ExpireOrders(ctx context.Context, createdBefore time.Time) (int64, error)
	// ListOrders returns orders newest first; userID 0 means all users.
	ListOrders(ctx context.Context, userID int64) ([]models.Order, error)
	ListPayments(ctx context.Context, userID int64) ([]models.Payment, error)
}

// RefreshStore tracks which refresh token ids are still redeemable.
type RefreshStore interface {
	SaveRefresh(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	// ConsumeRefresh atomically removes the jti and returns its owner.
	ConsumeRefresh(ctx context.Context, jti string) (int64, error)
	RevokeRefresh(ctx context.Context, jti string) error
}

// Store is the full persistence surface used by the server.
type Store interface {
	UserStore
	LedgerStore
	OrderStore
	RefreshStore
	Close()
}
