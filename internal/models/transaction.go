package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the home currency of every wallet balance.
const DefaultCurrency = "INR"

type TransactionType string

const (
	TxPayment    TransactionType = "payment"
	TxTransfer   TransactionType = "transfer"
	TxRefund     TransactionType = "refund"
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TxPayment, TxTransfer, TxRefund, TxDeposit, TxWithdrawal:
		return true
	}
	return false
}

// Debits reports whether the movement takes funds from the sender's balance.
// Deposits originate outside the wallet system and only credit.
func (t TransactionType) Debits() bool {
	return t != TxDeposit
}

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// Transaction is the immutable audit record of one money movement.
type Transaction struct {
	TransactionID string            `json:"transactionId"`
	SenderID      int64             `json:"sender"`
	ReceiverID    int64             `json:"receiver"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Status        TransactionStatus `json:"status"`
	Type          TransactionType   `json:"type"`
	Description   string            `json:"description,omitempty"`
	PaymentID     string            `json:"paymentId,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// TransactionFilter narrows a transaction history query to one participant.
type TransactionFilter struct {
	UserID int64
	Type   TransactionType
	Status TransactionStatus
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

// Offset returns the zero-based row offset for the filter's page.
func (f TransactionFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
