package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrAccountNotFound   = errors.New("account not found")
	ErrSelfMovement      = errors.New("cannot move money to the same account")
	ErrInvalidAmount     = errors.New("amount must be a positive value with at most two decimal places")
	ErrInvalidType       = errors.New("unknown transaction type")
	ErrDescriptionLength = errors.New("description cannot exceed 200 characters")
)

// ErrReceiverNotFound is the ErrAccountNotFound raised for a transfer
// receiver looked up by email.
var ErrReceiverNotFound = fmt.Errorf("receiver: %w", ErrAccountNotFound)
