package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage"
)

func (s *Store) ApplyMovement(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(tx)
}

// applyLocked validates everything before touching a balance so a failure
// leaves no partial state.
func (s *Store) applyLocked(tx models.Transaction) (models.Transaction, error) {
	sender, ok := s.users[tx.SenderID]
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	receiver, ok := s.users[tx.ReceiverID]
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	for _, existing := range s.transactions {
		if existing.TransactionID == tx.TransactionID {
			return models.Transaction{}, storage.ErrAlreadyExists
		}
	}
	debits := tx.Type.Debits()
	if debits && sender.Balance.LessThan(tx.Amount) {
		return models.Transaction{}, storage.ErrInsufficientFunds
	}

	now := s.now()
	if debits {
		sender.Balance = sender.Balance.Sub(tx.Amount)
		sender.UpdatedAt = now
	}
	receiver.Balance = receiver.Balance.Add(tx.Amount)
	receiver.UpdatedAt = now

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.Metadata = copyMetadata(tx.Metadata)
	s.transactions = append(s.transactions, tx)
	return tx, nil
}

func (s *Store) Balance(_ context.Context, userID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return decimal.Zero, storage.ErrNotFound
	}
	return u.Balance, nil
}

func (s *Store) ListTransactions(_ context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]models.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.SenderID != filter.UserID && tx.ReceiverID != filter.UserID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.From != nil && tx.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, tx)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < total {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (s *Store) FindTransaction(_ context.Context, transactionID string, participantID int64) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.transactions {
		if tx.TransactionID != transactionID {
			continue
		}
		if tx.SenderID != participantID && tx.ReceiverID != participantID {
			break
		}
		return tx, nil
	}
	return models.Transaction{}, storage.ErrNotFound
}

func copyMetadata(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
