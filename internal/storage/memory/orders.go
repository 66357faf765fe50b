package memory

import (
	"context"
	"time"

	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage"
)

func (s *Store) CreateOrder(_ context.Context, order models.Order) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.ProcessorOrderID]; exists {
		return models.Order{}, storage.ErrAlreadyExists
	}
	now := s.now()
	order.CreatedAt = now
	order.UpdatedAt = now
	stored := order
	s.orders[order.ProcessorOrderID] = &stored
	s.orderSeq = append(s.orderSeq, order.ProcessorOrderID)
	return stored, nil
}

func (s *Store) FindOrder(_ context.Context, processorOrderID string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[processorOrderID]
	if !ok {
		return models.Order{}, storage.ErrNotFound
	}
	return *o, nil
}

func (s *Store) CapturePayment(_ context.Context, payment models.Payment, deposit models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[payment.ProcessorOrderID]
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	if o.Status != models.OrderCreated {
		return models.Transaction{}, storage.ErrConflict
	}
	for _, p := range s.payments {
		if p.ProcessorPaymentID == payment.ProcessorPaymentID {
			return models.Transaction{}, storage.ErrAlreadyExists
		}
	}
	tx, err := s.applyLocked(deposit)
	if err != nil {
		return models.Transaction{}, err
	}
	now := s.now()
	o.Status = models.OrderPaid
	o.PaymentID = payment.ProcessorPaymentID
	o.UpdatedAt = now
	payment.CreatedAt = now
	s.payments = append(s.payments, payment)
	return tx, nil
}

func (s *Store) ExpireOrders(_ context.Context, createdBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now()
	for _, o := range s.orders {
		if o.Status == models.OrderCreated && o.CreatedAt.Before(createdBefore) {
			o.Status = models.OrderFailed
			o.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *Store) ListOrders(_ context.Context, userID int64) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, 0)
	for i := len(s.orderSeq) - 1; i >= 0; i-- {
		o := s.orders[s.orderSeq[i]]
		if userID == 0 || o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *Store) ListPayments(_ context.Context, userID int64) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Payment, 0)
	for i := len(s.payments) - 1; i >= 0; i-- {
		if userID == 0 || s.payments[i].UserID == userID {
			out = append(out, s.payments[i])
		}
	}
	return out, nil
}

func (s *Store) SaveRefresh(_ context.Context, jti string, userID int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[jti] = refreshEntry{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *Store) ConsumeRefresh(_ context.Context, jti string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.refresh[jti]
	if !ok {
		return 0, storage.ErrNotFound
	}
	delete(s.refresh, jti)
	if s.now().After(entry.expiresAt) {
		return 0, storage.ErrNotFound
	}
	return entry.userID, nil
}

func (s *Store) RevokeRefresh(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, jti)
	return nil
}
