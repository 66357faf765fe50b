package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage"
)

const orderColumns = `processor_order_id, user_id, amount, currency, receipt, status, payment_id, notes, created_at, updated_at`

const paymentColumns = `processor_payment_id, processor_order_id, user_id, signature, amount, currency, status,
	method, email, contact, created_at`

func (s *Store) CreateOrder(ctx context.Context, order models.Order) (models.Order, error) {
	if order.Status == "" {
		order.Status = models.OrderCreated
	}
	query := `
		INSERT INTO orders (processor_order_id, user_id, amount, currency, receipt, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + orderColumns
	row := s.pool.QueryRow(ctx, query,
		order.ProcessorOrderID, order.UserID, order.Amount, order.Currency, order.Receipt, string(order.Status), order.Notes,
	)
	created, err := scanOrder(row)
	if err != nil {
		return models.Order{}, mapWriteErr(err)
	}
	return created, nil
}

func (s *Store) FindOrder(ctx context.Context, processorOrderID string) (models.Order, error) {
	return scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE processor_order_id = $1`, processorOrderID))
}

// CapturePayment commits the order transition, the payment row and the deposit
// together. A second capture of the same order matches no row and yields
// ErrConflict without touching any balance.
func (s *Store) CapturePayment(ctx context.Context, payment models.Payment, deposit models.Transaction) (models.Transaction, error) {
	var out models.Transaction
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(dbtx pgx.Tx) error {
		tag, err := dbtx.Exec(ctx, `
			UPDATE orders SET status = 'paid', payment_id = $2, updated_at = NOW()
			WHERE processor_order_id = $1 AND status = 'created'`, payment.ProcessorOrderID, payment.ProcessorPaymentID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := dbtx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE processor_order_id = $1)`, payment.ProcessorOrderID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return storage.ErrNotFound
			}
			return storage.ErrConflict
		}

		status := payment.Status
		if status == "" {
			status = models.PaymentCaptured
		}
		_, err = dbtx.Exec(ctx, `
			INSERT INTO payments (processor_payment_id, processor_order_id, user_id, signature, amount, currency, status, method, email, contact)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			payment.ProcessorPaymentID, payment.ProcessorOrderID, payment.UserID, payment.Signature, payment.Amount,
			payment.Currency, string(status), payment.Method, payment.Email, payment.Contact,
		)
		if err != nil {
			return mapWriteErr(err)
		}

		out, err = applyMovement(ctx, dbtx, deposit)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return out, nil
}

func (s *Store) ExpireOrders(ctx context.Context, createdBefore time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = 'failed', updated_at = NOW()
		WHERE status = 'created' AND created_at < $1`, createdBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ($1::bigint = 0 OR user_id = $1) ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) ListPayments(ctx context.Context, userID int64) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ($1::bigint = 0 OR user_id = $1) ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Payment, 0)
	for rows.Next() {
		var p models.Payment
		var status string
		if err := rows.Scan(&p.ProcessorPaymentID, &p.ProcessorOrderID, &p.UserID, &p.Signature, &p.Amount, &p.Currency,
			&status, &p.Method, &p.Email, &p.Contact, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Status = models.PaymentStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var o models.Order
	var status string
	err := row.Scan(&o.ProcessorOrderID, &o.UserID, &o.Amount, &o.Currency, &o.Receipt, &status, &o.PaymentID,
		&o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, storage.ErrNotFound
		}
		return models.Order{}, err
	}
	o.Status = models.OrderStatus(status)
	return o, nil
}
