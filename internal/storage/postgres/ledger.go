package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage"
)

const transactionColumns = `transaction_id, sender_id, receiver_id, amount::text, currency, status, type,
	description, payment_id, metadata, created_at`

// ApplyMovement runs the movement in its own database transaction.
func (s *Store) ApplyMovement(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	var out models.Transaction
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(dbtx pgx.Tx) error {
		var err error
		out, err = applyMovement(ctx, dbtx, tx)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return out, nil
}

// applyMovement locks both participants in id order, checks funds, moves the
// balances and appends the record. Callers own the surrounding transaction.
func applyMovement(ctx context.Context, dbtx pgx.Tx, tx models.Transaction) (models.Transaction, error) {
	ids := []int64{tx.SenderID, tx.ReceiverID}
	rows, err := dbtx.Query(ctx, `SELECT id, balance::text FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("lock accounts: %w", err)
	}
	balances := make(map[int64]decimal.Decimal, 2)
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return models.Transaction{}, err
		}
		bal, err := decimal.NewFromString(raw)
		if err != nil {
			rows.Close()
			return models.Transaction{}, fmt.Errorf("parse balance: %w", err)
		}
		balances[id] = bal
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.Transaction{}, err
	}

	senderBal, ok := balances[tx.SenderID]
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	if _, ok := balances[tx.ReceiverID]; !ok {
		return models.Transaction{}, storage.ErrNotFound
	}

	amount := tx.Amount.String()
	if tx.Type.Debits() {
		if senderBal.LessThan(tx.Amount) {
			return models.Transaction{}, storage.ErrInsufficientFunds
		}
		if _, err := dbtx.Exec(ctx, `UPDATE users SET balance = balance - $2::numeric, updated_at = NOW() WHERE id = $1`, tx.SenderID, amount); err != nil {
			return models.Transaction{}, mapWriteErr(err)
		}
	}
	if _, err := dbtx.Exec(ctx, `UPDATE users SET balance = balance + $2::numeric, updated_at = NOW() WHERE id = $1`, tx.ReceiverID, amount); err != nil {
		return models.Transaction{}, mapWriteErr(err)
	}

	query := `
		INSERT INTO transactions (transaction_id, sender_id, receiver_id, amount, currency, status, type, description, payment_id, metadata)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)
		RETURNING ` + transactionColumns
	row := dbtx.QueryRow(ctx, query,
		tx.TransactionID, tx.SenderID, tx.ReceiverID, amount, tx.Currency, string(tx.Status), string(tx.Type),
		tx.Description, tx.PaymentID, tx.Metadata,
	)
	stored, err := scanTransaction(row)
	if err != nil {
		return models.Transaction{}, mapWriteErr(err)
	}
	return stored, nil
}

func (s *Store) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `SELECT balance::text FROM users WHERE id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, storage.ErrNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// ListTransactions returns one page of the participant's history, newest first,
// together with the unpaginated match count.
func (s *Store) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	where := []string{"(sender_id = $1 OR receiver_id = $1)"}
	args := []any{filter.UserID}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + cond + ` ORDER BY created_at DESC, transaction_id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, tx)
	}
	return out, total, rows.Err()
}

func (s *Store) FindTransaction(ctx context.Context, transactionID string, participantID int64) (models.Transaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE transaction_id = $1 AND (sender_id = $2 OR receiver_id = $2)`, transactionID, participantID)
	return scanTransaction(row)
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var tx models.Transaction
	var amount, status, typ string
	err := row.Scan(&tx.TransactionID, &tx.SenderID, &tx.ReceiverID, &amount, &tx.Currency, &status, &typ,
		&tx.Description, &tx.PaymentID, &tx.Metadata, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Transaction{}, storage.ErrNotFound
		}
		return models.Transaction{}, err
	}
	tx.Status = models.TransactionStatus(status)
	tx.Type = models.TransactionType(typ)
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	return tx, nil
}
