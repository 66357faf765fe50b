package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for users, ledger, orders and refresh sessions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'merchant', 'admin')),
			phone TEXT NOT NULL DEFAULT '',
			address JSONB NOT NULL DEFAULT '{}'::jsonb,
			balance NUMERIC(24,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			is_email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			verification_token TEXT,
			upi_id TEXT UNIQUE,
			upi_pin_hash TEXT NOT NULL DEFAULT '',
			has_setup_upi BOOLEAN NOT NULL DEFAULT FALSE,
			otp TEXT,
			otp_expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS users_verification_token_idx ON users (verification_token) WHERE verification_token IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS transactions (
			transaction_id TEXT PRIMARY KEY,
			sender_id BIGINT NOT NULL REFERENCES users(id),
			receiver_id BIGINT NOT NULL REFERENCES users(id),
			amount NUMERIC(24,2) NOT NULL CHECK (amount > 0),
			currency TEXT NOT NULL DEFAULT 'INR',
			status TEXT NOT NULL CHECK (status IN ('pending', 'completed', 'failed')),
			type TEXT NOT NULL CHECK (type IN ('payment', 'transfer', 'refund', 'deposit', 'withdrawal')),
			description TEXT NOT NULL DEFAULT '',
			payment_id TEXT NOT NULL DEFAULT '',
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS transactions_sender_idx ON transactions (sender_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS transactions_receiver_idx ON transactions (receiver_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS orders (
			processor_order_id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'INR',
			receipt TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'created' CHECK (status IN ('created', 'paid', 'failed')),
			payment_id TEXT NOT NULL DEFAULT '',
			notes JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS orders_user_idx ON orders (user_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS orders_pending_idx ON orders (created_at) WHERE status = 'created';`,
		`CREATE TABLE IF NOT EXISTS payments (
			processor_payment_id TEXT PRIMARY KEY,
			processor_order_id TEXT NOT NULL REFERENCES orders(processor_order_id),
			user_id BIGINT NOT NULL REFERENCES users(id),
			signature TEXT NOT NULL,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'INR',
			status TEXT NOT NULL DEFAULT 'captured' CHECK (status IN ('captured', 'failed', 'refunded')),
			method TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			contact TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS payments_user_idx ON payments (user_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS refresh_sessions (
			jti TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const userColumns = `id, name, email, password_hash, role, phone, address, balance::text,
	is_email_verified, COALESCE(verification_token, ''), COALESCE(upi_id, ''), upi_pin_hash,
	has_setup_upi, COALESCE(otp, ''), otp_expires_at, created_at, updated_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, role, phone, address, balance, is_email_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, NULLIF($9, ''))
		RETURNING ` + userColumns
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	row := s.pool.QueryRow(ctx, query,
		user.Name, user.Email, user.PasswordHash, string(user.Role), user.Phone, user.Address,
		user.Balance.String(), user.IsEmailVerified, user.VerificationToken,
	)
	created, err := scanUser(row)
	if err != nil {
		return models.User{}, mapWriteErr(err)
	}
	return created, nil
}

// FindByID fetches a user by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// FindByEmail fetches a user by email address. Matching is case-sensitive.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// FindByUPIID fetches a user by UPI handle.
func (s *Store) FindByUPIID(ctx context.Context, upiID string) (models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE upi_id = $1`, upiID))
}

func (s *Store) FindByVerificationToken(ctx context.Context, token string) (models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token))
}

func (s *Store) MarkEmailVerified(ctx context.Context, id int64) error {
	return s.execOne(ctx, `
		UPDATE users SET is_email_verified = TRUE, verification_token = NULL, updated_at = NOW()
		WHERE id = $1`, id)
}

// UpdateProfile applies only the non-nil fields of update.
func (s *Store) UpdateProfile(ctx context.Context, id int64, update models.AdminUserUpdate) (models.User, error) {
	var role *string
	if update.Role != nil {
		r := string(*update.Role)
		role = &r
	}
	query := `
		UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			phone = COALESCE($4, phone),
			address = COALESCE($5, address),
			role = COALESCE($6, role),
			is_email_verified = COALESCE($7, is_email_verified),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, id, update.Name, update.Email, update.Phone, update.Address, role, update.IsEmailVerified)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, mapWriteErr(err)
	}
	return user, nil
}

func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return s.execOne(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
}

func (s *Store) SetUPI(ctx context.Context, id int64, upiID, pinHash string) (models.User, error) {
	query := `
		UPDATE users SET upi_id = $2, upi_pin_hash = $3, has_setup_upi = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(s.pool.QueryRow(ctx, query, id, upiID, pinHash))
	if err != nil {
		return models.User{}, mapWriteErr(err)
	}
	return user, nil
}

func (s *Store) UpdateUPIPIN(ctx context.Context, id int64, pinHash string) error {
	return s.execOne(ctx, `UPDATE users SET upi_pin_hash = $2, updated_at = NOW() WHERE id = $1`, id, pinHash)
}

func (s *Store) SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	return s.execOne(ctx, `UPDATE users SET otp = $2, otp_expires_at = $3, updated_at = NOW() WHERE id = $1`, id, code, expiresAt)
}

// ConsumeOTP clears the stored code in the same statement that checks it, so a
// code can be redeemed once even under concurrent verification.
func (s *Store) ConsumeOTP(ctx context.Context, email, code string, now time.Time) error {
	return s.execOne(ctx, `
		UPDATE users SET otp = NULL, otp_expires_at = NULL, updated_at = NOW()
		WHERE email = $1 AND otp IS NOT NULL AND otp = $2 AND otp_expires_at >= $3`, email, code, now)
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	err := s.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
	return mapWriteErr(err)
}

func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var role, balance string
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &user.Phone, &user.Address, &balance,
		&user.IsEmailVerified, &user.VerificationToken, &user.UPIID, &user.UPIPINHash,
		&user.HasSetupUPI, &user.OTP, &user.OTPExpiresAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	user.Role = models.Role(role)
	user.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return models.User{}, fmt.Errorf("parse balance: %w", err)
	}
	return user, nil
}

// mapWriteErr translates constraint violations into storage sentinels.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return storage.ErrAlreadyExists
		case "23503":
			return storage.ErrConflict
		case "23514":
			if pgErr.ConstraintName == "users_balance_check" {
				return storage.ErrInsufficientFunds
			}
		}
	}
	return err
}
