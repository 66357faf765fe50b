package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/paygate/internal/storage"
)

func (s *Store) SaveRefresh(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO refresh_sessions (jti, user_id, expires_at) VALUES ($1, $2, $3)`, jti, userID, expiresAt)
	return mapWriteErr(err)
}

// ConsumeRefresh deletes the session row and reports its owner when it had not
// yet expired.
func (s *Store) ConsumeRefresh(ctx context.Context, jti string) (int64, error) {
	var userID int64
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx, `DELETE FROM refresh_sessions WHERE jti = $1 RETURNING user_id, expires_at`, jti).Scan(&userID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}
	if time.Now().After(expiresAt) {
		return 0, storage.ErrNotFound
	}
	return userID, nil
}

func (s *Store) RevokeRefresh(ctx context.Context, jti string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM refresh_sessions WHERE jti = $1`, jti)
	return err
}
