// Package redisstore keeps refresh sessions in Redis so several server
// processes share one allowlist.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/hongminglow/paygate/internal/storage"
)

var _ storage.RefreshStore = (*RefreshStore)(nil)

const keyPrefix = "paygate:refresh:"

type RefreshStore struct {
	client *redis.Client
	now    func() time.Time
}

// Options mirrors the REDIS_* settings.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Dial connects and pings Redis.
func Dial(ctx context.Context, opts Options) (*RefreshStore, error) {
	rc := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(rc), nil
}

func New(client *redis.Client) *RefreshStore {
	return &RefreshStore{client: client, now: time.Now}
}

func (s *RefreshStore) Close() error {
	return s.client.Close()
}

func (s *RefreshStore) SaveRefresh(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, keyPrefix+jti, strconv.FormatInt(userID, 10), ttl).Err()
}

// ConsumeRefresh uses GETDEL so two concurrent redemptions cannot both succeed.
func (s *RefreshStore) ConsumeRefresh(ctx context.Context, jti string) (int64, error) {
	raw, err := s.client.GetDel(ctx, keyPrefix+jti).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse refresh owner: %w", err)
	}
	return id, nil
}

func (s *RefreshStore) RevokeRefresh(ctx context.Context, jti string) error {
	return s.client.Del(ctx, keyPrefix+jti).Err()
}
