package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hongminglow/paygate/internal/storage"
)

func TestRefreshStoreSingleUse(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := Dial(ctx, Options{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	jti := "test-" + time.Now().Format("150405.000000000")
	require.NoError(t, store.SaveRefresh(ctx, jti, 42, time.Now().Add(time.Minute)))

	owner, err := store.ConsumeRefresh(ctx, jti)
	require.NoError(t, err)
	require.Equal(t, int64(42), owner)

	_, err = store.ConsumeRefresh(ctx, jti)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SaveRefresh(ctx, jti+"-r", 7, time.Now().Add(time.Minute)))
	require.NoError(t, store.RevokeRefresh(ctx, jti+"-r"))
	_, err = store.ConsumeRefresh(ctx, jti+"-r")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
