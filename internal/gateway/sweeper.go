package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpireStale fails every order that is still created and older than ttl.
func (b *Bridge) ExpireStale(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := b.orders.ExpireOrders(ctx, b.clock.Now().Add(-ttl))
	b.metrics.ObserveOrderSweep(n, err)
	return n, err
}

// StartExpiryWorker runs ExpireStale every interval until ctx is done.
func (b *Bridge) StartExpiryWorker(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := b.ExpireStale(ctx, ttl)
				if err != nil {
					b.log.Error("order expiry sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					b.log.Info("expired stale orders", zap.Int64("expired", n))
				}
			}
		}
	}()
}
