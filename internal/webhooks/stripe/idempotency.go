package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ldraney/pal-e-billing/pkg/redis"
)

// IdempotencyScope namespaces Stripe event ids in the idempotency store.
const IdempotencyScope = "stripe_webhook"

// IdempotencyGuard remembers processed event ids so provider retries are acknowledged once.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		scope = IdempotencyScope
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark claims eventID and reports whether it was already claimed. A nil guard
// reports every event as new.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if g == nil {
		return false, nil
	}
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, eventID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release drops the claim so a failed delivery can be retried.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID string) error {
	if g == nil {
		return nil
	}
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID))
}
