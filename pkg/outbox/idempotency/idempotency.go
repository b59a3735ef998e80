package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/blankhall98/Metaleria-API/pkg/redis"
)

// Outcome describes what a Claim found for a key.
type Outcome int

const (
	// OutcomeClaimed means the key was free and now belongs to the caller.
	OutcomeClaimed Outcome = iota
	// OutcomeReplay means the key was already claimed with the same fingerprint.
	OutcomeReplay
	// OutcomeConflict means the key was already claimed for a different request.
	OutcomeConflict
)

// Manager guards client-supplied idempotency keys using Redis SETNX with a TTL.
// Keys follow the `mt:idempotency:<scope>:<key>` pattern and store the request fingerprint.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds an idempotency guard that holds claims for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// Claim marks key as taken by fingerprint. A second claim with the same
// fingerprint is a replay; any other fingerprint is a conflict.
func (m *Manager) Claim(ctx context.Context, scope, key, fingerprint string) (Outcome, error) {
	storeKey, err := m.storeKey(scope, key)
	if err != nil {
		return OutcomeConflict, err
	}
	set, err := m.store.SetNX(ctx, storeKey, fingerprint, m.ttl)
	if err != nil {
		return OutcomeConflict, err
	}
	if set {
		return OutcomeClaimed, nil
	}
	existing, err := m.store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// expired between SETNX and GET; the database constraint still guards the write
			return OutcomeClaimed, nil
		}
		return OutcomeConflict, err
	}
	if existing == fingerprint {
		return OutcomeReplay, nil
	}
	return OutcomeConflict, nil
}

// Release frees a claim so a failed request can be retried with the same key.
func (m *Manager) Release(ctx context.Context, scope, key string) error {
	storeKey, err := m.storeKey(scope, key)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, storeKey)
}

func (m *Manager) storeKey(scope, key string) (string, error) {
	if strings.TrimSpace(scope) == "" {
		return "", errors.New("scope is required")
	}
	if strings.TrimSpace(key) == "" {
		return "", errors.New("idempotency key is required")
	}
	return m.store.IdempotencyKey(scope, key), nil
}
