// Package redis provides a redis-backed login-code store. One-time codes
// are the only ephemeral record kind, and redis key TTLs fit their
// fixed 15-minute lifetime naturally.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go.jumpsca.re/runestone/domain"
)

const keyPrefix = "logincode:"

// LoginCodeStore implements domain.LoginCodeRepository over redis. The
// key TTL is an eviction safety net; the service still enforces expiry
// from the record's creation instant, so a not-yet-evicted stale code is
// rejected the same way as a missing one.
type LoginCodeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLoginCodeStore creates a store on the given client, evicting codes
// after ttl.
func NewLoginCodeStore(client *redis.Client, ttl time.Duration) *LoginCodeStore {
	return &LoginCodeStore{client: client, ttl: ttl}
}

func (s *LoginCodeStore) Create(ctx context.Context, code *domain.LoginCode) error {
	if code.ID == "" {
		code.ID = domain.NewID()
	}
	payload, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal login code: %w", err)
	}
	ok, err := s.client.SetNX(ctx, keyPrefix+code.Code, payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store login code: %w", err)
	}
	if !ok {
		return domain.ErrDuplicate
	}
	return nil
}

func (s *LoginCodeStore) FindByCode(ctx context.Context, code string) (*domain.LoginCode, error) {
	payload, err := s.client.Get(ctx, keyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load login code: %w", err)
	}
	var record domain.LoginCode
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal login code: %w", err)
	}
	return &record, nil
}

func (s *LoginCodeStore) DeleteByCode(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, keyPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to delete login code: %w", err)
	}
	return nil
}

var _ domain.LoginCodeRepository = (*LoginCodeStore)(nil)
