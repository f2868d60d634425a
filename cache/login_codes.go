// Package cache provides in-process implementations of the domain
// repositories, used in tests and single-node development setups.
package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.jumpsca.re/runestone/domain"
)

// LoginCodeStore implements domain.LoginCodeRepository in memory. Records
// are evicted after ttl as a safety net; the authoritative expiry check is
// still the service's, based on the record's creation instant.
type LoginCodeStore struct {
	cache *ttlcache.Cache[string, *domain.LoginCode]
}

// NewLoginCodeStore creates a store evicting records after ttl.
func NewLoginCodeStore(ttl time.Duration) *LoginCodeStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.LoginCode](ttl),
		ttlcache.WithDisableTouchOnHit[string, *domain.LoginCode](),
	)
	go cache.Start()

	return &LoginCodeStore{cache: cache}
}

func (s *LoginCodeStore) Create(_ context.Context, code *domain.LoginCode) error {
	if code.ID == "" {
		code.ID = domain.NewID()
	}
	if s.cache.Has(code.Code) {
		return domain.ErrDuplicate
	}
	s.cache.Set(code.Code, code, ttlcache.DefaultTTL)
	return nil
}

func (s *LoginCodeStore) FindByCode(_ context.Context, code string) (*domain.LoginCode, error) {
	item := s.cache.Get(code)
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item.Value(), nil
}

func (s *LoginCodeStore) DeleteByCode(_ context.Context, code string) error {
	s.cache.Delete(code)
	return nil
}

// Close stops the eviction goroutine.
func (s *LoginCodeStore) Close() {
	s.cache.Stop()
}

var _ domain.LoginCodeRepository = (*LoginCodeStore)(nil)
