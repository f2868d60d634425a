package cache

import (
	"context"
	"sync"

	"go.jumpsca.re/runestone/domain"
)

// CouponStore implements domain.CouponRepository in memory.
type CouponStore struct {
	mu     sync.Mutex
	byCode map[string]*domain.Coupon
}

// NewCouponStore creates an empty in-memory coupon store.
func NewCouponStore() *CouponStore {
	return &CouponStore{byCode: map[string]*domain.Coupon{}}
}

func (s *CouponStore) Create(_ context.Context, coupon *domain.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if coupon.ID == "" {
		coupon.ID = domain.NewID()
	}
	if _, ok := s.byCode[coupon.Code]; ok {
		return domain.ErrDuplicate
	}
	stored := *coupon
	s.byCode[stored.Code] = &stored
	return nil
}

func (s *CouponStore) FindByCode(_ context.Context, code string) (*domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (s *CouponStore) DeleteByCode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byCode, code)
	return nil
}

var _ domain.CouponRepository = (*CouponStore)(nil)
