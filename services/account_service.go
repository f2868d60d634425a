package services

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"go.jumpsca.re/runestone/domain"
	"go.jumpsca.re/runestone/errors"
	"go.jumpsca.re/runestone/internal/audit"
)

// ErrInvalidCoupon is returned when the coupon does not exist or has
// already been redeemed.
var ErrInvalidCoupon = errors.Malformed("invalid or already redeemed coupon code")

// couponNamespace seeds deterministic owner-id derivation for coupon
// redemptions.
var couponNamespace = uuid.MustParse("9f2c1a14-7b6e-4c14-9d14-3f05c2a7e6b1")

// AccountService handles account creation through coupon redemption.
type AccountService struct {
	users   domain.UserRepository
	coupons domain.CouponRepository
}

// NewAccountService creates an AccountService.
func NewAccountService(users domain.UserRepository, coupons domain.CouponRepository) *AccountService {
	return &AccountService{users: users, coupons: coupons}
}

// RedeemCoupon consumes a single-use coupon and creates the user account.
// The owner id is derived deterministically from the coupon code, so a
// retry after a partial failure re-creates the same account instead of a
// duplicate: user creation is idempotent and the coupon is only deleted
// once the user record exists.
func (s *AccountService) RedeemCoupon(ctx context.Context, code, email, displayName, pronouns string) (*domain.User, error) {
	if _, err := s.coupons.FindByCode(ctx, code); err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Infrastructure("failed to load coupon", err)
	}

	user := &domain.User{
		ID:          uuid.NewSHA1(couponNamespace, []byte("user:"+code)).String(),
		Email:       email,
		DisplayName: displayName,
		Pronouns:    pronouns,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if stderrors.Is(err, domain.ErrDuplicate) {
			// A previous attempt already created this account; resume from
			// the stored record.
			existing, findErr := s.users.FindByID(ctx, user.ID)
			if findErr != nil {
				return nil, errors.Infrastructure("failed to load existing user", findErr)
			}
			user = existing
		} else {
			return nil, errors.Infrastructure("failed to create user", err)
		}
	}

	if err := s.coupons.DeleteByCode(ctx, code); err != nil {
		// The account exists; a dangling coupon is recoverable on retry.
		log.Warn().Err(err).Str("userID", user.ID).Msg("Failed to delete redeemed coupon")
	}

	audit.Log("AccountService", "RedeemCoupon", user.ID, user.ID, "", true, nil)
	return user, nil
}
