package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jumpsca.re/runestone/cache"
	"go.jumpsca.re/runestone/domain"
	"go.jumpsca.re/runestone/errors"
	"go.jumpsca.re/runestone/services"
)

func newAccountFixture(t *testing.T) (*services.AccountService, *cache.UserStore, *cache.CouponStore) {
	t.Helper()

	users := cache.NewUserStore()
	coupons := cache.NewCouponStore()
	return services.NewAccountService(users, coupons), users, coupons
}

func TestRedeemCoupon(t *testing.T) {
	svc, users, coupons := newAccountFixture(t)
	ctx := context.Background()
	require.NoError(t, coupons.Create(ctx, &domain.Coupon{Code: "WELCOME-2026"}))

	user, err := svc.RedeemCoupon(ctx, "WELCOME-2026", "alice@example.com", "Alice", "they/them")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.Equal(t, "they/them", user.Pronouns)
	assert.False(t, user.HasPassword())

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, stored.Email)

	// The coupon is consumed.
	_, err = coupons.FindByCode(ctx, "WELCOME-2026")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedeemCouponUnknownCode(t *testing.T) {
	svc, _, _ := newAccountFixture(t)

	_, err := svc.RedeemCoupon(context.Background(), "NOPE", "alice@example.com", "Alice", "")
	require.ErrorIs(t, err, services.ErrInvalidCoupon)
	assert.True(t, errors.IsKind(err, errors.KindMalformed))
}

func TestRedeemCouponSecondRedemptionFails(t *testing.T) {
	svc, _, coupons := newAccountFixture(t)
	ctx := context.Background()
	require.NoError(t, coupons.Create(ctx, &domain.Coupon{Code: "ONCE"}))

	_, err := svc.RedeemCoupon(ctx, "ONCE", "alice@example.com", "Alice", "")
	require.NoError(t, err)

	_, err = svc.RedeemCoupon(ctx, "ONCE", "mallory@example.com", "Mallory", "")
	assert.ErrorIs(t, err, services.ErrInvalidCoupon)
}

func TestRedeemCouponRetryResumesSameAccount(t *testing.T) {
	svc, users, coupons := newAccountFixture(t)
	ctx := context.Background()
	require.NoError(t, coupons.Create(ctx, &domain.Coupon{Code: "RETRY-ME"}))

	first, err := svc.RedeemCoupon(ctx, "RETRY-ME", "alice@example.com", "Alice", "")
	require.NoError(t, err)

	// Simulate a partial failure where the account was created but the
	// coupon survived: a retry must land on the same account.
	require.NoError(t, coupons.Create(ctx, &domain.Coupon{Code: "RETRY-ME"}))
	second, err := svc.RedeemCoupon(ctx, "RETRY-ME", "alice@example.com", "Alice", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	stored, err := users.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", stored.Email)
}
