package domain

import (
	"context"
	"errors"
)

// Sentinel errors returned by repositories. Services translate these into
// the client-facing error kinds; repositories never decide HTTP semantics.
var (
	// ErrNotFound means no record matched the predicate.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means a uniqueness constraint rejected the write.
	ErrDuplicate = errors.New("record already exists")
	// ErrConflict means a conditional update lost a race: the record
	// changed between read and write.
	ErrConflict = errors.New("record was modified concurrently")
)

// SessionRepository persists token-pair session records.
type SessionRepository interface {
	// Create persists a new session, assigning an ID if unset.
	Create(ctx context.Context, session *Session) error
	// FindByRefresh looks a session up by its immutable refresh string.
	FindByRefresh(ctx context.Context, refresh string) (*Session, error)
	// FindByAccess looks a session up by its current access string.
	FindByAccess(ctx context.Context, access string) (*Session, error)
	// RotateAccess replaces the session's access string, conditional on
	// session.Version still being current. Returns ErrConflict if another
	// rotation won the race, ErrNotFound if the session is gone.
	RotateAccess(ctx context.Context, session *Session, newAccess string) error
	// DeleteByUser deletes the user's sessions, keeping any whose access
	// string is listed in exceptAccess. Returns the number deleted.
	DeleteByUser(ctx context.Context, userID string, exceptAccess ...string) (int64, error)
}

// UserRepository persists account records.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// UpdatePassword stores new credential material for the user.
	UpdatePassword(ctx context.Context, id string, hashedPassword, salt []byte) error
}

// LoginCodeRepository persists one-time emailed login codes.
type LoginCodeRepository interface {
	Create(ctx context.Context, code *LoginCode) error
	FindByCode(ctx context.Context, code string) (*LoginCode, error)
	// DeleteByCode consumes a code. Deleting an already-consumed code is
	// not an error.
	DeleteByCode(ctx context.Context, code string) error
}

// CouponRepository persists single-use account-creation coupons.
type CouponRepository interface {
	Create(ctx context.Context, coupon *Coupon) error
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	DeleteByCode(ctx context.Context, code string) error
}
