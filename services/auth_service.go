package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"go.jumpsca.re/runestone/domain"
	"go.jumpsca.re/runestone/errors"
	"go.jumpsca.re/runestone/internal/audit"
	"go.jumpsca.re/runestone/internal/auth"
	"go.jumpsca.re/runestone/internal/mail"
	"go.jumpsca.re/runestone/internal/metrics"
	"go.jumpsca.re/runestone/token"
)

// Policy constants. These are part of the wire contract with clients and
// are deliberately not configurable.
const (
	// AccessTokenTTL is the access token lifetime (28800 seconds).
	AccessTokenTTL = 8 * time.Hour
	// LoginCodeTTL is the emailed one-time code lifetime, measured from
	// the code record's creation instant.
	LoginCodeTTL = 15 * time.Minute

	loginCodeSubject = "jumpsca.re login code"
)

// ErrPasswordLoginDisabled is returned when a password login is attempted
// against an account that has no stored password.
var ErrPasswordLoginDisabled = errors.Malformed("invalid login method, try using email login")

// TokenPair is a freshly issued access/refresh pair as returned to a
// client at login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresInSec int    `json:"expiresInSec"`
}

// RefreshResult is the outcome of a successful rotation: only the new
// access token goes back to the client, the refresh token is unchanged.
type RefreshResult struct {
	AccessToken  string `json:"accessToken"`
	ExpiresInSec int    `json:"expiresInSec"`
}

// AuthService implements the login, validation, refresh and revocation
// protocol over the session store.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	codes    domain.LoginCodeRepository
	hasher   PasswordHasher
	mailer   mail.Mailer
}

// NewAuthService creates an AuthService.
func NewAuthService(
	users domain.UserRepository,
	sessions domain.SessionRepository,
	codes domain.LoginCodeRepository,
	hasher PasswordHasher,
	mailer mail.Mailer,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		codes:    codes,
		hasher:   hasher,
		mailer:   mailer,
	}
}

// LoginWithPassword verifies the credentials and issues a primary-scope
// token pair. Unknown email and wrong password are indistinguishable to
// the caller.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			metrics.LoginFailureTotal.Inc()
			audit.Log("AuthService", "LoginWithPassword", email, "", "unknown email", false, nil)
			return nil, nil, errors.Unauthorized()
		}
		return nil, nil, errors.Infrastructure("failed to load user", err)
	}
	if !user.HasPassword() {
		metrics.LoginFailureTotal.Inc()
		audit.Log("AuthService", "LoginWithPassword", user.ID, user.ID, "password login disabled", false, nil)
		return nil, nil, ErrPasswordLoginDisabled
	}
	if !s.hasher.Verify(password, user.HashedPassword, user.Salt) {
		metrics.LoginFailureTotal.Inc()
		audit.Log("AuthService", "LoginWithPassword", user.ID, user.ID, "incorrect password", false, nil)
		return nil, nil, errors.Unauthorized()
	}

	pair, err := s.issuePair(ctx, user.ID, token.ScopeJR)
	if err != nil {
		return nil, nil, err
	}
	metrics.LoginSuccessTotal.Inc()
	audit.Log("AuthService", "LoginWithPassword", user.ID, user.ID, "", true, nil)
	return user, pair, nil
}

// SetPassword hashes and stores a new password for the user. When
// invalidateSessions is set, the user's sessions are revoked;
// invalidateThisSession controls whether the session identified by
// currentAccess survives.
func (s *AuthService) SetPassword(ctx context.Context, user *domain.User, password string, invalidateSessions, invalidateThisSession bool, currentAccess string) error {
	hashed, salt, err := s.hasher.Hash(password)
	if err != nil {
		return errors.Infrastructure("failed to hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed, salt); err != nil {
		return errors.Infrastructure("failed to store password", err)
	}
	audit.Log("AuthService", "SetPassword", user.ID, user.ID, "", true, nil)

	if invalidateSessions {
		var except []string
		if !invalidateThisSession {
			except = []string{currentAccess}
		}
		if _, err := s.RevokeSessions(ctx, user.ID, except...); err != nil {
			return err
		}
	}
	return nil
}

// RequestLoginCode creates a one-time login code for the account behind
// email and sends it there. The send is awaited and not retried.
func (s *AuthService) RequestLoginCode(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			return errors.Unauthorized()
		}
		return errors.Infrastructure("failed to load user", err)
	}

	code, err := auth.GenerateLoginCode()
	if err != nil {
		return errors.Infrastructure("failed to generate login code", err)
	}
	if err := s.codes.Create(ctx, &domain.LoginCode{Code: code, UserID: user.ID}); err != nil {
		return errors.Infrastructure("failed to store login code", err)
	}
	err = s.mailer.Send(ctx, &mail.Message{
		Subject:              loginCodeSubject,
		RecipientAddress:     user.Email,
		RecipientDisplayName: user.DisplayName,
		BodyPlain:            code,
		BodyHTML:             fmt.Sprintf("<b>%s</b>", code),
	})
	if err != nil {
		audit.Log("AuthService", "RequestLoginCode", user.ID, user.ID, "mail delivery failed", false, err)
		return errors.Infrastructure("failed to send login code email", err)
	}
	metrics.LoginCodesIssuedTotal.Inc()
	audit.Log("AuthService", "RequestLoginCode", user.ID, user.ID, "", true, nil)
	return nil
}

// RedeemLoginCode exchanges a valid emailed code for a primary-scope
// token pair. The code is consumed on success; a code older than
// LoginCodeTTL fails even when its record still exists.
func (s *AuthService) RedeemLoginCode(ctx context.Context, email, code string) (*domain.User, *TokenPair, error) {
	record, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			metrics.LoginFailureTotal.Inc()
			return nil, nil, errors.Unauthorized()
		}
		return nil, nil, errors.Infrastructure("failed to load login code", err)
	}
	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			return nil, nil, errors.Unauthorized()
		}
		return nil, nil, errors.Infrastructure("failed to load user", err)
	}
	if user.Email != email {
		metrics.LoginFailureTotal.Inc()
		audit.Log("AuthService", "RedeemLoginCode", user.ID, user.ID, "email mismatch", false, nil)
		return nil, nil, errors.Unauthorized()
	}
	createdAt, err := record.CreatedAt()
	if err != nil {
		return nil, nil, errors.Infrastructure("login code record has no valid creation time", err)
	}
	if createdAt.Add(LoginCodeTTL).Before(time.Now()) {
		metrics.LoginFailureTotal.Inc()
		audit.Log("AuthService", "RedeemLoginCode", user.ID, user.ID, "expired code", false, nil)
		return nil, nil, errors.Unauthorized()
	}

	pair, err := s.issuePair(ctx, user.ID, token.ScopeJR)
	if err != nil {
		return nil, nil, err
	}
	if err := s.codes.DeleteByCode(ctx, code); err != nil {
		log.Warn().Err(err).Str("userID", user.ID).Msg("Failed to consume login code after redemption")
	}
	metrics.LoginSuccessTotal.Inc()
	audit.Log("AuthService", "RedeemLoginCode", user.ID, user.ID, "", true, nil)
	return user, pair, nil
}

// ValidateAccess authorizes a plain request bearing only an access token:
// decode, locate the session by the access string, cross-check, enforce
// expiry. Read-only, no side effects on the session.
func (s *AuthService) ValidateAccess(ctx context.Context, accessStr string) (*domain.Session, *domain.User, error) {
	access, err := token.Decode(accessStr)
	if err != nil {
		return nil, nil, err
	}
	if access.Type != token.TypeAccess {
		return nil, nil, errors.Malformed("presented token is not an access token")
	}

	sess, err := s.sessions.FindByAccess(ctx, accessStr)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			return nil, nil, errors.Unauthorized()
		}
		return nil, nil, errors.Infrastructure("failed to load session", err)
	}
	if sess.Access != accessStr {
		return nil, nil, errors.Unauthorized()
	}
	if access.Expired(time.Now()) {
		return nil, nil, errors.Unauthorized()
	}

	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			return nil, nil, errors.Unauthorized()
		}
		return nil, nil, errors.Infrastructure("failed to load user", err)
	}
	return sess, user, nil
}

// Refresh validates a presented access/refresh pair and rotates the
// access token. The access token may be expired; refreshing is exactly
// how an expired access token is renewed. The refresh token string and
// the session record identity never change here.
func (s *AuthService) Refresh(ctx context.Context, accessStr, refreshStr string) (*RefreshResult, error) {
	access, err := token.Decode(accessStr)
	if err != nil {
		return nil, err
	}
	refresh, err := token.Decode(refreshStr)
	if err != nil {
		return nil, err
	}
	// Guards against a client swapping the two strings.
	if access.Type != token.TypeAccess {
		return nil, errors.Malformed("accessToken is not an access token")
	}
	if refresh.Type != token.TypeRefresh {
		return nil, errors.Malformed("refreshToken is not a refresh token")
	}

	// The refresh string is immutable for the life of the session and is
	// therefore the stable lookup key.
	sess, err := s.sessions.FindByRefresh(ctx, refreshStr)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			return nil, errors.Unauthorized()
		}
		return nil, errors.Infrastructure("failed to load session", err)
	}
	// Stale or rotated tokens being replayed fail here.
	if sess.Refresh != refreshStr {
		return nil, errors.Unauthorized()
	}
	if sess.Access != accessStr {
		return nil, errors.Unauthorized()
	}

	newAccess, err := token.NewAccessToken(AccessTokenTTL, access.Scope)
	if err != nil {
		return nil, errors.Infrastructure("failed to mint access token", err)
	}
	if err := s.sessions.RotateAccess(ctx, sess, newAccess.String()); err != nil {
		if stderrors.Is(err, domain.ErrConflict) || stderrors.Is(err, domain.ErrNotFound) {
			// Lost a rotation race or the session was revoked meanwhile.
			return nil, errors.Unauthorized()
		}
		return nil, errors.Infrastructure("failed to rotate access token", err)
	}

	metrics.TokensRefreshedTotal.Inc()
	audit.Log("AuthService", "Refresh", sess.UserID, sess.ID, "", true, nil)
	return &RefreshResult{
		AccessToken:  newAccess.String(),
		ExpiresInSec: int(AccessTokenTTL.Seconds()),
	}, nil
}

// RevokeSessions deletes the user's session records, keeping any whose
// access string is listed in exceptAccess. Used for "log out everywhere"
// and "log out everywhere else".
func (s *AuthService) RevokeSessions(ctx context.Context, userID string, exceptAccess ...string) (int64, error) {
	deleted, err := s.sessions.DeleteByUser(ctx, userID, exceptAccess...)
	if err != nil {
		return 0, errors.Infrastructure("failed to revoke sessions", err)
	}
	metrics.SessionsRevokedTotal.Add(float64(deleted))
	audit.Log("AuthService", "RevokeSessions", userID, userID, fmt.Sprintf("%d sessions deleted", deleted), true, nil)
	return deleted, nil
}

// IssueSecondaryTokens mints and persists a secondary-scope token pair
// for an already-authenticated user.
func (s *AuthService) IssueSecondaryTokens(ctx context.Context, userID string) (*TokenPair, error) {
	pair, err := s.issuePair(ctx, userID, token.ScopeWC)
	if err != nil {
		return nil, err
	}
	audit.Log("AuthService", "IssueSecondaryTokens", userID, userID, "", true, nil)
	return pair, nil
}

// issuePair mints a fresh access/refresh pair and persists its session
// record.
func (s *AuthService) issuePair(ctx context.Context, userID string, scope token.Scope) (*TokenPair, error) {
	access, err := token.NewAccessToken(AccessTokenTTL, scope)
	if err != nil {
		return nil, errors.Infrastructure("failed to mint access token", err)
	}
	refresh, err := token.NewRefreshToken(scope)
	if err != nil {
		return nil, errors.Infrastructure("failed to mint refresh token", err)
	}

	sess := &domain.Session{
		Access:  access.String(),
		Refresh: refresh.String(),
		UserID:  userID,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, errors.Infrastructure("failed to store session", err)
	}

	metrics.TokenPairsIssuedTotal.Inc()
	return &TokenPair{
		AccessToken:  sess.Access,
		RefreshToken: sess.Refresh,
		ExpiresInSec: int(AccessTokenTTL.Seconds()),
	}, nil
}
