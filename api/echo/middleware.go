package echo

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"go.jumpsca.re/runestone/domain"
)

const (
	userContextKey    = "auth.user"
	sessionContextKey = "auth.session"
	accessContextKey  = "auth.access"

	refreshTokenHeader = "X-Refresh-Token"
)

// RequireAuth authenticates the request from its bearer access token and
// stores the user and session on the echo context. Validation is
// read-only; an expired access token fails here and must go through the
// refresh endpoint.
func (a *AuthAPI) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		accessStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || accessStr == "" {
			return c.JSON(http.StatusUnauthorized, messageBody("Missing bearer token"))
		}

		sess, user, err := a.auth.ValidateAccess(c.Request().Context(), accessStr)
		if err != nil {
			return a.writeError(c, err)
		}
		// Clients that also present their refresh token get it checked
		// against the session; a mismatched pair never authenticates.
		if refreshStr := c.Request().Header.Get(refreshTokenHeader); refreshStr != "" && refreshStr != sess.Refresh {
			return c.JSON(http.StatusUnauthorized, messageBody("Invalid token"))
		}

		c.Set(userContextKey, user)
		c.Set(sessionContextKey, sess)
		c.Set(accessContextKey, accessStr)
		return next(c)
	}
}

// CurrentUser returns the authenticated user set by RequireAuth.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(userContextKey).(*domain.User)
	return user
}

// CurrentSession returns the authenticated session set by RequireAuth.
func CurrentSession(c echo.Context) *domain.Session {
	sess, _ := c.Get(sessionContextKey).(*domain.Session)
	return sess
}

// CurrentAccessToken returns the presented access token string set by
// RequireAuth.
func CurrentAccessToken(c echo.Context) string {
	access, _ := c.Get(accessContextKey).(string)
	return access
}
