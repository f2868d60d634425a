// Package echo exposes the authentication HTTP surface.
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"go.jumpsca.re/runestone/errors"
	"go.jumpsca.re/runestone/log"
	"go.jumpsca.re/runestone/services"
)

// AuthAPI holds the handler dependencies.
type AuthAPI struct {
	auth     *services.AuthService
	accounts *services.AccountService
	logger   log.Logger
}

// NewAuthAPI initializes the authentication API.
func NewAuthAPI(auth *services.AuthService, accounts *services.AccountService, logger log.Logger) *AuthAPI {
	return &AuthAPI{
		auth:     auth,
		accounts: accounts,
		logger:   logger,
	}
}

// RegisterRoutes registers the versioned API routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/v1")

	v1.POST("/login/password", a.PasswordLoginHandler)
	v1.PUT("/login/password", a.SetPasswordHandler, a.RequireAuth)
	v1.POST("/login/email", a.EmailLoginHandler)
	v1.POST("/login/refresh", a.RefreshHandler)
	v1.GET("/me", a.MeHandler, a.RequireAuth)
	v1.POST("/wc", a.SecondaryTokenHandler, a.RequireAuth)
	v1.POST("/coupons/redeem", a.RedeemCouponHandler)
}

type passwordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordLoginHandler handles POST /v1/login/password. Credential
// failures answer 400 with one fixed message; which check failed is never
// revealed.
func (a *AuthAPI) PasswordLoginHandler(c echo.Context) error {
	var req passwordLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageBody("Invalid request body"))
	}
	if !validEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, messageBody("Invalid email address"))
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, messageBody("Password is required"))
	}

	_, pair, err := a.auth.LoginWithPassword(c.Request().Context(), normalizeEmail(req.Email), req.Password)
	if err != nil {
		if errors.IsKind(err, errors.KindUnauthorized) {
			return c.JSON(http.StatusBadRequest, messageBody("Invalid email and password combination"))
		}
		return a.writeError(c, err)
	}

	return c.JSON(http.StatusOK, loginBody("Logged in", pair))
}

type setPasswordRequest struct {
	Password              string `json:"password"`
	InvalidateSessions    bool   `json:"invalidateSessions"`
	InvalidateThisSession bool   `json:"invalidateThisSession"`
}

// SetPasswordHandler handles PUT /v1/login/password (authenticated).
func (a *AuthAPI) SetPasswordHandler(c echo.Context) error {
	var req setPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageBody("Invalid request body"))
	}
	if !validPassword(req.Password) {
		return c.JSON(http.StatusBadRequest, messageBody(
			"Password must be at least 8 characters with two uppercase, three lowercase, two digits and a special character"))
	}

	user := CurrentUser(c)
	access := CurrentAccessToken(c)
	err := a.auth.SetPassword(c.Request().Context(), user, req.Password,
		req.InvalidateSessions, req.InvalidateThisSession, access)
	if err != nil {
		return a.writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageBody("Password set"))
}

type emailLoginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// EmailLoginHandler handles POST /v1/login/email. Without a code it
// issues one by email; with a code it redeems it for a token pair.
func (a *AuthAPI) EmailLoginHandler(c echo.Context) error {
	var req emailLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageBody("Invalid request body"))
	}
	if !validEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, messageBody("Invalid email address"))
	}
	ctx := c.Request().Context()

	if req.Code == "" {
		if err := a.auth.RequestLoginCode(ctx, normalizeEmail(req.Email)); err != nil {
			return a.writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"message":      "Email sent",
			"expiresInSec": int(services.LoginCodeTTL.Seconds()),
		})
	}

	if len(req.Code) != loginCodeLength {
		return c.JSON(http.StatusBadRequest, messageBody("Invalid code format"))
	}
	_, pair, err := a.auth.RedeemLoginCode(ctx, normalizeEmail(req.Email), req.Code)
	if err != nil {
		return a.writeError(c, err)
	}
	return c.JSON(http.StatusOK, loginBody("Logged in", pair))
}

type refreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshHandler handles POST /v1/login/refresh. Malformed tokens or
// tokens in the wrong slot answer 400; everything else that fails
// answers 401.
func (a *AuthAPI) RefreshHandler(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageBody("Invalid request body"))
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, messageBody("accessToken and refreshToken are required"))
	}

	result, err := a.auth.Refresh(c.Request().Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		return a.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":      "Token refreshed",
		"accessToken":  result.AccessToken,
		"expiresInSec": result.ExpiresInSec,
	})
}

// MeHandler handles GET /v1/me (authenticated).
func (a *AuthAPI) MeHandler(c echo.Context) error {
	user := CurrentUser(c)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Successfully authenticated",
		"user":    user.Safe(),
	})
}

// SecondaryTokenHandler handles POST /v1/wc (authenticated): mints a
// token pair for the secondary service.
func (a *AuthAPI) SecondaryTokenHandler(c echo.Context) error {
	user := CurrentUser(c)
	pair, err := a.auth.IssueSecondaryTokens(c.Request().Context(), user.ID)
	if err != nil {
		return a.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, loginBody("Token created", pair))
}

type redeemCouponRequest struct {
	Code        string `json:"code"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Pronouns    string `json:"pronouns"`
}

// RedeemCouponHandler handles POST /v1/coupons/redeem.
func (a *AuthAPI) RedeemCouponHandler(c echo.Context) error {
	var req redeemCouponRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageBody("Invalid request body"))
	}
	if req.Code == "" {
		return c.JSON(http.StatusBadRequest, messageBody("Coupon code is required"))
	}
	if !validEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, messageBody("Invalid email address"))
	}
	if req.DisplayName == "" {
		return c.JSON(http.StatusBadRequest, messageBody("Display name is required"))
	}
	if !validPronouns(req.Pronouns) {
		return c.JSON(http.StatusBadRequest, messageBody("Invalid pronouns format"))
	}

	user, err := a.accounts.RedeemCoupon(c.Request().Context(), req.Code, normalizeEmail(req.Email), req.DisplayName, req.Pronouns)
	if err != nil {
		return a.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Account created",
		"user":    user.Safe(),
	})
}

// writeError maps error kinds to responses. Unauthorized responses carry
// one fixed message regardless of cause; infrastructure detail stays in
// the server log.
func (a *AuthAPI) writeError(c echo.Context, err error) error {
	switch errors.KindOf(err) {
	case errors.KindMalformed:
		return c.JSON(http.StatusBadRequest, messageBody(err.Error()))
	case errors.KindUnauthorized:
		return c.JSON(http.StatusUnauthorized, messageBody("Invalid token"))
	default:
		a.logger.Error(c.Request().Context(), "Internal error handling request", err, map[string]interface{}{
			"path": c.Path(),
		})
		return c.JSON(http.StatusInternalServerError, messageBody("Internal server error"))
	}
}

func messageBody(msg string) map[string]interface{} {
	return map[string]interface{}{"message": msg}
}

func loginBody(msg string, pair *services.TokenPair) map[string]interface{} {
	return map[string]interface{}{
		"message":      msg,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"expiresInSec": pair.ExpiresInSec,
	}
}
