package echo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jumpsca.re/runestone/cache"
	"go.jumpsca.re/runestone/domain"
	"go.jumpsca.re/runestone/internal/auth"
	"go.jumpsca.re/runestone/internal/mail"
	"go.jumpsca.re/runestone/internal/metrics"
	"go.jumpsca.re/runestone/log"
	"go.jumpsca.re/runestone/services"
)

func TestMain(m *testing.M) {
	metrics.InitCustomMetrics(prometheus.NewRegistry())
	os.Exit(m.Run())
}

type recordingMailer struct {
	sent []*mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg *mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type apiFixture struct {
	engine  *echo.Echo
	users   *cache.UserStore
	coupons *cache.CouponStore
	mailer  *recordingMailer
	hasher  *auth.Pbkdf2PasswordHasher
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	f := &apiFixture{
		engine:  echo.New(),
		users:   cache.NewUserStore(),
		coupons: cache.NewCouponStore(),
		mailer:  &recordingMailer{},
		hasher:  auth.NewPbkdf2PasswordHasher(0),
	}
	codes := cache.NewLoginCodeStore(services.LoginCodeTTL)
	t.Cleanup(codes.Close)

	authSvc := services.NewAuthService(f.users, cache.NewSessionStore(), codes, f.hasher, f.mailer)
	accountSvc := services.NewAccountService(f.users, f.coupons)
	logger := log.NewZerologAdapter(zerolog.Disabled, false)

	NewAuthAPI(authSvc, accountSvc, logger).RegisterRoutes(f.engine)
	return f
}

func (f *apiFixture) createUser(t *testing.T, email, password string) *domain.User {
	t.Helper()

	user := &domain.User{Email: email, DisplayName: "Test User"}
	if password != "" {
		hashed, salt, err := f.hasher.Hash(password)
		require.NoError(t, err)
		user.HashedPassword = hashed
		user.Salt = salt
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *apiFixture) request(t *testing.T, method, path, body, bearer string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec.Code, decoded
}

func (f *apiFixture) login(t *testing.T, email, password string) (access, refresh string) {
	t.Helper()

	status, body := f.request(t, http.MethodPost, "/v1/login/password",
		`{"email":"`+email+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, status, "login failed: %v", body)
	return body["accessToken"].(string), body["refreshToken"].(string)
}

func TestPasswordLoginEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "alice@example.com", "S3cure!Password")

	status, body := f.request(t, http.MethodPost, "/v1/login/password",
		`{"email":"alice@example.com","password":"S3cure!Password"}`, "")
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])
	assert.Equal(t, float64(28800), body["expiresInSec"])
}

func TestPasswordLoginEndpointBadCredentials(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "alice@example.com", "S3cure!Password")

	// Wrong password and unknown email answer identically.
	for _, payload := range []string{
		`{"email":"alice@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"S3cure!Password"}`,
	} {
		status, body := f.request(t, http.MethodPost, "/v1/login/password", payload, "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid email and password combination", body["message"])
	}
}

func TestPasswordLoginEndpointRejectsBadEmail(t *testing.T) {
	f := newAPIFixture(t)

	status, _ := f.request(t, http.MethodPost, "/v1/login/password",
		`{"email":"not-an-email","password":"whatever"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSetPasswordEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "alice@example.com", "S3cure!Password")
	access, _ := f.login(t, "alice@example.com", "S3cure!Password")

	status, _ := f.request(t, http.MethodPut, "/v1/login/password",
		`{"password":"NEwpass!42"}`, access)
	assert.Equal(t, http.StatusOK, status)

	// The new password works, the old one no longer does.
	status, _ = f.request(t, http.MethodPost, "/v1/login/password",
		`{"email":"alice@example.com","password":"NEwpass!42"}`, "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = f.request(t, http.MethodPost, "/v1/login/password",
		`{"email":"alice@example.com","password":"S3cure!Password"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSetPasswordEndpointRejectsWeakPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "alice@example.com", "S3cure!Password")
	access, _ := f.login(t, "alice@example.com", "S3cure!Password")

	for _, weak := range []string{"short", "alllowercase11!", "NOLOWER11!", "NOdigits!!abc"} {
		status, _ := f.request(t, http.MethodPut, "/v1/login/password",
			`{"password":"`+weak+`"}`, access)
		assert.Equal(t, http.StatusBadRequest, status, "password %q should be rejected", weak)
	}
}

func TestSetPasswordEndpointRequiresAuth(t *testing.T) {
	f := newAPIFixture(t)

	status, _ := f.request(t, http.MethodPut, "/v1/login/password",
		`{"password":"NEwpass!42"}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestEmailLoginEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "alice@example.com", "")

	status, body := f.request(t, http.MethodPost, "/v1/login/email",
		`{"email":"alice@example.com"}`, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Email sent", body["message"])
	assert.Equal(t, float64(900), body["expiresInSec"])
	require.Len(t, f.mailer.sent, 1)

	code := f.mailer.sent[0].BodyPlain
	status, body = f.request(t, http.MethodPost, "/v1/login/email",
		`{"email":"alice@example.com","code":"`+code+`"}`, "")
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])
}

func TestEmailLoginEndpointRejectsBadCode(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "alice@example.com", "")

	status, _ := f.request(t, http.MethodPost, "/v1/login/email",
		`{"email":"alice@example.com","code":"short"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.request(t, http.MethodPost, "/v1/login/email",
		`{"email":"alice@example.com","code":"00000000"}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "alice@example.com", "S3cure!Password")
	access, refresh := f.login(t, "alice@example.com", "S3cure!Password")

	status, body := f.request(t, http.MethodPost, "/v1/login/refresh",
		`{"accessToken":"`+access+`","refreshToken":"`+refresh+`"}`, "")
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, access, body["accessToken"])
	assert.Equal(t, float64(28800), body["expiresInSec"])
}

func TestRefreshEndpointErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "alice@example.com", "S3cure!Password")
	access, refresh := f.login(t, "alice@example.com", "S3cure!Password")

	// Structurally broken input is a client error.
	status, _ := f.request(t, http.MethodPost, "/v1/login/refresh",
		`{"accessToken":"garbage!","refreshToken":"`+refresh+`"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)

	// Swapped slots are a client error too.
	status, _ = f.request(t, http.MethodPost, "/v1/login/refresh",
		`{"accessToken":"`+refresh+`","refreshToken":"`+access+`"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.request(t, http.MethodPost, "/v1/login/refresh", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRefreshEndpointUnknownPair(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "alice@example.com", "S3cure!Password")
	access, refresh := f.login(t, "alice@example.com", "S3cure!Password")

	// Refresh once, then replay the stale pair.
	status, _ := f.request(t, http.MethodPost, "/v1/login/refresh",
		`{"accessToken":"`+access+`","refreshToken":"`+refresh+`"}`, "")
	require.Equal(t, http.StatusOK, status)

	status, body := f.request(t, http.MethodPost, "/v1/login/refresh",
		`{"accessToken":"`+access+`","refreshToken":"`+refresh+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token", body["message"])
}

func TestMeEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	user := f.createUser(t, "alice@example.com", "S3cure!Password")
	access, _ := f.login(t, "alice@example.com", "S3cure!Password")

	status, body := f.request(t, http.MethodGet, "/v1/me", "", access)
	require.Equal(t, http.StatusOK, status)

	payload, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, user.ID, payload["id"])
	assert.Equal(t, "alice@example.com", payload["email"])
	// Credential material never leaves the server.
	assert.NotContains(t, payload, "hashed_password")
	assert.NotContains(t, payload, "salt")
}

func TestMeEndpointAuthFailures(t *testing.T) {
	f := newAPIFixture(t)

	status, _ := f.request(t, http.MethodGet, "/v1/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	// Malformed bearer tokens are a client error, not a failed login.
	status, _ = f.request(t, http.MethodGet, "/v1/me", "", "garbage!")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSecondaryTokenEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "alice@example.com", "S3cure!Password")
	access, _ := f.login(t, "alice@example.com", "S3cure!Password")

	status, body := f.request(t, http.MethodPost, "/v1/wc", "", access)
	assert.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])
	assert.NotEqual(t, access, body["accessToken"])
}

func TestCouponRedeemEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.coupons.Create(context.Background(), &domain.Coupon{Code: "WELCOME"}))

	status, body := f.request(t, http.MethodPost, "/v1/coupons/redeem",
		`{"code":"WELCOME","email":"alice@example.com","displayName":"Alice"}`, "")
	require.Equal(t, http.StatusCreated, status)

	payload, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", payload["email"])

	status, _ = f.request(t, http.MethodPost, "/v1/coupons/redeem",
		`{"code":"NOPE","email":"bob@example.com","displayName":"Bob"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCouponRedeemEndpointPronouns(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.coupons.Create(context.Background(), &domain.Coupon{Code: "WELCOME"}))

	status, _ := f.request(t, http.MethodPost, "/v1/coupons/redeem",
		`{"code":"WELCOME","email":"alice@example.com","displayName":"Alice","pronouns":"broken"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := f.request(t, http.MethodPost, "/v1/coupons/redeem",
		`{"code":"WELCOME","email":"alice@example.com","displayName":"Alice","pronouns":"they/them"}`, "")
	require.Equal(t, http.StatusCreated, status)
	payload := body["user"].(map[string]interface{})
	assert.Equal(t, "they/them", payload["pronouns"])
}

func TestRefreshHeaderCrossCheck(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "alice@example.com", "S3cure!Password")
	access, refresh := f.login(t, "alice@example.com", "S3cure!Password")

	withHeader := func(refreshValue string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
		req.Header.Set("X-Refresh-Token", refreshValue)
		rec := httptest.NewRecorder()
		f.engine.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, withHeader(refresh))
	// A refresh token from another session must not pair with this access
	// token.
	assert.Equal(t, http.StatusUnauthorized, withHeader(refresh+"tampered"))
}
