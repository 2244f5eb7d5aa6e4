package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbox/internal/observability"
)

func newTestHandler(t *testing.T) (*Handler, *fakeStore, *fakeNotifier, *fakeVerifier) {
	t.Helper()

	store := newFakeStore()
	notifier := &fakeNotifier{}
	verifier := &fakeVerifier{identity: ExternalIdentity{Email: "g@example.com", Name: "G User"}}

	service := NewService(
		store,
		NewTokenService(testTokenConfig()),
		NewOTPManager(5*time.Minute, time.Hour),
		notifier,
		verifier,
		observability.NewLoggerTo(io.Discard),
	)

	return NewHandler(service), store, notifier, verifier
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      json.RawMessage `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func postJSON(path, body string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func hasCookie(rec *httptest.ResponseRecorder, name string) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return true
		}
	}
	return false
}

const registerBody = `{"name":"Jane","email":"jane@example.com","password":"Str0ng!Pass","confirmPassword":"Str0ng!Pass"}`

func TestRegisterHandlerSetsChallengeCookies(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, postJSON("/api/v1/auth/signup", registerBody))

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.Equal(t, "Registration successful. Verify your account via OTP.", env.Message)

	verify := findCookie(t, rec, CookieVerify)
	assert.True(t, verify.HttpOnly)
	assert.Positive(t, verify.MaxAge)
	findCookie(t, rec, CookieResend)
}

func TestRegisterHandlerValidationEnvelope(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, postJSON("/api/v1/auth/signup", `{"name":"a","email":"bad","password":"short","confirmPassword":"other"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "signup_zod_validation_error", env.Message)

	var fields []map[string]string
	require.NoError(t, json.Unmarshal(env.Error, &fields))
	require.NotEmpty(t, fields)
	assert.Equal(t, "name", fields[0]["field"])
	assert.Equal(t, "Name must be at least 2 characters long.", fields[0]["message"])
}

func TestRegisterHandlerDuplicateEmail(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, postJSON("/api/v1/auth/signup", registerBody))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handler.Register(rec, postJSON("/api/v1/auth/signup", registerBody))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already registered. Use another email or login.", decodeEnvelope(t, rec).Message)
}

func TestLoginHandlerUnknownUser(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Login(rec, postJSON("/api/v1/auth/login", `{"email":"nobody@example.com","password":"Str0ng!Pass"}`))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found. Sign up first.", decodeEnvelope(t, rec).Message)
}

func TestLoginHandlerWrongPassword(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, postJSON("/api/v1/auth/signup", registerBody))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handler.Login(rec, postJSON("/api/v1/auth/login", `{"email":"jane@example.com","password":"Wr0ng!Pass1"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email or password.", decodeEnvelope(t, rec).Message)
}

func TestVerifyAccountHandlerSignupFlow(t *testing.T) {
	handler, _, notifier, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, postJSON("/api/v1/auth/signup", registerBody))
	require.Equal(t, http.StatusCreated, rec.Code)

	verify := findCookie(t, rec, CookieVerify)
	code := notifier.lastCode(t)

	rec = httptest.NewRecorder()
	handler.VerifyAccount(rec, postJSON("/api/v1/auth/verify-account",
		`{"otp":"`+code+`","otpType":"signup"}`, verify))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Account verified successfully. Login now.", env.Message)
	assert.JSONEq(t, `{"verifyFrom":"signup"}`, string(env.Data))

	// Challenge cookies are cleared, no session is minted for signup.
	assert.Empty(t, findCookie(t, rec, CookieVerify).Value)
	assert.Empty(t, findCookie(t, rec, CookieResend).Value)
	assert.False(t, hasCookie(rec, CookieAccess))
	assert.False(t, hasCookie(rec, CookieRefresh))
}

func TestVerifyAccountHandlerLoginFlowSetsSession(t *testing.T) {
	handler, _, notifier, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, postJSON("/api/v1/auth/signup", registerBody))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handler.Login(rec, postJSON("/api/v1/auth/login", `{"email":"jane@example.com","password":"Str0ng!Pass"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OTP sent to your email. Verify to continue.", decodeEnvelope(t, rec).Message)

	verify := findCookie(t, rec, CookieVerify)
	code := notifier.lastCode(t)

	rec = httptest.NewRecorder()
	handler.VerifyAccount(rec, postJSON("/api/v1/auth/verify-account",
		`{"otp":"`+code+`","otpType":"login"}`, verify))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Account verified successfully. You are now logged in.", env.Message)
	assert.JSONEq(t, `{"verifyFrom":"login"}`, string(env.Data))
	assert.NotEmpty(t, findCookie(t, rec, CookieAccess).Value)
	assert.NotEmpty(t, findCookie(t, rec, CookieRefresh).Value)
}

func TestVerifyAccountHandlerRejectsUnknownPurpose(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.VerifyAccount(rec, postJSON("/api/v1/auth/verify-account", `{"otp":"123456","otpType":"password-reset"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong.", decodeEnvelope(t, rec).Message)
}

func TestVerifyAccountHandlerMissingToken(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.VerifyAccount(rec, postJSON("/api/v1/auth/verify-account", `{"otp":"123456","otpType":"signup"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired OTP verification token. Resend OTP.", decodeEnvelope(t, rec).Message)
}

func TestVerifyAccountHandlerWrongCode(t *testing.T) {
	handler, _, notifier, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, postJSON("/api/v1/auth/signup", registerBody))
	require.Equal(t, http.StatusCreated, rec.Code)

	verify := findCookie(t, rec, CookieVerify)
	code := notifier.lastCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	rec = httptest.NewRecorder()
	handler.VerifyAccount(rec, postJSON("/api/v1/auth/verify-account",
		`{"otp":"`+wrong+`","otpType":"signup"}`, verify))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid OTP. Try again.", decodeEnvelope(t, rec).Message)
}

func TestResendHandlerTooSoon(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, postJSON("/api/v1/auth/signup", registerBody))
	require.Equal(t, http.StatusCreated, rec.Code)

	resend := findCookie(t, rec, CookieResend)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/resend-otp", nil)
	req.AddCookie(resend)
	handler.ResendOTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, strings.HasPrefix(env.Message, "Please wait "))
	assert.True(t, strings.HasSuffix(env.Message, "before requesting a new OTP."))
}

func TestResendHandlerMissingToken(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ResendOTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/resend-otp", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired OTP verification token. Sign up again.", decodeEnvelope(t, rec).Message)
}

func TestLogoutClearsSessionCookies(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, findCookie(t, rec, CookieAccess).Value)
	assert.Empty(t, findCookie(t, rec, CookieRefresh).Value)
}

func TestOTPExpireTimeAuthenticatedCallerGetsNull(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/otp-expire-time", nil)
	req.AddCookie(&http.Cookie{Name: CookieAccess, Value: "anything"})
	handler.OTPExpireTime(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "OTP expire time.", env.Message)
	assert.Equal(t, "null", string(env.Data))
}

func TestGoogleLoginHandlerMissingToken(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.GoogleLogin(rec, postJSON("/api/v1/auth/google", `{"token":""}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Google login data is missing. Please try again.", decodeEnvelope(t, rec).Message)
}

func TestGoogleLoginHandlerSuccess(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.GoogleLogin(rec, postJSON("/api/v1/auth/google", `{"token":"assertion"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged in successfully.", decodeEnvelope(t, rec).Message)
	assert.NotEmpty(t, findCookie(t, rec, CookieAccess).Value)
	assert.NotEmpty(t, findCookie(t, rec, CookieRefresh).Value)
}

func TestResetPasswordHandlerIssuesNoSession(t *testing.T) {
	handler, _, notifier, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, postJSON("/api/v1/auth/signup", registerBody))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handler.ForgotPassword(rec, postJSON("/api/v1/auth/forgot-password-email-submit", `{"email":"jane@example.com"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OTP sent to your email address.", decodeEnvelope(t, rec).Message)

	verify := findCookie(t, rec, CookieVerify)
	code := notifier.lastCode(t)

	rec = httptest.NewRecorder()
	handler.ResetPassword(rec, postJSON("/api/v1/auth/reset-password",
		`{"otp":"`+code+`","password":"N3w!Password","confirmPassword":"N3w!Password"}`, verify))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password reset successfully. You can now log in.", decodeEnvelope(t, rec).Message)
	assert.False(t, hasCookie(rec, CookieAccess))
	assert.False(t, hasCookie(rec, CookieRefresh))
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d     time.Duration
		clock string
		unit  string
	}{
		{59 * time.Minute, "00:59:00", "minutes"},
		{time.Hour, "01:00:00", "hour"},
		{2*time.Hour + 30*time.Minute, "02:30:00", "hours"},
		{time.Minute, "00:01:00", "minute"},
		{45 * time.Second, "00:00:45", "seconds"},
		{-time.Minute, "00:00:00", "second"},
	}

	for _, tt := range tests {
		clock, unit := formatClock(tt.d)
		assert.Equal(t, tt.clock, clock, tt.d)
		assert.Equal(t, tt.unit, unit, tt.d)
	}
}

func TestFormatWait(t *testing.T) {
	tests := []struct {
		d    time.Duration
		wait string
		unit string
	}{
		{5 * time.Minute, "05:00", "minutes"},
		{time.Minute, "01:00", "minute"},
		{30 * time.Second, "00:30", "seconds"},
		{time.Second, "00:01", "second"},
		{-time.Second, "00:00", "minutes"},
	}

	for _, tt := range tests {
		wait, unit := formatWait(tt.d)
		assert.Equal(t, tt.wait, wait, tt.d)
		assert.Equal(t, tt.unit, unit, tt.d)
	}
}
