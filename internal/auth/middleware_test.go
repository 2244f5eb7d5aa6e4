package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbox/internal/observability"
)

func newMiddlewareFixture(t *testing.T) (*Service, *fakeStore) {
	t.Helper()

	store := newFakeStore()
	service := NewService(
		store,
		NewTokenService(testTokenConfig()),
		NewOTPManager(5*time.Minute, time.Hour),
		&fakeNotifier{},
		&fakeVerifier{},
		observability.NewLoggerTo(io.Discard),
	)
	return service, store
}

func seedUser(t *testing.T, store *fakeStore, role string) User {
	t.Helper()
	user := User{
		ID:         "user-" + role,
		Name:       "Jane",
		Email:      role + "@example.com",
		Provider:   ProviderLocal,
		Role:       role,
		IsVerified: true,
	}
	require.NoError(t, store.Create(t.Context(), user))
	return user
}

func TestMiddlewareRejectsWithoutRefreshCookie(t *testing.T) {
	service, _ := newMiddlewareFixture(t)

	called := false
	handler := Middleware(service, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Please log in to continue.", decodeEnvelope(t, rec).Message)
}

func TestMiddlewareRejectsExpiredSession(t *testing.T) {
	service, _ := newMiddlewareFixture(t)

	handler := Middleware(service, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieAccess, Value: "bad"})
	req.AddCookie(&http.Cookie{Name: CookieRefresh, Value: "also-bad"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Session expired. Log in again.", decodeEnvelope(t, rec).Message)
}

func TestMiddlewareAttachesProfile(t *testing.T) {
	service, store := newMiddlewareFixture(t)
	user := seedUser(t, store, RoleUser)

	access, err := service.tokens.Issue(TokenAccess, user.ID, "")
	require.NoError(t, err)
	refresh, err := service.tokens.Issue(TokenRefresh, user.ID, "")
	require.NoError(t, err)

	var got Profile
	handler := Middleware(service, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		profile, ok := ProfileFrom(r.Context())
		require.True(t, ok)
		got = profile
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieAccess, Value: access.Value})
	req.AddCookie(&http.Cookie{Name: CookieRefresh, Value: refresh.Value})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.Email, got.Email)
	// A valid access token needs no renewal.
	assert.False(t, hasCookie(rec, CookieAccess))
}

func TestMiddlewareSilentlyRenewsAccessToken(t *testing.T) {
	service, store := newMiddlewareFixture(t)
	user := seedUser(t, store, RoleUser)

	refresh, err := service.tokens.Issue(TokenRefresh, user.ID, "")
	require.NoError(t, err)

	called := false
	handler := Middleware(service, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieRefresh, Value: refresh.Value})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	renewed := findCookie(t, rec, CookieAccess)
	userID, err := service.tokens.Verify(TokenAccess, renewed.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestRequireAdminGate(t *testing.T) {
	service, store := newMiddlewareFixture(t)
	regular := seedUser(t, store, RoleUser)
	admin := seedUser(t, store, RoleAdmin)

	called := false
	handler := Middleware(service, RequireAdmin(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	})))

	request := func(u User) *httptest.ResponseRecorder {
		access, err := service.tokens.Issue(TokenAccess, u.ID, "")
		require.NoError(t, err)
		refresh, err := service.tokens.Issue(TokenRefresh, u.ID, "")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/users", nil)
		req.AddCookie(&http.Cookie{Name: CookieAccess, Value: access.Value})
		req.AddCookie(&http.Cookie{Name: CookieRefresh, Value: refresh.Value})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := request(regular)
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Sorry, this action is restricted to admin users.", decodeEnvelope(t, rec).Message)

	rec = request(admin)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
