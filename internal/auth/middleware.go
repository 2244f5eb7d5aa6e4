package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	"taskbox/internal/web"
)

type profileKey struct{}

// Middleware authenticates a request from its access/refresh cookies,
// silently renewing the access token when only the refresh token is
// still valid, and attaches the sanitized identity to the context.
func Middleware(service *Service, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access := cookieValue(r, CookieAccess)
		refresh := cookieValue(r, CookieRefresh)

		profile, renewed, err := service.Authenticate(r.Context(), access, refresh)
		if err != nil {
			switch {
			case errors.Is(err, ErrSessionRequired):
				web.Error(w, http.StatusForbidden, "Please log in to continue.")
			case errors.Is(err, ErrSessionExpired):
				web.Error(w, http.StatusUnauthorized, "Session expired. Log in again.")
			case errors.Is(err, ErrUserNotFound):
				web.Error(w, http.StatusNotFound, "User not found.")
			default:
				sentry.CaptureException(err)
				web.Error(w, http.StatusInternalServerError, "Internal server error.")
			}
			return
		}

		if renewed != nil {
			setTokenCookie(w, CookieAccess, *renewed)
		}

		ctx := context.WithValue(r.Context(), profileKey{}, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin layers a role check on an already-authenticated request.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, ok := ProfileFrom(r.Context())
		if !ok {
			web.Error(w, http.StatusUnauthorized, "Unauthorized. No user found.")
			return
		}
		if profile.Role != RoleAdmin {
			web.Error(w, http.StatusForbidden, "Sorry, this action is restricted to admin users.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ProfileFrom returns the authenticated identity attached by
// Middleware. This is the lookup contract downstream packages consume.
func ProfileFrom(ctx context.Context) (Profile, bool) {
	profile, ok := ctx.Value(profileKey{}).(Profile)
	return profile, ok
}
