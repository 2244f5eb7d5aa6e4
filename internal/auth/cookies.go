package auth

import (
	"net/http"
	"time"
)

// Cookie names are part of the external contract; callers' browsers
// hold the only copy of every credential.
const (
	CookieVerify  = "verifyToken"
	CookieResend  = "resendOtpToken"
	CookieAccess  = "accessToken"
	CookieRefresh = "refreshToken"
)

func setTokenCookie(w http.ResponseWriter, name string, token Token) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token.Value,
		Path:     "/",
		MaxAge:   int(token.TTL / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// clearTokenCookie is the whole of revocation: TTLs are short enough
// that dropping the cookie is the intended invalidation mechanism.
func clearTokenCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
