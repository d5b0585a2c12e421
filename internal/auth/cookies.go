package auth

import (
	"net/http"
	"strings"
	"time"
)

const accessTokenCookieName = "access_token"

// SetAuthCookie stores the session token in an HttpOnly cookie for browser
// clients. Secure is only set in production so that local development over
// plain HTTP keeps working.
func SetAuthCookie(w http.ResponseWriter, token string, isProduction bool, duration time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(duration.Seconds()),
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie removes the session cookie.
func ClearAuthCookie(w http.ResponseWriter, isProduction bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetAccessTokenFromCookie reads the session token from the request cookie.
func GetAccessTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(accessTokenCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// ShouldUseCookies reports whether the client looks like a browser that
// expects cookie auth instead of tokens in the response body.
func ShouldUseCookies(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html") ||
		r.Header.Get("X-Use-Cookies") == "true"
}
