package handlers

import (
	"net/http"
	"time"

	"github.com/hongminglow/paygate/internal/auth"
)

func setSessionCookies(w http.ResponseWriter, issued auth.Issued, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessCookie,
		Value:    issued.AccessToken,
		Path:     "/",
		Expires:  issued.AccessExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     auth.RefreshCookie,
		Value:    issued.RefreshToken,
		Path:     "/",
		Expires:  issued.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookies overwrites both cookies with values that expire at once.
func clearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "none",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
