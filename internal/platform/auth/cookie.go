package auth

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// tokenExpiry reads the exp claim without checking the signature; the auth
// service owns the key. The zero time is returned when there is none.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// SetTokenCookie stores the access token the way TokenFromRequest reads it.
func SetTokenCookie(c echo.Context, token string, secure bool) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    "Bearer " + token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if exp := tokenExpiry(token); !exp.IsZero() {
		cookie.Expires = exp
		cookie.MaxAge = int(time.Until(exp).Seconds())
		if cookie.MaxAge <= 0 {
			cookie.MaxAge = -1
		}
	}
	c.SetCookie(cookie)
}
