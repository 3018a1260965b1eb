package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const userKey contextKey = "auth_user"

// CookieName holds "Bearer <token>".
const CookieName = "access_token"

// Level is the capability a route demands from its caller.
type Level int

const (
	// LevelUnverified accepts any token the auth service recognizes.
	LevelUnverified Level = iota
	// LevelVerified additionally rejects users flagged is_verified=false.
	LevelVerified
	// LevelAdmin additionally requires role "admin".
	LevelAdmin
)

// Verifier is satisfied by *Client.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

func notAuthenticated(c echo.Context) error {
	c.Response().Header().Set("WWW-Authenticate", "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
}

// TokenFromRequest reads "Bearer <token>" from the access_token cookie,
// falling back to the Authorization header.
func TokenFromRequest(c echo.Context) (string, bool) {
	raw := ""
	if cookie, err := c.Cookie(CookieName); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		raw = c.Request().Header.Get(echo.HeaderAuthorization)
	}
	scheme, token, _ := strings.Cut(strings.TrimSpace(raw), " ")
	if !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Require verifies the caller's token on every request and stores the
// resulting *User in the request context.
func Require(v Verifier, level Level) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := TokenFromRequest(c)
			if !ok {
				return notAuthenticated(c)
			}

			user, err := v.Verify(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, ErrInvalidToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Failed to verify token: "+err.Error())
			}

			if level >= LevelVerified && user.Verified != nil && !*user.Verified {
				return echo.NewHTTPError(http.StatusUnauthorized, "Email not verified")
			}
			if level == LevelAdmin && !user.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "User is not an admin")
			}

			c.Set(string(userKey), user)
			c.SetRequest(c.Request().WithContext(ContextWithUser(c.Request().Context(), user)))
			return next(c)
		}
	}
}

func RequireUnverified(v Verifier) echo.MiddlewareFunc { return Require(v, LevelUnverified) }
func RequireUser(v Verifier) echo.MiddlewareFunc       { return Require(v, LevelVerified) }
func RequireAdmin(v Verifier) echo.MiddlewareFunc      { return Require(v, LevelAdmin) }

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userKey).(*User)
	return u
}

func UserIDFromContext(ctx context.Context) string {
	if u := UserFromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}
