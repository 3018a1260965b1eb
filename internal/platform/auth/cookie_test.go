package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("unrelated-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestSetTokenCookie_UsesExpClaim(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, exp)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/admin/register", nil), rec)
	SetTokenCookie(c, token, false)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	got := cookies[0]
	if got.Name != CookieName || got.Value != "Bearer "+token {
		t.Errorf("unexpected cookie %s=%s", got.Name, got.Value)
	}
	if !got.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if !got.Expires.Equal(exp) {
		t.Errorf("expected expiry %v, got %v", exp, got.Expires)
	}

	// The cookie must round-trip through TokenFromRequest.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(got)
	tok, ok := TokenFromRequest(e.NewContext(req, httptest.NewRecorder()))
	if !ok || tok != token {
		t.Errorf("cookie did not round-trip, got %q", tok)
	}
}

func TestTokenExpiry_Opaque(t *testing.T) {
	if !tokenExpiry("not-a-jwt").IsZero() {
		t.Error("expected zero expiry for opaque token")
	}
}
