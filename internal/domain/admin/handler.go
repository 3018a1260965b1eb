package admin

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wahealthh/recall-product-backend/internal/platform/auth"
	"github.com/wahealthh/recall-product-backend/internal/platform/middleware"
)

type Handler struct {
	svc           *Service
	secureCookies bool
}

func NewHandler(svc *Service, secureCookies bool) *Handler {
	return &Handler{svc: svc, secureCookies: secureCookies}
}

func (h *Handler) RegisterRoutes(g *echo.Group, v auth.Verifier) {
	adminGroup := g.Group("/admin")
	adminGroup.POST("/register", h.RegisterAdmin)
	adminGroup.GET("/me", h.Me, auth.RequireAdmin(v))
	adminGroup.GET("/protected", h.Protected, auth.RequireAdmin(v))

	// A freshly registered admin has not verified their email yet.
	g.POST("/practice/register", h.RegisterPractice, auth.RequireUnverified(v))
}

func (h *Handler) RegisterAdmin(c echo.Context) error {
	var req RegisterAdminRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.svc.RegisterAdmin(c.Request().Context(), req)
	if err != nil {
		var upstream *auth.UpstreamError
		var record *AdminRecordError
		switch {
		case errors.As(err, &upstream):
			return echo.NewHTTPError(upstream.StatusCode, upstream.Body)
		case errors.As(err, &record):
			return echo.NewHTTPError(http.StatusInternalServerError, []map[string]string{
				{"msg": "Failed to create admin record: " + record.Err.Error()},
			})
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	if res.AccessToken != "" {
		auth.SetTokenCookie(c, res.AccessToken, h.secureCookies)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.UserFromContext(ctx)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	a, p, err := h.svc.Profile(ctx, user.ID)
	if errors.Is(err, ErrAdminNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Admin not found in database")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "User authenticated",
		"user":     user.Claims,
		"admin":    a,
		"practice": p,
	})
}

func (h *Handler) Protected(c echo.Context) error {
	user := auth.UserFromContext(c.Request().Context())
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "You have access to this protected endpoint",
		"user":    user.Claims,
	})
}

func (h *Handler) RegisterPractice(c echo.Context) error {
	var req CreatePracticeRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	adminID := auth.UserIDFromContext(c.Request().Context())
	p, err := h.svc.RegisterPractice(c.Request().Context(), adminID, req)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, p)
	case errors.Is(err, ErrAdminNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Admin not found in database")
	case errors.Is(err, ErrDuplicatePracticeEmail):
		return echo.NewHTTPError(http.StatusConflict, "Practice with this email already exists")
	case errors.Is(err, ErrAdminHasPractice):
		return echo.NewHTTPError(http.StatusConflict, "Admin already has a practice")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create practice: "+err.Error())
	}
}
