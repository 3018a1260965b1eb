package recall

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wahealthh/recall-product-backend/internal/domain/admin"
	"github.com/wahealthh/recall-product-backend/internal/platform/auth"
	"github.com/wahealthh/recall-product-backend/internal/platform/middleware"
)

const (
	msgGroupNotFound   = "Recall group not found or you don't have permission to access it"
	msgPracticeMissing = "Practice not found for this admin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group, v auth.Verifier) {
	rg := g.Group("/recall", auth.RequireAdmin(v))
	rg.POST("/groups", h.CreateGroup)
	rg.GET("/groups", h.ListGroups)
	rg.GET("/groups/:id", h.GetGroup)
	rg.DELETE("/groups/:id", h.DeleteGroup)
	rg.POST("/groups/:id/patients", h.AddPatients)
	rg.POST("/groups/:id/patient", h.AddPatient)
	rg.POST("/groups/:id/import-csv", h.ImportCSV)
	rg.DELETE("/patients/:id", h.DeletePatient)
}

// lookupError maps practice and group misses shared by every group route.
func lookupError(err error) error {
	switch {
	case errors.Is(err, admin.ErrPracticeNotFound):
		return echo.NewHTTPError(http.StatusNotFound, msgPracticeMissing)
	case errors.Is(err, ErrGroupNotFound):
		return echo.NewHTTPError(http.StatusNotFound, msgGroupNotFound)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func adminID(c echo.Context) string {
	return auth.UserIDFromContext(c.Request().Context())
}

func (h *Handler) CreateGroup(c echo.Context) error {
	var req CreateGroupRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	g, err := h.svc.CreateGroup(c.Request().Context(), adminID(c), req)
	if errors.Is(err, admin.ErrPracticeNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Practice not found or you don't have permission to access it")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create recall group: "+err.Error())
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) ListGroups(c echo.Context) error {
	groups, err := h.svc.ListGroups(c.Request().Context(), adminID(c))
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *Handler) GetGroup(c echo.Context) error {
	g, err := h.svc.GetGroup(c.Request().Context(), adminID(c), c.Param("id"))
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) DeleteGroup(c echo.Context) error {
	g, err := h.svc.DeleteGroup(c.Request().Context(), adminID(c), c.Param("id"))
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Recall group '%s' deleted successfully", g.Name),
	})
}

func (h *Handler) AddPatients(c echo.Context) error {
	var inputs []PatientInput
	if err := c.Bind(&inputs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	for i := range inputs {
		if err := c.Validate(&inputs[i]); err != nil {
			return err
		}
	}

	res, err := h.svc.AddPatients(c.Request().Context(), adminID(c), c.Param("id"), inputs)
	if err != nil {
		return lookupError(err)
	}
	if res.SuccessCount == 0 && res.FailedCount > 0 {
		return echo.NewHTTPError(http.StatusInternalServerError,
			fmt.Sprintf("Failed to add all %d patients to group", res.FailedCount))
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) AddPatient(c echo.Context) error {
	var in PatientInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	p, err := h.svc.AddPatient(c.Request().Context(), adminID(c), c.Param("id"), in)
	if err != nil {
		if errors.Is(err, admin.ErrPracticeNotFound) || errors.Is(err, ErrGroupNotFound) {
			return lookupError(err)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to add patient to group: "+err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ImportCSV(c echo.Context) error {
	var req ImportCSVRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.svc.ImportCSV(c.Request().Context(), adminID(c), c.Param("id"), req.FileContent)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, res)
	case errors.Is(err, ErrInvalidCSV):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, admin.ErrPracticeNotFound), errors.Is(err, ErrGroupNotFound):
		return lookupError(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to import patients: "+err.Error())
	}
}

func (h *Handler) DeletePatient(c echo.Context) error {
	p, err := h.svc.DeletePatient(c.Request().Context(), adminID(c), c.Param("id"))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Patient %s deleted successfully", p.DisplayName()),
		})
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found or you don't have permission to delete it")
	case errors.Is(err, admin.ErrPracticeNotFound):
		return lookupError(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete patient: "+err.Error())
	}
}
