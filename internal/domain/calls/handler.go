package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wahealthh/recall-product-backend/internal/domain/admin"
	"github.com/wahealthh/recall-product-backend/internal/domain/recall"
	"github.com/wahealthh/recall-product-backend/internal/platform/auth"
	"github.com/wahealthh/recall-product-backend/internal/platform/middleware"
	"github.com/wahealthh/recall-product-backend/internal/platform/vapi"
)

// GroupSource loads an admin's recall group with its patients.
// *recall.Service satisfies it.
type GroupSource interface {
	GetGroup(ctx context.Context, adminID, groupID string) (*recall.GroupWithPatients, error)
}

// CallStore reads and deletes single provider call records.
type CallStore interface {
	GetCall(ctx context.Context, id string) (json.RawMessage, error)
	DeleteCall(ctx context.Context, id string) error
}

type Handler struct {
	groups     GroupSource
	registry   DueSource
	dispatcher *Dispatcher
	normalizer *Normalizer
	store      CallStore
}

func NewHandler(groups GroupSource, registry DueSource, dispatcher *Dispatcher, normalizer *Normalizer, store CallStore) *Handler {
	return &Handler{
		groups:     groups,
		registry:   registry,
		dispatcher: dispatcher,
		normalizer: normalizer,
		store:      store,
	}
}

// Limits carries the per-address limiters for the throttled routes.
type Limits struct {
	DueCalls echo.MiddlewareFunc
	Demo     echo.MiddlewareFunc
}

func (h *Handler) RegisterRoutes(g *echo.Group, v auth.Verifier, limits Limits) {
	pg := g.Group("/patients")
	pg.GET("/due_patients", h.DuePatients)
	pg.POST("/call_due_patients", h.CallDuePatients, limits.DueCalls)
	pg.POST("/groups/:group_id/call", h.CallGroup, auth.RequireAdmin(v))
	pg.POST("/call_patient", h.CallPatient)
	pg.POST("/demo/call", h.DemoCall, limits.Demo)
	pg.GET("/calls", h.ListCalls)
	pg.GET("/calls/:call_id", h.GetCall)
	pg.DELETE("/calls/:call_id", h.DeleteCall)
}

// providerError relays the provider's status, falling back to 500 when the
// request never got an answer.
func providerError(err error, body map[string]interface{}) error {
	status := http.StatusInternalServerError
	var apiErr *vapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode > 0 {
			status = apiErr.StatusCode
		}
		body["error"] = apiErr.BodyString()
	} else {
		body["error"] = err.Error()
	}
	return echo.NewHTTPError(status, body)
}

func batchResponse(c echo.Context, res *BatchResult) error {
	if res.AllFailed() {
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]interface{}{
			"message": fmt.Sprintf("Failed to call all %d patients", res.FailedCount),
			"errors":  res.Errors,
		})
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DuePatients(c echo.Context) error {
	records, err := h.registry.DuePatients(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Failed to fetch due patients: "+err.Error())
	}
	return c.JSON(http.StatusOK, records)
}

// CallDuePatients batch-calls everyone the registry lists as due.
func (h *Handler) CallDuePatients(c echo.Context) error {
	ctx := c.Request().Context()
	records, err := h.registry.DuePatients(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Failed to fetch due patients: "+err.Error())
	}
	if len(records) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No due patients found")
	}

	targets, rejected := DecodeTargets(records)
	res := h.dispatcher.Dispatch(ctx, "registry", targets, c.QueryParam("call_context"))
	res.FailedCount += len(rejected)
	res.Errors = append(res.Errors, rejected...)
	return batchResponse(c, res)
}

func (h *Handler) CallGroup(c echo.Context) error {
	ctx := c.Request().Context()
	g, err := h.groups.GetGroup(ctx, auth.UserIDFromContext(ctx), c.Param("group_id"))
	switch {
	case errors.Is(err, admin.ErrPracticeNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Practice not found for this admin")
	case errors.Is(err, recall.ErrGroupNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Recall group not found or you don't have permission to access it")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(g.Patients) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Recall group has no patients")
	}

	targets := make([]Target, 0, len(g.Patients))
	for _, p := range g.Patients {
		targets = append(targets, TargetFromPatient(p))
	}
	res := h.dispatcher.Dispatch(ctx, "group", targets, c.QueryParam("call_context"))
	return batchResponse(c, res)
}

func (h *Handler) CallPatient(c echo.Context) error {
	var t Target
	if err := middleware.BindAndValidate(c, &t); err != nil {
		return err
	}
	call, err := h.dispatcher.Call(c.Request().Context(), t, c.QueryParam("call_context"))
	if err != nil {
		return providerError(err, map[string]interface{}{
			"message": "Failed to create call",
			"patient": t,
		})
	}
	return c.JSON(http.StatusOK, call)
}

func (h *Handler) DemoCall(c echo.Context) error {
	var t Target
	if err := middleware.BindAndValidate(c, &t); err != nil {
		return err
	}
	call, err := h.dispatcher.Call(c.Request().Context(), t, "")
	if err != nil {
		return providerError(err, map[string]interface{}{
			"message": "Failed to create demo call",
			"patient": t,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     fmt.Sprintf("Demo call initiated to %s at %s", t.DisplayName(), t.Number),
		"call_id":     call.ID,
		"call_status": call.Status,
		"timestamp":   time.Now().Format(time.RFC3339Nano),
	})
}

func (h *Handler) ListCalls(c echo.Context) error {
	limit := 1
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}

	history, err := h.normalizer.History(c.Request().Context(), limit)
	if errors.Is(err, ErrInvalidLimit) {
		return echo.NewHTTPError(http.StatusBadRequest, "Limit must be greater than 0")
	}
	if err != nil {
		return providerError(err, map[string]interface{}{"message": "Failed to fetch calls"})
	}
	return c.JSON(http.StatusOK, history)
}

func (h *Handler) GetCall(c echo.Context) error {
	id := c.Param("call_id")
	call, err := h.store.GetCall(c.Request().Context(), id)
	if err != nil {
		return providerError(err, map[string]interface{}{
			"message": "Failed to fetch call",
			"call_id": id,
		})
	}
	return c.JSONBlob(http.StatusOK, call)
}

func (h *Handler) DeleteCall(c echo.Context) error {
	id := c.Param("call_id")
	if err := h.store.DeleteCall(c.Request().Context(), id); err != nil {
		return providerError(err, map[string]interface{}{"message": "Failed to delete call"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Call %s deleted successfully", id),
	})
}
