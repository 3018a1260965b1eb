package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	mailer *Mailer
}

func NewHandler(mailer *Mailer) *Handler {
	return &Handler{mailer: mailer}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/confirmation_email", h.SendConfirmation)
}

// confirmationRequest accepts the appointment fields either at the top
// level or wrapped in "appointment_data".
type confirmationRequest struct {
	Wrapped *AppointmentData `json:"appointment_data"`
	AppointmentData
}

func (h *Handler) SendConfirmation(c echo.Context) error {
	var req confirmationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	data := req.AppointmentData
	if req.Wrapped != nil {
		data = *req.Wrapped
	}
	if c.Echo().Validator != nil {
		if err := c.Validate(&data); err != nil {
			return err
		}
	}

	status, err := h.mailer.SendConfirmation(c.Request().Context(), data)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Error sending mail: "+err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"status":      "success",
		"message":     "Email sent successfully",
		"status_code": status,
	})
}
