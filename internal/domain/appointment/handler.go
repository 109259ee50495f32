package appointment

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, authn echo.MiddlewareFunc) {
	g := api.Group("/appointments", authn)
	g.POST("", h.Book, auth.RequireRole(auth.RoleDonor))
	g.GET("/my", h.ListMine, auth.RequireRole(auth.RoleDonor))
	g.GET("", h.ListAll, auth.RequireRole(auth.Reviewers...))
	g.PUT("/:id/status", h.UpdateStatus, auth.RequireRole(auth.Reviewers...))
}

func (h *Handler) Book(c echo.Context) error {
	p, err := auth.MustPrincipal(c.Request().Context())
	if err != nil {
		return err
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	a, err := h.svc.Book(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, AppointmentResponse{Msg: "Appointment booked successfully", Appointment: a})
}

func (h *Handler) ListMine(c echo.Context) error {
	p, err := auth.MustPrincipal(c.Request().Context())
	if err != nil {
		return err
	}
	appts, total, err := h.svc.ListMine(c.Request().Context(), p, pagination.FromContext(c))
	if err != nil {
		return err
	}
	return listResponse(c, appts, total)
}

func (h *Handler) ListAll(c echo.Context) error {
	appts, total, err := h.svc.ListAll(c.Request().Context(), pagination.FromContext(c))
	if err != nil {
		return err
	}
	return listResponse(c, appts, total)
}

func listResponse(c echo.Context, appts []*Appointment, total int) error {
	pagination.SetTotal(c, total)
	if appts == nil {
		appts = []*Appointment{}
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.BadRequest("Invalid Appointment ID format")
	}
	var body StatusRequest
	if err := c.Bind(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AppointmentResponse{Msg: fmt.Sprintf("Appointment status updated to %s", a.Status), Appointment: a})
}
