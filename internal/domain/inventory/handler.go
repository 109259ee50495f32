package inventory

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts /blood-units. The summary is public.
func (h *Handler) RegisterRoutes(api *echo.Group, authn echo.MiddlewareFunc) {
	g := api.Group("/blood-units")
	g.GET("/inventory-summary", h.Summary)

	writers := auth.RequireRole(auth.InventoryWriters...)
	readers := auth.RequireRole(auth.Reviewers...)
	g.POST("", h.Add, authn, writers)
	g.GET("", h.List, authn, readers)
	g.GET("/export", h.Export, authn, readers)
	g.PUT("/:id", h.Update, authn, writers)
}

func (h *Handler) Add(c echo.Context) error {
	var req AddRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	u, err := h.svc.AddUnit(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, UnitResponse{Msg: "Blood unit added successfully", BloodUnit: u})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	units, total, err := h.svc.ListUnits(c.Request().Context(), c.QueryParam("status"), c.QueryParam("bloodGroup"), pg)
	if err != nil {
		return err
	}
	pagination.SetTotal(c, total)
	if units == nil {
		units = []*Unit{}
	}
	return c.JSON(http.StatusOK, units)
}

func (h *Handler) Summary(c echo.Context) error {
	summary, err := h.svc.AvailabilitySummary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) Update(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	u, err := h.svc.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UnitResponse{Msg: "Blood unit updated successfully", BloodUnit: u})
}

func (h *Handler) Export(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.svc.Export(c.Request().Context(), c.QueryParam("status"), c.QueryParam("bloodGroup"), &buf); err != nil {
		return err
	}
	name := fmt.Sprintf("blood-units-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
