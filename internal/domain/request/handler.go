package request

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
	g := api.Group("/blood-requests", authn)
	g.POST("", h.Create, auth.RequireRole(auth.Requesters...))
	g.GET("", h.ListAll, auth.RequireRole(auth.Reviewers...))
	g.GET("/my", h.ListMine, auth.RequireRole(auth.Requesters...))
	g.GET("/:id", h.Get)
	g.PUT("/:id/status", h.UpdateStatus, auth.RequireRole(auth.Reviewers...))
	g.PUT("/:id/fulfill", h.Fulfill, auth.RequireRole(auth.InventoryWriters...))
}

func (h *Handler) Create(c echo.Context) error {
	p, err := auth.MustPrincipal(c.Request().Context())
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	r, err := h.svc.Create(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, RequestResponse{Msg: "Blood request created successfully", Request: r})
}

func (h *Handler) ListAll(c echo.Context) error {
	pg := pagination.FromContext(c)
	reqs, total, err := h.svc.ListAll(c.Request().Context(), pg)
	if err != nil {
		return err
	}
	return listResponse(c, reqs, total)
}

func (h *Handler) ListMine(c echo.Context) error {
	p, err := auth.MustPrincipal(c.Request().Context())
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	reqs, total, err := h.svc.ListMine(c.Request().Context(), p, pg)
	if err != nil {
		return err
	}
	return listResponse(c, reqs, total)
}

func listResponse(c echo.Context, reqs []*Request, total int) error {
	pagination.SetTotal(c, total)
	if reqs == nil {
		reqs = []*Request{}
	}
	return c.JSON(http.StatusOK, reqs)
}

func (h *Handler) Get(c echo.Context) error {
	p, err := auth.MustPrincipal(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := requestID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	var body StatusRequest
	if err := c.Bind(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	r, err := h.svc.UpdateStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RequestResponse{Msg: fmt.Sprintf("Request status updated to %s", r.Status), Request: r})
}

func (h *Handler) Fulfill(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	var body FulfillRequest
	if err := c.Bind(&body); err != nil {
		return apperr.BadRequest("Please provide an array of assignedUnitIds")
	}
	r, err := h.svc.Fulfill(c.Request().Context(), id, body.AssignedUnitIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RequestResponse{Msg: "Blood request fulfilled successfully", Request: r})
}

func requestID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.BadRequest("Invalid Blood Request ID format")
	}
	return id, nil
}
