package bloodbank

import (
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

// RegisterRoutes mounts /blood-banks. Reads are public.
func (h *Handler) RegisterRoutes(api *echo.Group, authn echo.MiddlewareFunc) {
	g := api.Group("/blood-banks")
	g.POST("", h.Create, authn, auth.RequireRole(auth.RoleAdmin))
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

func (h *Handler) Create(c echo.Context) error {
	p, err := auth.MustPrincipal(c.Request().Context())
	if err != nil {
		return err
	}
	managedBy, err := uuid.Parse(p.UserID)
	if err != nil {
		return apperr.Unauthorized("Token is not valid")
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	b, err := h.svc.Create(c.Request().Context(), managedBy, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, BankResponse{Msg: "Blood bank created successfully", BloodBank: b})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	banks, total, err := h.svc.List(c.Request().Context(), pg)
	if err != nil {
		return err
	}
	pagination.SetTotal(c, total)
	if banks == nil {
		banks = []*BloodBank{}
	}
	return c.JSON(http.StatusOK, banks)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.BadRequest("Invalid Blood Bank ID format.")
	}
	b, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}
