package identity

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

// RegisterRoutes mounts the auth, profile and user endpoints. authn must
// verify credentials; limit guards the credential endpoints and may be nil.
func (h *Handler) RegisterRoutes(api *echo.Group, authn, limit echo.MiddlewareFunc) {
	var credMW []echo.MiddlewareFunc
	if limit != nil {
		credMW = append(credMW, limit)
	}
	creds := api.Group("/auth", credMW...)
	creds.POST("/register", h.Register)
	creds.POST("/login", h.Login)

	profile := api.Group("/profile", authn)
	profile.GET("/me", h.GetProfile)
	profile.PUT("/me", h.UpdateProfile)
	profile.PUT("/eligibility", h.UpdateEligibility, auth.RequireRole(auth.RoleDonor))

	users := api.Group("/users", authn)
	users.GET("", h.ListUsers, auth.RequireRole(auth.RoleAdmin, auth.RoleSupervisor, auth.RoleStaff))
	users.POST("", h.CreateUser, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	token, _, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, TokenResponse{Msg: "User registered successfully", Token: token})
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	token, _, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TokenResponse{Msg: "Logged in successfully", Token: token})
}

func (h *Handler) GetProfile(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetProfile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var upd ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), id, upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserResponse{Msg: "Profile updated successfully", User: u})
}

func (h *Handler) UpdateEligibility(c echo.Context) error {
	p, err := auth.MustPrincipal(c.Request().Context())
	if err != nil {
		return err
	}
	var req EligibilityRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	u, err := h.svc.UpdateEligibility(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserResponse{Msg: "Eligibility updated successfully", User: u})
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	users, total, err := h.svc.ListUsers(c.Request().Context(), c.QueryParam("role"), pg)
	if err != nil {
		return err
	}
	pagination.SetTotal(c, total)
	if users == nil {
		users = []*User{}
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	u, err := h.svc.CreateUser(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, UserResponse{Msg: "User created successfully", User: u})
}

func callerID(c echo.Context) (uuid.UUID, error) {
	p, err := auth.MustPrincipal(c.Request().Context())
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(p.UserID)
	if err != nil {
		return uuid.Nil, apperr.Unauthorized("Token is not valid")
	}
	return id, nil
}
