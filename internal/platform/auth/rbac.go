package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
)

const forbiddenMsg = "Forbidden: You do not have permission to perform this action"

// RequireRole lets the request through only when the caller's role is one of
// roles. There is no implicit admin override; list RoleAdmin explicitly.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok || p.Role == "" {
				return apperr.Unauthorized("Authorization denied, no user role found")
			}
			if !p.Role.In(roles...) {
				return apperr.Forbidden(forbiddenMsg)
			}
			return next(c)
		}
	}
}

// Staff roles that manage inventory and request review.
var (
	InventoryWriters = []Role{RoleStaff, RoleAdmin}
	Reviewers        = []Role{RoleStaff, RoleSupervisor, RoleAdmin}
	Requesters       = []Role{RoleHospital, RoleDoctor}
)
