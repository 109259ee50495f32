package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
)

// Audit emits one "audit" log line for each state-changing /api call,
// recording who made it and how it ended. Reads are not audited.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isMutating(req.Method) {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = apperr.Status(err)
			}
			rid, _ := c.Get("request_id").(string)

			evt := logger.Info().
				Str("type", "audit").
				Str("request_id", rid).
				Str("method", req.Method).
				Str("route", c.Path()).
				Str("path", req.URL.Path).
				Int("status", status).
				Str("remote_ip", c.RealIP())
			// The principal is set on the request that reached the handler,
			// which is c.Request() after next returns.
			if p, ok := auth.PrincipalFromContext(c.Request().Context()); ok {
				evt = evt.Str("user_id", p.UserID).Str("role", p.Role.String())
			}
			evt.Msg("audit")

			return err
		}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
