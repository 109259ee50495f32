package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
)

type contextKey string

const principalKey contextKey = "principal"

const (
	// TokenHeader is the header the web client sends the credential in.
	TokenHeader = "x-auth-token"

	// UserIDKey is set on the echo context for the request logger.
	UserIDKey = "user_id"
)

// Verifier turns a raw credential into a Principal.
type Verifier interface {
	Verify(token string) (Principal, error)
}

// Authenticate requires a valid credential on every request it wraps. The
// token is read from x-auth-token, falling back to "Authorization: Bearer".
func Authenticate(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := tokenFromRequest(c)
			if token == "" {
				return apperr.Unauthorized("No token, authorization denied")
			}
			p, err := v.Verify(token)
			if err != nil {
				return apperr.Unauthorized("Token is not valid")
			}

			c.Set(UserIDKey, p.UserID)
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) string {
	if t := strings.TrimSpace(c.Request().Header.Get(TokenHeader)); t != "" {
		return t
	}
	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// MustPrincipal returns the caller or an Unauthorized error for handlers
// mounted without Authenticate.
func MustPrincipal(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, apperr.Unauthorized("No token, authorization denied")
	}
	return p, nil
}
