package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Response is the error body understood by the frontend.
type Response struct {
	Msg  string `json:"msg"`
	Code string `json:"code,omitempty"`
}

// HTTPErrorHandler renders service errors and echo errors as {"msg": ...}.
// Internal and unavailable errors are logged with their cause.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

func render(err error) (int, Response) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		case nil:
		default:
			msg = fmt.Sprintf("%v", m)
		}
		return he.Code, Response{Msg: msg}
	}

	ae := From(err)
	return ae.Kind.HTTPStatus(), Response{Msg: ae.Msg, Code: ae.Kind.String()}
}

// Status is the response status HTTPErrorHandler will use for err.
func Status(err error) int {
	status, _ := render(err)
	return status
}
