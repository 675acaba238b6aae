package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/apperr"
)

// Logger is the subset of echo.Logger the handlers use.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// errorBody is the uniform failure envelope.
type errorBody struct {
	Success bool           `json:"success"`
	Error   apperr.Kind    `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorHandler renders every error returned by a handler or middleware as
// {success:false, error, message, details?}.  Internal errors are logged
// and reach the client only as a generic message.
func ErrorHandler(log Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := renderError(err)
		if status >= http.StatusInternalServerError {
			log.Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Errorf("write error response: %v", werr)
		}
	}
}

func renderError(err error) (int, errorBody) {
	if ae, ok := apperr.As(err); ok {
		if ae.Kind == apperr.KindInternal {
			return http.StatusInternalServerError, internalBody()
		}
		return ae.Status(), errorBody{Error: ae.Kind, Message: ae.Message, Details: ae.Details}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		kind := kindForStatus(he.Code)
		if kind == apperr.KindInternal {
			return he.Code, internalBody()
		}
		return he.Code, errorBody{Error: kind, Message: lower(msg)}
	}
	return http.StatusInternalServerError, internalBody()
}

func internalBody() errorBody {
	return errorBody{Error: apperr.KindInternal, Message: "internal server error"}
}

func kindForStatus(code int) apperr.Kind {
	switch code {
	case http.StatusUnauthorized:
		return apperr.KindAuthentication
	case http.StatusForbidden:
		return apperr.KindAuthorization
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusConflict:
		return apperr.KindConflict
	}
	if code >= 500 {
		return apperr.KindInternal
	}
	return apperr.KindValidation
}

func lower(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// badRequest wraps a bind failure.
func badRequest(err error) error {
	return apperr.Validation("invalid request body", map[string]any{"body": fmt.Sprint(err)})
}
