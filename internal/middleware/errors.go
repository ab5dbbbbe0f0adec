package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/anvayfin/lms-backend/internal/domain"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

const errorTypeBase = "https://anvayfin.dev/errors/"

// statusFor maps a domain error kind to an HTTP status
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflictingState, domain.KindFLDGExhausted, domain.KindIdempotencyReplay:
		return http.StatusConflict
	case domain.KindBenchmarkUnavailable:
		return http.StatusUnprocessableEntity
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func titleFor(kind domain.ErrorKind) string {
	switch kind {
	case domain.KindInvalidInput:
		return "Invalid Input"
	case domain.KindNotFound:
		return "Not Found"
	case domain.KindConflictingState:
		return "Conflicting State"
	case domain.KindFLDGExhausted:
		return "Guarantee Cover Exhausted"
	case domain.KindBenchmarkUnavailable:
		return "Benchmark Unavailable"
	case domain.KindTransient:
		return "Temporarily Unavailable"
	default:
		return "Internal Server Error"
	}
}

// ErrorHandler converts errors escaping handlers into RFC 7807 problem
// responses. Domain errors map through their kind; everything else is a 500
// with the detail suppressed.
func ErrorHandler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			if c.Response().Committed {
				return err
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				detail := ""
				if msg, ok := httpErr.Message.(string); ok {
					detail = msg
				}
				return c.JSON(httpErr.Code, ProblemDetails{
					Type:     errorTypeBase + "http",
					Title:    http.StatusText(httpErr.Code),
					Status:   httpErr.Code,
					Detail:   detail,
					Instance: c.Request().URL.Path,
				})
			}

			kind := domain.KindOf(err)
			status := statusFor(kind)
			detail := err.Error()
			if status >= http.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Unhandled error")
				detail = ""
			}
			return c.JSON(status, ProblemDetails{
				Type:     errorTypeBase + string(kind),
				Title:    titleFor(kind),
				Status:   status,
				Detail:   detail,
				Instance: c.Request().URL.Path,
			})
		}
	}
}
