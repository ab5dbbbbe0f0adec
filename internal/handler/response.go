package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const errorTypeValidation = "https://anvayfin.dev/errors/invalid-input"

// dateLayout is the wire format for business dates
const dateLayout = "2006-01-02"

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     errorTypeValidation,
		Title:    "Invalid Input",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// parseIDParam parses a numeric path parameter
func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, NewValidationError(c, "Invalid "+name+" parameter", nil)
	}
	return id, nil
}

// parseDate parses a YYYY-MM-DD string from a request field
func parseDate(value string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, value)
	return t, err == nil
}

// parseAmount parses a string-encoded decimal from a request field
func parseAmount(value string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(value)
	return d, err == nil
}

// parseOptionalAmount parses an optional string-encoded decimal
func parseOptionalAmount(value *string) (*decimal.Decimal, bool) {
	if value == nil || *value == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(*value)
	if err != nil {
		return nil, false
	}
	return &d, true
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}
