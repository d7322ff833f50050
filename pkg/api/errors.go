package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/newsdesk-ai/newsdesk/pkg/rss"
	"github.com/newsdesk-ai/newsdesk/pkg/services"
	"github.com/newsdesk-ai/newsdesk/pkg/upload"
)

// jsonHTTPError carries a structured JSON body. echo v5's NewHTTPError only
// accepts a string message, but its default error handler serializes errors
// implementing HTTPStatusCoder and json.Marshaler verbatim, so this type
// keeps the map payloads (field, request_id) intact on the wire.
type jsonHTTPError struct {
	code int
	body map[string]any
}

func (e *jsonHTTPError) StatusCode() int { return e.code }

func (e *jsonHTTPError) Error() string {
	return fmt.Sprintf("code=%d, message=%v", e.code, e.body["message"])
}

func (e *jsonHTTPError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.body)
}

// requestIDFrom returns the request id the middleware stamped on the
// response, so error payloads can reference it.
func requestIDFrom(c *echo.Context) string {
	return c.Response().Header().Get(requestIDHeader)
}

// validationError builds a 422 response for an invalid request body, with
// the offending field (when known) and the request id.
func validationError(c *echo.Context, field, message string) error {
	body := map[string]any{
		"message":    message,
		"request_id": requestIDFrom(c),
	}
	if field != "" {
		body["field"] = field
	}
	return &jsonHTTPError{code: http.StatusUnprocessableEntity, body: body}
}

// bindError maps a body bind failure to a 422 response.
func bindError(c *echo.Context, err error) error {
	return validationError(c, "", "malformed request body: "+err.Error())
}

// mapServiceError maps service-layer errors to HTTP error responses.
// Validation failures come back as 422 with field details; anything
// unexpected becomes an opaque 500. Both carry the request id.
func mapServiceError(c *echo.Context, err error) error {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return validationError(c, validErr.Field, validErr.Message)
	}
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err, "request_id", requestIDFrom(c))
	return &jsonHTTPError{code: http.StatusInternalServerError, body: map[string]any{
		"message":    "internal server error",
		"request_id": requestIDFrom(c),
	}}
}

// mapUploadError maps upload store errors to HTTP error responses.
func mapUploadError(c *echo.Context, err error) error {
	if errors.Is(err, upload.ErrDisallowedExtension) {
		return echo.NewHTTPError(http.StatusBadRequest, "file type is not allowed")
	}
	if errors.Is(err, upload.ErrTooLarge) {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds the size limit")
	}
	if errors.Is(err, upload.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}

	slog.Error("Unexpected upload error", "error", err, "request_id", requestIDFrom(c))
	return &jsonHTTPError{code: http.StatusInternalServerError, body: map[string]any{
		"message":    "internal server error",
		"request_id": requestIDFrom(c),
	}}
}

// mapRSSError maps news cache errors to HTTP error responses.
func mapRSSError(c *echo.Context, err error) error {
	if errors.Is(err, rss.ErrGenerateTimeout) {
		return echo.NewHTTPError(http.StatusGatewayTimeout, "rss cache generation timed out")
	}

	slog.Error("Unexpected rss error", "error", err, "request_id", requestIDFrom(c))
	return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate rss cache")
}
