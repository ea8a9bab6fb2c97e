package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
)

// UpstreamErrorResponse mirrors the error body returned by the commerce
// platform API. Both the envelope form {"error": {...}} and the flat form
// {"message": "..."} appear in practice, so both are handled.
type UpstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. When the body carries a server-provided
// message it is preserved verbatim, so that order-creation failures can show
// the raw platform explanation to the user. Otherwise a generic error with
// the status code and truncated body is returned.
//
// The caller should only invoke this when resp.StatusCode indicates an error.
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, operation string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", operation, resp.StatusCode, err)
	}

	var upstream UpstreamErrorResponse
	if json.Unmarshal(bodyBytes, &upstream) == nil {
		if upstream.Error != nil && upstream.Error.Message != "" {
			return mapUpstreamError(resp.StatusCode, upstream.Error.Code, upstream.Error.Message, operation)
		}
		if upstream.Message != "" {
			return mapUpstreamError(resp.StatusCode, "", upstream.Message, operation)
		}
	}

	body := strings.TrimSpace(string(bodyBytes))
	if body == "" {
		return fmt.Errorf("%s returned status %d", operation, resp.StatusCode)
	}
	return fmt.Errorf("%s returned status %d: %s", operation, resp.StatusCode, body)
}

// mapUpstreamError translates the platform's HTTP status code and error body
// into an AppError that preserves the error semantics.
func mapUpstreamError(status int, code, message, operation string) error {
	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(operation, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(message)
	case status == http.StatusConflict:
		return apperrors.Conflict(message)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case status == http.StatusUnprocessableEntity:
		return apperrors.OrderRejected(message)
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(message)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", operation, status, code, message)
	default:
		return &apperrors.AppError{
			Code:    code,
			Message: message,
			Status:  status,
		}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
