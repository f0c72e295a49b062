package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError describes a failed backend call. Message holds the backend's own
// error text when the response carried one.
type APIError struct {
	Op       string
	Resource string
	Status   int
	Message  string
	Body     json.RawMessage
	Err      error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("failed to %s %s", e.Op, e.Resource)
}

func (e *APIError) Unwrap() error { return e.Err }

// Unauthorized reports whether the backend rejected the session token.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

func newAPIError(op, resource string, status int, body []byte) *APIError {
	e := &APIError{Op: op, Resource: resource, Status: status}

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		e.Body = json.RawMessage(body)
		switch {
		case parsed.Message != "":
			e.Message = parsed.Message
		case parsed.Error != "":
			e.Message = parsed.Error
		}
	}
	return e
}

// IsUnauthorized reports whether err is an APIError for a rejected token.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}
