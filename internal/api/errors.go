package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"contesthub/internal/validation"
)

// FieldError is one entry of the backend's validation error list.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// APIError is returned for any response with a status of 300 or above.
// The client does not tell 401 from 403 from 500 apart beyond Status;
// Message is whatever the backend chose to send.
type APIError struct {
	Status  int
	Message string
	Fields  []FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// FieldErrors returns the validation list keyed by field path. The first
// message for a path wins.
func (e *APIError) FieldErrors() validation.FieldErrors {
	if len(e.Fields) == 0 {
		return nil
	}
	out := make(validation.FieldErrors, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := out[f.Path]; !ok {
			out[f.Path] = f.Message
		}
	}
	return out
}

// Message extracts a user-facing message from err. Backend messages are
// passed through; anything else falls back to fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func decodeError(resp *http.Response, data []byte) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Message string       `json:"message"`
		Error   string       `json:"error"`
		Errors  []FieldError `json:"errors"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
		apiErr.Fields = body.Errors
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
