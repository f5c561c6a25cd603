// ABOUTME: Typed API error and backend error-body decoding
// ABOUTME: Understands FastAPI-style detail fields and plain message fields

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is returned when the backend rejects a request
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsAPIError reports whether err is (or wraps) a backend rejection
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// handleErrorResponse parses a non-2xx body. detail may be a string or a
// list of validation errors, in which case the first msg wins.
func handleErrorResponse(status int, data []byte, fallback string) error {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		text := strings.TrimSpace(string(data))
		if text == "" {
			return &APIError{StatusCode: status, Message: orDefault(fallback, status)}
		}
		return &APIError{StatusCode: status, Message: fmt.Sprintf("HTTP %d: %s", status, text)}
	}

	if msg := detailMessage(body.Detail); msg != "" {
		return &APIError{StatusCode: status, Message: msg}
	}
	if body.Message != "" {
		return &APIError{StatusCode: status, Message: body.Message}
	}
	return &APIError{StatusCode: status, Message: orDefault(fallback, status)}
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0].Msg
	}
	return ""
}

func orDefault(fallback string, status int) string {
	if fallback != "" {
		return fallback
	}
	return fmt.Sprintf("backend returned status %d", status)
}
