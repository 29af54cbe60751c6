package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// RequestError is a failed request: a non-2xx response, or a transport
// failure with Status 0.
type RequestError struct {
	Status int
	Body   string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message())
}

func (e *RequestError) Unwrap() error { return e.Err }

// Message is the text to show a user: the API's {"error"} or {"message"}
// field when present, else the body, else the status text.
func (e *RequestError) Message() string {
	if e.Status == 0 {
		return "The server could not be reached. Please try again."
	}
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	if body := strings.TrimSpace(e.Body); body != "" && !strings.HasPrefix(body, "{") {
		return body
	}
	return http.StatusText(e.Status)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}

// MessageOf returns a user-facing message for any error.
func MessageOf(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Message()
	}
	return err.Error()
}
