package catalog

import (
	"errors"
	"fmt"
)

// APIError is returned when the catalog answered but reported a failure,
// either through a false success flag or a non JSON error page.
type APIError struct {
	Action     string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Action == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

// TransportError wraps network, timeout and decoding failures.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAPIError reports whether err carries an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// errorMessage renders the error member of a failed action response.
// Typed errors are rendered as "type: message".
func errorMessage(raw any) string {
	switch e := raw.(type) {
	case map[string]any:
		msg, ok := e["message"].(string)
		if !ok {
			msg = "Unknown error"
		}
		if typ, ok := e["__type"].(string); ok {
			msg = typ + ": " + msg
		}
		return msg
	case string:
		return e
	case nil:
		return "Unknown error"
	}
	return fmt.Sprint(raw)
}
