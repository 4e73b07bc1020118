package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/Duongo16/vtm-apidocs/internal/apihttp"
)

// ErrImportTimeout is returned when a PDF import does not answer within the
// import deadline. The server may still finish the import.
var ErrImportTimeout = errors.New("import timed out; the server may still be processing it")

const maxErrorBody = 500

// APIError is a non-2xx answer from one of the services.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func newAPIError(res *apihttp.Result) *APIError {
	return &APIError{Status: res.Status, Message: errorMessage(res.Status, res.Body), Body: res.Body}
}

// errorMessage prefers the service's {"message"} or {"error"} field, then
// the start of the body, then the status text.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := gojson.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return text
	}
	if st := http.StatusText(status); st != "" {
		return st
	}
	return "request failed"
}
