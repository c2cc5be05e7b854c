package crm

import (
	"errors"
	"fmt"
)

// ErrNoToken is returned when the client has no access token configured.
var ErrNoToken = errors.New("CRM access token not configured")

// maxBodyLen bounds how much of a response body ends up in errors and log entries.
const maxBodyLen = 200

// Error describes a failed CRM call.
type Error struct {
	Endpoint string
	Status   int
	Body     string
	Cause    error
}

func (e *Error) Error() string {
	switch {
	case e.Cause != nil && e.Status == 0:
		return fmt.Sprintf("crm %s: %v", e.Endpoint, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("crm %s: status %d: %v", e.Endpoint, e.Status, e.Cause)
	default:
		return fmt.Sprintf("crm %s: status %d: %s", e.Endpoint, e.Status, e.Body)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// logData is the payload attached to ERROR activity entries.
func (e *Error) logData() map[string]any {
	data := map[string]any{"endpoint": e.Endpoint}
	if e.Status != 0 {
		data["status"] = e.Status
	}
	if e.Body != "" {
		data["body"] = e.Body
	}
	if e.Cause != nil {
		data["error"] = e.Cause.Error()
	}
	return data
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
