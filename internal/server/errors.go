package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/gtm-agent/internal/scheduler"
)

// HTTPStatus maps a job or trigger error onto a response code. Naming a job
// that does not exist is the caller's fault; everything else is ours.
func HTTPStatus(err error) int {
	var unknown *scheduler.UnknownJobError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &unknown):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
