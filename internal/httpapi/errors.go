package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"stosh/internal/errs"
	"stosh/internal/manager"
	"stosh/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeErrorResponse(w, types.ErrorResponse{Error: msg, Code: status})
}

func writeErrorResponse(w http.ResponseWriter, resp types.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)
	_ = json.NewEncoder(w).Encode(resp)
}

// statusFor maps service and bridge errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case manager.IsSessionNotFound(err), manager.IsModelNotFound(err):
		return http.StatusNotFound
	case manager.IsClosed(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNoDataLoaded):
		return http.StatusConflict
	case errors.Is(err, errs.ErrToolNotFound), errors.Is(err, errs.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrBuildFailed),
		errors.Is(err, errs.ErrDataLoadFailed),
		errors.Is(err, errs.ErrSamplingFailed):
		return http.StatusUnprocessableEntity
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeError writes err as an ErrorResponse and returns the status used.
func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	resp := types.ErrorResponse{Error: errs.Message(err), Code: status, Kind: errs.Code(err)}
	if resp.Kind == "" {
		resp.Error = err.Error()
	}
	var e *errs.Error
	if errors.As(err, &e) && e.Build != nil {
		resp.Build = &types.BuildOutput{
			Command:  e.Build.Command,
			Dir:      e.Build.Dir,
			Stdout:   e.Build.Stdout,
			Stderr:   e.Build.Stderr,
			ExitCode: e.Build.ExitCode,
		}
	}
	writeErrorResponse(w, resp)
	return status
}
