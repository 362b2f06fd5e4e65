package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gramasevaka/gs-portal-api/config"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/storage"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

// errValidation marks a request that is malformed or missing required fields.
var errValidation = errors.New("invalid request")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errValidation, fmt.Sprintf(format, args...))
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errValidation),
		errors.Is(err, workflow.ErrInvalidStatus),
		errors.Is(err, storage.ErrUnsupportedType),
		errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, databases.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrTransitionNotAllowed),
		errors.Is(err, workflow.ErrTerminal),
		errors.Is(err, workflow.ErrNotCancellable),
		errors.Is(err, workflow.ErrNotDeletable),
		errors.Is(err, workflow.ErrConflict),
		errors.Is(err, databases.ErrDuplicate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError writes err with the status it maps to. Validation and workflow
// errors use their own text as the message so callers can tell what went wrong.
func writeError(w http.ResponseWriter, message string, err error) {
	code := statusFor(err)
	switch {
	case code >= http.StatusInternalServerError:
		config.ErrorStatus(message, code, w, err)
	case code == http.StatusNotFound, errors.Is(err, databases.ErrDuplicate):
		config.ErrorStatus(message, code, w, nil)
	default:
		config.ErrorStatus(err.Error(), code, w, nil)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return invalid("failed to decode request body")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return invalid("failed to decode request body")
	}
	return nil
}
