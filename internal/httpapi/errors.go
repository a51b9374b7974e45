package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"trashd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// publicError is implemented by errors whose Error() text carries internal
// detail; Public() is what the client sees.
type publicError interface {
	Public() string
}

// writeError maps err to a status and writes the JSON error payload. It is
// the only place handler errors become responses.
func writeError(w http.ResponseWriter, err error) int {
	status := http.StatusInternalServerError
	msg := http.StatusText(status)
	var he HTTPError
	if errors.As(err, &he) {
		status = he.StatusCode()
		msg = he.Error()
		var pe publicError
		if errors.As(err, &pe) {
			msg = pe.Public()
		}
	}
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("classifier_pool")
	}
	writeJSONError(w, status, msg)
	return status
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
