// Package shared holds the JSON envelope helpers every handler uses, so the
// error surface stays uniform across features.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "medgate/pkg/domain-errors"
)

type errorEnvelope struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into the JSON error envelope. Only
// the code crosses the wire; messages may carry internal detail and stay in
// the logs.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), errorEnvelope{Error: string(code)})
}
