package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/authclient/pkg/authsdk"
)

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// WriteOK writes a successful envelope carrying data.
func WriteOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, authsdk.Envelope[any]{Success: true, Data: data})
}

// WriteError writes a failed envelope.
func WriteError(w http.ResponseWriter, code int, message string, errs ...authsdk.FieldError) {
	WriteJSON(w, code, authsdk.Failure[any](message, errs...))
}

// DecodeJSON reads a JSON request body into v. Unknown fields are rejected.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
