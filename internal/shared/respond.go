package shared

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorSource points a client at the request field that caused a failure.
type ErrorSource struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Envelope is the JSON body shape shared by every API response.
type Envelope struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	Data         any           `json:"data,omitempty"`
	Meta         *Pagination   `json:"meta,omitempty"`
	ErrorSources []ErrorSource `json:"errorSources,omitempty"`
}

// Respond writes an Envelope with the given status code.
func Respond(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, message string, data any) {
	Respond(w, status, Envelope{Success: true, Message: message, Data: data})
}

// OKPaged writes a success envelope with pagination metadata.
func OKPaged(w http.ResponseWriter, status int, message string, data any, meta Pagination) {
	Respond(w, status, Envelope{Success: true, Message: message, Data: data, Meta: &meta})
}

// Fail writes an error envelope. The message must stay free of internal
// detail; anything worth debugging belongs in the logs.
func Fail(w http.ResponseWriter, status int, message string, sources ...ErrorSource) {
	Respond(w, status, Envelope{Success: false, Message: message, ErrorSources: sources})
}

// ValidationSources converts validator errors into client-facing sources.
func ValidationSources(err error) []ErrorSource {
	var ve validator.ValidationErrors
	ok := false
	if ve, ok = err.(validator.ValidationErrors); !ok {
		return []ErrorSource{{Path: "body", Message: "invalid request body"}}
	}
	sources := make([]ErrorSource, 0, len(ve))
	for _, fieldErr := range ve {
		sources = append(sources, ErrorSource{
			Path:    fieldErr.Field(),
			Message: "failed validation on '" + fieldErr.Tag() + "'",
		})
	}
	return sources
}

// DecodeJSON parses a request body into dst. Bodies above 1 MiB are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}
