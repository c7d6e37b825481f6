package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"behavior/internal/core"
	"behavior/internal/log"
	"behavior/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInsufficientData),
		errors.Is(err, core.ErrInvalidDateFormat),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrMalformedStatement):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrMissingDataSource),
		errors.Is(err, services.ErrStoreNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorTypeFor(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return log.ErrorTypeValidation
	case http.StatusServiceUnavailable:
		return log.ErrorTypeDataSource
	default:
		return log.ErrorTypeInternal
	}
}

// writeError logs err and writes the JSON error body. Messages of
// unclassified errors are not echoed to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)
	fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "")
	fields[log.FieldSource] = s.statements.SourceName()

	if status >= http.StatusInternalServerError {
		s.structured.LogError(r.Context(), "Request failed", err, errorTypeFor(status), operation, fields)
	} else {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Request rejected",
			append(fields.WithError(err).WithOperation(operation).ToSlice(), log.FieldStatusCode, status)...)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
}

// recoverer turns handler panics into 500 responses.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
					"panic", rec,
					log.FieldPath, r.URL.Path,
					"stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
