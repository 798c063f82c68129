package handler

// Every JSON body the API returns is one envelope:
//
//	{"success": true,  "data": ..., "count": n}
//	{"success": false, "error": "message", "stack": "..."}
//
// count only appears on list responses and stack only outside production.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/sakif/codegen-gateway/internal/apperror"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool   `json:"success"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// writeJSON sends v with the given status. Headers must be set before
// WriteHeader; anything set afterwards is silently dropped.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeList(w http.ResponseWriter, data any, count int) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: &count, Data: data})
}

// Responder is the terminal error handler. It maps the error taxonomy to
// status codes, logs server-side failures with their full chain, and only
// exposes that chain to clients when showStack is set.
type Responder struct {
	logger    *slog.Logger
	showStack bool
}

func NewResponder(logger *slog.Logger, showStack bool) *Responder {
	return &Responder{logger: logger, showStack: showStack}
}

// Error writes err as a failure envelope.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)

	if status >= http.StatusInternalServerError {
		rs.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}

	body := envelope{Error: message}
	if rs.showStack {
		body.Stack = err.Error()
	}
	writeJSON(w, status, body)
}

// NotFound answers any unmatched path.
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rs.Error(w, r, &apperror.AppError{
		Err:     apperror.ErrNotFound,
		Message: "Not Found - " + r.RequestURI,
	})
}

// Recover turns a panic further down the chain into a 500 envelope. The
// panic value and goroutine stack are logged; clients only see them through
// the usual stack field outside production.
func (rs *Responder) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// net/http uses this to abort a response; let it through.
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			rs.logger.Error("panic recovered",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			rs.Error(w, r, apperror.Internal("Server Error", fmt.Errorf("panic: %v", rec)))
		}()

		next.ServeHTTP(w, r)
	})
}

// classify maps the sentinel inside err to a status. Errors outside the
// taxonomy become a generic 500 so internals never reach the message.
func classify(err error) (int, string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "Server Error"
	}

	switch {
	case errors.Is(appErr.Err, apperror.ErrValidation):
		return http.StatusBadRequest, appErr.Message
	case errors.Is(appErr.Err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, appErr.Message
	case errors.Is(appErr.Err, apperror.ErrNotFound):
		return http.StatusNotFound, appErr.Message
	case errors.Is(appErr.Err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests, appErr.Message
	default:
		return http.StatusInternalServerError, appErr.Message
	}
}

// decodeJSON reads a single JSON value from the body into dst. An empty body
// leaves dst untouched so required-field checks report the real problem.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.Is(err, errNotANumber):
		return apperror.ValidationFailed("temperature", "Temperature must be a number")
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", "Request body too large")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
}
