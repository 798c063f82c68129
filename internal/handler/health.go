package handler

import (
	"net/http"
	"time"

	"github.com/sakif/codegen-gateway/internal/auth"
)

// isoMillis matches the millisecond ISO-8601 form browsers produce.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// HandleHealth reports liveness. Its body is not wrapped in the envelope.
//
// HTTP: GET /health
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "success",
		"message":   "API is running",
		"timestamp": time.Now().UTC().Format(isoMillis),
	})
}

// HandleDashboard greets the authenticated caller.
//
// HTTP: * /api/dashboard (RequireAuth)
func HandleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	writeData(w, http.StatusOK, map[string]any{
		"message": "Welcome to your dashboard",
		"user":    identity,
	})
}
