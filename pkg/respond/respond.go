package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/chris/transaction-orchestrator/pkg/api"
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Error writes an api.Error body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, api.Error{Message: message})
}
