package handlers

import (
	"encoding/json"
	"net/http"

	"dokianime/models"
)

// RequestIDHeader carries the per-request id set by the API middleware.
const RequestIDHeader = "X-Request-ID"

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}
