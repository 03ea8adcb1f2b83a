// Package handlers provides HTTP request handlers for the timetable server.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/msu-timetable/backend/internal/storage"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string `json:"status"`
	Subscriber string `json:"subscriber_store"`
}

// HealthCheck reports service health. A nil db means the file-backed
// subscriber store is in use and there is no database to probe.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{Status: "healthy", Subscriber: "file"}
		if db != nil {
			response.Subscriber = "sqlite"
			if err := db.Ping(); err != nil {
				response.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if response.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}
