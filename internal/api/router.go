// Package api provides HTTP routing for the published timetable feeds.
package api

import (
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/msu-timetable/backend/internal/api/handlers"
	"github.com/msu-timetable/backend/internal/api/middleware"
	"github.com/msu-timetable/backend/internal/storage"
)

// NewRouter configures the feed and operational routes. db may be nil
// when subscribers are file-backed; trigger may be nil when the
// scheduler is not running.
func NewRouter(
	dataRoot string,
	basePath string,
	loc *time.Location,
	db *storage.DB,
	trigger handlers.SyncTrigger,
) *mux.Router {
	basePath = strings.TrimSuffix(basePath, "/")

	r := mux.NewRouter()
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// Published feeds. Calendar reads go straight to the files the
	// publisher renamed into place.
	// HEAD is allowed alongside GET; calendar clients probe feeds with
	// it and net/http drops the body on its own.
	feeds := r.PathPrefix(basePath).Subrouter()
	feeds.HandleFunc("", handlers.Landing(dataRoot, basePath, loc)).Methods("GET", "HEAD")
	feeds.HandleFunc("/", handlers.Landing(dataRoot, basePath, loc)).Methods("GET", "HEAD")
	feeds.HandleFunc("/index.json", handlers.IndexJSON(dataRoot)).Methods("GET", "HEAD")
	feeds.HandleFunc("/{group}", handlers.Calendar(dataRoot)).Methods("GET", "HEAD")

	// Operational endpoints.
	apiRoutes := r.PathPrefix("/api").Subrouter()
	apiRoutes.HandleFunc("/health", handlers.HealthCheck(db)).Methods("GET")
	apiRoutes.HandleFunc("/groups/{group}/sync", handlers.TriggerSync(trigger)).Methods("POST")

	return r
}
