package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/msu-timetable/backend/internal/api/middleware"
)

// SyncTrigger starts an out-of-band sync cycle for a group.
type SyncTrigger interface {
	TriggerSync(groupID string) bool
}

// TriggerSync kicks off an immediate sync for the group. The cycle runs
// in the background; 202 only means it was accepted.
func TriggerSync(trigger SyncTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if trigger == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, middleware.ErrInternalError, "Scheduler is not running")
			return
		}
		groupID := mux.Vars(r)["group"]
		if !trigger.TriggerSync(groupID) {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Unknown group: "+groupID)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
