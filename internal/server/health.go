package server

import (
	"database/sql"
	"net/http"
)

// Health returns a handler reporting service liveness and record-store
// reachability. Registered with [Router.Handle] as GET-only.
func Health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "degraded", "database": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
