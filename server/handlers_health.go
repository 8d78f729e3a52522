package server

import (
	"net/http"

	"github.com/onnwee/persona-feed/db"
	"github.com/onnwee/persona-feed/settings"
)

// HandleHealthz is the liveness probe. A nil database means the service is
// deliberately running in-memory, which is still healthy.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz is the readiness probe. It requires the database and a
// readable settings blob; a blob that simply doesn't exist yet is fine.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error {
			if h.db == nil {
				return errNoDatabase
			}
			return h.db.PingContext(r.Context())
		}},
		{"settings_blob", func() error {
			if h.db == nil {
				return errNoDatabase
			}
			// a missing blob reads as empty, only real query errors fail
			_, err := db.GetKV(r.Context(), h.db, settings.BlobKey)
			return err
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
