package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// mutableSettingKeys are the blob fields the settings API accepts. The feed
// itself is only writable through compose and clear.
var mutableSettingKeys = map[string]struct{}{
	"maxMessages":         {},
	"maxPosts":            {},
	"enabled":             {},
	"autoPostFrequency":   {},
	"enabledPlatforms":    {},
	"enableNotifications": {},
}

// HandleSettings serves the settings blob (minus the feed). GET returns it,
// PUT patches the provided keys and persists.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.settings.Snapshot())
	case http.MethodPut:
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		for k := range patch {
			if _, ok := mutableSettingKeys[k]; !ok {
				http.Error(w, "unknown or immutable setting: "+k, http.StatusBadRequest)
				return
			}
		}
		for k, v := range patch {
			h.settings.Set(k, v)
		}
		h.settings.Persist(r.Context())
		writeJSON(w, http.StatusOK, h.settings.Snapshot())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleStatus reports the session and feed state at a glance. With a Helix
// client configured it also looks up the channel's live stream; a failed
// lookup degrades to a null stream rather than failing the endpoint.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out := map[string]any{
		"live":      h.sess.Live(),
		"author":    h.sess.AuthorName(),
		"viewer":    h.sess.ViewerName(),
		"enabled":   h.settings.Enabled(),
		"feedDepth": len(h.manager.List()),
	}
	if h.helix != nil && h.cfg != nil && h.cfg.TwitchChannel != "" {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		streams, err := h.helix.GetStreams(ctx, h.cfg.TwitchChannel)
		switch {
		case err != nil:
			slog.Debug("status: helix stream lookup failed", slog.Any("err", err))
			out["stream"] = nil
		case len(streams) > 0:
			out["stream"] = streams[0]
		default:
			out["stream"] = nil
		}
	}
	writeJSON(w, http.StatusOK, out)
}
