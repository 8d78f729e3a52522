package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/onnwee/persona-feed/feed"
	"github.com/onnwee/persona-feed/generator"
)

// HandleFeed returns the feed, newest first. An optional limit query parameter
// caps the page.
func (h *Handlers) HandleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	items := h.manager.List()
	if limit := parseIntQuery(r, "limit", 0); limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

type composeRequest struct {
	Category string `json:"category"`
	Platform string `json:"platform"`
}

// HandleFeedCompose generates one post on demand. Category and platform are
// optional; a missing category is picked at random, a missing platform leaves
// the post untagged and untruncated.
func (h *Handlers) HandleFeedCompose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Category != "" && !generator.ValidCategory(req.Category) {
		http.Error(w, fmt.Sprintf("unknown category %q", req.Category), http.StatusBadRequest)
		return
	}
	opts := feed.ComposeOpts{Category: req.Category}
	if req.Platform != "" {
		p := feed.Platform(req.Platform)
		if !p.Known() {
			http.Error(w, fmt.Sprintf("unknown platform %q", req.Platform), http.StatusBadRequest)
			return
		}
		opts.Platform = p
	}
	item := h.manager.Compose(r.Context(), opts)
	writeJSON(w, http.StatusCreated, item)
}

// sseHeartbeat keeps idle stream connections from being reaped by proxies.
const sseHeartbeat = 25 * time.Second

// HandleFeedStream streams feed events over SSE. Each post or toast arrives as
// one data frame; a comment line is sent as a heartbeat while the feed is
// quiet.
func (h *Handlers) HandleFeedStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, cancel := h.manager.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			blob, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", blob)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// HandleAdminFeedClear drops every post and persists the empty feed.
func (h *Handlers) HandleAdminFeedClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.manager.Clear(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
