package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

var errNoDatabase = errors.New("database not configured")

// parseIntQuery extracts an int query parameter with a default value.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// splitScopes turns a space-separated scope string into a slice.
func splitScopes(s string) []string {
	return strings.Fields(s)
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
