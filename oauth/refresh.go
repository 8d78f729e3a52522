// Package oauth provides token refresh scheduling for providers whose tokens
// are persisted in the oauth_tokens table. It performs jittered checks and
// refreshes when expiry falls within a configured window, keeping the chat
// bot's user token fresh across long sessions.
package oauth

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"strings"
	"time"
)

// RefreshFunc performs provider-specific refresh and returns
// (access, refresh, expiry, scope).
type RefreshFunc func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error)

// StartRefresher launches a goroutine that periodically checks an oauth token
// row and refreshes it when its remaining lifetime drops inside window.
func StartRefresher(ctx context.Context, db *sql.DB, provider string, interval, window time.Duration, fn RefreshFunc) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	go func() {
		// Randomize the initial delay to spread load across instances.
		//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
		initial := time.Duration(rand.Int63n(int64(interval / 2)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(initial):
		}
		for {
			if !refreshOnce(ctx, db, provider, window, fn) {
				return
			}
			// Per-iteration jitter (±20% of interval) for scheduling diversity.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			sleep := interval + jitter
			if sleep < interval/2 {
				sleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(sleep):
			}
		}
	}()
}

// refreshOnce checks and possibly refreshes the token row. It returns false
// only when ctx is done.
func refreshOnce(ctx context.Context, db *sql.DB, provider string, window time.Duration, fn RefreshFunc) bool {
	if ctx.Err() != nil {
		return false
	}
	row := db.QueryRowContext(ctx, `SELECT access_token, refresh_token, expires_at, scope FROM oauth_tokens WHERE provider=$1 LIMIT 1`, provider)
	var at, rt, scope string
	var exp time.Time
	if err := row.Scan(&at, &rt, &exp, &scope); err != nil {
		return true
	}
	if rt == "" || time.Until(exp) > window {
		return true
	}
	ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
	newAT, newRT, newExp, newScope, err := fn(ctx2, rt)
	cancel()
	if err != nil {
		slog.Warn("token refresh failed", slog.String("provider", provider), slog.Any("err", err))
		return true
	}
	if newRT == "" {
		newRT = rt
	}
	if newScope == "" {
		newScope = scope
	}
	if _, err := db.ExecContext(ctx, `UPDATE oauth_tokens SET access_token=$1, refresh_token=$2, expires_at=$3, scope=$4, updated_at=NOW() WHERE provider=$5`,
		newAT, newRT, newExp, strings.TrimSpace(newScope), provider); err != nil {
		slog.Warn("token persist failed", slog.String("provider", provider), slog.Any("err", err))
		return true
	}
	slog.Info("token refreshed", slog.String("provider", provider))
	return true
}
