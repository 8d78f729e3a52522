// Command persona-feed watches a Twitch chat session between a persona
// account and its viewers, generates social media style posts from the
// recent dialogue, and serves the resulting feed over HTTP. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres, runs idempotent migrations, and rehydrates the
//     persisted settings blob (feed included).
//   - Starts the chat watcher, the feed manager it drives, and the OAuth
//     token refresher for the bot account.
//   - Exposes the feed API with /healthz, /readyz, /status, /metrics and a
//     live SSE stream.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/persona-feed/config"
	"github.com/onnwee/persona-feed/db"
	"github.com/onnwee/persona-feed/feed"
	"github.com/onnwee/persona-feed/generator"
	"github.com/onnwee/persona-feed/oauth"
	"github.com/onnwee/persona-feed/server"
	"github.com/onnwee/persona-feed/session"
	"github.com/onnwee/persona-feed/settings"
	"github.com/onnwee/persona-feed/telemetry"
	"github.com/onnwee/persona-feed/twitchapi"
)

func main() {
	// Local dev convenience; production relies on real env.
	_ = godotenv.Load(".env")

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Optional OTLP tracing; requires OTEL_EXPORTER_OTLP_ENDPOINT.
	shutdownTracing, err := telemetry.InitTracing("persona-feed", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	// App access token (client credentials) backs Helix lookups for the
	// status endpoint. It is NOT the IRC chat token.
	var helix *twitchapi.HelixClient
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		ts := &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
		ctx2, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		if tok, err := ts.Get(ctx2); err != nil {
			slog.Warn("twitch app token fetch failed", slog.Any("err", err))
		} else if len(tok) > 6 {
			slog.Info("twitch app token acquired", slog.String("tail", "***"+tok[len(tok)-6:]))
		}
		cancel()
		helix = &twitchapi.HelixClient{AppTokenSource: ts, ClientID: cfg.TwitchClientID}
	}

	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Versioned migrations first, embedded SQL as the fallback for
	// deployments predating the schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, falling back to embedded SQL", slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Settings blob, feed included, rehydrated from the kv store.
	store := settings.NewStore(&db.BlobStorage{DB: database, Key: settings.BlobKey})
	store.Load(ctx)

	watcher := session.NewWatcher(session.WatcherConfig{
		PersonaLogin: cfg.PersonaLogin,
		PersonaName:  cfg.PersonaName,
		ViewerName:   cfg.ViewerName,
	})

	manager := feed.NewManager(store, generator.New(nil), watcher, generator.SystemRand())
	manager.SetComposeDelay(cfg.ComposeDelay)
	manager.Rehydrate(ctx)
	watcher.OnTurn(manager.HandleTurn)

	if err := cfg.ValidateChatReady(); err == nil {
		go watcher.Start(ctx, cfg.TwitchChannel, cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
	} else {
		slog.Info("chat watcher disabled", slog.Any("reason", err))
	}

	// Keeps the bot account token fresh for reconnects.
	oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		res, err := twitchapi.RefreshToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken)
		if err != nil {
			return "", "", time.Time{}, "", err
		}
		return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " "), nil
	})

	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		deps := server.Deps{
			DB:       database,
			Settings: store,
			Manager:  manager,
			Session:  watcher,
			Cfg:      cfg,
			Helix:    helix,
		}
		if err := server.Start(ctx, deps, addr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}

// setupLogging configures the default slog logger from LOG_LEVEL and
// LOG_FORMAT (text | json).
func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))
}
