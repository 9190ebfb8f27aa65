package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"flexidays/internal/backend"
	"flexidays/internal/domain/leave"
	"flexidays/internal/platform/config"
	"flexidays/internal/session"
	adminhandler "flexidays/internal/transport/http/handlers/admin"
	dashboardhandler "flexidays/internal/transport/http/handlers/dashboard"
	myleaveshandler "flexidays/internal/transport/http/handlers/myleaves"
	sessionhandler "flexidays/internal/transport/http/handlers/session"
	"flexidays/internal/transport/http/middleware"
)

type App struct {
	Config   config.Config
	Store    *leave.Store
	Sessions *session.Manager
	Router   http.Handler

	redis *redis.Client
}

// New wires the full application: backend client, leave store loaded
// from the remote document, session manager, and the HTTP router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client := backend.New(cfg.BackendURL, cfg.FallbackFile, cfg.SyncTimeout)

	store := leave.NewStore(client)
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.Load(loadCtx); err != nil {
		return nil, fmt.Errorf("initial leave load: %w", err)
	}

	app := &App{Config: cfg, Store: store}

	var sessions session.Store
	if cfg.RedisAddr == "" {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	} else {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
		defer cancelPing()
		if err := app.redis.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		sessions = session.NewRedisStore(app.redis, cfg.SessionTTL)
	}
	app.Sessions = session.NewManager(sessions, cfg.SessionSecret, cfg.SessionTTL)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(bodyLimit(cfg.MaxBodyBytes))

		sessionhandler.NewHandler(app.Sessions, client).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(app.Sessions))
			dashboardhandler.NewHandler(store, client).RegisterRoutes(r)
			myleaveshandler.NewHandler(store, app.Sessions).RegisterRoutes(r)
			adminhandler.NewHandler(store, client).RegisterRoutes(r)
		})
	})

	app.Router = router
	return app, nil
}

func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func bodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
