package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/abx-learn/backend/internal/auth"
	"github.com/abx-learn/backend/internal/bookmarks"
	"github.com/abx-learn/backend/internal/catalog"
	"github.com/abx-learn/backend/internal/coach"
	"github.com/abx-learn/backend/internal/config"
	"github.com/abx-learn/backend/internal/database"
	"github.com/abx-learn/backend/internal/kvstore"
	"github.com/abx-learn/backend/internal/logging"
	"github.com/abx-learn/backend/internal/middleware"
	"github.com/abx-learn/backend/internal/quiz"
	"github.com/abx-learn/backend/internal/recommend"
	"github.com/abx-learn/backend/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logging.WithComponent("server")

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	if missing := cat.UnknownConditions(); len(missing) > 0 {
		log.Warn().Strs("condition_ids", missing).Msg("catalog references undefined conditions")
	}

	db, kv, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()
	if db != nil {
		defer db.Close()
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: newRouter(cfg, db, kv, cat),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("kv_backend", cfg.KV.Backend).
			Str("auth_mode", cfg.Security.AuthMode).
			Str("version", version).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStorage connects to postgres when the configuration needs it and opens
// the key/value backend. The returned db is nil when postgres is not used.
func openStorage(ctx context.Context, cfg *config.Config) (*sql.DB, kvstore.Backend, error) {
	var db *sql.DB
	if cfg.NeedsDatabase() {
		var err error
		db, err = database.Connect(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	kv, err := kvstore.Open(ctx, kvstore.Options{
		Backend:      cfg.KV.Backend,
		SQLitePath:   cfg.KV.SQLitePath,
		BadgerPath:   cfg.KV.BadgerPath,
		RedisAddr:    cfg.KV.RedisAddr,
		RedisChannel: cfg.KV.RedisChannel,
		DB:           db,
		DSN:          cfg.Database.DSN(),
	})
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, fmt.Errorf("opening kv store: %w", err)
	}
	return db, kv, nil
}

func newRouter(cfg *config.Config, db *sql.DB, kv kvstore.Backend, cat *catalog.Catalog) http.Handler {
	var planner quiz.Planner
	if cfg.Coach.Enabled {
		planner = coach.New(coach.Config{
			Mock:    cfg.Coach.Mock,
			APIKey:  cfg.Coach.APIKey,
			Model:   cfg.Coach.Model,
			Timeout: cfg.Coach.Timeout,
		})
	}

	quizHandler := quiz.NewHandler(quiz.NewManager(kv, kv, cfg.KV.HistoryKey), planner)
	bookmarkHandler := bookmarks.NewHandler(bookmarks.NewManager(kv, kv, cfg.KV.BookmarkKey))
	exploreHandler := recommend.NewHandler(cat, session.NewManager(cat))

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	catalog.NewHandler(cat).Register(api)

	var authHandler *auth.Handler
	var tokens *middleware.Tokens
	if cfg.Security.AuthMode == config.AuthModeJWT {
		tokens = middleware.NewTokens(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
		authHandler = auth.NewHandler(db, tokens)
		api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
		api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	}

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	if authHandler != nil {
		protected.Use(middleware.RequireToken(tokens))
		protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	} else {
		protected.Use(middleware.LocalUser)
	}

	quizHandler.Register(protected)
	bookmarkHandler.Register(protected)
	exploreHandler.Register(protected)

	r.HandleFunc("/health", healthHandler(db)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return logging.RequestLogger(c.Handler(r))
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"degraded","database":"unreachable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}
