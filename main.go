package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/example/authapi/internal/accounts"
	"github.com/example/authapi/internal/auth"
	cfg "github.com/example/authapi/internal/config"
	"github.com/example/authapi/internal/store"
)

type App struct {
	Store    store.Store
	Accounts *accounts.Service
	Auditor  *accounts.Auditor
	Gate     *auth.Gate
	Log      *slog.Logger

	validate    *validator.Validate
	corsOrigins []string
	apiPrefix   string
}

// NewApp wires the account service, the authorization gate and the HTTP
// helpers around an opened store.
func NewApp(c *cfg.Config, s store.Store, logger *slog.Logger) (*App, error) {
	codec, err := auth.NewTokenCodec(c.TokenConfig())
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	hasher := auth.NewPasswordHasher(c.BcryptCost)
	return &App{
		Store:       s,
		Accounts:    accounts.NewService(s, hasher, codec, logger),
		Auditor:     accounts.NewAuditor(logger),
		Gate:        auth.NewGate(codec, s),
		Log:         logger,
		validate:    newValidator(),
		corsOrigins: c.CORSOrigins,
		apiPrefix:   c.APIPrefix,
	}, nil
}

// Handler returns the routed HTTP handler with the global middleware chain.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()

	// Health check endpoints (no auth required)
	r.HandleFunc("/", a.HandleHealth).Methods("GET")
	r.HandleFunc("/health", a.HandleHealth).Methods("GET")
	r.HandleFunc("/ready", a.HandleReady).Methods("GET")

	user := a.RequireAuth(auth.Authenticated)
	admin := a.RequireAuth(auth.Superuser)

	v1 := r.PathPrefix(a.apiPrefix + "/auth").Subrouter()
	v1.HandleFunc("/register", a.HandleRegister).Methods("POST")
	v1.HandleFunc("/login", a.HandleLogin).Methods("POST")
	v1.HandleFunc("/session", a.HandleSession).Methods("GET")

	v1.Handle("/me", user(http.HandlerFunc(a.HandleGetMe))).Methods("GET")
	v1.Handle("/me", user(http.HandlerFunc(a.HandleUpdateMe))).Methods("PUT")
	v1.Handle("/change-password", user(http.HandlerFunc(a.HandleChangePassword))).Methods("POST")
	v1.Handle("/logout", user(http.HandlerFunc(a.HandleLogout))).Methods("POST")

	// Admin endpoints
	v1.Handle("/users", admin(http.HandlerFunc(a.HandleListUsers))).Methods("GET")
	v1.Handle("/users/{id:[0-9]+}", admin(http.HandlerFunc(a.HandleGetUser))).Methods("GET")
	v1.Handle("/users/{id:[0-9]+}", admin(http.HandlerFunc(a.HandleDeleteUser))).Methods("DELETE")
	v1.Handle("/users/{id:[0-9]+}/activate", admin(a.HandleSetActive(true))).Methods("POST")
	v1.Handle("/users/{id:[0-9]+}/deactivate", admin(a.HandleSetActive(false))).Methods("POST")

	// CORS sits outside the router so preflight requests reach it
	return SecurityHeaders(RequestID(a.Logging(a.CORS(r))))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json", "error", err)
	}
}

func openStore(ctx context.Context, c *cfg.Config, logger *slog.Logger) (store.Store, error) {
	switch c.DBAdapter {
	case "sqlite":
		s, err := store.NewSQLiteStore(ctx, c.SQLiteFile)
		if err != nil {
			return nil, fmt.Errorf("sqlite init: %w", err)
		}
		logger.Info("using sqlite database", "file", c.SQLiteFile)
		return s, nil
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres config error: %w", err)
		}

		res, err := store.ApplyMigrations(c.MigrationsDir, dsn)
		if err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		if res.Changed() {
			logger.Info("database migrated", "dir", c.MigrationsDir, "from", res.From, "to", res.To)
		} else {
			logger.Info("database is up to date", "version", res.To)
		}

		p, err := store.NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres init: %w", err)
		}
		logger.Info("connected to PostgreSQL database")
		return p, nil
	case "memory":
		logger.Warn("using in-memory database (not recommended for production)")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported DB_ADAPTER: %s (supported: postgres, sqlite, memory)", c.DBAdapter)
	}
}

func main() {
	c, err := cfg.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(c, os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()
	s, err := openStore(ctx, c, logger)
	if err != nil {
		logger.Error("store", "error", err)
		os.Exit(1)
	}

	app, err := NewApp(c, s, logger)
	if err != nil {
		logger.Error("app", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{Handler: app.Handler(), Addr: ":" + c.Port, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}

	go func() {
		logger.Info("starting server", "port", c.Port, "env", c.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	if err := app.Store.Close(); err != nil {
		logger.Error("closing store", "error", err)
	}
	logger.Info("server exited properly")
}
