// cmd/quorum-server/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/pgxstore"
	"github.com/alexedwards/scs/v2"

	"github.com/rexlx/quorum/forum"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := forum.NewConfig()
	if err != nil {
		logger.Error("could not load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := forum.NewDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("could not initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateTables(ctx); err != nil {
		logger.Error("could not create tables", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to the database")

	// Sessions live in the same Postgres pool as everything else.
	sessionManager := scs.New()
	sessionManager.Store = pgxstore.New(db.Pool())
	sessionManager.Lifetime = 12 * time.Hour

	gate := forum.NewGate(db, sessionManager)
	google := forum.NewGoogleProvider(cfg.Google)

	handlers, err := forum.NewHandlers(db, gate, google, logger)
	if err != nil {
		logger.Error("could not create handlers", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	svr := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: sessionManager.LoadAndSave(mux),
	}

	logger.Info("starting server", "port", cfg.Port)
	if err := svr.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
