package main

import (
	"log"
	"net/http"

	"github.com/AdamBeresnev/shuttle-bracket/internal/config"
	"github.com/AdamBeresnev/shuttle-bracket/internal/db"
	"github.com/AdamBeresnev/shuttle-bracket/internal/middleware"
	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	database := db.InitDB(cfg)
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	middleware.InitAuth(cfg)

	sessionManager := newSessionManager(cfg, database)
	router := newRouter(cfg, sessionManager)

	log.Printf("Server starting on http://localhost:%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}

// newSessionManager keeps sessions in the application database so every server instance
// sees the same logins.
func newSessionManager(cfg *config.Config, database *sqlx.DB) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	switch database.DriverName() {
	case db.DriverSQLite:
		sessionManager.Store = sqlite3store.New(database.DB)
	case db.DriverPostgres:
		sessionManager.Store = postgresstore.New(database.DB)
	}
	return sessionManager
}
