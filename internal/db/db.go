package db

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/AdamBeresnev/shuttle-bracket/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var (
	mu       sync.RWMutex
	instance *sqlx.DB
)

func InitDB(cfg *config.Config) *sqlx.DB {
	db, err := sqlx.Connect(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalln("Failed to connect to DB:", err)
	}

	if cfg.DBDriver == DriverSQLite {
		_, err = db.Exec("PRAGMA foreign_keys = ON;")
		if err != nil {
			log.Fatal(err)
		}
	}

	mu.Lock()
	instance = db
	mu.Unlock()

	log.Println("Database connected.")
	return db
}

// GetDB returns the connection opened by InitDB.
func GetDB() *sqlx.DB {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// RunMigrations applies the migrations for the connection's dialect found under migrationsPath.
func RunMigrations(conn *sqlx.DB, migrationsPath string) error {
	var (
		driver database.Driver
		err    error
	)
	switch conn.DriverName() {
	case DriverSQLite:
		driver, err = sqlite3.WithInstance(conn.DB, &sqlite3.Config{})
	case DriverPostgres:
		driver, err = postgres.WithInstance(conn.DB, &postgres.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", conn.DriverName())
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate driver instance: %w", err)
	}

	sourceURL := "file://" + filepath.ToSlash(filepath.Join(migrationsPath, conn.DriverName()))
	m, err := migrate.NewWithDatabaseInstance(sourceURL, conn.DriverName(), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
