package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

// InitDB opens the application database. With DATABASE_URL set it connects to
// PostgreSQL (production); otherwise it uses a local SQLite file, or an
// in-memory one when TEST_DB=1.
func InitDB() error {
	if os.Getenv("DATABASE_URL") != "" {
		db, err := CreatePostgresDB()
		if err != nil {
			return err
		}
		DB = db
		return nil
	}

	var dbPath string
	if os.Getenv("FLY_APP_NAME") != "" {
		// Running on Fly.io, use the mounted volume
		dbPath = filepath.Join("/data", "clubledger.db")
	} else if os.Getenv("TEST_DB") == "1" {
		dbPath = ":memory:"
	} else {
		dbPath = "./clubledger.db"
	}

	dsn := dbPath + "?_journal=WAL&_timeout=10000&_busy_timeout=10000&_fk=1"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}

	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Minute * 5)

		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return err
		}
		if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
			return err
		}
	}

	if err := db.Ping(); err != nil {
		return err
	}

	DB = db
	return nil
}
