package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB is the local SQLite store for the persisted identity and the
// last-known catalog snapshots.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		// Создаем директорию для БД, если её нет
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: databases shared.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if logger != nil {
		logger.Info().Str("path", path).Msg("database initialized")
	}
	return &DB{DB: sqlDB, path: path, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Текущая сессия: одна строка на слот
		`CREATE TABLE IF NOT EXISTS session (
            slot TEXT PRIMARY KEY,
            user_json TEXT NOT NULL,
            saved_at INTEGER NOT NULL
        )`,
		// Последние успешно загруженные коллекции
		`CREATE TABLE IF NOT EXISTS snapshots (
            collection TEXT PRIMARY KEY,
            payload TEXT NOT NULL,
            updated_at INTEGER NOT NULL
        )`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}
