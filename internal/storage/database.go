package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"convorag/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the configured relational database.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			dbCfg.Params,
		)
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				filename TEXT NOT NULL,
				chunking_strategy TEXT NOT NULL,
				stored_path TEXT NOT NULL DEFAULT '',
				uploaded_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents(filename)`,
			`CREATE TABLE IF NOT EXISTS chunks (
				id TEXT PRIMARY KEY,
				document_id TEXT NOT NULL,
				chunk_index INTEGER NOT NULL,
				content TEXT NOT NULL,
				vector_id TEXT NOT NULL UNIQUE,
				FOREIGN KEY(document_id) REFERENCES documents(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
			`CREATE TABLE IF NOT EXISTS bookings (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				date TEXT NOT NULL,
				time TEXT NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_email ON bookings(email)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS documents (
				id VARCHAR(36) PRIMARY KEY,
				filename VARCHAR(255) NOT NULL,
				chunking_strategy VARCHAR(16) NOT NULL,
				stored_path VARCHAR(512) NOT NULL DEFAULT '',
				uploaded_at DATETIME NOT NULL,
				INDEX idx_documents_filename (filename)
			)`,
			`CREATE TABLE IF NOT EXISTS chunks (
				id VARCHAR(36) PRIMARY KEY,
				document_id VARCHAR(36) NOT NULL,
				chunk_index INT NOT NULL,
				content TEXT NOT NULL,
				vector_id VARCHAR(64) NOT NULL UNIQUE,
				INDEX idx_chunks_document (document_id),
				FOREIGN KEY(document_id) REFERENCES documents(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS bookings (
				id VARCHAR(36) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL,
				date VARCHAR(10) NOT NULL,
				time VARCHAR(5) NOT NULL,
				created_at DATETIME NOT NULL,
				INDEX idx_bookings_email (email)
			)`,
		}
	default:
		return fmt.Errorf("unsupported driver: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
