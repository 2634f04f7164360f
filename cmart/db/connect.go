package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

// Connect opens an embedded libsql database at path, creating the directory
// and file on first use.
func Connect(path string, logger zerolog.Logger) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create database directory %s: %w", dir, err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info().Str("path", path).Msg("database not found, creating a new one")
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("could not create db at path %s: %w", path, err)
		}
		file.Close()
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_synchronous=NORMAL&_temp_store=memory", path)

	database, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	if err := verify(database, logger); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// verify checks connectivity and the built-in JSON1 capability.
func verify(database *sql.DB, logger zerolog.Logger) error {
	ctx := context.Background()

	var result int
	if err := database.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("basic connectivity test failed: %w", err)
	}

	var jsonResult string
	if err := database.QueryRowContext(ctx, `SELECT json_extract('{"test":"value"}', '$.test')`).Scan(&jsonResult); err != nil {
		logger.Warn().Err(err).Msg("JSON1 test failed")
	} else if jsonResult != "value" {
		logger.Warn().Str("result", jsonResult).Msg("JSON1 test returned unexpected result")
	}

	return nil
}
