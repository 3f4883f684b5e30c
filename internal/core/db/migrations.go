package db

import (
	"fmt"
)

// runMigrations applies database migrations for existing databases
func (db *DB) runMigrations() error {
	// Migration 1: error turns are flagged so transcripts can render them apart
	if err := db.migration001MessageErrors(); err != nil {
		return fmt.Errorf("migration 001: %w", err)
	}

	// Migration 2: batch ids on session files
	if err := db.migration002FileBatches(); err != nil {
		return fmt.Errorf("migration 002: %w", err)
	}

	return nil
}

// hasColumn reports whether table has the named column
func (db *DB) hasColumn(table, column string) (bool, error) {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?)
		WHERE name = ?
	`, table, column).Scan(&count)
	return count > 0, err
}

// migration001MessageErrors adds is_error to messages created before it existed
func (db *DB) migration001MessageErrors() error {
	ok, err := db.hasColumn("messages", "is_error")
	if err != nil || ok {
		return err
	}

	_, err = db.conn.Exec(`ALTER TABLE messages ADD COLUMN is_error BOOLEAN DEFAULT 0;`)
	if err != nil {
		return fmt.Errorf("add is_error column: %w", err)
	}
	return nil
}

// migration002FileBatches adds batch_id to session_files
func (db *DB) migration002FileBatches() error {
	ok, err := db.hasColumn("session_files", "batch_id")
	if err != nil || ok {
		return err
	}

	_, err = db.conn.Exec(`ALTER TABLE session_files ADD COLUMN batch_id TEXT;`)
	if err != nil {
		return fmt.Errorf("add batch_id column: %w", err)
	}
	return nil
}
