package db

import (
	"context"
	"fmt"
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
)

// RegisterDocument records a processed file in the library. Registering the
// same file id again updates the entry.
func (db *DB) RegisterDocument(ctx context.Context, d models.Document) error {
	if d.FileID == "" || d.SHA256 == "" {
		return fmt.Errorf("document requires a file id and digest")
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO documents (file_id, session_id, name, mime_type, size, stored_path, sha256)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			session_id = excluded.session_id,
			name = excluded.name,
			mime_type = excluded.mime_type,
			size = excluded.size,
			stored_path = excluded.stored_path,
			sha256 = excluded.sha256,
			registered_at = CURRENT_TIMESTAMP
	`, d.FileID, d.SessionID, d.Name, d.MimeType, d.Size, d.StoredPath, d.SHA256)
	if err != nil {
		return fmt.Errorf("register document %s: %w", d.Name, err)
	}
	return nil
}

// DocumentEntry is a registered document with its registration time
type DocumentEntry struct {
	models.Document
	RegisteredAt time.Time
}

// ListDocuments returns registered documents, newest first. An empty
// sessionID lists the whole library.
func (db *DB) ListDocuments(sessionID string) ([]DocumentEntry, error) {
	if sessionID == "" {
		return db.queryDocuments(`ORDER BY registered_at DESC, id DESC`)
	}
	return db.queryDocuments(`WHERE session_id = ? ORDER BY registered_at DESC, id DESC`, sessionID)
}

func (db *DB) queryDocuments(clause string, args ...interface{}) ([]DocumentEntry, error) {
	rows, err := db.Query(`
		SELECT file_id, session_id, name, COALESCE(mime_type, ''), COALESCE(size, 0), stored_path, sha256, registered_at
		FROM documents `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []DocumentEntry
	for rows.Next() {
		var d DocumentEntry
		if err := rows.Scan(&d.FileID, &d.SessionID, &d.Name, &d.MimeType, &d.Size, &d.StoredPath, &d.SHA256, &d.RegisteredAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
