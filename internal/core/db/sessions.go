package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrAmbiguousSession = errors.New("session id prefix matches more than one session")
)

// ListOptions filters ListSessions
type ListOptions struct {
	Since time.Time // Zero means no lower bound
	Limit int       // Zero means the default of 1000
}

// ArchiveSession saves a finished session with its files and transcript.
// Archiving the same session again replaces the earlier copy.
func (db *DB) ArchiveSession(ctx context.Context, s models.ArchivedSession) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sessions (session_id, title, file_count, message_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			title = excluded.title,
			file_count = excluded.file_count,
			message_count = excluded.message_count,
			updated_at = excluded.updated_at,
			archived_at = CURRENT_TIMESTAMP
		RETURNING id
	`, s.SessionID, s.Title, len(s.Files), len(s.Messages), s.CreatedAt.UTC(), s.UpdatedAt.UTC()).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_files WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("clear files: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	for i, f := range s.Files {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_files (session_id, file_id, batch_id, name, size, mime_type, status, progress, error_message, sequence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, f.ID, f.BatchID, f.Name, f.Size, f.MimeType, string(f.Status), f.Progress, f.Err, i+1)
		if err != nil {
			return fmt.Errorf("insert file %s: %w", f.Name, err)
		}
	}

	for i, m := range s.Messages {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (uuid, session_id, role, content, reply_to, is_error, timestamp, sequence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, m.ID, id, string(m.Role), m.Content, m.ReplyTo, m.IsError, m.Timestamp.UTC(), i+1)
		if err != nil {
			return fmt.Errorf("insert message %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// ListSessions returns archived sessions, most recently updated first.
// Files and Messages are not loaded.
func (db *DB) ListSessions(opts ListOptions) ([]models.ArchivedSession, error) {
	query := `
		SELECT
			s.id,
			s.session_id,
			COALESCE(s.title, ''),
			(SELECT COUNT(*) FROM session_files WHERE session_id = s.id) as file_count,
			(SELECT COUNT(*) FROM messages WHERE session_id = s.id) as message_count,
			s.created_at,
			s.updated_at
		FROM sessions s`

	args := []interface{}{}
	if !opts.Since.IsZero() {
		query += " WHERE s.updated_at >= ?"
		args = append(args, opts.Since.UTC())
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += `
		ORDER BY s.updated_at DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []models.ArchivedSession
	for rows.Next() {
		var s models.ArchivedSession
		if err := rows.Scan(
			&s.ID,
			&s.SessionID,
			&s.Title,
			&s.FileCount,
			&s.MessageCount,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// GetSession returns a full archived session. id may be a unique prefix of
// the session id.
func (db *DB) GetSession(id string) (*models.ArchivedSession, error) {
	sessionID, err := db.resolveSessionID(id)
	if err != nil {
		return nil, err
	}

	var s models.ArchivedSession
	err = db.QueryRow(`
		SELECT id, session_id, COALESCE(title, ''), file_count, message_count, created_at, updated_at
		FROM sessions
		WHERE session_id = ?
	`, sessionID).Scan(&s.ID, &s.SessionID, &s.Title, &s.FileCount, &s.MessageCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	files, err := db.sessionFiles(s.ID)
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}
	s.Files = files

	messages, err := db.sessionMessages(s.ID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	s.Messages = messages

	return &s, nil
}

// DeleteSession removes an archived session and its transcript
func (db *DB) DeleteSession(id string) error {
	sessionID, err := db.resolveSessionID(id)
	if err != nil {
		return err
	}
	_, err = db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

func (db *DB) resolveSessionID(id string) (string, error) {
	rows, err := db.Query(`
		SELECT session_id FROM sessions
		WHERE session_id = ? OR session_id LIKE ? || '%'
		ORDER BY session_id = ? DESC
		LIMIT 2
	`, id, id, id)
	if err != nil {
		return "", err
	}
	defer func() { _ = rows.Close() }()

	var matches []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return "", err
		}
		matches = append(matches, sid)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch {
	case len(matches) == 0:
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	case matches[0] == id, len(matches) == 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousSession, id)
	}
}

func (db *DB) sessionFiles(id int64) ([]models.FileRecord, error) {
	rows, err := db.Query(`
		SELECT file_id, COALESCE(batch_id, ''), name, COALESCE(size, 0), COALESCE(mime_type, ''),
			status, COALESCE(progress, 0), COALESCE(error_message, '')
		FROM session_files
		WHERE session_id = ?
		ORDER BY sequence ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var files []models.FileRecord
	for rows.Next() {
		var f models.FileRecord
		var status string
		if err := rows.Scan(&f.ID, &f.BatchID, &f.Name, &f.Size, &f.MimeType, &status, &f.Progress, &f.Err); err != nil {
			return nil, err
		}
		f.Status = models.Status(status)
		files = append(files, f)
	}
	return files, rows.Err()
}

func (db *DB) sessionMessages(id int64) ([]models.Message, error) {
	rows, err := db.Query(`
		SELECT uuid, role, COALESCE(content, ''), COALESCE(reply_to, ''), COALESCE(is_error, 0), timestamp
		FROM messages
		WHERE session_id = ?
		ORDER BY sequence ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var role string
		var ts sql.NullTime
		if err := rows.Scan(&m.ID, &role, &m.Content, &m.ReplyTo, &m.IsError, &ts); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		m.Timestamp = ts.Time
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
