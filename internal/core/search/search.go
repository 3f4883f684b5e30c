package search

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/neilberkman/docchat/internal/core/db"
)

// SearchResult is one archived message matching a query
type SearchResult struct {
	MessageID    string
	SessionID    string
	SessionTitle string
	Role         string
	MessageText  string
	Timestamp    time.Time
}

// DefaultLimit caps results when callers pass zero
const DefaultLimit = 100

// Default sort order for search results (most recent first)
const defaultOrderBy = "m.timestamp DESC"

// Search runs a full-text query over archived chat messages.
// Results are ordered by timestamp (most recent first).
func Search(database *db.DB, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	// FTS5 syntax chokes on these, so fall back to substring matching
	hasSpecialChars := strings.ContainsAny(query, "-_@#$%&:\".?!,'/")

	var rows *sql.Rows
	var err error

	if hasSpecialChars {
		rows, err = database.Query(fmt.Sprintf(`
			SELECT
				m.uuid,
				s.session_id,
				COALESCE(s.title, ''),
				m.role,
				m.content,
				m.timestamp
			FROM messages m
			JOIN sessions s ON s.id = m.session_id
			WHERE m.content LIKE '%%' || ? || '%%'
			ORDER BY %s
			LIMIT ?
		`, defaultOrderBy), query, limit)
	} else {
		rows, err = database.Query(fmt.Sprintf(`
			SELECT
				m.uuid,
				s.session_id,
				COALESCE(s.title, ''),
				m.role,
				snippet(messages_fts, -1, '', '', '...', 32) as snippet,
				m.timestamp
			FROM messages_fts
			JOIN messages m ON messages_fts.rowid = m.id
			JOIN sessions s ON s.id = m.session_id
			WHERE messages_fts MATCH ?
			ORDER BY %s
			LIMIT ?
		`, defaultOrderBy), query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(
			&r.MessageID,
			&r.SessionID,
			&r.SessionTitle,
			&r.Role,
			&r.MessageText,
			&r.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}
