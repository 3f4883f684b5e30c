package db

import (
	"database/sql"
	"time"
)

// Stats represents database statistics
type Stats struct {
	TotalSessions     int
	TotalMessages     int
	TotalDocuments    int
	LibraryBytes      int64
	FailedFiles       int
	OldestSession     time.Time
	NewestSession     time.Time
	MostAskedDocument string
	MostAskedCount    int
}

// timestampFormats covers what the driver writes for time.Time values and
// what CURRENT_TIMESTAMP produces
var timestampFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetStats returns archive and library statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&stats.TotalSessions)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&stats.TotalMessages)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow("SELECT COUNT(*), COALESCE(SUM(size), 0) FROM documents").Scan(&stats.TotalDocuments, &stats.LibraryBytes)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow("SELECT COUNT(*) FROM session_files WHERE status = 'error'").Scan(&stats.FailedFiles)
	if err != nil {
		return nil, err
	}

	// Date range (only if we have sessions)
	if stats.TotalSessions > 0 {
		var minCreated, maxUpdated sql.NullString
		err = db.QueryRow("SELECT MIN(created_at), MAX(updated_at) FROM sessions").Scan(&minCreated, &maxUpdated)
		if err != nil {
			return nil, err
		}
		if minCreated.Valid {
			stats.OldestSession = parseTimestamp(minCreated.String)
		}
		if maxUpdated.Valid {
			stats.NewestSession = parseTimestamp(maxUpdated.String)
		}

		// Document that appears in the most sessions
		var name sql.NullString
		err = db.QueryRow(`
			SELECT name, COUNT(DISTINCT session_id) as count
			FROM session_files
			WHERE status = 'ready'
			GROUP BY name
			ORDER BY count DESC, name ASC
			LIMIT 1
		`).Scan(&name, &stats.MostAskedCount)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if name.Valid {
			stats.MostAskedDocument = name.String
		}
	}

	return stats, nil
}
