package models

import (
	"errors"
	"time"
)

// ArchivedSession is a finished chat stored in the history database
type ArchivedSession struct {
	ID           int64
	SessionID    string
	Title        string // First user question, or the file names when none was asked
	FileCount    int
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Files        []FileRecord
	Messages     []Message
}

// Validate checks if the session has required fields
func (s *ArchivedSession) Validate() error {
	if s.SessionID == "" {
		return errors.New("session_id is required")
	}
	if len(s.Messages) == 0 {
		return errors.New("at least one message is required")
	}
	return nil
}
