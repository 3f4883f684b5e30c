package session

import (
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
)

// Event is a state transition request
type Event interface {
	session() string
}

// FilesSelected adds a new batch of records in the Uploading state
type FilesSelected struct {
	SessionID string
	BatchID   string
	Files     []models.FileRecord
}

// ProgressTicked reports upload progress for one record
type ProgressTicked struct {
	SessionID string
	FileID    string
	Progress  int
}

// StageAdvanced moves a record to Processing, Ready or Error
type StageAdvanced struct {
	SessionID string
	FileID    string
	Status    models.Status
	Err       string
	At        time.Time
}

// BatchCompleted fires once when every record of a batch is terminal
type BatchCompleted struct {
	SessionID string
	BatchID   string
	Ready     []string // File names in submission order
	Failed    []string
	At        time.Time
}

// MessageSent appends a user turn
type MessageSent struct {
	SessionID string
	Text      string
	At        time.Time
}

// MessageAnswered appends the assistant turn for a pending user message
type MessageAnswered struct {
	SessionID string
	ReplyTo   string
	Content   string
	At        time.Time
}

// MessageFailed appends a visible error turn for a pending user message
type MessageFailed struct {
	SessionID string
	ReplyTo   string
	Err       string
	At        time.Time
}

// SidebarToggled flips sidebar visibility
type SidebarToggled struct {
	SessionID string
}

// NewChat replaces the session. SessionID is the id of the new session.
type NewChat struct {
	SessionID string
}

func (e FilesSelected) session() string   { return e.SessionID }
func (e ProgressTicked) session() string  { return e.SessionID }
func (e StageAdvanced) session() string   { return e.SessionID }
func (e BatchCompleted) session() string  { return e.SessionID }
func (e MessageSent) session() string     { return e.SessionID }
func (e MessageAnswered) session() string { return e.SessionID }
func (e MessageFailed) session() string   { return e.SessionID }
func (e SidebarToggled) session() string  { return e.SessionID }
func (e NewChat) session() string         { return "" }
