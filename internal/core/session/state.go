// Package session holds the chat session state machine.
//
// State is an immutable snapshot. Reduce is the only way to move from one
// snapshot to the next; timers and goroutines dispatch events and never touch
// state directly. Events from a superseded session are ignored, so a late
// callback cannot land on a fresh chat.
package session

import (
	"fmt"

	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/records"
)

// Mode is the coarse UI state
type Mode int

const (
	UploadMode Mode = iota
	ChatMode
)

func (m Mode) String() string {
	if m == ChatMode {
		return "chat"
	}
	return "upload"
}

// Batch is the set of files submitted together in one selection
type Batch struct {
	ID       string
	FileIDs  []string // Submission order
	Terminal int      // Records that reached Ready or Error
	Done     bool     // Completion was signalled
}

// Size returns the number of files in the batch
func (b Batch) Size() int {
	return len(b.FileIDs)
}

// State is one snapshot of a chat session
type State struct {
	SessionID      string
	Files          records.Store
	SidebarVisible bool

	messages  []models.Message
	batches   []Batch
	pending   []string // User message ids still waiting for an answer
	chatReady bool     // A batch with at least one ready file has completed
	seq       int
}

// NewState returns an empty session
func NewState(sessionID string) State {
	return State{SessionID: sessionID}
}

// Mode is UploadMode until a batch completes and while any batch is in flight
func (s State) Mode() Mode {
	if !s.chatReady {
		return UploadMode
	}
	if _, ok := s.ActiveBatch(); ok {
		return UploadMode
	}
	return ChatMode
}

// HasUploadedFiles reports whether chat is available in this session
func (s State) HasUploadedFiles() bool {
	return s.chatReady
}

// Messages returns the chat log in append order
func (s State) Messages() []models.Message {
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// OverallProgress is the aggregate upload progress across tracked files
func (s State) OverallProgress() int {
	return s.Files.OverallProgress()
}

// ActiveBatch returns the most recent batch that has not completed
func (s State) ActiveBatch() (Batch, bool) {
	for i := len(s.batches) - 1; i >= 0; i-- {
		if !s.batches[i].Done {
			return s.batches[i], true
		}
	}
	return Batch{}, false
}

// Batches returns every batch submitted in this session
func (s State) Batches() []Batch {
	out := make([]Batch, len(s.batches))
	copy(out, s.batches)
	return out
}

// ReadyFiles returns the names of files that finished processing
func (s State) ReadyFiles() []string {
	var names []string
	for _, f := range s.Files.All() {
		if f.Status == models.StatusReady {
			names = append(names, f.Name)
		}
	}
	return names
}

// Awaiting reports whether any user message is still waiting for an answer
func (s State) Awaiting() bool {
	return len(s.pending) > 0
}

func (s State) batchIndex(id string) int {
	for i, b := range s.batches {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (s State) batchOf(fileID string) int {
	rec, ok := s.Files.Get(fileID)
	if !ok {
		return -1
	}
	return s.batchIndex(rec.BatchID)
}

// nextMessageID combines the session id with a per-session counter, so ids
// stay unique even when two messages share a timestamp.
func (s *State) nextMessageID() string {
	s.seq++
	prefix := s.SessionID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}
