package llm

import (
	"context"
	"errors"

	"github.com/neilberkman/docchat/internal/core/models"
)

// ErrResponseFailed wraps every failure to produce an answer
var ErrResponseFailed = errors.New("response failed")

// Responder is the interface for answer backends
type Responder interface {
	// Answer replies to question given the conversation so far
	Answer(ctx context.Context, req Request) (string, error)

	// Name returns the backend name (e.g., "stub", "openai")
	Name() string
}

// Request carries what a backend needs to answer one question
type Request struct {
	SessionID    string
	Question     string
	Conversation []models.Message // Turns before the question, oldest first
	Files        []string         // Names of the documents that are ready
}

// Limits applied when packing a conversation into a prompt
const (
	maxHistoryMessages = 15
	maxContentLen      = 1000 // In runes
)

// trimConversation keeps the first few and the most recent turns and drops
// error turns, which carry no content worth sending back.
func trimConversation(msgs []models.Message) []models.Message {
	var kept []models.Message
	for _, m := range msgs {
		if m.IsError {
			continue
		}
		if r := []rune(m.Content); len(r) > maxContentLen {
			m.Content = string(r[:maxContentLen]) + "..."
		}
		kept = append(kept, m)
	}

	if len(kept) <= maxHistoryMessages {
		return kept
	}

	firstN := 3
	lastN := maxHistoryMessages - firstN
	out := make([]models.Message, 0, maxHistoryMessages)
	out = append(out, kept[:firstN]...)
	out = append(out, kept[len(kept)-lastN:]...)
	return out
}
