package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neilberkman/docchat/internal/core/llm"
	"github.com/neilberkman/docchat/internal/core/logging"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/upload"
	"github.com/neilberkman/docchat/pkg/selection"
)

var (
	ErrNoFiles      = errors.New("no files selected")
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoDocuments  = errors.New("upload documents before asking questions")
	ErrClosed       = errors.New("session closed")
	ErrSuperseded   = errors.New("chat was reset")
)

// Archiver stores finished sessions
type Archiver interface {
	ArchiveSession(ctx context.Context, s models.ArchivedSession) error
}

// Options configures a Controller
type Options struct {
	Backend   upload.Backend
	Responder llm.Responder
	Archive   Archiver // Optional

	NewID func() string    // Defaults to uuid.NewString
	Now   func() time.Time // Defaults to time.Now
}

// Controller owns the current session. All mutation goes through Reduce
// under mu, so transitions are applied one at a time in dispatch order.
type Controller struct {
	orch      *upload.Orchestrator
	responder llm.Responder
	archive   Archiver
	newID     func() string
	now       func() time.Time

	mu      sync.Mutex
	state   State
	ctx     context.Context // Scope of the current session's async work
	cancel  context.CancelFunc
	started time.Time

	answers sync.WaitGroup

	subsMu  sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
	closed  bool
}

// NewController creates a controller with a fresh session
func NewController(opts Options) *Controller {
	c := &Controller{
		orch:      upload.New(opts.Backend),
		responder: opts.Responder,
		archive:   opts.Archive,
		newID:     opts.NewID,
		now:       opts.Now,
		subs:      make(map[int]chan struct{}),
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.now == nil {
		c.now = time.Now
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.state = NewState(c.newID())
	c.started = c.now()
	return c
}

// Snapshot returns the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the id of the current session
func (c *Controller) SessionID() string {
	return c.Snapshot().SessionID
}

// Dispatch applies an event and any follow-ups it produces
func (c *Controller) Dispatch(e Event) {
	c.mu.Lock()
	c.apply(e)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) apply(e Event) {
	queue := []Event{e}
	for len(queue) > 0 {
		var follow []Event
		c.state, follow = Reduce(c.state, queue[0])
		queue = append(queue[1:], follow...)

		for _, f := range follow {
			if bc, ok := f.(BatchCompleted); ok {
				logging.Info().
					Str("session", bc.SessionID).
					Int("ready", len(bc.Ready)).
					Int("failed", len(bc.Failed)).
					Msg("upload batch complete")
			}
		}
	}
}

// SelectFiles starts uploading a batch and returns the new record ids
func (c *Controller) SelectFiles(files []selection.File) ([]string, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	batchID := c.newID()
	recs := make([]models.FileRecord, 0, len(files))
	ids := make([]string, 0, len(files))
	for _, f := range files {
		rec := models.FileRecord{
			ID:       c.newID(),
			BatchID:  batchID,
			Name:     f.Name,
			Size:     f.Size,
			MimeType: f.MimeType,
			Path:     f.Path,
			Status:   models.StatusUploading,
		}
		recs = append(recs, rec)
		ids = append(ids, rec.ID)
	}

	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	sessionID := c.state.SessionID
	c.apply(FilesSelected{SessionID: sessionID, BatchID: batchID, Files: recs})
	// Started under mu so Close cannot begin waiting before the workers exist
	c.orch.Start(c.ctx, sessionID, recs, c)
	c.mu.Unlock()
	c.notify()

	return ids, nil
}

// SendMessage appends a user turn and asks the responder in the background.
// It returns the id of the user message.
func (c *Controller) SendMessage(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if !c.state.HasUploadedFiles() {
		c.mu.Unlock()
		return "", ErrNoDocuments
	}

	conversation := c.state.Messages()
	c.apply(MessageSent{SessionID: c.state.SessionID, Text: text, At: c.now()})
	msgs := c.state.messages
	msgID := msgs[len(msgs)-1].ID

	req := llm.Request{
		SessionID:    c.state.SessionID,
		Question:     text,
		Conversation: conversation,
		Files:        c.state.ReadyFiles(),
	}
	ctx := c.ctx
	c.answers.Add(1)
	c.mu.Unlock()
	c.notify()

	go c.answer(ctx, msgID, req)
	return msgID, nil
}

func (c *Controller) answer(ctx context.Context, msgID string, req llm.Request) {
	defer c.answers.Done()

	content, err := c.responder.Answer(ctx, req)
	if ctx.Err() != nil {
		// Session was replaced; the reducer would drop the event anyway
		return
	}

	if err != nil {
		logging.Warn().Err(err).Str("session", req.SessionID).Msg("answer failed")
		c.Dispatch(MessageFailed{SessionID: req.SessionID, ReplyTo: msgID, Err: err.Error(), At: c.now()})
		return
	}
	c.Dispatch(MessageAnswered{SessionID: req.SessionID, ReplyTo: msgID, Content: content, At: c.now()})
}

// ToggleSidebar flips sidebar visibility
func (c *Controller) ToggleSidebar() {
	c.Dispatch(SidebarToggled{SessionID: c.SessionID()})
}

// NewChat abandons in-flight work, archives the session and starts a new
// one. It returns the new session id.
func (c *Controller) NewChat() string {
	// Must run before taking mu: workers may be blocked on mu inside a sink call
	c.orch.Cancel()

	c.mu.Lock()
	if c.ctx.Err() != nil {
		// Closed
		id := c.state.SessionID
		c.mu.Unlock()
		return id
	}
	c.cancel()
	old := c.state
	oldStarted := c.started

	c.ctx, c.cancel = context.WithCancel(context.Background())
	newID := c.newID()
	c.apply(NewChat{SessionID: newID})
	c.started = c.now()
	c.mu.Unlock()
	c.notify()

	logging.Info().Str("previous", old.SessionID).Str("session", newID).Msg("new chat")
	c.archiveState(old, oldStarted)
	return newID
}

// Wait blocks until uploads and answers in flight have finished
func (c *Controller) Wait() {
	c.orch.Wait()
	c.answers.Wait()
}

// Close stops background work and archives the current session. Later
// calls to SelectFiles and SendMessage fail with ErrClosed.
func (c *Controller) Close() {
	c.subsMu.Lock()
	if c.closed {
		c.subsMu.Unlock()
		return
	}
	c.closed = true
	c.subsMu.Unlock()

	c.orch.Cancel()

	c.mu.Lock()
	c.cancel()
	state := c.state
	started := c.started
	c.mu.Unlock()

	c.Wait()
	c.archiveState(state, started)

	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()
}

// Subscribe returns a channel that receives a value after state changes.
// Notifications coalesce: a slow reader sees one pending signal, then reads
// the latest Snapshot.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	c.subsMu.Lock()
	if c.closed {
		c.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subsMu.Unlock()

	return ch, func() {
		c.subsMu.Lock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
		c.subsMu.Unlock()
	}
}

// Await blocks until done holds for the current state, ctx ends, or the
// controller closes
func (c *Controller) Await(ctx context.Context, done func(State) bool) (State, error) {
	changes, unsubscribe := c.Subscribe()
	defer unsubscribe()

	for {
		s := c.Snapshot()
		if done(s) {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return c.Snapshot(), ErrClosed
			}
		}
	}
}

// AwaitReply blocks until the user message msgID has an answer or an error
// turn. It fails with ErrSuperseded if a new chat replaces the session.
func (c *Controller) AwaitReply(ctx context.Context, msgID string) (models.Message, error) {
	var reply models.Message
	var answered, gone bool
	_, err := c.Await(ctx, func(s State) bool {
		sent := false
		for _, m := range s.messages {
			if m.ID == msgID {
				sent = true
			}
			if m.ReplyTo == msgID {
				reply, answered = m, true
				return true
			}
		}
		gone = !sent
		return gone
	})
	if err != nil {
		return models.Message{}, err
	}
	if !answered && gone {
		return models.Message{}, ErrSuperseded
	}
	return reply, nil
}

// AwaitUploads blocks until no batch is in flight. fileIDs are the records
// returned by SelectFiles; if any of them leaves the session, a new chat
// replaced it and ErrSuperseded is returned.
func (c *Controller) AwaitUploads(ctx context.Context, fileIDs []string) (State, error) {
	var gone bool
	s, err := c.Await(ctx, func(s State) bool {
		for _, id := range fileIDs {
			if _, ok := s.Files.Get(id); !ok {
				gone = true
				return true
			}
		}
		_, active := s.ActiveBatch()
		return !active
	})
	if err != nil {
		return s, err
	}
	if gone {
		return s, ErrSuperseded
	}
	return s, nil
}

func (c *Controller) notify() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Progress implements upload.Sink
func (c *Controller) Progress(sessionID, fileID string, pct int) {
	c.Dispatch(ProgressTicked{SessionID: sessionID, FileID: fileID, Progress: pct})
}

// Stage implements upload.Sink
func (c *Controller) Stage(sessionID, fileID string, status models.Status, err error) {
	ev := StageAdvanced{SessionID: sessionID, FileID: fileID, Status: status, At: c.now()}
	if err != nil {
		ev.Err = err.Error()
	}
	c.Dispatch(ev)
}

func (c *Controller) archiveState(s State, started time.Time) {
	if c.archive == nil || len(s.messages) == 0 {
		return
	}

	archived := models.ArchivedSession{
		SessionID:    s.SessionID,
		Title:        sessionTitle(s),
		FileCount:    s.Files.Len(),
		MessageCount: len(s.messages),
		CreatedAt:    started,
		UpdatedAt:    s.messages[len(s.messages)-1].Timestamp,
		Files:        s.Files.All(),
		Messages:     s.Messages(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.archive.ArchiveSession(ctx, archived); err != nil {
		logging.Error().Err(err).Str("session", s.SessionID).Msg("failed to archive session")
	}
}

func sessionTitle(s State) string {
	for _, m := range s.messages {
		if m.IsUser() {
			return m.Content
		}
	}
	var names []string
	for _, f := range s.Files.All() {
		names = append(names, f.Name)
	}
	return strings.Join(names, ", ")
}
