// Package speech provides optional voice dictation.
//
// A Capability is injected at startup. When none is configured the Recorder
// reports ErrUnavailable and voice input stays disabled. A capability that
// fails is recreated once and retried; a second failure is surfaced.
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neilberkman/docchat/internal/core/logging"
)

var ErrUnavailable = errors.New("speech capture unavailable")

// Handler receives capture callbacks. Any field may be nil.
type Handler struct {
	OnTranscript func(text string, final bool)
	OnEnd        func()
	OnError      func(err error)
}

// Capability is a speech-to-text source
type Capability interface {
	Start(ctx context.Context, h Handler) error
	Stop() error
}

// Factory builds a fresh capability, used again after a failure
type Factory func() (Capability, error)

// Recorder tracks dictation state around a capability
type Recorder struct {
	factory Factory

	mu        sync.Mutex
	cap       Capability
	recording bool
	cancel    context.CancelFunc
	draft     string
	handler   Handler
}

// NewRecorder creates a recorder. A nil factory means no capability.
func NewRecorder(factory Factory) *Recorder {
	return &Recorder{factory: factory}
}

// Available reports whether voice input can be used at all
func (r *Recorder) Available() bool {
	return r.factory != nil
}

// Recording reports whether dictation is active
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Draft returns the latest transcript
func (r *Recorder) Draft() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

// Toggle starts dictation when idle and stops it when recording.
// It returns the recording state after the call.
func (r *Recorder) Toggle(h Handler) (bool, error) {
	if r.Recording() {
		return false, r.Stop()
	}
	if err := r.Start(h); err != nil {
		return false, err
	}
	return true, nil
}

// Start begins dictation. Transcripts overwrite the draft.
func (r *Recorder) Start(h Handler) error {
	if r.factory == nil {
		return ErrUnavailable
	}

	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return nil
	}
	r.handler = h
	r.draft = ""
	r.mu.Unlock()

	err := r.startOnce()
	if err == nil {
		return nil
	}

	logging.Warn().Err(err).Msg("speech capture failed to start, recreating")
	r.reset()

	if err := r.startOnce(); err != nil {
		r.reset()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Stop ends dictation
func (r *Recorder) Stop() error {
	r.mu.Lock()
	c := r.cap
	cancel := r.cancel
	r.recording = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c == nil {
		return nil
	}
	return c.Stop()
}

func (r *Recorder) startOnce() error {
	r.mu.Lock()
	if r.cap == nil {
		c, err := r.factory()
		if err != nil {
			r.mu.Unlock()
			return err
		}
		r.cap = c
	}
	c := r.cap
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.recording = true
	r.mu.Unlock()

	if err := c.Start(ctx, r.wrap(c)); err != nil {
		cancel()
		return err
	}
	return nil
}

// wrap routes capability callbacks through the recorder. Callbacks from a
// capability that has since been replaced are ignored.
func (r *Recorder) wrap(c Capability) Handler {
	current := func() (Handler, bool) {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.handler, r.cap == c
	}

	return Handler{
		OnTranscript: func(text string, final bool) {
			r.mu.Lock()
			if r.cap != c {
				r.mu.Unlock()
				return
			}
			r.draft = text
			h := r.handler
			r.mu.Unlock()
			if h.OnTranscript != nil {
				h.OnTranscript(text, final)
			}
		},
		OnEnd: func() {
			h, ok := current()
			if !ok {
				return
			}
			r.mu.Lock()
			r.recording = false
			r.mu.Unlock()
			if h.OnEnd != nil {
				h.OnEnd()
			}
		},
		OnError: func(err error) {
			h, ok := current()
			if !ok {
				return
			}
			logging.Warn().Err(err).Msg("speech capture error")
			r.reset()
			if h.OnError != nil {
				h.OnError(fmt.Errorf("%w: %v", ErrUnavailable, err))
			}
		},
	}
}

// reset returns to "not recording" and discards the capability so the next
// start builds a new one.
func (r *Recorder) reset() {
	r.mu.Lock()
	c := r.cap
	cancel := r.cancel
	r.recording = false
	r.cancel = nil
	r.cap = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		_ = c.Stop()
	}
}
