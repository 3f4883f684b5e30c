// Package upload drives selected files through transfer and processing.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neilberkman/docchat/internal/core/logging"
	"github.com/neilberkman/docchat/internal/core/models"
)

var (
	ErrTransferFailed   = errors.New("transfer failed")
	ErrProcessingFailed = errors.New("processing failed")
)

// Transferer moves a file's bytes to the backend, reporting percent complete
type Transferer interface {
	Transfer(ctx context.Context, file models.FileRecord, progress func(int)) error
}

// Processor runs the post-transfer step (extraction, indexing)
type Processor interface {
	Process(ctx context.Context, file models.FileRecord) error
}

// Backend is the transfer and processing pair the orchestrator drives
type Backend interface {
	Transferer
	Processor
}

// Sink receives stage notifications. Implementations must not block for long:
// they are called from worker goroutines while cancellation waits on them.
type Sink interface {
	Progress(sessionID, fileID string, pct int)
	Stage(sessionID, fileID string, status models.Status, err error)
}

// Orchestrator runs one worker per file record
type Orchestrator struct {
	backend Backend

	mu      sync.Mutex
	cancels []context.CancelFunc

	// Workers hold gate for reading while they notify the sink, Cancel holds
	// it for writing, so no notification starts after Cancel returns.
	gate sync.RWMutex
	wg   sync.WaitGroup
}

// New creates an orchestrator for the given backend
func New(backend Backend) *Orchestrator {
	return &Orchestrator{backend: backend}
}

// Start launches workers for a batch. It returns immediately.
func (o *Orchestrator) Start(ctx context.Context, sessionID string, files []models.FileRecord, sink Sink) {
	ctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	o.cancels = append(o.cancels, cancel)
	o.mu.Unlock()

	logging.Info().
		Str("session", sessionID).
		Int("files", len(files)).
		Msg("upload batch started")

	for _, f := range files {
		o.wg.Add(1)
		go o.run(ctx, sessionID, f, sink)
	}
}

// Cancel stops every in-flight batch. No sink call begins after it returns.
func (o *Orchestrator) Cancel() {
	o.gate.Lock()
	defer o.gate.Unlock()

	o.mu.Lock()
	for _, cancel := range o.cancels {
		cancel()
	}
	n := len(o.cancels)
	o.cancels = nil
	o.mu.Unlock()

	if n > 0 {
		logging.Debug().Int("batches", n).Msg("upload batches cancelled")
	}
}

// Wait blocks until every started worker has returned
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, sessionID string, file models.FileRecord, sink Sink) {
	defer o.wg.Done()

	emit := func(fn func()) {
		o.gate.RLock()
		defer o.gate.RUnlock()
		if ctx.Err() != nil {
			return
		}
		fn()
	}

	last := 0
	report := func(pct int) {
		if pct > 100 {
			pct = 100
		}
		if pct <= last {
			return
		}
		last = pct
		emit(func() { sink.Progress(sessionID, file.ID, pct) })
	}

	err := o.backend.Transfer(ctx, file, report)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logging.Warn().Err(err).Str("file", file.Name).Msg("transfer failed")
		emit(func() {
			sink.Stage(sessionID, file.ID, models.StatusError, fmt.Errorf("%w: %v", ErrTransferFailed, err))
		})
		return
	}
	report(100)

	emit(func() { sink.Stage(sessionID, file.ID, models.StatusProcessing, nil) })

	err = o.backend.Process(ctx, file)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logging.Warn().Err(err).Str("file", file.Name).Msg("processing failed")
		emit(func() {
			sink.Stage(sessionID, file.ID, models.StatusError, fmt.Errorf("%w: %v", ErrProcessingFailed, err))
		})
		return
	}

	logging.Debug().Str("file", file.Name).Msg("file ready")
	emit(func() { sink.Stage(sessionID, file.ID, models.StatusReady, nil) })
}
