// Package daemon watches an inbox directory and uploads files dropped into it.
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/neilberkman/docchat/internal/core/logging"
	"github.com/neilberkman/docchat/pkg/selection"
)

// DefaultDebounce is how long a file must stay quiet before it is uploaded
const DefaultDebounce = 500 * time.Millisecond

// Uploader receives the files found in the inbox
type Uploader interface {
	SelectFiles(files []selection.File) ([]string, error)
}

// Stats tracks watcher activity
type Stats struct {
	StartTime time.Time
	Submitted int
	Rejected  int
	Errors    int
	LastAdded time.Time
}

// Watcher uploads new and changed files from a directory
type Watcher struct {
	dir      string
	opts     selection.Options
	uploader Uploader
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string]fileStamp
	stats   Stats
	closed  bool
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// NewWatcher starts watching dir. Files already present are not uploaded.
func NewWatcher(dir string, opts selection.Options, uploader Uploader) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch path does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path is not a directory: %s", dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:      dir,
		opts:     opts,
		uploader: uploader,
		debounce: DefaultDebounce,
		watcher:  fw,
		pending:  make(map[string]*time.Timer),
		seen:     make(map[string]fileStamp),
		stats:    Stats{StartTime: time.Now()},
	}, nil
}

// SetDebounce overrides DefaultDebounce. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run processes events until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	logging.Info().Str("dir", w.dir).Msg("watching inbox")
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("inbox watcher shutting down")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if w.shouldProcessEvent(event) {
				logging.Debug().Str("op", event.Op.String()).Str("path", event.Name).Msg("inbox event")
				w.queue(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			logging.Warn().Err(err).Msg("watcher error")
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		}
	}
}

// Stats returns a copy of the activity counters
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create
}

// queue restarts the quiet period for path
func (w *Watcher) queue(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.submit(path)
	})
}

func (w *Watcher) submit(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	if prev, ok := w.seen[path]; ok && prev == stamp {
		w.mu.Unlock()
		return
	}
	w.seen[path] = stamp
	w.mu.Unlock()

	files, rejected := selection.Resolve(w.opts, path)
	for _, r := range rejected {
		logging.Warn().Str("path", r.Path).Str("reason", r.Reason).Msg("inbox file skipped")
	}
	if len(files) == 0 {
		w.mu.Lock()
		w.stats.Rejected += len(rejected)
		w.mu.Unlock()
		return
	}

	ids, err := w.uploader.SelectFiles(files)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Rejected += len(rejected)
	if err != nil {
		logging.Error().Err(err).Str("path", path).Msg("inbox upload failed")
		w.stats.Errors++
		return
	}
	w.stats.Submitted += len(ids)
	w.stats.LastAdded = time.Now()
	logging.Info().Str("file", filepath.Base(path)).Msg("inbox file queued")
}

func (w *Watcher) stop() {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}
