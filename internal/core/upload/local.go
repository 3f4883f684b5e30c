package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/neilberkman/docchat/internal/core/models"
)

const copyChunkSize = 64 * 1024

// Registry records processed documents
type Registry interface {
	RegisterDocument(ctx context.Context, doc models.Document) error
}

// Local copies files into a library directory and registers them.
// Transfer progress is the share of bytes written.
type Local struct {
	dir       string
	registry  Registry
	sessionID func() string

	mu     sync.Mutex
	stored map[string]storedCopy // Transferred files waiting for Process
}

type storedCopy struct {
	path string
	stop func() bool // Unregisters the cancellation cleanup
}

// NewLocal creates a local backend. registry may be nil.
func NewLocal(dir string, registry Registry, sessionID func() string) *Local {
	return &Local{
		dir:       dir,
		registry:  registry,
		sessionID: sessionID,
		stored:    make(map[string]storedCopy),
	}
}

func (l *Local) Transfer(ctx context.Context, file models.FileRecord, progress func(int)) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}

	src, err := os.Open(file.Path)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}

	destPath := filepath.Join(l.dir, file.ID+"-"+filepath.Base(file.Name))
	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	total := info.Size()
	written := int64(0)
	buf := make([]byte, copyChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			_ = dst.Close()
			_ = os.Remove(destPath)
			return err
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				_ = dst.Close()
				_ = os.Remove(destPath)
				return fmt.Errorf("failed to write: %w", werr)
			}
			written += int64(n)
			if total > 0 {
				progress(int(written * 100 / total))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = dst.Close()
			_ = os.Remove(destPath)
			return fmt.Errorf("failed to read: %w", rerr)
		}
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close destination: %w", err)
	}

	// A copy that processing never claims is removed when ctx ends
	stop := context.AfterFunc(ctx, func() {
		if _, ok := l.take(file.ID); ok {
			_ = os.Remove(destPath)
		}
	})

	l.mu.Lock()
	l.stored[file.ID] = storedCopy{path: destPath, stop: stop}
	l.mu.Unlock()

	progress(100)
	return nil
}

func (l *Local) Process(ctx context.Context, file models.FileRecord) error {
	stored, ok := l.take(file.ID)
	if !ok {
		return fmt.Errorf("file %s was not transferred", file.Name)
	}
	stored.stop()
	path := stored.path

	err := l.process(ctx, file, path)
	if ctx.Err() != nil {
		_ = os.Remove(path)
	}
	return err
}

func (l *Local) pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.stored)
}

func (l *Local) take(fileID string) (storedCopy, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.stored[fileID]
	if ok {
		delete(l.stored, fileID)
	}
	return c, ok
}

func (l *Local) process(ctx context.Context, file models.FileRecord, path string) error {
	hash, err := computeFileHash(path)
	if err != nil {
		return fmt.Errorf("failed to hash file: %w", err)
	}

	if l.registry == nil {
		return nil
	}

	sessionID := ""
	if l.sessionID != nil {
		sessionID = l.sessionID()
	}

	return l.registry.RegisterDocument(ctx, models.Document{
		FileID:     file.ID,
		SessionID:  sessionID,
		Name:       file.Name,
		MimeType:   file.MimeType,
		Size:       file.Size,
		StoredPath: path,
		SHA256:     hash,
	})
}

func computeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
