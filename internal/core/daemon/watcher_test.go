package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neilberkman/docchat/pkg/selection"
)

type fakeUploader struct {
	got chan []selection.File
}

func (f *fakeUploader) SelectFiles(files []selection.File) ([]string, error) {
	f.got <- files
	ids := make([]string, len(files))
	for i, file := range files {
		ids[i] = file.Name
	}
	return ids, nil
}

func startWatcher(t *testing.T, opts selection.Options) (string, *Watcher, *fakeUploader) {
	t.Helper()
	dir := t.TempDir()
	up := &fakeUploader{got: make(chan []selection.File, 10)}

	w, err := NewWatcher(dir, opts, up)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return dir, w, up
}

func TestWatcher_UploadsNewFile(t *testing.T) {
	dir, w, up := startWatcher(t, selection.Options{})

	path := filepath.Join(dir, "minutes.txt")
	if err := os.WriteFile(path, []byte("board meeting minutes"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case files := <-up.got:
		if len(files) != 1 || files[0].Name != "minutes.txt" {
			t.Fatalf("uploaded %+v", files)
		}
		if files[0].Size != int64(len("board meeting minutes")) {
			t.Errorf("Size = %d", files[0].Size)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("file was never uploaded")
	}

	if w.Stats().Submitted != 1 {
		t.Errorf("Submitted = %d", w.Stats().Submitted)
	}
}

func TestWatcher_SkipsHiddenAndRejected(t *testing.T) {
	dir, w, up := startWatcher(t, selection.Options{Strict: true})

	if err := os.WriteFile(filepath.Join(dir, ".draft.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bundle.zip"), []byte("PK"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# notes"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case files := <-up.got:
		if len(files) != 1 || files[0].Name != "notes.md" {
			t.Fatalf("uploaded %+v", files)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notes.md was never uploaded")
	}

	// Give the zip's debounce time to fire
	time.Sleep(200 * time.Millisecond)
	select {
	case files := <-up.got:
		t.Fatalf("unexpected upload %+v", files)
	default:
	}

	if w.Stats().Rejected != 1 {
		t.Errorf("Rejected = %d", w.Stats().Rejected)
	}
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), selection.Options{}, &fakeUploader{})
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
