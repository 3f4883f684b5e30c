package session

import (
	"testing"
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
)

func selectBatch(s State, batchID string, names ...string) State {
	var files []models.FileRecord
	for _, n := range names {
		files = append(files, models.FileRecord{ID: n, Name: n})
	}
	s, _ = Reduce(s, FilesSelected{SessionID: s.SessionID, BatchID: batchID, Files: files})
	return s
}

// apply runs e and its follow-ups the way the controller does
func apply(s State, e Event) State {
	queue := []Event{e}
	for len(queue) > 0 {
		var follow []Event
		s, follow = Reduce(s, queue[0])
		queue = append(queue[1:], follow...)
	}
	return s
}

func finish(s State, id string, status models.Status) State {
	s = apply(s, StageAdvanced{SessionID: s.SessionID, FileID: id, Status: models.StatusProcessing})
	return apply(s, StageAdvanced{SessionID: s.SessionID, FileID: id, Status: status, Err: errFor(status)})
}

func errFor(status models.Status) string {
	if status == models.StatusError {
		return "processing failed"
	}
	return ""
}

func TestReduce_InitialState(t *testing.T) {
	s := NewState("s1")
	if s.Mode() != UploadMode {
		t.Errorf("initial mode = %s, want upload", s.Mode())
	}
	if s.SidebarVisible {
		t.Error("sidebar should start hidden")
	}
	if s.OverallProgress() != 0 {
		t.Errorf("progress with no files = %d", s.OverallProgress())
	}
}

func TestReduce_SingleFileSummary(t *testing.T) {
	s := selectBatch(NewState("s1"), "b1", "report.pdf")
	s = apply(s, ProgressTicked{SessionID: "s1", FileID: "report.pdf", Progress: 50})
	if got := s.OverallProgress(); got != 50 {
		t.Errorf("progress = %d, want 50", got)
	}

	s = finish(s, "report.pdf", models.StatusReady)

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	want := "report.pdf file is processed. Now you can ask questions about it."
	if msgs[0].Content != want || msgs[0].Role != models.RoleAssistant {
		t.Errorf("summary = %q (%s)", msgs[0].Content, msgs[0].Role)
	}
	if s.Mode() != ChatMode {
		t.Errorf("mode = %s, want chat", s.Mode())
	}
	if !s.SidebarVisible {
		t.Error("sidebar should be visible after the first batch")
	}
}

func TestReduce_MultiFileSummary(t *testing.T) {
	s := selectBatch(NewState("s1"), "b1", "a.txt", "b.txt")
	s = finish(s, "a.txt", models.StatusReady)
	if len(s.Messages()) != 0 {
		t.Fatal("batch must not complete before its last record")
	}
	if s.Mode() != UploadMode {
		t.Error("mode should stay upload while the batch is in flight")
	}
	s = finish(s, "b.txt", models.StatusReady)

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	want := "2 files are processed. Now you can ask questions about them."
	if msgs[0].Content != want {
		t.Errorf("summary = %q", msgs[0].Content)
	}
}

func TestReduce_OutOfOrderCompletionFiresOnce(t *testing.T) {
	s := selectBatch(NewState("s1"), "b1", "a", "b", "c")

	// The structurally last record finishes first
	s = finish(s, "c", models.StatusReady)
	s = finish(s, "a", models.StatusReady)
	if len(s.Messages()) != 0 {
		t.Fatal("completed early")
	}
	s = finish(s, "b", models.StatusReady)

	if got := len(s.Messages()); got != 1 {
		t.Fatalf("expected exactly one summary, got %d", got)
	}

	// Duplicate terminal notifications change nothing
	s = apply(s, StageAdvanced{SessionID: "s1", FileID: "b", Status: models.StatusReady})
	s = apply(s, BatchCompleted{SessionID: "s1", BatchID: "b1", Ready: []string{"a", "b", "c"}})
	if got := len(s.Messages()); got != 1 {
		t.Errorf("summary fired again: %d messages", got)
	}
}

func TestReduce_FailureStillCompletesBatch(t *testing.T) {
	s := selectBatch(NewState("s1"), "b1", "a.txt", "b.txt")
	s = finish(s, "a.txt", models.StatusReady)
	s = finish(s, "b.txt", models.StatusError)

	b, _ := s.Files.Get("b.txt")
	if b.Status != models.StatusError || b.Err != "processing failed" {
		t.Errorf("b.txt = %+v", b)
	}
	a, _ := s.Files.Get("a.txt")
	if a.Status != models.StatusReady {
		t.Errorf("a.txt = %s", a.Status)
	}

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected summary, got %d messages", len(msgs))
	}
	want := "a.txt file is processed. Now you can ask questions about it. 1 file could not be processed: b.txt."
	if msgs[0].Content != want {
		t.Errorf("summary = %q", msgs[0].Content)
	}
	if s.Mode() != ChatMode {
		t.Errorf("mode = %s, want chat", s.Mode())
	}
}

func TestReduce_AllFailedKeepsUploadMode(t *testing.T) {
	s := selectBatch(NewState("s1"), "b1", "a.txt")
	s = apply(s, StageAdvanced{SessionID: "s1", FileID: "a.txt", Status: models.StatusError, Err: "transfer failed"})

	msgs := s.Messages()
	if len(msgs) != 1 || !msgs[0].IsError {
		t.Fatalf("expected an error summary, got %+v", msgs)
	}
	if s.Mode() != UploadMode {
		t.Errorf("mode = %s, want upload", s.Mode())
	}
	if s.SidebarVisible {
		t.Error("sidebar should stay hidden")
	}
}

func TestReduce_SecondBatchOverlaysUploadMode(t *testing.T) {
	s := selectBatch(NewState("s1"), "b1", "a.txt")
	s = finish(s, "a.txt", models.StatusReady)

	s = selectBatch(s, "b2", "b.txt")
	if s.Mode() != UploadMode {
		t.Errorf("mode during second batch = %s, want upload", s.Mode())
	}
	// a.txt counts as 100, b.txt as 0
	if got := s.OverallProgress(); got != 50 {
		t.Errorf("progress = %d, want 50", got)
	}

	s = finish(s, "b.txt", models.StatusReady)
	if s.Mode() != ChatMode {
		t.Errorf("mode after second batch = %s, want chat", s.Mode())
	}
	if got := len(s.Messages()); got != 2 {
		t.Errorf("expected one summary per batch, got %d", got)
	}
}

func TestReduce_ProgressNeverDecreases(t *testing.T) {
	s := selectBatch(NewState("s1"), "b1", "a")
	s = apply(s, ProgressTicked{SessionID: "s1", FileID: "a", Progress: 60})
	s = apply(s, ProgressTicked{SessionID: "s1", FileID: "a", Progress: 30})

	rec, _ := s.Files.Get("a")
	if rec.Progress != 60 {
		t.Errorf("progress = %d, want 60", rec.Progress)
	}

	s = finish(s, "a", models.StatusReady)
	s = apply(s, ProgressTicked{SessionID: "s1", FileID: "a", Progress: 70})
	rec, _ = s.Files.Get("a")
	if rec.Status != models.StatusReady {
		t.Errorf("ready record regressed to %s", rec.Status)
	}
}

func TestReduce_ReadyRequiresProcessing(t *testing.T) {
	s := selectBatch(NewState("s1"), "b1", "a")
	s = apply(s, StageAdvanced{SessionID: "s1", FileID: "a", Status: models.StatusReady})

	rec, _ := s.Files.Get("a")
	if rec.Status != models.StatusUploading {
		t.Errorf("status = %s, want uploading", rec.Status)
	}
	if _, active := s.ActiveBatch(); !active {
		t.Error("batch completed without processing")
	}
	if s.HasUploadedFiles() {
		t.Error("chat unlocked by a skipped stage")
	}
}

func TestReduce_IgnoresOtherSessions(t *testing.T) {
	s := selectBatch(NewState("s1"), "b1", "a")
	next := apply(s, ProgressTicked{SessionID: "old", FileID: "a", Progress: 90})
	next = apply(next, StageAdvanced{SessionID: "old", FileID: "a", Status: models.StatusError})

	rec, _ := next.Files.Get("a")
	if rec.Progress != 0 || rec.Status != models.StatusUploading {
		t.Errorf("stale event applied: %+v", rec)
	}
}

func TestReduce_MessageRoundTrip(t *testing.T) {
	s := selectBatch(NewState("s1"), "b1", "a")
	s = finish(s, "a", models.StatusReady)

	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s = apply(s, MessageSent{SessionID: "s1", Text: "hello", At: at})
	s = apply(s, MessageSent{SessionID: "s1", Text: "hello", At: at})

	msgs := s.Messages()
	userA, userB := msgs[1], msgs[2]
	if userA.ID == userB.ID {
		t.Fatalf("same-timestamp messages share id %s", userA.ID)
	}
	if !s.Awaiting() {
		t.Error("expected pending answers")
	}

	s = apply(s, MessageAnswered{SessionID: "s1", ReplyTo: userA.ID, Content: "first"})
	s = apply(s, MessageFailed{SessionID: "s1", ReplyTo: userB.ID, Err: "timed out"})
	// A second answer for the same question is dropped
	s = apply(s, MessageAnswered{SessionID: "s1", ReplyTo: userA.ID, Content: "again"})

	msgs = s.Messages()
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	if msgs[3].ReplyTo != userA.ID || msgs[3].Content != "first" {
		t.Errorf("answer = %+v", msgs[3])
	}
	if !msgs[4].IsError || msgs[4].ReplyTo != userB.ID {
		t.Errorf("failure turn = %+v", msgs[4])
	}
	if s.Awaiting() {
		t.Error("no answers should be pending")
	}

	seen := map[string]bool{}
	for _, m := range msgs {
		if seen[m.ID] {
			t.Errorf("duplicate id %s", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestReduce_NewChatKeepsSidebarChoice(t *testing.T) {
	s := selectBatch(NewState("s1"), "b1", "a")
	s = finish(s, "a", models.StatusReady)
	s = apply(s, SidebarToggled{SessionID: "s1"})
	s = apply(s, SidebarToggled{SessionID: "s1"})
	if !s.SidebarVisible {
		t.Fatal("double toggle should restore visibility")
	}

	next := apply(s, NewChat{SessionID: "s2"})
	if next.SessionID != "s2" {
		t.Errorf("session id = %s", next.SessionID)
	}
	if next.Files.Len() != 0 || len(next.Messages()) != 0 {
		t.Error("files and messages should be cleared")
	}
	if next.Mode() != UploadMode {
		t.Errorf("mode = %s, want upload", next.Mode())
	}
	if !next.SidebarVisible {
		t.Error("sidebar visibility should carry over")
	}

	// Snapshots are independent
	if s.Files.Len() != 1 || len(s.Messages()) != 1 {
		t.Error("previous snapshot was modified")
	}
}

func TestBatchSummary(t *testing.T) {
	tests := []struct {
		name          string
		ready, failed []string
		want          string
	}{
		{"one", []string{"report.pdf"}, nil, "report.pdf file is processed. Now you can ask questions about it."},
		{"two", []string{"a.txt", "b.txt"}, nil, "2 files are processed. Now you can ask questions about them."},
		{"mixed", []string{"a", "b"}, []string{"c", "d"}, "2 files are processed. Now you can ask questions about them. 2 files could not be processed: c, d."},
		{"none", nil, []string{"x.pdf"}, "No files could be processed: x.pdf."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BatchSummary(tt.ready, tt.failed); got != tt.want {
				t.Errorf("BatchSummary() = %q\nwant %q", got, tt.want)
			}
		})
	}
}
