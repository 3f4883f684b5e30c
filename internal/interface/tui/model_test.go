package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/docchat/internal/core/llm"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/session"
	"github.com/neilberkman/docchat/internal/core/upload"
	"github.com/neilberkman/docchat/pkg/selection"
)

func newTestModel(t *testing.T) (Model, *session.Controller) {
	t.Helper()
	ctrl := session.NewController(session.Options{
		Backend:   upload.NewSimulated(time.Millisecond, 25, time.Millisecond),
		Responder: llm.NewStub("answer to {{{question}}}", time.Millisecond),
	})
	t.Cleanup(ctrl.Close)

	m := New(Options{Controller: ctrl})
	t.Cleanup(m.Close)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), ctrl
}

func press(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	case "ctrl+o":
		return tea.KeyMsg{Type: tea.KeyCtrlO}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run feeds msg through Update and executes the returned command once
func run(t *testing.T, m Model, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	updated, cmd := m.Update(msg)
	m = updated.(Model)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestModel_HelpToggle(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = run(t, m, press("?"))
	if !m.showHelp {
		t.Fatal("expected help view")
	}
	if !strings.Contains(m.View(), "ANYWHERE") {
		t.Error("help view not rendered")
	}

	m, _ = run(t, m, press("esc"))
	if m.showHelp {
		t.Error("esc should close help")
	}
}

func TestModel_QuestionMarkTypesWhenInputHasText(t *testing.T) {
	m, _ := newTestModel(t)

	m.pathInput.SetValue("a")
	m.pathInput.CursorEnd()
	updated, _ := m.Update(press("?"))
	m = updated.(Model)
	if m.showHelp {
		t.Fatal("help should not open while typing")
	}
	if got := m.pathInput.Value(); got != "a?" {
		t.Errorf("path input = %q, want %q", got, "a?")
	}
}

func TestModel_StageRemoveAndUpload(t *testing.T) {
	m, ctrl := newTestModel(t)
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	b := writeFile(t, dir, "b.txt", "bravo")

	m.pathInput.SetValue(a + " " + b)

	m, msg := run(t, m, press("enter"))
	staged, ok := msg.(stagedMsg)
	if !ok {
		t.Fatalf("expected stagedMsg, got %T", msg)
	}
	m, _ = run(t, m, staged)
	if len(m.staged) != 2 {
		t.Fatalf("expected 2 staged files, got %d", len(m.staged))
	}

	m, _ = run(t, m, press("down"))
	m, _ = run(t, m, press("ctrl+x"))
	if len(m.staged) != 1 || m.staged[0].Name != "a.txt" {
		t.Fatalf("expected only a.txt staged, got %+v", m.staged)
	}

	m, msg = run(t, m, press("enter"))
	started, ok := msg.(uploadStartedMsg)
	if !ok {
		t.Fatalf("expected uploadStartedMsg, got %T (%v)", msg, msg)
	}
	if len(started.ids) != 1 {
		t.Errorf("expected 1 upload, got %d", len(started.ids))
	}
	if len(m.staged) != 0 {
		t.Error("staged files should be cleared after upload")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := ctrl.Await(ctx, func(s session.State) bool { return s.Mode() == session.ChatMode }); err != nil {
		t.Fatalf("upload did not complete: %v", err)
	}

	m, _ = run(t, m, stateChangedMsg{})
	if !m.inChat() {
		t.Fatal("expected chat view after batch completes")
	}
	view := m.View()
	if !strings.Contains(view, "a.txt file is processed") {
		t.Errorf("chat view missing summary message:\n%s", view)
	}
	if !strings.Contains(view, "Documents") {
		t.Error("sidebar should be visible after first batch")
	}
}

func TestModel_RejectedPathsShown(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = run(t, m, stagePaths(selection.Options{}, "/does/not/exist.txt")())
	if len(m.rejected) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(m.rejected))
	}
	if !strings.Contains(m.View(), "exist.txt") {
		t.Error("rejection not rendered")
	}
}

func TestModel_SendRequiresDocuments(t *testing.T) {
	m, ctrl := newTestModel(t)

	msg := sendMessage(ctrl, "hello")()
	failed, ok := msg.(errMsg)
	if !ok || !errors.Is(failed.err, session.ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", msg)
	}
	m, _ = run(t, m, failed)
	if m.err != nil {
		t.Fatalf("missing documents should be a notice, got fatal %v", m.err)
	}
	if m.notice != session.ErrNoDocuments.Error() {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestModel_VoiceUnavailable(t *testing.T) {
	m, _ := newTestModel(t)
	m = m.toggleRecording()
	if m.recording {
		t.Error("recording should stay off without a capability")
	}
	if m.notice != "Voice input is not available" {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestRenderConversation(t *testing.T) {
	ts := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	msgs := []models.Message{
		{ID: "1", Role: models.RoleUser, Content: "what is the total?", Timestamp: ts},
		{ID: "2", Role: models.RoleAssistant, Content: "The total is 42.", Timestamp: ts, ReplyTo: "1"},
		{ID: "3", Role: models.RoleAssistant, Content: "request timed out", Timestamp: ts, IsError: true},
	}

	out := renderConversation(msgs, "", 60)
	for _, want := range []string{"YOU", "what is the total?", "ASSISTANT", "The total is 42.", "ERROR", "10:30"} {
		if !strings.Contains(out, want) {
			t.Errorf("conversation missing %q", want)
		}
	}
	if strings.Contains(out, "thinking") {
		t.Error("no pending indicator expected")
	}

	if !strings.Contains(renderConversation(msgs[:1], "*", 60), "thinking...") {
		t.Error("pending indicator expected")
	}
	if !strings.Contains(renderConversation(nil, "", 60), "No messages yet.") {
		t.Error("empty conversation placeholder expected")
	}
}

func TestRenderConversation_Wraps(t *testing.T) {
	long := strings.Repeat("word ", 40)
	out := renderConversation([]models.Message{{Role: models.RoleAssistant, Content: long}}, "", 30)
	if !strings.Contains(out, "word\nword") && !strings.Contains(out, "word \nword") {
		t.Errorf("expected wrapped content, got:\n%s", out)
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name   string
		pct    int
		width  int
		filled int
		label  string
	}{
		{"empty", 0, 50, 0, "  0%"},
		{"half", 50, 50, 20, " 50%"},
		{"full", 100, 50, 40, "100%"},
		{"clamped high", 150, 50, 40, "100%"},
		{"clamped low", -5, 50, 0, "  0%"},
		{"narrow", 50, 5, 5, " 50%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderProgressBar(tt.pct, tt.width)
			if n := strings.Count(got, "█"); n != tt.filled {
				t.Errorf("filled = %d, want %d (%s)", n, tt.filled, got)
			}
			if !strings.HasSuffix(got, tt.label) {
				t.Errorf("got %q, want suffix %q", got, tt.label)
			}
		})
	}
}

func TestMergeAndRemoveStaged(t *testing.T) {
	a := selection.File{Name: "a.txt", Path: "/x/a.txt"}
	b := selection.File{Name: "b.txt", Path: "/x/b.txt"}
	c := selection.File{Name: "c.txt", Path: "/x/c.txt"}

	staged := mergeStaged([]selection.File{a}, []selection.File{a, b, c})
	if len(staged) != 3 {
		t.Fatalf("expected 3 staged after merge, got %d", len(staged))
	}

	staged, idx := removeStaged(staged, 2)
	if len(staged) != 2 || idx != 1 {
		t.Errorf("after removing last: len=%d idx=%d", len(staged), idx)
	}
	staged, idx = removeStaged(staged, 0)
	if len(staged) != 1 || staged[0].Name != "b.txt" || idx != 0 {
		t.Errorf("after removing first: %+v idx=%d", staged, idx)
	}
	staged, idx = removeStaged(staged, 0)
	if len(staged) != 0 || idx != 0 {
		t.Errorf("after removing all: len=%d idx=%d", len(staged), idx)
	}
	if _, idx = removeStaged(staged, 0); idx != 0 {
		t.Errorf("removing from empty should keep idx 0, got %d", idx)
	}
}

func TestLastAnswer(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleAssistant, Content: "first"},
		{Role: models.RoleUser, Content: "q"},
		{Role: models.RoleAssistant, Content: "oops", IsError: true},
	}
	got, ok := lastAnswer(msgs)
	if !ok || got != "first" {
		t.Errorf("lastAnswer = %q, %v", got, ok)
	}
	if _, ok := lastAnswer(msgs[1:]); ok {
		t.Error("expected no answer")
	}
}
