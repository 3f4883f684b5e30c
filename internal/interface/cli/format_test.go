package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/records"
	"github.com/neilberkman/docchat/internal/core/session"
)

func TestTruncateSummary(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short", "hello world", 20, "hello world"},
		{"whitespace collapsed", "hello\n\n  world", 20, "hello world"},
		{"cut at word", "the quick brown fox jumps over the lazy dog", 25, "the quick brown fox..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateSummary(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "", want: time.Time{}},
		{input: "2024-06-01", want: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{input: "2024/05/20", want: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)},
		{input: "not a date at all", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSince(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSince(%q) error = %v", tt.input, err)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("parseSince(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	t.Run("natural language", func(t *testing.T) {
		got, err := parseSince("yesterday", now)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Before(now) || now.Sub(got) > 48*time.Hour {
			t.Errorf("yesterday resolved to %v", got)
		}
	})
}

func TestRenderProgressLine(t *testing.T) {
	store, _ := records.Store{}.AddBatch([]models.FileRecord{
		{ID: "a", Name: "a.txt", Status: models.StatusUploading, Progress: 50},
		{ID: "b", Name: "b.txt", Status: models.StatusReady, Progress: 100},
	})
	s := session.NewState("s1")
	s.Files = store

	line := renderProgressLine(s, 20)
	if !strings.Contains(line, " 75% (1/2)") {
		t.Errorf("line = %q", line)
	}
	if !strings.Contains(line, "a.txt uploading 50%") {
		t.Errorf("line should name the file in flight: %q", line)
	}
	if strings.Count(line, "█") != 15 {
		t.Errorf("expected 15 filled cells: %q", line)
	}
}
