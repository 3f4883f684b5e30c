package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/session"
)

// ProgressReporter redraws a one-line upload progress bar
type ProgressReporter struct {
	writer    io.Writer
	startTime time.Time
	lastLine  string
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(w io.Writer) *ProgressReporter {
	return &ProgressReporter{
		writer:    w,
		startTime: time.Now(),
	}
}

// Update redraws the bar from a state snapshot
func (p *ProgressReporter) Update(s session.State) {
	line := renderProgressLine(s, 50)
	if line == p.lastLine {
		return
	}
	p.lastLine = line
	_, _ = fmt.Fprintf(p.writer, "\r\033[K%s", line)
}

// Finish completes the progress display
func (p *ProgressReporter) Finish(s session.State) {
	elapsed := time.Since(p.startTime)
	_, _ = fmt.Fprintf(p.writer, "\r\033[K%s\n", renderProgressLine(s, 50))
	_, _ = fmt.Fprintf(p.writer, "Completed: %d ready, %d failed in %s\n",
		s.Files.Count(models.StatusReady), s.Files.Count(models.StatusError), elapsed.Round(time.Millisecond))
}

// renderProgressLine is the overall bar followed by the file still in flight
func renderProgressLine(s session.State, barWidth int) string {
	pct := s.OverallProgress()
	filled := barWidth * pct / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	done := 0
	current := ""
	for _, f := range s.Files.All() {
		if f.Status.Terminal() {
			done++
			continue
		}
		if current == "" {
			current = fmt.Sprintf("%s %s", f.Name, statusLabel(f))
		}
	}

	line := fmt.Sprintf("[%s] %3d%% (%d/%d)", bar, pct, done, s.Files.Len())
	if current != "" {
		line += " | " + truncateSummary(current, 40)
	}
	return line
}

func statusLabel(f models.FileRecord) string {
	switch f.Status {
	case models.StatusUploading:
		return fmt.Sprintf("uploading %d%%", f.Progress)
	case models.StatusProcessing:
		return "processing"
	case models.StatusError:
		return "failed"
	default:
		return "ready"
	}
}
