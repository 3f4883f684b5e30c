package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/pkg/selection"
)

func (m Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		input := strings.TrimSpace(m.pathInput.Value())
		if input != "" {
			m.pathInput.SetValue("")
			return m, stagePaths(m.selOpts, input)
		}
		if len(m.staged) == 0 {
			return m, nil
		}
		files := m.staged
		m.staged = nil
		m.rejected = nil
		m.stagedIdx = 0
		return m, startUpload(m.ctrl, files)

	case "up":
		if m.stagedIdx > 0 {
			m.stagedIdx--
		}
		return m, nil

	case "down":
		if m.stagedIdx < len(m.staged)-1 {
			m.stagedIdx++
		}
		return m, nil

	case "ctrl+x":
		m.staged, m.stagedIdx = removeStaged(m.staged, m.stagedIdx)
		return m, nil

	case "esc":
		if m.adding {
			m.adding = false
			m.staged = nil
			m.rejected = nil
			m.pathInput.SetValue("")
			m = m.focus()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m Model) viewUpload() string {
	var b strings.Builder

	files := m.state.Files.All()
	if len(files) > 0 {
		b.WriteString(titleStyle.Render("Uploads"))
		b.WriteString("\n")
		for _, f := range files {
			b.WriteString(m.renderRecord(f))
			b.WriteString("\n")
		}
		if _, active := m.state.ActiveBatch(); active {
			b.WriteString("\n")
			b.WriteString(fmt.Sprintf("Overall %s\n", renderProgressBar(m.state.OverallProgress(), m.width)))
		}
		b.WriteString("\n")
	}

	if len(m.staged) > 0 {
		b.WriteString(titleStyle.Render("Selected"))
		b.WriteString("\n")
		for i, f := range m.staged {
			line := fmt.Sprintf("%s  %s  %s", f.Name, humanize.Bytes(uint64(f.Size)), f.MimeType)
			if i == m.stagedIdx {
				b.WriteString(selectedItemStyle.Render("> " + line))
			} else {
				b.WriteString(itemStyle.Render(line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, r := range m.rejected {
		b.WriteString(errorStyle.Render("✗ " + r.Error()))
		b.WriteString("\n")
	}
	if len(m.rejected) > 0 {
		b.WriteString("\n")
	}

	if len(files) == 0 && len(m.staged) == 0 {
		b.WriteString("Upload documents to start chatting about them.\n\n")
	}

	b.WriteString(m.pathInput.View())
	b.WriteString("\n\n")

	footer := "enter: add paths | enter on empty input: upload | ↑/↓: select | ctrl+x: remove | ctrl+n: new chat | ?: help"
	if m.adding {
		footer += " | esc: back to chat"
	}
	b.WriteString(helpStyle.Render(footer))
	return b.String()
}

func (m Model) renderRecord(f models.FileRecord) string {
	name := itemStyle.Render(fmt.Sprintf("%-28s", truncateName(f.Name, 28)))
	switch f.Status {
	case models.StatusUploading:
		return name + " " + renderProgressBar(f.EffectiveProgress(), m.width-32)
	case models.StatusProcessing:
		return name + " " + m.spinner.View() + pendingStyle.Render(" processing")
	case models.StatusReady:
		return name + " " + readyStyle.Render("✓ ready")
	case models.StatusError:
		return name + " " + errorStyle.Render("✗ "+f.Err)
	}
	return name
}

// renderProgressBar draws a percentage bar sized to the available width
func renderProgressBar(pct int, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	barWidth := width - 10 // Leave space for the percentage
	if barWidth > 40 {
		barWidth = 40
	}
	if barWidth < 10 {
		barWidth = 10
	}

	filled := barWidth * pct / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	return fmt.Sprintf("[%s] %3d%%", bar, pct)
}

// mergeStaged appends newly resolved files, skipping paths already staged
func mergeStaged(staged, added []selection.File) []selection.File {
	seen := make(map[string]bool, len(staged))
	for _, f := range staged {
		seen[f.Path] = true
	}
	for _, f := range added {
		if seen[f.Path] {
			continue
		}
		seen[f.Path] = true
		staged = append(staged, f)
	}
	return staged
}

// removeStaged drops the file at idx and returns the adjusted cursor
func removeStaged(staged []selection.File, idx int) ([]selection.File, int) {
	if idx < 0 || idx >= len(staged) {
		return staged, idx
	}
	out := make([]selection.File, 0, len(staged)-1)
	out = append(out, staged[:idx]...)
	out = append(out, staged[idx+1:]...)
	if idx >= len(out) {
		idx = len(out) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return out, idx
}
