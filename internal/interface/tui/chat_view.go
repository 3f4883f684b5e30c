package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
	"github.com/neilberkman/docchat/internal/core/models"
)

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if m.recording {
			_ = m.recorder.Stop()
			m.recording = false
		}
		m.input.Reset()
		m.notice = ""
		return m, sendMessage(m.ctrl, text)

	case "ctrl+b":
		m.ctrl.ToggleSidebar()
		return m, nil

	case "ctrl+o":
		m.adding = true
		m.notice = ""
		m = m.focus()
		return m, nil

	case "ctrl+r":
		return m.toggleRecording(), nil

	case "ctrl+y":
		if answer, ok := lastAnswer(m.state.Messages()); ok {
			return m, copyToClipboard(answer)
		}
		m.notice = "No answer to copy yet"
		return m, nil

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) viewChat() string {
	conversation := m.viewport.View()
	if m.state.SidebarVisible {
		sidebar := sidebarStyle.Height(m.viewport.Height).Render(renderSidebar(m.state.Files.All()))
		conversation = lipgloss.JoinHorizontal(lipgloss.Top, conversation, sidebar)
	}

	var b strings.Builder
	b.WriteString(conversation)
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: send | ctrl+o: add files | ctrl+b: sidebar | ctrl+r: voice | ctrl+y: copy | ctrl+n: new chat | ?: help"))
	return b.String()
}

// renderConversation renders the chat log for the viewport. spin is shown as
// a pending assistant turn when non-empty.
func renderConversation(msgs []models.Message, spin string, width int) string {
	if len(msgs) == 0 {
		return timestampStyle.Render("No messages yet.")
	}

	wrapWidth := width - 2
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	var b strings.Builder
	for _, msg := range msgs {
		var style lipgloss.Style
		var label string

		switch {
		case msg.IsUser():
			style = userStyle
			label = "YOU"
		case msg.IsError:
			style = errorStyle
			label = "ERROR"
		default:
			style = assistantStyle
			label = "ASSISTANT"
		}

		b.WriteString(style.Render(fmt.Sprintf("▸ %s", label)))
		b.WriteString(" ")
		b.WriteString(timestampStyle.Render(msg.Timestamp.Format("15:04")))
		b.WriteString("\n")
		b.WriteString(wordwrap.String(msg.Content, wrapWidth))
		b.WriteString("\n\n")
	}

	if spin != "" {
		b.WriteString(assistantStyle.Render("▸ ASSISTANT"))
		b.WriteString(" ")
		b.WriteString(spin)
		b.WriteString(timestampStyle.Render(" thinking..."))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderSidebar lists the session's documents
func renderSidebar(files []models.FileRecord) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Documents"))
	b.WriteString("\n\n")

	ready := 0
	for _, f := range files {
		name := truncateName(f.Name, sidebarWidth-4)
		switch f.Status {
		case models.StatusReady:
			ready++
			b.WriteString(readyStyle.Render("✓ " + name))
		case models.StatusError:
			b.WriteString(errorStyle.Render("✗ " + name))
		default:
			b.WriteString(pendingStyle.Render("… " + name))
		}
		b.WriteString("\n")
		b.WriteString(timestampStyle.Render("  " + humanize.Bytes(uint64(f.Size))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(timestampStyle.Render(fmt.Sprintf("%d of %d ready", ready, len(files))))
	return b.String()
}

func truncateName(name string, max int) string {
	r := []rune(name)
	if len(r) <= max || max < 4 {
		return name
	}
	return string(r[:max-3]) + "..."
}
