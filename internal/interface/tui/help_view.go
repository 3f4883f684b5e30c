package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?", "f1":
		m.showHelp = false
		return m, nil
	}

	return m, nil
}

func (m Model) viewHelp() string {
	help := `
Document Chat - Help
════════════════════

UPLOAD VIEW
───────────
  Type path    File or directory to add (space separated)
  Enter        Stage typed paths, or upload staged files when input is empty
  ↑/↓          Move between staged files
  ctrl+x       Remove the selected staged file
  esc          Back to chat (when adding more files)

CHAT VIEW
─────────
  Enter        Send question
  alt+enter    New line
  ctrl+o       Add more files
  ctrl+b       Toggle document sidebar
  ctrl+r       Start/stop voice input
  ctrl+y       Copy last answer to clipboard
  pgup/pgdn    Scroll conversation

ANYWHERE
────────
  ctrl+n       New chat (archives this one)
  ?            Show this help (when the input is empty)
  ctrl+c       Quit

Press esc to return
`

	return helpStyle.Render(help)
}
