package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/session"
	"github.com/neilberkman/docchat/internal/core/speech"
	"github.com/neilberkman/docchat/pkg/selection"
)

type Options struct {
	Controller *session.Controller
	Recorder   *speech.Recorder // Optional
	Selection  selection.Options
	Notice     string // Shown on the first frame, e.g. a watched inbox
}

type Model struct {
	ctrl     *session.Controller
	recorder *speech.Recorder
	selOpts  selection.Options

	state       session.State
	changes     <-chan struct{}
	unsubscribe func()
	speechCh    chan speechMsg

	// Upload view
	pathInput textinput.Model
	staged    []selection.File
	stagedIdx int
	rejected  []selection.Rejection
	adding    bool // Upload view opened from chat to add files

	// Chat view
	input     textarea.Model
	viewport  viewport.Model
	spinner   spinner.Model
	recording bool

	showHelp bool
	width    int
	height   int
	notice   string
	err      error
}

func New(opts Options) Model {
	pi := textinput.New()
	pi.Placeholder = "path/to/report.pdf notes.txt ~/docs"
	pi.Prompt = "Files: "
	pi.Focus()

	ta := textarea.New()
	ta.Placeholder = "Ask a question about your documents..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = pendingStyle

	changes, unsubscribe := opts.Controller.Subscribe()

	recorder := opts.Recorder
	if recorder == nil {
		recorder = speech.NewRecorder(nil)
	}

	return Model{
		ctrl:        opts.Controller,
		recorder:    recorder,
		selOpts:     opts.Selection,
		state:       opts.Controller.Snapshot(),
		changes:     changes,
		unsubscribe: unsubscribe,
		speechCh:    make(chan speechMsg, 16),
		pathInput:   pi,
		input:       ta,
		viewport:    viewport.New(80, 20),
		spinner:     sp,
		notice:      opts.Notice,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForChange(m.changes),
		waitForSpeech(m.speechCh),
		m.spinner.Tick,
		textinput.Blink,
	)
}

// Close releases the controller subscription
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// inChat reports whether the chat view is showing
func (m Model) inChat() bool {
	return m.state.Mode() == session.ChatMode && !m.adding
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.layout()
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			return m.updateHelp(msg)
		}

		switch msg.String() {
		case "ctrl+c":
			_ = m.recorder.Stop()
			return m, tea.Quit

		case "ctrl+n":
			m.staged = nil
			m.rejected = nil
			m.adding = false
			m.pathInput.SetValue("")
			m.input.Reset()
			m.notice = "Starting a new chat..."
			return m, startNewChat(m.ctrl)

		case "?", "f1":
			if msg.String() == "f1" || m.activeInputEmpty() {
				m.showHelp = true
				return m, nil
			}
		}

		if m.inChat() {
			return m.updateChat(msg)
		}
		return m.updateUpload(msg)

	case tea.MouseMsg:
		if m.inChat() {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil

	case stateChangedMsg:
		wasChat := m.inChat()
		m.state = m.ctrl.Snapshot()
		if m.adding {
			if _, active := m.state.ActiveBatch(); active {
				// The batch is in flight, the upload view follows state from here
				m.adding = false
			}
		}
		m = m.refreshChat(!wasChat)
		m = m.focus()
		return m, waitForChange(m.changes)

	case controllerClosedMsg:
		return m, tea.Quit

	case stagedMsg:
		m.staged = mergeStaged(m.staged, msg.files)
		m.rejected = msg.rejected
		if m.stagedIdx >= len(m.staged) {
			m.stagedIdx = len(m.staged) - 1
		}
		if m.stagedIdx < 0 {
			m.stagedIdx = 0
		}
		return m, nil

	case uploadStartedMsg:
		m.notice = fmt.Sprintf("Uploading %s...", pluralFiles(len(msg.ids)))
		return m, nil

	case newChatMsg:
		m.state = m.ctrl.Snapshot()
		m.notice = "New chat started"
		m = m.refreshChat(true)
		m = m.focus()
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.notice = "Clipboard unavailable: " + msg.err.Error()
		} else {
			m.notice = "Answer copied to clipboard!"
		}
		return m, nil

	case speechMsg:
		m = m.applySpeech(msg)
		return m, waitForSpeech(m.speechCh)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Awaiting() && m.inChat() {
			m = m.refreshChat(false)
		}
		return m, cmd

	case errMsg:
		if errors.Is(msg.err, session.ErrNoDocuments) || errors.Is(msg.err, session.ErrNoFiles) ||
			errors.Is(msg.err, session.ErrEmptyMessage) {
			m.notice = msg.err.Error()
			return m, nil
		}
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress ctrl+c to quit"
	}
	if m.showHelp {
		return m.viewHelp()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n\n")
	if m.inChat() {
		b.WriteString(m.viewChat())
	} else {
		b.WriteString(m.viewUpload())
	}
	return b.String()
}

func (m Model) viewHeader() string {
	id := m.state.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	header := titleStyle.Render("Document Chat") + " " +
		timestampStyle.Render(fmt.Sprintf("session %s | %s", id, m.state.Mode()))
	if m.recording {
		header += " " + recordingStyle.Render("● REC")
	}
	if m.notice != "" {
		header += "\n" + noticeStyle.Render(m.notice)
	}
	return header
}

// layout sizes the chat widgets to the window
func (m Model) layout() Model {
	w := m.conversationWidth()
	m.input.SetWidth(w)
	m.pathInput.Width = m.width - len(m.pathInput.Prompt) - 2

	// Header, notice, blank, input, footer
	h := m.height - 4 - m.input.Height() - 2
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	return m.refreshChat(false)
}

func (m Model) conversationWidth() int {
	w := m.width
	if m.state.SidebarVisible {
		w -= sidebarWidth + 2
	}
	if w < 20 {
		w = 20
	}
	return w
}

// refreshChat re-renders the transcript, following the tail when the
// reader was already at the bottom
func (m Model) refreshChat(forceBottom bool) Model {
	if m.viewport.Width != m.conversationWidth() && m.width > 0 {
		m.viewport.Width = m.conversationWidth()
		m.input.SetWidth(m.viewport.Width)
	}
	atBottom := m.viewport.AtBottom()
	spin := ""
	if m.state.Awaiting() {
		spin = m.spinner.View()
	}
	m.viewport.SetContent(renderConversation(m.state.Messages(), spin, m.viewport.Width))
	if atBottom || forceBottom {
		m.viewport.GotoBottom()
	}
	return m
}

// focus keeps keyboard focus on the input of the visible view
func (m Model) focus() Model {
	if m.inChat() {
		m.pathInput.Blur()
		m.input.Focus()
	} else {
		m.input.Blur()
		m.pathInput.Focus()
	}
	return m
}

func (m Model) activeInputEmpty() bool {
	if m.inChat() {
		return m.input.Value() == ""
	}
	return m.pathInput.Value() == ""
}

func (m Model) applySpeech(msg speechMsg) Model {
	switch {
	case msg.err != nil:
		m.recording = false
		m.notice = "Voice input stopped: " + msg.err.Error()
	case msg.ended:
		m.recording = false
	default:
		m.input.SetValue(msg.text)
		m.input.CursorEnd()
	}
	return m
}

// toggleRecording starts or stops dictation, forwarding callbacks to speechCh
func (m Model) toggleRecording() Model {
	ch := m.speechCh
	send := func(msg speechMsg) {
		select {
		case ch <- msg:
		default:
		}
	}

	recording, err := m.recorder.Toggle(speech.Handler{
		OnTranscript: func(text string, final bool) { send(speechMsg{text: text, final: final}) },
		OnEnd:        func() { send(speechMsg{ended: true}) },
		OnError:      func(err error) { send(speechMsg{err: err}) },
	})
	m.recording = recording
	switch {
	case errors.Is(err, speech.ErrUnavailable):
		m.notice = "Voice input is not available"
	case err != nil:
		m.notice = "Voice input failed: " + err.Error()
	case recording:
		m.notice = "Listening... ctrl+r to stop"
	default:
		m.notice = ""
	}
	return m
}

func lastAnswer(msgs []models.Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if !msgs[i].IsUser() && !msgs[i].IsError {
			return msgs[i].Content, true
		}
	}
	return "", false
}

func pluralFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}
