package tui

import (
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/docchat/internal/core/session"
	"github.com/neilberkman/docchat/pkg/selection"
)

type errMsg struct {
	err error
}

// stateChangedMsg means the controller has a newer snapshot
type stateChangedMsg struct{}

// controllerClosedMsg means the subscription ended
type controllerClosedMsg struct{}

type stagedMsg struct {
	files    []selection.File
	rejected []selection.Rejection
}

type uploadStartedMsg struct {
	ids []string
}

type newChatMsg struct {
	sessionID string
}

type copiedMsg struct {
	err error
}

// speechMsg carries recorder callbacks into the program loop
type speechMsg struct {
	text  string
	final bool
	ended bool
	err   error
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return controllerClosedMsg{}
		}
		return stateChangedMsg{}
	}
}

func waitForSpeech(events <-chan speechMsg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func stagePaths(opts selection.Options, input string) tea.Cmd {
	return func() tea.Msg {
		files, rejected := selection.Resolve(opts, strings.Fields(input)...)
		return stagedMsg{files: files, rejected: rejected}
	}
}

func startUpload(ctrl *session.Controller, files []selection.File) tea.Cmd {
	return func() tea.Msg {
		ids, err := ctrl.SelectFiles(files)
		if err != nil {
			return errMsg{err}
		}
		return uploadStartedMsg{ids: ids}
	}
}

func sendMessage(ctrl *session.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		if _, err := ctrl.SendMessage(text); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// startNewChat runs off the program loop since NewChat archives to the database
func startNewChat(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		return newChatMsg{sessionID: ctrl.NewChat()}
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: clipboard.WriteAll(text)}
	}
}
