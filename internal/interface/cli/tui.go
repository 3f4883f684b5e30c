package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/docchat/internal/core/daemon"
	"github.com/neilberkman/docchat/internal/core/logging"
	"github.com/neilberkman/docchat/internal/interface/tui"
	"github.com/spf13/cobra"
)

var tuiWatchDir string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive upload and chat UI",
	Long: `Launch an interactive terminal UI for uploading documents and chatting about them.

With --watch, files dropped into the directory are uploaded into the
current session as well.`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiWatchDir, "watch", "", "Also upload files dropped into this directory")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := tui.Options{
		Controller: a.ctrl,
		Recorder:   a.recorder,
		Selection:  a.selOpts,
	}

	if tuiWatchDir != "" {
		w, err := daemon.NewWatcher(tuiWatchDir, a.selOpts, a.ctrl)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := w.Run(ctx); err != nil {
				logging.Error().Err(err).Str("dir", tuiWatchDir).Msg("inbox watcher stopped")
			}
		}()
		// Stop the watcher before the controller closes
		defer func() {
			cancel()
			<-done
		}()
		opts.Notice = fmt.Sprintf("Watching %s for new files", tuiWatchDir)
	}

	model := tui.New(opts)
	defer model.Close()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
