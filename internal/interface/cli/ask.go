package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/session"
	"github.com/neilberkman/docchat/pkg/selection"
	"github.com/spf13/cobra"
)

var (
	askFiles []string
	askQuiet bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Upload files and ask a question without the TUI",
	Long: `Upload one or more files, wait for processing, then ask a question.

Progress is drawn on stderr and the answer is printed on stdout. Without a
question the command stops after the upload summary.

Examples:
  docchat ask --file report.pdf "What was revenue in Q3?"
  docchat ask -f contracts/ -f notes.md "Which contract renews first?"
  docchat ask -f "scans/*.pdf"`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringArrayVarP(&askFiles, "file", "f", nil, "File, directory or glob to upload (repeatable)")
	askCmd.Flags().BoolVarP(&askQuiet, "quiet", "q", false, "Only print the answer")
	_ = askCmd.MarkFlagRequired("file")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	files, rejected := selection.Resolve(a.selOpts, askFiles...)
	for _, r := range rejected {
		fmt.Fprintf(os.Stderr, "Skipping %s\n", r.Error())
	}
	if len(files) == 0 {
		return errors.New("no files to upload")
	}

	if _, err := a.ctrl.SelectFiles(files); err != nil {
		return fmt.Errorf("failed to start upload: %w", err)
	}

	var progress *ProgressReporter
	if !askQuiet {
		progress = NewProgressReporter(os.Stderr)
	}
	state, err := a.ctrl.Await(ctx, func(s session.State) bool {
		if progress != nil {
			progress.Update(s)
		}
		_, active := s.ActiveBatch()
		return !active
	})
	if err != nil {
		return err
	}
	if progress != nil {
		progress.Finish(state)
	}

	summary := lastAssistant(state)
	if !askQuiet && summary != nil {
		fmt.Fprintln(os.Stderr, summary.Content)
	}
	if !state.HasUploadedFiles() {
		return errors.New("no files could be processed")
	}
	if question == "" {
		return nil
	}

	if _, err := a.ctrl.SendMessage(question); err != nil {
		return err
	}

	var spinner *Spinner
	if !askQuiet {
		spinner = NewSpinner("Waiting for an answer...")
		spinner.Start()
	}
	state, err = a.ctrl.Await(ctx, func(s session.State) bool {
		return !s.Awaiting()
	})
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	answer := lastAssistant(state)
	if answer == nil {
		return errors.New("no answer received")
	}
	if answer.IsError {
		return errors.New(answer.Content)
	}
	fmt.Println(answer.Content)
	return nil
}

func lastAssistant(s session.State) *models.Message {
	msgs := s.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleAssistant {
			return &msgs[i]
		}
	}
	return nil
}
