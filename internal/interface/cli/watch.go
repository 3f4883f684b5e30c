package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/neilberkman/docchat/internal/core/daemon"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Upload files as they appear in a directory",
	Long: `Watch a directory and upload every supported file dropped into it.

Each file becomes its own batch in a single long-running session, and the
batch summary is printed when processing finishes. With the local backend
the files are copied into the library and registered in the database.

Stop with Ctrl+C; the session is archived on exit.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := daemon.NewWatcher(args[0], a.selOpts, a.ctrl)
	if err != nil {
		return err
	}

	changes, unsubscribe := a.ctrl.Subscribe()
	defer unsubscribe()

	// Print each batch summary as it lands
	go func() {
		printed := 0
		for range changes {
			msgs := a.ctrl.Snapshot().Messages()
			for ; printed < len(msgs); printed++ {
				fmt.Println(msgs[printed].Content)
			}
		}
	}()

	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", args[0])
	if err := w.Run(ctx); err != nil {
		return err
	}

	stats := w.Stats()
	fmt.Fprintf(os.Stderr, "Queued %d file(s), skipped %d, %d error(s)\n", stats.Submitted, stats.Rejected, stats.Errors)
	return nil
}
