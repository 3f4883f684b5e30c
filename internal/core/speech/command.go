package speech

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// InterimPrefix marks a transcript line that a later line will replace
const InterimPrefix = "> "

// Command runs an external dictation program and reads transcripts from
// its stdout, one per line. Lines starting with InterimPrefix are interim.
type Command struct {
	name string
	args []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewCommand returns a factory for the given command line
func NewCommand(argv []string) Factory {
	if len(argv) == 0 {
		return nil
	}
	return func() (Capability, error) {
		if _, err := exec.LookPath(argv[0]); err != nil {
			return nil, fmt.Errorf("dictation command not found: %w", err)
		}
		return &Command{name: argv[0], args: argv[1:]}, nil
	}
}

func (c *Command) Start(ctx context.Context, h Handler) error {
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open dictation output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start dictation: %w", err)
	}

	c.mu.Lock()
	c.cmd = cmd
	c.mu.Unlock()

	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Text()
			if text, ok := strings.CutPrefix(line, InterimPrefix); ok {
				if h.OnTranscript != nil {
					h.OnTranscript(text, false)
				}
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if h.OnTranscript != nil {
				h.OnTranscript(line, true)
			}
		}

		// A cancelled context means Stop was called, not a failure
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			if h.OnError != nil {
				h.OnError(fmt.Errorf("dictation exited: %w", err))
			}
			return
		}
		if h.OnEnd != nil {
			h.OnEnd()
		}
	}()

	return nil
}

func (c *Command) Stop() error {
	c.mu.Lock()
	cmd := c.cmd
	c.cmd = nil
	c.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	// CommandContext already kills on cancel; this covers direct Stop calls
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
