package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neilberkman/docchat/internal/core/db"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export an archived chat to markdown",
	Long: `Export an archived chat to a markdown file.

By default exports to current directory as chat-<id>.md.
Use --output to specify a custom path.

Examples:
  docchat export 0ccfddc4
  docchat export 0ccfddc4 --output ~/lease-questions.md`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: chat-<id>.md in current directory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	s, err := database.GetSession(args[0])
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	outputPath := exportOutput
	if outputPath == "" {
		outputPath = filepath.Join(cwd, fmt.Sprintf("chat-%s.md", shortID(s.SessionID)))
	} else if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(cwd, outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(renderMarkdown(s)), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Printf("Exported chat to: %s\n", outputPath)
	return nil
}

func renderMarkdown(s *models.ArchivedSession) string {
	var b strings.Builder

	title := s.Title
	if title == "" {
		title = "Chat " + shortID(s.SessionID)
	}
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString("**Session ID:** `")
	b.WriteString(s.SessionID)
	b.WriteString("`  \n")
	b.WriteString("**Created:** ")
	b.WriteString(s.CreatedAt.Local().Format("Jan 02, 2006 15:04:05"))
	b.WriteString("  \n")
	b.WriteString("**Updated:** ")
	b.WriteString(s.UpdatedAt.Local().Format("Jan 02, 2006 15:04:05"))
	b.WriteString("  \n")
	b.WriteString(fmt.Sprintf("**Messages:** %d\n\n", len(s.Messages)))

	if len(s.Files) > 0 {
		b.WriteString("## Files\n\n")
		for _, f := range s.Files {
			b.WriteString(fmt.Sprintf("- `%s` (%s)", f.Name, f.Status))
			if f.Err != "" {
				b.WriteString(": " + f.Err)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")

	for _, m := range s.Messages {
		label := strings.ToUpper(string(m.Role))
		if m.IsError {
			label += " (error)"
		}

		b.WriteString("**")
		b.WriteString(label)
		b.WriteString("**")
		b.WriteString(" _")
		b.WriteString(m.Timestamp.Local().Format("Jan 02, 2006 15:04:05"))
		b.WriteString("_\n\n")

		if m.Content != "" {
			b.WriteString(m.Content)
			b.WriteString("\n\n")
		}

		b.WriteString("---\n\n")
	}

	return b.String()
}
