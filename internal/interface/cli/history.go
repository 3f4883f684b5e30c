package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/docchat/internal/core/db"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/search"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historySince  string
	historySearch string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived chats",
	Long: `List archived chats in reverse chronological order.

A chat is archived when you start a new one or quit, as long as it has at
least one message.

Examples:
  docchat history
  docchat history --since "last week"
  docchat history --since 2024-06-01 --limit 5
  docchat history --search "renewal date"`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print the transcript of an archived chat",
	Long: `Print the files and transcript of an archived chat.

The id may be any unique prefix of the session id.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete an archived chat",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of chats to display")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only chats updated after this date (\"yesterday\", \"last week\", 2024-06-01)")
	historyCmd.Flags().StringVar(&historySearch, "search", "", "Full-text search over archived messages")
}

func runHistory(cmd *cobra.Command, args []string) error {
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	if historySearch != "" {
		return printSearch(database, historySearch)
	}

	since, err := parseSince(historySince, time.Now())
	if err != nil {
		return err
	}

	sessions, err := database.ListSessions(db.ListOptions{Since: since, Limit: historyLimit})
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		if historySince != "" {
			fmt.Printf("No chats since %s\n", since.Format("Jan 2, 2006"))
		} else {
			fmt.Println("No archived chats yet.")
		}
		return nil
	}

	fmt.Printf("Showing %d chat(s)\n\n", len(sessions))
	for i, s := range sessions {
		fmt.Printf("[%d] %s\n", i+1, s.SessionID)
		if s.Title != "" {
			fmt.Printf("    Title:    %s\n", truncateSummary(s.Title, 80))
		}
		fmt.Printf("    Files:    %d\n", s.FileCount)
		fmt.Printf("    Messages: %d\n", s.MessageCount)
		if !s.UpdatedAt.IsZero() {
			fmt.Printf("    Updated:  %s\n", humanize.Time(s.UpdatedAt))
		}
		fmt.Println()
	}
	return nil
}

func printSearch(database *db.DB, query string) error {
	results, err := search.Search(database, query, historyLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Printf("No results found for: %s\n", query)
		return nil
	}

	fmt.Printf("Found %d match(es) for: %s\n\n", len(results), query)
	for _, r := range results {
		fmt.Printf("%s  %s (%s)\n", shortID(r.SessionID), truncateSummary(r.SessionTitle, 60), humanize.Time(r.Timestamp))
		fmt.Printf("  %s: %s\n\n", r.Role, truncateSummary(r.MessageText, 200))
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
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

	fmt.Print(renderTranscript(s))
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	if err := database.DeleteSession(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

// renderTranscript formats an archived chat for the terminal
func renderTranscript(s *models.ArchivedSession) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session: %s\n", s.SessionID)
	if s.Title != "" {
		fmt.Fprintf(&b, "Title:   %s\n", s.Title)
	}
	fmt.Fprintf(&b, "Updated: %s\n\n", s.UpdatedAt.Local().Format("Jan 2, 2006 3:04 PM"))

	if len(s.Files) > 0 {
		b.WriteString("Files:\n")
		for _, f := range s.Files {
			fmt.Fprintf(&b, "  %-30s %8s  %s", f.Name, humanize.Bytes(uint64(f.Size)), f.Status)
			if f.Err != "" {
				fmt.Fprintf(&b, " (%s)", f.Err)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, m := range s.Messages {
		label := "You"
		if m.Role == models.RoleAssistant {
			label = "Assistant"
		}
		if m.IsError {
			label += " [error]"
		}
		fmt.Fprintf(&b, "%s  %s\n%s\n\n", label, m.Timestamp.Local().Format("15:04"), m.Content)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
