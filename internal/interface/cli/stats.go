package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/docchat/internal/core/db"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long: `Display statistics about archived chats and the document library.

Shows chat and message counts, library size, date ranges, and storage info.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	stats, err := database.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read statistics: %w", err)
	}

	fmt.Println("Database Statistics")
	fmt.Println("===================")
	fmt.Println()

	fmt.Printf("Archived Chats:    %d\n", stats.TotalSessions)
	fmt.Printf("Total Messages:    %d\n", stats.TotalMessages)
	fmt.Printf("Failed Uploads:    %d\n", stats.FailedFiles)
	fmt.Printf("Library Documents: %d (%s)\n", stats.TotalDocuments, humanize.Bytes(uint64(stats.LibraryBytes)))
	fmt.Println()

	if stats.TotalSessions > 0 {
		if !stats.OldestSession.IsZero() {
			fmt.Printf("Oldest Chat:       %s\n", stats.OldestSession.Local().Format("Jan 2, 2006 3:04 PM"))
		}
		if !stats.NewestSession.IsZero() {
			fmt.Printf("Newest Chat:       %s\n", stats.NewestSession.Local().Format("Jan 2, 2006 3:04 PM"))
		}
		fmt.Println()

		if stats.MostAskedDocument != "" {
			fmt.Printf("Most Used Document:\n")
			fmt.Printf("  Name:  %s\n", stats.MostAskedDocument)
			fmt.Printf("  Chats: %d\n", stats.MostAskedCount)
			fmt.Println()
		}
	}

	fileInfo, err := os.Stat(dbPath)
	if err != nil {
		return fmt.Errorf("failed to stat database file: %w", err)
	}

	fmt.Printf("Database Location: %s\n", dbPath)
	fmt.Printf("Database Size:     %s\n", humanize.Bytes(uint64(fileInfo.Size())))
	return nil
}
