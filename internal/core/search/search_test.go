package search

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neilberkman/docchat/internal/core/db"
	"github.com/neilberkman/docchat/internal/core/models"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(tmpfile.Name()) })
	_ = tmpfile.Close()

	database, err := db.New(tmpfile.Name())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func archive(t *testing.T, database *db.DB, sessionID string, base time.Time, texts ...string) {
	t.Helper()
	s := models.ArchivedSession{
		SessionID: sessionID,
		Title:     texts[0],
		CreatedAt: base,
		UpdatedAt: base.Add(time.Duration(len(texts)) * time.Minute),
		Files: []models.FileRecord{
			{ID: sessionID + "-f1", Name: "contract.pdf", Status: models.StatusReady, Progress: 100},
		},
	}
	for i, text := range texts {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		s.Messages = append(s.Messages, models.Message{
			ID:        sessionID[:8] + "-" + string(rune('a'+i)),
			Role:      role,
			Content:   text,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	if err := database.ArchiveSession(context.Background(), s); err != nil {
		t.Fatalf("ArchiveSession() error = %v", err)
	}
}

func TestSearch(t *testing.T) {
	database := newTestDB(t)
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	archive(t, database, "11111111-aaaa", base,
		"What are the termination clauses",
		"The contract allows termination with 30 days notice",
		"Who signed the agreement",
	)
	archive(t, database, "22222222-bbbb", base.Add(time.Hour),
		"Summarize the quarterly report",
		"Revenue grew in every region",
	)

	t.Run("BasicSearch", func(t *testing.T) {
		results, err := Search(database, "termination", 0)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("Expected 2 results for 'termination', got %d", len(results))
		}
		for _, r := range results {
			if r.SessionID != "11111111-aaaa" {
				t.Errorf("unexpected session %s", r.SessionID)
			}
			if r.SessionTitle == "" {
				t.Error("SessionTitle is empty")
			}
			if r.MessageText == "" {
				t.Error("MessageText is empty")
			}
		}
		// Most recent first
		if results[0].Role != string(models.RoleAssistant) {
			t.Errorf("expected the later assistant turn first, got %s", results[0].Role)
		}
	})

	t.Run("Stemming", func(t *testing.T) {
		results, err := Search(database, "regions", 0)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 1 || results[0].SessionID != "22222222-bbbb" {
			t.Errorf("expected the report session, got %+v", results)
		}
	})

	t.Run("QuestionFallsBackToSubstring", func(t *testing.T) {
		results, err := Search(database, "signed the agreement?", 0)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("Expected no substring match, got %d", len(results))
		}

		results, err = Search(database, "30 days notice", 0)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 1 {
			t.Errorf("Expected 1 result, got %d", len(results))
		}
	})

	t.Run("Limit", func(t *testing.T) {
		results, err := Search(database, "termination", 1)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 1 {
			t.Errorf("Expected 1 result, got %d", len(results))
		}
	})

	t.Run("EmptyQuery", func(t *testing.T) {
		results, err := Search(database, "  ", 0)
		if err == nil {
			t.Error("Expected error for empty query")
		}
		if results != nil {
			t.Error("Expected nil results for empty query")
		}
	})

	t.Run("NoResults", func(t *testing.T) {
		results, err := Search(database, "nonexistent", 0)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("Expected 0 results, got %d", len(results))
		}
	})
}

func TestSearch_ReflectsRearchive(t *testing.T) {
	database := newTestDB(t)
	base := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	archive(t, database, "33333333-cccc", base, "first draft question about invoices")
	archive(t, database, "33333333-cccc", base, "rewritten question about receipts")

	results, err := Search(database, "invoices", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("replaced messages still searchable: %+v", results)
	}

	results, err = Search(database, "receipts", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}
}
