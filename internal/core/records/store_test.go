package records

import (
	"testing"

	"github.com/neilberkman/docchat/internal/core/models"
)

func newRecord(id, name string) models.FileRecord {
	return models.FileRecord{ID: id, Name: name, Status: models.StatusUploading}
}

func TestAddBatch_PreservesOrderAcrossBatches(t *testing.T) {
	var s Store
	s, ids := s.AddBatch([]models.FileRecord{newRecord("a", "a.txt"), newRecord("b", "b.txt")})
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids: %v", ids)
	}

	s, _ = s.AddBatch([]models.FileRecord{newRecord("c", "c.txt")})

	all := s.All()
	want := []string{"a", "b", "c"}
	if len(all) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(all))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, all[i].ID)
		}
	}
}

func TestAddBatch_DuplicateIDLastWriteWins(t *testing.T) {
	var s Store
	s, _ = s.AddBatch([]models.FileRecord{newRecord("a", "first.txt"), newRecord("b", "b.txt")})
	s, _ = s.AddBatch([]models.FileRecord{newRecord("a", "second.txt")})

	if s.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", s.Len())
	}
	rec, ok := s.Get("a")
	if !ok {
		t.Fatal("record a missing")
	}
	if rec.Name != "second.txt" {
		t.Errorf("expected last write to win, got %s", rec.Name)
	}
	if s.All()[0].ID != "a" {
		t.Error("duplicate should keep its original position")
	}
}

func TestUpdateStatus_PartialMerge(t *testing.T) {
	var s Store
	rec := newRecord("a", "a.txt")
	rec.Size = 42
	rec.MimeType = "text/plain"
	s, _ = s.AddBatch([]models.FileRecord{rec})

	s, ok := s.UpdateStatus("a", models.StatusUploading, WithProgress(30))
	if !ok {
		t.Fatal("update rejected")
	}

	got, _ := s.Get("a")
	if got.Progress != 30 {
		t.Errorf("expected progress 30, got %d", got.Progress)
	}
	if got.Size != 42 || got.MimeType != "text/plain" || got.Name != "a.txt" {
		t.Errorf("unspecified fields changed: %+v", got)
	}
}

func TestUpdateStatus_DoesNotMutateOriginal(t *testing.T) {
	var s Store
	s, _ = s.AddBatch([]models.FileRecord{newRecord("a", "a.txt")})
	next, _ := s.UpdateStatus("a", models.StatusUploading, WithProgress(50))

	before, _ := s.Get("a")
	after, _ := next.Get("a")
	if before.Progress != 0 {
		t.Errorf("original store changed: progress %d", before.Progress)
	}
	if after.Progress != 50 {
		t.Errorf("expected 50, got %d", after.Progress)
	}
}

func TestUpdateStatus_Rejections(t *testing.T) {
	var s Store
	s, _ = s.AddBatch([]models.FileRecord{newRecord("a", "a.txt")})
	s, _ = s.UpdateStatus("a", models.StatusUploading, WithProgress(60))

	tests := []struct {
		name   string
		setup  func(Store) Store
		status models.Status
		extra  Update
	}{
		{
			name:   "unknown id",
			setup:  func(s Store) Store { return s },
			status: models.StatusUploading,
		},
		{
			name:   "progress decrease",
			setup:  func(s Store) Store { return s },
			status: models.StatusUploading,
			extra:  WithProgress(40),
		},
		{
			name: "ready back to uploading",
			setup: func(s Store) Store {
				s, _ = s.UpdateStatus("a", models.StatusProcessing, Update{})
				s, _ = s.UpdateStatus("a", models.StatusReady, Update{})
				return s
			},
			status: models.StatusUploading,
		},
		{
			name: "error to ready",
			setup: func(s Store) Store {
				s, _ = s.UpdateStatus("a", models.StatusError, WithError("boom"))
				return s
			},
			status: models.StatusReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := tt.setup(s)
			id := "a"
			if tt.name == "unknown id" {
				id = "missing"
			}
			if _, ok := base.UpdateStatus(id, tt.status, tt.extra); ok {
				t.Error("expected update to be rejected")
			}
		})
	}
}

func TestUpdateStatus_ErrorOnlyOnErrorRecords(t *testing.T) {
	var s Store
	s, _ = s.AddBatch([]models.FileRecord{newRecord("a", "a.txt")})
	s, _ = s.UpdateStatus("a", models.StatusError, WithError("disk full"))

	got, _ := s.Get("a")
	if got.Status != models.StatusError || got.Err != "disk full" {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestOverallProgress(t *testing.T) {
	var empty Store
	if got := empty.OverallProgress(); got != 0 {
		t.Errorf("empty store: expected 0, got %d", got)
	}

	var s Store
	s, _ = s.AddBatch([]models.FileRecord{newRecord("a", "a"), newRecord("b", "b"), newRecord("c", "c")})
	s, _ = s.UpdateStatus("a", models.StatusUploading, WithProgress(10))
	s, _ = s.UpdateStatus("b", models.StatusUploading, WithProgress(20))

	// (10 + 20 + 0) / 3 = 10
	if got := s.OverallProgress(); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}

	s, _ = s.UpdateStatus("c", models.StatusUploading, WithProgress(50))
	// (10 + 20 + 50) / 3 = 26.67 -> 26
	if got := s.OverallProgress(); got != 26 {
		t.Errorf("expected floor 26, got %d", got)
	}

	s, _ = s.UpdateStatus("a", models.StatusProcessing, Update{})
	// (100 + 20 + 50) / 3 = 56.67 -> 56
	if got := s.OverallProgress(); got != 56 {
		t.Errorf("expected 56 once a record leaves uploading, got %d", got)
	}
}

func TestOverallProgress_ClampsInput(t *testing.T) {
	var s Store
	s, _ = s.AddBatch([]models.FileRecord{newRecord("a", "a")})
	s, _ = s.UpdateStatus("a", models.StatusUploading, WithProgress(250))

	if got := s.OverallProgress(); got != 100 {
		t.Errorf("expected clamp to 100, got %d", got)
	}
}
