// Package records holds the ordered list of files tracked by a chat session.
package records

import (
	"github.com/neilberkman/docchat/internal/core/models"
)

// Update is a partial change to a record. Nil fields are left untouched.
type Update struct {
	Progress *int
	Err      *string
}

// WithProgress returns an Update that sets progress
func WithProgress(p int) Update {
	return Update{Progress: &p}
}

// WithError returns an Update that sets the error message
func WithError(msg string) Update {
	return Update{Err: &msg}
}

// Store is an ordered, copy-on-write collection of file records.
// Every mutating method returns a new Store and leaves the receiver intact,
// so a Store can be shared freely between snapshots.
type Store struct {
	files []models.FileRecord
	index map[string]int
}

// AddBatch appends records in order and returns their ids.
// A record whose id is already present replaces the existing one in place.
func (s Store) AddBatch(files []models.FileRecord) (Store, []string) {
	next := s.clone(len(files))
	ids := make([]string, 0, len(files))
	for _, f := range files {
		if i, ok := next.index[f.ID]; ok {
			next.files[i] = f
		} else {
			next.index[f.ID] = len(next.files)
			next.files = append(next.files, f)
		}
		ids = append(ids, f.ID)
	}
	return next, ids
}

// UpdateStatus merges status and the set fields of extra into the record.
// It reports false, leaving the store unchanged, when the id is unknown, the
// transition is not allowed, or progress would go backwards while uploading.
func (s Store) UpdateStatus(id string, status models.Status, extra Update) (Store, bool) {
	i, ok := s.index[id]
	if !ok {
		return s, false
	}

	rec := s.files[i]
	if !rec.Status.CanTransition(status) {
		return s, false
	}

	rec.Status = status
	if extra.Progress != nil {
		p := clamp(*extra.Progress)
		if status == models.StatusUploading && p < rec.Progress {
			return s, false
		}
		rec.Progress = p
	}
	if status == models.StatusProcessing && rec.Progress < 100 {
		rec.Progress = 100
	}
	if extra.Err != nil {
		rec.Err = *extra.Err
	}
	if status != models.StatusError {
		rec.Err = ""
	}

	next := s.clone(0)
	next.files[i] = rec
	return next, true
}

// Get returns the record with the given id
func (s Store) Get(id string) (models.FileRecord, bool) {
	i, ok := s.index[id]
	if !ok {
		return models.FileRecord{}, false
	}
	return s.files[i], true
}

// All returns a copy of every record in insertion order
func (s Store) All() []models.FileRecord {
	out := make([]models.FileRecord, len(s.files))
	copy(out, s.files)
	return out
}

// Len returns the number of tracked records
func (s Store) Len() int {
	return len(s.files)
}

// OverallProgress is floor(mean(progress)) over every tracked record.
// Records past the upload stage count with their effective progress.
func (s Store) OverallProgress() int {
	if len(s.files) == 0 {
		return 0
	}
	sum := 0
	for _, f := range s.files {
		sum += f.EffectiveProgress()
	}
	return clamp(sum / len(s.files))
}

// Count returns how many records are in the given status
func (s Store) Count(status models.Status) int {
	n := 0
	for _, f := range s.files {
		if f.Status == status {
			n++
		}
	}
	return n
}

func (s Store) clone(extra int) Store {
	next := Store{
		files: make([]models.FileRecord, len(s.files), len(s.files)+extra),
		index: make(map[string]int, len(s.files)+extra),
	}
	copy(next.files, s.files)
	for k, v := range s.index {
		next.index[k] = v
	}
	return next
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
