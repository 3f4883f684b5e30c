package models

import (
	"errors"
	"fmt"
)

// Status is the lifecycle stage of an uploaded file
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Terminal reports whether no further automatic transition happens from s
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// CanTransition reports whether a record may move from s to next.
// Same-status updates are allowed so progress ticks can merge in place.
// Ready is only reachable from Processing.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusUploading:
		return next == StatusUploading || next == StatusProcessing || next == StatusError
	case StatusProcessing:
		return next == StatusProcessing || next == StatusReady || next == StatusError
	}
	return false
}

// FileRecord tracks one selected file through upload and processing
type FileRecord struct {
	ID       string
	BatchID  string
	Name     string
	Size     int64
	MimeType string
	Path     string // Raw handle from the selection surface

	Status   Status
	Progress int    // 0-100, shown only while uploading; last known value is kept
	Err      string // Set only when Status is StatusError
}

// EffectiveProgress is the value a record contributes to aggregate progress
func (f FileRecord) EffectiveProgress() int {
	switch f.Status {
	case StatusProcessing, StatusReady:
		return 100
	}
	return f.Progress
}

// Validate checks if the record has required fields
func (f *FileRecord) Validate() error {
	if f.ID == "" {
		return errors.New("id is required")
	}
	if f.Name == "" {
		return errors.New("name is required")
	}
	if f.Progress < 0 || f.Progress > 100 {
		return fmt.Errorf("progress %d out of range", f.Progress)
	}
	if f.Err != "" && f.Status != StatusError {
		return fmt.Errorf("error set on %s record", f.Status)
	}
	return nil
}

// Document is a processed file registered in the local library
type Document struct {
	FileID     string
	SessionID  string
	Name       string
	MimeType   string
	Size       int64
	StoredPath string
	SHA256     string
}
