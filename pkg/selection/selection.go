// Package selection turns user supplied paths into files ready for upload.
package selection

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultExtensions lists the document types the chat is meant for.
// The filter is advisory: callers decide whether rejections are fatal.
var DefaultExtensions = []string{".pdf", ".docx", ".txt", ".md"}

// File is a selected document as the upload pipeline sees it
type File struct {
	Name     string
	Path     string
	Size     int64
	MimeType string
}

// Rejection explains why a path was not selected
type Rejection struct {
	Path   string
	Reason string
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Path, r.Reason)
}

// Options controls how paths are resolved
type Options struct {
	Extensions []string // Allowed extensions, DefaultExtensions when empty
	Strict     bool     // Reject files whose extension is not allowed
}

// Resolve expands globs and directories into a batch of files.
// Directories contribute their direct children only. Paths that cannot be
// selected come back as rejections, in the order they were encountered.
func Resolve(opts Options, paths ...string) ([]File, []Rejection) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var files []File
	var rejected []Rejection
	seen := make(map[string]bool)

	for _, p := range paths {
		p = expandHome(strings.TrimSpace(p))
		if p == "" {
			continue
		}

		matches, err := filepath.Glob(p)
		if err != nil || len(matches) == 0 {
			matches = []string{p}
		}

		for _, m := range matches {
			for _, candidate := range expandDir(m) {
				abs, err := filepath.Abs(candidate)
				if err != nil {
					abs = candidate
				}
				if seen[abs] {
					continue
				}
				seen[abs] = true

				f, rej := inspect(abs, exts, opts.Strict)
				if rej != nil {
					rejected = append(rejected, *rej)
					continue
				}
				files = append(files, f)
			}
		}
	}

	return files, rejected
}

// Allowed reports whether name carries one of the given extensions
func Allowed(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

func inspect(path string, exts []string, strict bool) (File, *Rejection) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, &Rejection{Path: path, Reason: "no such file"}
		}
		return File{}, &Rejection{Path: path, Reason: err.Error()}
	}
	if info.IsDir() {
		return File{}, &Rejection{Path: path, Reason: "is a directory"}
	}
	if strict && !Allowed(path, exts) {
		return File{}, &Rejection{
			Path:   path,
			Reason: fmt.Sprintf("unsupported file type (allowed: %s)", strings.Join(exts, ", ")),
		}
	}

	mimeType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(path); err == nil {
		mimeType = mt.String()
	}

	return File{
		Name:     filepath.Base(path),
		Path:     path,
		Size:     info.Size(),
		MimeType: mimeType,
	}, nil
}

func expandDir(path string) []string {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return []string{path}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return []string{path}
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(path, e.Name()))
	}
	sort.Strings(out)
	return out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
