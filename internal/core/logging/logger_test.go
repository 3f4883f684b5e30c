package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetOutput_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "warn")
	defer Close()

	Info().Msg("hidden")
	Warn().Str("file", "a.txt").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, `"file":"a.txt"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestInit_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "docchat.log")
	if err := Init(Options{Level: "debug", File: path}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Debug().Msg("written to file")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing message: %s", data)
	}
}
