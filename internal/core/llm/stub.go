package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cbroglie/mustache"
)

// Stub answers with a fixed template after a delay
type Stub struct {
	template string
	delay    time.Duration
}

// NewStub creates a stub responder. The template is mustache with
// {{question}}, {{files}}, {{file_count}} and the {{#has_files}} section.
func NewStub(template string, delay time.Duration) *Stub {
	return &Stub{template: template, delay: delay}
}

func (s *Stub) Name() string {
	return "stub"
}

func (s *Stub) Answer(ctx context.Context, req Request) (string, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	templateData := map[string]interface{}{
		"question":   req.Question,
		"files":      describeFiles(req.Files),
		"file_count": len(req.Files),
		"has_files":  len(req.Files) > 0,
	}

	answer, err := mustache.Render(s.template, templateData)
	if err != nil {
		return "", fmt.Errorf("failed to render answer template: %w", err)
	}
	return answer, nil
}
