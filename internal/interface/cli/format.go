package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// truncateSummary flattens whitespace and cuts at a word boundary
func truncateSummary(summary string, maxLen int) string {
	// Remove newlines and excessive whitespace
	summary = strings.ReplaceAll(summary, "\n", " ")
	summary = strings.Join(strings.Fields(summary), " ")

	if len(summary) <= maxLen {
		return summary
	}

	// Find a good break point (end of word)
	truncated := summary[:maxLen]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxLen-20 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}

// parseSince turns "yesterday", "last week", "3 days ago" or a plain date
// into a lower time bound
func parseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
		"01/02/2006",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, now.Location()); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	// Accept last-week style tokens
	result, err := w.Parse(strings.ReplaceAll(s, "-", " "), now)
	if err == nil && result != nil {
		return result.Time, nil
	}

	return time.Time{}, fmt.Errorf("could not understand date %q", s)
}
