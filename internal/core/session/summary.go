package session

import (
	"fmt"
	"strings"
)

// BatchSummary is the assistant message posted when a batch completes
func BatchSummary(ready, failed []string) string {
	var b strings.Builder

	switch len(ready) {
	case 0:
		return fmt.Sprintf("No files could be processed: %s.", strings.Join(failed, ", "))
	case 1:
		fmt.Fprintf(&b, "%s file is processed. Now you can ask questions about it.", ready[0])
	default:
		fmt.Fprintf(&b, "%d files are processed. Now you can ask questions about them.", len(ready))
	}

	switch len(failed) {
	case 0:
	case 1:
		fmt.Fprintf(&b, " 1 file could not be processed: %s.", failed[0])
	default:
		fmt.Fprintf(&b, " %d files could not be processed: %s.", len(failed), strings.Join(failed, ", "))
	}

	return b.String()
}

// FailureMessage is the assistant turn shown when no answer could be produced
func FailureMessage(reason string) string {
	if reason == "" {
		return "Sorry, I could not answer that. Please try again."
	}
	return fmt.Sprintf("Sorry, I could not answer that (%s). Please try again.", reason)
}
