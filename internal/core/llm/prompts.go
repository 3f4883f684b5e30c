package llm

import (
	"fmt"
	"strings"
)

// BuildSystemPrompt describes the uploaded documents to the model
func BuildSystemPrompt(files []string) string {
	if len(files) == 0 {
		return `You are a helpful assistant answering questions about documents the user uploaded. No document is available yet, so say so if a question depends on one.`
	}

	return fmt.Sprintf(`You are a helpful assistant answering questions about documents the user uploaded.

Documents:
- %s

Answer from these documents. If the answer is not in them, say you could not find it.`, strings.Join(files, "\n- "))
}

// describeFiles renders file names for templated replies
func describeFiles(files []string) string {
	switch len(files) {
	case 0:
		return ""
	case 1:
		return files[0]
	case 2:
		return files[0] + " and " + files[1]
	}
	return fmt.Sprintf("%s and %d other files", files[0], len(files)-1)
}
