package utils

import "strings"

// TruncateForLog renders s as a single line of at most limit runes, appending
// an ellipsis when it had to cut. Prompts and model output keep their line
// breaks out of log entries this way.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
