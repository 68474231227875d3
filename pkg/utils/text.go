// Package utils holds small helpers shared across kotae: logger construction,
// embedding-vector normalization, and truncation of text destined for logs.
package utils

// Truncate shortens s to maxLen bytes, appending "..." when it cut something.
// Used to keep question and answer text readable in log lines. If maxLen is 0
// or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
