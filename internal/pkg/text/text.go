// Package text holds small string helpers shared by the human-facing outputs.
package text

// Truncate cuts s to max bytes and marks the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// ShortID abbreviates long miner hotkeys to their first 6 and last 4 characters.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "…" + id[len(id)-4:]
}
