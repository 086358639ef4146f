// Package notify tracks depth changes against the last confirmed values and pushes run digests.
package notify

import "context"

// TextNotifier is the minimal push interface; Telegram is the only implementation.
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}

// Nop discards messages.
type Nop struct{}

func (Nop) SendText(context.Context, string) error { return nil }
