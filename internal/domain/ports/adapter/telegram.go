// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// PresentTarget says where a screen goes: the anchor message is edited when possible,
// otherwise a new message is sent to ChatID.
type PresentTarget struct {
	ChatID          int64
	AnchorMessageID int
}

// Presenter shows a screen to a user.
type Presenter interface {
	// Present edits the anchor message or, when that fails, sends a new one.
	// It returns the id of the message that now shows the screen.
	Present(ctx context.Context, target PresentTarget, text string, rows [][]InlineButton) (int, error)
	// Popup answers a callback query with an alert.
	Popup(ctx context.Context, callbackID, text string) error
}

// Notifier delivers a one-off text to a subscriber.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string) error
}
