package telegram

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"vpn-subscription-bot/internal/domain/ports/adapter"
)

var (
	_ adapter.Presenter = (*NoopBotAdapter)(nil)
	_ adapter.Notifier  = (*NoopBotAdapter)(nil)
)

// NoopBotAdapter stands in for Telegram in local runs (bot.mode: noop).
// It logs outgoing messages instead of sending them.
type NoopBotAdapter struct {
	log    *zerolog.Logger
	nextID atomic.Int64
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "NoopBot").Logger()
	return &NoopBotAdapter{log: &l}
}

func (b *NoopBotAdapter) Notify(ctx context.Context, telegramID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("tg_id", telegramID).Str("text", text).Msg("notify")
	return nil
}

// Present "edits" the anchor when set, otherwise hands out a fresh message id.
func (b *NoopBotAdapter) Present(ctx context.Context, target adapter.PresentTarget, text string, rows [][]adapter.InlineButton) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	id := target.AnchorMessageID
	if id == 0 {
		id = int(b.nextID.Add(1))
	}
	b.log.Info().Int64("chat_id", target.ChatID).Int("message_id", id).Int("button_rows", len(rows)).Str("text", text).Msg("present")
	return id, nil
}

func (b *NoopBotAdapter) Popup(ctx context.Context, callbackID, text string) error {
	b.log.Info().Str("callback_id", callbackID).Str("text", text).Msg("popup")
	return nil
}
