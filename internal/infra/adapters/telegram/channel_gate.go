package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/infra/logging"
	"vpn-subscription-bot/internal/infra/metrics"
	"vpn-subscription-bot/internal/usecase"
)

var subscribedStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
}

// isChannelMember reports whether userID may use the subscription menu. A failed
// lookup (for example the bot was removed from the channel) lets the user through.
func (r *RealTelegramBotAdapter) isChannelMember(ctx context.Context, userID int64) bool {
	if !r.gate.Enabled {
		return true
	}
	cfg := tgbotapi.GetChatMemberConfig{ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID}}
	if r.gate.ChannelID != 0 {
		cfg.ChatID = r.gate.ChannelID
	} else {
		cfg.SuperGroupUsername = "@" + r.gate.ChannelUsername
	}

	log := logging.With(ctx, r.log)
	member, err := r.api.GetChatMember(cfg)
	if err != nil {
		metrics.IncChannelGate("lookup_failed")
		log.Error().Err(err).Msg("channel membership lookup failed; letting the user through")
		return true
	}
	if subscribedStatuses[member.Status] {
		metrics.IncChannelGate("member")
		return true
	}
	metrics.IncChannelGate("not_member")
	log.Info().Str("status", member.Status).Msg("user is not subscribed to the channel")
	return false
}

// requireChannel runs fn only for channel members; everyone else gets the
// subscribe screen and keeps their state.
func (r *RealTelegramBotAdapter) requireChannel(fn flowFn) flowFn {
	return func(ctx context.Context, key model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
		if !r.isChannelMember(ctx, key.UserID) {
			return usecase.Transition{Next: st, Reply: r.subscribeReply("subscription_required:message:not_subscribed")}, nil
		}
		return fn(ctx, key, st)
	}
}

// checkSubscription re-checks membership after the user tapped "I've subscribed".
func (r *RealTelegramBotAdapter) checkSubscription(ctx context.Context, key model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
	if !r.isChannelMember(ctx, key.UserID) {
		reply := r.subscribeReply("subscription_required:message:still_not_subscribed")
		return usecase.Transition{Next: st, Reply: reply},
			domain.NewPreconditionError("subscription_required:popup:still_not_subscribed", domain.ErrNotSubscribed)
	}
	return r.flows.Subscription.OpenMenu(ctx, key, st)
}

func (r *RealTelegramBotAdapter) subscribeReply(screen string) usecase.Reply {
	var rows [][]usecase.Button
	if r.gate.ChannelUsername != "" {
		rows = append(rows, []usecase.Button{{
			Label: usecase.T("subscription_required:button:subscribe"),
			URL:   "https://t.me/" + r.gate.ChannelUsername,
		}})
	}
	rows = append(rows, []usecase.Button{{
		Label: usecase.T("subscription_required:button:check_subscription"),
		Data:  usecase.CbCheckSubscription,
	}})
	return usecase.Reply{Screen: usecase.T(screen), Buttons: rows}
}
