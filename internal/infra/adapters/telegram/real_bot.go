package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"vpn-subscription-bot/internal/config"
	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/domain/ports/repository"
	"vpn-subscription-bot/internal/infra/logging"
	"vpn-subscription-bot/internal/infra/metrics"
	red "vpn-subscription-bot/internal/infra/redis"
	"vpn-subscription-bot/internal/infra/worker"
	"vpn-subscription-bot/internal/usecase"
)

const (
	sessionLockTTL  = 10 * time.Second
	rateLimit       = 20
	rateLimitWindow = time.Minute
)

// Compile-time checks
var (
	_ adapter.Presenter   = (*RealTelegramBotAdapter)(nil)
	_ adapter.Notifier    = (*RealTelegramBotAdapter)(nil)
	_ adapter.Permissions = (*RealTelegramBotAdapter)(nil)
)

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

type rateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Flows groups the conversation engines updates are routed to.
type Flows struct {
	Subscription usecase.SubscriptionFlow
	Promocode    usecase.PromocodeFlow
}

// RealTelegramBotAdapter polls updates, serializes them per session and
// hands them to the conversation flows.
type RealTelegramBotAdapter struct {
	api         botAPI
	cfg         *config.BotConfig
	gate        config.ForceSubscriptionConfig
	flows       Flows
	states      repository.StateRepository
	locker      repository.SessionLocker
	rateLimiter rateLimiter
	tr          adapter.Translator
	log         *zerolog.Logger

	adminIDsMap   map[int64]struct{}
	updateWorkers int

	mu            sync.Mutex
	cancelPolling context.CancelFunc
}

// NewBotAPI connects to Telegram with the configured token.
func NewBotAPI(cfg *config.BotConfig) (*tgbotapi.BotAPI, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.New("bot token is empty")
	}
	return tgbotapi.NewBotAPI(cfg.Token)
}

func NewRealTelegramBotAdapter(
	api botAPI,
	cfg *config.BotConfig,
	gate config.ForceSubscriptionConfig,
	flows Flows,
	states repository.StateRepository,
	locker repository.SessionLocker,
	limiter rateLimiter,
	tr adapter.Translator,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if api == nil {
		return nil, errors.New("bot api is nil")
	}
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if flows.Subscription == nil || flows.Promocode == nil {
		return nil, errors.New("conversation flows are nil")
	}
	if states == nil || locker == nil {
		return nil, errors.New("state repository and session locker are required")
	}

	adminMap := map[int64]struct{}{}
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	l := logger.With().Str("component", "TelegramBot").Logger()

	return &RealTelegramBotAdapter{
		api:           api,
		cfg:           cfg,
		gate:          gate,
		flows:         flows,
		states:        states,
		locker:        locker,
		rateLimiter:   limiter,
		tr:            tr,
		log:           &l,
		adminIDsMap:   adminMap,
		updateWorkers: workers,
	}, nil
}

// StartPolling blocks until ctx is cancelled or StopPolling is called.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query", "pre_checkout_query"}
	updates := r.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.mu.Lock()
	r.cancelPolling = cancel
	r.mu.Unlock()

	pool := worker.NewPool("telegram_updates", r.updateWorkers, 100, r.log)
	pool.Start(context.WithoutCancel(ctx))
	defer pool.Stop()
	r.log.Info().Int("workers", r.updateWorkers).Msg("polling started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("polling stopped")
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			err := pool.Submit(ctx, func(ctx context.Context) error {
				if err := r.handleUpdate(ctx, up); err != nil {
					r.log.Error().Err(err).Int("update_id", up.UpdateID).Msg("update handling failed")
				}
				return nil
			})
			if err != nil {
				r.log.Info().Msg("polling stopped")
				return ctx.Err()
			}
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	r.api.StopReceivingUpdates()
	r.mu.Lock()
	cancel := r.cancelPolling
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *RealTelegramBotAdapter) IsAdmin(telegramID int64) bool {
	_, ok := r.adminIDsMap[telegramID]
	return ok
}

// Present edits the anchor message when there is one and falls back to sending a new message.
func (r *RealTelegramBotAdapter) Present(ctx context.Context, target adapter.PresentTarget, text string, rows [][]adapter.InlineButton) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	markup := inlineKeyboard(rows)
	if target.AnchorMessageID != 0 {
		var edit tgbotapi.EditMessageTextConfig
		if len(markup.InlineKeyboard) > 0 {
			edit = tgbotapi.NewEditMessageTextAndMarkup(target.ChatID, target.AnchorMessageID, text, markup)
		} else {
			edit = tgbotapi.NewEditMessageText(target.ChatID, target.AnchorMessageID, text)
		}
		_, err := r.api.Send(edit)
		if err == nil || isNotModified(err) {
			return target.AnchorMessageID, nil
		}
		metrics.IncPresentFallback()
		r.log.Debug().Err(err).Int64("chat_id", target.ChatID).Int("message_id", target.AnchorMessageID).
			Msg("edit failed; sending a new message")
	}

	msg := tgbotapi.NewMessage(target.ChatID, text)
	if len(markup.InlineKeyboard) > 0 {
		msg.ReplyMarkup = markup
	}
	sent, err := r.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (r *RealTelegramBotAdapter) Popup(ctx context.Context, callbackID, text string) error {
	_, err := r.api.Request(tgbotapi.NewCallbackWithAlert(callbackID, text))
	return err
}

func (r *RealTelegramBotAdapter) Notify(ctx context.Context, telegramID int64, text string) error {
	return r.SendMessage(ctx, telegramID, text)
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := r.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SetMenuCommands publishes the command list for one chat; admins also see /admin.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context, chatID int64, isAdmin bool) error {
	cmds := []tgbotapi.BotCommand{
		{Command: "start", Description: r.tr.T("commands:start")},
		{Command: "subscription", Description: r.tr.T("commands:subscription")},
	}
	if isAdmin {
		cmds = append(cmds, tgbotapi.BotCommand{Command: "admin", Description: r.tr.T("commands:admin")})
	}
	_, err := r.api.Request(tgbotapi.NewSetMyCommandsWithScope(tgbotapi.NewBotCommandScopeChat(chatID), cmds...))
	return err
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.PreCheckoutQuery != nil:
		return r.handlePreCheckout(ctx, update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		return r.handleQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		return r.handleMessage(ctx, update.Message)
	}
	return nil
}

func (r *RealTelegramBotAdapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	if msg.SuccessfulPayment != nil {
		return r.handleSuccessfulPayment(ctx, msg)
	}
	key := model.SessionKey{UserID: msg.From.ID, ChatID: msg.Chat.ID}
	ctx = logging.WithChatID(logging.WithTgID(ctx, key.UserID), key.ChatID)

	command := "message"
	if msg.IsCommand() {
		command = "/" + msg.Command()
	}
	if !r.allow(ctx, key.UserID, command) {
		metrics.IncTelegramUpdate("message", "rate_limited")
		return r.SendMessage(ctx, key.ChatID, r.tr.T("common:message:rate_limited"))
	}

	if msg.IsCommand() {
		route, ok := r.commandRoutes()[msg.Command()]
		if !ok {
			metrics.IncTelegramUpdate("command", "unknown")
			return nil
		}
		metrics.IncTelegramCommand(command)
		if msg.Command() == "start" {
			if err := r.SetMenuCommands(ctx, key.ChatID, r.IsAdmin(key.UserID)); err != nil {
				logging.With(ctx, r.log).Warn().Err(err).Msg("failed to set dynamic menu commands")
			}
		}
		return r.dispatch(ctx, key, event{kind: "command", anchor: anchorNew}, route)
	}

	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	return r.dispatch(ctx, key, event{kind: "text", anchor: anchorStored}, r.textRoute(msg.Text))
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		_, err := r.api.Request(tgbotapi.NewCallback(q.ID, ""))
		return err
	}
	key := model.SessionKey{UserID: q.From.ID, ChatID: q.Message.Chat.ID}
	ctx = logging.WithChatID(logging.WithTgID(ctx, key.UserID), key.ChatID)

	if !r.allow(ctx, key.UserID, "callback") {
		metrics.IncTelegramUpdate("callback", "rate_limited")
		return r.Popup(ctx, q.ID, r.tr.T("common:message:rate_limited"))
	}

	cb, err := usecase.ParseCallback(q.Data)
	if err != nil {
		metrics.IncTelegramUpdate("callback", "unknown")
		logging.With(ctx, r.log).Debug().Err(err).Msg("unroutable callback")
		_, err := r.api.Request(tgbotapi.NewCallback(q.ID, ""))
		return err
	}
	ev := event{kind: "callback", callbackID: q.ID, anchor: q.Message.MessageID}
	return r.dispatch(ctx, key, ev, r.callbackRoute(cb))
}

// Anchor selection for an event: a positive value is a concrete message id.
const (
	anchorNew    = 0
	anchorStored = -1
)

type event struct {
	kind       string
	callbackID string
	anchor     int
}

// dispatch runs one flow operation under the session lock: load state, apply,
// present the reply, persist the next state.
func (r *RealTelegramBotAdapter) dispatch(ctx context.Context, key model.SessionKey, ev event, rt route) error {
	log := logging.With(ctx, r.log)
	if rt.fn == nil {
		r.answer(ctx, key.ChatID, ev.callbackID, "")
		return nil
	}

	token, err := r.locker.TryLock(ctx, red.SessionLockKey(key), sessionLockTTL)
	if err != nil {
		metrics.IncTelegramUpdate(ev.kind, "busy")
		if !errors.Is(err, domain.ErrLockNotAcquired) {
			log.Error().Err(err).Msg("session lock failed")
		}
		r.answer(ctx, key.ChatID, ev.callbackID, r.tr.T("common:popup:busy"))
		return nil
	}
	defer func() {
		if err := r.locker.Unlock(context.WithoutCancel(ctx), red.SessionLockKey(key), token); err != nil {
			log.Warn().Err(err).Msg("session unlock failed")
		}
	}()

	st, err := r.states.GetState(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("conversation state unreadable; starting over")
		st = model.EmptyState()
	}

	if rt.admin && !r.IsAdmin(key.UserID) {
		log.Info().Err(domain.ErrUnauthorized).Str("flow", rt.flow).Str("op", rt.op).Msg("admin route rejected")
		metrics.IncAdminCommand(rt.flow+":"+rt.op, "unauthorized")
		metrics.IncFlowTransition(rt.flow, rt.op, "unauthorized")
		r.answer(ctx, key.ChatID, ev.callbackID, r.tr.T("common:popup:unauthorized"))
		return nil
	}
	if rt.admin {
		metrics.IncAdminCommand(rt.flow+":"+rt.op, "authorized")
	}

	res, opErr := rt.fn(ctx, key, st)
	metrics.IncFlowTransition(rt.flow, rt.op, transitionResult(opErr))
	if opErr != nil {
		log.Debug().Err(opErr).Str("flow", rt.flow).Str("op", rt.op).Msg("transition rejected")
	}

	next := res.Next
	if res.Reply.Screen.Key != "" {
		target := adapter.PresentTarget{ChatID: key.ChatID}
		switch {
		case ev.anchor > 0:
			target.AnchorMessageID = ev.anchor
		case ev.anchor == anchorStored:
			target.AnchorMessageID = st.AnchorMessageID
		}
		text, rows := res.Reply.Render(r.tr)
		msgID, err := r.Present(ctx, target, text, rows)
		if err != nil {
			log.Error().Err(err).Msg("present failed")
		} else {
			next.AnchorMessageID = msgID
		}
	}

	if err := r.states.SetState(ctx, key, next); err != nil {
		log.Error().Err(err).Msg("persist conversation state failed")
		metrics.IncTelegramUpdate(ev.kind, "failed")
		r.answer(ctx, key.ChatID, ev.callbackID, r.tr.T("common:popup:error"))
		return err
	}

	if opErr != nil {
		metrics.IncTelegramUpdate(ev.kind, "rejected")
		r.answer(ctx, key.ChatID, ev.callbackID, r.tr.T(domain.MessageKey(opErr, "common:popup:error")))
		return nil
	}
	metrics.IncTelegramUpdate(ev.kind, "ok")
	r.answer(ctx, key.ChatID, ev.callbackID, "")
	return nil
}

// answer closes a callback query, as an alert when text is set. Events without
// a callback get text as a plain message instead.
func (r *RealTelegramBotAdapter) answer(ctx context.Context, chatID int64, callbackID, text string) {
	var err error
	switch {
	case callbackID != "" && text != "":
		err = r.Popup(ctx, callbackID, text)
	case callbackID != "":
		_, err = r.api.Request(tgbotapi.NewCallback(callbackID, ""))
	case text != "":
		err = r.SendMessage(ctx, chatID, text)
	}
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("answer failed")
	}
}

func (r *RealTelegramBotAdapter) allow(ctx context.Context, userID int64, command string) bool {
	if r.rateLimiter == nil {
		return true
	}
	allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(userID, command), rateLimit, rateLimitWindow)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limit check failed")
		return true
	}
	if !allowed {
		metrics.IncRateLimitTriggered()
	}
	return allowed
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrPrecondition):
		return "precondition"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrBusiness):
		return "business"
	}
	return "error"
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

// inlineKeyboard converts port buttons to a Telegram keyboard.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else a safe fallback uses btn.Text as callback data
func inlineKeyboard(rows [][]adapter.InlineButton) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			var kb tgbotapi.InlineKeyboardButton
			switch {
			case btn.URL != "":
				kb = tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL)
			case btn.Data != "":
				kb = tgbotapi.NewInlineKeyboardButtonData(label, btn.Data)
			default:
				kb = tgbotapi.NewInlineKeyboardButtonData(label, label)
			}
			r = append(r, kb)
		}
		kbRows = append(kbRows, r)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}
