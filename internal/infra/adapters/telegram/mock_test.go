package telegram

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"vpn-subscription-bot/internal/config"
	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

type keyTranslator struct{}

func (keyTranslator) T(key string, args ...interface{}) string { return key }

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	lastID   int
	failEdit bool
	updates  chan tgbotapi.Update

	memberStatus string
	memberErr    error
	memberChecks []tgbotapi.GetChatMemberConfig
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if _, isEdit := c.(tgbotapi.EditMessageTextConfig); isEdit && f.failEdit {
		return tgbotapi.Message{}, errors.New("Bad Request: message to edit not found")
	}
	f.lastID++
	return tgbotapi.Message{MessageID: 100 + f.lastID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	if f.updates == nil {
		f.updates = make(chan tgbotapi.Update)
	}
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) GetChatMember(c tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberChecks = append(f.memberChecks, c)
	if f.memberErr != nil {
		return tgbotapi.ChatMember{}, f.memberErr
	}
	return tgbotapi.ChatMember{Status: f.memberStatus}, nil
}

// callbacks returns the answered callback queries in order.
func (f *fakeAPI) callbacks() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

type memStates struct {
	mu     sync.Mutex
	states map[model.SessionKey]model.ConversationState
}

func newMemStates() *memStates {
	return &memStates{states: map[model.SessionKey]model.ConversationState{}}
}

func (m *memStates) SetState(_ context.Context, key model.SessionKey, st model.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = st
	return nil
}

func (m *memStates) GetState(_ context.Context, key model.SessionKey) (model.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[key]; ok {
		return st, nil
	}
	return model.EmptyState(), nil
}

func (m *memStates) ClearState(_ context.Context, key model.SessionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held bool
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return "", domain.ErrLockNotAcquired
	}
	l.held = true
	return "tok", nil
}

func (l *fakeLocker) Unlock(context.Context, string, string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

// stubSubscriptionFlow records calls. Every operation enters the subscription
// flow with a screen named after it unless err is set.
type stubSubscriptionFlow struct {
	calls []string
	err   error
}

func (s *stubSubscriptionFlow) step(op string, st model.ConversationState) (usecase.Transition, error) {
	s.calls = append(s.calls, op)
	if s.err != nil {
		return usecase.Transition{Next: st}, s.err
	}
	next := model.SubscriptionState(model.SubscriptionFlowState{Step: model.SubStepMain}, st.AnchorMessageID)
	return usecase.Transition{Next: next, Reply: usecase.Reply{
		Screen:  usecase.T("screen:" + op),
		Buttons: [][]usecase.Button{{{Label: usecase.T("common:button:back"), Data: usecase.CbSubMain}}},
	}}, nil
}

func (s *stubSubscriptionFlow) OpenMenu(_ context.Context, _ model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
	return s.step("open_menu", st)
}

func (s *stubSubscriptionFlow) SelectProcess(_ context.Context, _ model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
	return s.step("process", st)
}

func (s *stubSubscriptionFlow) SelectExtend(_ context.Context, _ model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
	return s.step("extend", st)
}

func (s *stubSubscriptionFlow) SelectChange(_ context.Context, _ model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
	return s.step("change", st)
}

func (s *stubSubscriptionFlow) SelectDevices(_ context.Context, _ model.SessionKey, st model.ConversationState, _ int) (usecase.Transition, error) {
	return s.step("devices", st)
}

func (s *stubSubscriptionFlow) SelectDuration(_ context.Context, _ model.SessionKey, st model.ConversationState, _ int) (usecase.Transition, error) {
	return s.step("duration", st)
}

func (s *stubSubscriptionFlow) SelectPayment(_ context.Context, _ model.SessionKey, st model.ConversationState, _ string) (usecase.Transition, error) {
	return s.step("pay", st)
}

type stubPromocodeFlow struct {
	calls []string
	texts []string
}

func (s *stubPromocodeFlow) main(op string, st model.ConversationState) (usecase.Transition, error) {
	s.calls = append(s.calls, op)
	next := model.PromocodeState(model.PromocodeFlowState{Step: model.PromoStepMain}, st.AnchorMessageID)
	return usecase.Transition{Next: next, Reply: usecase.Reply{Screen: usecase.T("screen:promo:" + op)}}, nil
}

func (s *stubPromocodeFlow) OpenEditor(_ context.Context, st model.ConversationState) (usecase.Transition, error) {
	return s.main("open", st)
}

func (s *stubPromocodeFlow) SelectCreate(_ context.Context, st model.ConversationState) (usecase.Transition, error) {
	return s.main("create", st)
}

func (s *stubPromocodeFlow) SelectDelete(_ context.Context, st model.ConversationState) (usecase.Transition, error) {
	return s.main("delete", st)
}

func (s *stubPromocodeFlow) SelectEdit(_ context.Context, st model.ConversationState) (usecase.Transition, error) {
	return s.main("edit", st)
}

func (s *stubPromocodeFlow) SelectDuration(_ context.Context, st model.ConversationState, _ int) (usecase.Transition, error) {
	return s.main("duration", st)
}

func (s *stubPromocodeFlow) SubmitText(_ context.Context, st model.ConversationState, text string) (usecase.Transition, error) {
	s.texts = append(s.texts, text)
	return s.main("submit_text", st)
}

type testBot struct {
	*RealTelegramBotAdapter
	api    *fakeAPI
	states *memStates
	locker *fakeLocker
	sub    *stubSubscriptionFlow
	promo  *stubPromocodeFlow
}

func newTestBot(adminIDs ...int64) *testBot {
	return newGatedTestBot(config.ForceSubscriptionConfig{}, adminIDs...)
}

func newGatedTestBot(gate config.ForceSubscriptionConfig, adminIDs ...int64) *testBot {
	tb := &testBot{
		api:    &fakeAPI{},
		states: newMemStates(),
		locker: &fakeLocker{},
		sub:    &stubSubscriptionFlow{},
		promo:  &stubPromocodeFlow{},
	}
	cfg := &config.BotConfig{Token: "dummy", Mode: "polling", Workers: 1, AdminIDs: adminIDs}
	bot, err := NewRealTelegramBotAdapter(tb.api, cfg, gate, Flows{Subscription: tb.sub, Promocode: tb.promo},
		tb.states, tb.locker, nil, keyTranslator{}, newTestLogger())
	if err != nil {
		panic(err)
	}
	tb.RealTelegramBotAdapter = bot
	return tb
}

func callbackUpdate(userID int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: userID},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: messageID,
			Chat:      &tgbotapi.Chat{ID: userID},
		},
	}}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{Message: msg}
}
