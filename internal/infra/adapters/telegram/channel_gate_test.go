package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vpn-subscription-bot/internal/config"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/usecase"
)

var testGate = config.ForceSubscriptionConfig{Enabled: true, ChannelID: -100123, ChannelUsername: "vpnnews"}

func lastEdit(t *testing.T, api *fakeAPI) tgbotapi.EditMessageTextConfig {
	t.Helper()
	if len(api.sent) == 0 {
		t.Fatal("nothing was presented")
	}
	edit, ok := api.sent[len(api.sent)-1].(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("expected an edit, got %T", api.sent[len(api.sent)-1])
	}
	return edit
}

func TestChannelGate_SubscriptionRoutes(t *testing.T) {
	cases := []struct {
		name      string
		gate      config.ForceSubscriptionConfig
		status    string
		lookupErr error
		wantPass  bool
	}{
		{name: "member passes", gate: testGate, status: "member", wantPass: true},
		{name: "administrator passes", gate: testGate, status: "administrator", wantPass: true},
		{name: "user who left is stopped", gate: testGate, status: "left", wantPass: false},
		{name: "kicked user is stopped", gate: testGate, status: "kicked", wantPass: false},
		{name: "lookup error lets the user through", gate: testGate, lookupErr: errors.New("Bad Request: member list is inaccessible"), wantPass: true},
		{name: "disabled gate never looks up", gate: config.ForceSubscriptionConfig{}, status: "left", wantPass: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tb := newGatedTestBot(tc.gate)
			tb.api.memberStatus, tb.api.memberErr = tc.status, tc.lookupErr

			if err := tb.handleUpdate(context.Background(), callbackUpdate(7, 10, usecase.CbSubProcess)); err != nil {
				t.Fatalf("handleUpdate: %v", err)
			}

			if passed := len(tb.sub.calls) == 1; passed != tc.wantPass {
				t.Fatalf("expected pass=%v, flow calls %v", tc.wantPass, tb.sub.calls)
			}
			if !tc.gate.Enabled && len(tb.api.memberChecks) != 0 {
				t.Fatal("disabled gate must not call getChatMember")
			}
			if tc.gate.Enabled {
				if len(tb.api.memberChecks) != 1 {
					t.Fatalf("expected one membership lookup, got %d", len(tb.api.memberChecks))
				}
				if c := tb.api.memberChecks[0]; c.ChatID != -100123 || c.UserID != 7 {
					t.Errorf("unexpected lookup %+v", c)
				}
			}
			if tc.wantPass {
				return
			}

			edit := lastEdit(t, tb.api)
			if edit.Text != "subscription_required:message:not_subscribed" {
				t.Fatalf("unexpected screen %q", edit.Text)
			}
			rows := edit.ReplyMarkup.InlineKeyboard
			if len(rows) != 2 || rows[0][0].URL == nil || *rows[0][0].URL != "https://t.me/vpnnews" {
				t.Fatalf("expected a subscribe link first, got %+v", rows)
			}
			if rows[1][0].CallbackData == nil || *rows[1][0].CallbackData != usecase.CbCheckSubscription {
				t.Fatalf("expected a re-check button, got %+v", rows[1])
			}
			if cbs := tb.api.callbacks(); len(cbs) != 1 || cbs[0].Text != "" {
				t.Fatalf("expected a silent ack, got %+v", cbs)
			}
			st := tb.states.states[model.SessionKey{UserID: 7, ChatID: 7}]
			if st.Flow != model.FlowNone {
				t.Errorf("state must not advance, got %s", st.Tag())
			}
		})
	}
}

func TestChannelGate_CheckSubscription(t *testing.T) {
	t.Run("still not subscribed shows the screen and an alert", func(t *testing.T) {
		tb := newGatedTestBot(testGate)
		tb.api.memberStatus = "left"

		if err := tb.handleUpdate(context.Background(), callbackUpdate(7, 10, usecase.CbCheckSubscription)); err != nil {
			t.Fatalf("handleUpdate: %v", err)
		}
		if len(tb.sub.calls) != 0 {
			t.Fatalf("menu must stay closed, got %v", tb.sub.calls)
		}
		if edit := lastEdit(t, tb.api); edit.Text != "subscription_required:message:still_not_subscribed" {
			t.Fatalf("unexpected screen %q", edit.Text)
		}
		cbs := tb.api.callbacks()
		if len(cbs) != 1 || !cbs[0].ShowAlert || cbs[0].Text != "subscription_required:popup:still_not_subscribed" {
			t.Fatalf("expected the still-not-subscribed alert, got %+v", cbs)
		}
	})

	t.Run("subscribed opens the menu", func(t *testing.T) {
		tb := newGatedTestBot(testGate)
		tb.api.memberStatus = "member"

		if err := tb.handleUpdate(context.Background(), callbackUpdate(7, 10, usecase.CbCheckSubscription)); err != nil {
			t.Fatalf("handleUpdate: %v", err)
		}
		if len(tb.sub.calls) != 1 || tb.sub.calls[0] != "open_menu" {
			t.Fatalf("expected the menu, got %v", tb.sub.calls)
		}
	})
}

func TestChannelGate_Commands(t *testing.T) {
	gate := config.ForceSubscriptionConfig{Enabled: true, ChannelUsername: "vpnnews"}
	tb := newGatedTestBot(gate)
	tb.api.memberStatus = "left"

	if err := tb.handleUpdate(context.Background(), textUpdate(7, "/subscription")); err != nil {
		t.Fatalf("handleUpdate: %v", err)
	}
	if len(tb.sub.calls) != 0 {
		t.Fatalf("command must be gated, got %v", tb.sub.calls)
	}
	if len(tb.api.memberChecks) != 1 || tb.api.memberChecks[0].SuperGroupUsername != "@vpnnews" {
		t.Fatalf("expected a lookup by username, got %+v", tb.api.memberChecks)
	}
	msg, ok := tb.api.sent[len(tb.api.sent)-1].(tgbotapi.MessageConfig)
	if !ok || msg.Text != "subscription_required:message:not_subscribed" {
		t.Fatalf("expected the subscribe screen as a new message, got %+v", tb.api.sent)
	}
}
