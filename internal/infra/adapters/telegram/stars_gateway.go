package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/infra/logging"
	"vpn-subscription-bot/internal/infra/metrics"
)

const (
	StarsGatewayName = "stars"
	StarsCurrency    = "XTR"
)

var _ adapter.PaymentGateway = (*StarsGateway)(nil)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// StarsGateway bills in Telegram Stars by sending an invoice to the chat.
// Stars invoices need no provider token.
type StarsGateway struct {
	api sender
	tr  adapter.Translator
	log *zerolog.Logger
}

func NewStarsGateway(api sender, tr adapter.Translator, logger *zerolog.Logger) *StarsGateway {
	l := logger.With().Str("component", "StarsGateway").Logger()
	return &StarsGateway{api: api, tr: tr, log: &l}
}

func (g *StarsGateway) Name() string     { return StarsGatewayName }
func (g *StarsGateway) Currency() string { return StarsCurrency }

// CreatePayment sends the invoice and returns its payload id.
func (g *StarsGateway) CreatePayment(ctx context.Context, req adapter.PaymentRequest) (string, error) {
	if req.Price <= 0 {
		return "", errors.New("invoice amount must be positive")
	}
	payload := ulid.Make().String()

	title := g.tr.T("payment:invoice:title", req.Devices)
	description := g.tr.T("payment:invoice:description", req.Devices, req.DurationDays)
	prices := []tgbotapi.LabeledPrice{{Label: title, Amount: req.Price}}

	inv := tgbotapi.NewInvoice(req.ChatID, title, description, payload, "", "", StarsCurrency, prices)
	// A nil slice is sent as null, which the API rejects.
	inv.SuggestedTipAmounts = []int{}

	if _, err := g.api.Send(inv); err != nil {
		metrics.IncPayment(g.Name(), "failed")
		return "", fmt.Errorf("send invoice: %w", err)
	}
	metrics.IncPayment(g.Name(), "initiated")
	logging.With(ctx, g.log).Info().Str("payload", payload).Int("amount", req.Price).
		Bool("extend", req.IsExtend).Bool("change", req.IsChange).Msg("invoice sent")
	return payload, nil
}

// handlePreCheckout confirms Stars checkouts; Telegram cancels the payment if
// the query is left unanswered.
func (r *RealTelegramBotAdapter) handlePreCheckout(ctx context.Context, q *tgbotapi.PreCheckoutQuery) error {
	ok := q.Currency == StarsCurrency && q.TotalAmount > 0
	cfg := tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: q.ID, OK: ok}
	if !ok {
		cfg.ErrorMessage = r.tr.T("payment:error:rejected")
		metrics.IncPayment(StarsGatewayName, "rejected")
	}
	_, err := r.api.Request(cfg)
	return err
}

// handleSuccessfulPayment records the payment and thanks the payer. Provisioning
// the VPN client happens outside this process.
func (r *RealTelegramBotAdapter) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) error {
	p := msg.SuccessfulPayment
	metrics.IncPayment(StarsGatewayName, "succeeded")
	metrics.AddPaymentAmount(p.Currency, p.TotalAmount)
	r.log.Info().Int64("tg_id", msg.From.ID).Str("payload", p.InvoicePayload).
		Str("charge_id", p.TelegramPaymentChargeID).Int("amount", p.TotalAmount).Msg("payment received")
	return r.SendMessage(ctx, msg.Chat.ID, r.tr.T("payment:message:received"))
}
