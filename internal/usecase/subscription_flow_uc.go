package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

const expiryLayout = "02.01.2006 15:04 UTC"

// Compile-time check
var _ SubscriptionFlow = (*subscriptionFlowUC)(nil)

// SubscriptionFlow drives the purchase / extend / change dialogue.
// Every operation takes the stored state of the session and returns the state to persist.
type SubscriptionFlow interface {
	OpenMenu(ctx context.Context, key model.SessionKey, st model.ConversationState) (Transition, error)
	SelectProcess(ctx context.Context, key model.SessionKey, st model.ConversationState) (Transition, error)
	SelectExtend(ctx context.Context, key model.SessionKey, st model.ConversationState) (Transition, error)
	SelectChange(ctx context.Context, key model.SessionKey, st model.ConversationState) (Transition, error)
	SelectDevices(ctx context.Context, key model.SessionKey, st model.ConversationState, devices int) (Transition, error)
	SelectDuration(ctx context.Context, key model.SessionKey, st model.ConversationState, days int) (Transition, error)
	SelectPayment(ctx context.Context, key model.SessionKey, st model.ConversationState, method string) (Transition, error)
}

type subscriptionFlowUC struct {
	subs     repository.SubscriptionRepository
	servers  repository.ServerRepository
	plans    *PlanCatalog
	gateways []adapter.PaymentGateway
	log      *zerolog.Logger
	now      func() time.Time
}

func NewSubscriptionFlow(
	subs repository.SubscriptionRepository,
	servers repository.ServerRepository,
	plans *PlanCatalog,
	gateways []adapter.PaymentGateway,
	logger *zerolog.Logger,
) *subscriptionFlowUC {
	return &subscriptionFlowUC{
		subs:     subs,
		servers:  servers,
		plans:    plans,
		gateways: gateways,
		log:      logger,
		now:      time.Now,
	}
}

func (f *subscriptionFlowUC) OpenMenu(ctx context.Context, key model.SessionKey, st model.ConversationState) (Transition, error) {
	rec, err := f.subs.FindBySubject(ctx, repository.NoTX, key.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		f.log.Error().Err(err).Int64("tg_id", key.UserID).Msg("load subscriber failed")
		return stay(st), domain.NewBusinessError("subscription:popup:error_fetching_data", err)
	}

	var client *model.ClientData
	if rec != nil && rec.ResourceAssigned {
		client, err = f.clientData(ctx, key.UserID)
		if err != nil {
			f.log.Warn().Err(err).Int64("tg_id", key.UserID).Msg("client data unavailable")
			return stay(st), domain.NewBusinessError("subscription:popup:error_fetching_data", err)
		}
	}

	var screen Text
	var rows [][]Button
	switch {
	case client == nil:
		screen = T("subscription:message:not_active")
		rows = append(rows, []Button{{Label: T("subscription:button:buy"), Data: CbSubProcess}})
	case client.Expired(f.now()):
		screen = T("subscription:message:expired")
		rows = append(rows,
			[]Button{{Label: T("subscription:button:extend"), Data: CbSubExtend}},
			[]Button{{Label: T("subscription:button:change"), Data: CbSubChange}},
		)
	default:
		screen = T("subscription:message:active", client.Devices, expiryArg(client))
		rows = append(rows,
			[]Button{{Label: T("subscription:button:extend"), Data: CbSubExtend}},
			[]Button{{Label: T("subscription:button:change"), Data: CbSubChange}},
		)
	}

	next := model.SubscriptionState(model.SubscriptionFlowState{Step: model.SubStepMain}, st.AnchorMessageID)
	return Transition{Next: next, Reply: Reply{Screen: screen, Buttons: rows}}, nil
}

func (f *subscriptionFlowUC) SelectProcess(ctx context.Context, key model.SessionKey, st model.ConversationState) (Transition, error) {
	srv, err := f.servers.FindAvailable(ctx, repository.NoTX)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			f.log.Error().Err(err).Msg("server lookup failed")
		}
		return stay(st), domain.NewBusinessError("subscription:popup:no_available_servers", domain.ErrNoServerCapacity)
	}
	f.log.Debug().Int64("tg_id", key.UserID).Int64("server_id", srv.ID).Msg("purchase started")

	next := model.SubscriptionState(model.SubscriptionFlowState{Step: model.SubStepProcess}, st.AnchorMessageID)
	return Transition{Next: next, Reply: f.devicesReply()}, nil
}

func (f *subscriptionFlowUC) SelectExtend(ctx context.Context, key model.SessionKey, st model.ConversationState) (Transition, error) {
	const failKey = "subscription:popup:error_fetching_plan"

	if err := f.requireResource(ctx, key.UserID); err != nil {
		return stay(st), domain.NewBusinessError(failKey, err)
	}
	devices, err := f.subs.GetDeviceCount(ctx, repository.NoTX, key.UserID)
	if err != nil {
		f.log.Warn().Err(err).Int64("tg_id", key.UserID).Msg("device count unavailable")
		return stay(st), domain.NewBusinessError(failKey, err)
	}
	plan, ok := f.plans.Get(devices)
	if !ok {
		return stay(st), domain.NewBusinessError(failKey, fmt.Errorf("%w: %d", domain.ErrNoPlan, devices))
	}

	// Extending keeps the current device count, so the flow skips straight to duration.
	payload := model.SubscriptionFlowState{Step: model.SubStepDevices, Devices: devices, IsExtend: true}
	next := model.SubscriptionState(payload, st.AnchorMessageID)
	return Transition{Next: next, Reply: f.durationReply(plan)}, nil
}

func (f *subscriptionFlowUC) SelectChange(ctx context.Context, key model.SessionKey, st model.ConversationState) (Transition, error) {
	if err := f.requireResource(ctx, key.UserID); err != nil {
		return stay(st), domain.NewPreconditionError("subscription:popup:no_subscription", err)
	}
	payload := model.SubscriptionFlowState{Step: model.SubStepChange, IsChange: true}
	next := model.SubscriptionState(payload, st.AnchorMessageID)
	return Transition{Next: next, Reply: f.devicesReply()}, nil
}

func (f *subscriptionFlowUC) SelectDevices(ctx context.Context, key model.SessionKey, st model.ConversationState, devices int) (Transition, error) {
	cur, ok := st.AsSubscription()
	if !ok || (cur.Step != model.SubStepProcess && cur.Step != model.SubStepChange) {
		return stay(st), domain.NewPreconditionError("subscription:popup:session_expired", nil)
	}
	plan, ok := f.plans.Get(devices)
	if !ok {
		return stay(st), domain.NewInvalidInputError("subscription:popup:error_fetching_plan", fmt.Errorf("%w: %d", domain.ErrNoPlan, devices))
	}

	payload := model.SubscriptionFlowState{Step: model.SubStepDevices, Devices: devices, IsChange: cur.IsChange}
	next := model.SubscriptionState(payload, st.AnchorMessageID)
	return Transition{Next: next, Reply: f.durationReply(plan)}, nil
}

func (f *subscriptionFlowUC) SelectDuration(ctx context.Context, key model.SessionKey, st model.ConversationState, days int) (Transition, error) {
	cur, ok := st.AsSubscription()
	if !ok || cur.Step != model.SubStepDevices || cur.Devices <= 0 {
		return stay(st), domain.NewPreconditionError("subscription:popup:session_expired", nil)
	}
	plan, ok := f.plans.Get(cur.Devices)
	if !ok {
		return stay(st), domain.NewInvalidInputError("subscription:popup:error_fetching_plan", domain.ErrNoPlan)
	}
	if _, ok := plan.Price(f.plans.Currency(), days); !ok {
		return stay(st), domain.NewInvalidInputError("subscription:popup:invalid_duration", fmt.Errorf("%w: %d days", domain.ErrInvalidArgument, days))
	}

	cur.Step = model.SubStepDuration
	cur.DurationDays = days
	next := model.SubscriptionState(cur, st.AnchorMessageID)
	return Transition{Next: next, Reply: f.paymentReply(plan, days)}, nil
}

func (f *subscriptionFlowUC) SelectPayment(ctx context.Context, key model.SessionKey, st model.ConversationState, method string) (Transition, error) {
	cur, ok := st.AsSubscription()
	if !ok || cur.Step != model.SubStepDuration || cur.Devices <= 0 || cur.DurationDays <= 0 {
		return stay(st), domain.NewPreconditionError("subscription:popup:session_expired", nil)
	}
	gw := f.gateway(method)
	if gw == nil {
		return stay(st), domain.NewInvalidInputError("subscription:popup:unknown_payment_method", domain.ErrUnknownPaymentGate)
	}
	plan, ok := f.plans.Get(cur.Devices)
	if !ok {
		return stay(st), domain.NewInvalidInputError("subscription:popup:error_fetching_plan", domain.ErrNoPlan)
	}
	price, ok := plan.Price(gw.Currency(), cur.DurationDays)
	if !ok {
		return stay(st), domain.NewInvalidInputError("subscription:popup:unknown_payment_method", fmt.Errorf("%w: no %s price", domain.ErrUnknownPaymentGate, gw.Currency()))
	}

	ref, err := gw.CreatePayment(ctx, adapter.PaymentRequest{
		TelegramID:   key.UserID,
		ChatID:       key.ChatID,
		Devices:      cur.Devices,
		DurationDays: cur.DurationDays,
		Price:        price,
		Currency:     gw.Currency(),
		IsExtend:     cur.IsExtend,
		IsChange:     cur.IsChange,
	})
	if err != nil {
		f.log.Error().Err(err).Str("gateway", gw.Name()).Int64("tg_id", key.UserID).Msg("create payment failed")
		return stay(st), domain.NewBusinessError("subscription:popup:payment_failed", err)
	}
	f.log.Info().Str("gateway", gw.Name()).Str("ref", ref).Int64("tg_id", key.UserID).
		Int("devices", cur.Devices).Int("days", cur.DurationDays).Msg("payment created")

	cur.Step = model.SubStepPay
	next := model.SubscriptionState(cur, st.AnchorMessageID)
	reply := Reply{
		Screen:  T("subscription:message:pay", price, gw.Currency()),
		Buttons: [][]Button{backButton(CbSubMain)},
	}
	return Transition{Next: next, Reply: reply}, nil
}

func (f *subscriptionFlowUC) requireResource(ctx context.Context, subjectID int64) error {
	rec, err := f.subs.FindBySubject(ctx, repository.NoTX, subjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoResource
		}
		return err
	}
	if !rec.ResourceAssigned {
		return domain.ErrNoResource
	}
	return nil
}

func (f *subscriptionFlowUC) clientData(ctx context.Context, subjectID int64) (*model.ClientData, error) {
	expiry, err := f.subs.GetExpiry(ctx, repository.NoTX, subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrClientDataNotFound, err)
	}
	devices, err := f.subs.GetDeviceCount(ctx, repository.NoTX, subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrClientDataNotFound, err)
	}
	return &model.ClientData{SubjectID: subjectID, Devices: devices, ExpiresAt: expiry}, nil
}

func (f *subscriptionFlowUC) gateway(name string) adapter.PaymentGateway {
	for _, g := range f.gateways {
		if g.Name() == name {
			return g
		}
	}
	return nil
}

func (f *subscriptionFlowUC) devicesReply() Reply {
	var rows [][]Button
	for _, p := range f.plans.All() {
		rows = append(rows, []Button{{Label: T("subscription:button:devices", p.Devices), Data: CbSubDevices(p.Devices)}})
	}
	rows = append(rows, backButton(CbSubMain))
	return Reply{Screen: T("subscription:message:devices"), Buttons: rows}
}

func (f *subscriptionFlowUC) durationReply(plan Plan) Reply {
	currency := f.plans.Currency()
	var rows [][]Button
	for _, d := range plan.Durations(currency) {
		price, _ := plan.Price(currency, d)
		rows = append(rows, []Button{{Label: T("subscription:button:duration", periodText(d), price, currency), Data: CbSubDuration(d)}})
	}
	rows = append(rows, backButton(CbSubMain))
	return Reply{Screen: T("subscription:message:duration"), Buttons: rows}
}

func (f *subscriptionFlowUC) paymentReply(plan Plan, days int) Reply {
	var rows [][]Button
	for _, g := range f.gateways {
		price, ok := plan.Price(g.Currency(), days)
		if !ok {
			continue
		}
		rows = append(rows, []Button{{Label: T("payment:gateway:"+g.Name(), price, g.Currency()), Data: CbSubPay(g.Name())}})
	}
	rows = append(rows, backButton(CbSubMain))
	return Reply{Screen: T("subscription:message:payment_method"), Buttons: rows}
}

func expiryArg(c *model.ClientData) interface{} {
	if c.Unlimited() {
		return T("subscription:label:unlimited")
	}
	return c.ExpiresAt.UTC().Format(expiryLayout)
}
