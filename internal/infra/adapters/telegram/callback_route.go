package telegram

import (
	"context"

	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/usecase"
)

type flowFn func(ctx context.Context, key model.SessionKey, st model.ConversationState) (usecase.Transition, error)

// route names the flow operation an update maps to. Admin routes are refused
// for users outside the configured admin list.
type route struct {
	flow  string
	op    string
	admin bool
	fn    flowFn
}

const (
	flowSubscription = "subscription"
	flowPromocode    = "promocode"
	flowAdmin        = "admin"
)

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]route {
	menu := r.subRoute("open_menu", r.flows.Subscription.OpenMenu)
	return map[string]route{
		"start":        menu,
		"subscription": menu,
		"admin":        {flow: flowAdmin, op: "open", admin: true, fn: adminTools},
	}
}

// callbackRoute maps parsed callback data to a flow operation.
func (r *RealTelegramBotAdapter) callbackRoute(cb usecase.Callback) route {
	sub, promo := r.flows.Subscription, r.flows.Promocode

	switch cb.Action {
	case usecase.CbSubMain:
		return r.subRoute("open_menu", sub.OpenMenu)
	case usecase.CbSubProcess:
		return r.subRoute("process", sub.SelectProcess)
	case usecase.CbSubExtend:
		return r.subRoute("extend", sub.SelectExtend)
	case usecase.CbSubChange:
		return r.subRoute("change", sub.SelectChange)
	case usecase.ActSubDevices:
		return r.subRoute("devices", func(ctx context.Context, key model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
			return sub.SelectDevices(ctx, key, st, cb.Int)
		})
	case usecase.ActSubDuration:
		return r.subRoute("duration", func(ctx context.Context, key model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
			return sub.SelectDuration(ctx, key, st, cb.Int)
		})
	case usecase.ActSubPay:
		return r.subRoute("pay", func(ctx context.Context, key model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
			return sub.SelectPayment(ctx, key, st, cb.Str)
		})
	case usecase.CbCheckSubscription:
		return route{flow: flowSubscription, op: "check_subscription", fn: r.checkSubscription}

	case usecase.CbAdminTools:
		return route{flow: flowAdmin, op: "open", admin: true, fn: adminTools}
	case usecase.CbPromoEditor:
		return promoRoute("open", promo.OpenEditor)
	case usecase.CbPromoCreate:
		return promoRoute("create", promo.SelectCreate)
	case usecase.CbPromoDelete:
		return promoRoute("delete", promo.SelectDelete)
	case usecase.CbPromoEdit:
		return promoRoute("edit", promo.SelectEdit)
	case usecase.ActPromoDuration:
		return promoRoute("duration", func(ctx context.Context, st model.ConversationState) (usecase.Transition, error) {
			return promo.SelectDuration(ctx, st, cb.Int)
		})
	}
	return route{}
}

// textRoute feeds free text to the promocode editor. Text outside an admin's
// promocode session is ignored.
func (r *RealTelegramBotAdapter) textRoute(text string) route {
	return route{flow: flowPromocode, op: "submit_text", fn: func(ctx context.Context, key model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
		if st.Flow != model.FlowPromocode || !r.IsAdmin(key.UserID) {
			return usecase.Transition{Next: st}, nil
		}
		return r.flows.Promocode.SubmitText(ctx, st, text)
	}}
}

// subRoute is a subscription menu operation, open to channel members only.
func (r *RealTelegramBotAdapter) subRoute(op string, fn flowFn) route {
	return route{flow: flowSubscription, op: op, fn: r.requireChannel(fn)}
}

func promoRoute(op string, fn func(ctx context.Context, st model.ConversationState) (usecase.Transition, error)) route {
	return route{flow: flowPromocode, op: op, admin: true, fn: func(ctx context.Context, _ model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
		return fn(ctx, st)
	}}
}

// adminTools leaves any active flow and shows the admin landing screen.
func adminTools(_ context.Context, _ model.SessionKey, st model.ConversationState) (usecase.Transition, error) {
	next := model.EmptyState()
	next.AnchorMessageID = st.AnchorMessageID
	return usecase.Transition{Next: next, Reply: usecase.AdminToolsReply()}, nil
}
