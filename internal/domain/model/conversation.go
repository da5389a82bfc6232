package model

import (
	"fmt"

	"vpn-subscription-bot/internal/domain"
)

// SessionKey scopes conversation state to one user inside one chat.
type SessionKey struct {
	UserID int64
	ChatID int64
}

func (k SessionKey) String() string { return fmt.Sprintf("%d:%d", k.ChatID, k.UserID) }

// FlowKind tags which conversation, if any, owns a session.
type FlowKind string

const (
	FlowNone         FlowKind = "none"
	FlowSubscription FlowKind = "subscription"
	FlowPromocode    FlowKind = "promocode"
)

// SubscriptionStep is where the dialogue rests. Extending has no step of its
// own: it rests on SubStepDevices with IsExtend set.
type SubscriptionStep string

const (
	SubStepMain     SubscriptionStep = "main"
	SubStepProcess  SubscriptionStep = "process"
	SubStepChange   SubscriptionStep = "change"
	SubStepDevices  SubscriptionStep = "devices"
	SubStepDuration SubscriptionStep = "duration"
	SubStepPay      SubscriptionStep = "pay"
)

// SubscriptionFlowState is the payload of the purchase/extend/change dialogue.
type SubscriptionFlowState struct {
	Step         SubscriptionStep `json:"step"`
	Devices      int              `json:"devices,omitempty"`
	DurationDays int              `json:"duration_days,omitempty"`
	IsExtend     bool             `json:"is_extend,omitempty"`
	IsChange     bool             `json:"is_change,omitempty"`
}

type PromocodeStep string

const (
	PromoStepMain               PromocodeStep = "main"
	PromoStepCreateDuration     PromocodeStep = "create:selecting_duration"
	PromoStepDeleteInput        PromocodeStep = "delete:promocode_input"
	PromoStepEditInput          PromocodeStep = "edit:promocode_input"
	PromoStepEditSelectDuration PromocodeStep = "edit:selecting_duration"
)

// PromocodeFlowState is the payload of the admin promocode editor.
type PromocodeFlowState struct {
	Step PromocodeStep `json:"step"`
	Code string        `json:"code,omitempty"`
}

// ConversationState is a tagged union: Flow says which payload is populated.
// Build it with the constructors below; Validate rejects mixed payloads.
type ConversationState struct {
	Flow            FlowKind               `json:"flow"`
	Subscription    *SubscriptionFlowState `json:"subscription,omitempty"`
	Promocode       *PromocodeFlowState    `json:"promocode,omitempty"`
	AnchorMessageID int                    `json:"anchor_message_id,omitempty"`
}

// EmptyState is the state of a session with no active flow.
func EmptyState() ConversationState {
	return ConversationState{Flow: FlowNone}
}

// SubscriptionState replaces whatever the session held with the given subscription payload.
func SubscriptionState(s SubscriptionFlowState, anchor int) ConversationState {
	return ConversationState{Flow: FlowSubscription, Subscription: &s, AnchorMessageID: anchor}
}

// PromocodeState replaces whatever the session held with the given promocode payload.
func PromocodeState(p PromocodeFlowState, anchor int) ConversationState {
	return ConversationState{Flow: FlowPromocode, Promocode: &p, AnchorMessageID: anchor}
}

// AsSubscription returns a copy of the subscription payload when that flow is active.
func (s ConversationState) AsSubscription() (SubscriptionFlowState, bool) {
	if s.Flow != FlowSubscription || s.Subscription == nil {
		return SubscriptionFlowState{}, false
	}
	return *s.Subscription, true
}

// AsPromocode returns a copy of the promocode payload when that flow is active.
func (s ConversationState) AsPromocode() (PromocodeFlowState, bool) {
	if s.Flow != FlowPromocode || s.Promocode == nil {
		return PromocodeFlowState{}, false
	}
	return *s.Promocode, true
}

// IsActive reports whether any flow owns the session.
func (s ConversationState) IsActive() bool {
	return s.Flow == FlowSubscription || s.Flow == FlowPromocode
}

// Tag is a compact "flow:step" label used in logs and metrics.
func (s ConversationState) Tag() string {
	switch s.Flow {
	case FlowSubscription:
		if s.Subscription != nil {
			return "subscription:" + string(s.Subscription.Step)
		}
	case FlowPromocode:
		if s.Promocode != nil {
			return "promocode:" + string(s.Promocode.Step)
		}
	}
	return string(FlowNone)
}

// Validate enforces that exactly the payload named by Flow is present.
func (s ConversationState) Validate() error {
	switch s.Flow {
	case FlowNone, "":
		if s.Subscription != nil || s.Promocode != nil {
			return domain.ErrCorruptState
		}
	case FlowSubscription:
		if s.Subscription == nil || s.Promocode != nil {
			return domain.ErrCorruptState
		}
	case FlowPromocode:
		if s.Promocode == nil || s.Subscription != nil {
			return domain.ErrCorruptState
		}
	default:
		return fmt.Errorf("%w: unknown flow %q", domain.ErrCorruptState, s.Flow)
	}
	return nil
}
