package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"
	"vpn-subscription-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ PromocodeFlow = (*promocodeFlowUC)(nil)

// PromocodeFlow is the admin editor for promocodes. Create, Delete and Edit
// share one namespace, so entering any of them drops what the session held.
type PromocodeFlow interface {
	OpenEditor(ctx context.Context, st model.ConversationState) (Transition, error)
	SelectCreate(ctx context.Context, st model.ConversationState) (Transition, error)
	SelectDelete(ctx context.Context, st model.ConversationState) (Transition, error)
	SelectEdit(ctx context.Context, st model.ConversationState) (Transition, error)
	SelectDuration(ctx context.Context, st model.ConversationState, days int) (Transition, error)
	SubmitText(ctx context.Context, st model.ConversationState, text string) (Transition, error)
}

type promocodeFlowUC struct {
	repo      repository.PromocodeRepository
	durations []int
	log       *zerolog.Logger
}

// NewPromocodeFlow builds the editor; durations are offered on the duration keyboard.
func NewPromocodeFlow(repo repository.PromocodeRepository, durations []int, logger *zerolog.Logger) *promocodeFlowUC {
	return &promocodeFlowUC{repo: repo, durations: durations, log: logger}
}

func (f *promocodeFlowUC) OpenEditor(ctx context.Context, st model.ConversationState) (Transition, error) {
	return f.toMain(st, nil), nil
}

func (f *promocodeFlowUC) SelectCreate(ctx context.Context, st model.ConversationState) (Transition, error) {
	next := model.PromocodeState(model.PromocodeFlowState{Step: model.PromoStepCreateDuration}, st.AnchorMessageID)
	return Transition{Next: next, Reply: Reply{Screen: T("promocode_editor:message:create"), Buttons: f.durationRows()}}, nil
}

func (f *promocodeFlowUC) SelectDelete(ctx context.Context, st model.ConversationState) (Transition, error) {
	next := model.PromocodeState(model.PromocodeFlowState{Step: model.PromoStepDeleteInput}, st.AnchorMessageID)
	return Transition{Next: next, Reply: Reply{Screen: T("promocode_editor:message:delete"), Buttons: [][]Button{backButton(CbPromoEditor)}}}, nil
}

func (f *promocodeFlowUC) SelectEdit(ctx context.Context, st model.ConversationState) (Transition, error) {
	next := model.PromocodeState(model.PromocodeFlowState{Step: model.PromoStepEditInput}, st.AnchorMessageID)
	return Transition{Next: next, Reply: Reply{Screen: T("promocode_editor:message:edit"), Buttons: [][]Button{backButton(CbPromoEditor)}}}, nil
}

func (f *promocodeFlowUC) SelectDuration(ctx context.Context, st model.ConversationState, days int) (Transition, error) {
	cur, ok := st.AsPromocode()
	if !ok || (cur.Step != model.PromoStepCreateDuration && cur.Step != model.PromoStepEditSelectDuration) {
		return stay(st), domain.NewPreconditionError("promocode_editor:popup:session_expired", nil)
	}
	if days <= 0 {
		return stay(st), domain.NewInvalidInputError("promocode_editor:popup:invalid_duration", fmt.Errorf("%w: %d days", domain.ErrInvalidArgument, days))
	}

	if cur.Step == model.PromoStepCreateDuration {
		return f.create(ctx, st, days), nil
	}
	return f.edit(ctx, st, cur.Code, days), nil
}

func (f *promocodeFlowUC) SubmitText(ctx context.Context, st model.ConversationState, text string) (Transition, error) {
	cur, ok := st.AsPromocode()
	if !ok {
		return stay(st), domain.NewPreconditionError("promocode_editor:popup:session_expired", nil)
	}
	if cur.Step != model.PromoStepDeleteInput && cur.Step != model.PromoStepEditInput {
		return f.toMain(st, nil), domain.NewPreconditionError("promocode_editor:popup:session_expired", nil)
	}
	code := strings.TrimSpace(text)
	if code == "" {
		return stay(st), domain.NewInvalidInputError("promocode_editor:popup:empty_input", domain.ErrInvalidArgument)
	}

	if cur.Step == model.PromoStepDeleteInput {
		return f.delete(ctx, st, code), nil
	}

	p, err := f.repo.Get(ctx, repository.NoTX, code)
	if err != nil || !p.Editable() {
		f.logEditRejected(code, p, err)
		return f.toMain(st, &Notice{Text: T("promocode_editor:ntf:edit_failed")}), nil
	}
	payload := model.PromocodeFlowState{Step: model.PromoStepEditSelectDuration, Code: p.Code}
	return Transition{
		Next: model.PromocodeState(payload, st.AnchorMessageID),
		Reply: Reply{
			Screen:  T("promocode_editor:message:edit_duration", p.Code, periodText(p.DurationDays)),
			Buttons: f.durationRows(),
		},
	}, nil
}

func (f *promocodeFlowUC) create(ctx context.Context, st model.ConversationState, days int) Transition {
	p, err := f.repo.Create(ctx, repository.NoTX, days)
	metrics.IncPromocodeAction("create", err == nil)
	if err != nil {
		f.log.Error().Err(err).Int("days", days).Msg("create promocode failed")
		return f.toMain(st, &Notice{Text: T("promocode_editor:ntf:create_failed")})
	}
	f.log.Info().Str("code", p.Code).Int("days", days).Msg("promocode created")
	return f.toMain(st, &Notice{Text: T("promocode_editor:ntf:created_success", p.Code, periodText(p.DurationDays)), OK: true})
}

func (f *promocodeFlowUC) delete(ctx context.Context, st model.ConversationState, code string) Transition {
	deleted, err := f.repo.Delete(ctx, repository.NoTX, code)
	metrics.IncPromocodeAction("delete", err == nil && deleted)
	if err != nil || !deleted {
		if err != nil {
			f.log.Error().Err(err).Str("code", code).Msg("delete promocode failed")
		}
		return f.toMain(st, &Notice{Text: T("promocode_editor:ntf:delete_failed")})
	}
	f.log.Info().Str("code", code).Msg("promocode deleted")
	return f.toMain(st, &Notice{Text: T("promocode_editor:ntf:deleted_success", code), OK: true})
}

func (f *promocodeFlowUC) edit(ctx context.Context, st model.ConversationState, code string, days int) Transition {
	old, err := f.repo.Get(ctx, repository.NoTX, code)
	if err != nil || !old.Editable() {
		metrics.IncPromocodeAction("edit", false)
		f.logEditRejected(code, old, err)
		return f.toMain(st, &Notice{Text: T("promocode_editor:ntf:edit_failed")})
	}
	updated, err := f.repo.Update(ctx, repository.NoTX, code, days)
	metrics.IncPromocodeAction("edit", err == nil)
	if err != nil {
		f.log.Error().Err(err).Str("code", code).Msg("update promocode failed")
		return f.toMain(st, &Notice{Text: T("promocode_editor:ntf:edit_failed")})
	}
	f.log.Info().Str("code", code).Int("old_days", old.DurationDays).Int("days", updated.DurationDays).Msg("promocode edited")
	return f.toMain(st, &Notice{
		Text: T("promocode_editor:ntf:edited_success", code, periodText(old.DurationDays), periodText(updated.DurationDays)),
		OK:   true,
	})
}

func (f *promocodeFlowUC) logEditRejected(code string, p *model.Promocode, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		f.log.Debug().Str("code", code).Msg("edit rejected: promocode not found")
	case err != nil:
		f.log.Error().Err(err).Str("code", code).Msg("load promocode failed")
	case p != nil && p.IsActivated:
		f.log.Debug().Str("code", code).Msg("edit rejected: promocode activated")
	}
}

func (f *promocodeFlowUC) toMain(st model.ConversationState, n *Notice) Transition {
	next := model.PromocodeState(model.PromocodeFlowState{Step: model.PromoStepMain}, st.AnchorMessageID)
	return Transition{
		Next: next,
		Reply: Reply{
			Screen: T("promocode_editor:message:main"),
			Notice: n,
			Buttons: [][]Button{
				{{Label: T("promocode_editor:button:create"), Data: CbPromoCreate}},
				{{Label: T("promocode_editor:button:delete"), Data: CbPromoDelete}},
				{{Label: T("promocode_editor:button:edit"), Data: CbPromoEdit}},
				backButton(CbAdminTools),
			},
		},
	}
}

func (f *promocodeFlowUC) durationRows() [][]Button {
	rows := make([][]Button, 0, len(f.durations)+1)
	for _, d := range f.durations {
		rows = append(rows, []Button{{Label: periodText(d), Data: CbPromoDuration(d)}})
	}
	return append(rows, backButton(CbPromoEditor))
}

// AdminToolsReply is the admin landing screen.
func AdminToolsReply() Reply {
	return Reply{
		Screen: T("admin_tools:message:main"),
		Buttons: [][]Button{
			{{Label: T("admin_tools:button:promocode_editor"), Data: CbPromoEditor}},
		},
	}
}
