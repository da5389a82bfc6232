package usecase

import (
	"context"
	"errors"
	"testing"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
)

func newPromoFlow(repo *memPromocodeRepo) *promocodeFlowUC {
	return NewPromocodeFlow(repo, []int{7, 30}, newTestLogger())
}

func promoStep(t *testing.T, st model.ConversationState) model.PromocodeFlowState {
	t.Helper()
	p, ok := st.AsPromocode()
	if !ok {
		t.Fatalf("expected promocode flow, got %s", st.Tag())
	}
	return p
}

func TestPromocodeFlow_OpenEditorClearsOtherFlow(t *testing.T) {
	ctx := context.Background()
	flow := newPromoFlow(newMemPromocodeRepo())

	sub := model.SubscriptionState(model.SubscriptionFlowState{Step: model.SubStepDuration, Devices: 3, DurationDays: 30}, 12)
	tr, err := flow.OpenEditor(ctx, sub)
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}
	if err := tr.Next.Validate(); err != nil {
		t.Fatalf("invalid state: %v", err)
	}
	if _, ok := tr.Next.AsSubscription(); ok {
		t.Fatal("subscription payload must be cleared")
	}
	if promoStep(t, tr.Next).Step != model.PromoStepMain || tr.Next.AnchorMessageID != 12 {
		t.Fatalf("unexpected state %+v", tr.Next)
	}
}

func TestPromocodeFlow_SubFlowsAreExclusive(t *testing.T) {
	ctx := context.Background()
	flow := newPromoFlow(newMemPromocodeRepo())

	st := model.PromocodeState(model.PromocodeFlowState{Step: model.PromoStepEditSelectDuration, Code: "OLD"}, 0)
	tr, err := flow.SelectDelete(ctx, st)
	if err != nil {
		t.Fatalf("SelectDelete: %v", err)
	}
	p := promoStep(t, tr.Next)
	if p.Step != model.PromoStepDeleteInput || p.Code != "" {
		t.Fatalf("expected a clean delete payload, got %+v", p)
	}
}

func TestPromocodeFlow_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and returns to main", func(t *testing.T) {
		repo := newMemPromocodeRepo()
		repo.nextCode = "NEWCODE1"
		flow := newPromoFlow(repo)

		tr, _ := flow.SelectCreate(ctx, model.EmptyState())
		tr, err := flow.SelectDuration(ctx, tr.Next, 30)
		if err != nil {
			t.Fatalf("SelectDuration: %v", err)
		}
		if promoStep(t, tr.Next).Step != model.PromoStepMain {
			t.Fatalf("expected main, got %s", tr.Next.Tag())
		}
		if tr.Reply.Notice == nil || !tr.Reply.Notice.OK || tr.Reply.Notice.Key != "promocode_editor:ntf:created_success" {
			t.Fatalf("unexpected notice %+v", tr.Reply.Notice)
		}
		if _, err := repo.Get(ctx, nil, "NEWCODE1"); err != nil {
			t.Fatalf("promocode not stored: %v", err)
		}
	})

	t.Run("repository failure is reported", func(t *testing.T) {
		repo := newMemPromocodeRepo()
		repo.createErr = domain.ErrAlreadyExists
		flow := newPromoFlow(repo)

		tr, _ := flow.SelectCreate(ctx, model.EmptyState())
		tr, err := flow.SelectDuration(ctx, tr.Next, 30)
		if err != nil {
			t.Fatalf("SelectDuration: %v", err)
		}
		if tr.Reply.Notice == nil || tr.Reply.Notice.OK || tr.Reply.Notice.Key != "promocode_editor:ntf:create_failed" {
			t.Fatalf("unexpected notice %+v", tr.Reply.Notice)
		}
		if promoStep(t, tr.Next).Step != model.PromoStepMain {
			t.Fatal("expected main after failure")
		}
	})

	t.Run("non-positive duration is invalid input", func(t *testing.T) {
		flow := newPromoFlow(newMemPromocodeRepo())
		st := model.PromocodeState(model.PromocodeFlowState{Step: model.PromoStepCreateDuration}, 0)
		tr, err := flow.SelectDuration(ctx, st, 0)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
		if promoStep(t, tr.Next).Step != model.PromoStepCreateDuration {
			t.Fatal("state must be unchanged")
		}
	})
}

func TestPromocodeFlow_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newMemPromocodeRepo()
	repo.seed("SAVE10", 10, false)
	flow := newPromoFlow(repo)

	tr, _ := flow.SelectDelete(ctx, model.EmptyState())
	tr, err := flow.SubmitText(ctx, tr.Next, " SAVE10 ")
	if err != nil {
		t.Fatalf("SubmitText: %v", err)
	}
	if tr.Reply.Notice == nil || !tr.Reply.Notice.OK || tr.Reply.Notice.Key != "promocode_editor:ntf:deleted_success" {
		t.Fatalf("unexpected notice %+v", tr.Reply.Notice)
	}
	if _, err := repo.Get(ctx, nil, "SAVE10"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	tr, _ = flow.SelectDelete(ctx, tr.Next)
	tr, err = flow.SubmitText(ctx, tr.Next, "SAVE10")
	if err != nil {
		t.Fatalf("SubmitText: %v", err)
	}
	if tr.Reply.Notice == nil || tr.Reply.Notice.OK || tr.Reply.Notice.Key != "promocode_editor:ntf:delete_failed" {
		t.Fatalf("expected delete_failed, got %+v", tr.Reply.Notice)
	}
	if promoStep(t, tr.Next).Step != model.PromoStepMain {
		t.Fatal("expected main after failure")
	}
}

func TestPromocodeFlow_Edit(t *testing.T) {
	ctx := context.Background()

	t.Run("activated promocode is rejected", func(t *testing.T) {
		repo := newMemPromocodeRepo()
		repo.seed("USED", 30, true)
		flow := newPromoFlow(repo)

		tr, _ := flow.SelectEdit(ctx, model.EmptyState())
		tr, err := flow.SubmitText(ctx, tr.Next, "USED")
		if err != nil {
			t.Fatalf("SubmitText: %v", err)
		}
		if tr.Reply.Notice == nil || tr.Reply.Notice.Key != "promocode_editor:ntf:edit_failed" {
			t.Fatalf("expected edit_failed, got %+v", tr.Reply.Notice)
		}
		if p := promoStep(t, tr.Next); p.Step != model.PromoStepMain || p.Code != "" {
			t.Fatalf("expected main without code, got %+v", p)
		}
	})

	t.Run("unknown promocode is rejected", func(t *testing.T) {
		flow := newPromoFlow(newMemPromocodeRepo())
		tr, _ := flow.SelectEdit(ctx, model.EmptyState())
		tr, _ = flow.SubmitText(ctx, tr.Next, "NOPE")
		if tr.Reply.Notice == nil || tr.Reply.Notice.Key != "promocode_editor:ntf:edit_failed" {
			t.Fatalf("expected edit_failed, got %+v", tr.Reply.Notice)
		}
	})

	t.Run("updates duration and reports old and new", func(t *testing.T) {
		repo := newMemPromocodeRepo()
		repo.seed("EDITME", 7, false)
		flow := newPromoFlow(repo)

		tr, _ := flow.SelectEdit(ctx, model.EmptyState())
		tr, err := flow.SubmitText(ctx, tr.Next, "EDITME")
		if err != nil {
			t.Fatalf("SubmitText: %v", err)
		}
		if p := promoStep(t, tr.Next); p.Step != model.PromoStepEditSelectDuration || p.Code != "EDITME" {
			t.Fatalf("expected code captured, got %+v", p)
		}

		tr, err = flow.SelectDuration(ctx, tr.Next, 30)
		if err != nil {
			t.Fatalf("SelectDuration: %v", err)
		}
		text, _ := tr.Reply.Render(echoTranslator{})
		want := "promocode_editor:message:main\n\n✅ promocode_editor:ntf:edited_success EDITME common:period:days 7 common:period:days 30"
		if text != want {
			t.Errorf("unexpected text\n got: %q\nwant: %q", text, want)
		}
		p, _ := repo.Get(ctx, nil, "EDITME")
		if p.DurationDays != 30 {
			t.Errorf("expected 30 days, got %d", p.DurationDays)
		}
	})
}

func TestPromocodeFlow_SubmitText(t *testing.T) {
	ctx := context.Background()
	flow := newPromoFlow(newMemPromocodeRepo())

	t.Run("in a non-input step resets to main", func(t *testing.T) {
		st := model.PromocodeState(model.PromocodeFlowState{Step: model.PromoStepCreateDuration}, 3)
		tr, err := flow.SubmitText(ctx, st, "ABC")
		if !errors.Is(err, domain.ErrPrecondition) {
			t.Fatalf("expected precondition error, got %v", err)
		}
		if promoStep(t, tr.Next).Step != model.PromoStepMain || tr.Next.AnchorMessageID != 3 {
			t.Fatalf("expected reset to main, got %+v", tr.Next)
		}
	})

	t.Run("without a promocode flow", func(t *testing.T) {
		tr, err := flow.SubmitText(ctx, model.EmptyState(), "ABC")
		if !errors.Is(err, domain.ErrPrecondition) {
			t.Fatalf("expected precondition error, got %v", err)
		}
		if tr.Next.IsActive() {
			t.Fatal("state must stay empty")
		}
	})

	t.Run("empty text is invalid input", func(t *testing.T) {
		st := model.PromocodeState(model.PromocodeFlowState{Step: model.PromoStepDeleteInput}, 0)
		tr, err := flow.SubmitText(ctx, st, "   ")
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
		if promoStep(t, tr.Next).Step != model.PromoStepDeleteInput {
			t.Fatal("state must be unchanged")
		}
	})
}
