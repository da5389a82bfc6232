//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"vpn-subscription-bot/internal/domain"
)

func TestPromocodeRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewPromocodeRepo(testPool)

	t.Run("should create, update and delete a promocode", func(t *testing.T) {
		cleanup(t)

		p, err := repo.Create(ctx, nil, 30)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if len(p.Code) != 8 {
			t.Fatalf("expected an 8 character code, got %q", p.Code)
		}

		updated, err := repo.Update(ctx, nil, p.Code, 90)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.DurationDays != 90 {
			t.Errorf("expected 90 days, got %d", updated.DurationDays)
		}

		ok, err := repo.Delete(ctx, nil, p.Code)
		if err != nil || !ok {
			t.Fatalf("Delete failed: ok=%v err=%v", ok, err)
		}
		if _, err := repo.Get(ctx, nil, p.Code); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		ok, err = repo.Delete(ctx, nil, p.Code)
		if err != nil || ok {
			t.Fatalf("deleting a missing code must report false, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("should refuse to update an activated promocode", func(t *testing.T) {
		cleanup(t)

		p, err := repo.Create(ctx, nil, 7)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := testPool.Exec(ctx, `UPDATE promocodes SET is_activated = TRUE WHERE code = $1`, p.Code); err != nil {
			t.Fatalf("activate: %v", err)
		}
		if _, err := repo.Update(ctx, nil, p.Code, 30); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for activated code, got %v", err)
		}
	})
}
