//go:build !integration

package postgres

import (
	"errors"
	"testing"

	"vpn-subscription-bot/internal/domain"
)

func TestGetExecutor(t *testing.T) {
	t.Run("nil tx without a pool is rejected", func(t *testing.T) {
		if _, err := getExecutor(nil, nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("unknown handle is rejected", func(t *testing.T) {
		if _, err := getExecutor(nil, "not-a-tx"); !errors.Is(err, domain.ErrInvalidExecContext) {
			t.Fatalf("expected ErrInvalidExecContext, got %v", err)
		}
	})
}
