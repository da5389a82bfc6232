package repository

import (
	"context"

	"vpn-subscription-bot/internal/domain/model"
)

// PromocodeRepository is the port for promocode records.
type PromocodeRepository interface {
	// Create generates a fresh code for durationDays and stores it.
	Create(ctx context.Context, tx Tx, durationDays int) (*model.Promocode, error)
	// Get returns domain.ErrNotFound when no promocode has this code.
	Get(ctx context.Context, tx Tx, code string) (*model.Promocode, error)
	Update(ctx context.Context, tx Tx, code string, durationDays int) (*model.Promocode, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, tx Tx, code string) (bool, error)
}
