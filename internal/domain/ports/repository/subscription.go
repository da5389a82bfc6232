package repository

import (
	"context"
	"time"

	"vpn-subscription-bot/internal/domain/model"
)

// SubscriptionRepository is the read side of subscribers and their VPN resources.
type SubscriptionRepository interface {
	// ListWithResource returns every subscriber that has a server assigned.
	ListWithResource(ctx context.Context, tx Tx) ([]*model.SubscriptionRecord, error)
	// FindBySubject returns domain.ErrNotFound for unknown subscribers.
	FindBySubject(ctx context.Context, tx Tx, subjectID int64) (*model.SubscriptionRecord, error)
	// GetExpiry returns nil for unlimited subscriptions.
	GetExpiry(ctx context.Context, tx Tx, subjectID int64) (*time.Time, error)
	GetDeviceCount(ctx context.Context, tx Tx, subjectID int64) (int, error)
}

// ServerRepository reads VPN node capacity.
type ServerRepository interface {
	FindAvailable(ctx context.Context, tx Tx) (*model.Server, error)
	Save(ctx context.Context, tx Tx, s *model.Server) error
}
