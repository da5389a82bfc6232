package repository

import (
	"context"
	"time"

	"vpn-subscription-bot/internal/domain/model"
)

// StateRepository is the port for conversation state, one value per session.
// GetState returns model.EmptyState() when nothing is stored.
type StateRepository interface {
	SetState(ctx context.Context, key model.SessionKey, state model.ConversationState) error
	GetState(ctx context.Context, key model.SessionKey) (model.ConversationState, error)
	ClearState(ctx context.Context, key model.SessionKey) error
}

// SessionLocker serializes inbound events for a single session.
type SessionLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
