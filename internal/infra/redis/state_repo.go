package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

var _ repository.StateRepository = (*StateRepo)(nil)

// StateRepo manages conversation state in Redis, one JSON value per session.
type StateRepo struct {
	client *redClient
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewStateRepo(client *redClient, ttl time.Duration, logger *zerolog.Logger) *StateRepo {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	l := logger.With().Str("component", "StateRepo").Logger()
	return &StateRepo{client: client, ttl: ttl, log: &l}
}

func (s *StateRepo) stateKey(key model.SessionKey) string {
	return fmt.Sprintf("conv_state:%d:%d", key.ChatID, key.UserID)
}

func (s *StateRepo) SetState(ctx context.Context, key model.SessionKey, state model.ConversationState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	if !state.IsActive() && state.AnchorMessageID == 0 {
		return s.ClearState(ctx, key)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.stateKey(key), data, s.ttl)
}

// GetState never surfaces a corrupt value: it is logged, dropped and reported as empty.
func (s *StateRepo) GetState(ctx context.Context, key model.SessionKey) (model.ConversationState, error) {
	data, err := s.client.Get(ctx, s.stateKey(key))
	if errors.Is(err, redis.Nil) {
		return model.EmptyState(), nil
	}
	if err != nil {
		return model.EmptyState(), err
	}

	var state model.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		s.log.Warn().Err(err).Str("session", key.String()).Msg("dropping undecodable conversation state")
		return model.EmptyState(), s.ClearState(ctx, key)
	}
	if state.Flow == "" {
		state.Flow = model.FlowNone
	}
	if err := state.Validate(); err != nil {
		s.log.Warn().Err(err).Str("session", key.String()).Msg("dropping corrupt conversation state")
		return model.EmptyState(), s.ClearState(ctx, key)
	}
	return state, nil
}

func (s *StateRepo) ClearState(ctx context.Context, key model.SessionKey) error {
	return s.client.Del(ctx, s.stateKey(key))
}
