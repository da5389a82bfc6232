package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"
	"vpn-subscription-bot/internal/infra/metrics"
	red "vpn-subscription-bot/internal/infra/redis"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

var _ repository.PromocodeRepository = (*promocodeRepoCacheDecorator)(nil)

type promocodeRepoCacheDecorator struct {
	inner repository.PromocodeRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

// NewPromocodeRepoCacheDecorator caches lookups by code. Writes invalidate the cached entry.
func NewPromocodeRepoCacheDecorator(inner repository.PromocodeRepository, cache red.RedisClient, logger *zerolog.Logger) repository.PromocodeRepository {
	l := logger.With().Str("component", "PromocodeCache").Logger()
	return &promocodeRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   10 * time.Minute,
		log:   &l,
	}
}

func promocodeKey(code string) string { return fmt.Sprintf("promocode:code:%s", code) }

func (d *promocodeRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, durationDays int) (*model.Promocode, error) {
	return d.inner.Create(ctx, tx, durationDays)
}

func (d *promocodeRepoCacheDecorator) Get(ctx context.Context, tx repository.Tx, code string) (*model.Promocode, error) {
	key := promocodeKey(code)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var p model.Promocode
		if json.Unmarshal([]byte(val), &p) == nil {
			metrics.IncCacheRequest("promocode", "hit")
			return &p, nil
		}
	} else if err != redis.Nil {
		d.log.Warn().Err(err).Msg("promocode cache read failed")
	}

	metrics.IncCacheRequest("promocode", "miss")
	p, err := d.inner.Get(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return p, nil
}

func (d *promocodeRepoCacheDecorator) Update(ctx context.Context, tx repository.Tx, code string, durationDays int) (*model.Promocode, error) {
	_ = d.cache.Del(ctx, promocodeKey(code))
	return d.inner.Update(ctx, tx, code, durationDays)
}

func (d *promocodeRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	_ = d.cache.Del(ctx, promocodeKey(code))
	return d.inner.Delete(ctx, tx, code)
}
