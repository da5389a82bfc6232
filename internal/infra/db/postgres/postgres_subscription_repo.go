package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

// subscriptionRepo reads subscribers from the users table.
// expires_at NULL is an unlimited subscription.
type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) repository.SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) ListWithResource(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionRecord, error) {
	const q = `
SELECT tg_id, server_id
  FROM users
 WHERE server_id IS NOT NULL
 ORDER BY tg_id;
`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.SubscriptionRecord
	for rows.Next() {
		var rec model.SubscriptionRecord
		if err := rows.Scan(&rec.SubjectID, &rec.ServerID); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		rec.ResourceAssigned = rec.ServerID != nil
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subscriptionRepo) FindBySubject(ctx context.Context, tx repository.Tx, subjectID int64) (*model.SubscriptionRecord, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT tg_id, server_id FROM users WHERE tg_id = $1;`, subjectID)
	if err != nil {
		return nil, err
	}
	var rec model.SubscriptionRecord
	if err := row.Scan(&rec.SubjectID, &rec.ServerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	rec.ResourceAssigned = rec.ServerID != nil
	return &rec, nil
}

func (r *subscriptionRepo) GetExpiry(ctx context.Context, tx repository.Tx, subjectID int64) (*time.Time, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT expires_at FROM users WHERE tg_id = $1;`, subjectID)
	if err != nil {
		return nil, err
	}
	var expires *time.Time
	if err := row.Scan(&expires); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if expires != nil {
		utc := expires.UTC()
		expires = &utc
	}
	return expires, nil
}

func (r *subscriptionRepo) GetDeviceCount(ctx context.Context, tx repository.Tx, subjectID int64) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT device_limit FROM users WHERE tg_id = $1;`, subjectID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
