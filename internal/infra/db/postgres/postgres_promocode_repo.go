package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.PromocodeRepository = (*promocodeRepo)(nil)

const uniqueViolation = "23505"

type promocodeRepo struct {
	pool *pgxpool.Pool
}

func NewPromocodeRepo(pool *pgxpool.Pool) repository.PromocodeRepository {
	return &promocodeRepo{pool: pool}
}

// Create generates a code and inserts it. A code collision surfaces as domain.ErrAlreadyExists.
func (r *promocodeRepo) Create(ctx context.Context, tx repository.Tx, durationDays int) (*model.Promocode, error) {
	p, err := model.NewPromocode(uuid.NewString(), durationDays)
	if err != nil {
		return nil, err
	}

	const q = `
INSERT INTO promocodes (id, code, duration, is_activated, created_at)
VALUES ($1, $2, $3, FALSE, $4);
`
	if _, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Code, p.DurationDays, p.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: promocode %s", domain.ErrAlreadyExists, p.Code)
		}
		return nil, err
	}
	return p, nil
}

func (r *promocodeRepo) Get(ctx context.Context, tx repository.Tx, code string) (*model.Promocode, error) {
	const q = `
SELECT id, code, duration, is_activated, activated_user_id, created_at
  FROM promocodes
 WHERE code = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanPromocode(row)
}

// Update changes the duration of a promocode that has not been activated yet.
func (r *promocodeRepo) Update(ctx context.Context, tx repository.Tx, code string, durationDays int) (*model.Promocode, error) {
	if durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	const q = `
UPDATE promocodes
   SET duration = $2
 WHERE code = $1 AND is_activated = FALSE
RETURNING id, code, duration, is_activated, activated_user_id, created_at;
`
	row, err := pickRow(ctx, r.pool, tx, q, code, durationDays)
	if err != nil {
		return nil, err
	}
	return scanPromocode(row)
}

func (r *promocodeRepo) Delete(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM promocodes WHERE code = $1;`, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanPromocode(row pgx.Row) (*model.Promocode, error) {
	var (
		p         model.Promocode
		createdAt time.Time
	)
	if err := row.Scan(&p.ID, &p.Code, &p.DurationDays, &p.IsActivated, &p.ActivatedBy, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.CreatedAt = createdAt
	return &p, nil
}
