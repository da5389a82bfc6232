package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"
)

var _ repository.ServerRepository = (*serverRepo)(nil)

type serverRepo struct {
	pool *pgxpool.Pool
}

func NewServerRepo(pool *pgxpool.Pool) repository.ServerRepository {
	return &serverRepo{pool: pool}
}

// FindAvailable returns the online server with the most free slots, or domain.ErrNotFound.
func (r *serverRepo) FindAvailable(ctx context.Context, tx repository.Tx) (*model.Server, error) {
	const q = `
SELECT id, name, host, max_clients, current_clients, online
  FROM servers
 WHERE online = TRUE AND current_clients < max_clients
 ORDER BY (max_clients - current_clients) DESC, id
 LIMIT 1;
`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	var s model.Server
	if err := row.Scan(&s.ID, &s.Name, &s.Host, &s.MaxClients, &s.CurrentClients, &s.Online); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &s, nil
}

// Save upserts by name and fills in the generated id.
func (r *serverRepo) Save(ctx context.Context, tx repository.Tx, s *model.Server) error {
	const q = `
INSERT INTO servers (name, host, max_clients, current_clients, online)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name) DO UPDATE SET
  host = EXCLUDED.host,
  max_clients = EXCLUDED.max_clients,
  current_clients = EXCLUDED.current_clients,
  online = EXCLUDED.online
RETURNING id;
`
	row, err := pickRow(ctx, r.pool, tx, q, s.Name, s.Host, s.MaxClients, s.CurrentClients, s.Online)
	if err != nil {
		return err
	}
	return row.Scan(&s.ID)
}
