package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/luxsuv-identity/pkg/config"
)

func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	pc.MinConns = int32(cfg.MinConns)
	pc.MaxConns = int32(cfg.MaxConns)
	pc.MaxConnLifetime = cfg.MaxLifetime

	return pgxpool.NewWithConfig(ctx, pc)
}
