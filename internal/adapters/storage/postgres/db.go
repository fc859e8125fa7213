package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mamacare-api/internal/platform/lazy"
)

var (
	ErrNotConnected = errors.New("postgres: not connected")
)

type PoolOptions struct {
	MaxConns       int32
	ConnectTimeout time.Duration
}

// Open abre un pool pgx, hace ping y asegura el schema.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	// defaults razonables (ajustable luego)
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := EnsureSchema(ctx, p); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS pregnancy_profiles (
	id         uuid PRIMARY KEY,
	user_id    text NOT NULL,
	data       jsonb NOT NULL,
	created_at timestamptz NOT NULL,
	updated_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS pregnancy_profiles_user_id_idx ON pregnancy_profiles (user_id);
`

func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// LazyPool abre el pool en el primer uso, igual que el accessor de Mongo.
type LazyPool struct {
	v *lazy.Value[*pgxpool.Pool]
}

func NewLazyPool(dsn string, opts PoolOptions) *LazyPool {
	return &LazyPool{
		v: lazy.New(func(ctx context.Context) (*pgxpool.Pool, error) {
			return Open(ctx, dsn, opts)
		}, lazy.Options{InitTimeout: opts.ConnectTimeout}),
	}
}

func (l *LazyPool) Get(ctx context.Context) (*pgxpool.Pool, error) {
	p, err := l.v.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return p, nil
}

func (l *LazyPool) Close() {
	if p, ok := l.v.Peek(); ok {
		p.Close()
	}
}
