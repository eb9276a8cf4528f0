// Package storage opens the PostgreSQL pool, applies migrations, and provides
// the transaction boundary that binds the verification and profile stores to
// one pgx transaction.
package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"trustbadge/internal/profile"
	profilestore "trustbadge/internal/profile/store"
	"trustbadge/internal/verification"
	"trustbadge/internal/verification/service"
	verificationstore "trustbadge/internal/verification/store"
	dErrors "trustbadge/pkg/domain-errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres owns the connection pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// Open connects and pings the database.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{Pool: pool}, nil
}

// Migrate applies the embedded schema files in lexical order. Every statement
// is idempotent so repeated startup runs are safe.
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := p.Pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (p *Postgres) Close() {
	p.Pool.Close()
}

// defaultTxTimeout bounds a verification transaction.
const defaultTxTimeout = 5 * time.Second

// Tx implements the service transaction boundary over pgx transactions.
type Tx struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewTx builds the postgres-backed transaction boundary.
func NewTx(p *Postgres) *Tx {
	return &Tx{pool: p.Pool}
}

var _ service.Tx = (*Tx)(nil)

func (t *Tx) RunInTx(ctx context.Context, fn func(records verification.Store, profiles profile.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(verificationstore.NewPostgresTx(tx), profilestore.NewPostgresTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
