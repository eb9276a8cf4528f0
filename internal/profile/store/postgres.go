// Package store provides the PostgreSQL-backed profile store.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"trustbadge/internal/profile"
	id "trustbadge/pkg/domain"
	"trustbadge/pkg/platform/sentinel"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists profiles.
type PostgresStore struct {
	q querier
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{q: pool}
}

// NewPostgresTx binds the store to an open transaction.
func NewPostgresTx(tx pgx.Tx) *PostgresStore {
	return &PostgresStore{q: tx}
}

func (s *PostgresStore) Upsert(ctx context.Context, p *profile.Profile) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO profiles (user_id, display_name, email, is_verified, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			is_verified = EXCLUDED.is_verified,
			updated_at = now()`,
		p.UserID.String(), p.DisplayName, p.Email, p.IsVerified)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, userID id.UserID) (*profile.Profile, error) {
	var (
		p     profile.Profile
		rawID string
	)
	err := s.q.QueryRow(ctx, `
		SELECT user_id, display_name, email, is_verified, updated_at
		FROM profiles WHERE user_id = $1`, userID.String()).
		Scan(&rawID, &p.DisplayName, &p.Email, &p.IsVerified, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	parsed, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse profile user id: %w", err)
	}
	p.UserID = id.UserID(parsed)
	return &p, nil
}

func (s *PostgresStore) SetVerified(ctx context.Context, userID id.UserID, verified bool) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO profiles (user_id, is_verified, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET
			is_verified = EXCLUDED.is_verified,
			updated_at = now()`,
		userID.String(), verified)
	if err != nil {
		return fmt.Errorf("set profile verified: %w", err)
	}
	return nil
}
