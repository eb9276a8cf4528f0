// Package store provides the PostgreSQL-backed verification store.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"trustbadge/internal/verification"
	id "trustbadge/pkg/domain"
	"trustbadge/pkg/platform/sentinel"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists verification records. The transaction-bound variant
// takes row locks on the current record so a submit racing an admin decision
// for the same user serializes instead of interleaving.
type PostgresStore struct {
	q       querier
	locking bool
}

// NewPostgres builds a store over the shared pool for non-transactional reads.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{q: pool}
}

// NewPostgresTx binds a store to an open transaction; current-record lookups
// lock the rows they return.
func NewPostgresTx(tx pgx.Tx) *PostgresStore {
	return &PostgresStore{q: tx, locking: true}
}

const columns = `id, user_id, status, is_verified, verification_method,
	document_image, selfie_image, device_info, submitted_at, verified_at,
	rejection_reason, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, req *verification.Request) error {
	// Demote any previous current record first; the partial unique index on
	// (user_id) WHERE current makes two concurrent currents impossible.
	_, err := s.q.Exec(ctx,
		`UPDATE verifications SET current = FALSE, updated_at = $2 WHERE user_id = $1 AND current`,
		req.UserID.String(), req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("demote current verification: %w", err)
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO verifications (
			id, user_id, status, is_verified, verification_method,
			document_image, selfie_image, device_info, submitted_at,
			verified_at, rejection_reason, current, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, $12, $13)`,
		req.ID.String(), req.UserID.String(), string(req.Status), req.IsVerified,
		req.Method, req.DocumentImage, req.SelfieImage, req.DeviceInfo,
		req.SubmittedAt, req.VerifiedAt, req.RejectionReason,
		req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, req *verification.Request) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE verifications SET
			status = $2, is_verified = $3, verification_method = $4,
			document_image = $5, selfie_image = $6, device_info = $7,
			submitted_at = $8, verified_at = $9, rejection_reason = $10,
			updated_at = $11
		WHERE id = $1`,
		req.ID.String(), string(req.Status), req.IsVerified, req.Method,
		req.DocumentImage, req.SelfieImage, req.DeviceInfo,
		req.SubmittedAt, req.VerifiedAt, req.RejectionReason, req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, verificationID id.VerificationID) (*verification.Request, error) {
	query := `SELECT ` + columns + ` FROM verifications WHERE id = $1`
	if s.locking {
		query += ` FOR UPDATE`
	}
	req, err := scanRequest(s.q.QueryRow(ctx, query, verificationID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find verification by id: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) FindCurrentByUser(ctx context.Context, userID id.UserID) (*verification.Request, error) {
	query := `SELECT ` + columns + ` FROM verifications WHERE user_id = $1 AND current`
	if s.locking {
		query += ` FOR UPDATE`
	}
	req, err := scanRequest(s.q.QueryRow(ctx, query, userID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find current verification: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) List(ctx context.Context, filter verification.ListFilter) ([]*verification.Request, error) {
	query := `SELECT ` + columns + ` FROM verifications`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var out []*verification.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*verification.Request, error) {
	var (
		req              verification.Request
		rawID, rawUserID string
		status           string
		verifiedAt       *time.Time
	)
	err := row.Scan(&rawID, &rawUserID, &status, &req.IsVerified, &req.Method,
		&req.DocumentImage, &req.SelfieImage, &req.DeviceInfo, &req.SubmittedAt,
		&verifiedAt, &req.RejectionReason, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse verification id: %w", err)
	}
	parsedUser, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	req.ID = id.VerificationID(parsedID)
	req.UserID = id.UserID(parsedUser)
	req.Status = verification.Status(status)
	req.VerifiedAt = verifiedAt
	return &req, nil
}
