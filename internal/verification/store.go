package verification

import (
	"context"

	id "trustbadge/pkg/domain"
)

// ListFilter narrows the admin feed. The zero value lists everything.
type ListFilter struct {
	Status Status
}

// Store persists verification records.
//
// Create inserts req as the user's new current record, superseding (not
// deleting) any previous one. Update rewrites an existing row by ID and
// returns sentinel.ErrNotFound for unknown IDs, as do the finders.
// List returns records newest-first by submission time.
type Store interface {
	Create(ctx context.Context, req *Request) error
	Update(ctx context.Context, req *Request) error
	FindByID(ctx context.Context, verificationID id.VerificationID) (*Request, error)
	FindCurrentByUser(ctx context.Context, userID id.UserID) (*Request, error)
	List(ctx context.Context, filter ListFilter) ([]*Request, error)
}
