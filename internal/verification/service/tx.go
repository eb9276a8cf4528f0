package service

import (
	"context"
	"sync"
	"time"

	"trustbadge/internal/profile"
	"trustbadge/internal/verification"
	dErrors "trustbadge/pkg/domain-errors"
)

// Tx is the transactional boundary for verification mutations. The function
// receives store handles bound to one transaction; both the verification
// write and the profile badge cascade commit together or not at all.
type Tx interface {
	RunInTx(ctx context.Context, fn func(records verification.Store, profiles profile.Store) error) error
}

// defaultTxTimeout is the maximum duration for a verification transaction.
const defaultTxTimeout = 5 * time.Second

// memTx serializes mutations with a single mutex. Admin decisions arrive by
// verification ID, so the owning user is unknown until the record is loaded
// inside the transaction; a coarse lock is the simplest arrangement that
// still serializes a submit racing an approve for the same user.
type memTx struct {
	mu       sync.Mutex
	records  *verification.InMemoryStore
	profiles *profile.InMemoryStore
	timeout  time.Duration
}

// NewMemoryTx wraps the in-memory stores in a transactional boundary.
func NewMemoryTx(records *verification.InMemoryStore, profiles *profile.InMemoryStore) Tx {
	return &memTx{records: records, profiles: profiles}
}

func (t *memTx) RunInTx(ctx context.Context, fn func(records verification.Store, profiles profile.Store) error) error {
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

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(t.records, t.profiles)
}
