package profile

import (
	"context"

	id "trustbadge/pkg/domain"
)

// Store persists profiles.
//
// SetVerified creates the profile row if it does not exist yet; the verified
// badge cascade must not fail because onboarding never wrote a profile.
type Store interface {
	Upsert(ctx context.Context, p *Profile) error
	Find(ctx context.Context, userID id.UserID) (*Profile, error)
	SetVerified(ctx context.Context, userID id.UserID, verified bool) error
}
