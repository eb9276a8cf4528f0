package profile

import (
	"time"

	id "trustbadge/pkg/domain"
)

// Profile is the slice of the user profile this service owns: the verified
// badge plus the display fields the admin review screen shows.
//
// IsVerified flips only as a side effect of a verification decision and must
// change in the same transaction as the verification record.
type Profile struct {
	UserID      id.UserID
	DisplayName string
	Email       string
	IsVerified  bool
	UpdatedAt   time.Time
}
