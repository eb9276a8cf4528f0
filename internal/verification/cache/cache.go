// Package cache fronts the status read with Redis. The poller refetches every
// few seconds per active client, so even a short TTL absorbs most of that
// traffic. Every mutation deletes the key; cache failures fall through to the
// store.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	platformredis "trustbadge/internal/platform/redis"
	"trustbadge/internal/verification"
	id "trustbadge/pkg/domain"
)

// StatusCache caches the current verification status per user.
type StatusCache struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New builds the cache. Returns nil when redis is not configured, which the
// service treats as cache-off.
func New(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *StatusCache {
	if client == nil {
		return nil
	}
	return &StatusCache{client: client, ttl: ttl, logger: logger}
}

// cached is the wire form. Images are deliberately excluded: the poller only
// needs the status fields and the payloads are large.
type cached struct {
	ID              string     `json:"id,omitempty"`
	Status          string     `json:"status"`
	IsVerified      bool       `json:"is_verified"`
	Method          string     `json:"method,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

func key(userID id.UserID) string {
	return "verification:status:" + userID.String()
}

func (c *StatusCache) Get(ctx context.Context, userID id.UserID) (*verification.Request, bool) {
	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var v cached
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}

	req := &verification.Request{
		UserID:          userID,
		Status:          verification.Status(v.Status),
		IsVerified:      v.IsVerified,
		Method:          v.Method,
		RejectionReason: v.RejectionReason,
		VerifiedAt:      v.VerifiedAt,
	}
	if v.SubmittedAt != nil {
		req.SubmittedAt = *v.SubmittedAt
	}
	if v.ID != "" {
		parsed, err := id.ParseVerificationID(v.ID)
		if err != nil {
			return nil, false
		}
		req.ID = parsed
	}
	return req, true
}

func (c *StatusCache) Set(ctx context.Context, req *verification.Request) {
	v := cached{
		Status:          string(req.Status),
		IsVerified:      req.IsVerified,
		Method:          req.Method,
		RejectionReason: req.RejectionReason,
		VerifiedAt:      req.VerifiedAt,
	}
	if !req.ID.IsZero() {
		v.ID = req.ID.String()
	}
	if !req.SubmittedAt.IsZero() {
		t := req.SubmittedAt
		v.SubmittedAt = &t
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(req.UserID), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "status cache set failed", "error", err)
	}
}

func (c *StatusCache) Invalidate(ctx context.Context, userID id.UserID) {
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "status cache invalidate failed", "error", err)
	}
}
