package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"trustbadge/internal/profile"
	"trustbadge/internal/verification"
	id "trustbadge/pkg/domain"
	dErrors "trustbadge/pkg/domain-errors"
	"trustbadge/pkg/platform/audit"
	"trustbadge/pkg/requestcontext"
)

func testImage(t *testing.T) string {
	t.Helper()
	sig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	payload := append(sig, bytes.Repeat([]byte{0}, 24)...)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
}

// fakeCache records cache traffic so tests can assert on invalidation.
type fakeCache struct {
	entries       map[id.UserID]*verification.Request
	invalidations int
	sets          int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[id.UserID]*verification.Request)}
}

func (c *fakeCache) Get(_ context.Context, userID id.UserID) (*verification.Request, bool) {
	req, ok := c.entries[userID]
	return req, ok
}

func (c *fakeCache) Set(_ context.Context, req *verification.Request) {
	c.sets++
	c.entries[req.UserID] = req
}

func (c *fakeCache) Invalidate(_ context.Context, userID id.UserID) {
	c.invalidations++
	delete(c.entries, userID)
}

// fakeAudit collects events synchronously.
type fakeAudit struct {
	events []audit.Event
}

func (a *fakeAudit) Emit(_ context.Context, event audit.Event) {
	a.events = append(a.events, event)
}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	records  *verification.InMemoryStore
	profiles *profile.InMemoryStore
	cache    *fakeCache
	audit    *fakeAudit
	svc      *Service
	user     id.UserID
	image    string
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.records = verification.NewInMemoryStore()
	s.profiles = profile.NewInMemoryStore()
	s.cache = newFakeCache()
	s.audit = &fakeAudit{}
	s.user = id.UserID(uuid.New())
	s.image = testImage(s.T())
	s.svc = s.newService(false)
	s.ctx = requestcontext.WithUserAgent(context.Background(),
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
}

func (s *ServiceSuite) newService(allowReverify bool) *Service {
	return New(Config{
		Tx:            NewMemoryTx(s.records, s.profiles),
		Reads:         s.records,
		Profiles:      s.profiles,
		Cache:         s.cache,
		Audit:         s.audit,
		AllowReverify: allowReverify,
		MaxImageBytes: 1 << 20,
	})
}

func (s *ServiceSuite) submit() *verification.Request {
	req, err := s.svc.Submit(s.ctx, s.user, s.image, s.image, "")
	s.Require().NoError(err)
	return req
}

func (s *ServiceSuite) TestSubmitCreatesPendingRecord() {
	req := s.submit()

	s.Equal(verification.StatusPending, req.Status)
	s.False(req.IsVerified)
	s.Equal(verification.MethodDocumentSelfie, req.Method, "empty method falls back to the default")
	s.False(req.ID.IsZero())
	s.Contains(req.DeviceInfo, "Chrome")
	s.Contains(req.DeviceInfo, "on")
	s.Nil(req.VerifiedAt)

	stored, err := s.records.FindCurrentByUser(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(req.ID, stored.ID)

	s.Require().Len(s.audit.events, 1)
	s.Equal(audit.ActionSubmitted, s.audit.events[0].Action)
	s.Equal(s.user.String(), s.audit.events[0].UserID)
	s.Equal(1, s.cache.invalidations)
}

func (s *ServiceSuite) TestSubmitRequiresIdentity() {
	_, err := s.svc.Submit(s.ctx, id.UserID(uuid.Nil), s.image, s.image, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestSubmitValidatesBothImages() {
	_, err := s.svc.Submit(s.ctx, s.user, "not an image", s.image, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Contains(dErrors.MessageOf(err), "document image")

	_, err = s.svc.Submit(s.ctx, s.user, s.image, "", "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Contains(dErrors.MessageOf(err), "selfie image")

	_, err = s.records.FindCurrentByUser(s.ctx, s.user)
	s.Require().Error(err, "nothing persisted on validation failure")
}

func (s *ServiceSuite) TestSubmitWhilePendingReplacesInPlace() {
	first := s.submit()
	second := s.submit()

	s.Equal(first.ID, second.ID, "pending submission is rewritten, not duplicated")
	s.Equal(first.CreatedAt, second.CreatedAt)

	all, err := s.records.List(s.ctx, verification.ListFilter{})
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *ServiceSuite) TestSubmitWhileApprovedIsConflict() {
	first := s.submit()
	_, err := s.svc.Approve(s.ctx, first.ID)
	s.Require().NoError(err)

	_, err = s.svc.Submit(s.ctx, s.user, s.image, s.image, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestSubmitWhileApprovedWithReverifyDemotes() {
	s.svc = s.newService(true)

	first := s.submit()
	_, err := s.svc.Approve(s.ctx, first.ID)
	s.Require().NoError(err)

	second := s.submit()
	s.NotEqual(first.ID, second.ID)
	s.Equal(verification.StatusPending, second.Status)

	p, err := s.profiles.Find(s.ctx, s.user)
	s.Require().NoError(err)
	s.False(p.IsVerified, "badge drops until the new review lands")

	// The approved record stays as history.
	old, err := s.records.FindByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(verification.StatusApproved, old.Status)
}

func (s *ServiceSuite) TestSubmitAfterRejectionStartsNewCycle() {
	first := s.submit()
	_, err := s.svc.Reject(s.ctx, first.ID, "document unreadable")
	s.Require().NoError(err)

	second := s.submit()
	s.NotEqual(first.ID, second.ID)
	s.Equal(verification.StatusPending, second.Status)
	s.Empty(second.RejectionReason)

	all, err := s.records.List(s.ctx, verification.ListFilter{})
	s.Require().NoError(err)
	s.Len(all, 2, "rejected attempt is kept as history")
}

func (s *ServiceSuite) TestStatusWithoutRecordIsNone() {
	req, err := s.svc.Status(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(verification.StatusNone, req.Status)
	s.False(req.IsVerified)
	s.True(req.ID.IsZero())
}

func (s *ServiceSuite) TestStatusRequiresIdentity() {
	_, err := s.svc.Status(s.ctx, id.UserID(uuid.Nil))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestStatusPrefersCache() {
	cached := &verification.Request{UserID: s.user, Status: verification.StatusApproved, IsVerified: true}
	s.cache.entries[s.user] = cached

	req, err := s.svc.Status(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(verification.StatusApproved, req.Status)
	s.Zero(s.cache.sets, "cache hit does not re-populate")
}

func (s *ServiceSuite) TestStatusPopulatesCacheOnMiss() {
	s.submit()
	s.cache.entries = map[id.UserID]*verification.Request{}

	req, err := s.svc.Status(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(verification.StatusPending, req.Status)
	s.Equal(1, s.cache.sets)
}

func (s *ServiceSuite) TestStatusReflectsDecisionImmediately() {
	first := s.submit()

	// Prime the cache the way a poller would.
	_, err := s.svc.Status(s.ctx, s.user)
	s.Require().NoError(err)

	_, err = s.svc.Approve(s.ctx, first.ID)
	s.Require().NoError(err)

	req, err := s.svc.Status(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(verification.StatusApproved, req.Status, "decision invalidates the cached status")
	s.True(req.IsVerified)
}

func (s *ServiceSuite) TestApprovePendingFlipsBadgeAndRecord() {
	adminCtx := requestcontext.WithAdminActor(s.ctx, "reviewer-7")
	first := s.submit()

	approved, err := s.svc.Approve(adminCtx, first.ID)
	s.Require().NoError(err)
	s.Equal(verification.StatusApproved, approved.Status)
	s.True(approved.IsVerified)
	s.Require().NotNil(approved.VerifiedAt)

	p, err := s.profiles.Find(s.ctx, s.user)
	s.Require().NoError(err)
	s.True(p.IsVerified)

	last := s.audit.events[len(s.audit.events)-1]
	s.Equal(audit.ActionApproved, last.Action)
	s.Equal("reviewer-7", last.Actor)
}

func (s *ServiceSuite) TestApproveApprovedIsNoOp() {
	first := s.submit()
	_, err := s.svc.Approve(s.ctx, first.ID)
	s.Require().NoError(err)

	again, err := s.svc.Approve(s.ctx, first.ID)
	s.Require().NoError(err, "repeat approval is accepted, not a conflict")
	s.Equal(verification.StatusApproved, again.Status)
}

func (s *ServiceSuite) TestApproveUnknownIDIsNotFound() {
	_, err := s.svc.Approve(s.ctx, id.NewVerificationID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestApproveRejectedIsConflict() {
	first := s.submit()
	_, err := s.svc.Reject(s.ctx, first.ID, "blurry selfie")
	s.Require().NoError(err)

	_, err = s.svc.Approve(s.ctx, first.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestRejectPendingRecordsReason() {
	first := s.submit()

	rejected, err := s.svc.Reject(s.ctx, first.ID, "  document unreadable  ")
	s.Require().NoError(err)
	s.Equal(verification.StatusRejected, rejected.Status)
	s.False(rejected.IsVerified)
	s.Equal("document unreadable", rejected.RejectionReason)
	s.Nil(rejected.VerifiedAt)

	last := s.audit.events[len(s.audit.events)-1]
	s.Equal(audit.ActionRejected, last.Action)
	s.Equal("document unreadable", last.Reason)
}

func (s *ServiceSuite) TestRejectBlankReasonRefused() {
	first := s.submit()

	for _, reason := range []string{"", "   ", "\t\n"} {
		_, err := s.svc.Reject(s.ctx, first.ID, reason)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}

	stored, err := s.records.FindByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(verification.StatusPending, stored.Status, "record untouched on refused rejection")
}

func (s *ServiceSuite) TestRejectApprovedIsConflict() {
	first := s.submit()
	_, err := s.svc.Approve(s.ctx, first.ID)
	s.Require().NoError(err)

	_, err = s.svc.Reject(s.ctx, first.ID, "changed my mind")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	p, err := s.profiles.Find(s.ctx, s.user)
	s.Require().NoError(err)
	s.True(p.IsVerified, "approved badge survives a refused rejection")
}

func (s *ServiceSuite) TestListJoinsProfilesAndCounts() {
	s.Require().NoError(s.profiles.Upsert(s.ctx, &profile.Profile{
		UserID:      s.user,
		DisplayName: "Sam Carter",
		Email:       "sam@example.com",
	}))
	first := s.submit()
	_, err := s.svc.Reject(s.ctx, first.ID, "retake in daylight")
	s.Require().NoError(err)
	s.submit()

	list, err := s.svc.List(s.ctx, verification.ListFilter{})
	s.Require().NoError(err)
	s.Len(list.Items, 2)
	s.Equal(1, list.Counts[verification.StatusPending])
	s.Equal(1, list.Counts[verification.StatusRejected])
	s.Equal("Sam Carter", list.Items[0].DisplayName)
	s.Equal("sam@example.com", list.Items[0].Email)

	pending, err := s.svc.List(s.ctx, verification.ListFilter{Status: verification.StatusPending})
	s.Require().NoError(err)
	s.Len(pending.Items, 1)
	s.Equal(2, pending.Counts[verification.StatusPending]+pending.Counts[verification.StatusRejected],
		"counts cover all records regardless of the filter")
}

func (s *ServiceSuite) TestSubmitUsesRequestTime() {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, at)

	req, err := s.svc.Submit(ctx, s.user, s.image, s.image, "")
	s.Require().NoError(err)
	s.Equal(at, req.SubmittedAt)
	s.Equal(at, req.CreatedAt)
}
