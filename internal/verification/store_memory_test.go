package verification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "trustbadge/pkg/domain"
	"trustbadge/pkg/platform/sentinel"
)

func uuidFor(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
	user  id.UserID
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.user = id.UserID(uuidFor(s.T()))
}

func (s *InMemoryStoreSuite) newPending(submittedAt time.Time) *Request {
	return &Request{
		ID:          id.NewVerificationID(),
		UserID:      s.user,
		Status:      StatusPending,
		Method:      MethodDocumentSelfie,
		SubmittedAt: submittedAt,
	}
}

func (s *InMemoryStoreSuite) TestFindCurrentByUserEmpty() {
	_, err := s.store.FindCurrentByUser(s.ctx, s.user)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestCreateThenFind() {
	req := s.newPending(time.Now())
	s.Require().NoError(s.store.Create(s.ctx, req))

	byID, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, byID.ID)

	current, err := s.store.FindCurrentByUser(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(req.ID, current.ID)
}

func (s *InMemoryStoreSuite) TestCreateSupersedesCurrent() {
	first := s.newPending(time.Now().Add(-time.Hour))
	first.Status = StatusRejected
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := s.newPending(time.Now())
	s.Require().NoError(s.store.Create(s.ctx, second))

	current, err := s.store.FindCurrentByUser(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(second.ID, current.ID, "latest record is authoritative")

	// The superseded record stays available as history.
	old, err := s.store.FindByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(StatusRejected, old.Status)
}

func (s *InMemoryStoreSuite) TestUpdateUnknownID() {
	err := s.store.Update(s.ctx, s.newPending(time.Now()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestUpdateRewritesInPlace() {
	req := s.newPending(time.Now())
	s.Require().NoError(s.store.Create(s.ctx, req))

	verifiedAt := time.Now()
	req.Status = StatusApproved
	req.IsVerified = true
	req.VerifiedAt = &verifiedAt
	s.Require().NoError(s.store.Update(s.ctx, req))

	got, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(StatusApproved, got.Status)
	s.True(got.IsVerified)
	s.Require().NotNil(got.VerifiedAt)
}

func (s *InMemoryStoreSuite) TestStoreReturnsCopies() {
	req := s.newPending(time.Now())
	s.Require().NoError(s.store.Create(s.ctx, req))

	got, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	got.Status = StatusApproved

	again, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(StatusPending, again.Status, "mutating a returned record must not leak into the store")
}

func (s *InMemoryStoreSuite) TestListNewestFirstWithFilter() {
	otherUser := id.UserID(uuidFor(s.T()))
	base := time.Now()

	oldRejected := s.newPending(base.Add(-2 * time.Hour))
	oldRejected.Status = StatusRejected
	s.Require().NoError(s.store.Create(s.ctx, oldRejected))

	newest := s.newPending(base)
	s.Require().NoError(s.store.Create(s.ctx, newest))

	other := &Request{
		ID:          id.NewVerificationID(),
		UserID:      otherUser,
		Status:      StatusPending,
		SubmittedAt: base.Add(-time.Hour),
	}
	s.Require().NoError(s.store.Create(s.ctx, other))

	all, err := s.store.List(s.ctx, ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(newest.ID, all[0].ID)
	s.Equal(other.ID, all[1].ID)
	s.Equal(oldRejected.ID, all[2].ID)

	pending, err := s.store.List(s.ctx, ListFilter{Status: StatusPending})
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	for _, r := range pending {
		s.Equal(StatusPending, r.Status)
	}
}
