package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trustbadge/internal/device"
	"trustbadge/internal/platform/metrics"
	"trustbadge/internal/profile"
	"trustbadge/internal/verification"
	id "trustbadge/pkg/domain"
	dErrors "trustbadge/pkg/domain-errors"
	"trustbadge/pkg/platform/audit"
	"trustbadge/pkg/platform/sentinel"
	"trustbadge/pkg/requestcontext"
)

// AuditPublisher records workflow events without being able to fail the
// operation that emitted them.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// StatusCache fronts the poller-heavy status read. Implementations degrade to
// the store on any cache failure.
type StatusCache interface {
	Get(ctx context.Context, userID id.UserID) (*verification.Request, bool)
	Set(ctx context.Context, req *verification.Request)
	Invalidate(ctx context.Context, userID id.UserID)
}

// Config wires the service's collaborators. Cache, Audit, and Metrics are
// optional.
type Config struct {
	Tx       Tx
	Reads    verification.Store
	Profiles profile.Store
	Cache    StatusCache
	Audit    AuditPublisher
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// AllowReverify permits submitting over an approved record, demoting the
	// user back to pending review. Off by default: re-verification of an
	// approved user is a conflict.
	AllowReverify bool
	MaxImageBytes int
}

// Service owns the verification state machine. All mutations run inside the
// transactional boundary so the approve cascade (record + profile badge)
// commits atomically.
type Service struct {
	tx            Tx
	reads         verification.Store
	profiles      profile.Store
	cache         StatusCache
	audit         AuditPublisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tracer        trace.Tracer
	allowReverify bool
	maxImageBytes int
}

func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tx:            cfg.Tx,
		reads:         cfg.Reads,
		profiles:      cfg.Profiles,
		cache:         cfg.Cache,
		audit:         cfg.Audit,
		metrics:       cfg.Metrics,
		logger:        logger,
		tracer:        otel.Tracer("trustbadge/verification"),
		allowReverify: cfg.AllowReverify,
		maxImageBytes: cfg.MaxImageBytes,
	}
}

// Submit validates both captured images and supersedes the user's current
// record with a fresh pending one. Submitting while already pending replaces
// the pending submission in place, so status reads always see exactly one
// authoritative record.
func (s *Service) Submit(ctx context.Context, userID id.UserID, documentImage, selfieImage, method string) (*verification.Request, error) {
	ctx, span := s.tracer.Start(ctx, "verification.submit",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user identity is required")
	}
	if err := verification.ValidateImage(documentImage, s.maxImageBytes); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "document image: "+dErrors.MessageOf(err))
	}
	if err := verification.ValidateImage(selfieImage, s.maxImageBytes); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "selfie image: "+dErrors.MessageOf(err))
	}
	if method == "" {
		method = verification.MethodDocumentSelfie
	}

	now := requestcontext.Now(ctx)
	var out *verification.Request
	err := s.tx.RunInTx(ctx, func(records verification.Store, profiles profile.Store) error {
		current, err := records.FindCurrentByUser(ctx, userID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load current verification")
		}

		req := &verification.Request{
			ID:            id.NewVerificationID(),
			UserID:        userID,
			Status:        verification.StatusPending,
			IsVerified:    false,
			Method:        method,
			DocumentImage: documentImage,
			SelfieImage:   selfieImage,
			DeviceInfo:    device.Describe(requestcontext.UserAgent(ctx)),
			SubmittedAt:   now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if current == nil {
			out = req
			return wrapStoreErr(records.Create(ctx, req), "create verification")
		}

		switch current.Status {
		case verification.StatusPending:
			// Latest submission wins; the pending row is rewritten in place.
			req.ID = current.ID
			req.CreatedAt = current.CreatedAt
			out = req
			return wrapStoreErr(records.Update(ctx, req), "replace pending verification")
		case verification.StatusApproved:
			if !s.allowReverify {
				return dErrors.New(dErrors.CodeConflict, "verification already approved")
			}
			// Demoting to pending drops the badge until the new review lands.
			if err := profiles.SetVerified(ctx, userID, false); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "reset profile badge")
			}
			out = req
			return wrapStoreErr(records.Create(ctx, req), "create verification")
		default: // rejected: new cycle, prior record kept as history
			out = req
			return wrapStoreErr(records.Create(ctx, req), "create verification")
		}
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.metrics.RecordSubmission()
	s.emit(ctx, audit.Event{
		Timestamp: now,
		UserID:    userID.String(),
		Subject:   out.ID.String(),
		Action:    audit.ActionSubmitted,
	})
	return out, nil
}

// Status returns the user's current record, or the synthetic none-model when
// no record exists. Absence is not an error.
func (s *Service) Status(ctx context.Context, userID id.UserID) (*verification.Request, error) {
	ctx, span := s.tracer.Start(ctx, "verification.status")
	defer span.End()

	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user identity is required")
	}

	if s.cache != nil {
		if req, ok := s.cache.Get(ctx, userID); ok {
			s.metrics.RecordStatusRead("cache")
			return req, nil
		}
	}

	req, err := s.reads.FindCurrentByUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		req = verification.None(userID)
	} else if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load verification status")
	}

	s.metrics.RecordStatusRead("store")
	if s.cache != nil {
		s.cache.Set(ctx, req)
	}
	return req, nil
}

// Approve transitions a pending record to approved and flips the profile
// badge in the same transaction. Approving an already-approved record is an
// accepted no-op; any other source state is a conflict.
func (s *Service) Approve(ctx context.Context, verificationID id.VerificationID) (*verification.Request, error) {
	ctx, span := s.tracer.Start(ctx, "verification.approve",
		trace.WithAttributes(attribute.String("verification_id", verificationID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	var out *verification.Request
	err := s.tx.RunInTx(ctx, func(records verification.Store, profiles profile.Store) error {
		req, err := records.FindByID(ctx, verificationID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "verification not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load verification")
		}

		switch req.Status {
		case verification.StatusApproved:
			out = req
			return nil
		case verification.StatusPending:
			req.Status = verification.StatusApproved
			req.IsVerified = true
			req.VerifiedAt = &now
			req.RejectionReason = ""
			req.UpdatedAt = now
			if err := records.Update(ctx, req); err != nil {
				return wrapStoreErr(err, "approve verification")
			}
			if err := profiles.SetVerified(ctx, req.UserID, true); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "set profile badge")
			}
			out = req
			return nil
		default:
			return dErrors.New(dErrors.CodeConflict, "verification is not pending")
		}
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.invalidate(ctx, out.UserID)
	s.metrics.RecordDecision("approved")
	s.emit(ctx, audit.Event{
		Timestamp: now,
		UserID:    out.UserID.String(),
		Subject:   out.ID.String(),
		Action:    audit.ActionApproved,
		Actor:     requestcontext.AdminActor(ctx),
	})
	return out, nil
}

// Reject transitions a pending record to rejected with a mandatory reason.
// The record is untouched when the reason is blank.
func (s *Service) Reject(ctx context.Context, verificationID id.VerificationID, reason string) (*verification.Request, error) {
	ctx, span := s.tracer.Start(ctx, "verification.reject",
		trace.WithAttributes(attribute.String("verification_id", verificationID.String())))
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "rejection reason must not be empty")
	}

	now := requestcontext.Now(ctx)
	var out *verification.Request
	err := s.tx.RunInTx(ctx, func(records verification.Store, profiles profile.Store) error {
		req, err := records.FindByID(ctx, verificationID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "verification not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load verification")
		}
		if req.Status != verification.StatusPending {
			return dErrors.New(dErrors.CodeConflict, "verification is not pending")
		}

		req.Status = verification.StatusRejected
		req.IsVerified = false
		req.RejectionReason = reason
		req.UpdatedAt = now
		if err := records.Update(ctx, req); err != nil {
			return wrapStoreErr(err, "reject verification")
		}
		out = req
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.invalidate(ctx, out.UserID)
	s.metrics.RecordDecision("rejected")
	s.emit(ctx, audit.Event{
		Timestamp: now,
		UserID:    out.UserID.String(),
		Subject:   out.ID.String(),
		Action:    audit.ActionRejected,
		Actor:     requestcontext.AdminActor(ctx),
		Reason:    reason,
	})
	return out, nil
}

// AdminItem is one row of the review feed: the record plus the display fields
// of its owner.
type AdminItem struct {
	*verification.Request
	DisplayName string
	Email       string
}

// AdminList is the review feed with per-status tallies the back office shows.
type AdminList struct {
	Items  []AdminItem
	Counts map[verification.Status]int
}

// List returns the admin review feed, newest submissions first. Counts cover
// all records regardless of the filter.
func (s *Service) List(ctx context.Context, filter verification.ListFilter) (*AdminList, error) {
	ctx, span := s.tracer.Start(ctx, "verification.list")
	defer span.End()

	all, err := s.reads.List(ctx, verification.ListFilter{})
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list verifications")
	}

	out := &AdminList{Counts: map[verification.Status]int{}}
	for _, req := range all {
		out.Counts[req.Status]++
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		item := AdminItem{Request: req}
		if p, err := s.profiles.Find(ctx, req.UserID); err == nil {
			item.DisplayName = p.DisplayName
			item.Email = p.Email
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, userID id.UserID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit != nil {
		s.audit.Emit(ctx, event)
	}
}

func wrapStoreErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
