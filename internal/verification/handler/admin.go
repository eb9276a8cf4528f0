package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustbadge/internal/platform/metrics"
	"trustbadge/internal/platform/middleware"
	"trustbadge/internal/verification"
	"trustbadge/internal/verification/service"
	id "trustbadge/pkg/domain"
	dErrors "trustbadge/pkg/domain-errors"
	"trustbadge/pkg/platform/httputil"
	"trustbadge/pkg/requestcontext"
)

// AdminService defines the back-office review operations.
type AdminService interface {
	List(ctx context.Context, filter verification.ListFilter) (*service.AdminList, error)
	Approve(ctx context.Context, verificationID id.VerificationID) (*verification.Request, error)
	Reject(ctx context.Context, verificationID id.VerificationID, reason string) (*verification.Request, error)
}

// AdminHandler serves the review back office.
type AdminHandler struct {
	logger  *slog.Logger
	reviews AdminService
	metrics *metrics.Metrics
	auth    *middleware.AdminAuth
}

func NewAdmin(svc AdminService, logger *slog.Logger, m *metrics.Metrics, auth *middleware.AdminAuth) *AdminHandler {
	return &AdminHandler{
		logger:  logger,
		reviews: svc,
		metrics: m,
		auth:    auth,
	}
}

// Register mounts the admin routes behind the admin token gate.
func (h *AdminHandler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Latency(h.metrics))
	router.Use(h.auth.RequireAdminToken)
	router.Get("/verifications", h.handleList)
	router.Post("/verifications/{id}/approve", h.handleApprove)
	router.Post("/verifications/{id}/reject", h.handleReject)

	r.Mount("/admin", router)
}

func (h *AdminHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter verification.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := verification.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}

	list, err := h.reviews.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list verifications",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAdminListResponse(list))
}

func (h *AdminHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	verificationID, err := id.ParseVerificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.reviews.Approve(ctx, verificationID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to approve verification",
				"request_id", requestcontext.RequestID(ctx),
				"verification_id", verificationID.String(),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(updated, false))
}

func (h *AdminHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	verificationID, err := id.ParseVerificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.reviews.Reject(ctx, verificationID, req.Reason)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to reject verification",
				"request_id", requestcontext.RequestID(ctx),
				"verification_id", verificationID.String(),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(updated, false))
}
