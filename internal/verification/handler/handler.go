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
	id "trustbadge/pkg/domain"
	dErrors "trustbadge/pkg/domain-errors"
	"trustbadge/pkg/platform/httputil"
	"trustbadge/pkg/requestcontext"
)

// Service defines the user-facing verification operations.
type Service interface {
	Submit(ctx context.Context, userID id.UserID, documentImage, selfieImage, method string) (*verification.Request, error)
	Status(ctx context.Context, userID id.UserID) (*verification.Request, error)
}

// Handler serves the user-facing verification endpoints.
type Handler struct {
	logger       *slog.Logger
	verification Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates the user-facing verification Handler.
func New(svc Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		verification: svc,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the verification routes with the standard middleware chain.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.DeviceMetadata)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Latency(h.metrics))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	router.Post("/verification/request", h.handleSubmit)
	router.Get("/verification/status", h.handleStatus)

	r.Mount("/", router)
}

// handleSubmit accepts the two captured images and opens a pending review.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid submit request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.Images) != 2 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "images must contain the document and the selfie"))
		return
	}

	created, err := h.verification.Submit(ctx, userID, req.Images[0], req.Images[1], req.Method)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to submit verification",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toResponse(created, false))
}

// handleStatus returns the caller's current record, or the none-shape.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.verification.Status(ctx, requestcontext.UserID(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to load verification status",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(status, false))
}
