package handler

import (
	"time"

	"trustbadge/internal/verification"
	"trustbadge/internal/verification/service"
)

// Wire field names stay camelCase for compatibility with the existing mobile
// and back-office clients.

type submitRequest struct {
	Method string   `json:"method"`
	Images []string `json:"images"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type verificationResponse struct {
	ID                 string     `json:"id,omitempty"`
	UserID             string     `json:"userId,omitempty"`
	Status             string     `json:"status"`
	IsVerified         bool       `json:"isVerified"`
	VerificationMethod string     `json:"verificationMethod,omitempty"`
	SubmittedAt        *time.Time `json:"submittedAt,omitempty"`
	VerifiedAt         *time.Time `json:"verifiedAt,omitempty"`
	RejectionReason    string     `json:"rejectionReason,omitempty"`
	DeviceInfo         string     `json:"deviceInfo,omitempty"`
	DocumentImage      string     `json:"documentImage,omitempty"`
	SelfieImage        string     `json:"selfieImage,omitempty"`
}

func toResponse(req *verification.Request, includeImages bool) verificationResponse {
	resp := verificationResponse{
		Status:             string(req.Status),
		IsVerified:         req.IsVerified,
		VerificationMethod: req.Method,
		RejectionReason:    req.RejectionReason,
		DeviceInfo:         req.DeviceInfo,
		VerifiedAt:         req.VerifiedAt,
	}
	if !req.ID.IsZero() {
		resp.ID = req.ID.String()
	}
	if !req.UserID.IsZero() {
		resp.UserID = req.UserID.String()
	}
	if !req.SubmittedAt.IsZero() {
		t := req.SubmittedAt
		resp.SubmittedAt = &t
	}
	if includeImages {
		resp.DocumentImage = req.DocumentImage
		resp.SelfieImage = req.SelfieImage
	}
	return resp
}

type adminItemResponse struct {
	verificationResponse
	UserName  string `json:"userName,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

type adminListResponse struct {
	Verifications []adminItemResponse `json:"verifications"`
	Counts        map[string]int      `json:"counts"`
}

func toAdminListResponse(list *service.AdminList) adminListResponse {
	out := adminListResponse{
		Verifications: make([]adminItemResponse, 0, len(list.Items)),
		Counts: map[string]int{
			string(verification.StatusPending):  list.Counts[verification.StatusPending],
			string(verification.StatusApproved): list.Counts[verification.StatusApproved],
			string(verification.StatusRejected): list.Counts[verification.StatusRejected],
		},
	}
	for _, item := range list.Items {
		out.Verifications = append(out.Verifications, adminItemResponse{
			verificationResponse: toResponse(item.Request, true),
			UserName:             item.DisplayName,
			UserEmail:            item.Email,
		})
	}
	return out
}
