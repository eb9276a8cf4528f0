package verification

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	id "trustbadge/pkg/domain"
	dErrors "trustbadge/pkg/domain-errors"
)

// Status is the server-authoritative verification state.
//
// StatusNone is synthetic: it is never persisted and only appears on the
// model returned when a user has no record yet.
type Status string

const (
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether the status ends a submission's review cycle.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatus validates an external status filter value.
func ParseStatus(v string) (Status, error) {
	switch Status(v) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(v), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status: "+v)
	}
}

// MethodDocumentSelfie is the only capture method currently offered.
const MethodDocumentSelfie = "document_selfie"

// Request is one verification submission. The most recent record per user is
// authoritative; older rejected attempts remain as history.
//
// Invariant: IsVerified is true iff Status is StatusApproved.
type Request struct {
	ID            id.VerificationID
	UserID        id.UserID
	Status        Status
	IsVerified    bool
	Method        string
	DocumentImage string
	SelfieImage   string
	DeviceInfo    string

	SubmittedAt     time.Time
	VerifiedAt      *time.Time
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// None returns the synthetic model for a user with no verification record.
func None(userID id.UserID) *Request {
	return &Request{UserID: userID, Status: StatusNone, IsVerified: false}
}

// Clone returns a deep copy so stores never hand out aliased state.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	if r.VerifiedAt != nil {
		t := *r.VerifiedAt
		out.VerifiedAt = &t
	}
	return &out
}

// ValidateImage checks a captured image in data-URI form: it must declare and
// actually contain image bytes (content sniffed, not trusted from the label)
// and stay within the configured size bound.
func ValidateImage(data string, maxBytes int) error {
	if strings.TrimSpace(data) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "image is required")
	}
	rest, ok := strings.CutPrefix(data, "data:")
	if !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "image must be a data URI")
	}
	mediaType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "image must be base64 encoded")
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return dErrors.New(dErrors.CodeInvalidInput, "file is not an image")
	}
	if payload == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "image payload is empty")
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes {
		return dErrors.New(dErrors.CodeInvalidInput, "image exceeds the size limit")
	}

	// Sniff the leading bytes; the declared media type is not trusted.
	head := payload
	if len(head) > 1024 {
		head = head[:1024]
	}
	decoded, err := base64.StdEncoding.DecodeString(head)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "image payload is not valid base64")
	}
	if !strings.HasPrefix(http.DetectContentType(decoded), "image/") {
		return dErrors.New(dErrors.CodeInvalidInput, "file is not an image")
	}
	return nil
}
