// Package capture implements the guided verification capture flow: a document
// photo, then a selfie, then a review screen that submits both in one call.
//
// The steps are distinct types so an invalid step/data combination cannot be
// represented: a ReviewStep can only be built from a SelfieStep that already
// holds both images, and each forward transition re-validates its input.
package capture

import (
	"context"
	"sync"

	"trustbadge/internal/platform/config"
	"trustbadge/internal/verification"
	dErrors "trustbadge/pkg/domain-errors"
)

// Image is a captured picture in data-URI form.
type Image struct {
	Data string
}

func (i Image) IsZero() bool { return i.Data == "" }

// DocumentStep is the initial step. It may already hold a document when the
// user navigated back from the selfie step.
type DocumentStep struct {
	document Image
	limit    int
}

// Start opens the flow at the document step. maxImageBytes bounds each image;
// zero applies the default.
func Start(maxImageBytes int) DocumentStep {
	if maxImageBytes <= 0 {
		maxImageBytes = config.DefaultMaxImageBytes
	}
	return DocumentStep{limit: maxImageBytes}
}

// Document returns the held document image, zero when none selected yet.
func (s DocumentStep) Document() Image { return s.document }

// Attach validates and holds the document image. The step is unchanged on
// validation failure.
func (s DocumentStep) Attach(img Image) (DocumentStep, error) {
	if err := verification.ValidateImage(img.Data, s.limit); err != nil {
		return s, err
	}
	s.document = img
	return s, nil
}

// Next advances to the selfie step; guarded on a non-empty document.
func (s DocumentStep) Next() (SelfieStep, error) {
	if s.document.IsZero() {
		return SelfieStep{}, dErrors.New(dErrors.CodeInvalidInput, "document image is required before the selfie step")
	}
	return SelfieStep{document: s.document, limit: s.limit}, nil
}

// SelfieStep holds the already-captured document and collects the selfie via
// camera or file.
type SelfieStep struct {
	document Image
	selfie   Image
	limit    int
}

func (s SelfieStep) Document() Image { return s.document }
func (s SelfieStep) Selfie() Image   { return s.selfie }

// Attach validates and holds the selfie image.
func (s SelfieStep) Attach(img Image) (SelfieStep, error) {
	if err := verification.ValidateImage(img.Data, s.limit); err != nil {
		return s, err
	}
	s.selfie = img
	return s, nil
}

// CaptureFromCamera runs a scoped camera session and attaches the captured
// frame. When the camera is unavailable the step is returned unchanged so the
// caller can degrade to the file path.
func (s SelfieStep) CaptureFromCamera(ctx context.Context, cam Camera, confirm <-chan struct{}) (SelfieStep, error) {
	img, err := CaptureSelfie(ctx, cam, confirm)
	if err != nil {
		return s, err
	}
	return s.Attach(img)
}

// Back returns to the document step without discarding the document.
func (s SelfieStep) Back() DocumentStep {
	return DocumentStep{document: s.document, limit: s.limit}
}

// Next advances to review; guarded on a non-empty selfie.
func (s SelfieStep) Next() (ReviewStep, error) {
	if s.selfie.IsZero() {
		return ReviewStep{}, dErrors.New(dErrors.CodeInvalidInput, "selfie image is required before review")
	}
	return ReviewStep{document: s.document, selfie: s.selfie}, nil
}

// ReviewStep displays both images read-only. By construction it always holds
// both.
type ReviewStep struct {
	document Image
	selfie   Image
}

func (s ReviewStep) Document() Image { return s.document }
func (s ReviewStep) Selfie() Image   { return s.selfie }

// Back returns to the selfie step with both images intact.
func (s ReviewStep) Back(limit int) SelfieStep {
	if limit <= 0 {
		limit = config.DefaultMaxImageBytes
	}
	return SelfieStep{document: s.document, selfie: s.selfie, limit: limit}
}

// Submitter sends a reviewed pair to the server.
type Submitter interface {
	SubmitVerification(ctx context.Context, method string, document, selfie Image) (*Record, error)
}

// Flow guards submission: only one request may be in flight, and a failed
// submit leaves the review step intact for retry.
type Flow struct {
	client Submitter

	mu       sync.Mutex
	inFlight bool
}

func NewFlow(client Submitter) *Flow {
	return &Flow{client: client}
}

// Submit sends the reviewed images. A second call while one is in flight is
// refused rather than queued.
func (f *Flow) Submit(ctx context.Context, review ReviewStep) (*Record, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeConflict, "submission already in flight")
	}
	f.inFlight = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
	}()

	return f.client.SubmitVerification(ctx, verification.MethodDocumentSelfie, review.Document(), review.Selfie())
}
