package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustbadge/pkg/domain-errors"
)

func testImage(t *testing.T) Image {
	t.Helper()
	sig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	payload := append(sig, bytes.Repeat([]byte{0}, 16)...)
	return Image{Data: "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)}
}

func TestFlowForwardPath(t *testing.T) {
	doc := Start(1 << 20)

	doc, err := doc.Attach(testImage(t))
	require.NoError(t, err)
	require.False(t, doc.Document().IsZero())

	selfieStep, err := doc.Next()
	require.NoError(t, err)
	assert.Equal(t, doc.Document(), selfieStep.Document())

	selfieStep, err = selfieStep.Attach(testImage(t))
	require.NoError(t, err)

	review, err := selfieStep.Next()
	require.NoError(t, err)
	assert.False(t, review.Document().IsZero())
	assert.False(t, review.Selfie().IsZero())
}

func TestFlowGuardsForwardTransitions(t *testing.T) {
	doc := Start(1 << 20)

	_, err := doc.Next()
	require.Error(t, err, "selfie step unreachable without a document")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	doc, err = doc.Attach(testImage(t))
	require.NoError(t, err)
	selfieStep, err := doc.Next()
	require.NoError(t, err)

	_, err = selfieStep.Next()
	require.Error(t, err, "review unreachable without a selfie")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestFlowAttachRejectsInvalidImage(t *testing.T) {
	doc := Start(1 << 20)

	doc, err := doc.Attach(Image{Data: "not a data uri"})
	require.Error(t, err)
	assert.True(t, doc.Document().IsZero(), "step unchanged on validation failure")

	doc, err = doc.Attach(testImage(t))
	require.NoError(t, err)
	kept := doc.Document()

	doc, err = doc.Attach(Image{Data: ""})
	require.Error(t, err)
	assert.Equal(t, kept, doc.Document(), "failed re-attach keeps the previous image")
}

func TestFlowBackNavigationKeepsImages(t *testing.T) {
	doc, err := Start(1 << 20).Attach(testImage(t))
	require.NoError(t, err)
	selfieStep, err := doc.Next()
	require.NoError(t, err)

	// Back from selfie keeps the document.
	back := selfieStep.Back()
	assert.Equal(t, doc.Document(), back.Document())

	// Forward again without re-capturing.
	selfieStep, err = back.Next()
	require.NoError(t, err)
	selfieStep, err = selfieStep.Attach(testImage(t))
	require.NoError(t, err)
	review, err := selfieStep.Next()
	require.NoError(t, err)

	// Back from review keeps both.
	again := review.Back(1 << 20)
	assert.Equal(t, review.Document(), again.Document())
	assert.Equal(t, review.Selfie(), again.Selfie())
}

// blockingSubmitter holds every submission until released.
type blockingSubmitter struct {
	started  chan struct{}
	release  chan struct{}
	submits  int
	lastDoc  Image
	failWith error
}

func (s *blockingSubmitter) SubmitVerification(ctx context.Context, method string, document, selfie Image) (*Record, error) {
	s.submits++
	s.lastDoc = document
	if s.started != nil {
		close(s.started)
		<-s.release
	}
	if s.failWith != nil {
		return nil, s.failWith
	}
	return &Record{Status: "pending", VerificationMethod: method}, nil
}

func reviewFor(t *testing.T) ReviewStep {
	t.Helper()
	doc, err := Start(1 << 20).Attach(testImage(t))
	require.NoError(t, err)
	selfieStep, err := doc.Next()
	require.NoError(t, err)
	selfieStep, err = selfieStep.Attach(testImage(t))
	require.NoError(t, err)
	review, err := selfieStep.Next()
	require.NoError(t, err)
	return review
}

func TestFlowSubmitIsNotReentrant(t *testing.T) {
	submitter := &blockingSubmitter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	flow := NewFlow(submitter)
	review := reviewFor(t)

	done := make(chan error, 1)
	go func() {
		_, err := flow.Submit(context.Background(), review)
		done <- err
	}()
	<-submitter.started

	_, err := flow.Submit(context.Background(), review)
	require.Error(t, err, "second submit while one is in flight is refused")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	close(submitter.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, submitter.submits)
}

func TestFlowSubmitAllowsRetryAfterFailure(t *testing.T) {
	submitter := &blockingSubmitter{failWith: dErrors.New(dErrors.CodeUnavailable, "down")}
	flow := NewFlow(submitter)
	review := reviewFor(t)

	_, err := flow.Submit(context.Background(), review)
	require.Error(t, err)

	submitter.failWith = nil
	rec, err := flow.Submit(context.Background(), review)
	require.NoError(t, err, "failed submit releases the in-flight guard")
	assert.Equal(t, "pending", rec.Status)
	assert.Equal(t, review.Document(), submitter.lastDoc)
}
