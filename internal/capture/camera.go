package capture

import (
	"context"
	"errors"

	dErrors "trustbadge/pkg/domain-errors"
)

// ErrCaptureCancelled reports that the user dismissed the camera before
// confirming a frame.
var ErrCaptureCancelled = errors.New("capture cancelled")

// Track is a live media track. Stopping it releases the underlying device.
type Track interface {
	Stop()
}

// Session is an open camera stream. Close stops every track; it must run on
// every exit path, including cancellation and errors.
type Session interface {
	Still(ctx context.Context) (Image, error)
	Tracks() []Track
	Close() error
}

// Camera opens capture sessions.
type Camera interface {
	Open(ctx context.Context) (Session, error)
}

// CaptureSelfie opens the camera, waits for the user to confirm a frame on
// confirm, and returns the captured still. The session is closed before
// returning regardless of outcome. A closed confirm channel means the user
// cancelled.
func CaptureSelfie(ctx context.Context, cam Camera, confirm <-chan struct{}) (Image, error) {
	session, err := cam.Open(ctx)
	if err != nil {
		return Image{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "camera unavailable")
	}
	defer session.Close()

	select {
	case <-ctx.Done():
		return Image{}, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "capture aborted")
	case _, ok := <-confirm:
		if !ok {
			return Image{}, ErrCaptureCancelled
		}
	}

	img, err := session.Still(ctx)
	if err != nil {
		return Image{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "camera frame capture failed")
	}
	return img, nil
}
