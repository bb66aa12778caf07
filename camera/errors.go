package camera

import (
	"errors"
	"fmt"
)

var (
	// ErrCameraClosed is returned when the device handle has been closed
	ErrCameraClosed = errors.New("camera closed")

	// ErrCameraRemoved is returned when the device has been unplugged
	ErrCameraRemoved = errors.New("camera removed")

	// ErrExposureInProgress is returned when an operation requires the
	// camera to be at rest but an exposure is in flight
	ErrExposureInProgress = errors.New("exposure in progress")

	// ErrExposureNotStarted is returned when an operation requires an
	// in-flight exposure but none was started, or the device silently
	// dropped the one we started
	ErrExposureNotStarted = errors.New("exposure not started")

	// ErrTimedOut is returned when the bulk data transfer timed out
	ErrTimedOut = errors.New("timed out")

	// ErrAccessViolation is returned when capture state is touched by
	// something other than its logical owner
	ErrAccessViolation = errors.New("access violation on capture state")

	// ErrInvalidControlType is returned for a control the device does
	// not expose
	ErrInvalidControlType = errors.New("invalid control type")

	// ErrInvalidImageType is returned for an unsupported pixel format
	ErrInvalidImageType = errors.New("invalid image type")

	// ErrInvalidFormat is returned for an unsupported ROI geometry
	ErrInvalidFormat = errors.New("invalid format")
)

// InvalidIDError is returned when a device id does not correspond to a
// connected camera
type InvalidIDError struct {
	ID int
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("no camera with id %d", e.ID)
}

// ExposureFailedError is returned when the device reports a failed
// exposure; recoverable, the caller may start another
type ExposureFailedError struct {
	Reason string
}

func (e *ExposureFailedError) Error() string {
	if e.Reason == "" {
		return "exposure failed"
	}
	return "exposure failed: " + e.Reason
}

// PropertyError is returned when a value fails validation against its
// Property before any native call is made
type PropertyError struct {
	// Control is the control being accessed; may be the zero value when
	// the error is produced below the catalog layer
	Control Control

	// Kind describes what about the value was rejected
	Kind string
}

func (e *PropertyError) Error() string {
	if e.Control.Kind == KindInvalid {
		return "property error: " + e.Kind
	}
	return fmt.Sprintf("property error on %v: %s", e.Control, e.Kind)
}

// GeneralError is the catch-all for native failures with no closer match
type GeneralError struct {
	Detail string
}

func (e *GeneralError) Error() string {
	if e.Detail == "" {
		return "general camera error"
	}
	return "general camera error: " + e.Detail
}

// Recoverable is true for errors after which the handle remains usable
// (failed or timed-out exposures); false for errors that indicate the
// session is over and the caller should re-enumerate and reconnect.
func Recoverable(err error) bool {
	if errors.Is(err, ErrCameraClosed) || errors.Is(err, ErrCameraRemoved) {
		return false
	}
	var inv *InvalidIDError
	return !errors.As(err, &inv)
}
