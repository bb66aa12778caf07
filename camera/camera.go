/*Package camera describes a standard set of types and interfaces for
control of scientific cameras: typed controls and property descriptors,
the exposure state machine's observable states, regions of interest, and
captured images with FITS provenance metadata.

Device wrappers (e.g. the asi package) implement the Imager and Info
interfaces in terms of these types.
*/
package camera

import (
	"time"
)

// PixelFormat is the sample layout a sensor can read out in
type PixelFormat int

const (
	// Raw8 is 8-bit raw (possibly Bayer-masked) data
	Raw8 PixelFormat = iota

	// RGB24 is interleaved 8-bit RGB
	RGB24

	// Raw16 is 16-bit raw (possibly Bayer-masked) data
	Raw16

	// Y8 is 8-bit luma from a color sensor
	Y8
)

func (p PixelFormat) String() string {
	switch p {
	case Raw8:
		return "RAW8"
	case RGB24:
		return "RGB24"
	case Raw16:
		return "RAW16"
	case Y8:
		return "Y8"
	}
	return "UNKNOWN"
}

// ParsePixelFormat is the inverse of PixelFormat.String
func ParsePixelFormat(s string) (PixelFormat, bool) {
	switch s {
	case "RAW8":
		return Raw8, true
	case "RGB24":
		return RGB24, true
	case "RAW16":
		return Raw16, true
	case "Y8":
		return Y8, true
	}
	return Raw8, false
}

// Bpp is the bit depth of a sample; RGB24 counts as 8 per channel
func (p PixelFormat) Bpp() int {
	if p == Raw16 {
		return 16
	}
	return 8
}

// BytesPerPixel is the per-pixel transfer size for buffer allocation
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case Raw16:
		return 2
	case RGB24:
		return 3
	}
	return 1
}

// ROI is the rectangular sensor window being read out.  Width and Height
// are post-binning dimensions; X and Y are in binned pixels as well.
type ROI struct {
	// X is the left edge of the window
	X int `json:"x"`

	// Y is the top edge of the window
	Y int `json:"y"`

	// Width is the window width
	Width int `json:"width"`

	// Height is the window height
	Height int `json:"height"`

	// BinX is the horizontal binning factor
	BinX int `json:"binX"`

	// BinY is the vertical binning factor
	BinY int `json:"binY"`
}

// StateKind enumerates the observable states of the exposure machine
type StateKind int

const (
	// Idle means no exposure is in flight
	Idle StateKind = iota

	// Exposing means the sensor is integrating; State.Elapsed is valid
	Exposing

	// ExposureFinished means data is ready on the device, not yet pulled
	ExposureFinished

	// Errored means the in-flight exposure failed; State.Err is valid
	Errored
)

func (k StateKind) String() string {
	switch k {
	case Idle:
		return "Idle"
	case Exposing:
		return "Exposing"
	case ExposureFinished:
		return "ExposureFinished"
	case Errored:
		return "Errored"
	}
	return "Unknown"
}

// State is a snapshot of the exposure machine
type State struct {
	Kind StateKind

	// Elapsed is time since exposure start, valid when Kind == Exposing
	Elapsed time.Duration

	// Err describes the failure, valid when Kind == Errored
	Err error
}

// Descriptor is the identity snapshot of one enumerated camera.  Info is
// an open-ended bag of vendor facts (sensor geometry, color layout,
// capability flags); immutable once created.
type Descriptor struct {
	// ID is the native integer id used to open the device
	ID int `json:"id"`

	// Name is the vendor's display name for the model
	Name string `json:"name"`

	// Vendor is the manufacturer string
	Vendor string `json:"vendor"`

	// Serial is the factory serial number, hex encoded
	Serial string `json:"serial"`

	// Info holds free-form device facts keyed by label
	Info map[string]string `json:"info"`
}

// Imager is a camera that can run exposures and hand back images.  A
// single goroutine is expected to own an Imager; only the Info facet is
// safe to share across goroutines.
type Imager interface {
	// CameraName returns the vendor display name
	CameraName() string

	// StartExposure begins integrating; fails with ErrExposureInProgress
	// if a prior exposure has not been resolved
	StartExposure() error

	// ImageReady polls whether data is ready to download
	ImageReady() (bool, error)

	// CameraState reads the exposure machine
	CameraState() (State, error)

	// DownloadImage pulls the data for a finished exposure
	DownloadImage() (*Image, error)

	// CancelCapture aborts an in-flight exposure
	CancelCapture() error

	// IsCapturing is true between a successful start and its resolution
	IsCapturing() bool

	// GetROI retrieves the current readout window
	GetROI() (ROI, error)

	// SetROI changes the readout window; invalid while capturing
	SetROI(ROI) error

	// ListProperties enumerates the available controls
	ListProperties() map[Control]Property

	// GetProperty reads a control's value and auto flag
	GetProperty(Control) (Value, bool, error)

	// SetProperty writes a control after validating against its Property
	SetProperty(Control, Value, bool) error
}

// Info is the read-mostly telemetry facet of an Imager, safe to clone
// and poll from other goroutines while an exposure is in flight.
// Property access through an Info is restricted to device-level
// controls.
type Info interface {
	CameraName() string

	// CameraReady reports whether the device will accept commands
	CameraReady() bool

	IsCapturing() bool
	CameraState() (State, error)
	CancelCapture() error

	ListProperties() map[Control]Property
	GetProperty(Control) (Value, bool, error)
	SetProperty(Control, Value, bool) error
}
