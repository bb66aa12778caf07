/*Package sdk declares the foreign surface of the ASICamera2 native
library: the constant families, record structs, and the Lib interface
covering the calls the wrapper in package asi issues.

The production binding is a thin cgo shim satisfying Lib; package
asi/sim provides a software implementation for tests and development
without hardware.  Functions return raw Code status values rather than
errors; translation into the error taxonomy happens one layer up.
*/
package sdk

import "encoding/hex"

// Code is a native status code returned by every library call
type Code int

const (
	// Success means the call completed
	Success Code = iota

	// ErrInvalidIndex means no camera connected at the index
	ErrInvalidIndex

	// ErrInvalidID means the id does not name a connected camera
	ErrInvalidID

	// ErrInvalidControlType means the control is not supported
	ErrInvalidControlType

	// ErrCameraClosed means the camera is not open
	ErrCameraClosed

	// ErrCameraRemoved means the camera was physically unplugged
	ErrCameraRemoved

	// ErrInvalidPath means the file path cannot be found
	ErrInvalidPath

	// ErrInvalidFileFormat means the file format is wrong
	ErrInvalidFileFormat

	// ErrInvalidSize means the ROI size is invalid
	ErrInvalidSize

	// ErrInvalidImgType means the image type is unsupported
	ErrInvalidImgType

	// ErrOutOfBoundary means the start position is outside the sensor
	ErrOutOfBoundary

	// ErrTimeout means the operation timed out
	ErrTimeout

	// ErrInvalidSequence means stop capture first
	ErrInvalidSequence

	// ErrBufferTooSmall means the supplied buffer is too small
	ErrBufferTooSmall

	// ErrVideoModeActive means video mode must be stopped first
	ErrVideoModeActive

	// ErrExposureInProgress means an exposure is already running
	ErrExposureInProgress

	// ErrGeneralError means a condition with no more specific code
	ErrGeneralError

	// ErrInvalidMode means the call is not valid in the current mode
	ErrInvalidMode
)

var codeNames = map[Code]string{
	Success:               "ASI_SUCCESS",
	ErrInvalidIndex:       "ASI_ERROR_INVALID_INDEX",
	ErrInvalidID:          "ASI_ERROR_INVALID_ID",
	ErrInvalidControlType: "ASI_ERROR_INVALID_CONTROL_TYPE",
	ErrCameraClosed:       "ASI_ERROR_CAMERA_CLOSED",
	ErrCameraRemoved:      "ASI_ERROR_CAMERA_REMOVED",
	ErrInvalidPath:        "ASI_ERROR_INVALID_PATH",
	ErrInvalidFileFormat:  "ASI_ERROR_INVALID_FILEFORMAT",
	ErrInvalidSize:        "ASI_ERROR_INVALID_SIZE",
	ErrInvalidImgType:     "ASI_ERROR_INVALID_IMGTYPE",
	ErrOutOfBoundary:      "ASI_ERROR_OUTOF_BOUNDARY",
	ErrTimeout:            "ASI_ERROR_TIMEOUT",
	ErrInvalidSequence:    "ASI_ERROR_INVALID_SEQUENCE",
	ErrBufferTooSmall:     "ASI_ERROR_BUFFER_TOO_SMALL",
	ErrVideoModeActive:    "ASI_ERROR_VIDEO_MODE_ACTIVE",
	ErrExposureInProgress: "ASI_ERROR_EXPOSURE_IN_PROGRESS",
	ErrGeneralError:       "ASI_ERROR_GENERAL_ERROR",
	ErrInvalidMode:        "ASI_ERROR_INVALID_MODE",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "ASI_ERROR_UNKNOWN"
}

// ControlType is a native control identifier
type ControlType int

const (
	// CtlGain is analog gain
	CtlGain ControlType = iota

	// CtlExposure is exposure time in microseconds
	CtlExposure

	// CtlGamma is gamma, nominally 50
	CtlGamma

	// CtlWhiteBalR is the red component of white balance
	CtlWhiteBalR

	// CtlWhiteBalB is the blue component of white balance
	CtlWhiteBalB

	// CtlOffset is the pixel value offset (brightness)
	CtlOffset

	// CtlBandwidthOverload is the USB traffic cap in percent
	CtlBandwidthOverload

	// CtlOverclock enables sensor overclocking
	CtlOverclock

	// CtlTemperature is the sensor temperature in tenths of a degree,
	// read-only
	CtlTemperature

	// CtlFlip is the image flip state, a FlipStatus value
	CtlFlip

	// CtlAutoMaxGain is the gain ceiling for auto mode
	CtlAutoMaxGain

	// CtlAutoMaxExposure is the exposure ceiling for auto mode,
	// microseconds
	CtlAutoMaxExposure

	// CtlAutoTargetBrightness is the mean brightness auto mode seeks
	CtlAutoTargetBrightness

	// CtlHardwareBin enables on-chip binning
	CtlHardwareBin

	// CtlHighSpeedMode enables the faster readout path
	CtlHighSpeedMode

	// CtlCoolerPowerPercent is the TEC drive level, read-only
	CtlCoolerPowerPercent

	// CtlTargetTemperature is the TEC setpoint in whole degrees
	CtlTargetTemperature

	// CtlCoolerOn enables the TEC
	CtlCoolerOn

	// CtlMonoBin outputs mono data from binned color pixels
	CtlMonoBin

	// CtlFanOn enables the body fan
	CtlFanOn

	// CtlPatternAdjust adjusts the readout pattern
	CtlPatternAdjust

	// CtlAntiDewHeater enables the window heater
	CtlAntiDewHeater
)

// ImgType is a native pixel format
type ImgType int

const (
	// ImgRaw8 is 8-bit raw data
	ImgRaw8 ImgType = iota

	// ImgRGB24 is interleaved 8-bit BGR
	ImgRGB24

	// ImgRaw16 is 16-bit raw data
	ImgRaw16

	// ImgY8 is 8-bit luma
	ImgY8

	// ImgEnd terminates the supported-format list in CameraInfo
	ImgEnd ImgType = -1
)

// BayerPattern is the color filter layout of a color sensor
type BayerPattern int

const (
	// BayerRG is RGGB
	BayerRG BayerPattern = iota

	// BayerBG is BGGR
	BayerBG

	// BayerGR is GRBG
	BayerGR

	// BayerGB is GBRG
	BayerGB
)

func (b BayerPattern) String() string {
	switch b {
	case BayerRG:
		return "RGGB"
	case BayerBG:
		return "BGGR"
	case BayerGR:
		return "GRBG"
	case BayerGB:
		return "GBRG"
	}
	return "UNKNOWN"
}

// FlipStatus is the native image flip state
type FlipStatus int

const (
	// FlipNone is no flip
	FlipNone FlipStatus = iota

	// FlipHoriz mirrors horizontally
	FlipHoriz

	// FlipVert mirrors vertically
	FlipVert

	// FlipBoth mirrors both axes
	FlipBoth
)

// ExposureStatus is the native exposure state
type ExposureStatus int

const (
	// ExpIdle means no exposure running and no data waiting
	ExpIdle ExposureStatus = iota

	// ExpWorking means the sensor is integrating
	ExpWorking

	// ExpSuccess means data is ready to download
	ExpSuccess

	// ExpFailed means the exposure failed
	ExpFailed
)

func (e ExposureStatus) String() string {
	switch e {
	case ExpIdle:
		return "Idle"
	case ExpWorking:
		return "Working"
	case ExpSuccess:
		return "Success"
	case ExpFailed:
		return "Failed"
	}
	return "Unknown"
}

// Serial is the 8-byte factory serial number; String renders the
// conventional 16 hex digit form
type Serial [8]byte

func (s Serial) String() string {
	return hex.EncodeToString(s[:])
}

// GUID is the 8-byte user-settable identifier of USB3 cameras
type GUID [8]byte

func (g GUID) String() string {
	return hex.EncodeToString(g[:])
}

// CameraInfo is the per-device descriptor record
type CameraInfo struct {
	// Name is the vendor display name, e.g. "ZWO ASI294MM Pro"
	Name string

	// CameraID is the id used for all subsequent calls
	CameraID int

	// MaxWidth and MaxHeight are the full sensor dimensions in pixels
	MaxWidth  int
	MaxHeight int

	// IsColorCam is true for sensors with a Bayer mask
	IsColorCam bool

	// BayerPattern is only meaningful when IsColorCam is true
	BayerPattern BayerPattern

	// SupportedBins lists the legal binning factors, e.g. 1,2,4
	SupportedBins []int

	// SupportedVideoFormats lists the legal pixel formats in preference
	// order
	SupportedVideoFormats []ImgType

	// PixelSize is the pixel pitch in microns
	PixelSize float64

	// MechanicalShutter is true when the camera has a physical shutter
	MechanicalShutter bool

	// ST4Port is true when a guide port is present
	ST4Port bool

	// IsCoolerCam is true when a TEC is present
	IsCoolerCam bool

	// IsUSB3Host and IsUSB3Camera describe the link
	IsUSB3Host   bool
	IsUSB3Camera bool

	// ElecPerADU is the gain conversion factor
	ElecPerADU float64

	// BitDepth is the ADC depth in bits
	BitDepth int

	// IsTriggerCam is true when hardware triggering is supported
	IsTriggerCam bool
}

// ControlCaps is the capability record for one native control
type ControlCaps struct {
	// Name and Description are vendor free text
	Name        string
	Description string

	// MinValue, MaxValue, DefaultValue bound the control
	MinValue     int64
	MaxValue     int64
	DefaultValue int64

	// IsAutoSupported means the firmware can drive this control
	IsAutoSupported bool

	// IsWritable is false for telemetry-only controls
	IsWritable bool

	// ControlType is the native identifier
	ControlType ControlType
}

// Lib is the set of native calls the wrapper issues.  Implementations
// must be safe for calls from multiple goroutines; the vendor library
// serializes internally.
type Lib interface {
	// GetNumOfConnectedCameras counts attached cameras; no side effects
	GetNumOfConnectedCameras() int

	// GetCameraProperty retrieves the descriptor at a scan index
	GetCameraProperty(index int) (CameraInfo, Code)

	// GetCameraPropertyByID retrieves the descriptor for an open camera
	GetCameraPropertyByID(id int) (CameraInfo, Code)

	// OpenCamera opens the camera; required before most other calls
	OpenCamera(id int) Code

	// InitCamera completes initialization after open
	InitCamera(id int) Code

	// CloseCamera releases the handle
	CloseCamera(id int) Code

	// GetNumOfControls counts the capability records
	GetNumOfControls(id int) (int, Code)

	// GetControlCaps retrieves one capability record by index
	GetControlCaps(id int, index int) (ControlCaps, Code)

	// GetControlValue reads a control's value and auto flag
	GetControlValue(id int, ctl ControlType) (int64, bool, Code)

	// SetControlValue writes a control's value and auto flag
	SetControlValue(id int, ctl ControlType, value int64, auto bool) Code

	// GetROIFormat reads the current geometry and pixel format
	GetROIFormat(id int) (width, height, bin int, img ImgType, c Code)

	// SetROIFormat sets the geometry and pixel format
	SetROIFormat(id int, width, height, bin int, img ImgType) Code

	// GetStartPos reads the readout window origin
	GetStartPos(id int) (x, y int, c Code)

	// SetStartPos sets the readout window origin
	SetStartPos(id int, x, y int) Code

	// StartExposure begins a snapshot exposure; dark closes the shutter
	// on cameras that have one
	StartExposure(id int, dark bool) Code

	// StopExposure aborts an in-flight exposure
	StopExposure(id int) Code

	// GetExpStatus polls the exposure state
	GetExpStatus(id int) (ExposureStatus, Code)

	// GetDataAfterExp pulls the frame for a successful exposure; buf
	// must be sized to the ROI times bytes per pixel.  May block for
	// the duration of the USB transfer.
	GetDataAfterExp(id int, buf []byte) Code

	// GetSerialNumber reads the factory serial; requires an open handle
	GetSerialNumber(id int) (Serial, Code)

	// GetID reads the user-settable identifier; USB3 cameras only
	GetID(id int) (GUID, Code)

	// SetID writes the user-settable identifier; USB3 cameras only
	SetID(id int, to GUID) Code
}
