package asi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/camera"
)

var (
	// ErrInvalidIndex is generated when no camera is connected at an
	// enumeration index
	ErrInvalidIndex = errors.New("invalid camera index")

	// ErrInvalidSequence is generated when calls arrive out of order,
	// e.g. data requested with no successful exposure
	ErrInvalidSequence = errors.New("invalid call sequence, stop capture first")

	// ErrBufferTooSmall is generated when a data buffer cannot hold the
	// frame
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrVideoModeActive is generated when a snapshot call is made
	// during video capture
	ErrVideoModeActive = errors.New("video mode active")

	// ErrInvalidPath is generated for unresolvable file paths
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidFileFormat is generated for unsupported file formats
	ErrInvalidFileFormat = errors.New("invalid file format")

	// ErrOutOfBoundary is generated when a start position falls outside
	// the sensor
	ErrOutOfBoundary = errors.New("position out of boundary")

	// ErrInvalidMode is generated when a call is not legal in the
	// camera's current mode
	ErrInvalidMode = errors.New("invalid mode")
)

// errCodes maps every non-success native code onto the error taxonomy.
// Codes shared with the generic camera surface reuse its sentinels so
// errors.Is works across layers.
var errCodes = map[sdk.Code]error{
	sdk.ErrInvalidIndex:       ErrInvalidIndex,
	sdk.ErrInvalidControlType: camera.ErrInvalidControlType,
	sdk.ErrCameraClosed:       camera.ErrCameraClosed,
	sdk.ErrCameraRemoved:      camera.ErrCameraRemoved,
	sdk.ErrInvalidPath:        ErrInvalidPath,
	sdk.ErrInvalidFileFormat:  ErrInvalidFileFormat,
	sdk.ErrInvalidSize:        camera.ErrInvalidFormat,
	sdk.ErrInvalidImgType:     camera.ErrInvalidImageType,
	sdk.ErrOutOfBoundary:      ErrOutOfBoundary,
	sdk.ErrTimeout:            camera.ErrTimedOut,
	sdk.ErrInvalidSequence:    ErrInvalidSequence,
	sdk.ErrBufferTooSmall:     ErrBufferTooSmall,
	sdk.ErrVideoModeActive:    ErrVideoModeActive,
	sdk.ErrExposureInProgress: camera.ErrExposureInProgress,
	sdk.ErrInvalidMode:        ErrInvalidMode,
}

// Error translates a native status code into the error taxonomy.  The
// mapping is total: Success yields nil, codes with no known constant
// yield a GeneralError.  It never panics.
func Error(code sdk.Code) error {
	if code == sdk.Success {
		return nil
	}
	if code == sdk.ErrInvalidID {
		return &camera.InvalidIDError{ID: -1}
	}
	if err, ok := errCodes[code]; ok {
		return err
	}
	return &camera.GeneralError{Detail: code.String()}
}

// CallError annotates a mapped native failure with the call that
// produced it and its arguments.  The enrichment is diagnostic only;
// Unwrap yields the taxonomy error so errors.Is and errors.As see
// through it.
type CallError struct {
	// Op is the native function name, e.g. "ASIStartExposure"
	Op string

	// Args are the call's arguments in order
	Args []interface{}

	// Code is the raw native status
	Code sdk.Code

	// Err is the mapped taxonomy error
	Err error
}

func (e *CallError) Error() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = fmt.Sprint(a)
	}
	return fmt.Sprintf("%s(%s): %v", e.Op, strings.Join(args, ", "), e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// call wraps a native status in a CallError, or returns nil on success.
// By convention the first argument is the camera id, which lets invalid
// id failures carry the offending id.
func call(op string, code sdk.Code, args ...interface{}) error {
	if code == sdk.Success {
		return nil
	}
	err := Error(code)
	if code == sdk.ErrInvalidID && len(args) > 0 {
		if id, ok := args[0].(int); ok {
			err = &camera.InvalidIDError{ID: id}
		}
	}
	return &CallError{Op: op, Args: args, Code: code, Err: err}
}
