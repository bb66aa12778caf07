package asi

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/camera"
)

// deviceHandle is the sole owner of one native camera id.  All mutation
// of native device state funnels through it; nothing else closes the
// device.
type deviceHandle struct {
	id  int
	lib sdk.Lib

	// hasCooler selects whether teardown disables the TEC
	hasCooler bool

	closed atomic.Bool

	log logrus.FieldLogger
}

// openHandle opens and initializes the native device
func openHandle(lib sdk.Lib, id int, hasCooler bool, log logrus.FieldLogger) (*deviceHandle, error) {
	if err := call("ASIOpenCamera", lib.OpenCamera(id), id); err != nil {
		return nil, err
	}
	if err := call("ASIInitCamera", lib.InitCamera(id), id); err != nil {
		// opened but not initialized, release it
		lib.CloseCamera(id)
		return nil, err
	}
	return &deviceHandle{id: id, lib: lib, hasCooler: hasCooler, log: log}, nil
}

// handle is the native id for passing into library calls
func (h *deviceHandle) handle() int {
	return h.id
}

// exposureStatus polls the native exposure state
func (h *deviceHandle) exposureStatus() (sdk.ExposureStatus, error) {
	if h.closed.Load() {
		return sdk.ExpIdle, camera.ErrCameraClosed
	}
	st, code := h.lib.GetExpStatus(h.id)
	if err := call("ASIGetExpStatus", code, h.id); err != nil {
		return sdk.ExpIdle, err
	}
	return st, nil
}

// Close tears the device down: stop any in-flight exposure, disable the
// cooler, close the native handle.  Each step is best-effort and logged
// on failure; the order is load-bearing, a closed-but-still-exposing
// camera can leave the sensor cooking with the TEC off.
func (h *deviceHandle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if code := h.lib.StopExposure(h.id); code != sdk.Success {
		h.log.WithFields(logrus.Fields{
			"camera": h.id,
			"code":   code.String(),
		}).Warn("stop exposure during teardown failed")
	}
	if h.hasCooler {
		if code := h.lib.SetControlValue(h.id, sdk.CtlCoolerOn, 0, false); code != sdk.Success {
			h.log.WithFields(logrus.Fields{
				"camera": h.id,
				"code":   code.String(),
			}).Warn("cooler disable during teardown failed")
		}
	}
	if code := h.lib.CloseCamera(h.id); code != sdk.Success {
		h.log.WithFields(logrus.Fields{
			"camera": h.id,
			"code":   code.String(),
		}).Warn("close during teardown failed")
		return call("ASICloseCamera", code, h.id)
	}
	return nil
}
