package asi

import (
	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/camera"
)

// InfoHandle is the read-mostly facet of an Imager: temperature and
// cooler telemetry, exposure state, and cancellation, safe to copy and
// use from other goroutines while the Imager drives a capture.  It
// shares only the capturing flag and the start instant with its parent;
// property access is restricted to the device-level control sub-map so
// a housekeeping goroutine cannot race the capture loop over sensor
// settings.
type InfoHandle struct {
	h      *deviceHandle
	lib    sdk.Lib
	name   string
	serial string
	cat    *catalog
	shared *sharedState
}

// CameraName returns the vendor display name
func (n InfoHandle) CameraName() string {
	return n.name
}

// Serial returns the factory serial number in hex
func (n InfoHandle) Serial() string {
	return n.serial
}

// CameraReady reports whether the device accepts commands; this
// hardware family is ready from open to close
func (n InfoHandle) CameraReady() bool {
	return !n.h.closed.Load()
}

// IsCapturing mirrors the parent Imager's capturing flag
func (n InfoHandle) IsCapturing() bool {
	return n.shared.capturing.Load()
}

// CameraState reads the exposure machine without disturbing the parent
// Imager's bookkeeping
func (n InfoHandle) CameraState() (camera.State, error) {
	return readCameraState(n.h, n.shared)
}

// CancelCapture aborts the in-flight exposure.  Usable from a signal
// handler or housekeeping goroutine concurrently with the Imager.
func (n InfoHandle) CancelCapture() error {
	return cancelCapture(n.h, n.shared)
}

// ListProperties enumerates the device-level controls
func (n InfoHandle) ListProperties() map[camera.Control]camera.Property {
	out := make(map[camera.Control]camera.Property, len(n.cat.device))
	for k, v := range n.cat.device {
		out[k] = v.prop
	}
	return out
}

// GetProperty reads a device-level control
func (n InfoHandle) GetProperty(ctl camera.Control) (camera.Value, bool, error) {
	e, ok := n.cat.device[ctl]
	if !ok {
		return camera.Value{}, false, camera.ErrInvalidControlType
	}
	return getControl(n.lib, n.h.handle(), ctl, e)
}

// SetProperty validates and writes a device-level control
func (n InfoHandle) SetProperty(ctl camera.Control, v camera.Value, auto bool) error {
	e, ok := n.cat.device[ctl]
	if !ok {
		return camera.ErrInvalidControlType
	}
	if err := validateWrite(ctl, e, v); err != nil {
		return err
	}
	return setControl(n.lib, n.h.handle(), ctl, e, v, auto)
}

// Temperature reads the sensor temperature in Celcius
func (n InfoHandle) Temperature() (float64, error) {
	v, _, err := n.GetProperty(camera.Cnt(camera.KindTemperature))
	if err != nil {
		return 0, err
	}
	return v.Float, nil
}

// CoolerPower reads the TEC drive level in percent; fails on cameras
// without a cooler
func (n InfoHandle) CoolerPower() (float64, error) {
	v, _, err := n.GetProperty(camera.Cnt(camera.KindCoolerPower))
	if err != nil {
		return 0, err
	}
	return float64(v.Int), nil
}

// SetCooling turns the TEC on or off
func (n InfoHandle) SetCooling(on bool) error {
	return n.SetProperty(camera.Cnt(camera.KindCoolerEnable), camera.BoolV(on), false)
}
