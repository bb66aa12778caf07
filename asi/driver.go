/*Package asi wraps the ZWO ASICamera2 native library in the generic
camera control surface of package camera.

The native library is stateful and handle-based: a camera is opened by
integer id, controls are numeric, exposures are started and then polled,
and the data pull only succeeds once per exposure.  The wrapper owns
that state machine: it serializes exposure start against double starts,
tracks the capturing flag and start instant so telemetry can be read
from other goroutines mid-exposure, validates every control write
against the capability records before it reaches the device, and tags
each downloaded frame with its provenance.

Use a Driver to enumerate and connect:

	drv := asi.NewDriver(lib, nil, logger)
	cam, info, err := drv.ConnectFirstDevice()

cam is the Imager, owned by one goroutine; info is a shareable
InfoHandle for telemetry and cancellation from anywhere else.
*/
package asi

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/camera"
)

// Vendor is the manufacturer string attached to every descriptor
const Vendor = "ZWO"

// Driver enumerates attached cameras and produces connected handles
type Driver struct {
	lib sdk.Lib
	seq Sequence
	log logrus.FieldLogger
}

// NewDriver returns a driver over the given native library.  seq may be
// nil, in which case frames are numbered by a process-local counter;
// log may be nil for the standard logger.
func NewDriver(lib sdk.Lib, seq Sequence, log logrus.FieldLogger) *Driver {
	if seq == nil {
		seq = &atomicSeq{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Driver{lib: lib, seq: seq, log: log}
}

// AvailableDevices counts the attached cameras without side effects
func (d *Driver) AvailableDevices() int {
	return d.lib.GetNumOfConnectedCameras()
}

// ListDevices scans the attached cameras and returns their descriptors.
// Reading a serial number requires an open handle, so each camera is
// opened transiently and closed again before the next; the scan leaves
// no camera open.
func (d *Driver) ListDevices() ([]camera.Descriptor, error) {
	n := d.lib.GetNumOfConnectedCameras()
	out := make([]camera.Descriptor, 0, n)
	for i := 0; i < n; i++ {
		info, code := d.lib.GetCameraProperty(i)
		if err := call("ASIGetCameraProperty", code, i); err != nil {
			return nil, err
		}
		desc := descriptorFor(info)
		if code := d.lib.OpenCamera(info.CameraID); code == sdk.Success {
			if serial, code := d.lib.GetSerialNumber(info.CameraID); code == sdk.Success {
				desc.Serial = serial.String()
			}
			d.lib.CloseCamera(info.CameraID)
		}
		out = append(out, desc)
	}
	return out, nil
}

// ConnectDevice opens the described camera and returns its capture and
// telemetry facets.  The Imager owns the native handle; closing it
// invalidates the InfoHandle too.
func (d *Driver) ConnectDevice(desc camera.Descriptor) (*Imager, InfoHandle, error) {
	return d.connect(desc.ID)
}

// ConnectFirstDevice connects to the first attached camera
func (d *Driver) ConnectFirstDevice() (*Imager, InfoHandle, error) {
	if d.lib.GetNumOfConnectedCameras() == 0 {
		return nil, InfoHandle{}, ErrInvalidIndex
	}
	info, code := d.lib.GetCameraProperty(0)
	if err := call("ASIGetCameraProperty", code, 0); err != nil {
		return nil, InfoHandle{}, err
	}
	return d.connect(info.CameraID)
}

func (d *Driver) connect(id int) (*Imager, InfoHandle, error) {
	h, err := openHandle(d.lib, id, false, d.log)
	if err != nil {
		return nil, InfoHandle{}, err
	}
	info, code := d.lib.GetCameraPropertyByID(id)
	if err := call("ASIGetCameraPropertyByID", code, id); err != nil {
		h.Close()
		return nil, InfoHandle{}, err
	}
	h.hasCooler = info.IsCoolerCam

	serial := ""
	if s, code := d.lib.GetSerialNumber(id); code == sdk.Success {
		serial = s.String()
	}

	cat, err := buildCatalog(d.lib, id, info)
	if err != nil {
		h.Close()
		return nil, InfoHandle{}, err
	}

	roi, img, err := getROI(d.lib, id)
	if err != nil {
		h.Close()
		return nil, InfoHandle{}, err
	}

	cam := &Imager{
		h:          h,
		lib:        d.lib,
		info:       info,
		serial:     serial,
		cat:        cat,
		shared:     &sharedState{},
		seq:        d.seq,
		log:        d.log,
		hasShutter: info.MechanicalShutter,
		roi:        roi,
		img:        img,
	}
	cam.shutterOpen.Store(true)
	if exp, _, code := d.lib.GetControlValue(id, sdk.CtlExposure); code == sdk.Success {
		cam.exposureUs.Store(exp)
	}

	d.log.WithFields(logrus.Fields{
		"camera": info.Name,
		"id":     id,
		"serial": serial,
	}).Info("connected")

	return cam, InfoHandle{
		h:      h,
		lib:    d.lib,
		name:   info.Name,
		serial: serial,
		cat:    cat,
		shared: cam.shared,
	}, nil
}

// Info derives a fresh telemetry facet from a connected Imager
func (c *Imager) Info() InfoHandle {
	return InfoHandle{
		h:      c.h,
		lib:    c.lib,
		name:   c.info.Name,
		serial: c.serial,
		cat:    c.cat,
		shared: c.shared,
	}
}

func descriptorFor(info sdk.CameraInfo) camera.Descriptor {
	meta := map[string]string{
		"Sensor Width":  strconv.Itoa(info.MaxWidth),
		"Sensor Height": strconv.Itoa(info.MaxHeight),
		"Pixel Size":    fmt.Sprintf("%g um", info.PixelSize),
		"Bit Depth":     strconv.Itoa(info.BitDepth),
		"e-/ADU":        fmt.Sprintf("%g", info.ElecPerADU),
		"Color":         strconv.FormatBool(info.IsColorCam),
		"Shutter":       strconv.FormatBool(info.MechanicalShutter),
		"Cooler":        strconv.FormatBool(info.IsCoolerCam),
		"USB3":          strconv.FormatBool(info.IsUSB3Camera),
		"Trigger":       strconv.FormatBool(info.IsTriggerCam),
	}
	if info.IsColorCam {
		meta["Bayer Pattern"] = info.BayerPattern.String()
	}
	return camera.Descriptor{
		ID:     info.CameraID,
		Name:   info.Name,
		Vendor: Vendor,
		Info:   meta,
	}
}
