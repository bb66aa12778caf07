package asi

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/sirupsen/logrus"

	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/camera"
	"github.com/opticslab/asicam/util"
)

// Sequence hands out image serial numbers.  It is injected at
// construction so applications can persist numbering and tests can
// supply a deterministic counter.
type Sequence interface {
	Next() int
}

type atomicSeq struct {
	n atomic.Int64
}

func (s *atomicSeq) Next() int {
	return int(s.n.Add(1))
}

// sharedState is the slice of capture state genuinely shared between an
// Imager and its Info handles: the capturing flag and the exposure
// start instant.  Everything else in the capture state is owned by the
// Imager alone.
//
// Ordering contract: start is committed before capturing flips true and
// cleared only after capturing flips back false, so a concurrent reader
// never observes capturing with a stale start.  Readers that lose the
// race anyway (startWhen returning false) degrade to reporting the
// exposure as not started rather than panicking.
type sharedState struct {
	capturing atomic.Bool

	mu    sync.RWMutex
	start time.Time
}

// begin runs fn inside the exposure-start critical section.  The check
// of the capturing flag and its eventual set are atomic with respect to
// other starters; the start instant is in place before the flag flips.
func (s *sharedState) begin(fn func(now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capturing.Load() {
		return camera.ErrExposureInProgress
	}
	now := time.Now()
	s.start = now
	if err := fn(now); err != nil {
		s.start = time.Time{}
		return err
	}
	s.capturing.Store(true)
	return nil
}

// end resolves the exposure: flag first, then the start instant
func (s *sharedState) end() {
	s.capturing.Store(false)
	s.mu.Lock()
	s.start = time.Time{}
	s.mu.Unlock()
}

// startWhen reads the start instant; ok is false when none is recorded
func (s *sharedState) startWhen() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.start, !s.start.IsZero()
}

// lastExposure is the bookkeeping snapshot taken when an exposure
// starts, consumed exactly once when its download resolves
type lastExposure struct {
	stamp    time.Time
	exposure time.Duration
	dark     bool
	gain     int64
}

// Imager is the capture engine for one camera.  A single goroutine is
// expected to own it; concurrent telemetry goes through InfoHandle.
type Imager struct {
	h      *deviceHandle
	lib    sdk.Lib
	info   sdk.CameraInfo
	serial string
	cat    *catalog
	shared *sharedState
	seq    Sequence
	log    logrus.FieldLogger

	// hasShutter gates the dark-frame logic; without a mechanical
	// shutter frames are always Light unless explicitly overridden
	hasShutter  bool
	shutterOpen atomic.Bool

	// exposureUs caches the exposure control, microseconds
	exposureUs atomic.Int64

	// gain cache, requeried lazily after invalidation
	gainKnown bool
	gainCache int64

	// current readout geometry, mutated only at rest
	roi camera.ROI
	img sdk.ImgType

	last *lastExposure
}

// CameraName returns the vendor display name
func (c *Imager) CameraName() string {
	return c.info.Name
}

// Serial returns the factory serial number in hex
func (c *Imager) Serial() string {
	return c.serial
}

// IsCapturing is true between a successful StartExposure and its
// resolution by download, cancel, or failure
func (c *Imager) IsCapturing() bool {
	return c.shared.capturing.Load()
}

// Close tears down the device.  After Close every operation fails with
// ErrCameraClosed.  InfoHandles derived from this Imager go dead too;
// the Imager is the sole owner of the native handle.
func (c *Imager) Close() error {
	return c.h.Close()
}

// StartExposure begins integrating a frame.  The exposure bookkeeping
// snapshot (timestamp, duration, dark flag, gain) is recorded before
// the native call so a successful start is always fully described.
func (c *Imager) StartExposure() error {
	dark := c.hasShutter && !c.shutterOpen.Load()
	gain := c.snapGain()
	exp := time.Duration(c.exposureUs.Load()) * time.Microsecond
	return c.shared.begin(func(now time.Time) error {
		c.last = &lastExposure{stamp: now, exposure: exp, dark: dark, gain: gain}
		err := call("ASIStartExposure", c.lib.StartExposure(c.h.handle(), dark), c.h.handle(), dark)
		if err != nil {
			c.last = nil
			return err
		}
		return nil
	})
}

// ImageReady polls whether a frame is waiting to be downloaded.  When no
// exposure is in flight it reports false without touching the device.
func (c *Imager) ImageReady() (bool, error) {
	return imageReady(c.h, c.shared)
}

// CameraState reads the exposure machine
func (c *Imager) CameraState() (camera.State, error) {
	return readCameraState(c.h, c.shared)
}

// CancelCapture aborts the in-flight exposure, if any
func (c *Imager) CancelCapture() error {
	return cancelCapture(c.h, c.shared)
}

// DownloadImage pulls the frame for a finished exposure and tags it
// with its provenance metadata.  Once the data pull has been issued the
// device no longer holds a valid frame, so the capturing flag resolves
// regardless of the pull's outcome.
func (c *Imager) DownloadImage() (*camera.Image, error) {
	if !c.shared.capturing.Load() {
		return nil, camera.ErrExposureNotStarted
	}
	st, err := c.h.exposureStatus()
	if err != nil {
		return nil, err
	}
	switch st {
	case sdk.ExpWorking:
		// still integrating, the caller polls and retries
		return nil, camera.ErrExposureInProgress
	case sdk.ExpFailed:
		c.shared.end()
		return nil, &camera.ExposureFailedError{Reason: "device reported failure"}
	case sdk.ExpIdle:
		// the start silently did not take on the device
		c.shared.end()
		c.last = nil
		return nil, camera.ErrExposureNotStarted
	}

	// success: consume the bookkeeping exactly once
	snap := c.last
	c.last = nil
	if snap == nil {
		c.shared.end()
		return nil, camera.ErrAccessViolation
	}
	fmtPx, _ := formatFromImgType(c.img)
	buf := make([]byte, c.roi.Width*c.roi.Height*fmtPx.BytesPerPixel())
	code := c.lib.GetDataAfterExp(c.h.handle(), buf)
	c.shared.end()
	if err := call("ASIGetDataAfterExp", code, c.h.handle(), len(buf)); err != nil {
		return nil, err
	}

	img := &camera.Image{
		Timestamp: snap.stamp,
		Width:     c.roi.Width,
		Height:    c.roi.Height,
		Format:    fmtPx,
	}
	switch fmtPx.Bpp() {
	case 16:
		px := make([]uint16, len(buf)/2)
		for idx := 0; idx < len(px); idx++ {
			px[idx] = uint16(buf[2*idx]) | uint16(buf[2*idx+1])<<8
		}
		img.Pix16 = px
	default:
		img.Pix8 = buf
	}
	if c.info.IsColorCam && (fmtPx == camera.Raw8 || fmtPx == camera.Raw16) {
		img.Bayer = c.info.BayerPattern.String()
	}
	img.Meta = c.collectHeaderMetadata(snap)
	return img, nil
}

// collectHeaderMetadata assembles the FITS provenance header for a
// downloaded frame
func (c *Imager) collectHeaderMetadata(snap *lastExposure) []fitsio.Card {
	imgtyp := "Light"
	if snap.dark {
		imgtyp = "Dark"
	}
	cards := []fitsio.Card{
		{Name: "IMGSER", Value: c.seq.Next(), Comment: "frame serial number"},
		{Name: "EXPOSURE", Value: snap.exposure.String(), Comment: "exposure time"},
		{Name: "EXPTIME", Value: snap.exposure.Seconds(), Comment: "exposure time, seconds"},
		{Name: "IMAGETYP", Value: imgtyp, Comment: "frame type"},
		{Name: "GAIN", Value: int(snap.gain), Comment: "analog gain, cB"},
		{Name: "XOFFSET", Value: c.roi.X, Comment: "left pixel of the window"},
		{Name: "YOFFSET", Value: c.roi.Y, Comment: "top pixel of the window"},
		{Name: "XBINNING", Value: c.roi.BinX, Comment: "horizontal binning"},
		{Name: "YBINNING", Value: c.roi.BinY, Comment: "vertical binning"},
		{Name: "INSTRUME", Value: c.info.Name, Comment: "camera model"},
		{Name: "SERIAL", Value: c.serial, Comment: "camera serial number"},
	}
	if t, ok := c.readTemperature(); ok {
		cards = append(cards, fitsio.Card{Name: "CCD-TEMP", Value: t, Comment: "sensor temperature at readout, C"})
	}
	if c.info.IsColorCam {
		cards = append(cards,
			fitsio.Card{Name: "BAYERPAT", Value: c.info.BayerPattern.String(), Comment: "color filter layout"},
			fitsio.Card{Name: "XBAYROFF", Value: c.roi.X % 2, Comment: "Bayer X phase"},
			fitsio.Card{Name: "YBAYROFF", Value: c.roi.Y % 2, Comment: "Bayer Y phase"})
	}
	return cards
}

func (c *Imager) readTemperature() (float64, bool) {
	v, _, code := c.lib.GetControlValue(c.h.handle(), sdk.CtlTemperature)
	if code != sdk.Success {
		return 0, false
	}
	return float64(v) / 10, true
}

// snapGain returns the last known gain, requerying the device when the
// cache has been invalidated.  Failures degrade to zero; the value only
// feeds metadata.
func (c *Imager) snapGain() int64 {
	if c.gainKnown {
		return c.gainCache
	}
	v, _, code := c.lib.GetControlValue(c.h.handle(), sdk.CtlGain)
	if code != sdk.Success {
		return 0
	}
	c.gainCache = v
	c.gainKnown = true
	return v
}

// GetROI retrieves the current readout window
func (c *Imager) GetROI() (camera.ROI, error) {
	return c.roi, nil
}

// SetROI changes the readout window.  Geometry changes are only valid
// at rest.
func (c *Imager) SetROI(roi camera.ROI) error {
	if c.shared.capturing.Load() {
		return camera.ErrExposureInProgress
	}
	if roi.BinY != 0 && roi.BinY != roi.BinX {
		return &camera.PropertyError{Kind: fmt.Sprintf("asymmetric binning %dx%d not supported", roi.BinX, roi.BinY)}
	}
	if err := setROI(c.lib, c.h.handle(), roi, c.img); err != nil {
		return err
	}
	if roi.BinX < 1 {
		roi.BinX = 1
	}
	roi.BinY = roi.BinX
	c.roi = roi
	return nil
}

// ListProperties enumerates every control on the camera, device-level
// and sensor-level alike
func (c *Imager) ListProperties() map[camera.Control]camera.Property {
	out := make(map[camera.Control]camera.Property, len(c.cat.device)+len(c.cat.sensor))
	for k, v := range c.cat.device {
		out[k] = v.prop
	}
	for k, v := range c.cat.sensor {
		out[k] = v.prop
	}
	return out
}

// GetProperty reads a control's value and auto flag
func (c *Imager) GetProperty(ctl camera.Control) (camera.Value, bool, error) {
	e, ok := c.cat.lookup(ctl)
	if !ok {
		return camera.Value{}, false, camera.ErrInvalidControlType
	}
	switch ctl.Kind {
	case camera.KindShutterMode:
		return camera.BoolV(c.shutterOpen.Load()), false, nil
	case camera.KindPixelFormat:
		pf, _ := formatFromImgType(c.img)
		return camera.FmtV(pf), false, nil
	}
	return getControl(c.lib, c.h.handle(), ctl, e)
}

// SetProperty validates and writes a control.  Gain, gamma, and format
// changes are refused while an exposure is in flight.
func (c *Imager) SetProperty(ctl camera.Control, v camera.Value, auto bool) error {
	e, ok := c.cat.lookup(ctl)
	if !ok {
		return camera.ErrInvalidControlType
	}
	if err := validateWrite(ctl, e, v); err != nil {
		return err
	}
	switch ctl.Kind {
	case camera.KindGain, camera.KindGamma, camera.KindPixelFormat:
		if c.shared.capturing.Load() {
			return camera.ErrExposureInProgress
		}
	}
	switch ctl.Kind {
	case camera.KindShutterMode:
		c.shutterOpen.Store(v.Bool)
		return nil
	case camera.KindPixelFormat:
		img := imgTypeFromFormat(v.Format)
		err := call("ASISetROIFormat", c.lib.SetROIFormat(c.h.handle(), c.roi.Width, c.roi.Height, c.roi.BinX, img),
			c.h.handle(), c.roi.Width, c.roi.Height, c.roi.BinX, img)
		if err != nil {
			return err
		}
		c.img = img
		return nil
	}
	if err := setControl(c.lib, c.h.handle(), ctl, e, v, auto); err != nil {
		return err
	}
	switch ctl.Kind {
	case camera.KindGain:
		// the firmware may round or clamp, requery before trusting it
		c.gainKnown = false
	case camera.KindExposureTime:
		c.exposureUs.Store(int64(v.Dur / time.Microsecond))
	}
	return nil
}

// Configure applies many controls in one call, collecting the failures
// rather than stopping at the first
func (c *Imager) Configure(settings map[camera.Control]camera.Value) error {
	var errs []error
	for ctl, v := range settings {
		errs = append(errs, c.SetProperty(ctl, v, false))
	}
	return util.MergeErrors(errs)
}

// GetExposureTime returns the cached exposure time
func (c *Imager) GetExposureTime() (time.Duration, error) {
	return time.Duration(c.exposureUs.Load()) * time.Microsecond, nil
}

// SetExposureTime sets the exposure control
func (c *Imager) SetExposureTime(d time.Duration) error {
	return c.SetProperty(camera.Cnt(camera.KindExposureTime), camera.DurV(d), false)
}

// imageReady and readCameraState implement the shared status read used
// by both facets.  A Failed or Idle report from the device while our
// flag is up resolves the exposure: Failed is a failed integration,
// Idle means the start silently never took effect, a hardware quirk
// that must be surfaced rather than spun on.
func imageReady(h *deviceHandle, s *sharedState) (bool, error) {
	if !s.capturing.Load() {
		return false, nil
	}
	st, err := h.exposureStatus()
	if err != nil {
		return false, err
	}
	switch st {
	case sdk.ExpSuccess:
		return true, nil
	case sdk.ExpWorking:
		return false, nil
	case sdk.ExpFailed:
		s.end()
		return false, &camera.ExposureFailedError{Reason: "device reported failure"}
	}
	s.end()
	return false, camera.ErrExposureNotStarted
}

func readCameraState(h *deviceHandle, s *sharedState) (camera.State, error) {
	if !s.capturing.Load() {
		return camera.State{Kind: camera.Idle}, nil
	}
	st, err := h.exposureStatus()
	if err != nil {
		return camera.State{}, err
	}
	switch st {
	case sdk.ExpWorking:
		begin, ok := s.startWhen()
		if !ok {
			// lost the race with a concurrent start; report not
			// started instead of a bogus elapsed time
			return camera.State{Kind: camera.Errored, Err: camera.ErrExposureNotStarted}, nil
		}
		return camera.State{Kind: camera.Exposing, Elapsed: time.Since(begin)}, nil
	case sdk.ExpSuccess:
		return camera.State{Kind: camera.ExposureFinished}, nil
	case sdk.ExpFailed:
		s.end()
		return camera.State{Kind: camera.Errored, Err: &camera.ExposureFailedError{Reason: "device reported failure"}}, nil
	}
	s.end()
	return camera.State{Kind: camera.Errored, Err: camera.ErrExposureNotStarted}, nil
}

func cancelCapture(h *deviceHandle, s *sharedState) error {
	err := call("ASIStopExposure", h.lib.StopExposure(h.handle()), h.handle())
	if err != nil {
		return err
	}
	s.end()
	return nil
}
