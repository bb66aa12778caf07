/*Package sim is a software implementation of the ASICamera2 foreign
surface (sdk.Lib) for development and tests without hardware.

It models the parts of the native library the wrapper cares about: the
open/init/close lifecycle, the control table with capability records,
the snapshot exposure state machine with its poll-based status, and the
one-shot data pull.  Tests can inject failures per native call, script
the exposure status sequence, and inspect the journal of calls made.
*/
package sim

import (
	"sync"
	"time"

	"github.com/opticslab/asicam/asi/sdk"
)

// Call is one journaled native call
type Call struct {
	Op   string
	Args []interface{}
}

// Cam is the mutable state of one simulated camera
type Cam struct {
	Info   sdk.CameraInfo
	Serial sdk.Serial
	GUID   sdk.GUID

	Caps   []sdk.ControlCaps
	values map[sdk.ControlType]int64
	autos  map[sdk.ControlType]bool

	open    bool
	inited  bool
	removed bool

	roiW, roiH, bin int
	img             sdk.ImgType
	posX, posY      int

	expState sdk.ExposureStatus
	expStart time.Time
	expDur   time.Duration

	// script overrides the timing model when non-empty; GetExpStatus
	// pops one entry per call
	script []sdk.ExposureStatus
}

// Sim implements sdk.Lib over a set of simulated cameras
type Sim struct {
	mu       sync.Mutex
	cams     map[int]*Cam
	order    []int
	failures map[string]sdk.Code
	journal  []Call
}

// New builds a simulator with one camera per descriptor.  Each camera
// gets the standard control table sized to its capabilities and its
// ROI initialized to the full sensor in the first supported format.
func New(infos ...sdk.CameraInfo) *Sim {
	s := &Sim{
		cams:     make(map[int]*Cam),
		failures: make(map[string]sdk.Code),
	}
	for _, info := range infos {
		c := &Cam{
			Info:   info,
			values: make(map[sdk.ControlType]int64),
			autos:  make(map[sdk.ControlType]bool),
			roiW:   info.MaxWidth,
			roiH:   info.MaxHeight,
			bin:    1,
		}
		if len(info.SupportedVideoFormats) > 0 {
			c.img = info.SupportedVideoFormats[0]
		}
		for i := range c.Serial {
			c.Serial[i] = byte(info.CameraID + i)
		}
		c.Caps = standardCaps(info)
		for _, caps := range c.Caps {
			c.values[caps.ControlType] = caps.DefaultValue
		}
		s.cams[info.CameraID] = c
		s.order = append(s.order, info.CameraID)
	}
	return s
}

// DefaultInfo is a cooled, shuttered, USB3 mono camera descriptor for
// tests that just need a plausible device
func DefaultInfo(id int) sdk.CameraInfo {
	return sdk.CameraInfo{
		Name:                  "ZWO ASI-SIM Pro",
		CameraID:              id,
		MaxWidth:              1936,
		MaxHeight:             1096,
		SupportedBins:         []int{1, 2},
		SupportedVideoFormats: []sdk.ImgType{sdk.ImgRaw16, sdk.ImgRaw8, sdk.ImgEnd},
		PixelSize:             2.9,
		MechanicalShutter:     true,
		IsCoolerCam:           true,
		IsUSB3Camera:          true,
		IsUSB3Host:            true,
		ElecPerADU:            0.8,
		BitDepth:              12,
	}
}

// ColorInfo is a color variant of DefaultInfo
func ColorInfo(id int) sdk.CameraInfo {
	info := DefaultInfo(id)
	info.Name = "ZWO ASI-SIM Color"
	info.IsColorCam = true
	info.BayerPattern = sdk.BayerRG
	info.MechanicalShutter = false
	return info
}

func standardCaps(info sdk.CameraInfo) []sdk.ControlCaps {
	caps := []sdk.ControlCaps{
		{Name: "Gain", ControlType: sdk.CtlGain, MinValue: 0, MaxValue: 570, DefaultValue: 200, IsWritable: true, IsAutoSupported: true},
		{Name: "Exposure", ControlType: sdk.CtlExposure, MinValue: 32, MaxValue: 2000000000, DefaultValue: 10000, IsWritable: true, IsAutoSupported: true},
		{Name: "Gamma", ControlType: sdk.CtlGamma, MinValue: 40, MaxValue: 80, DefaultValue: 50, IsWritable: true},
		{Name: "Temperature", ControlType: sdk.CtlTemperature, MinValue: -500, MaxValue: 1000, DefaultValue: 215, IsWritable: true},
		{Name: "Flip", ControlType: sdk.CtlFlip, MinValue: 0, MaxValue: 3, DefaultValue: 0, IsWritable: true},
		{Name: "AutoExpMaxGain", ControlType: sdk.CtlAutoMaxGain, MinValue: 0, MaxValue: 570, DefaultValue: 285, IsWritable: true},
		{Name: "AutoExpMaxExpMS", ControlType: sdk.CtlAutoMaxExposure, MinValue: 1, MaxValue: 60000000, DefaultValue: 100000, IsWritable: true},
		{Name: "AutoExpTargetBrightness", ControlType: sdk.CtlAutoTargetBrightness, MinValue: 50, MaxValue: 160, DefaultValue: 100, IsWritable: true},
		{Name: "HighSpeedMode", ControlType: sdk.CtlHighSpeedMode, MinValue: 0, MaxValue: 1, DefaultValue: 0, IsWritable: true},
		// present on real hardware, deliberately unmapped by the wrapper
		{Name: "WB_R", ControlType: sdk.CtlWhiteBalR, MinValue: 1, MaxValue: 99, DefaultValue: 52, IsWritable: true},
		{Name: "BandWidth", ControlType: sdk.CtlBandwidthOverload, MinValue: 40, MaxValue: 100, DefaultValue: 50, IsWritable: true},
	}
	if info.IsCoolerCam {
		caps = append(caps,
			sdk.ControlCaps{Name: "CoolerPowerPerc", ControlType: sdk.CtlCoolerPowerPercent, MinValue: 0, MaxValue: 100, DefaultValue: 0, IsWritable: false},
			sdk.ControlCaps{Name: "TargetTemp", ControlType: sdk.CtlTargetTemperature, MinValue: -40, MaxValue: 30, DefaultValue: 0, IsWritable: true},
			sdk.ControlCaps{Name: "CoolerOn", ControlType: sdk.CtlCoolerOn, MinValue: 0, MaxValue: 1, DefaultValue: 0, IsWritable: true},
			sdk.ControlCaps{Name: "FanOn", ControlType: sdk.CtlFanOn, MinValue: 0, MaxValue: 1, DefaultValue: 0, IsWritable: true})
	}
	return caps
}

// Fail makes every subsequent invocation of the named native call (the
// sdk.Lib method name) return code, until Unfail
func (s *Sim) Fail(op string, code sdk.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = code
}

// Unfail removes an injected failure
func (s *Sim) Unfail(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, op)
}

// ScriptStatus queues exposure statuses; GetExpStatus pops one per call
// until the queue drains, then the timing model resumes
func (s *Sim) ScriptStatus(id int, statuses ...sdk.ExposureStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cams[id]; ok {
		c.script = append(c.script, statuses...)
	}
}

// Remove simulates unplugging the camera
func (s *Sim) Remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cams[id]; ok {
		c.removed = true
	}
}

// Journal returns a copy of the calls made so far
func (s *Sim) Journal() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.journal))
	copy(out, s.journal)
	return out
}

// Ops returns just the call names, in order
func (s *Sim) Ops() []string {
	j := s.Journal()
	out := make([]string, len(j))
	for i, c := range j {
		out[i] = c.Op
	}
	return out
}

// record journals the call and reports any injected failure.  Callers
// hold s.mu.
func (s *Sim) record(op string, args ...interface{}) (sdk.Code, bool) {
	s.journal = append(s.journal, Call{Op: op, Args: args})
	if code, ok := s.failures[op]; ok {
		return code, true
	}
	return sdk.Success, false
}

// lookup resolves an id to a live camera.  Callers hold s.mu.
func (s *Sim) lookup(id int) (*Cam, sdk.Code) {
	c, ok := s.cams[id]
	if !ok {
		return nil, sdk.ErrInvalidID
	}
	if c.removed {
		return nil, sdk.ErrCameraRemoved
	}
	return c, sdk.Success
}

// GetNumOfConnectedCameras implements sdk.Lib
func (s *Sim) GetNumOfConnectedCameras() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.order {
		if !s.cams[id].removed {
			n++
		}
	}
	return n
}

// GetCameraProperty implements sdk.Lib
func (s *Sim) GetCameraProperty(index int) (sdk.CameraInfo, sdk.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("GetCameraProperty", index); ok {
		return sdk.CameraInfo{}, code
	}
	if index < 0 || index >= len(s.order) {
		return sdk.CameraInfo{}, sdk.ErrInvalidIndex
	}
	return s.cams[s.order[index]].Info, sdk.Success
}

// GetCameraPropertyByID implements sdk.Lib
func (s *Sim) GetCameraPropertyByID(id int) (sdk.CameraInfo, sdk.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("GetCameraPropertyByID", id); ok {
		return sdk.CameraInfo{}, code
	}
	c, code := s.lookup(id)
	if code != sdk.Success {
		return sdk.CameraInfo{}, code
	}
	if !c.open {
		return sdk.CameraInfo{}, sdk.ErrCameraClosed
	}
	return c.Info, sdk.Success
}

// OpenCamera implements sdk.Lib
func (s *Sim) OpenCamera(id int) sdk.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("OpenCamera", id); ok {
		return code
	}
	c, code := s.lookup(id)
	if code != sdk.Success {
		return code
	}
	c.open = true
	return sdk.Success
}

// InitCamera implements sdk.Lib
func (s *Sim) InitCamera(id int) sdk.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("InitCamera", id); ok {
		return code
	}
	c, code := s.lookup(id)
	if code != sdk.Success {
		return code
	}
	if !c.open {
		return sdk.ErrCameraClosed
	}
	c.inited = true
	return sdk.Success
}

// CloseCamera implements sdk.Lib
func (s *Sim) CloseCamera(id int) sdk.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("CloseCamera", id); ok {
		return code
	}
	c, code := s.lookup(id)
	if code != sdk.Success {
		return code
	}
	c.open = false
	c.inited = false
	c.expState = sdk.ExpIdle
	return sdk.Success
}

// live resolves an id to an open, initialized camera.  Callers hold
// s.mu.
func (s *Sim) live(id int) (*Cam, sdk.Code) {
	c, code := s.lookup(id)
	if code != sdk.Success {
		return nil, code
	}
	if !c.open {
		return nil, sdk.ErrCameraClosed
	}
	return c, sdk.Success
}

// GetNumOfControls implements sdk.Lib
func (s *Sim) GetNumOfControls(id int) (int, sdk.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("GetNumOfControls", id); ok {
		return 0, code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return 0, code
	}
	return len(c.Caps), sdk.Success
}

// GetControlCaps implements sdk.Lib
func (s *Sim) GetControlCaps(id int, index int) (sdk.ControlCaps, sdk.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("GetControlCaps", id, index); ok {
		return sdk.ControlCaps{}, code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return sdk.ControlCaps{}, code
	}
	if index < 0 || index >= len(c.Caps) {
		return sdk.ControlCaps{}, sdk.ErrInvalidIndex
	}
	return c.Caps[index], sdk.Success
}

func (c *Cam) caps(ctl sdk.ControlType) (sdk.ControlCaps, bool) {
	for _, caps := range c.Caps {
		if caps.ControlType == ctl {
			return caps, true
		}
	}
	return sdk.ControlCaps{}, false
}

// GetControlValue implements sdk.Lib.  Temperature tracks the TEC
// setpoint when cooling is enabled, and cooler power rises with the
// demanded drop.
func (s *Sim) GetControlValue(id int, ctl sdk.ControlType) (int64, bool, sdk.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("GetControlValue", id, ctl); ok {
		return 0, false, code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return 0, false, code
	}
	if _, ok := c.caps(ctl); !ok {
		return 0, false, sdk.ErrInvalidControlType
	}
	switch ctl {
	case sdk.CtlTemperature:
		if c.values[sdk.CtlCoolerOn] != 0 {
			return c.values[sdk.CtlTargetTemperature] * 10, false, sdk.Success
		}
	case sdk.CtlCoolerPowerPercent:
		if c.values[sdk.CtlCoolerOn] != 0 {
			demand := c.values[sdk.CtlTemperature]/10 - c.values[sdk.CtlTargetTemperature]
			if demand < 0 {
				demand = 0
			}
			if demand > 100 {
				demand = 100
			}
			return demand, false, sdk.Success
		}
		return 0, false, sdk.Success
	}
	return c.values[ctl], c.autos[ctl], sdk.Success
}

// SetControlValue implements sdk.Lib
func (s *Sim) SetControlValue(id int, ctl sdk.ControlType, value int64, auto bool) sdk.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("SetControlValue", id, ctl, value, auto); ok {
		return code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return code
	}
	caps, ok := c.caps(ctl)
	if !ok {
		return sdk.ErrInvalidControlType
	}
	if !caps.IsWritable {
		return sdk.ErrGeneralError
	}
	if value < caps.MinValue || value > caps.MaxValue {
		return sdk.ErrGeneralError
	}
	c.values[ctl] = value
	c.autos[ctl] = auto
	return sdk.Success
}

// GetROIFormat implements sdk.Lib
func (s *Sim) GetROIFormat(id int) (int, int, int, sdk.ImgType, sdk.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("GetROIFormat", id); ok {
		return 0, 0, 0, sdk.ImgRaw8, code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return 0, 0, 0, sdk.ImgRaw8, code
	}
	return c.roiW, c.roiH, c.bin, c.img, sdk.Success
}

// SetROIFormat implements sdk.Lib
func (s *Sim) SetROIFormat(id int, width, height, bin int, img sdk.ImgType) sdk.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("SetROIFormat", id, width, height, bin, img); ok {
		return code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return code
	}
	if c.expState == sdk.ExpWorking {
		return sdk.ErrExposureInProgress
	}
	if width <= 0 || height <= 0 || width%8 != 0 || height%2 != 0 {
		return sdk.ErrInvalidSize
	}
	if width*bin > c.Info.MaxWidth || height*bin > c.Info.MaxHeight {
		return sdk.ErrInvalidSize
	}
	supported := false
	for _, f := range c.Info.SupportedVideoFormats {
		if f == img {
			supported = true
		}
	}
	if !supported {
		return sdk.ErrInvalidImgType
	}
	c.roiW, c.roiH, c.bin, c.img = width, height, bin, img
	return sdk.Success
}

// GetStartPos implements sdk.Lib
func (s *Sim) GetStartPos(id int) (int, int, sdk.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("GetStartPos", id); ok {
		return 0, 0, code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return 0, 0, code
	}
	return c.posX, c.posY, sdk.Success
}

// SetStartPos implements sdk.Lib
func (s *Sim) SetStartPos(id int, x, y int) sdk.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("SetStartPos", id, x, y); ok {
		return code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return code
	}
	if x < 0 || y < 0 || (x+c.roiW)*c.bin > c.Info.MaxWidth || (y+c.roiH)*c.bin > c.Info.MaxHeight {
		return sdk.ErrOutOfBoundary
	}
	c.posX, c.posY = x, y
	return sdk.Success
}

// StartExposure implements sdk.Lib
func (s *Sim) StartExposure(id int, dark bool) sdk.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("StartExposure", id, dark); ok {
		return code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return code
	}
	if c.expState == sdk.ExpWorking {
		return sdk.ErrExposureInProgress
	}
	c.expState = sdk.ExpWorking
	c.expStart = time.Now()
	c.expDur = time.Duration(c.values[sdk.CtlExposure]) * time.Microsecond
	return sdk.Success
}

// StopExposure implements sdk.Lib
func (s *Sim) StopExposure(id int) sdk.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("StopExposure", id); ok {
		return code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return code
	}
	c.expState = sdk.ExpIdle
	return sdk.Success
}

// GetExpStatus implements sdk.Lib
func (s *Sim) GetExpStatus(id int) (sdk.ExposureStatus, sdk.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("GetExpStatus", id); ok {
		return sdk.ExpIdle, code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return sdk.ExpIdle, code
	}
	if len(c.script) > 0 {
		st := c.script[0]
		c.script = c.script[1:]
		c.expState = st
		return st, sdk.Success
	}
	if c.expState == sdk.ExpWorking && time.Since(c.expStart) >= c.expDur {
		c.expState = sdk.ExpSuccess
	}
	return c.expState, sdk.Success
}

// GetDataAfterExp implements sdk.Lib.  The frame is a deterministic
// ramp so tests can assert on content.
func (s *Sim) GetDataAfterExp(id int, buf []byte) sdk.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("GetDataAfterExp", id, len(buf)); ok {
		return code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return code
	}
	if c.expState != sdk.ExpSuccess {
		return sdk.ErrInvalidSequence
	}
	need := c.roiW * c.roiH * bytesPer(c.img)
	if len(buf) < need {
		return sdk.ErrBufferTooSmall
	}
	for i := 0; i < need; i++ {
		buf[i] = byte(i)
	}
	c.expState = sdk.ExpIdle
	return sdk.Success
}

func bytesPer(img sdk.ImgType) int {
	switch img {
	case sdk.ImgRaw16:
		return 2
	case sdk.ImgRGB24:
		return 3
	}
	return 1
}

// GetSerialNumber implements sdk.Lib
func (s *Sim) GetSerialNumber(id int) (sdk.Serial, sdk.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("GetSerialNumber", id); ok {
		return sdk.Serial{}, code
	}
	c, code := s.lookup(id)
	if code != sdk.Success {
		return sdk.Serial{}, code
	}
	if !c.open {
		return sdk.Serial{}, sdk.ErrCameraClosed
	}
	return c.Serial, sdk.Success
}

// GetID implements sdk.Lib
func (s *Sim) GetID(id int) (sdk.GUID, sdk.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("GetID", id); ok {
		return sdk.GUID{}, code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return sdk.GUID{}, code
	}
	if !c.Info.IsUSB3Camera {
		return sdk.GUID{}, sdk.ErrGeneralError
	}
	return c.GUID, sdk.Success
}

// SetID implements sdk.Lib
func (s *Sim) SetID(id int, to sdk.GUID) sdk.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.record("SetID", id, to); ok {
		return code
	}
	c, code := s.live(id)
	if code != sdk.Success {
		return code
	}
	if !c.Info.IsUSB3Camera {
		return sdk.ErrGeneralError
	}
	c.GUID = to
	return sdk.Success
}
