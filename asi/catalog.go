package asi

import (
	"errors"
	"time"

	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/camera"
)

// entry binds a generic control to its native backing.  Synthetic
// entries (pixel format, shutter, UUID) have native == -1 and are
// dispatched specially by the property layer; ReverseX/ReverseY are
// synthetic but backed by the native flip control.
type entry struct {
	native sdk.ControlType
	prop   camera.Property
}

const noNative sdk.ControlType = -1

// catalog is the full control map split into the device-facing and
// sensor-facing halves.  Built once at open; read-only afterward.  The
// two halves partition the key space: every control appears in exactly
// one of them.
type catalog struct {
	device map[camera.Control]entry
	sensor map[camera.Control]entry
}

func (c *catalog) lookup(ctl camera.Control) (entry, bool) {
	if e, ok := c.device[ctl]; ok {
		return e, true
	}
	e, ok := c.sensor[ctl]
	return e, ok
}

func (c *catalog) insert(ctl camera.Control, e entry) {
	if ctl.DeviceLevel() {
		c.device[ctl] = e
	} else {
		c.sensor[ctl] = e
	}
}

// mapControlCaps converts one native capability record to a generic
// control and property.  The bool is false for native controls with no
// generic equivalent, which are dropped silently so unknown vendor
// controls on newer cameras do not break enumeration.
func mapControlCaps(caps sdk.ControlCaps) (camera.Control, camera.Property, bool) {
	ro := !caps.IsWritable
	auto := caps.IsAutoSupported
	intProp := func() camera.Property {
		return camera.Property{
			Type:     camera.PropInt,
			Min:      camera.IntV(caps.MinValue),
			Max:      camera.IntV(caps.MaxValue),
			Step:     camera.IntV(1),
			Default:  camera.IntV(caps.DefaultValue),
			Auto:     auto,
			ReadOnly: ro,
		}
	}
	durProp := func() camera.Property {
		return camera.Property{
			Type:     camera.PropDuration,
			Min:      camera.DurV(time.Duration(caps.MinValue) * time.Microsecond),
			Max:      camera.DurV(time.Duration(caps.MaxValue) * time.Microsecond),
			Step:     camera.DurV(time.Microsecond),
			Default:  camera.DurV(time.Duration(caps.DefaultValue) * time.Microsecond),
			Auto:     auto,
			ReadOnly: ro,
		}
	}
	boolProp := func() camera.Property {
		return camera.Property{
			Type:     camera.PropBool,
			Default:  camera.BoolV(caps.DefaultValue != 0),
			Auto:     auto,
			ReadOnly: ro,
		}
	}
	switch caps.ControlType {
	case sdk.CtlGain:
		return camera.Cnt(camera.KindGain), intProp(), true
	case sdk.CtlGamma:
		return camera.Cnt(camera.KindGamma), intProp(), true
	case sdk.CtlExposure:
		return camera.Cnt(camera.KindExposureTime), durProp(), true
	case sdk.CtlAutoMaxExposure:
		return camera.Cnt(camera.KindAutoExposureMax), durProp(), true
	case sdk.CtlAutoTargetBrightness:
		return camera.Cnt(camera.KindAutoExposureTarget), intProp(), true
	case sdk.CtlAutoMaxGain:
		return camera.Cnt(camera.KindAutoMaxGain), intProp(), true
	case sdk.CtlTemperature:
		// native unit is tenths of a degree
		return camera.Cnt(camera.KindTemperature), camera.Property{
			Type:     camera.PropFloat,
			Min:      camera.FloatV(float64(caps.MinValue) / 10),
			Max:      camera.FloatV(float64(caps.MaxValue) / 10),
			Step:     camera.FloatV(0.1),
			Default:  camera.FloatV(float64(caps.DefaultValue) / 10),
			Auto:     auto,
			ReadOnly: ro,
		}, true
	case sdk.CtlCoolerPowerPercent:
		return camera.Cnt(camera.KindCoolerPower), intProp(), true
	case sdk.CtlTargetTemperature:
		// the setpoint is in whole degrees, unlike the sensor readback
		return camera.Cnt(camera.KindCoolerTemp), intProp(), true
	case sdk.CtlCoolerOn:
		return camera.Cnt(camera.KindCoolerEnable), boolProp(), true
	case sdk.CtlFanOn:
		return camera.Cnt(camera.KindFanEnable), boolProp(), true
	case sdk.CtlHighSpeedMode:
		return camera.Cnt(camera.KindHighSpeedMode), boolProp(), true
	}
	return camera.Control{}, camera.Property{}, false
}

// buildCatalog enumerates the device's capability records and assembles
// the control catalog, including the synthetic entries that have no
// native capability record.  Enumeration is best-effort per record:
// only CameraClosed and invalid-id failures abort the build.
func buildCatalog(lib sdk.Lib, id int, info sdk.CameraInfo) (*catalog, error) {
	cat := &catalog{
		device: make(map[camera.Control]entry),
		sensor: make(map[camera.Control]entry),
	}
	n, code := lib.GetNumOfControls(id)
	if err := call("ASIGetNumOfControls", code, id); err != nil {
		return nil, err
	}
	var flip *sdk.ControlCaps
	for i := 0; i < n; i++ {
		caps, code := lib.GetControlCaps(id, i)
		if err := call("ASIGetControlCaps", code, id, i); err != nil {
			if fatalEnumErr(err) {
				return nil, err
			}
			continue
		}
		if caps.ControlType == sdk.CtlFlip {
			c := caps
			flip = &c
			continue
		}
		ctl, prop, ok := mapControlCaps(caps)
		if !ok {
			continue
		}
		cat.insert(ctl, entry{native: caps.ControlType, prop: prop})
	}

	// flip decomposes into two booleans over the one native control
	if flip != nil {
		def := sdk.FlipStatus(flip.DefaultValue)
		rx := camera.Property{
			Type:    camera.PropBool,
			Default: camera.BoolV(def == sdk.FlipHoriz || def == sdk.FlipBoth),
		}
		ry := camera.Property{
			Type:    camera.PropBool,
			Default: camera.BoolV(def == sdk.FlipVert || def == sdk.FlipBoth),
		}
		cat.insert(camera.Cnt(camera.KindReverseX), entry{native: sdk.CtlFlip, prop: rx})
		cat.insert(camera.Cnt(camera.KindReverseY), entry{native: sdk.CtlFlip, prop: ry})
	}

	// pixel format comes from the supported video format list, first
	// entry is the vendor default
	variants := make([]camera.Value, 0, len(info.SupportedVideoFormats))
	for _, vf := range info.SupportedVideoFormats {
		if vf == sdk.ImgEnd {
			break
		}
		if pf, ok := formatFromImgType(vf); ok {
			variants = append(variants, camera.FmtV(pf))
		}
	}
	if len(variants) > 0 {
		cat.insert(camera.Cnt(camera.KindPixelFormat), entry{
			native: noNative,
			prop: camera.Property{
				Type:     camera.PropPixelFormat,
				Default:  variants[0],
				Variants: variants,
			},
		})
	}

	// a mechanical shutter is tracked as a local boolean; there is no
	// native control for it, the dark flag on exposure start is the
	// only way it reaches the device
	if info.MechanicalShutter {
		cat.insert(camera.Cnt(camera.KindShutterMode), entry{
			native: noNative,
			prop: camera.Property{
				Type:    camera.PropBool,
				Default: camera.BoolV(true),
			},
		})
	}

	// USB3 cameras carry a user-settable identifier
	if info.IsUSB3Camera {
		def := camera.StrV("")
		if guid, code := lib.GetID(id); code == sdk.Success {
			def = camera.StrV(guid.String())
		}
		cat.insert(camera.Custom("UUID"), entry{
			native: noNative,
			prop: camera.Property{
				Type:    camera.PropEnumStr,
				Default: def,
			},
		})
	}
	return cat, nil
}

func fatalEnumErr(err error) bool {
	var inv *camera.InvalidIDError
	return errors.Is(err, camera.ErrCameraClosed) || errors.As(err, &inv)
}

func formatFromImgType(t sdk.ImgType) (camera.PixelFormat, bool) {
	switch t {
	case sdk.ImgRaw8:
		return camera.Raw8, true
	case sdk.ImgRGB24:
		return camera.RGB24, true
	case sdk.ImgRaw16:
		return camera.Raw16, true
	case sdk.ImgY8:
		return camera.Y8, true
	}
	return camera.Raw8, false
}

func imgTypeFromFormat(f camera.PixelFormat) sdk.ImgType {
	switch f {
	case camera.RGB24:
		return sdk.ImgRGB24
	case camera.Raw16:
		return sdk.ImgRaw16
	case camera.Y8:
		return sdk.ImgY8
	}
	return sdk.ImgRaw8
}
