package asi

import (
	"encoding/hex"
	"time"

	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/camera"
)

// validateWrite rejects a value before it can reach the native layer:
// read-only controls, auto mode on controls without it, and values
// outside the declared range or variant set all fail here.
func validateWrite(ctl camera.Control, e entry, v camera.Value) error {
	if e.prop.ReadOnly {
		return &camera.PropertyError{Control: ctl, Kind: "control is read-only"}
	}
	if err := e.prop.Validate(v); err != nil {
		if pe, ok := err.(*camera.PropertyError); ok {
			pe.Control = ctl
		}
		return err
	}
	return nil
}

// getControl reads a native-backed control, applying the unit scaling
// the catalog declared: tenths of a degree for the sensor temperature,
// microseconds for durations
func getControl(lib sdk.Lib, id int, ctl camera.Control, e entry) (camera.Value, bool, error) {
	switch ctl.Kind {
	case camera.KindReverseX, camera.KindReverseY:
		v, _, code := lib.GetControlValue(id, sdk.CtlFlip)
		if err := call("ASIGetControlValue", code, id, sdk.CtlFlip); err != nil {
			return camera.Value{}, false, err
		}
		flip := sdk.FlipStatus(v)
		if ctl.Kind == camera.KindReverseX {
			return camera.BoolV(flip == sdk.FlipHoriz || flip == sdk.FlipBoth), false, nil
		}
		return camera.BoolV(flip == sdk.FlipVert || flip == sdk.FlipBoth), false, nil
	case camera.KindCustom:
		guid, code := lib.GetID(id)
		if err := call("ASIGetID", code, id); err != nil {
			return camera.Value{}, false, err
		}
		return camera.StrV(guid.String()), false, nil
	}

	raw, auto, code := lib.GetControlValue(id, e.native)
	if err := call("ASIGetControlValue", code, id, e.native); err != nil {
		return camera.Value{}, false, err
	}
	switch e.prop.Type {
	case camera.PropFloat:
		return camera.FloatV(float64(raw) / 10), auto, nil
	case camera.PropDuration:
		return camera.DurV(time.Duration(raw) * time.Microsecond), auto, nil
	case camera.PropBool:
		return camera.BoolV(raw != 0), auto, nil
	}
	return camera.IntV(raw), auto, nil
}

// setControl writes a native-backed control, applying the inverse unit
// scaling.  The value must already be validated.
func setControl(lib sdk.Lib, id int, ctl camera.Control, e entry, v camera.Value, auto bool) error {
	if auto && !e.prop.Auto {
		return &camera.PropertyError{Control: ctl, Kind: "auto mode not supported"}
	}
	switch ctl.Kind {
	case camera.KindReverseX, camera.KindReverseY:
		return setFlip(lib, id, ctl.Kind, v.Bool)
	case camera.KindCustom:
		var guid sdk.GUID
		b, err := hex.DecodeString(v.Str)
		if err != nil || len(b) != len(guid) {
			return &camera.PropertyError{Control: ctl, Kind: "identifier must be 16 hex digits"}
		}
		copy(guid[:], b)
		return call("ASISetID", lib.SetID(id, guid), id, v.Str)
	}

	var raw int64
	switch e.prop.Type {
	case camera.PropFloat:
		// tenths, truncated toward zero like the vendor tools
		raw = int64(v.Float * 10)
	case camera.PropDuration:
		raw = int64(v.Dur / time.Microsecond)
	case camera.PropBool:
		if v.Bool {
			raw = 1
		}
	default:
		raw = v.Int
	}
	return call("ASISetControlValue", lib.SetControlValue(id, e.native, raw, auto), id, e.native, raw, auto)
}

// setFlip folds one axis into the combined native flip state, leaving
// the other axis as it is
func setFlip(lib sdk.Lib, id int, kind camera.ControlKind, on bool) error {
	v, _, code := lib.GetControlValue(id, sdk.CtlFlip)
	if err := call("ASIGetControlValue", code, id, sdk.CtlFlip); err != nil {
		return err
	}
	flip := sdk.FlipStatus(v)
	horiz := flip == sdk.FlipHoriz || flip == sdk.FlipBoth
	vert := flip == sdk.FlipVert || flip == sdk.FlipBoth
	if kind == camera.KindReverseX {
		horiz = on
	} else {
		vert = on
	}
	next := sdk.FlipNone
	switch {
	case horiz && vert:
		next = sdk.FlipBoth
	case horiz:
		next = sdk.FlipHoriz
	case vert:
		next = sdk.FlipVert
	}
	return call("ASISetControlValue", lib.SetControlValue(id, sdk.CtlFlip, int64(next), false), id, sdk.CtlFlip, int64(next), false)
}
