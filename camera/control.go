package camera

import "fmt"

// ControlKind enumerates the tunable parameters a camera may expose.
// The set is closed except for KindCustom, which carries a free-form name
// for vendor extensions that have no generic equivalent.
type ControlKind int

const (
	// KindInvalid is the zero value and matches no control
	KindInvalid ControlKind = iota

	// device-level controls, exposed on InfoHandle as well as Imager

	// KindTemperature is the sensor temperature in Celcius, read-only
	KindTemperature

	// KindCoolerPower is the TEC drive level in percent, read-only
	KindCoolerPower

	// KindCoolerTemp is the TEC setpoint in Celcius
	KindCoolerTemp

	// KindCoolerEnable turns the TEC on or off
	KindCoolerEnable

	// KindFanEnable turns the body fan on or off
	KindFanEnable

	// KindHighSpeedMode selects the faster USB readout path
	KindHighSpeedMode

	// KindCustom is a vendor extension identified by Control.Name
	KindCustom

	// sensor-level controls, exposed only on the Imager

	// KindGain is the analog gain in centibels
	KindGain

	// KindGamma is the gamma correction factor
	KindGamma

	// KindExposureTime is the integration time
	KindExposureTime

	// KindAutoExposureMax is the longest exposure auto mode may choose
	KindAutoExposureMax

	// KindAutoExposureTarget is the target mean brightness for auto exposure
	KindAutoExposureTarget

	// KindAutoMaxGain is the highest gain auto mode may choose
	KindAutoMaxGain

	// KindReverseX mirrors the image horizontally
	KindReverseX

	// KindReverseY mirrors the image vertically
	KindReverseY

	// KindPixelFormat selects the readout bit depth / sample layout
	KindPixelFormat

	// KindShutterMode tracks whether the mechanical shutter is open
	KindShutterMode
)

var controlNames = map[ControlKind]string{
	KindTemperature:        "Temperature",
	KindCoolerPower:        "CoolerPower",
	KindCoolerTemp:         "CoolerTemp",
	KindCoolerEnable:       "CoolerEnable",
	KindFanEnable:          "FanEnable",
	KindHighSpeedMode:      "HighSpeedMode",
	KindCustom:             "Custom",
	KindGain:               "Gain",
	KindGamma:              "Gamma",
	KindExposureTime:       "ExposureTime",
	KindAutoExposureMax:    "AutoExposureMax",
	KindAutoExposureTarget: "AutoExposureTarget",
	KindAutoMaxGain:        "AutoMaxGain",
	KindReverseX:           "ReverseX",
	KindReverseY:           "ReverseY",
	KindPixelFormat:        "PixelFormat",
	KindShutterMode:        "ShutterMode",
}

// Control identifies one camera parameter.  Name is only meaningful for
// KindCustom, where it distinguishes vendor extensions from each other.
type Control struct {
	Kind ControlKind
	Name string
}

// Cnt is shorthand for a non-custom control
func Cnt(k ControlKind) Control {
	return Control{Kind: k}
}

// Custom returns a vendor-extension control with the given name
func Custom(name string) Control {
	return Control{Kind: KindCustom, Name: name}
}

// DeviceLevel is true for controls a housekeeping thread may touch while
// an exposure is in flight (thermal and environment parameters); sensor
// controls (gain, exposure, format) are excluded so a background thread
// cannot race the capture loop.
func (c Control) DeviceLevel() bool {
	switch c.Kind {
	case KindTemperature, KindCoolerPower, KindCoolerTemp, KindCoolerEnable,
		KindFanEnable, KindHighSpeedMode, KindCustom:
		return true
	}
	return false
}

func (c Control) String() string {
	if c.Kind == KindCustom {
		return fmt.Sprintf("Custom(%s)", c.Name)
	}
	if s, ok := controlNames[c.Kind]; ok {
		return s
	}
	return fmt.Sprintf("ControlKind(%d)", int(c.Kind))
}

// ParseControl is the inverse of Control.String, used by HTTP and CLI
// surfaces that address controls by name
func ParseControl(s string) (Control, error) {
	for k, v := range controlNames {
		if v == s {
			return Control{Kind: k}, nil
		}
	}
	if len(s) > 8 && s[:7] == "Custom(" && s[len(s)-1] == ')' {
		return Custom(s[7 : len(s)-1]), nil
	}
	return Control{}, fmt.Errorf("unknown control %q", s)
}
