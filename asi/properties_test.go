package asi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/asi/sim"
	"github.com/opticslab/asicam/camera"
)

func TestValidationStopsBadWrites(t *testing.T) {
	lib, cam, _ := connectSim(t)
	writes := countOps(lib, "SetControlValue")

	var pe *camera.PropertyError
	err := cam.SetProperty(camera.Cnt(camera.KindGain), camera.IntV(-1), false)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, camera.Cnt(camera.KindGain), pe.Control)

	err = cam.SetProperty(camera.Cnt(camera.KindGain), camera.IntV(571), false)
	require.ErrorAs(t, err, &pe)

	// wrong carrier type
	err = cam.SetProperty(camera.Cnt(camera.KindGain), camera.FloatV(100), false)
	require.ErrorAs(t, err, &pe)

	// rejected values never reach the device
	assert.Equal(t, writes, countOps(lib, "SetControlValue"))

	require.NoError(t, cam.SetProperty(camera.Cnt(camera.KindGain), camera.IntV(0), false))
	require.NoError(t, cam.SetProperty(camera.Cnt(camera.KindGain), camera.IntV(570), false))
}

func TestTemperatureScaling(t *testing.T) {
	lib, _, info := connectSim(t)

	// readback: native tenths of a degree, default 215
	temp, err := info.Temperature()
	require.NoError(t, err)
	assert.Equal(t, 21.5, temp)

	// writes scale the other way
	err = info.SetProperty(camera.Cnt(camera.KindTemperature), camera.FloatV(-10.0), false)
	require.NoError(t, err)
	var wrote bool
	for _, c := range lib.Journal() {
		if c.Op == "SetControlValue" && c.Args[1] == sdk.CtlTemperature {
			wrote = true
			assert.Equal(t, int64(-100), c.Args[2])
		}
	}
	assert.True(t, wrote)
}

func TestExposureMicrosecondScaling(t *testing.T) {
	lib, cam, _ := connectSim(t)
	require.NoError(t, cam.SetExposureTime(100*time.Millisecond))
	var wrote bool
	for _, c := range lib.Journal() {
		if c.Op == "SetControlValue" && c.Args[1] == sdk.CtlExposure {
			wrote = true
			assert.Equal(t, int64(100000), c.Args[2])
		}
	}
	assert.True(t, wrote)
}

func TestCoolerSetpointUnscaled(t *testing.T) {
	lib, _, info := connectSim(t)
	err := info.SetProperty(camera.Cnt(camera.KindCoolerTemp), camera.IntV(-15), false)
	require.NoError(t, err)
	var wrote bool
	for _, c := range lib.Journal() {
		if c.Op == "SetControlValue" && c.Args[1] == sdk.CtlTargetTemperature {
			wrote = true
			// the setpoint control is in whole degrees
			assert.Equal(t, int64(-15), c.Args[2])
		}
	}
	assert.True(t, wrote)
}

func TestFlipDecomposition(t *testing.T) {
	_, cam, _ := connectSim(t)

	require.NoError(t, cam.SetProperty(camera.Cnt(camera.KindReverseX), camera.BoolV(true), false))
	v, _, err := cam.GetProperty(camera.Cnt(camera.KindReverseX))
	require.NoError(t, err)
	assert.True(t, v.Bool)
	v, _, err = cam.GetProperty(camera.Cnt(camera.KindReverseY))
	require.NoError(t, err)
	assert.False(t, v.Bool)

	// folding in the other axis preserves the first
	require.NoError(t, cam.SetProperty(camera.Cnt(camera.KindReverseY), camera.BoolV(true), false))
	v, _, err = cam.GetProperty(camera.Cnt(camera.KindReverseX))
	require.NoError(t, err)
	assert.True(t, v.Bool)
	v, _, err = cam.GetProperty(camera.Cnt(camera.KindReverseY))
	require.NoError(t, err)
	assert.True(t, v.Bool)

	require.NoError(t, cam.SetProperty(camera.Cnt(camera.KindReverseX), camera.BoolV(false), false))
	v, _, err = cam.GetProperty(camera.Cnt(camera.KindReverseY))
	require.NoError(t, err)
	assert.True(t, v.Bool)
}

func TestCustomIdentifier(t *testing.T) {
	_, cam, _ := connectSim(t)
	uuid := camera.Custom("UUID")

	v, _, err := cam.GetProperty(uuid)
	require.NoError(t, err)
	assert.Equal(t, "0000000000000000", v.Str)

	require.NoError(t, cam.SetProperty(uuid, camera.StrV("0102030405060708"), false))
	v, _, err = cam.GetProperty(uuid)
	require.NoError(t, err)
	assert.Equal(t, "0102030405060708", v.Str)

	var pe *camera.PropertyError
	err = cam.SetProperty(uuid, camera.StrV("not hex"), false)
	assert.ErrorAs(t, err, &pe)
	err = cam.SetProperty(uuid, camera.StrV("abcd"), false)
	assert.ErrorAs(t, err, &pe)
}

func TestReadOnlyControlRefusesWrites(t *testing.T) {
	lib, _, info := connectSim(t)
	writes := countOps(lib, "SetControlValue")

	var pe *camera.PropertyError
	err := info.SetProperty(camera.Cnt(camera.KindCoolerPower), camera.IntV(50), false)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, writes, countOps(lib, "SetControlValue"))
}

func TestAutoModeRequiresSupport(t *testing.T) {
	_, cam, _ := connectSim(t)

	// gamma has no auto mode on this hardware
	var pe *camera.PropertyError
	err := cam.SetProperty(camera.Cnt(camera.KindGamma), camera.IntV(50), true)
	require.ErrorAs(t, err, &pe)

	// gain does
	require.NoError(t, cam.SetProperty(camera.Cnt(camera.KindGain), camera.IntV(200), true))
	_, auto, err := cam.GetProperty(camera.Cnt(camera.KindGain))
	require.NoError(t, err)
	assert.True(t, auto)
}

func TestInfoHandleScopedToDeviceControls(t *testing.T) {
	_, _, info := connectSim(t)

	_, _, err := info.GetProperty(camera.Cnt(camera.KindGain))
	assert.ErrorIs(t, err, camera.ErrInvalidControlType)
	err = info.SetProperty(camera.Cnt(camera.KindExposureTime), camera.DurV(time.Second), false)
	assert.ErrorIs(t, err, camera.ErrInvalidControlType)

	// device-level controls work through the same handle
	_, _, err = info.GetProperty(camera.Cnt(camera.KindTemperature))
	assert.NoError(t, err)
}

func TestUnknownControl(t *testing.T) {
	_, cam, _ := connectSim(t)
	_, _, err := cam.GetProperty(camera.Custom("nonsense"))
	assert.ErrorIs(t, err, camera.ErrInvalidControlType)
}

func TestCoolingModel(t *testing.T) {
	_, _, info := connectSim(t)
	require.NoError(t, info.SetProperty(camera.Cnt(camera.KindCoolerTemp), camera.IntV(-10), false))
	require.NoError(t, info.SetCooling(true))

	temp, err := info.Temperature()
	require.NoError(t, err)
	assert.Equal(t, -10.0, temp)

	power, err := info.CoolerPower()
	require.NoError(t, err)
	assert.Greater(t, power, 0.0)

	require.NoError(t, info.SetCooling(false))
}

func TestCoolerAbsentOnUncooledCamera(t *testing.T) {
	info := sim.DefaultInfo(0)
	info.IsCoolerCam = false
	_, _, ih := connectSim(t, info)

	_, err := ih.CoolerPower()
	assert.ErrorIs(t, err, camera.ErrInvalidControlType)
	err = ih.SetCooling(true)
	assert.ErrorIs(t, err, camera.ErrInvalidControlType)
}
