package asi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opticslab/asicam/asi/sim"
	"github.com/opticslab/asicam/camera"
)

func TestCatalogPartition(t *testing.T) {
	_, cam, _ := connectSim(t)

	for ctl := range cam.cat.device {
		assert.True(t, ctl.DeviceLevel(), "%s in the device half", ctl)
		_, inSensor := cam.cat.sensor[ctl]
		assert.False(t, inSensor, "%s present in both halves", ctl)
	}
	for ctl := range cam.cat.sensor {
		assert.False(t, ctl.DeviceLevel(), "%s in the sensor half", ctl)
	}
}

func TestCatalogContents(t *testing.T) {
	_, cam, _ := connectSim(t)
	props := cam.ListProperties()

	for _, kind := range []camera.ControlKind{
		camera.KindGain,
		camera.KindGamma,
		camera.KindExposureTime,
		camera.KindAutoExposureMax,
		camera.KindAutoExposureTarget,
		camera.KindAutoMaxGain,
		camera.KindReverseX,
		camera.KindReverseY,
		camera.KindPixelFormat,
		camera.KindShutterMode,
		camera.KindTemperature,
		camera.KindCoolerPower,
		camera.KindCoolerTemp,
		camera.KindCoolerEnable,
		camera.KindFanEnable,
		camera.KindHighSpeedMode,
	} {
		_, ok := props[camera.Cnt(kind)]
		assert.True(t, ok, "missing %s", camera.Cnt(kind))
	}
	_, ok := props[camera.Custom("UUID")]
	assert.True(t, ok, "missing UUID extension")

	// white balance and bandwidth exist natively but have no generic
	// equivalent; they must not leak into the catalog
	assert.Len(t, props, 17)
}

func TestCatalogTracksCapabilities(t *testing.T) {
	info := sim.ColorInfo(0)
	info.IsUSB3Camera = false
	info.IsCoolerCam = false
	_, cam, _ := connectSim(t, info)
	props := cam.ListProperties()

	_, ok := props[camera.Cnt(camera.KindShutterMode)]
	assert.False(t, ok, "shutter control without a mechanical shutter")
	_, ok = props[camera.Custom("UUID")]
	assert.False(t, ok, "UUID extension without USB3")
	_, ok = props[camera.Cnt(camera.KindCoolerEnable)]
	assert.False(t, ok, "cooler control without a TEC")
	_, ok = props[camera.Cnt(camera.KindCoolerTemp)]
	assert.False(t, ok)
}

func TestPixelFormatVariants(t *testing.T) {
	_, cam, _ := connectSim(t)
	props := cam.ListProperties()
	p := props[camera.Cnt(camera.KindPixelFormat)]

	// the first supported format is the vendor default
	assert.Equal(t, camera.Raw16, p.Default.Format)
	require.Len(t, p.Variants, 2)
	assert.Equal(t, camera.Raw16, p.Variants[0].Format)
	assert.Equal(t, camera.Raw8, p.Variants[1].Format)

	// values outside the variant set fail validation
	assert.Error(t, p.Validate(camera.FmtV(camera.RGB24)))
	assert.NoError(t, p.Validate(camera.FmtV(camera.Raw8)))
}

func TestCatalogDefaultsValidate(t *testing.T) {
	_, cam, _ := connectSim(t)
	for ctl, p := range cam.ListProperties() {
		assert.NoError(t, p.Validate(p.Default), "default of %s out of its own range", ctl)
	}
}

func TestDurationLimits(t *testing.T) {
	_, cam, _ := connectSim(t)
	p := cam.ListProperties()[camera.Cnt(camera.KindExposureTime)]

	assert.Equal(t, camera.PropDuration, p.Type)
	// the simulator advertises 32us to 2000s
	assert.Error(t, p.Validate(camera.DurV(0)))
	assert.NoError(t, p.Validate(camera.DurV(p.Min.Dur)))
	assert.NoError(t, p.Validate(camera.DurV(p.Max.Dur)))
	assert.Error(t, p.Validate(camera.DurV(p.Max.Dur+1)))
}
