package asi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/asi/sim"
	"github.com/opticslab/asicam/camera"
)

func TestListDevices(t *testing.T) {
	lib := sim.New(sim.DefaultInfo(0), sim.ColorInfo(1))
	drv := NewDriver(lib, nil, nil)

	assert.Equal(t, 2, drv.AvailableDevices())
	descs, err := drv.ListDevices()
	require.NoError(t, err)
	require.Len(t, descs, 2)

	assert.Equal(t, 0, descs[0].ID)
	assert.Equal(t, "ZWO ASI-SIM Pro", descs[0].Name)
	assert.Equal(t, Vendor, descs[0].Vendor)
	assert.Equal(t, "0001020304050607", descs[0].Serial)
	assert.Equal(t, "0102030405060708", descs[1].Serial)
	assert.Equal(t, "RGGB", descs[1].Info["Bayer Pattern"])

	// the scan opens each camera transiently and closes it again
	assert.Equal(t, countOps(lib, "OpenCamera"), countOps(lib, "CloseCamera"))

	// a scanned camera is still connectable
	cam, _, err := drv.ConnectDevice(descs[1])
	require.NoError(t, err)
	defer cam.Close()
	assert.Equal(t, "ZWO ASI-SIM Color", cam.CameraName())
}

func TestConnectFirstDevice(t *testing.T) {
	lib := sim.New(sim.DefaultInfo(3))
	drv := NewDriver(lib, nil, nil)
	cam, info, err := drv.ConnectFirstDevice()
	require.NoError(t, err)
	defer cam.Close()

	assert.Equal(t, "ZWO ASI-SIM Pro", cam.CameraName())
	assert.Equal(t, cam.Serial(), info.Serial())
	assert.True(t, info.CameraReady())

	roi, err := cam.GetROI()
	require.NoError(t, err)
	assert.Equal(t, 1936, roi.Width)
	assert.Equal(t, 1096, roi.Height)
	assert.Equal(t, 1, roi.BinX)
}

func TestConnectNoCameras(t *testing.T) {
	drv := NewDriver(sim.New(), nil, nil)
	_, _, err := drv.ConnectFirstDevice()
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestTeardownOrder(t *testing.T) {
	lib := sim.New(sim.DefaultInfo(0))
	drv := NewDriver(lib, nil, nil)
	cam, _, err := drv.ConnectFirstDevice()
	require.NoError(t, err)

	// even when the first two steps fail, the rest still run in order
	lib.Fail("StopExposure", sdk.ErrGeneralError)
	lib.Fail("SetControlValue", sdk.ErrGeneralError)
	require.NoError(t, cam.Close())

	ops := lib.Ops()
	stop, cool, closed := -1, -1, -1
	for i := len(ops) - 1; i >= 0; i-- {
		switch ops[i] {
		case "StopExposure":
			if stop == -1 {
				stop = i
			}
		case "SetControlValue":
			if cool == -1 {
				cool = i
			}
		case "CloseCamera":
			if closed == -1 {
				closed = i
			}
		}
	}
	require.NotEqual(t, -1, stop)
	require.NotEqual(t, -1, cool)
	require.NotEqual(t, -1, closed)
	assert.Less(t, stop, cool)
	assert.Less(t, cool, closed)

	// closing again is a no-op
	before := len(lib.Ops())
	require.NoError(t, cam.Close())
	assert.Equal(t, before, len(lib.Ops()))
}

func TestOperationsAfterClose(t *testing.T) {
	lib := sim.New(sim.DefaultInfo(0))
	drv := NewDriver(lib, nil, nil)
	cam, info, err := drv.ConnectFirstDevice()
	require.NoError(t, err)
	require.NoError(t, cam.Close())

	assert.False(t, info.CameraReady())
	err = cam.StartExposure()
	assert.ErrorIs(t, err, camera.ErrCameraClosed)
	assert.False(t, cam.IsCapturing())
	assert.False(t, camera.Recoverable(err))
}

func TestRemovalSurfacesAsFatal(t *testing.T) {
	lib, cam, _ := connectSim(t)
	lib.Remove(0)

	err := cam.StartExposure()
	assert.ErrorIs(t, err, camera.ErrCameraRemoved)
	assert.False(t, cam.IsCapturing())
	assert.False(t, camera.Recoverable(err))
}

func TestInvalidIDCarriesID(t *testing.T) {
	lib := sim.New(sim.DefaultInfo(0))
	err := call("ASIOpenCamera", lib.OpenCamera(42), 42)
	var inv *camera.InvalidIDError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 42, inv.ID)
	assert.Contains(t, err.Error(), "ASIOpenCamera")
}

func TestInfoFacetFromImager(t *testing.T) {
	_, cam, _ := connectSim(t)
	info := cam.Info()
	assert.Equal(t, cam.CameraName(), info.CameraName())
	assert.Equal(t, cam.Serial(), info.Serial())
	assert.True(t, info.CameraReady())
}
