package asi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/camera"
)

func TestSetROI(t *testing.T) {
	lib, cam, _ := connectSim(t)
	want := camera.ROI{X: 8, Y: 10, Width: 800, Height: 600, BinX: 1, BinY: 1}
	require.NoError(t, cam.SetROI(want))

	got, err := cam.GetROI()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// the device saw both halves of the update
	assert.Equal(t, 1, countOps(lib, "SetROIFormat"))
	assert.Equal(t, 1, countOps(lib, "SetStartPos"))
}

func TestSetROIBinning(t *testing.T) {
	_, cam, _ := connectSim(t)
	// BinY zero means follow BinX
	require.NoError(t, cam.SetROI(camera.ROI{Width: 960, Height: 548, BinX: 2}))
	got, err := cam.GetROI()
	require.NoError(t, err)
	assert.Equal(t, 2, got.BinX)
	assert.Equal(t, 2, got.BinY)

	var pe *camera.PropertyError
	err = cam.SetROI(camera.ROI{Width: 800, Height: 600, BinX: 1, BinY: 2})
	assert.ErrorAs(t, err, &pe)
}

func TestSetROIRollback(t *testing.T) {
	lib, cam, _ := connectSim(t)
	before, err := cam.GetROI()
	require.NoError(t, err)

	lib.Fail("SetStartPos", sdk.ErrOutOfBoundary)
	err = cam.SetROI(camera.ROI{X: 5000, Y: 5000, Width: 800, Height: 600, BinX: 1, BinY: 1})
	assert.ErrorIs(t, err, ErrOutOfBoundary)

	// the failed position write rolled the format back
	var last []interface{}
	for _, c := range lib.Journal() {
		if c.Op == "SetROIFormat" {
			last = c.Args
		}
	}
	require.NotNil(t, last)
	assert.Equal(t, before.Width, last[1])
	assert.Equal(t, before.Height, last[2])
	assert.Equal(t, before.BinX, last[3])
	assert.Equal(t, sdk.ImgRaw16, last[4])

	after, err := cam.GetROI()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSetROIInvalidGeometry(t *testing.T) {
	_, cam, _ := connectSim(t)
	// width must be a multiple of 8 on this hardware
	err := cam.SetROI(camera.ROI{Width: 801, Height: 600, BinX: 1, BinY: 1})
	assert.ErrorIs(t, err, camera.ErrInvalidFormat)

	// larger than the sensor
	err = cam.SetROI(camera.ROI{Width: 4096, Height: 4096, BinX: 1, BinY: 1})
	assert.ErrorIs(t, err, camera.ErrInvalidFormat)
}

func TestPixelFormatSwitch(t *testing.T) {
	lib, cam, _ := connectSim(t)
	require.NoError(t, cam.SetProperty(camera.Cnt(camera.KindPixelFormat), camera.FmtV(camera.Raw8), false))

	v, _, err := cam.GetProperty(camera.Cnt(camera.KindPixelFormat))
	require.NoError(t, err)
	assert.Equal(t, camera.Raw8, v.Format)

	// downloads are sized for the new format
	lib.ScriptStatus(0, sdk.ExpSuccess, sdk.ExpSuccess)
	require.NoError(t, cam.StartExposure())
	img, err := cam.DownloadImage()
	require.NoError(t, err)
	assert.Equal(t, camera.Raw8, img.Format)
	assert.Len(t, img.Pix8, 1936*1096)
	assert.Nil(t, img.Pix16)

	// an unsupported format is rejected by validation
	err = cam.SetProperty(camera.Cnt(camera.KindPixelFormat), camera.FmtV(camera.RGB24), false)
	var pe *camera.PropertyError
	assert.ErrorAs(t, err, &pe)
}
