package asi

import (
	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/camera"
)

// getROI reads the full readout geometry: format plus origin
func getROI(lib sdk.Lib, id int) (camera.ROI, sdk.ImgType, error) {
	w, h, bin, img, code := lib.GetROIFormat(id)
	if err := call("ASIGetROIFormat", code, id); err != nil {
		return camera.ROI{}, img, err
	}
	x, y, code := lib.GetStartPos(id)
	if err := call("ASIGetStartPos", code, id); err != nil {
		return camera.ROI{}, img, err
	}
	return camera.ROI{X: x, Y: y, Width: w, Height: h, BinX: bin, BinY: bin}, img, nil
}

// setROI applies a readout geometry.  The native surface splits this
// into a format call and an origin call; if the origin call fails after
// the format call took effect, the previous format is restored so the
// device is never left straddling half of an update.
func setROI(lib sdk.Lib, id int, roi camera.ROI, img sdk.ImgType) error {
	pw, ph, pbin, pimg, code := lib.GetROIFormat(id)
	if err := call("ASIGetROIFormat", code, id); err != nil {
		return err
	}
	bin := roi.BinX
	if bin < 1 {
		bin = 1
	}
	if err := call("ASISetROIFormat", lib.SetROIFormat(id, roi.Width, roi.Height, bin, img), id, roi.Width, roi.Height, bin, img); err != nil {
		return err
	}
	if err := call("ASISetStartPos", lib.SetStartPos(id, roi.X, roi.Y), id, roi.X, roi.Y); err != nil {
		// roll the format back; ignore the outcome, the original error
		// is the one the caller needs
		lib.SetROIFormat(id, pw, ph, pbin, pimg)
		return err
	}
	return nil
}
