// Package camera provides a generic HTTP interface to a scientific
// camera built on the control surface of the root camera package.
package camera

import (
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"time"

	"goji.io/pat"

	"github.com/opticslab/asicam/camera"
	"github.com/opticslab/asicam/generichttp"
	"github.com/opticslab/asicam/imgrec"
	"github.com/opticslab/asicam/server"
	"github.com/opticslab/asicam/util"
)

// ExposureManipulator is a camera which can get and set its exposure
// time directly, without going through the property table
type ExposureManipulator interface {
	// SetExposureTime sets the exposure time
	SetExposureTime(time.Duration) error

	// GetExposureTime gets the exposure time
	GetExposureTime() (time.Duration, error)
}

// SerialNumbered is a camera which knows its factory serial number
type SerialNumbered interface {
	Serial() string
}

// pollInterval is the cadence for exposure-complete polling during a
// blocking frame request; the device only offers a poll-based status
const pollInterval = 10 * time.Millisecond

// HTTPCamera wraps an Imager in an HTTP route table
type HTTPCamera struct {
	// Cam is the camera being exposed
	Cam camera.Imager

	// Rec, when enabled, mirrors every FITS response to disk
	Rec *imgrec.Recorder

	table server.RouteTable
}

// NewHTTPCamera returns an HTTP wrapper with the route table populated
func NewHTTPCamera(c camera.Imager, rec *imgrec.Recorder) HTTPCamera {
	h := HTTPCamera{Cam: c, Rec: rec}
	rt := server.RouteTable{
		// image capture
		pat.Get("/image"): h.GetFrame,

		// exposure manipulation
		pat.Get("/exposure-time"):  h.GetExposureTime,
		pat.Post("/exposure-time"): h.SetExposureTime,

		// state machine
		pat.Get("/state"):     h.GetState,
		pat.Get("/capturing"): generichttp.GetBool(func() (bool, error) { return c.IsCapturing(), nil }),
		pat.Post("/cancel"):   h.Cancel,

		// geometry
		pat.Get("/roi"):  h.GetROI,
		pat.Post("/roi"): h.SetROI,

		// generic property access
		pat.Get("/properties"):     h.ListProperties,
		pat.Get("/property/:prop"): h.GetProperty,
		pat.Post("/property/:prop"): h.SetProperty,

		// identity
		pat.Get("/name"): generichttp.GetString(func() (string, error) { return c.CameraName(), nil }),
	}
	if s, ok := c.(SerialNumbered); ok {
		rt[pat.Get("/serial")] = generichttp.GetString(func() (string, error) { return s.Serial(), nil })
	}
	h.table = rt
	return h
}

// RT satisfies server.HTTPer
func (h HTTPCamera) RT() server.RouteTable {
	return h.table
}

// SetExposureTime sets the exposure time on a POST request.
// it can be provided either as a query parameter exposureTime, formatted
// in a way that is parseable by golang/time.ParseDuration, or a json
// payload with key f64, holding the exposure time in seconds.
func (h HTTPCamera) SetExposureTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	texp := q.Get("exposureTime")
	var d time.Duration
	var err error
	if texp == "" {
		f := server.FloatT{}
		err = json.NewDecoder(r.Body).Decode(&f)
		d = time.Duration(int(f.F64*1e9)) * time.Nanosecond // 1e9 s => ns
	} else {
		d, err = time.ParseDuration(texp)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.Cam.SetProperty(camera.Cnt(camera.KindExposureTime), camera.DurV(d), false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetExposureTime gets the exposure time on a GET request, as json
// {'f64': seconds}
func (h HTTPCamera) GetExposureTime(w http.ResponseWriter, r *http.Request) {
	generichttp.GetFloat(func() (float64, error) {
		v, _, err := h.Cam.GetProperty(camera.Cnt(camera.KindExposureTime))
		if err != nil {
			return 0, err
		}
		return v.Dur.Seconds(), nil
	})(w, r)
}

// GetState returns the exposure machine state as json
func (h HTTPCamera) GetState(w http.ResponseWriter, r *http.Request) {
	st, err := h.Cam.CameraState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := struct {
		State   string  `json:"state"`
		Elapsed float64 `json:"elapsedSec"`
		Error   string  `json:"error,omitempty"`
	}{State: st.Kind.String(), Elapsed: st.Elapsed.Seconds()}
	if st.Err != nil {
		out.Error = st.Err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// Cancel aborts the in-flight exposure
func (h HTTPCamera) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.Cam.CancelCapture(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetROI returns the readout window as json
func (h HTTPCamera) GetROI(w http.ResponseWriter, r *http.Request) {
	roi, err := h.Cam.GetROI()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(roi)
}

// SetROI sets the readout window from a json body
func (h HTTPCamera) SetROI(w http.ResponseWriter, r *http.Request) {
	roi := camera.ROI{}
	err := json.NewDecoder(r.Body).Decode(&roi)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Cam.SetROI(roi); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// propertyJSON is the wire form of one property descriptor
type propertyJSON struct {
	Type     string   `json:"type"`
	Min      string   `json:"min,omitempty"`
	Max      string   `json:"max,omitempty"`
	Default  string   `json:"default"`
	Variants []string `json:"variants,omitempty"`
	Auto     bool     `json:"auto"`
	ReadOnly bool     `json:"readOnly"`
}

// ListProperties returns every control and its limits as json
func (h HTTPCamera) ListProperties(w http.ResponseWriter, r *http.Request) {
	props := h.Cam.ListProperties()
	out := make(map[string]propertyJSON, len(props))
	for ctl, p := range props {
		pj := propertyJSON{
			Type:     p.Type.String(),
			Default:  p.Default.String(),
			Auto:     p.Auto,
			ReadOnly: p.ReadOnly,
		}
		switch p.Type {
		case camera.PropInt, camera.PropFloat, camera.PropDuration:
			pj.Min = p.Min.String()
			pj.Max = p.Max.String()
		}
		for _, v := range p.Variants {
			pj.Variants = append(pj.Variants, v.String())
		}
		out[ctl.String()] = pj
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (h HTTPCamera) lookupControl(r *http.Request) (camera.Control, camera.Property, error) {
	name := pat.Param(r, "prop")
	ctl, err := camera.ParseControl(name)
	if err != nil {
		return camera.Control{}, camera.Property{}, err
	}
	p, ok := h.Cam.ListProperties()[ctl]
	if !ok {
		return camera.Control{}, camera.Property{}, fmt.Errorf("camera does not expose %s", name)
	}
	return ctl, p, nil
}

// GetProperty reads one control; the envelope matches the property type
func (h HTTPCamera) GetProperty(w http.ResponseWriter, r *http.Request) {
	ctl, _, err := h.lookupControl(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	v, auto, err := h.Cam.GetProperty(ctl)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := struct {
		Value string `json:"value"`
		Auto  bool   `json:"auto"`
	}{Value: v.String(), Auto: auto}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// SetProperty writes one control from json {"value": "...", "auto": bool};
// the value string is parsed according to the property type
func (h HTTPCamera) SetProperty(w http.ResponseWriter, r *http.Request) {
	ctl, prop, err := h.lookupControl(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	in := struct {
		Value string `json:"value"`
		Auto  bool   `json:"auto"`
	}{}
	err = json.NewDecoder(r.Body).Decode(&in)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v, err := parseValue(prop, in.Value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Cam.SetProperty(ctl, v, in.Auto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func parseValue(p camera.Property, s string) (camera.Value, error) {
	switch p.Type {
	case camera.PropInt:
		var i int64
		_, err := fmt.Sscanf(s, "%d", &i)
		return camera.IntV(i), err
	case camera.PropFloat:
		var f float64
		_, err := fmt.Sscanf(s, "%g", &f)
		return camera.FloatV(f), err
	case camera.PropBool:
		return camera.BoolV(s == "true" || s == "1"), nil
	case camera.PropDuration:
		if util.AllElementsNumbers(s) {
			s = s + "s"
		}
		d, err := time.ParseDuration(s)
		return camera.DurV(d), err
	case camera.PropPixelFormat:
		pf, ok := camera.ParsePixelFormat(s)
		if !ok {
			return camera.Value{}, fmt.Errorf("unknown pixel format %q", s)
		}
		return camera.FmtV(pf), nil
	}
	return camera.StrV(s), nil
}

// ThermalController describes the cooling interface of a camera
type ThermalController interface {
	// Temperature reads the sensor temperature in Celsius
	Temperature() (float64, error)

	// CoolerPower reads the cooler drive, percent of max
	CoolerPower() (float64, error)

	// SetCooling turns the TEC on or off
	SetCooling(bool) error
}

// InjectThermal adds temperature and cooler routes to an HTTPer whose
// camera has a thermal interface
func InjectThermal(other server.HTTPer, t ThermalController) {
	rt := other.RT()
	rt[pat.Get("/temperature")] = generichttp.GetFloat(t.Temperature)
	rt[pat.Get("/cooler-power")] = generichttp.GetFloat(t.CoolerPower)
	rt[pat.Post("/cooler")] = generichttp.SetBool(t.SetCooling)
}

// GetFrame runs a full capture and returns the image on a GET request.
//
// the image format may be specified in a query parameter; default to fits
//
// the exposure time may be specified as a query parameter in any
// time-looking format, such as "25ms" or "10us".  Strictly speaking, it
// must be a valid input to golang time.ParseDuration.
//
// if no unit is appended, an s (seconds) is added.
//
// if no exposure time is provided, it is not updated and the existing
// value is used.
func (h HTTPCamera) GetFrame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	texp := q.Get("exposureTime")
	if texp != "" {
		if util.AllElementsNumbers(texp) {
			texp = texp + "s"
		}
		T, err := time.ParseDuration(texp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = h.Cam.SetProperty(camera.Cnt(camera.KindExposureTime), camera.DurV(T), false)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	img, err := h.capture(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	format := q.Get("fmt")
	if format == "" {
		format = "fits"
	}
	switch format {
	case "jpg", "png":
		buf16 := img.Gray16()
		buf := make([]byte, len(buf16))
		for idx := 0; idx < len(buf16); idx++ {
			buf[idx] = byte(buf16[idx] / 256) // scale 16 to 8 bits
		}
		im := &image.Gray{Pix: buf, Stride: img.Width, Rect: image.Rect(0, 0, img.Width, img.Height)}
		if format == "jpg" {
			w.Header().Set("Content-Type", "image/jpeg")
			w.WriteHeader(http.StatusOK)
			jpeg.Encode(w, im, nil)
		} else {
			w.Header().Set("Content-Type", "image/png")
			w.WriteHeader(http.StatusOK)
			png.Encode(w, im)
		}
	case "fits":
		var w2 io.Writer
		if h.Rec != nil && h.Rec.Enabled && h.Rec.Root != "" {
			// if Root is "", the recorder is not to be used
			w2 = io.MultiWriter(w, h.Rec)
			defer h.Rec.Incr()
		} else {
			w2 = w
		}
		hdr := w.Header()
		hdr.Set("Content-Type", "image/fits")
		hdr.Set("Content-Disposition", "attachment; filename=image.fits")
		if err := img.WriteFITS(w2); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	default:
		http.Error(w, fmt.Sprintf("unknown image format %q", format), http.StatusBadRequest)
	}
}

// capture drives one full start/poll/download cycle.  Polling honors
// the request's cancellation so a dropped client does not leave us
// spinning; the exposure itself keeps running and a later request or a
// cancel resolves it.
func (h HTTPCamera) capture(r *http.Request) (*camera.Image, error) {
	if err := h.Cam.StartExposure(); err != nil {
		return nil, err
	}
	ctx := r.Context()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	for {
		ready, err := h.Cam.ImageReady()
		if err != nil {
			return nil, err
		}
		if ready {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tick.C:
		}
	}
	return h.Cam.DownloadImage()
}
