package camera

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opticslab/asicam/asi"
	"github.com/opticslab/asicam/asi/sim"
	camctl "github.com/opticslab/asicam/camera"
	"github.com/opticslab/asicam/server"
)

func newServer(t *testing.T) (*sim.Sim, http.Handler) {
	t.Helper()
	lib := sim.New(sim.DefaultInfo(0))
	drv := asi.NewDriver(lib, nil, nil)
	cam, info, err := drv.ConnectFirstDevice()
	require.NoError(t, err)
	t.Cleanup(func() { cam.Close() })

	h := NewHTTPCamera(cam, nil)
	InjectThermal(h, info)
	return lib, server.Build(h)
}

func TestNameAndSerialRoutes(t *testing.T) {
	_, mux := newServer(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/name", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ZWO ASI-SIM Pro")

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/serial", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "0001020304050607")
}

func TestExposureTimeRoutes(t *testing.T) {
	_, mux := newServer(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/exposure-time?exposureTime=25ms", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/exposure-time", nil))
	require.Equal(t, http.StatusOK, w.Code)
	f := server.FloatT{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&f))
	assert.Equal(t, 0.025, f.F64)

	// json body in seconds, the other accepted form
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/exposure-time", strings.NewReader(`{"f64":0.5}`)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/exposure-time", nil))
	require.NoError(t, json.NewDecoder(w.Body).Decode(&f))
	assert.Equal(t, 0.5, f.F64)
}

func TestROIRoutes(t *testing.T) {
	_, mux := newServer(t)

	body, _ := json.Marshal(camctl.ROI{X: 8, Y: 8, Width: 640, Height: 480, BinX: 1, BinY: 1})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/roi", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/roi", nil))
	require.Equal(t, http.StatusOK, w.Code)
	roi := camctl.ROI{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&roi))
	assert.Equal(t, 640, roi.Width)
	assert.Equal(t, 480, roi.Height)

	// bad geometry surfaces as a server error, not a panic
	body, _ = json.Marshal(camctl.ROI{Width: 641, Height: 480, BinX: 1, BinY: 1})
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/roi", bytes.NewReader(body)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPropertyRoutes(t *testing.T) {
	_, mux := newServer(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/properties", nil))
	require.Equal(t, http.StatusOK, w.Code)
	props := map[string]propertyJSON{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&props))
	assert.Contains(t, props, "Gain")
	assert.Contains(t, props, "PixelFormat")
	assert.True(t, props["CoolerPower"].ReadOnly)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/property/Gain", nil))
	require.Equal(t, http.StatusOK, w.Code)
	got := struct {
		Value string `json:"value"`
		Auto  bool   `json:"auto"`
	}{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "200", got.Value)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/property/Gain", strings.NewReader(`{"value":"300"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/property/Gain", nil))
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "300", got.Value)

	// out-of-range values bounce with a server error
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/property/Gain", strings.NewReader(`{"value":"100000"}`)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// unknown controls 404
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/property/Nonsense", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaptureRoutes(t *testing.T) {
	_, mux := newServer(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/capturing", nil))
	require.Equal(t, http.StatusOK, w.Code)
	b := server.BoolT{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&b))
	assert.False(t, b.Bool)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/state", nil))
	require.Equal(t, http.StatusOK, w.Code)
	st := struct {
		State string `json:"state"`
	}{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.Equal(t, "Idle", st.State)
}

func TestGetFrameFITS(t *testing.T) {
	_, mux := newServer(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/image?exposureTime=1ms&fmt=fits", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/fits", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("SIMPLE")))
}

func TestGetFramePNG(t *testing.T) {
	_, mux := newServer(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/image?exposureTime=1ms&fmt=png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestThermalRoutes(t *testing.T) {
	_, mux := newServer(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/temperature", nil))
	require.Equal(t, http.StatusOK, w.Code)
	f := server.FloatT{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&f))
	assert.Equal(t, 21.5, f.F64)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/cooler", strings.NewReader(`{"bool":true}`)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/cooler-power", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
