package camera

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestControlNameRoundTrip(t *testing.T) {
	for kind := range controlNames {
		ctl := Cnt(kind)
		back, err := ParseControl(ctl.String())
		if err != nil {
			t.Fatalf("ParseControl(%q): %v", ctl.String(), err)
		}
		if back != ctl {
			t.Errorf("round trip of %v gave %v", ctl, back)
		}
	}
}

func TestCustomControlRoundTrip(t *testing.T) {
	ctl := Custom("UUID")
	if ctl.String() != "Custom(UUID)" {
		t.Errorf("got %q", ctl.String())
	}
	back, err := ParseControl("Custom(UUID)")
	if err != nil {
		t.Fatal(err)
	}
	if back != ctl {
		t.Errorf("round trip gave %v", back)
	}
	if _, err := ParseControl("garbage"); err == nil {
		t.Error("expected an error for an unknown name")
	}
}

func TestDeviceLevelSplit(t *testing.T) {
	device := []ControlKind{KindTemperature, KindCoolerPower, KindCoolerTemp,
		KindCoolerEnable, KindFanEnable, KindHighSpeedMode, KindCustom}
	sensor := []ControlKind{KindGain, KindGamma, KindExposureTime,
		KindAutoExposureMax, KindAutoExposureTarget, KindAutoMaxGain,
		KindReverseX, KindReverseY, KindPixelFormat, KindShutterMode}
	for _, k := range device {
		if !Cnt(k).DeviceLevel() {
			t.Errorf("%v should be device-level", Cnt(k))
		}
	}
	for _, k := range sensor {
		if Cnt(k).DeviceLevel() {
			t.Errorf("%v should be sensor-level", Cnt(k))
		}
	}
}

func TestValidateRanges(t *testing.T) {
	p := Property{Type: PropInt, Min: IntV(0), Max: IntV(570), Default: IntV(200)}
	if err := p.Validate(IntV(0)); err != nil {
		t.Error(err)
	}
	if err := p.Validate(IntV(570)); err != nil {
		t.Error(err)
	}
	if err := p.Validate(IntV(-1)); err == nil {
		t.Error("below min accepted")
	}
	if err := p.Validate(IntV(571)); err == nil {
		t.Error("above max accepted")
	}
	if err := p.Validate(FloatV(5)); err == nil {
		t.Error("type mismatch accepted")
	}
	var pe *PropertyError
	if err := p.Validate(IntV(-1)); !errors.As(err, &pe) {
		t.Errorf("wrong error type %T", err)
	}
}

func TestValidateDuration(t *testing.T) {
	p := Property{Type: PropDuration,
		Min: DurV(32 * time.Microsecond),
		Max: DurV(2000 * time.Second)}
	if err := p.Validate(DurV(100 * time.Millisecond)); err != nil {
		t.Error(err)
	}
	if err := p.Validate(DurV(time.Microsecond)); err == nil {
		t.Error("below min accepted")
	}
}

func TestValidateVariants(t *testing.T) {
	p := Property{Type: PropPixelFormat,
		Default:  FmtV(Raw16),
		Variants: []Value{FmtV(Raw16), FmtV(Raw8)}}
	if err := p.Validate(FmtV(Raw8)); err != nil {
		t.Error(err)
	}
	if err := p.Validate(FmtV(RGB24)); err == nil {
		t.Error("format outside the set accepted")
	}

	// an empty string set means free-form
	free := Property{Type: PropEnumStr}
	if err := free.Validate(StrV("anything at all")); err != nil {
		t.Error(err)
	}
	closed := Property{Type: PropEnumStr, Variants: []Value{StrV("a"), StrV("b")}}
	if err := closed.Validate(StrV("c")); err == nil {
		t.Error("string outside the set accepted")
	}
}

func TestPixelFormat(t *testing.T) {
	cases := []struct {
		f    PixelFormat
		name string
		bpp  int
		bpx  int
	}{
		{Raw8, "Raw8", 8, 1},
		{RGB24, "RGB24", 8, 3},
		{Raw16, "Raw16", 16, 2},
		{Y8, "Y8", 8, 1},
	}
	for _, tc := range cases {
		if tc.f.String() != tc.name {
			t.Errorf("String() of %d = %q", tc.f, tc.f.String())
		}
		if tc.f.Bpp() != tc.bpp {
			t.Errorf("Bpp() of %v = %d", tc.f, tc.f.Bpp())
		}
		if tc.f.BytesPerPixel() != tc.bpx {
			t.Errorf("BytesPerPixel() of %v = %d", tc.f, tc.f.BytesPerPixel())
		}
		back, ok := ParsePixelFormat(tc.name)
		if !ok || back != tc.f {
			t.Errorf("ParsePixelFormat(%q) = %v, %t", tc.name, back, ok)
		}
	}
	if _, ok := ParsePixelFormat("Raw32"); ok {
		t.Error("unknown format parsed")
	}
}

func TestRecoverable(t *testing.T) {
	if Recoverable(ErrCameraClosed) {
		t.Error("closed should be fatal")
	}
	if Recoverable(ErrCameraRemoved) {
		t.Error("removed should be fatal")
	}
	if Recoverable(&InvalidIDError{ID: 3}) {
		t.Error("invalid id should be fatal")
	}
	if !Recoverable(&ExposureFailedError{}) {
		t.Error("a failed exposure should be recoverable")
	}
	if !Recoverable(ErrTimedOut) {
		t.Error("a timeout should be recoverable")
	}
}

func TestWriteFITS(t *testing.T) {
	img := &Image{
		Width:  8,
		Height: 2,
		Format: Raw16,
		Pix16:  make([]uint16, 16),
	}
	for i := range img.Pix16 {
		img.Pix16[i] = uint16(i * 1000)
	}
	buf := &bytes.Buffer{}
	if err := img.WriteFITS(buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Error("empty output")
	}
	// FITS files open with the SIMPLE card
	if !bytes.HasPrefix(buf.Bytes(), []byte("SIMPLE")) {
		t.Error("output does not look like FITS")
	}
}

func TestWriteFITSRejectsRGB(t *testing.T) {
	img := &Image{Width: 2, Height: 2, Format: RGB24, Pix8: make([]uint8, 12)}
	if err := img.WriteFITS(&bytes.Buffer{}); err == nil {
		t.Error("interleaved RGB should be rejected")
	}
}

func TestGray16(t *testing.T) {
	img := &Image{Width: 2, Height: 1, Format: Raw8, Pix8: []uint8{0, 255}}
	out := img.Gray16()
	if out[0] != 0 || out[1] != 65535 {
		t.Errorf("got %v", out)
	}

	img16 := &Image{Width: 2, Height: 1, Format: Raw16, Pix16: []uint16{1, 2}}
	if got := img16.Gray16(); got[0] != 1 || got[1] != 2 {
		t.Errorf("got %v", got)
	}
}
