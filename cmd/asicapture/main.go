// asicapture acquires a sequence of FITS frames from a ZWO ASI camera
// and writes them into dated folders.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opticslab/asicam/asi"
	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/asi/sim"
	"github.com/opticslab/asicam/camera"
	"github.com/opticslab/asicam/imgrec"

	"github.com/cenkalti/backoff"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/sirupsen/logrus"
	"github.com/theckman/yacspin"
	"golang.org/x/time/rate"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "asicapture.yml"
	k              = koanf.New(".")

	// newLib opens the camera library.  The stock build drives the
	// simulated device; a build carrying the vendor SDK swaps this for
	// the cgo-backed implementation.
	newLib = func() sdk.Lib {
		return sim.New(sim.DefaultInfo(0))
	}
)

type roi struct {
	X      int `yaml:"X"`
	Y      int `yaml:"Y"`
	Width  int `yaml:"Width"`
	Height int `yaml:"Height"`
	Bin    int `yaml:"Bin"`
}

type cooling struct {
	// Enable turns the TEC on before the sequence and off after
	Enable bool `yaml:"Enable"`

	// Setpoint is the target temperature in Celsius
	Setpoint int `yaml:"Setpoint"`
}

type config struct {
	Root         string  `yaml:"Root"`
	Prefix       string  `yaml:"Prefix"`
	Frames       int     `yaml:"Frames"`
	ExposureTime string  `yaml:"ExposureTime"`
	Gain         int     `yaml:"Gain"`
	PixelFormat  string  `yaml:"PixelFormat"`
	ROI          roi     `yaml:"ROI"`
	Cooling      cooling `yaml:"Cooling"`
}

func setupconfig() {
	k.Load(structs.Provider(config{
		Root:         ".",
		Prefix:       "frame",
		Frames:       1,
		ExposureTime: "100ms",
		Gain:         200,
		PixelFormat:  "Raw16",
		ROI:          roi{},
		Cooling:      cooling{Enable: false, Setpoint: -10}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			logrus.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `asicapture acquires FITS frames from a ZWO ASI camera.
Frames are written under dated folders below the configured root,
with a monotonic counter in each filename.

Usage:
	asicapture <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `asicapture is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  The command mkconf generates
the configuration file with the default values.

A ROI with zero width or height leaves the camera's current readout window alone.
Cooling, when enabled, is commanded before the first frame and shut off when the
sequence ends or is interrupted.  Ctrl-C cancels an in-flight exposure cleanly.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		logrus.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		logrus.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		logrus.Fatal(err)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		logrus.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		logrus.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("asicapture version %v\n", Version)
}

func setup(cam *asi.Imager, cfg config) error {
	texp, err := time.ParseDuration(cfg.ExposureTime)
	if err != nil {
		return err
	}
	settings := map[camera.Control]camera.Value{
		camera.Cnt(camera.KindExposureTime): camera.DurV(texp),
		camera.Cnt(camera.KindGain):         camera.IntV(int64(cfg.Gain)),
	}
	if cfg.PixelFormat != "" {
		pf, ok := camera.ParsePixelFormat(cfg.PixelFormat)
		if !ok {
			return fmt.Errorf("unknown pixel format %q", cfg.PixelFormat)
		}
		settings[camera.Cnt(camera.KindPixelFormat)] = camera.FmtV(pf)
	}
	if err := cam.Configure(settings); err != nil {
		return err
	}
	if cfg.ROI.Width != 0 && cfg.ROI.Height != 0 {
		bin := cfg.ROI.Bin
		if bin == 0 {
			bin = 1
		}
		err = cam.SetROI(camera.ROI{
			X: cfg.ROI.X, Y: cfg.ROI.Y,
			Width: cfg.ROI.Width, Height: cfg.ROI.Height,
			BinX: bin, BinY: bin})
		if err != nil {
			return err
		}
	}
	return nil
}

func startCooling(info asi.InfoHandle, cfg cooling, log logrus.FieldLogger) error {
	err := info.SetProperty(camera.Cnt(camera.KindCoolerTemp), camera.IntV(int64(cfg.Setpoint)), false)
	if err != nil {
		return err
	}
	if err := info.SetCooling(true); err != nil {
		return err
	}
	log.WithField("setpoint", cfg.Setpoint).Info("cooler on")
	return nil
}

// housekeeping prints thermal telemetry at a low rate until ctx ends.
// It reads through the info handle, which is safe to poll while the
// main goroutine runs exposures.
func housekeeping(ctx context.Context, info asi.InfoHandle, log logrus.FieldLogger) {
	lim := rate.NewLimiter(rate.Every(5*time.Second), 1)
	for {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		t, err := info.Temperature()
		if err != nil {
			continue
		}
		fields := logrus.Fields{"temperature": t}
		if p, err := info.CoolerPower(); err == nil {
			fields["coolerPower"] = p
		}
		log.WithFields(fields).Info("housekeeping")
	}
}

func captureOne(ctx context.Context, cam *asi.Imager, rec *imgrec.Recorder, spin *yacspin.Spinner) error {
	if err := cam.StartExposure(); err != nil {
		return err
	}
	spin.Start()
	defer spin.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		ready, err := cam.ImageReady()
		if err != nil {
			return err
		}
		if ready {
			break
		}
		if st, err := cam.CameraState(); err == nil && st.Kind == camera.Exposing {
			spin.Message(fmt.Sprintf("exposing %s", st.Elapsed.Round(time.Millisecond)))
		}
		select {
		case <-ctx.Done():
			cam.CancelCapture()
			return ctx.Err()
		case <-tick.C:
		}
	}
	img, err := cam.DownloadImage()
	if err != nil {
		return err
	}
	if err := img.WriteFITS(rec); err != nil {
		return err
	}
	rec.Incr()
	return nil
}

func run() {
	cfg := config{}
	k.Unmarshal("", &cfg)
	log := logrus.StandardLogger()

	rec := &imgrec.Recorder{Root: cfg.Root, Prefix: cfg.Prefix, Enabled: true}
	seq := &imgrec.Counter{}
	drv := asi.NewDriver(newLib(), seq, log)
	cam, info, err := drv.ConnectFirstDevice()
	if err != nil {
		log.Fatal(err)
	}
	defer cam.Close()

	if err := setup(cam, cfg); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Cooling.Enable {
		if err := startCooling(info, cfg.Cooling, log); err != nil {
			log.Fatal(err)
		}
		defer func() {
			if err := info.SetCooling(false); err != nil {
				log.WithError(err).Warn("cooler shutdown failed")
			}
		}()
		go housekeeping(ctx, info, log)
	}

	spin, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[11],
		Suffix:          " capture",
		SuffixAutoColon: true,
		StopCharacter:   "done",
	})
	if err != nil {
		log.Fatal(err)
	}

	for i := 0; i < cfg.Frames; i++ {
		op := func() error {
			err := captureOne(ctx, cam, rec, spin)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil || !camera.Recoverable(err) {
				return backoff.Permanent(err)
			}
			log.WithError(err).Warn("capture failed, retrying")
			return err
		}
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     100 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         2 * time.Second,
			MaxElapsedTime:      30 * time.Second,
			Clock:               backoff.SystemClock})
		if err != nil {
			if ctx.Err() != nil {
				log.Info("interrupted, stopping sequence")
				return
			}
			log.Fatal(err)
		}
		log.WithField("frame", i+1).Info("frame written")
	}
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		logrus.Fatal("unknown command")
	}
}
