package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/opticslab/asicam/asi"
	"github.com/opticslab/asicam/asi/sdk"
	"github.com/opticslab/asicam/asi/sim"
	"github.com/opticslab/asicam/camera"
	httpcam "github.com/opticslab/asicam/generichttp/camera"
	"github.com/opticslab/asicam/imgrec"
	"github.com/opticslab/asicam/server"
	"github.com/opticslab/asicam/server/middleware/locker"

	"github.com/go-chi/chi"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/sirupsen/logrus"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "asicam-http.yml"
	k              = koanf.New(".")

	// newLib opens the camera library.  The stock build serves the
	// simulated device; a build carrying the vendor SDK swaps this for
	// the cgo-backed implementation.
	newLib = func(n int) sdk.Lib {
		infos := make([]sdk.CameraInfo, n)
		for i := 0; i < n; i++ {
			infos[i] = sim.DefaultInfo(i)
		}
		return sim.New(infos...)
	}
)

type recorder struct {
	// Root is the root folder to write to
	Root string `yaml:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"Prefix"`
}

type config struct {
	Addr         string                 `yaml:"Addr"`
	Root         string                 `yaml:"Root"`
	SerialNumber string                 `yaml:"SerialNumber"`
	SimCameras   int                    `yaml:"SimCameras"`
	Recorder     recorder               `yaml:"Recorder"`
	BootupArgs   map[string]interface{} `yaml:"BootupArgs"`
}

func setupconfig() {
	k.Load(structs.Provider(config{
		Addr:         ":8000",
		Root:         "/",
		SerialNumber: "auto",
		SimCameras:   1,
		Recorder:     recorder{},
		BootupArgs: map[string]interface{}{
			"Gain":            200,
			"ExposureTime":    "10ms",
			"CoolerTemp":      -15,
			"CoolerEnable":    true,
			"HighSpeedMode":   false,
			"AutoExposureMax": "30s"}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			logrus.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `asicam-http exposes control of ZWO ASI cameras over HTTP
This enables a server-client architecture,
and the clients can leverage the excellent HTTP
libraries for any programming language,
instead of custom socket logic.

Usage:
	asicam-http <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `asicam-http is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  Keys are not case-sensitive.
The command mkconf generates the configuration file with the default values.
There is no need to do this unless you want to start from the prepopulated defaults when making
a config file.

If for some reason there is an error during server bootup, it may be that a control is not supported
by the camera.  Modify the BootupArgs portion of the config to remove the offending entries.

serialNumber 'auto' causes the server to pick the first connected camera.  Otherwise the server
scans the connected cameras for one whose factory serial matches.`
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
	fmt.Printf("asicam-http version %v\n", Version)
}

// bootArgs coerces the yaml-typed BootupArgs map into control writes.
// Values are interpreted according to the property the camera reports
// for each name, so "10ms" and 0.01 both work for durations.
func bootArgs(cam *asi.Imager, args map[string]interface{}) (map[camera.Control]camera.Value, error) {
	props := cam.ListProperties()
	out := make(map[camera.Control]camera.Value, len(args))
	for name, raw := range args {
		ctl, err := camera.ParseControl(name)
		if err != nil {
			return nil, err
		}
		prop, ok := props[ctl]
		if !ok {
			return nil, fmt.Errorf("camera does not expose %s", name)
		}
		v, err := coerce(prop, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[ctl] = v
	}
	return out, nil
}

func coerce(p camera.Property, raw interface{}) (camera.Value, error) {
	switch p.Type {
	case camera.PropInt:
		switch t := raw.(type) {
		case int:
			return camera.IntV(int64(t)), nil
		case int64:
			return camera.IntV(t), nil
		case float64:
			return camera.IntV(int64(t)), nil
		}
	case camera.PropFloat:
		switch t := raw.(type) {
		case int:
			return camera.FloatV(float64(t)), nil
		case float64:
			return camera.FloatV(t), nil
		}
	case camera.PropBool:
		if b, ok := raw.(bool); ok {
			return camera.BoolV(b), nil
		}
	case camera.PropDuration:
		switch t := raw.(type) {
		case string:
			d, err := time.ParseDuration(t)
			return camera.DurV(d), err
		case int:
			return camera.DurV(time.Duration(t) * time.Second), nil
		case float64:
			return camera.DurV(time.Duration(t * float64(time.Second))), nil
		}
	case camera.PropPixelFormat:
		if s, ok := raw.(string); ok {
			pf, ok := camera.ParsePixelFormat(s)
			if !ok {
				return camera.Value{}, fmt.Errorf("unknown pixel format %q", s)
			}
			return camera.FmtV(pf), nil
		}
	case camera.PropEnumStr:
		if s, ok := raw.(string); ok {
			return camera.StrV(s), nil
		}
	}
	return camera.Value{}, fmt.Errorf("cannot use %v (%T) for a %s control", raw, raw, p.Type)
}

func run() {
	cfg := config{}
	k.Unmarshal("", &cfg)
	log := logrus.StandardLogger()

	args := cfg.Recorder
	rec := &imgrec.Recorder{Root: args.Root, Prefix: args.Prefix}
	seq := &imgrec.Counter{}

	lib := newLib(cfg.SimCameras)
	drv := asi.NewDriver(lib, seq, log)

	var (
		cam  *asi.Imager
		info asi.InfoHandle
		err  error
	)
	if cfg.SerialNumber == "auto" {
		cam, info, err = drv.ConnectFirstDevice()
	} else {
		descs, lerr := drv.ListDevices()
		if lerr != nil {
			log.Fatal(lerr)
		}
		for _, d := range descs {
			if d.Serial == cfg.SerialNumber {
				cam, info, err = drv.ConnectDevice(d)
				break
			}
		}
		if cam == nil && err == nil {
			log.Fatalf("no connected camera has serial %s", cfg.SerialNumber)
		}
	}
	if err != nil {
		log.Fatal(err)
	}
	defer cam.Close()

	settings, err := bootArgs(cam, cfg.BootupArgs)
	if err != nil {
		log.Fatal(err)
	}
	if err := cam.Configure(settings); err != nil {
		log.Fatal(err)
	}

	w := httpcam.NewHTTPCamera(cam, rec)
	httpcam.InjectThermal(w, info)
	lk := locker.New()
	locker.Inject(w, lk)
	rw := imgrec.NewHTTPWrapper(rec)
	rw.Inject(w)

	// clean up the submux string
	hndlrS := server.SubMuxSanitize(cfg.Root)
	rootR := chi.NewRouter()
	rootR.Use(lk.Check)
	rootR.Mount(hndlrS, server.Build(w))
	addr := cfg.Addr + cfg.Root
	log.Println("now listening for requests at ", addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, rootR))
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
