package main

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	xgb "github.com/BurntSushi/xgbext"
	"github.com/BurntSushi/xgbext/glx"
	"github.com/BurntSushi/xgbext/randr"
	"github.com/BurntSushi/xgbext/render"
	"github.com/BurntSushi/xgbext/sync"
	"github.com/BurntSushi/xgbext/xcmisc"
)

type report struct {
	Vendor     string            `yaml:"vendor"`
	Protocol   string            `yaml:"protocol"`
	Extensions []extensionReport `yaml:"extensions"`

	Outputs  []outputReport  `yaml:"outputs,omitempty"`
	Crtcs    []crtcReport    `yaml:"crtcs,omitempty"`
	Counters []counterReport `yaml:"counters,omitempty"`

	PictFormats int    `yaml:"pict_formats,omitempty"`
	FBConfigs   int    `yaml:"fb_configs,omitempty"`
	GLVendor    string `yaml:"gl_vendor,omitempty"`
}

type extensionReport struct {
	Name        string `yaml:"name"`
	Present     bool   `yaml:"present"`
	MajorOpcode byte   `yaml:"major_opcode,omitempty"`
	FirstEvent  byte   `yaml:"first_event,omitempty"`
	FirstError  byte   `yaml:"first_error,omitempty"`
	Version     string `yaml:"version,omitempty"`
}

type outputReport struct {
	Id        uint32 `yaml:"id"`
	Name      string `yaml:"name"`
	Connected bool   `yaml:"connected"`
	Crtc      uint32 `yaml:"crtc,omitempty"`
	Mode      string `yaml:"mode,omitempty"`
}

type crtcReport struct {
	Id      uint32 `yaml:"id"`
	X       int16  `yaml:"x"`
	Y       int16  `yaml:"y"`
	Width   uint16 `yaml:"width"`
	Height  uint16 `yaml:"height"`
	Outputs int    `yaml:"outputs"`
}

type counterReport struct {
	Id         uint32 `yaml:"id"`
	Name       string `yaml:"name"`
	Resolution int64  `yaml:"resolution"`
}

type extension struct {
	name    string
	init    func(*xgb.Conn) error
	version func(*xgb.Conn) (string, error)
	details func(*xgb.Conn, *report) error
}

var extensions = []extension{
	{glx.ExtName, glx.Init, glxVersion, glxDetails},
	{randr.ExtName, randr.Init, randrVersion, randrDetails},
	{render.ExtName, render.Init, renderVersion, renderDetails},
	{sync.ExtName, sync.Init, syncVersion, syncDetails},
	{xcmisc.ExtName, xcmisc.Init, xcmiscVersion, nil},
}

// collect initializes every extension on X. A missing extension is
// reported, not treated as an error.
func collect(X *xgb.Conn) (*report, error) {
	rep := &report{
		Vendor: X.Setup.Vendor,
		Protocol: fmt.Sprintf("%d.%d",
			X.Setup.ProtocolMajorVersion, X.Setup.ProtocolMinorVersion),
	}
	for _, ext := range extensions {
		er := extensionReport{Name: ext.name}
		err := ext.init(X)
		if errors.Is(err, xgb.ErrExtensionUnavailable) {
			rep.Extensions = append(rep.Extensions, er)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ext.name, err)
		}
		e, _ := X.Extension(ext.name)
		er.Present = true
		er.MajorOpcode = e.MajorOpcode
		er.FirstEvent = e.FirstEvent
		er.FirstError = e.FirstError
		if er.Version, err = ext.version(X); err != nil {
			return nil, fmt.Errorf("%s version: %w", ext.name, err)
		}
		rep.Extensions = append(rep.Extensions, er)

		if ext.details != nil {
			if err := ext.details(X, rep); err != nil {
				return nil, fmt.Errorf("%s: %w", ext.name, err)
			}
		}
	}
	return rep, nil
}

func (rep *report) present(name string) bool {
	for _, e := range rep.Extensions {
		if e.Name == name {
			return e.Present
		}
	}
	return false
}

func (rep *report) write(w io.Writer, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "vendor: %s (protocol %s)\n", rep.Vendor, rep.Protocol)
	for _, e := range rep.Extensions {
		if !e.Present {
			fmt.Fprintf(w, "%-8s absent\n", e.Name)
			continue
		}
		fmt.Fprintf(w, "%-8s %-6s major %d, first event %d, first error %d\n",
			e.Name, e.Version, e.MajorOpcode, e.FirstEvent, e.FirstError)
	}
	for _, o := range rep.Outputs {
		state := "disconnected"
		if o.Connected {
			state = "connected " + o.Mode
		}
		fmt.Fprintf(w, "output %s: %s\n", o.Name, state)
	}
	for _, c := range rep.Crtcs {
		fmt.Fprintf(w, "crtc %d: %dx%d+%d+%d\n", c.Id, c.Width, c.Height, c.X, c.Y)
	}
	for _, c := range rep.Counters {
		fmt.Fprintf(w, "counter %s: resolution %d\n", c.Name, c.Resolution)
	}
	if rep.GLVendor != "" {
		fmt.Fprintf(w, "GL vendor %s, %d fbconfigs\n", rep.GLVendor, rep.FBConfigs)
	}
	if rep.PictFormats > 0 {
		fmt.Fprintf(w, "%d picture formats\n", rep.PictFormats)
	}
	return nil
}

func glxVersion(X *xgb.Conn) (string, error) {
	reply, err := glx.QueryVersion(X, glx.MajorVersion, glx.MinorVersion).Reply()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d", reply.MajorVersion, reply.MinorVersion), nil
}

func glxDetails(X *xgb.Conn, rep *report) error {
	screen := uint32(0)
	vendor := glx.QueryServerString(X, screen, glx.GCVendor)
	configs, err := glx.GetFBConfigs(X, screen).Reply()
	if err != nil {
		return err
	}
	rep.FBConfigs = configs.FBConfigs().Len()
	configs.Release()

	reply, err := vendor.Reply()
	if err != nil {
		return err
	}
	rep.GLVendor = reply.String
	return nil
}

func randrVersion(X *xgb.Conn) (string, error) {
	reply, err := randr.QueryVersion(X, randr.MajorVersion, randr.MinorVersion).Reply()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d", reply.MajorVersion, reply.MinorVersion), nil
}

// randrDetails reports every output with its preferred mode, and every
// crtc.
func randrDetails(X *xgb.Conn, rep *report) error {
	root, err := defaultRoot(X)
	if err != nil {
		return err
	}
	resources, err := randr.GetScreenResources(X, root).Reply()
	if err != nil {
		return err
	}
	defer resources.Release()

	modes := make(map[randr.Mode]randr.ModeInfo)
	for it := resources.Modes().Iter(); it.Next(); {
		mode := it.Value()
		modes[randr.Mode(mode.Id)] = mode
	}

	// Send every request before reading any reply.
	outputs := resources.Outputs().Slice()
	outputCookies := make([]randr.GetOutputInfoCookie, len(outputs))
	for i, output := range outputs {
		outputCookies[i] = randr.NewOutputHandle(X, uint32(output)).Info(resources.ConfigTimestamp)
	}
	crtcs := resources.Crtcs().Slice()
	crtcCookies := make([]randr.GetCrtcInfoCookie, len(crtcs))
	for i, crtc := range crtcs {
		crtcCookies[i] = randr.NewCrtcHandle(X, uint32(crtc)).Info(resources.ConfigTimestamp)
	}

	for i, cookie := range outputCookies {
		info, err := cookie.Reply()
		if err != nil {
			return err
		}
		o := outputReport{
			Id:        uint32(outputs[i]),
			Name:      info.Name(),
			Connected: info.Connection == randr.ConnectionConnected,
			Crtc:      uint32(info.Crtc),
		}
		if info.Modes().Len() > 0 {
			if mode, ok := modes[info.Modes().At(0)]; ok {
				o.Mode = fmt.Sprintf("%dx%d", mode.Width, mode.Height)
			}
		}
		info.Release()
		rep.Outputs = append(rep.Outputs, o)
	}

	for i, cookie := range crtcCookies {
		info, err := cookie.Reply()
		if err != nil {
			return err
		}
		rep.Crtcs = append(rep.Crtcs, crtcReport{
			Id:      uint32(crtcs[i]),
			X:       info.X,
			Y:       info.Y,
			Width:   info.Width,
			Height:  info.Height,
			Outputs: info.Outputs().Len(),
		})
		info.Release()
	}
	return nil
}

var errNoScreen = errors.New("the server reported no default screen")

func defaultRoot(X *xgb.Conn) (uint32, error) {
	screen := X.DefaultScreen()
	if screen == nil {
		return 0, errNoScreen
	}
	return screen.Root, nil
}

func renderVersion(X *xgb.Conn) (string, error) {
	reply, err := render.QueryVersion(X, render.MajorVersion, render.MinorVersion).Reply()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d", reply.MajorVersion, reply.MinorVersion), nil
}

func renderDetails(X *xgb.Conn, rep *report) error {
	formats, err := render.QueryPictFormats(X).Reply()
	if err != nil {
		return err
	}
	rep.PictFormats = formats.Formats().Len()
	formats.Release()
	return nil
}

func syncVersion(X *xgb.Conn) (string, error) {
	reply, err := sync.Initialize(X, sync.MajorVersion, sync.MinorVersion).Reply()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d", reply.MajorVersion, reply.MinorVersion), nil
}

func syncDetails(X *xgb.Conn, rep *report) error {
	counters, err := sync.ListSystemCounters(X).Reply()
	if err != nil {
		return err
	}
	defer counters.Release()
	for it := counters.Counters().Iter(); it.Next(); {
		c := it.Value()
		rep.Counters = append(rep.Counters, counterReport{
			Id:         uint32(c.Counter),
			Name:       c.Name,
			Resolution: c.Resolution.Value(),
		})
	}
	return nil
}

func xcmiscVersion(X *xgb.Conn) (string, error) {
	reply, err := xcmisc.GetVersion(X, xcmisc.MajorVersion, xcmisc.MinorVersion).Reply()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d", reply.ServerMajorVersion, reply.ServerMinorVersion), nil
}
