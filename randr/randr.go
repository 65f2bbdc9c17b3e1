// Package randr is the X Resize, Rotate and Reflect extension, RandR.
package randr

import (
	"fmt"

	xgb "github.com/BurntSushi/xgbext"
)

const (
	MajorVersion = 1
	MinorVersion = 5
)

// ExtName is the name the server knows the extension by.
const ExtName = "RANDR"

// Event codes, relative to the extension's first event.
const (
	ScreenChangeNotify = 0
	Notify             = 1
)

// Error codes, relative to the extension's first error.
const (
	BadOutput   = 0
	BadCrtc     = 1
	BadMode     = 2
	BadProvider = 3
)

// Info describes RANDR to the extension registry.
var Info = &xgb.ExtensionInfo{
	Name: ExtName,
	Events: map[byte]xgb.NewEventFun{
		ScreenChangeNotify: NewScreenChangeNotifyEvent,
		Notify:             NewNotifyEvent,
	},
	Errors: map[byte]xgb.NewErrorFun{
		BadOutput:   NewBadOutputError,
		BadCrtc:     NewBadCrtcError,
		BadMode:     NewBadModeError,
		BadProvider: NewBadProviderError,
	},
}

// Init must be called before using the RANDR extension.
func Init(c *xgb.Conn) error {
	_, err := c.RegisterExtension(Info)
	return err
}

type (
	Crtc     uint32
	Output   uint32
	Mode     uint32
	Provider uint32
)

// Bits for SelectInput.
const (
	NotifyMaskScreenChange     = 1
	NotifyMaskCrtcChange       = 2
	NotifyMaskOutputChange     = 4
	NotifyMaskOutputProperty   = 8
	NotifyMaskProviderChange   = 16
	NotifyMaskProviderProperty = 32
	NotifyMaskResourceChange   = 64
)

// Rotation bits.
const (
	RotationRotate0   = 1
	RotationRotate90  = 2
	RotationRotate180 = 4
	RotationRotate270 = 8
	RotationReflectX  = 16
	RotationReflectY  = 32
)

// Values of OutputInfo.Connection.
const (
	ConnectionConnected    = 0
	ConnectionDisconnected = 1
	ConnectionUnknown      = 2
)

// Notify sub-codes.
const (
	NotifyCrtcChange   = 0
	NotifyOutputChange = 1
)

// ModeInfo is the timing of one display mode. The name is kept apart, in
// the names of the reply that lists the mode.
type ModeInfo struct {
	Id         uint32
	Width      uint16
	Height     uint16
	DotClock   uint32
	HsyncStart uint16
	HsyncEnd   uint16
	Htotal     uint16
	Hskew      uint16
	VsyncStart uint16
	VsyncEnd   uint16
	Vtotal     uint16
	NameLen    uint16
	ModeFlags  uint32
}

const modeInfoSize = 32

func readModeInfo(buf []byte) ModeInfo {
	return ModeInfo{
		Id:         xgb.Get32(buf[0:]),
		Width:      xgb.Get16(buf[4:]),
		Height:     xgb.Get16(buf[6:]),
		DotClock:   xgb.Get32(buf[8:]),
		HsyncStart: xgb.Get16(buf[12:]),
		HsyncEnd:   xgb.Get16(buf[14:]),
		Htotal:     xgb.Get16(buf[16:]),
		Hskew:      xgb.Get16(buf[18:]),
		VsyncStart: xgb.Get16(buf[20:]),
		VsyncEnd:   xgb.Get16(buf[22:]),
		Vtotal:     xgb.Get16(buf[24:]),
		NameLen:    xgb.Get16(buf[26:]),
		ModeFlags:  xgb.Get32(buf[28:]),
	}
}

// ScreenChangeNotifyEvent is sent when the screen's size or rotation
// changes.
type ScreenChangeNotifyEvent struct {
	Sequence        uint16
	Rotation        byte
	Timestamp       uint32
	ConfigTimestamp uint32
	Root            uint32
	RequestWindow   uint32
	SizeID          uint16
	SubpixelOrder   uint16
	Width           uint16
	Height          uint16
	Mwidth          uint16
	Mheight         uint16

	buf []byte
}

// NewScreenChangeNotifyEvent constructs a ScreenChangeNotifyEvent value
// that implements xgb.Event from a byte slice.
func NewScreenChangeNotifyEvent(buf []byte) xgb.Event {
	return ScreenChangeNotifyEvent{
		Rotation:        buf[1],
		Sequence:        xgb.Get16(buf[2:]),
		Timestamp:       xgb.Get32(buf[4:]),
		ConfigTimestamp: xgb.Get32(buf[8:]),
		Root:            xgb.Get32(buf[12:]),
		RequestWindow:   xgb.Get32(buf[16:]),
		SizeID:          xgb.Get16(buf[20:]),
		SubpixelOrder:   xgb.Get16(buf[22:]),
		Width:           xgb.Get16(buf[24:]),
		Height:          xgb.Get16(buf[26:]),
		Mwidth:          xgb.Get16(buf[28:]),
		Mheight:         xgb.Get16(buf[30:]),
		buf:             buf,
	}
}

func (v ScreenChangeNotifyEvent) Bytes() []byte { return v.buf }

func (v ScreenChangeNotifyEvent) String() string {
	return fmt.Sprintf("ScreenChangeNotify {Sequence: %d, Rotation: %d, "+
		"Root: %d, Width: %d, Height: %d, Mwidth: %d, Mheight: %d}",
		v.Sequence, v.Rotation, v.Root, v.Width, v.Height, v.Mwidth, v.Mheight)
}

// NotifyEvent carries one of several changes, told apart by SubCode. Use
// CrtcChange or OutputChange to read the union.
type NotifyEvent struct {
	Sequence uint16
	SubCode  byte

	buf []byte
}

// NewNotifyEvent constructs a NotifyEvent value that implements xgb.Event
// from a byte slice.
func NewNotifyEvent(buf []byte) xgb.Event {
	return NotifyEvent{
		SubCode:  buf[1],
		Sequence: xgb.Get16(buf[2:]),
		buf:      buf,
	}
}

func (v NotifyEvent) Bytes() []byte { return v.buf }

func (v NotifyEvent) String() string {
	switch v.SubCode {
	case NotifyCrtcChange:
		cc, _ := v.CrtcChange()
		return fmt.Sprintf("Notify {Sequence: %d, CrtcChange: %+v}", v.Sequence, cc)
	case NotifyOutputChange:
		oc, _ := v.OutputChange()
		return fmt.Sprintf("Notify {Sequence: %d, OutputChange: %+v}", v.Sequence, oc)
	}
	return fmt.Sprintf("Notify {Sequence: %d, SubCode: %d}", v.Sequence, v.SubCode)
}

type CrtcChange struct {
	Timestamp uint32
	Window    uint32
	Crtc      Crtc
	Mode      Mode
	Rotation  uint16
	X         int16
	Y         int16
	Width     uint16
	Height    uint16
}

// CrtcChange reads the union as a CrtcChange. ok is false for other sub
// codes.
func (v NotifyEvent) CrtcChange() (cc CrtcChange, ok bool) {
	if v.SubCode != NotifyCrtcChange {
		return cc, false
	}
	b := v.buf
	return CrtcChange{
		Timestamp: xgb.Get32(b[4:]),
		Window:    xgb.Get32(b[8:]),
		Crtc:      Crtc(xgb.Get32(b[12:])),
		Mode:      Mode(xgb.Get32(b[16:])),
		Rotation:  xgb.Get16(b[20:]),
		X:         int16(xgb.Get16(b[24:])),
		Y:         int16(xgb.Get16(b[26:])),
		Width:     xgb.Get16(b[28:]),
		Height:    xgb.Get16(b[30:]),
	}, true
}

type OutputChange struct {
	Timestamp       uint32
	ConfigTimestamp uint32
	Window          uint32
	Output          Output
	Crtc            Crtc
	Mode            Mode
	Rotation        uint16
	Connection      byte
	SubpixelOrder   byte
}

// OutputChange reads the union as an OutputChange.
func (v NotifyEvent) OutputChange() (oc OutputChange, ok bool) {
	if v.SubCode != NotifyOutputChange {
		return oc, false
	}
	b := v.buf
	return OutputChange{
		Timestamp:       xgb.Get32(b[4:]),
		ConfigTimestamp: xgb.Get32(b[8:]),
		Window:          xgb.Get32(b[12:]),
		Output:          Output(xgb.Get32(b[16:])),
		Crtc:            Crtc(xgb.Get32(b[20:])),
		Mode:            Mode(xgb.Get32(b[24:])),
		Rotation:        xgb.Get16(b[28:]),
		Connection:      b[30],
		SubpixelOrder:   b[31],
	}, true
}

type BadOutputError struct {
	xgb.ProtocolError
}

func NewBadOutputError(buf []byte) xgb.Error {
	return BadOutputError{xgb.NewProtocolError("BadOutput", buf)}
}

type BadCrtcError struct {
	xgb.ProtocolError
}

func NewBadCrtcError(buf []byte) xgb.Error {
	return BadCrtcError{xgb.NewProtocolError("BadCrtc", buf)}
}

type BadModeError struct {
	xgb.ProtocolError
}

func NewBadModeError(buf []byte) xgb.Error {
	return BadModeError{xgb.NewProtocolError("BadMode", buf)}
}

type BadProviderError struct {
	xgb.ProtocolError
}

func NewBadProviderError(buf []byte) xgb.Error {
	return BadProviderError{xgb.NewProtocolError("BadProvider", buf)}
}

// CrtcHandle binds a CRTC id to its connection.
type CrtcHandle struct {
	xgb.Handle[Crtc]
}

func NewCrtcHandle(c *xgb.Conn, raw uint32) CrtcHandle {
	return CrtcHandle{xgb.MakeHandle[Crtc](c, raw)}
}

// Info asks for the CRTC's configuration as of ConfigTimestamp.
func (h CrtcHandle) Info(ConfigTimestamp uint32) GetCrtcInfoCookie {
	return GetCrtcInfo(h.Conn(), h.Id(), ConfigTimestamp)
}

// OutputHandle binds an output id to its connection.
type OutputHandle struct {
	xgb.Handle[Output]
}

func NewOutputHandle(c *xgb.Conn, raw uint32) OutputHandle {
	return OutputHandle{xgb.MakeHandle[Output](c, raw)}
}

func (h OutputHandle) Info(ConfigTimestamp uint32) GetOutputInfoCookie {
	return GetOutputInfo(h.Conn(), h.Id(), ConfigTimestamp)
}
