// Package glx is the OpenGL extension to X, GLX. It covers version and
// context management, server strings and framebuffer configurations; GL
// rendering commands are not included.
package glx

import (
	"fmt"

	xgb "github.com/BurntSushi/xgbext"
)

const (
	MajorVersion = 1
	MinorVersion = 4
)

// ExtName is the name the server knows the extension by.
const ExtName = "GLX"

// Event codes, relative to the extension's first event.
const (
	PbufferClobber     = 0
	BufferSwapComplete = 1
)

// Error codes, relative to the extension's first error.
const (
	BadContext                = 0
	BadContextState           = 1
	BadDrawable               = 2
	BadPixmap                 = 3
	BadContextTag             = 4
	BadCurrentWindow          = 5
	BadRenderRequest          = 6
	BadLargeRequest           = 7
	UnsupportedPrivateRequest = 8
	BadFBConfig               = 9
	BadPbuffer                = 10
	BadCurrentDrawable        = 11
	BadWindow                 = 12
	GLXBadProfileARB          = 13
)

// Info describes GLX to the extension registry. The protocol also names a
// Generic error one below the first error code; no server sends it, so it
// has no entry here and GenericError is the base of the others instead.
var Info = &xgb.ExtensionInfo{
	Name: ExtName,
	Events: map[byte]xgb.NewEventFun{
		PbufferClobber:     NewPbufferClobberEvent,
		BufferSwapComplete: NewBufferSwapCompleteEvent,
	},
	Errors: map[byte]xgb.NewErrorFun{
		BadContext:                errorFun[BadContextError]("BadContext"),
		BadContextState:           errorFun[BadContextStateError]("BadContextState"),
		BadDrawable:               errorFun[BadDrawableError]("BadDrawable"),
		BadPixmap:                 errorFun[BadPixmapError]("BadPixmap"),
		BadContextTag:             errorFun[BadContextTagError]("BadContextTag"),
		BadCurrentWindow:          errorFun[BadCurrentWindowError]("BadCurrentWindow"),
		BadRenderRequest:          errorFun[BadRenderRequestError]("BadRenderRequest"),
		BadLargeRequest:           errorFun[BadLargeRequestError]("BadLargeRequest"),
		UnsupportedPrivateRequest: errorFun[UnsupportedPrivateRequestError]("UnsupportedPrivateRequest"),
		BadFBConfig:               errorFun[BadFBConfigError]("BadFBConfig"),
		BadPbuffer:                errorFun[BadPbufferError]("BadPbuffer"),
		BadCurrentDrawable:        errorFun[BadCurrentDrawableError]("BadCurrentDrawable"),
		BadWindow:                 errorFun[BadWindowError]("BadWindow"),
		GLXBadProfileARB:          errorFun[GLXBadProfileARBError]("GLXBadProfileARB"),
	},
}

// Init must be called before using the GLX extension.
func Init(c *xgb.Conn) error {
	_, err := c.RegisterExtension(Info)
	return err
}

type (
	Context  uint32
	Fbconfig uint32
)

// NewContextId allocates an id for CreateContext.
func NewContextId(c *xgb.Conn) (Context, error) {
	id, err := c.NewId()
	if err != nil {
		return 0, err
	}
	return Context(id), nil
}

// Names for QueryServerString.
const (
	GCVendor     = 1
	GCVersion    = 2
	GCExtensions = 3
)

// Some FBConfig attributes.
const (
	AttrBufferSize   = 2
	AttrDoublebuffer = 5
	AttrRedSize      = 8
	AttrGreenSize    = 9
	AttrBlueSize     = 10
	AttrAlphaSize    = 11
	AttrDepthSize    = 12
	AttrVisualID     = 0x800B
	AttrDrawableType = 0x8010
	AttrRenderType   = 0x8011
	AttrFBConfigID   = 0x8013
)

// PbufferClobberEvent reports that part of a pbuffer was damaged or saved.
type PbufferClobberEvent struct {
	Sequence  uint16
	EventType uint16
	DrawType  uint16
	Drawable  uint32
	BMask     uint32
	AuxBuffer uint16
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	Count     uint16

	buf []byte
}

// NewPbufferClobberEvent constructs a PbufferClobberEvent value that
// implements xgb.Event from a byte slice.
func NewPbufferClobberEvent(buf []byte) xgb.Event {
	return PbufferClobberEvent{
		Sequence:  xgb.Get16(buf[2:]),
		EventType: xgb.Get16(buf[4:]),
		DrawType:  xgb.Get16(buf[6:]),
		Drawable:  xgb.Get32(buf[8:]),
		BMask:     xgb.Get32(buf[12:]),
		AuxBuffer: xgb.Get16(buf[16:]),
		X:         xgb.Get16(buf[18:]),
		Y:         xgb.Get16(buf[20:]),
		Width:     xgb.Get16(buf[22:]),
		Height:    xgb.Get16(buf[24:]),
		Count:     xgb.Get16(buf[26:]),
		buf:       buf,
	}
}

func (v PbufferClobberEvent) Bytes() []byte { return v.buf }

func (v PbufferClobberEvent) String() string {
	return fmt.Sprintf("PbufferClobber {Sequence: %d, EventType: %d, "+
		"Drawable: %d, X: %d, Y: %d, Width: %d, Height: %d, Count: %d}",
		v.Sequence, v.EventType, v.Drawable, v.X, v.Y, v.Width, v.Height, v.Count)
}

// BufferSwapCompleteEvent reports a finished swap. The counters are split
// into 32 bit halves on the wire; Ust and Msc join them.
type BufferSwapCompleteEvent struct {
	Sequence  uint16
	EventType uint16
	Drawable  uint32
	UstHi     uint32
	UstLo     uint32
	MscHi     uint32
	MscLo     uint32
	Sbc       uint32

	buf []byte
}

// NewBufferSwapCompleteEvent constructs a BufferSwapCompleteEvent value that
// implements xgb.Event from a byte slice.
func NewBufferSwapCompleteEvent(buf []byte) xgb.Event {
	return BufferSwapCompleteEvent{
		Sequence:  xgb.Get16(buf[2:]),
		EventType: xgb.Get16(buf[4:]),
		Drawable:  xgb.Get32(buf[8:]),
		UstHi:     xgb.Get32(buf[12:]),
		UstLo:     xgb.Get32(buf[16:]),
		MscHi:     xgb.Get32(buf[20:]),
		MscLo:     xgb.Get32(buf[24:]),
		Sbc:       xgb.Get32(buf[28:]),
		buf:       buf,
	}
}

func (v BufferSwapCompleteEvent) Ust() uint64 { return uint64(v.UstHi)<<32 | uint64(v.UstLo) }
func (v BufferSwapCompleteEvent) Msc() uint64 { return uint64(v.MscHi)<<32 | uint64(v.MscLo) }

func (v BufferSwapCompleteEvent) Bytes() []byte { return v.buf }

func (v BufferSwapCompleteEvent) String() string {
	return fmt.Sprintf("BufferSwapComplete {Sequence: %d, EventType: %d, "+
		"Drawable: %d, Ust: %d, Msc: %d, Sbc: %d}",
		v.Sequence, v.EventType, v.Drawable, v.Ust(), v.Msc(), v.Sbc)
}

// Error is implemented by every GLX error. Match it with errors.As to
// handle GLX errors as a group.
type Error interface {
	xgb.Error
	Generic() GenericError
}

// GenericError is the layout all GLX errors share.
type GenericError struct {
	xgb.ProtocolError
}

// Generic returns the shared part of a GLX error.
func (err GenericError) Generic() GenericError { return err }

type (
	BadContextError                struct{ GenericError }
	BadContextStateError           struct{ GenericError }
	BadDrawableError               struct{ GenericError }
	BadPixmapError                 struct{ GenericError }
	BadContextTagError             struct{ GenericError }
	BadCurrentWindowError          struct{ GenericError }
	BadRenderRequestError          struct{ GenericError }
	BadLargeRequestError           struct{ GenericError }
	UnsupportedPrivateRequestError struct{ GenericError }
	BadFBConfigError               struct{ GenericError }
	BadPbufferError                struct{ GenericError }
	BadCurrentDrawableError        struct{ GenericError }
	BadWindowError                 struct{ GenericError }
	GLXBadProfileARBError          struct{ GenericError }
)

// errorFun builds the constructor of a GLX error type.
func errorFun[E ~struct{ GenericError }](name string) xgb.NewErrorFun {
	return func(buf []byte) xgb.Error {
		err := E{GenericError{xgb.NewProtocolError(name, buf)}}
		return any(err).(xgb.Error)
	}
}

// ContextHandle binds a GLX context id to its connection.
type ContextHandle struct {
	xgb.Handle[Context]
}

func NewContextHandle(c *xgb.Conn, raw uint32) ContextHandle {
	return ContextHandle{xgb.MakeHandle[Context](c, raw)}
}

func (h ContextHandle) Destroy() DestroyContextCookie {
	return DestroyContext(h.Conn(), h.Id())
}

func (h ContextHandle) DestroyChecked() DestroyContextCookie {
	return DestroyContextChecked(h.Conn(), h.Id())
}

func (h ContextHandle) IsDirect() IsDirectCookie {
	return IsDirect(h.Conn(), h.Id())
}
