// Package render is the X Rendering extension, RENDER. Only picture
// formats and the lifetime of pictures and glyph sets are covered.
package render

import (
	"fmt"

	xgb "github.com/BurntSushi/xgbext"
)

const (
	MajorVersion = 0
	MinorVersion = 11
)

// ExtName is the name the server knows the extension by.
const ExtName = "RENDER"

// Error codes, relative to the extension's first error. RENDER has no
// events.
const (
	BadPictFormat = 0
	BadPicture    = 1
	BadPictOp     = 2
	BadGlyphSet   = 3
	BadGlyph      = 4
)

// Info describes RENDER to the extension registry.
var Info = &xgb.ExtensionInfo{
	Name: ExtName,
	Errors: map[byte]xgb.NewErrorFun{
		BadPictFormat: NewPictFormatError,
		BadPicture:    NewPictureError,
		BadPictOp:     NewPictOpError,
		BadGlyphSet:   NewGlyphSetError,
		BadGlyph:      NewGlyphError,
	},
}

// Init must be called before using the RENDER extension.
func Init(c *xgb.Conn) error {
	_, err := c.RegisterExtension(Info)
	return err
}

type (
	Picture    uint32
	Pictformat uint32
	Glyphset   uint32
)

// NewPictureId allocates an id for CreatePicture.
func NewPictureId(c *xgb.Conn) (Picture, error) {
	id, err := c.NewId()
	if err != nil {
		return 0, err
	}
	return Picture(id), nil
}

// NewGlyphsetId allocates an id for CreateGlyphSet.
func NewGlyphsetId(c *xgb.Conn) (Glyphset, error) {
	id, err := c.NewId()
	if err != nil {
		return 0, err
	}
	return Glyphset(id), nil
}

// Values of Pictforminfo.Type.
const (
	PictTypeIndexed = 0
	PictTypeDirect  = 1
)

// Bits of the CreatePicture value mask. Values follow in bit order.
const (
	CpRepeat           = 1
	CpAlphaMap         = 2
	CpAlphaXOrigin     = 4
	CpAlphaYOrigin     = 8
	CpClipXOrigin      = 16
	CpClipYOrigin      = 32
	CpClipMask         = 64
	CpGraphicsExposure = 128
	CpSubwindowMode    = 256
	CpPolyEdge         = 512
	CpPolyMode         = 1024
	CpDither           = 2048
	CpComponentAlpha   = 4096
)

// Values of the subpixel list in QueryPictFormats.
const (
	SubPixelUnknown       = 0
	SubPixelHorizontalRGB = 1
	SubPixelHorizontalBGR = 2
	SubPixelVerticalRGB   = 3
	SubPixelVerticalBGR   = 4
	SubPixelNone          = 5
)

// Directformat gives the position and size of each channel in a direct
// pixel.
type Directformat struct {
	RedShift   uint16
	RedMask    uint16
	GreenShift uint16
	GreenMask  uint16
	BlueShift  uint16
	BlueMask   uint16
	AlphaShift uint16
	AlphaMask  uint16
}

func readDirectformat(buf []byte) Directformat {
	return Directformat{
		RedShift:   xgb.Get16(buf[0:]),
		RedMask:    xgb.Get16(buf[2:]),
		GreenShift: xgb.Get16(buf[4:]),
		GreenMask:  xgb.Get16(buf[6:]),
		BlueShift:  xgb.Get16(buf[8:]),
		BlueMask:   xgb.Get16(buf[10:]),
		AlphaShift: xgb.Get16(buf[12:]),
		AlphaMask:  xgb.Get16(buf[14:]),
	}
}

// Pictforminfo describes one picture format.
type Pictforminfo struct {
	Id       Pictformat
	Type     byte
	Depth    byte
	Direct   Directformat
	Colormap uint32
}

const pictforminfoSize = 28

func readPictforminfo(buf []byte) Pictforminfo {
	return Pictforminfo{
		Id:       Pictformat(xgb.Get32(buf[0:])),
		Type:     buf[4],
		Depth:    buf[5],
		Direct:   readDirectformat(buf[8:]),
		Colormap: xgb.Get32(buf[24:]),
	}
}

// Pictvisual maps a visual to its picture format.
type Pictvisual struct {
	Visual uint32
	Format Pictformat
}

// Pictdepth lists the visuals of one depth.
type Pictdepth struct {
	Depth   byte
	Visuals []Pictvisual
}

// Pictscreen lists the depths of one screen.
type Pictscreen struct {
	Fallback Pictformat
	Depths   []Pictdepth
}

// readPictscreen decodes a screen whose extent was already checked.
func readPictscreen(buf []byte) Pictscreen {
	s := Pictscreen{Fallback: Pictformat(xgb.Get32(buf[4:]))}
	n := int(xgb.Get32(buf[0:]))
	b := 8
	for i := 0; i < n; i++ {
		d := Pictdepth{Depth: buf[b]}
		nv := int(xgb.Get16(buf[b+2:]))
		b += 8
		for j := 0; j < nv; j++ {
			d.Visuals = append(d.Visuals, Pictvisual{
				Visual: xgb.Get32(buf[b:]),
				Format: Pictformat(xgb.Get32(buf[b+4:])),
			})
			b += 8
		}
		s.Depths = append(s.Depths, d)
	}
	return s
}

// pictscreenSize checks the screen at buf[off:] and returns its size.
func pictscreenSize(what string, buf []byte, off int) (int, error) {
	if err := xgb.CheckExtent(what, buf, off+8); err != nil {
		return 0, err
	}
	n := int(xgb.Get32(buf[off:]))
	b := off + 8
	for i := 0; i < n; i++ {
		if err := xgb.CheckExtent(what, buf, b+8); err != nil {
			return 0, err
		}
		b += 8 + 8*int(xgb.Get16(buf[b+2:]))
		if err := xgb.CheckExtent(what, buf, b); err != nil {
			return 0, err
		}
	}
	return b - off, nil
}

// PictFormatError is the RENDER PictFormat error.
type PictFormatError struct {
	xgb.ProtocolError
}

func NewPictFormatError(buf []byte) xgb.Error {
	return PictFormatError{xgb.NewProtocolError("BadPictFormat", buf)}
}

type PictureError struct {
	xgb.ProtocolError
}

func NewPictureError(buf []byte) xgb.Error {
	return PictureError{xgb.NewProtocolError("BadPicture", buf)}
}

type PictOpError struct {
	xgb.ProtocolError
}

func NewPictOpError(buf []byte) xgb.Error {
	return PictOpError{xgb.NewProtocolError("BadPictOp", buf)}
}

type GlyphSetError struct {
	xgb.ProtocolError
}

func NewGlyphSetError(buf []byte) xgb.Error {
	return GlyphSetError{xgb.NewProtocolError("BadGlyphSet", buf)}
}

type GlyphError struct {
	xgb.ProtocolError
}

func NewGlyphError(buf []byte) xgb.Error {
	return GlyphError{xgb.NewProtocolError("BadGlyph", buf)}
}

// PictureHandle binds a picture id to its connection.
type PictureHandle struct {
	xgb.Handle[Picture]
}

func NewPictureHandle(c *xgb.Conn, raw uint32) PictureHandle {
	return PictureHandle{xgb.MakeHandle[Picture](c, raw)}
}

func (h PictureHandle) Free() FreePictureCookie {
	return FreePicture(h.Conn(), h.Id())
}

func (h PictureHandle) FreeChecked() FreePictureCookie {
	return FreePictureChecked(h.Conn(), h.Id())
}

func (h PictureHandle) String() string {
	return fmt.Sprintf("Picture(0x%x)", uint32(h.Id()))
}

// GlyphSetHandle binds a glyph set id to its connection.
type GlyphSetHandle struct {
	xgb.Handle[Glyphset]
}

func NewGlyphSetHandle(c *xgb.Conn, raw uint32) GlyphSetHandle {
	return GlyphSetHandle{xgb.MakeHandle[Glyphset](c, raw)}
}

func (h GlyphSetHandle) Free() FreeGlyphSetCookie {
	return FreeGlyphSet(h.Conn(), h.Id())
}

func (h GlyphSetHandle) FreeChecked() FreeGlyphSetCookie {
	return FreeGlyphSetChecked(h.Conn(), h.Id())
}
