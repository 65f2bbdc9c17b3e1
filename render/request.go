package render

import (
	"errors"
	"fmt"

	xgb "github.com/BurntSushi/xgbext"
)

// ErrValueList is matched by the local error of a CreatePicture whose value
// list does not have one value per bit of its mask.
var ErrValueList = errors.New("render: value list does not match value mask")

// Minor opcodes.
const (
	opQueryVersion     = 0
	opQueryPictFormats = 1
	opCreatePicture    = 4
	opFreePicture      = 7
	opCreateGlyphSet   = 17
	opFreeGlyphSet     = 19
)

// QueryVersionCookie is a cookie used only for QueryVersion requests.
type QueryVersionCookie struct {
	*xgb.Cookie
}

// QueryVersion sends a checked request.
// If an error occurs, it will be returned with the reply by calling QueryVersionCookie.Reply()
func QueryVersion(c *xgb.Conn, ClientMajorVersion uint32, ClientMinorVersion uint32) QueryVersionCookie {
	return QueryVersionCookie{c.SendExtensionRequest(ExtName, true, true,
		queryVersionRequest(ClientMajorVersion, ClientMinorVersion))}
}

// QueryVersionUnchecked sends an unchecked request.
// If an error occurs, it can only be retrieved using xgb.WaitForEvent or xgb.PollForEvent.
func QueryVersionUnchecked(c *xgb.Conn, ClientMajorVersion uint32, ClientMinorVersion uint32) QueryVersionCookie {
	return QueryVersionCookie{c.SendExtensionRequest(ExtName, false, true,
		queryVersionRequest(ClientMajorVersion, ClientMinorVersion))}
}

// QueryVersionReply represents the data returned from a QueryVersion request.
type QueryVersionReply struct {
	Sequence     uint16 // sequence number of the request for this reply
	Length       uint32 // number of bytes in this reply
	MajorVersion uint32
	MinorVersion uint32
}

// Reply blocks and returns the reply data for a QueryVersion request.
func (cook QueryVersionCookie) Reply() (*QueryVersionReply, error) {
	return xgb.DecodeReply(cook.Cookie, func(buf []byte) (*QueryVersionReply, error) {
		if err := xgb.CheckExtent("QueryVersion reply", buf, 16); err != nil {
			return nil, err
		}
		return &QueryVersionReply{
			Sequence:     xgb.Get16(buf[2:]),
			Length:       xgb.Get32(buf[4:]),
			MajorVersion: xgb.Get32(buf[8:]),
			MinorVersion: xgb.Get32(buf[12:]),
		}, nil
	})
}

func queryVersionRequest(ClientMajorVersion uint32, ClientMinorVersion uint32) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 12)
		xgb.RequestHeader(buf, major, opQueryVersion)
		xgb.Put32(buf[4:], ClientMajorVersion)
		xgb.Put32(buf[8:], ClientMinorVersion)
		return buf
	}
}

// QueryPictFormatsCookie is a cookie used only for QueryPictFormats
// requests.
type QueryPictFormatsCookie struct {
	*xgb.Cookie
}

// QueryPictFormats sends a checked request.
func QueryPictFormats(c *xgb.Conn) QueryPictFormatsCookie {
	return QueryPictFormatsCookie{c.SendExtensionRequest(ExtName, true, true,
		queryPictFormatsRequest)}
}

// QueryPictFormatsUnchecked sends an unchecked request.
func QueryPictFormatsUnchecked(c *xgb.Conn) QueryPictFormatsCookie {
	return QueryPictFormatsCookie{c.SendExtensionRequest(ExtName, false, true,
		queryPictFormatsRequest)}
}

// QueryPictFormatsReply represents the data returned from a
// QueryPictFormats request. Its lists read from the reply buffer until
// Release.
type QueryPictFormatsReply struct {
	Sequence    uint16
	Length      uint32
	NumFormats  uint32
	NumScreens  uint32
	NumDepths   uint32
	NumVisuals  uint32
	NumSubpixel uint32

	reply     *xgb.Reply
	screens   []int
	subpixels int
}

// Reply blocks and returns the reply data for a QueryPictFormats request.
func (cook QueryPictFormatsCookie) Reply() (*QueryPictFormatsReply, error) {
	return xgb.DecodeListReply(cook.Cookie, queryPictFormatsReply)
}

// queryPictFormatsReply checks the three lists once. Screens vary in size,
// so their offsets are kept.
func queryPictFormatsReply(reply *xgb.Reply) (*QueryPictFormatsReply, error) {
	const what = "QueryPictFormats reply"
	buf := reply.Bytes()
	if err := xgb.CheckExtent(what, buf, 32); err != nil {
		return nil, err
	}
	v := &QueryPictFormatsReply{
		Sequence:    xgb.Get16(buf[2:]),
		Length:      xgb.Get32(buf[4:]),
		NumFormats:  xgb.Get32(buf[8:]),
		NumScreens:  xgb.Get32(buf[12:]),
		NumDepths:   xgb.Get32(buf[16:]),
		NumVisuals:  xgb.Get32(buf[20:]),
		NumSubpixel: xgb.Get32(buf[24:]),
		reply:       reply,
	}

	b := 32 + pictforminfoSize*int(v.NumFormats)
	if err := xgb.CheckExtent(what, buf, b); err != nil {
		return nil, err
	}
	for i := 0; i < int(v.NumScreens); i++ {
		size, err := pictscreenSize(what, buf, b)
		if err != nil {
			return nil, err
		}
		v.screens = append(v.screens, b)
		b += size
	}
	v.subpixels = b
	if err := xgb.CheckExtent(what, buf, b+4*int(v.NumSubpixel)); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *QueryPictFormatsReply) Formats() xgb.List[Pictforminfo] {
	return xgb.NewList(v.reply,
		func(buf []byte, i int) Pictforminfo { return readPictforminfo(buf[32+pictforminfoSize*i:]) },
		func([]byte) int { return int(v.NumFormats) })
}

// Screens are in screen order. Each element is decoded in full on access.
func (v *QueryPictFormatsReply) Screens() xgb.List[Pictscreen] {
	return xgb.NewList(v.reply,
		func(buf []byte, i int) Pictscreen { return readPictscreen(buf[v.screens[i]:]) },
		func([]byte) int { return len(v.screens) })
}

// Subpixels holds one SubPixel value per screen.
func (v *QueryPictFormatsReply) Subpixels() xgb.List[uint32] {
	return xgb.NewList(v.reply,
		func(buf []byte, i int) uint32 { return xgb.Get32(buf[v.subpixels+4*i:]) },
		func([]byte) int { return int(v.NumSubpixel) })
}

// FindVisualFormat returns the format of visual on any screen.
func (v *QueryPictFormatsReply) FindVisualFormat(visual uint32) (Pictformat, bool) {
	for it := v.Screens().Iter(); it.Next(); {
		for _, d := range it.Value().Depths {
			for _, pv := range d.Visuals {
				if pv.Visual == visual {
					return pv.Format, true
				}
			}
		}
	}
	return 0, false
}

func (v *QueryPictFormatsReply) Release() { v.reply.Release() }

func queryPictFormatsRequest(major byte) []byte {
	buf := make([]byte, 4)
	xgb.RequestHeader(buf, major, opQueryPictFormats)
	return buf
}

// CreatePictureCookie is a cookie used only for CreatePicture requests.
type CreatePictureCookie struct {
	*xgb.Cookie
}

// CreatePicture sends an unchecked request. ValueList holds one value per
// bit set in ValueMask, in bit order.
func CreatePicture(c *xgb.Conn, Pid Picture, Drawable uint32, Format Pictformat, ValueMask uint32, ValueList []uint32) CreatePictureCookie {
	return CreatePictureCookie{sendCreatePicture(c, false, Pid, Drawable, Format, ValueMask, ValueList)}
}

// CreatePictureChecked sends a checked request.
// If an error occurs, it can be retrieved using CreatePictureCookie.Check()
func CreatePictureChecked(c *xgb.Conn, Pid Picture, Drawable uint32, Format Pictformat, ValueMask uint32, ValueList []uint32) CreatePictureCookie {
	return CreatePictureCookie{sendCreatePicture(c, true, Pid, Drawable, Format, ValueMask, ValueList)}
}

func sendCreatePicture(c *xgb.Conn, checked bool, Pid Picture, Drawable uint32, Format Pictformat, ValueMask uint32, ValueList []uint32) *xgb.Cookie {
	if n := xgb.PopCount(int(ValueMask)); n != len(ValueList) {
		cookie := c.NewCookie(checked, false)
		c.FailRequest(cookie, fmt.Errorf("%w: mask 0x%x wants %d values, got %d",
			ErrValueList, ValueMask, n, len(ValueList)))
		return cookie
	}
	return c.SendExtensionRequest(ExtName, checked, false,
		createPictureRequest(Pid, Drawable, Format, ValueMask, ValueList))
}

func createPictureRequest(Pid Picture, Drawable uint32, Format Pictformat, ValueMask uint32, ValueList []uint32) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 20+4*len(ValueList))
		xgb.RequestHeader(buf, major, opCreatePicture)
		xgb.Put32(buf[4:], uint32(Pid))
		xgb.Put32(buf[8:], Drawable)
		xgb.Put32(buf[12:], uint32(Format))
		xgb.Put32(buf[16:], ValueMask)
		for i, v := range ValueList {
			xgb.Put32(buf[20+4*i:], v)
		}
		return buf
	}
}

// FreePictureCookie is a cookie used only for FreePicture requests.
type FreePictureCookie struct {
	*xgb.Cookie
}

// FreePicture sends an unchecked request.
func FreePicture(c *xgb.Conn, Picture Picture) FreePictureCookie {
	return FreePictureCookie{c.SendExtensionRequest(ExtName, false, false,
		idRequest(opFreePicture, uint32(Picture)))}
}

// FreePictureChecked sends a checked request.
func FreePictureChecked(c *xgb.Conn, Picture Picture) FreePictureCookie {
	return FreePictureCookie{c.SendExtensionRequest(ExtName, true, false,
		idRequest(opFreePicture, uint32(Picture)))}
}

// CreateGlyphSetCookie is a cookie used only for CreateGlyphSet requests.
type CreateGlyphSetCookie struct {
	*xgb.Cookie
}

// CreateGlyphSet sends an unchecked request.
func CreateGlyphSet(c *xgb.Conn, Gsid Glyphset, Format Pictformat) CreateGlyphSetCookie {
	return CreateGlyphSetCookie{c.SendExtensionRequest(ExtName, false, false,
		createGlyphSetRequest(Gsid, Format))}
}

// CreateGlyphSetChecked sends a checked request.
func CreateGlyphSetChecked(c *xgb.Conn, Gsid Glyphset, Format Pictformat) CreateGlyphSetCookie {
	return CreateGlyphSetCookie{c.SendExtensionRequest(ExtName, true, false,
		createGlyphSetRequest(Gsid, Format))}
}

func createGlyphSetRequest(Gsid Glyphset, Format Pictformat) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 12)
		xgb.RequestHeader(buf, major, opCreateGlyphSet)
		xgb.Put32(buf[4:], uint32(Gsid))
		xgb.Put32(buf[8:], uint32(Format))
		return buf
	}
}

// FreeGlyphSetCookie is a cookie used only for FreeGlyphSet requests.
type FreeGlyphSetCookie struct {
	*xgb.Cookie
}

// FreeGlyphSet sends an unchecked request.
func FreeGlyphSet(c *xgb.Conn, Glyphset Glyphset) FreeGlyphSetCookie {
	return FreeGlyphSetCookie{c.SendExtensionRequest(ExtName, false, false,
		idRequest(opFreeGlyphSet, uint32(Glyphset)))}
}

// FreeGlyphSetChecked sends a checked request.
func FreeGlyphSetChecked(c *xgb.Conn, Glyphset Glyphset) FreeGlyphSetCookie {
	return FreeGlyphSetCookie{c.SendExtensionRequest(ExtName, true, false,
		idRequest(opFreeGlyphSet, uint32(Glyphset)))}
}

func idRequest(minor byte, id uint32) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 8)
		xgb.RequestHeader(buf, major, minor)
		xgb.Put32(buf[4:], id)
		return buf
	}
}
