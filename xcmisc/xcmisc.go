// Package xcmisc is the X client-side resource id management extension,
// XC-MISC. Once initialized on a connection, Conn.NewId falls back on
// GetXIDRange when the id range from the setup is used up.
package xcmisc

import (
	xgb "github.com/BurntSushi/xgbext"
)

const (
	MajorVersion = 1
	MinorVersion = 1
)

// ExtName is the name the server knows the extension by.
const ExtName = "XC-MISC"

// Info describes XC-MISC to the extension registry. It has no events or
// errors of its own.
var Info = &xgb.ExtensionInfo{Name: ExtName}

// Init must be called before using the XC-MISC extension.
func Init(c *xgb.Conn) error {
	if _, err := c.RegisterExtension(Info); err != nil {
		return err
	}
	c.SetIdRangeSource(func() (uint32, uint32, error) {
		reply, err := GetXIDRange(c).Reply()
		if err != nil {
			return 0, 0, err
		}
		if reply == nil {
			return 0, 0, xgb.ErrNoIds
		}
		return reply.StartId, reply.Count, nil
	})
	return nil
}

// GetVersionCookie is a cookie used only for GetVersion requests.
type GetVersionCookie struct {
	*xgb.Cookie
}

// GetVersion sends a checked request.
// If an error occurs, it will be returned with the reply by calling GetVersionCookie.Reply()
func GetVersion(c *xgb.Conn, ClientMajorVersion uint16, ClientMinorVersion uint16) GetVersionCookie {
	cookie := c.NewCookie(true, true)
	c.NewExtensionRequest(ExtName, cookie, func(major byte) []byte {
		return getVersionRequest(major, ClientMajorVersion, ClientMinorVersion)
	})
	return GetVersionCookie{cookie}
}

// GetVersionUnchecked sends an unchecked request.
// If an error occurs, it can only be retrieved using xgb.WaitForEvent or xgb.PollForEvent.
func GetVersionUnchecked(c *xgb.Conn, ClientMajorVersion uint16, ClientMinorVersion uint16) GetVersionCookie {
	cookie := c.NewCookie(false, true)
	c.NewExtensionRequest(ExtName, cookie, func(major byte) []byte {
		return getVersionRequest(major, ClientMajorVersion, ClientMinorVersion)
	})
	return GetVersionCookie{cookie}
}

// GetVersionReply represents the data returned from a GetVersion request.
type GetVersionReply struct {
	Sequence           uint16 // sequence number of the request for this reply
	Length             uint32 // number of bytes in this reply
	ServerMajorVersion uint16
	ServerMinorVersion uint16
}

// Reply blocks and returns the reply data for a GetVersion request.
func (cook GetVersionCookie) Reply() (*GetVersionReply, error) {
	return xgb.DecodeReply(cook.Cookie, getVersionReply)
}

// getVersionReply reads a byte slice into a GetVersionReply value.
func getVersionReply(buf []byte) (*GetVersionReply, error) {
	if err := xgb.CheckExtent("GetVersion reply", buf, 12); err != nil {
		return nil, err
	}
	v := new(GetVersionReply)
	v.Sequence = xgb.Get16(buf[2:])
	v.Length = xgb.Get32(buf[4:]) // 4-byte units
	v.ServerMajorVersion = xgb.Get16(buf[8:])
	v.ServerMinorVersion = xgb.Get16(buf[10:])
	return v, nil
}

// getVersionRequest writes a GetVersion request to a byte slice.
func getVersionRequest(major byte, ClientMajorVersion uint16, ClientMinorVersion uint16) []byte {
	buf := make([]byte, 8)
	xgb.RequestHeader(buf, major, 0)
	xgb.Put16(buf[4:], ClientMajorVersion)
	xgb.Put16(buf[6:], ClientMinorVersion)
	return buf
}

// GetXIDRangeCookie is a cookie used only for GetXIDRange requests.
type GetXIDRangeCookie struct {
	*xgb.Cookie
}

// GetXIDRange sends a checked request.
// If an error occurs, it will be returned with the reply by calling GetXIDRangeCookie.Reply()
func GetXIDRange(c *xgb.Conn) GetXIDRangeCookie {
	cookie := c.NewCookie(true, true)
	c.NewExtensionRequest(ExtName, cookie, getXIDRangeRequest)
	return GetXIDRangeCookie{cookie}
}

// GetXIDRangeUnchecked sends an unchecked request.
// If an error occurs, it can only be retrieved using xgb.WaitForEvent or xgb.PollForEvent.
func GetXIDRangeUnchecked(c *xgb.Conn) GetXIDRangeCookie {
	cookie := c.NewCookie(false, true)
	c.NewExtensionRequest(ExtName, cookie, getXIDRangeRequest)
	return GetXIDRangeCookie{cookie}
}

// GetXIDRangeReply represents the data returned from a GetXIDRange request.
type GetXIDRangeReply struct {
	Sequence uint16 // sequence number of the request for this reply
	Length   uint32 // number of bytes in this reply
	StartId  uint32
	Count    uint32
}

// Reply blocks and returns the reply data for a GetXIDRange request.
func (cook GetXIDRangeCookie) Reply() (*GetXIDRangeReply, error) {
	return xgb.DecodeReply(cook.Cookie, getXIDRangeReply)
}

func getXIDRangeReply(buf []byte) (*GetXIDRangeReply, error) {
	if err := xgb.CheckExtent("GetXIDRange reply", buf, 16); err != nil {
		return nil, err
	}
	return &GetXIDRangeReply{
		Sequence: xgb.Get16(buf[2:]),
		Length:   xgb.Get32(buf[4:]),
		StartId:  xgb.Get32(buf[8:]),
		Count:    xgb.Get32(buf[12:]),
	}, nil
}

func getXIDRangeRequest(major byte) []byte {
	buf := make([]byte, 4)
	xgb.RequestHeader(buf, major, 1)
	return buf
}

// GetXIDListCookie is a cookie used only for GetXIDList requests.
type GetXIDListCookie struct {
	*xgb.Cookie
}

// GetXIDList sends a checked request.
// If an error occurs, it will be returned with the reply by calling GetXIDListCookie.Reply()
func GetXIDList(c *xgb.Conn, Count uint32) GetXIDListCookie {
	cookie := c.NewCookie(true, true)
	c.NewExtensionRequest(ExtName, cookie, func(major byte) []byte {
		return getXIDListRequest(major, Count)
	})
	return GetXIDListCookie{cookie}
}

// GetXIDListUnchecked sends an unchecked request.
// If an error occurs, it can only be retrieved using xgb.WaitForEvent or xgb.PollForEvent.
func GetXIDListUnchecked(c *xgb.Conn, Count uint32) GetXIDListCookie {
	cookie := c.NewCookie(false, true)
	c.NewExtensionRequest(ExtName, cookie, func(major byte) []byte {
		return getXIDListRequest(major, Count)
	})
	return GetXIDListCookie{cookie}
}

// GetXIDListReply represents the data returned from a GetXIDList request.
// Ids reads from the reply buffer, which Release gives back.
type GetXIDListReply struct {
	Sequence uint16 // sequence number of the request for this reply
	Length   uint32 // number of bytes in this reply
	IdsLen   uint32

	reply *xgb.Reply
}

// Reply blocks and returns the reply data for a GetXIDList request.
func (cook GetXIDListCookie) Reply() (*GetXIDListReply, error) {
	return xgb.DecodeListReply(cook.Cookie, getXIDListReply)
}

func getXIDListReply(reply *xgb.Reply) (*GetXIDListReply, error) {
	buf := reply.Bytes()
	if err := xgb.CheckExtent("GetXIDList reply", buf, 32); err != nil {
		return nil, err
	}
	v := &GetXIDListReply{
		Sequence: xgb.Get16(buf[2:]),
		Length:   xgb.Get32(buf[4:]),
		IdsLen:   xgb.Get32(buf[8:]),
		reply:    reply,
	}
	if err := xgb.CheckExtent("GetXIDList ids", buf, 32+4*int(v.IdsLen)); err != nil {
		return nil, err
	}
	return v, nil
}

// Ids are the free resource ids the server found.
func (v *GetXIDListReply) Ids() xgb.List[uint32] {
	return xgb.NewList(v.reply, idAt, idsLen)
}

func idAt(buf []byte, i int) uint32 { return xgb.Get32(buf[32+4*i:]) }
func idsLen(buf []byte) int         { return int(xgb.Get32(buf[8:])) }

// Release gives the reply buffer back. Ids must not be used afterwards.
func (v *GetXIDListReply) Release() { v.reply.Release() }

func getXIDListRequest(major byte, Count uint32) []byte {
	buf := make([]byte, 8)
	xgb.RequestHeader(buf, major, 2)
	xgb.Put32(buf[4:], Count)
	return buf
}
