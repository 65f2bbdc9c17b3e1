package glx

import (
	xgb "github.com/BurntSushi/xgbext"
)

// Minor opcodes.
const (
	opCreateContext     = 3
	opDestroyContext    = 4
	opIsDirect          = 6
	opQueryVersion      = 7
	opQueryServerString = 19
	opGetFBConfigs      = 21
)

// CreateContextCookie is a cookie used only for CreateContext requests.
type CreateContextCookie struct {
	*xgb.Cookie
}

// CreateContext sends an unchecked request.
// If an error occurs, it can only be retrieved using xgb.WaitForEvent or xgb.PollForEvent.
func CreateContext(c *xgb.Conn, Context Context, Visual uint32, Screen uint32, ShareList Context, IsDirect bool) CreateContextCookie {
	return CreateContextCookie{c.SendExtensionRequest(ExtName, false, false,
		createContextRequest(Context, Visual, Screen, ShareList, IsDirect))}
}

// CreateContextChecked sends a checked request.
// If an error occurs, it can be retrieved using CreateContextCookie.Check()
func CreateContextChecked(c *xgb.Conn, Context Context, Visual uint32, Screen uint32, ShareList Context, IsDirect bool) CreateContextCookie {
	return CreateContextCookie{c.SendExtensionRequest(ExtName, true, false,
		createContextRequest(Context, Visual, Screen, ShareList, IsDirect))}
}

func createContextRequest(Context Context, Visual uint32, Screen uint32, ShareList Context, IsDirect bool) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 24)
		xgb.RequestHeader(buf, major, opCreateContext)
		xgb.Put32(buf[4:], uint32(Context))
		xgb.Put32(buf[8:], Visual)
		xgb.Put32(buf[12:], Screen)
		xgb.Put32(buf[16:], uint32(ShareList))
		buf[20] = xgb.BoolToByte(IsDirect)
		return buf
	}
}

// DestroyContextCookie is a cookie used only for DestroyContext requests.
type DestroyContextCookie struct {
	*xgb.Cookie
}

// DestroyContext sends an unchecked request.
func DestroyContext(c *xgb.Conn, Context Context) DestroyContextCookie {
	return DestroyContextCookie{c.SendExtensionRequest(ExtName, false, false,
		contextRequest(opDestroyContext, Context))}
}

// DestroyContextChecked sends a checked request.
func DestroyContextChecked(c *xgb.Conn, Context Context) DestroyContextCookie {
	return DestroyContextCookie{c.SendExtensionRequest(ExtName, true, false,
		contextRequest(opDestroyContext, Context))}
}

func contextRequest(minor byte, Context Context) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 8)
		xgb.RequestHeader(buf, major, minor)
		xgb.Put32(buf[4:], uint32(Context))
		return buf
	}
}

// IsDirectCookie is a cookie used only for IsDirect requests.
type IsDirectCookie struct {
	*xgb.Cookie
}

// IsDirect sends a checked request.
func IsDirect(c *xgb.Conn, Context Context) IsDirectCookie {
	return IsDirectCookie{c.SendExtensionRequest(ExtName, true, true,
		contextRequest(opIsDirect, Context))}
}

// IsDirectUnchecked sends an unchecked request.
func IsDirectUnchecked(c *xgb.Conn, Context Context) IsDirectCookie {
	return IsDirectCookie{c.SendExtensionRequest(ExtName, false, true,
		contextRequest(opIsDirect, Context))}
}

// IsDirectReply represents the data returned from an IsDirect request.
type IsDirectReply struct {
	Sequence uint16
	Length   uint32
	IsDirect bool
}

// Reply blocks and returns the reply data for an IsDirect request.
func (cook IsDirectCookie) Reply() (*IsDirectReply, error) {
	return xgb.DecodeReply(cook.Cookie, func(buf []byte) (*IsDirectReply, error) {
		if err := xgb.CheckExtent("IsDirect reply", buf, 9); err != nil {
			return nil, err
		}
		return &IsDirectReply{
			Sequence: xgb.Get16(buf[2:]),
			Length:   xgb.Get32(buf[4:]),
			IsDirect: buf[8] != 0,
		}, nil
	})
}

// QueryVersionCookie is a cookie used only for QueryVersion requests.
type QueryVersionCookie struct {
	*xgb.Cookie
}

// QueryVersion sends a checked request.
// If an error occurs, it will be returned with the reply by calling QueryVersionCookie.Reply()
func QueryVersion(c *xgb.Conn, MajorVersion uint32, MinorVersion uint32) QueryVersionCookie {
	return QueryVersionCookie{c.SendExtensionRequest(ExtName, true, true,
		queryVersionRequest(MajorVersion, MinorVersion))}
}

// QueryVersionUnchecked sends an unchecked request.
// If an error occurs, it can only be retrieved using xgb.WaitForEvent or xgb.PollForEvent.
func QueryVersionUnchecked(c *xgb.Conn, MajorVersion uint32, MinorVersion uint32) QueryVersionCookie {
	return QueryVersionCookie{c.SendExtensionRequest(ExtName, false, true,
		queryVersionRequest(MajorVersion, MinorVersion))}
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

func queryVersionRequest(MajorVersion uint32, MinorVersion uint32) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 12)
		xgb.RequestHeader(buf, major, opQueryVersion)
		xgb.Put32(buf[4:], MajorVersion)
		xgb.Put32(buf[8:], MinorVersion)
		return buf
	}
}

// QueryServerStringCookie is a cookie used only for QueryServerString
// requests.
type QueryServerStringCookie struct {
	*xgb.Cookie
}

// QueryServerString sends a checked request. Name is one of GCVendor,
// GCVersion or GCExtensions.
func QueryServerString(c *xgb.Conn, Screen uint32, Name uint32) QueryServerStringCookie {
	return QueryServerStringCookie{c.SendExtensionRequest(ExtName, true, true,
		queryServerStringRequest(Screen, Name))}
}

// QueryServerStringUnchecked sends an unchecked request.
func QueryServerStringUnchecked(c *xgb.Conn, Screen uint32, Name uint32) QueryServerStringCookie {
	return QueryServerStringCookie{c.SendExtensionRequest(ExtName, false, true,
		queryServerStringRequest(Screen, Name))}
}

// QueryServerStringReply represents the data returned from a
// QueryServerString request. The string is copied out of the reply.
type QueryServerStringReply struct {
	Sequence uint16
	Length   uint32
	StrLen   uint32
	String   string
}

// Reply blocks and returns the reply data for a QueryServerString request.
func (cook QueryServerStringCookie) Reply() (*QueryServerStringReply, error) {
	return xgb.DecodeReply(cook.Cookie, func(buf []byte) (*QueryServerStringReply, error) {
		const what = "QueryServerString reply"
		if err := xgb.CheckExtent(what, buf, 32); err != nil {
			return nil, err
		}
		v := &QueryServerStringReply{
			Sequence: xgb.Get16(buf[2:]),
			Length:   xgb.Get32(buf[4:]),
			StrLen:   xgb.Get32(buf[12:]),
		}
		if err := xgb.CheckExtent(what, buf, 32+int(v.StrLen)); err != nil {
			return nil, err
		}
		v.String = string(buf[32 : 32+v.StrLen])
		return v, nil
	})
}

func queryServerStringRequest(Screen uint32, Name uint32) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 12)
		xgb.RequestHeader(buf, major, opQueryServerString)
		xgb.Put32(buf[4:], Screen)
		xgb.Put32(buf[8:], Name)
		return buf
	}
}

// GetFBConfigsCookie is a cookie used only for GetFBConfigs requests.
type GetFBConfigsCookie struct {
	*xgb.Cookie
}

// GetFBConfigs sends a checked request.
func GetFBConfigs(c *xgb.Conn, Screen uint32) GetFBConfigsCookie {
	return GetFBConfigsCookie{c.SendExtensionRequest(ExtName, true, true,
		getFBConfigsRequest(Screen))}
}

// GetFBConfigsUnchecked sends an unchecked request.
func GetFBConfigsUnchecked(c *xgb.Conn, Screen uint32) GetFBConfigsCookie {
	return GetFBConfigsCookie{c.SendExtensionRequest(ExtName, false, true,
		getFBConfigsRequest(Screen))}
}

// GetFBConfigsReply represents the data returned from a GetFBConfigs
// request. The property list holds NumProperties attribute/value pairs
// for each of NumFBConfigs configurations.
type GetFBConfigsReply struct {
	Sequence      uint16
	Length        uint32
	NumFBConfigs  uint32
	NumProperties uint32

	reply *xgb.Reply
}

// Reply blocks and returns the reply data for a GetFBConfigs request.
func (cook GetFBConfigsCookie) Reply() (*GetFBConfigsReply, error) {
	return xgb.DecodeListReply(cook.Cookie, getFBConfigsReply)
}

func getFBConfigsReply(reply *xgb.Reply) (*GetFBConfigsReply, error) {
	const what = "GetFBConfigs reply"
	buf := reply.Bytes()
	if err := xgb.CheckExtent(what, buf, 32); err != nil {
		return nil, err
	}
	v := &GetFBConfigsReply{
		Sequence:      xgb.Get16(buf[2:]),
		Length:        xgb.Get32(buf[4:]),
		NumFBConfigs:  xgb.Get32(buf[8:]),
		NumProperties: xgb.Get32(buf[12:]),
		reply:         reply,
	}
	if v.NumProperties == 0 && v.NumFBConfigs > 0 {
		return nil, &xgb.DecodeError{What: what + " properties", Need: 8, Have: 0}
	}
	pairs := uint64(v.NumFBConfigs) * uint64(v.NumProperties)
	if pairs > uint64(len(buf)) {
		pairs = uint64(len(buf)) // cannot fit either way
	}
	if err := xgb.CheckExtent(what, buf, 32+8*int(pairs)); err != nil {
		return nil, err
	}
	return v, nil
}

// FBAttrib is one attribute/value pair of a configuration.
type FBAttrib struct {
	Attr  uint32
	Value uint32
}

// FBConfig is the attribute list of one configuration, in wire order.
type FBConfig []FBAttrib

// Get looks up attr.
func (cfg FBConfig) Get(attr uint32) (uint32, bool) {
	for _, a := range cfg {
		if a.Attr == attr {
			return a.Value, true
		}
	}
	return 0, false
}

// FBConfigs decodes each configuration on access.
func (v *GetFBConfigsReply) FBConfigs() xgb.List[FBConfig] {
	stride := 8 * int(v.NumProperties)
	return xgb.NewList(v.reply,
		func(buf []byte, i int) FBConfig {
			cfg := make(FBConfig, v.NumProperties)
			b := 32 + stride*i
			for j := range cfg {
				cfg[j] = FBAttrib{Attr: xgb.Get32(buf[b+8*j:]), Value: xgb.Get32(buf[b+8*j+4:])}
			}
			return cfg
		},
		func([]byte) int { return int(v.NumFBConfigs) })
}

// PropertyList is the raw property list.
func (v *GetFBConfigsReply) PropertyList() xgb.List[uint32] {
	return xgb.NewList(v.reply,
		func(buf []byte, i int) uint32 { return xgb.Get32(buf[32+4*i:]) },
		func([]byte) int { return 2 * int(v.NumFBConfigs) * int(v.NumProperties) })
}

func (v *GetFBConfigsReply) Release() { v.reply.Release() }

func getFBConfigsRequest(Screen uint32) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 8)
		xgb.RequestHeader(buf, major, opGetFBConfigs)
		xgb.Put32(buf[4:], Screen)
		return buf
	}
}
