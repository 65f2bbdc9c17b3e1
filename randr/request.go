package randr

import (
	xgb "github.com/BurntSushi/xgbext"
)

// Minor opcodes.
const (
	opQueryVersion       = 0
	opSelectInput        = 4
	opGetScreenResources = 8
	opGetOutputInfo      = 9
	opGetCrtcInfo        = 20
	opGetProviders       = 32
)

// idAt reads element i of a list of ids starting at off.
func idAt[T ~uint32](off int) xgb.Accessor[T] {
	return func(buf []byte, i int) T { return T(xgb.Get32(buf[off+4*i:])) }
}

func count(n int) xgb.LengthFunc {
	return func([]byte) int { return n }
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
	return xgb.DecodeReply(cook.Cookie, queryVersionReply)
}

// queryVersionReply reads a byte slice into a QueryVersionReply value.
func queryVersionReply(buf []byte) (*QueryVersionReply, error) {
	if err := xgb.CheckExtent("QueryVersion reply", buf, 16); err != nil {
		return nil, err
	}
	v := new(QueryVersionReply)
	v.Sequence = xgb.Get16(buf[2:])
	v.Length = xgb.Get32(buf[4:]) // 4-byte units
	v.MajorVersion = xgb.Get32(buf[8:])
	v.MinorVersion = xgb.Get32(buf[12:])
	return v, nil
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

// SelectInputCookie is a cookie used only for SelectInput requests.
type SelectInputCookie struct {
	*xgb.Cookie
}

// SelectInput sends an unchecked request. Enable is a mask of NotifyMask
// bits.
func SelectInput(c *xgb.Conn, Window uint32, Enable uint16) SelectInputCookie {
	return SelectInputCookie{c.SendExtensionRequest(ExtName, false, false,
		selectInputRequest(Window, Enable))}
}

// SelectInputChecked sends a checked request.
// If an error occurs, it can be retrieved using SelectInputCookie.Check()
func SelectInputChecked(c *xgb.Conn, Window uint32, Enable uint16) SelectInputCookie {
	return SelectInputCookie{c.SendExtensionRequest(ExtName, true, false,
		selectInputRequest(Window, Enable))}
}

func selectInputRequest(Window uint32, Enable uint16) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 12)
		xgb.RequestHeader(buf, major, opSelectInput)
		xgb.Put32(buf[4:], Window)
		xgb.Put16(buf[8:], Enable)
		return buf
	}
}

// GetScreenResourcesCookie is a cookie used only for GetScreenResources
// requests.
type GetScreenResourcesCookie struct {
	*xgb.Cookie
}

// GetScreenResources sends a checked request.
func GetScreenResources(c *xgb.Conn, Window uint32) GetScreenResourcesCookie {
	return GetScreenResourcesCookie{c.SendExtensionRequest(ExtName, true, true,
		windowRequest(opGetScreenResources, Window))}
}

// GetScreenResourcesUnchecked sends an unchecked request.
func GetScreenResourcesUnchecked(c *xgb.Conn, Window uint32) GetScreenResourcesCookie {
	return GetScreenResourcesCookie{c.SendExtensionRequest(ExtName, false, true,
		windowRequest(opGetScreenResources, Window))}
}

// GetScreenResourcesReply represents the data returned from a
// GetScreenResources request. Its lists read from the reply buffer until
// Release.
type GetScreenResourcesReply struct {
	Sequence        uint16
	Length          uint32
	Timestamp       uint32
	ConfigTimestamp uint32
	NumCrtcs        uint16
	NumOutputs      uint16
	NumModes        uint16
	NamesLen        uint16

	reply *xgb.Reply
}

// Reply blocks and returns the reply data for a GetScreenResources request.
func (cook GetScreenResourcesCookie) Reply() (*GetScreenResourcesReply, error) {
	return xgb.DecodeListReply(cook.Cookie, getScreenResourcesReply)
}

func getScreenResourcesReply(reply *xgb.Reply) (*GetScreenResourcesReply, error) {
	const what = "GetScreenResources reply"
	buf := reply.Bytes()
	if err := xgb.CheckExtent(what, buf, 32); err != nil {
		return nil, err
	}
	v := &GetScreenResourcesReply{
		Sequence:        xgb.Get16(buf[2:]),
		Length:          xgb.Get32(buf[4:]),
		Timestamp:       xgb.Get32(buf[8:]),
		ConfigTimestamp: xgb.Get32(buf[12:]),
		NumCrtcs:        xgb.Get16(buf[16:]),
		NumOutputs:      xgb.Get16(buf[18:]),
		NumModes:        xgb.Get16(buf[20:]),
		NamesLen:        xgb.Get16(buf[22:]),
		reply:           reply,
	}
	if err := xgb.CheckExtent(what, buf, v.namesOffset()+int(v.NamesLen)); err != nil {
		return nil, err
	}
	// The mode names must fit in the names block.
	total := 0
	for i, off := 0, v.modesOffset(); i < int(v.NumModes); i++ {
		total += int(xgb.Get16(buf[off+modeInfoSize*i+26:]))
	}
	if total > int(v.NamesLen) {
		return nil, &xgb.DecodeError{What: what + " mode names", Need: total, Have: int(v.NamesLen)}
	}
	return v, nil
}

func (v *GetScreenResourcesReply) outputsOffset() int {
	return 32 + 4*int(v.NumCrtcs)
}

func (v *GetScreenResourcesReply) modesOffset() int {
	return v.outputsOffset() + 4*int(v.NumOutputs)
}

func (v *GetScreenResourcesReply) namesOffset() int {
	return v.modesOffset() + modeInfoSize*int(v.NumModes)
}

func (v *GetScreenResourcesReply) Crtcs() xgb.List[Crtc] {
	return xgb.NewList(v.reply, idAt[Crtc](32), count(int(v.NumCrtcs)))
}

func (v *GetScreenResourcesReply) Outputs() xgb.List[Output] {
	return xgb.NewList(v.reply, idAt[Output](v.outputsOffset()), count(int(v.NumOutputs)))
}

func (v *GetScreenResourcesReply) Modes() xgb.List[ModeInfo] {
	off := v.modesOffset()
	return xgb.NewList(v.reply,
		func(buf []byte, i int) ModeInfo { return readModeInfo(buf[off+modeInfoSize*i:]) },
		count(int(v.NumModes)))
}

// Names is every mode name, back to back, in mode order.
func (v *GetScreenResourcesReply) Names() []byte {
	off := v.namesOffset()
	return v.reply.Bytes()[off : off+int(v.NamesLen)]
}

// ModeNames splits Names using each mode's NameLen.
func (v *GetScreenResourcesReply) ModeNames() []string {
	names := v.Names()
	out := make([]string, 0, v.NumModes)
	b := 0
	for it := v.Modes().Iter(); it.Next(); {
		n := int(it.Value().NameLen)
		out = append(out, string(names[b:b+n]))
		b += n
	}
	return out
}

// Release gives the reply buffer back.
func (v *GetScreenResourcesReply) Release() { v.reply.Release() }

// windowRequest builds a request whose only argument is a window.
func windowRequest(minor byte, Window uint32) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 8)
		xgb.RequestHeader(buf, major, minor)
		xgb.Put32(buf[4:], Window)
		return buf
	}
}

// GetOutputInfoCookie is a cookie used only for GetOutputInfo requests.
type GetOutputInfoCookie struct {
	*xgb.Cookie
}

// GetOutputInfo sends a checked request.
func GetOutputInfo(c *xgb.Conn, Output Output, ConfigTimestamp uint32) GetOutputInfoCookie {
	return GetOutputInfoCookie{c.SendExtensionRequest(ExtName, true, true,
		infoRequest(opGetOutputInfo, uint32(Output), ConfigTimestamp))}
}

// GetOutputInfoUnchecked sends an unchecked request.
func GetOutputInfoUnchecked(c *xgb.Conn, Output Output, ConfigTimestamp uint32) GetOutputInfoCookie {
	return GetOutputInfoCookie{c.SendExtensionRequest(ExtName, false, true,
		infoRequest(opGetOutputInfo, uint32(Output), ConfigTimestamp))}
}

// infoRequest builds GetOutputInfo and GetCrtcInfo.
func infoRequest(minor byte, id, ConfigTimestamp uint32) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 12)
		xgb.RequestHeader(buf, major, minor)
		xgb.Put32(buf[4:], id)
		xgb.Put32(buf[8:], ConfigTimestamp)
		return buf
	}
}

// GetOutputInfoReply represents the data returned from a GetOutputInfo
// request.
type GetOutputInfoReply struct {
	Sequence      uint16
	Length        uint32
	Status        byte
	Timestamp     uint32
	Crtc          Crtc
	MmWidth       uint32
	MmHeight      uint32
	Connection    byte
	SubpixelOrder byte
	NumCrtcs      uint16
	NumModes      uint16
	NumPreferred  uint16
	NumClones     uint16
	NameLen       uint16

	reply *xgb.Reply
}

// Reply blocks and returns the reply data for a GetOutputInfo request.
func (cook GetOutputInfoCookie) Reply() (*GetOutputInfoReply, error) {
	return xgb.DecodeListReply(cook.Cookie, getOutputInfoReply)
}

func getOutputInfoReply(reply *xgb.Reply) (*GetOutputInfoReply, error) {
	const what = "GetOutputInfo reply"
	buf := reply.Bytes()
	if err := xgb.CheckExtent(what, buf, 36); err != nil {
		return nil, err
	}
	v := &GetOutputInfoReply{
		Status:        buf[1],
		Sequence:      xgb.Get16(buf[2:]),
		Length:        xgb.Get32(buf[4:]),
		Timestamp:     xgb.Get32(buf[8:]),
		Crtc:          Crtc(xgb.Get32(buf[12:])),
		MmWidth:       xgb.Get32(buf[16:]),
		MmHeight:      xgb.Get32(buf[20:]),
		Connection:    buf[24],
		SubpixelOrder: buf[25],
		NumCrtcs:      xgb.Get16(buf[26:]),
		NumModes:      xgb.Get16(buf[28:]),
		NumPreferred:  xgb.Get16(buf[30:]),
		NumClones:     xgb.Get16(buf[32:]),
		NameLen:       xgb.Get16(buf[34:]),
		reply:         reply,
	}
	if err := xgb.CheckExtent(what, buf, v.nameOffset()+int(v.NameLen)); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *GetOutputInfoReply) modesOffset() int  { return 36 + 4*int(v.NumCrtcs) }
func (v *GetOutputInfoReply) clonesOffset() int { return v.modesOffset() + 4*int(v.NumModes) }
func (v *GetOutputInfoReply) nameOffset() int   { return v.clonesOffset() + 4*int(v.NumClones) }

func (v *GetOutputInfoReply) Crtcs() xgb.List[Crtc] {
	return xgb.NewList(v.reply, idAt[Crtc](36), count(int(v.NumCrtcs)))
}

func (v *GetOutputInfoReply) Modes() xgb.List[Mode] {
	return xgb.NewList(v.reply, idAt[Mode](v.modesOffset()), count(int(v.NumModes)))
}

func (v *GetOutputInfoReply) Clones() xgb.List[Output] {
	return xgb.NewList(v.reply, idAt[Output](v.clonesOffset()), count(int(v.NumClones)))
}

// Name copies the output's name out of the reply.
func (v *GetOutputInfoReply) Name() string {
	off := v.nameOffset()
	return string(v.reply.Bytes()[off : off+int(v.NameLen)])
}

func (v *GetOutputInfoReply) Release() { v.reply.Release() }

// GetCrtcInfoCookie is a cookie used only for GetCrtcInfo requests.
type GetCrtcInfoCookie struct {
	*xgb.Cookie
}

// GetCrtcInfo sends a checked request.
func GetCrtcInfo(c *xgb.Conn, Crtc Crtc, ConfigTimestamp uint32) GetCrtcInfoCookie {
	return GetCrtcInfoCookie{c.SendExtensionRequest(ExtName, true, true,
		infoRequest(opGetCrtcInfo, uint32(Crtc), ConfigTimestamp))}
}

// GetCrtcInfoUnchecked sends an unchecked request.
func GetCrtcInfoUnchecked(c *xgb.Conn, Crtc Crtc, ConfigTimestamp uint32) GetCrtcInfoCookie {
	return GetCrtcInfoCookie{c.SendExtensionRequest(ExtName, false, true,
		infoRequest(opGetCrtcInfo, uint32(Crtc), ConfigTimestamp))}
}

// GetCrtcInfoReply represents the data returned from a GetCrtcInfo request.
type GetCrtcInfoReply struct {
	Sequence           uint16
	Length             uint32
	Status             byte
	Timestamp          uint32
	X                  int16
	Y                  int16
	Width              uint16
	Height             uint16
	Mode               Mode
	Rotation           uint16
	Rotations          uint16
	NumOutputs         uint16
	NumPossibleOutputs uint16

	reply *xgb.Reply
}

// Reply blocks and returns the reply data for a GetCrtcInfo request.
func (cook GetCrtcInfoCookie) Reply() (*GetCrtcInfoReply, error) {
	return xgb.DecodeListReply(cook.Cookie, getCrtcInfoReply)
}

func getCrtcInfoReply(reply *xgb.Reply) (*GetCrtcInfoReply, error) {
	const what = "GetCrtcInfo reply"
	buf := reply.Bytes()
	if err := xgb.CheckExtent(what, buf, 32); err != nil {
		return nil, err
	}
	v := &GetCrtcInfoReply{
		Status:             buf[1],
		Sequence:           xgb.Get16(buf[2:]),
		Length:             xgb.Get32(buf[4:]),
		Timestamp:          xgb.Get32(buf[8:]),
		X:                  int16(xgb.Get16(buf[12:])),
		Y:                  int16(xgb.Get16(buf[14:])),
		Width:              xgb.Get16(buf[16:]),
		Height:             xgb.Get16(buf[18:]),
		Mode:               Mode(xgb.Get32(buf[20:])),
		Rotation:           xgb.Get16(buf[24:]),
		Rotations:          xgb.Get16(buf[26:]),
		NumOutputs:         xgb.Get16(buf[28:]),
		NumPossibleOutputs: xgb.Get16(buf[30:]),
		reply:              reply,
	}
	need := 32 + 4*(int(v.NumOutputs)+int(v.NumPossibleOutputs))
	if err := xgb.CheckExtent(what, buf, need); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *GetCrtcInfoReply) Outputs() xgb.List[Output] {
	return xgb.NewList(v.reply, idAt[Output](32), count(int(v.NumOutputs)))
}

func (v *GetCrtcInfoReply) Possible() xgb.List[Output] {
	return xgb.NewList(v.reply, idAt[Output](32+4*int(v.NumOutputs)), count(int(v.NumPossibleOutputs)))
}

func (v *GetCrtcInfoReply) Release() { v.reply.Release() }

// GetProvidersCookie is a cookie used only for GetProviders requests.
type GetProvidersCookie struct {
	*xgb.Cookie
}

// GetProviders sends a checked request.
func GetProviders(c *xgb.Conn, Window uint32) GetProvidersCookie {
	return GetProvidersCookie{c.SendExtensionRequest(ExtName, true, true,
		windowRequest(opGetProviders, Window))}
}

// GetProvidersUnchecked sends an unchecked request.
func GetProvidersUnchecked(c *xgb.Conn, Window uint32) GetProvidersCookie {
	return GetProvidersCookie{c.SendExtensionRequest(ExtName, false, true,
		windowRequest(opGetProviders, Window))}
}

// GetProvidersReply represents the data returned from a GetProviders
// request.
type GetProvidersReply struct {
	Sequence     uint16
	Length       uint32
	Timestamp    uint32
	NumProviders uint16

	reply *xgb.Reply
}

// Reply blocks and returns the reply data for a GetProviders request.
func (cook GetProvidersCookie) Reply() (*GetProvidersReply, error) {
	return xgb.DecodeListReply(cook.Cookie, func(reply *xgb.Reply) (*GetProvidersReply, error) {
		const what = "GetProviders reply"
		buf := reply.Bytes()
		if err := xgb.CheckExtent(what, buf, 32); err != nil {
			return nil, err
		}
		v := &GetProvidersReply{
			Sequence:     xgb.Get16(buf[2:]),
			Length:       xgb.Get32(buf[4:]),
			Timestamp:    xgb.Get32(buf[8:]),
			NumProviders: xgb.Get16(buf[12:]),
			reply:        reply,
		}
		if err := xgb.CheckExtent(what, buf, 32+4*int(v.NumProviders)); err != nil {
			return nil, err
		}
		return v, nil
	})
}

func (v *GetProvidersReply) Providers() xgb.List[Provider] {
	return xgb.NewList(v.reply, idAt[Provider](32), count(int(v.NumProviders)))
}

func (v *GetProvidersReply) Release() { v.reply.Release() }
