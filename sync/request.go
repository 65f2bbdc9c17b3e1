package sync

import (
	xgb "github.com/BurntSushi/xgbext"
)

// Minor opcodes.
const (
	opInitialize         = 0
	opListSystemCounters = 1
	opCreateCounter      = 2
	opSetCounter         = 3
	opChangeCounter      = 4
	opQueryCounter       = 5
	opDestroyCounter     = 6
	opCreateFence        = 14
	opTriggerFence       = 15
	opResetFence         = 16
	opDestroyFence       = 17
	opQueryFence         = 18
)

// InitializeCookie is a cookie used only for Initialize requests.
type InitializeCookie struct {
	*xgb.Cookie
}

// Initialize sends a checked request. It tells the server which version
// of the extension the client speaks.
func Initialize(c *xgb.Conn, DesiredMajorVersion, DesiredMinorVersion byte) InitializeCookie {
	return InitializeCookie{c.SendExtensionRequest(ExtName, true, true,
		initializeRequest(DesiredMajorVersion, DesiredMinorVersion))}
}

// InitializeUnchecked sends an unchecked request.
func InitializeUnchecked(c *xgb.Conn, DesiredMajorVersion, DesiredMinorVersion byte) InitializeCookie {
	return InitializeCookie{c.SendExtensionRequest(ExtName, false, true,
		initializeRequest(DesiredMajorVersion, DesiredMinorVersion))}
}

// InitializeReply represents the data returned from an Initialize request.
type InitializeReply struct {
	Sequence     uint16
	Length       uint32
	MajorVersion byte
	MinorVersion byte
}

// Reply blocks and returns the reply data for an Initialize request.
func (cook InitializeCookie) Reply() (*InitializeReply, error) {
	return xgb.DecodeReply(cook.Cookie, func(buf []byte) (*InitializeReply, error) {
		if err := xgb.CheckExtent("Initialize reply", buf, 10); err != nil {
			return nil, err
		}
		return &InitializeReply{
			Sequence:     xgb.Get16(buf[2:]),
			Length:       xgb.Get32(buf[4:]),
			MajorVersion: buf[8],
			MinorVersion: buf[9],
		}, nil
	})
}

func initializeRequest(DesiredMajorVersion, DesiredMinorVersion byte) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 8)
		xgb.RequestHeader(buf, major, opInitialize)
		buf[4] = DesiredMajorVersion
		buf[5] = DesiredMinorVersion
		return buf
	}
}

// ListSystemCountersCookie is a cookie used only for ListSystemCounters
// requests.
type ListSystemCountersCookie struct {
	*xgb.Cookie
}

// ListSystemCounters sends a checked request.
func ListSystemCounters(c *xgb.Conn) ListSystemCountersCookie {
	return ListSystemCountersCookie{c.SendExtensionRequest(ExtName, true, true,
		listSystemCountersRequest)}
}

// ListSystemCountersUnchecked sends an unchecked request.
func ListSystemCountersUnchecked(c *xgb.Conn) ListSystemCountersCookie {
	return ListSystemCountersCookie{c.SendExtensionRequest(ExtName, false, true,
		listSystemCountersRequest)}
}

// ListSystemCountersReply represents the data returned from a
// ListSystemCounters request. Its list reads from the reply buffer until
// Release.
type ListSystemCountersReply struct {
	Sequence    uint16
	Length      uint32
	CountersLen uint32

	reply   *xgb.Reply
	offsets []int
}

// Reply blocks and returns the reply data for a ListSystemCounters request.
func (cook ListSystemCountersCookie) Reply() (*ListSystemCountersReply, error) {
	return xgb.DecodeListReply(cook.Cookie, listSystemCountersReply)
}

// listSystemCountersReply validates every counter once; elements vary in
// size, so their offsets are kept for the list accessor.
func listSystemCountersReply(reply *xgb.Reply) (*ListSystemCountersReply, error) {
	const what = "ListSystemCounters reply"
	buf := reply.Bytes()
	if err := xgb.CheckExtent(what, buf, 32); err != nil {
		return nil, err
	}
	v := &ListSystemCountersReply{
		Sequence:    xgb.Get16(buf[2:]),
		Length:      xgb.Get32(buf[4:]),
		CountersLen: xgb.Get32(buf[8:]),
		reply:       reply,
	}

	b := 32
	for i := 0; i < int(v.CountersLen); i++ {
		if err := xgb.CheckExtent(what, buf, b+14); err != nil {
			return nil, err
		}
		size := systemCounterSize(buf[b:])
		if err := xgb.CheckExtent(what, buf, b+size); err != nil {
			return nil, err
		}
		v.offsets = append(v.offsets, b)
		b += size
	}
	return v, nil
}

// Counters lists the server's system counters.
func (v *ListSystemCountersReply) Counters() xgb.List[SystemCounter] {
	return xgb.NewList(v.reply,
		func(buf []byte, i int) SystemCounter { return readSystemCounter(buf[v.offsets[i]:]) },
		func([]byte) int { return len(v.offsets) })
}

// Release gives the reply buffer back.
func (v *ListSystemCountersReply) Release() { v.reply.Release() }

func listSystemCountersRequest(major byte) []byte {
	buf := make([]byte, 4)
	xgb.RequestHeader(buf, major, opListSystemCounters)
	return buf
}

// CreateCounterCookie is a cookie used only for CreateCounter requests.
type CreateCounterCookie struct {
	*xgb.Cookie
}

// CreateCounter sends an unchecked request.
// If an error occurs, it can only be retrieved using xgb.WaitForEvent or xgb.PollForEvent.
func CreateCounter(c *xgb.Conn, Id Counter, InitialValue Int64) CreateCounterCookie {
	return CreateCounterCookie{c.SendExtensionRequest(ExtName, false, false,
		counterValueRequest(opCreateCounter, Id, InitialValue))}
}

// CreateCounterChecked sends a checked request.
// If an error occurs, it can be retrieved using CreateCounterCookie.Check()
func CreateCounterChecked(c *xgb.Conn, Id Counter, InitialValue Int64) CreateCounterCookie {
	return CreateCounterCookie{c.SendExtensionRequest(ExtName, true, false,
		counterValueRequest(opCreateCounter, Id, InitialValue))}
}

// SetCounterCookie is a cookie used only for SetCounter requests.
type SetCounterCookie struct {
	*xgb.Cookie
}

// SetCounter sends an unchecked request.
func SetCounter(c *xgb.Conn, Counter Counter, Value Int64) SetCounterCookie {
	return SetCounterCookie{c.SendExtensionRequest(ExtName, false, false,
		counterValueRequest(opSetCounter, Counter, Value))}
}

// SetCounterChecked sends a checked request.
func SetCounterChecked(c *xgb.Conn, Counter Counter, Value Int64) SetCounterCookie {
	return SetCounterCookie{c.SendExtensionRequest(ExtName, true, false,
		counterValueRequest(opSetCounter, Counter, Value))}
}

// ChangeCounterCookie is a cookie used only for ChangeCounter requests.
type ChangeCounterCookie struct {
	*xgb.Cookie
}

// ChangeCounter sends an unchecked request.
func ChangeCounter(c *xgb.Conn, Counter Counter, Amount Int64) ChangeCounterCookie {
	return ChangeCounterCookie{c.SendExtensionRequest(ExtName, false, false,
		counterValueRequest(opChangeCounter, Counter, Amount))}
}

// ChangeCounterChecked sends a checked request.
func ChangeCounterChecked(c *xgb.Conn, Counter Counter, Amount Int64) ChangeCounterCookie {
	return ChangeCounterCookie{c.SendExtensionRequest(ExtName, true, false,
		counterValueRequest(opChangeCounter, Counter, Amount))}
}

// counterValueRequest builds the shared layout of CreateCounter,
// SetCounter and ChangeCounter.
func counterValueRequest(minor byte, counter Counter, value Int64) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 16)
		xgb.RequestHeader(buf, major, minor)
		xgb.Put32(buf[4:], uint32(counter))
		putInt64(buf[8:], value)
		return buf
	}
}

// QueryCounterCookie is a cookie used only for QueryCounter requests.
type QueryCounterCookie struct {
	*xgb.Cookie
}

// QueryCounter sends a checked request.
func QueryCounter(c *xgb.Conn, Counter Counter) QueryCounterCookie {
	return QueryCounterCookie{c.SendExtensionRequest(ExtName, true, true,
		idRequest(opQueryCounter, uint32(Counter)))}
}

// QueryCounterUnchecked sends an unchecked request.
func QueryCounterUnchecked(c *xgb.Conn, Counter Counter) QueryCounterCookie {
	return QueryCounterCookie{c.SendExtensionRequest(ExtName, false, true,
		idRequest(opQueryCounter, uint32(Counter)))}
}

// QueryCounterReply represents the data returned from a QueryCounter request.
type QueryCounterReply struct {
	Sequence     uint16
	Length       uint32
	CounterValue Int64
}

// Reply blocks and returns the reply data for a QueryCounter request.
func (cook QueryCounterCookie) Reply() (*QueryCounterReply, error) {
	return xgb.DecodeReply(cook.Cookie, func(buf []byte) (*QueryCounterReply, error) {
		if err := xgb.CheckExtent("QueryCounter reply", buf, 16); err != nil {
			return nil, err
		}
		return &QueryCounterReply{
			Sequence:     xgb.Get16(buf[2:]),
			Length:       xgb.Get32(buf[4:]),
			CounterValue: getInt64(buf[8:]),
		}, nil
	})
}

// DestroyCounterCookie is a cookie used only for DestroyCounter requests.
type DestroyCounterCookie struct {
	*xgb.Cookie
}

// DestroyCounter sends an unchecked request.
func DestroyCounter(c *xgb.Conn, Counter Counter) DestroyCounterCookie {
	return DestroyCounterCookie{c.SendExtensionRequest(ExtName, false, false,
		idRequest(opDestroyCounter, uint32(Counter)))}
}

// DestroyCounterChecked sends a checked request.
func DestroyCounterChecked(c *xgb.Conn, Counter Counter) DestroyCounterCookie {
	return DestroyCounterCookie{c.SendExtensionRequest(ExtName, true, false,
		idRequest(opDestroyCounter, uint32(Counter)))}
}

// idRequest builds a request whose only argument is a resource id.
func idRequest(minor byte, id uint32) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 8)
		xgb.RequestHeader(buf, major, minor)
		xgb.Put32(buf[4:], id)
		return buf
	}
}

// CreateFenceCookie is a cookie used only for CreateFence requests.
type CreateFenceCookie struct {
	*xgb.Cookie
}

// CreateFence sends an unchecked request. The fence belongs to the screen
// of Drawable.
func CreateFence(c *xgb.Conn, Drawable uint32, Fence Fence, InitiallyTriggered bool) CreateFenceCookie {
	return CreateFenceCookie{c.SendExtensionRequest(ExtName, false, false,
		createFenceRequest(Drawable, Fence, InitiallyTriggered))}
}

// CreateFenceChecked sends a checked request.
func CreateFenceChecked(c *xgb.Conn, Drawable uint32, Fence Fence, InitiallyTriggered bool) CreateFenceCookie {
	return CreateFenceCookie{c.SendExtensionRequest(ExtName, true, false,
		createFenceRequest(Drawable, Fence, InitiallyTriggered))}
}

func createFenceRequest(Drawable uint32, Fence Fence, InitiallyTriggered bool) func(byte) []byte {
	return func(major byte) []byte {
		buf := make([]byte, 16)
		xgb.RequestHeader(buf, major, opCreateFence)
		xgb.Put32(buf[4:], Drawable)
		xgb.Put32(buf[8:], uint32(Fence))
		buf[12] = xgb.BoolToByte(InitiallyTriggered)
		return buf
	}
}

// TriggerFenceCookie is a cookie used only for TriggerFence requests.
type TriggerFenceCookie struct {
	*xgb.Cookie
}

func TriggerFence(c *xgb.Conn, Fence Fence) TriggerFenceCookie {
	return TriggerFenceCookie{c.SendExtensionRequest(ExtName, false, false,
		idRequest(opTriggerFence, uint32(Fence)))}
}

func TriggerFenceChecked(c *xgb.Conn, Fence Fence) TriggerFenceCookie {
	return TriggerFenceCookie{c.SendExtensionRequest(ExtName, true, false,
		idRequest(opTriggerFence, uint32(Fence)))}
}

// ResetFenceCookie is a cookie used only for ResetFence requests.
type ResetFenceCookie struct {
	*xgb.Cookie
}

func ResetFence(c *xgb.Conn, Fence Fence) ResetFenceCookie {
	return ResetFenceCookie{c.SendExtensionRequest(ExtName, false, false,
		idRequest(opResetFence, uint32(Fence)))}
}

func ResetFenceChecked(c *xgb.Conn, Fence Fence) ResetFenceCookie {
	return ResetFenceCookie{c.SendExtensionRequest(ExtName, true, false,
		idRequest(opResetFence, uint32(Fence)))}
}

// DestroyFenceCookie is a cookie used only for DestroyFence requests.
type DestroyFenceCookie struct {
	*xgb.Cookie
}

func DestroyFence(c *xgb.Conn, Fence Fence) DestroyFenceCookie {
	return DestroyFenceCookie{c.SendExtensionRequest(ExtName, false, false,
		idRequest(opDestroyFence, uint32(Fence)))}
}

func DestroyFenceChecked(c *xgb.Conn, Fence Fence) DestroyFenceCookie {
	return DestroyFenceCookie{c.SendExtensionRequest(ExtName, true, false,
		idRequest(opDestroyFence, uint32(Fence)))}
}

// QueryFenceCookie is a cookie used only for QueryFence requests.
type QueryFenceCookie struct {
	*xgb.Cookie
}

// QueryFence sends a checked request.
func QueryFence(c *xgb.Conn, Fence Fence) QueryFenceCookie {
	return QueryFenceCookie{c.SendExtensionRequest(ExtName, true, true,
		idRequest(opQueryFence, uint32(Fence)))}
}

// QueryFenceUnchecked sends an unchecked request.
func QueryFenceUnchecked(c *xgb.Conn, Fence Fence) QueryFenceCookie {
	return QueryFenceCookie{c.SendExtensionRequest(ExtName, false, true,
		idRequest(opQueryFence, uint32(Fence)))}
}

// QueryFenceReply represents the data returned from a QueryFence request.
type QueryFenceReply struct {
	Sequence  uint16
	Length    uint32
	Triggered bool
}

// Reply blocks and returns the reply data for a QueryFence request.
func (cook QueryFenceCookie) Reply() (*QueryFenceReply, error) {
	return xgb.DecodeReply(cook.Cookie, func(buf []byte) (*QueryFenceReply, error) {
		if err := xgb.CheckExtent("QueryFence reply", buf, 9); err != nil {
			return nil, err
		}
		return &QueryFenceReply{
			Sequence:  xgb.Get16(buf[2:]),
			Length:    xgb.Get32(buf[4:]),
			Triggered: buf[8] != 0,
		}, nil
	})
}
