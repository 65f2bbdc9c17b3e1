// Package sync is the X synchronization extension, SYNC: counters that
// clients and the server can change, wait on and be notified about, and
// fences that mark points in the server's rendering stream.
package sync

import (
	"fmt"

	xgb "github.com/BurntSushi/xgbext"
)

const (
	MajorVersion = 3
	MinorVersion = 1
)

// ExtName is the name the server knows the extension by.
const ExtName = "SYNC"

// Event and error codes, relative to the extension's first event and first
// error.
const (
	CounterNotify = 0
	AlarmNotify   = 1

	BadCounter = 0
	BadAlarm   = 1
)

// Info describes SYNC to the extension registry.
var Info = &xgb.ExtensionInfo{
	Name: ExtName,
	Events: map[byte]xgb.NewEventFun{
		CounterNotify: NewCounterNotifyEvent,
		AlarmNotify:   NewAlarmNotifyEvent,
	},
	Errors: map[byte]xgb.NewErrorFun{
		BadCounter: NewCounterError,
		BadAlarm:   NewAlarmError,
	},
}

// Init must be called before using the SYNC extension.
func Init(c *xgb.Conn) error {
	_, err := c.RegisterExtension(Info)
	return err
}

type Counter uint32

// NewCounterId allocates an id for CreateCounter.
func NewCounterId(c *xgb.Conn) (Counter, error) {
	id, err := c.NewId()
	if err != nil {
		return 0, err
	}
	return Counter(id), nil
}

type Fence uint32

// NewFenceId allocates an id for CreateFence.
func NewFenceId(c *xgb.Conn) (Fence, error) {
	id, err := c.NewId()
	if err != nil {
		return 0, err
	}
	return Fence(id), nil
}

type Alarm uint32

// Int64 is the protocol's 64 bit counter value: a signed high word and an
// unsigned low word.
type Int64 struct {
	Hi int32
	Lo uint32
}

// MakeInt64 splits v into its wire halves.
func MakeInt64(v int64) Int64 {
	return Int64{Hi: int32(v >> 32), Lo: uint32(v)}
}

// Value joins the halves.
func (v Int64) Value() int64 {
	return int64(v.Hi)<<32 | int64(v.Lo)
}

func (v Int64) String() string { return fmt.Sprint(v.Value()) }

func getInt64(buf []byte) Int64 {
	return Int64{Hi: int32(xgb.Get32(buf)), Lo: xgb.Get32(buf[4:])}
}

func putInt64(buf []byte, v Int64) {
	xgb.Put32(buf, uint32(v.Hi))
	xgb.Put32(buf[4:], v.Lo)
}

// Values of CounterNotifyEvent.Kind and AlarmNotifyEvent.Kind.
const (
	AlarmstateActive    = 0
	AlarmstateInactive  = 1
	AlarmstateDestroyed = 2
)

// CounterNotifyEvent is sent when a counter an Await waits on passes its
// wait value, or is destroyed.
type CounterNotifyEvent struct {
	Sequence     uint16
	Kind         byte
	Counter      Counter
	WaitValue    Int64
	CounterValue Int64
	Timestamp    uint32
	Count        uint16
	Destroyed    bool

	buf []byte
}

// NewCounterNotifyEvent constructs a CounterNotifyEvent value that
// implements xgb.Event from a byte slice.
func NewCounterNotifyEvent(buf []byte) xgb.Event {
	return CounterNotifyEvent{
		Kind:         buf[1],
		Sequence:     xgb.Get16(buf[2:]),
		Counter:      Counter(xgb.Get32(buf[4:])),
		WaitValue:    getInt64(buf[8:]),
		CounterValue: getInt64(buf[16:]),
		Timestamp:    xgb.Get32(buf[24:]),
		Count:        xgb.Get16(buf[28:]),
		Destroyed:    buf[30] != 0,
		buf:          buf,
	}
}

// Bytes returns the raw event.
func (v CounterNotifyEvent) Bytes() []byte { return v.buf }

func (v CounterNotifyEvent) String() string {
	return fmt.Sprintf("CounterNotify {Sequence: %d, Kind: %d, Counter: %d, "+
		"WaitValue: %s, CounterValue: %s, Timestamp: %d, Count: %d, Destroyed: %t}",
		v.Sequence, v.Kind, v.Counter, v.WaitValue, v.CounterValue,
		v.Timestamp, v.Count, v.Destroyed)
}

// AlarmNotifyEvent is sent when an alarm triggers or changes state.
type AlarmNotifyEvent struct {
	Sequence     uint16
	Kind         byte
	Alarm        Alarm
	CounterValue Int64
	AlarmValue   Int64
	Timestamp    uint32
	State        byte

	buf []byte
}

// NewAlarmNotifyEvent constructs an AlarmNotifyEvent value that implements
// xgb.Event from a byte slice.
func NewAlarmNotifyEvent(buf []byte) xgb.Event {
	return AlarmNotifyEvent{
		Kind:         buf[1],
		Sequence:     xgb.Get16(buf[2:]),
		Alarm:        Alarm(xgb.Get32(buf[4:])),
		CounterValue: getInt64(buf[8:]),
		AlarmValue:   getInt64(buf[16:]),
		Timestamp:    xgb.Get32(buf[24:]),
		State:        buf[28],
		buf:          buf,
	}
}

func (v AlarmNotifyEvent) Bytes() []byte { return v.buf }

func (v AlarmNotifyEvent) String() string {
	return fmt.Sprintf("AlarmNotify {Sequence: %d, Kind: %d, Alarm: %d, "+
		"CounterValue: %s, AlarmValue: %s, Timestamp: %d, State: %d}",
		v.Sequence, v.Kind, v.Alarm, v.CounterValue, v.AlarmValue,
		v.Timestamp, v.State)
}

// CounterError is the SYNC Counter error. BadValue holds the bad counter.
type CounterError struct {
	xgb.ProtocolError
}

func NewCounterError(buf []byte) xgb.Error {
	return CounterError{xgb.NewProtocolError("BadCounter", buf)}
}

// AlarmError is the SYNC Alarm error. BadValue holds the bad alarm.
type AlarmError struct {
	xgb.ProtocolError
}

func NewAlarmError(buf []byte) xgb.Error {
	return AlarmError{xgb.NewProtocolError("BadAlarm", buf)}
}

// SystemCounter is a counter the server maintains, such as SERVERTIME.
type SystemCounter struct {
	Counter    Counter
	Resolution Int64
	Name       string
}

// systemCounterSize is the padded wire size of the SystemCounter at buf.
func systemCounterSize(buf []byte) int {
	return xgb.Pad(14 + int(xgb.Get16(buf[12:])))
}

func readSystemCounter(buf []byte) SystemCounter {
	n := int(xgb.Get16(buf[12:]))
	return SystemCounter{
		Counter:    Counter(xgb.Get32(buf)),
		Resolution: getInt64(buf[4:]),
		Name:       string(buf[14 : 14+n]),
	}
}

// CounterHandle binds a counter id to its connection.
type CounterHandle struct {
	xgb.Handle[Counter]
}

// NewCounterHandle binds raw, typically read from a reply or event, to c.
func NewCounterHandle(c *xgb.Conn, raw uint32) CounterHandle {
	return CounterHandle{xgb.MakeHandle[Counter](c, raw)}
}

func (h CounterHandle) Set(Value Int64) SetCounterCookie {
	return SetCounter(h.Conn(), h.Id(), Value)
}

func (h CounterHandle) SetChecked(Value Int64) SetCounterCookie {
	return SetCounterChecked(h.Conn(), h.Id(), Value)
}

func (h CounterHandle) Change(Amount Int64) ChangeCounterCookie {
	return ChangeCounter(h.Conn(), h.Id(), Amount)
}

func (h CounterHandle) ChangeChecked(Amount Int64) ChangeCounterCookie {
	return ChangeCounterChecked(h.Conn(), h.Id(), Amount)
}

func (h CounterHandle) Query() QueryCounterCookie {
	return QueryCounter(h.Conn(), h.Id())
}

func (h CounterHandle) Destroy() DestroyCounterCookie {
	return DestroyCounter(h.Conn(), h.Id())
}

func (h CounterHandle) DestroyChecked() DestroyCounterCookie {
	return DestroyCounterChecked(h.Conn(), h.Id())
}

// FenceHandle binds a fence id to its connection.
type FenceHandle struct {
	xgb.Handle[Fence]
}

// NewFenceHandle binds raw to c.
func NewFenceHandle(c *xgb.Conn, raw uint32) FenceHandle {
	return FenceHandle{xgb.MakeHandle[Fence](c, raw)}
}

func (h FenceHandle) Trigger() TriggerFenceCookie {
	return TriggerFence(h.Conn(), h.Id())
}

func (h FenceHandle) TriggerChecked() TriggerFenceCookie {
	return TriggerFenceChecked(h.Conn(), h.Id())
}

func (h FenceHandle) Reset() ResetFenceCookie {
	return ResetFence(h.Conn(), h.Id())
}

func (h FenceHandle) ResetChecked() ResetFenceCookie {
	return ResetFenceChecked(h.Conn(), h.Id())
}

func (h FenceHandle) Query() QueryFenceCookie {
	return QueryFence(h.Conn(), h.Id())
}

func (h FenceHandle) Destroy() DestroyFenceCookie {
	return DestroyFence(h.Conn(), h.Id())
}

func (h FenceHandle) DestroyChecked() DestroyFenceCookie {
	return DestroyFenceChecked(h.Conn(), h.Id())
}
