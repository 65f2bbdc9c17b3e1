package sync

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	xgb "github.com/BurntSushi/xgbext"
	"github.com/BurntSushi/xgbext/internal/xgbtest"
)

var testExt = xgbtest.Extension{Name: ExtName, MajorOpcode: 134, FirstEvent: 95, FirstError: 160}

// fakeSync keeps counter values the way a server would.
type fakeSync struct {
	counters map[uint32]int64
	fences   map[uint32]bool
}

func newFakeSync() *fakeSync {
	return &fakeSync{counters: map[uint32]int64{}, fences: map[uint32]bool{}}
}

func (f *fakeSync) handle(req xgbtest.Request) []byte {
	if req.Major != testExt.MajorOpcode {
		return nil
	}
	d := req.Data
	badCounter := func() []byte {
		return xgbtest.ErrorBytes(req.Sequence, testExt.FirstError+BadCounter,
			xgb.Get32(d[4:]), uint16(req.Minor), req.Major)
	}

	switch req.Minor {
	case opInitialize:
		return xgbtest.ReplyBytes(req.Sequence, 0, []byte{d[4], d[5]})
	case opListSystemCounters:
		body := make([]byte, 24)
		xgb.Put32(body, 2)
		body = append(body, systemCounterBytes(0x10, 4, "SERVERTIME")...)
		body = append(body, systemCounterBytes(0x11, 1, "IDLETIME")...)
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	case opCreateCounter:
		f.counters[xgb.Get32(d[4:])] = getInt64(d[8:]).Value()
	case opSetCounter, opChangeCounter:
		id := xgb.Get32(d[4:])
		if _, ok := f.counters[id]; !ok {
			return badCounter()
		}
		if req.Minor == opSetCounter {
			f.counters[id] = getInt64(d[8:]).Value()
		} else {
			f.counters[id] += getInt64(d[8:]).Value()
		}
	case opQueryCounter:
		v, ok := f.counters[xgb.Get32(d[4:])]
		if !ok {
			return badCounter()
		}
		body := make([]byte, 8)
		putInt64(body, MakeInt64(v))
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	case opDestroyCounter:
		delete(f.counters, xgb.Get32(d[4:]))
	case opCreateFence:
		f.fences[xgb.Get32(d[8:])] = d[12] != 0
	case opTriggerFence:
		f.fences[xgb.Get32(d[4:])] = true
	case opResetFence:
		f.fences[xgb.Get32(d[4:])] = false
	case opDestroyFence:
		delete(f.fences, xgb.Get32(d[4:]))
	case opQueryFence:
		return xgbtest.ReplyBytes(req.Sequence, 0,
			[]byte{xgb.BoolToByte(f.fences[xgb.Get32(d[4:])])})
	}
	return nil
}

func systemCounterBytes(id uint32, resolution int64, name string) []byte {
	buf := make([]byte, xgb.Pad(14+len(name)))
	xgb.Put32(buf, id)
	putInt64(buf[4:], MakeInt64(resolution))
	xgb.Put16(buf[12:], uint16(len(name)))
	copy(buf[14:], name)
	return buf
}

func newConn(t *testing.T, handler xgbtest.Handler) (*xgb.Conn, *xgbtest.Server) {
	t.Helper()
	s := xgbtest.NewServer(handler, testExt)
	c, err := xgb.NewConnNet(s)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
		<-c.Done()
		s.Close()
		goleak.VerifyNone(t)
	})
	require.NoError(t, Init(c))
	return c, s
}

func TestInt64(t *testing.T) {
	for _, v := range []int64{0, 1, -1, math.MaxInt64, math.MinInt64, 1 << 32, -(1 << 32) + 5} {
		require.Equal(t, v, MakeInt64(v).Value())
	}
	buf := make([]byte, 8)
	putInt64(buf, MakeInt64(-2))
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0xfe, 0xff, 0xff, 0xff}, buf)
}

func TestInitialize(t *testing.T) {
	c, _ := newConn(t, newFakeSync().handle)

	reply, err := Initialize(c, MajorVersion, MinorVersion).Reply()
	require.NoError(t, err)
	require.EqualValues(t, MajorVersion, reply.MajorVersion)
	require.EqualValues(t, MinorVersion, reply.MinorVersion)
}

func TestListSystemCounters(t *testing.T) {
	c, _ := newConn(t, newFakeSync().handle)

	reply, err := ListSystemCounters(c).Reply()
	require.NoError(t, err)
	defer reply.Release()

	counters := reply.Counters()
	require.Equal(t, 2, counters.Len())
	require.Equal(t, SystemCounter{Counter: 0x10, Resolution: MakeInt64(4), Name: "SERVERTIME"}, counters.At(0))
	require.Equal(t, "IDLETIME", counters.At(1).Name)
	require.Equal(t, counters.Slice(), counters.Slice())
}

func TestListSystemCountersMalformed(t *testing.T) {
	c, _ := newConn(t, func(req xgbtest.Request) []byte {
		body := make([]byte, 24)
		xgb.Put32(body, 2)
		body = append(body, systemCounterBytes(0x10, 4, "SERVERTIME")...)
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	})

	_, err := ListSystemCounters(c).Reply()
	require.ErrorIs(t, err, xgb.ErrMalformed)
}

func TestCounterLifecycle(t *testing.T) {
	c, _ := newConn(t, newFakeSync().handle)

	id, err := NewCounterId(c)
	require.NoError(t, err)
	require.NoError(t, CreateCounterChecked(c, id, MakeInt64(10)).Check())

	counter := NewCounterHandle(c, uint32(id))
	require.NoError(t, counter.ChangeChecked(MakeInt64(-3)).Check())

	reply, err := counter.Query().Reply()
	require.NoError(t, err)
	require.EqualValues(t, 7, reply.CounterValue.Value())

	counter.Set(MakeInt64(1 << 40))
	reply, err = counter.Query().Reply()
	require.NoError(t, err)
	require.EqualValues(t, int64(1)<<40, reply.CounterValue.Value())

	require.NoError(t, counter.DestroyChecked().Check())

	var cerr CounterError
	require.ErrorAs(t, counter.SetChecked(MakeInt64(1)).Check(), &cerr)
	require.EqualValues(t, id, cerr.BadId())
	require.EqualValues(t, opSetCounter, cerr.MinorOpcode)
}

func TestUncheckedCounterError(t *testing.T) {
	c, _ := newConn(t, newFakeSync().handle)

	cookie := QueryCounterUnchecked(c, 0x99)
	reply, err := cookie.Reply()
	require.Nil(t, reply)
	require.NoError(t, err)

	ev, xerr := c.WaitForEvent()
	require.Nil(t, ev)
	require.IsType(t, CounterError{}, xerr)
	require.Equal(t, cookie.Sequence(), xerr.SequenceId())
}

func TestFence(t *testing.T) {
	c, _ := newConn(t, newFakeSync().handle)

	id, err := NewFenceId(c)
	require.NoError(t, err)
	require.NoError(t, CreateFenceChecked(c, xgbtest.Root, id, false).Check())
	fence := NewFenceHandle(c, uint32(id))

	triggered := func() bool {
		reply, err := fence.Query().Reply()
		require.NoError(t, err)
		return reply.Triggered
	}
	require.False(t, triggered())
	fence.Trigger()
	require.True(t, triggered())
	require.NoError(t, fence.ResetChecked().Check())
	require.False(t, triggered())
	require.NoError(t, fence.DestroyChecked().Check())
}

func TestEvents(t *testing.T) {
	c, s := newConn(t, nil)

	body := make([]byte, 28)
	xgb.Put32(body[0:], 0x10)
	putInt64(body[4:], MakeInt64(5))
	putInt64(body[12:], MakeInt64(6))
	xgb.Put32(body[20:], 1234)
	xgb.Put16(body[24:], 1)
	body[26] = 1
	require.NoError(t, s.Push(xgbtest.EventBytes(testExt.FirstEvent+CounterNotify, 3, s.LastSequence(), body)))

	ev, xerr := c.WaitForEvent()
	require.Nil(t, xerr)
	cn, ok := ev.(CounterNotifyEvent)
	require.True(t, ok, "got %T", ev)
	require.EqualValues(t, 3, cn.Kind)
	require.EqualValues(t, 0x10, cn.Counter)
	require.EqualValues(t, 5, cn.WaitValue.Value())
	require.EqualValues(t, 6, cn.CounterValue.Value())
	require.EqualValues(t, 1234, cn.Timestamp)
	require.EqualValues(t, 1, cn.Count)
	require.True(t, cn.Destroyed)
	require.Len(t, cn.Bytes(), 32)

	body = make([]byte, 28)
	xgb.Put32(body[0:], 0x20)
	body[24] = AlarmstateInactive
	require.NoError(t, s.Push(xgbtest.EventBytes(testExt.FirstEvent+AlarmNotify, 0, s.LastSequence(), body)))

	mux := xgb.NewMux()
	var alarm AlarmNotifyEvent
	xgb.HandleEvent(mux, func(ev AlarmNotifyEvent) { alarm = ev })
	ev, xerr = c.WaitForEvent()
	require.True(t, mux.Dispatch(ev, xerr))
	require.EqualValues(t, 0x20, alarm.Alarm)
	require.EqualValues(t, AlarmstateInactive, alarm.State)
}
