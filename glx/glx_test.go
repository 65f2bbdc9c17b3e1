package glx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	xgb "github.com/BurntSushi/xgbext"
	"github.com/BurntSushi/xgbext/internal/xgbtest"
)

var testExt = xgbtest.Extension{Name: ExtName, MajorOpcode: 151, FirstEvent: 100, FirstError: 170}

const vendor = "xgbtest GL"

// fakeGLX tracks contexts and whether each is direct.
type fakeGLX struct {
	contexts map[uint32]bool
}

func (f *fakeGLX) handle(req xgbtest.Request) []byte {
	if req.Major != testExt.MajorOpcode {
		return nil
	}
	d := req.Data
	badContext := func() []byte {
		return xgbtest.ErrorBytes(req.Sequence, testExt.FirstError+BadContext,
			xgb.Get32(d[4:]), uint16(req.Minor), req.Major)
	}

	switch req.Minor {
	case opQueryVersion:
		return xgbtest.ReplyBytes(req.Sequence, 0, d[4:12])
	case opCreateContext:
		if xgb.Get32(d[8:]) != xgbtest.RootVisual {
			return xgbtest.ErrorBytes(req.Sequence, testExt.FirstError+BadFBConfig,
				xgb.Get32(d[8:]), uint16(req.Minor), req.Major)
		}
		f.contexts[xgb.Get32(d[4:])] = d[20] != 0
	case opDestroyContext:
		if _, ok := f.contexts[xgb.Get32(d[4:])]; !ok {
			return badContext()
		}
		delete(f.contexts, xgb.Get32(d[4:]))
	case opIsDirect:
		direct, ok := f.contexts[xgb.Get32(d[4:])]
		if !ok {
			return badContext()
		}
		return xgbtest.ReplyBytes(req.Sequence, 0, []byte{xgb.BoolToByte(direct)})
	case opQueryServerString:
		body := make([]byte, 24)
		xgb.Put32(body[4:], uint32(len(vendor)))
		body = xgb.PadBytes(append(body, vendor...))
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	case opGetFBConfigs:
		body := make([]byte, 24)
		xgb.Put32(body[0:], 2) // configs
		xgb.Put32(body[4:], 2) // properties
		for _, v := range []uint32{
			AttrFBConfigID, 0x90, AttrDepthSize, 24,
			AttrFBConfigID, 0x91, AttrDepthSize, 0,
		} {
			word := make([]byte, 4)
			xgb.Put32(word, v)
			body = append(body, word...)
		}
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	}
	return nil
}

func newConn(t *testing.T, h xgbtest.Handler) (*xgb.Conn, *xgbtest.Server) {
	t.Helper()
	s := xgbtest.NewServer(h, testExt)
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

func newFake(t *testing.T) (*xgb.Conn, *xgbtest.Server) {
	f := &fakeGLX{contexts: map[uint32]bool{}}
	return newConn(t, f.handle)
}

func TestQueryVersion(t *testing.T) {
	c, _ := newFake(t)

	reply, err := QueryVersion(c, MajorVersion, MinorVersion).Reply()
	require.NoError(t, err)
	require.EqualValues(t, MajorVersion, reply.MajorVersion)
	require.EqualValues(t, MinorVersion, reply.MinorVersion)
}

func TestQueryServerString(t *testing.T) {
	c, _ := newFake(t)

	reply, err := QueryServerString(c, 0, GCVendor).Reply()
	require.NoError(t, err)
	require.Equal(t, vendor, reply.String)
}

func TestContextLifecycle(t *testing.T) {
	c, _ := newFake(t)

	id, err := NewContextId(c)
	require.NoError(t, err)
	require.NoError(t, CreateContextChecked(c, id, xgbtest.RootVisual, 0, 0, true).Check())

	ctx := NewContextHandle(c, uint32(id))
	reply, err := ctx.IsDirect().Reply()
	require.NoError(t, err)
	require.True(t, reply.IsDirect)

	require.NoError(t, ctx.DestroyChecked().Check())

	_, err = ctx.IsDirect().Reply()
	var cerr BadContextError
	require.ErrorAs(t, err, &cerr)
	require.EqualValues(t, id, cerr.BadId())
	require.EqualValues(t, opIsDirect, cerr.MinorOpcode)
}

func TestErrorsShareGeneric(t *testing.T) {
	c, _ := newFake(t)

	id, err := NewContextId(c)
	require.NoError(t, err)
	err = CreateContextChecked(c, id, 0x77, 0, 0, false).Check()

	var gerr Error
	require.True(t, errors.As(err, &gerr))
	require.IsType(t, BadFBConfigError{}, gerr)
	require.Equal(t, "BadFBConfig", gerr.Generic().Name)
	require.EqualValues(t, testExt.FirstError+BadFBConfig, gerr.Generic().Code)

	// Every registered constructor yields a GLX error.
	buf := make([]byte, 32)
	for code, fn := range Info.Errors {
		buf[1] = testExt.FirstError + code
		_, ok := fn(buf).(Error)
		require.True(t, ok, "code %d", code)
	}
	require.Len(t, Info.Errors, GLXBadProfileARB+1)
}

func TestUncheckedDestroy(t *testing.T) {
	c, _ := newFake(t)

	cookie := DestroyContext(c, 0x42)
	ev, xerr := c.WaitForEvent()
	require.Nil(t, ev)
	require.IsType(t, BadContextError{}, xerr)
	require.Equal(t, cookie.Sequence(), xerr.SequenceId())
}

func TestGetFBConfigs(t *testing.T) {
	c, _ := newFake(t)

	reply, err := GetFBConfigs(c, 0).Reply()
	require.NoError(t, err)
	defer reply.Release()

	configs := reply.FBConfigs()
	require.Equal(t, 2, configs.Len())
	id, ok := configs.At(1).Get(AttrFBConfigID)
	require.True(t, ok)
	require.EqualValues(t, 0x91, id)
	depth, ok := configs.At(0).Get(AttrDepthSize)
	require.True(t, ok)
	require.EqualValues(t, 24, depth)
	_, ok = configs.At(0).Get(AttrVisualID)
	require.False(t, ok)

	require.Equal(t, 8, reply.PropertyList().Len())
	require.EqualValues(t, AttrFBConfigID, reply.PropertyList().At(4))
}

func TestGetFBConfigsMalformed(t *testing.T) {
	tests := []struct {
		name                string
		configs, properties uint32
	}{
		{"overrun", 0xffffffff, 0xffffffff},
		{"no properties", 0xffffffff, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newConn(t, func(req xgbtest.Request) []byte {
				body := make([]byte, 24)
				xgb.Put32(body[0:], tt.configs)
				xgb.Put32(body[4:], tt.properties)
				return xgbtest.ReplyBytes(req.Sequence, 0, body)
			})

			_, err := GetFBConfigs(c, 0).Reply()
			require.ErrorIs(t, err, xgb.ErrMalformed)
		})
	}
}

func TestGetFBConfigsEmpty(t *testing.T) {
	c, _ := newConn(t, func(req xgbtest.Request) []byte {
		return xgbtest.ReplyBytes(req.Sequence, 0, make([]byte, 24))
	})

	reply, err := GetFBConfigs(c, 0).Reply()
	require.NoError(t, err)
	defer reply.Release()
	require.Zero(t, reply.FBConfigs().Len())
}

func TestEvents(t *testing.T) {
	c, s := newFake(t)

	body := make([]byte, 28)
	xgb.Put16(body[0:], 0x8017)
	xgb.Put32(body[4:], 0x600)
	xgb.Put16(body[18:], 64)
	xgb.Put16(body[20:], 48)
	require.NoError(t, s.Push(xgbtest.EventBytes(testExt.FirstEvent+PbufferClobber, 0, s.LastSequence(), body)))

	body = make([]byte, 28)
	xgb.Put32(body[4:], 0x600)
	xgb.Put32(body[8:], 1)
	xgb.Put32(body[12:], 2)
	xgb.Put32(body[24:], 9)
	require.NoError(t, s.Push(xgbtest.EventBytes(testExt.FirstEvent+BufferSwapComplete, 0, s.LastSequence(), body)))

	mux := xgb.NewMux()
	var clobber PbufferClobberEvent
	var swap BufferSwapCompleteEvent
	xgb.HandleEvent(mux, func(ev PbufferClobberEvent) { clobber = ev })
	xgb.HandleEvent(mux, func(ev BufferSwapCompleteEvent) { swap = ev })
	for i := 0; i < 2; i++ {
		ev, xerr := c.WaitForEvent()
		require.True(t, mux.Dispatch(ev, xerr))
	}

	require.EqualValues(t, 0x8017, clobber.EventType)
	require.EqualValues(t, 0x600, clobber.Drawable)
	require.EqualValues(t, 64, clobber.Width)
	require.EqualValues(t, 48, clobber.Height)

	require.EqualValues(t, 0x600, swap.Drawable)
	require.Equal(t, uint64(1)<<32|2, swap.Ust())
	require.EqualValues(t, 9, swap.Sbc)
	require.Contains(t, swap.String(), "BufferSwapComplete")
}
