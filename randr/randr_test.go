package randr

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	xgb "github.com/BurntSushi/xgbext"
	"github.com/BurntSushi/xgbext/internal/xgbtest"
)

var testExt = xgbtest.Extension{Name: ExtName, MajorOpcode: 140, FirstEvent: 89, FirstError: 147}

const (
	testCrtc   = 0x3f
	testOutput = 0x41
	testMode   = 0x4a
)

func u32s(vals ...uint32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		xgb.Put32(buf[4*i:], v)
	}
	return buf
}

func handler(req xgbtest.Request) []byte {
	if req.Major != testExt.MajorOpcode {
		return nil
	}
	switch req.Minor {
	case opQueryVersion:
		return xgbtest.ReplyBytes(req.Sequence, 0, u32s(MajorVersion, MinorVersion))
	case opGetScreenResources:
		names := "1920x10801280x720"
		body := make([]byte, 24)
		xgb.Put32(body[0:], 100)
		xgb.Put32(body[4:], 99)
		xgb.Put16(body[8:], 1)  // crtcs
		xgb.Put16(body[10:], 2) // outputs
		xgb.Put16(body[12:], 2) // modes
		xgb.Put16(body[14:], uint16(len(names)))
		body = append(body, u32s(testCrtc)...)
		body = append(body, u32s(testOutput, testOutput+1)...)
		body = append(body, modeBytes(testMode, 1920, 1080, 9)...)
		body = append(body, modeBytes(testMode+1, 1280, 720, 8)...)
		body = append(body, names...)
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	case opGetOutputInfo:
		if xgb.Get32(req.Data[4:]) != testOutput {
			return xgbtest.ErrorBytes(req.Sequence, testExt.FirstError+BadOutput,
				xgb.Get32(req.Data[4:]), uint16(req.Minor), req.Major)
		}
		name := "HDMI-1"
		body := make([]byte, 28)
		xgb.Put32(body[0:], 100)
		xgb.Put32(body[4:], testCrtc)
		xgb.Put32(body[8:], 600)
		xgb.Put32(body[12:], 340)
		body[16] = ConnectionConnected
		xgb.Put16(body[18:], 1) // crtcs
		xgb.Put16(body[20:], 2) // modes
		xgb.Put16(body[22:], 1) // preferred
		xgb.Put16(body[24:], 0) // clones
		xgb.Put16(body[26:], uint16(len(name)))
		body = append(body, u32s(testCrtc, testMode, testMode+1)...)
		body = append(body, name...)
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	case opGetCrtcInfo:
		body := make([]byte, 24)
		xgb.Put32(body[0:], 100)
		xgb.Put16(body[4:], uint16(0xfff6)) // x = -10
		xgb.Put16(body[6:], 20)
		xgb.Put16(body[8:], 1920)
		xgb.Put16(body[10:], 1080)
		xgb.Put32(body[12:], testMode)
		xgb.Put16(body[16:], RotationRotate0)
		xgb.Put16(body[18:], RotationRotate0|RotationRotate90)
		xgb.Put16(body[20:], 1)
		xgb.Put16(body[22:], 2)
		body = append(body, u32s(testOutput, testOutput, testOutput+1)...)
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	case opGetProviders:
		body := make([]byte, 24)
		xgb.Put32(body[0:], 100)
		xgb.Put16(body[4:], 1)
		body = append(body, u32s(0x7)...)
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	}
	return nil
}

func modeBytes(id uint32, w, h uint16, nameLen uint16) []byte {
	buf := make([]byte, modeInfoSize)
	xgb.Put32(buf[0:], id)
	xgb.Put16(buf[4:], w)
	xgb.Put16(buf[6:], h)
	xgb.Put32(buf[8:], 148500000)
	xgb.Put16(buf[26:], nameLen)
	return buf
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

func TestQueryVersion(t *testing.T) {
	c, _ := newConn(t, handler)

	reply, err := QueryVersion(c, MajorVersion, MinorVersion).Reply()
	require.NoError(t, err)
	require.EqualValues(t, MajorVersion, reply.MajorVersion)
	require.EqualValues(t, MinorVersion, reply.MinorVersion)
}

func TestGetScreenResources(t *testing.T) {
	c, _ := newConn(t, handler)

	reply, err := GetScreenResources(c, xgbtest.Root).Reply()
	require.NoError(t, err)
	defer reply.Release()

	require.EqualValues(t, 99, reply.ConfigTimestamp)
	require.Equal(t, []Crtc{testCrtc}, reply.Crtcs().Slice())
	require.Equal(t, []Output{testOutput, testOutput + 1}, reply.Outputs().Slice())

	modes := reply.Modes()
	require.Equal(t, 2, modes.Len())
	require.EqualValues(t, testMode, modes.At(0).Id)
	require.EqualValues(t, 720, modes.At(1).Height)
	require.Equal(t, []string{"1920x1080", "1280x720"}, reply.ModeNames())
}

func TestGetScreenResourcesMalformed(t *testing.T) {
	c, _ := newConn(t, func(req xgbtest.Request) []byte {
		body := make([]byte, 24)
		xgb.Put16(body[12:], 4) // four modes, none sent
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	})

	_, err := GetScreenResources(c, xgbtest.Root).Reply()
	require.ErrorIs(t, err, xgb.ErrMalformed)
}

func TestGetScreenResourcesNamesOverrun(t *testing.T) {
	c, _ := newConn(t, func(req xgbtest.Request) []byte {
		body := make([]byte, 24)
		xgb.Put16(body[12:], 2) // modes
		xgb.Put16(body[14:], 9) // names
		body = append(body, modeBytes(testMode, 1920, 1080, 9)...)
		body = append(body, modeBytes(testMode+1, 1280, 720, 20)...)
		body = append(body, "1920x1080"...)
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	})

	_, err := GetScreenResources(c, xgbtest.Root).Reply()
	require.ErrorIs(t, err, xgb.ErrMalformed)
	var derr *xgb.DecodeError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, 29, derr.Need)
	require.Equal(t, 9, derr.Have)
}

func TestOutputAndCrtcInfo(t *testing.T) {
	c, _ := newConn(t, handler)

	output, err := NewOutputHandle(c, testOutput).Info(0).Reply()
	require.NoError(t, err)
	defer output.Release()
	require.Equal(t, "HDMI-1", output.Name())
	require.EqualValues(t, ConnectionConnected, output.Connection)
	require.Equal(t, []Crtc{testCrtc}, output.Crtcs().Slice())
	require.Equal(t, []Mode{testMode, testMode + 1}, output.Modes().Slice())
	require.Zero(t, output.Clones().Len())

	crtc := NewCrtcHandle(c, uint32(output.Crtc))
	info, err := crtc.Info(0).Reply()
	require.NoError(t, err)
	defer info.Release()
	require.EqualValues(t, -10, info.X)
	require.EqualValues(t, 1920, info.Width)
	require.Equal(t, []Output{testOutput}, info.Outputs().Slice())
	require.Equal(t, []Output{testOutput, testOutput + 1}, info.Possible().Slice())
}

func TestBadOutput(t *testing.T) {
	c, _ := newConn(t, handler)

	_, err := GetOutputInfo(c, 0x999, 0).Reply()
	var oerr BadOutputError
	require.ErrorAs(t, err, &oerr)
	require.EqualValues(t, 0x999, oerr.BadId())
}

func TestGetProviders(t *testing.T) {
	c, _ := newConn(t, handler)

	reply, err := GetProviders(c, xgbtest.Root).Reply()
	require.NoError(t, err)
	require.Equal(t, []Provider{7}, reply.Providers().Slice())
	reply.Release()
	require.Panics(t, func() { reply.Providers().Len() })
}

func TestSelectInput(t *testing.T) {
	c, s := newConn(t, handler)

	require.NoError(t, SelectInputChecked(c, xgbtest.Root, NotifyMaskScreenChange|NotifyMaskCrtcChange).Check())
	reqs := s.Requests()
	req := reqs[len(reqs)-2] // before the sync round trip
	require.EqualValues(t, opSelectInput, req.Minor)
	require.EqualValues(t, xgbtest.Root, xgb.Get32(req.Data[4:]))
	require.EqualValues(t, 3, xgb.Get16(req.Data[8:]))
	require.Len(t, req.Data, 12)
}

func TestNotifyEvents(t *testing.T) {
	c, s := newConn(t, handler)

	body := make([]byte, 28)
	xgb.Put32(body[8:], xgbtest.Root)
	xgb.Put16(body[20:], 1280)
	xgb.Put16(body[22:], 720)
	require.NoError(t, s.Push(xgbtest.EventBytes(testExt.FirstEvent+ScreenChangeNotify,
		RotationRotate90, s.LastSequence(), body)))

	body = make([]byte, 28)
	xgb.Put32(body[8:], testCrtc)
	xgb.Put32(body[12:], testMode)
	xgb.Put16(body[20:], uint16(0xffff)) // x = -1
	require.NoError(t, s.Push(xgbtest.EventBytes(testExt.FirstEvent+Notify,
		NotifyCrtcChange, s.LastSequence(), body)))

	body = make([]byte, 28)
	xgb.Put32(body[12:], testOutput)
	body[26] = ConnectionDisconnected
	require.NoError(t, s.Push(xgbtest.EventBytes(testExt.FirstEvent+Notify,
		NotifyOutputChange, s.LastSequence(), body)))

	ev, _ := c.WaitForEvent()
	sc, ok := ev.(ScreenChangeNotifyEvent)
	require.True(t, ok, "got %T", ev)
	require.EqualValues(t, RotationRotate90, sc.Rotation)
	require.EqualValues(t, xgbtest.Root, sc.Root)
	require.EqualValues(t, 1280, sc.Width)
	require.EqualValues(t, 720, sc.Height)

	ev, _ = c.WaitForEvent()
	cc, ok := ev.(NotifyEvent).CrtcChange()
	require.True(t, ok)
	require.EqualValues(t, testCrtc, cc.Crtc)
	require.EqualValues(t, testMode, cc.Mode)
	require.EqualValues(t, -1, cc.X)
	_, ok = ev.(NotifyEvent).OutputChange()
	require.False(t, ok)

	ev, _ = c.WaitForEvent()
	oc, ok := ev.(NotifyEvent).OutputChange()
	require.True(t, ok)
	require.EqualValues(t, testOutput, oc.Output)
	require.EqualValues(t, ConnectionDisconnected, oc.Connection)
	require.Contains(t, ev.String(), "OutputChange")
}
