package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"

	xgb "github.com/BurntSushi/xgbext"
	"github.com/BurntSushi/xgbext/internal/xgbtest"
	"github.com/BurntSushi/xgbext/randr"
	"github.com/BurntSushi/xgbext/sync"
	"github.com/BurntSushi/xgbext/xcmisc"
)

var (
	randrExt  = xgbtest.Extension{Name: randr.ExtName, MajorOpcode: 140, FirstEvent: 89, FirstError: 147}
	syncExt   = xgbtest.Extension{Name: sync.ExtName, MajorOpcode: 134, FirstEvent: 95, FirstError: 154}
	xcmiscExt = xgbtest.Extension{Name: xcmisc.ExtName, MajorOpcode: 130}
)

func words(vals ...uint32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		xgb.Put32(buf[4*i:], v)
	}
	return buf
}

// handler answers version queries and describes one output on one crtc
// and a single system counter.
func handler(req xgbtest.Request) []byte {
	switch req.Major {
	case randrExt.MajorOpcode:
		switch req.Minor {
		case 0: // QueryVersion
			return xgbtest.ReplyBytes(req.Sequence, 0, words(1, 5))
		case 8: // GetScreenResources
			body := make([]byte, 24)
			xgb.Put16(body[8:], 1)
			xgb.Put16(body[10:], 1)
			xgb.Put16(body[12:], 1)
			xgb.Put16(body[14:], 8)
			body = append(body, words(0x3f, 0x41)...)
			mode := make([]byte, 32)
			xgb.Put32(mode[0:], 0x4a)
			xgb.Put16(mode[4:], 1024)
			xgb.Put16(mode[6:], 768)
			xgb.Put16(mode[26:], 8)
			body = append(body, mode...)
			body = append(body, "1024x768"...)
			return xgbtest.ReplyBytes(req.Sequence, 0, body)
		case 9: // GetOutputInfo
			body := make([]byte, 28)
			xgb.Put32(body[4:], 0x3f)
			xgb.Put16(body[18:], 1)
			xgb.Put16(body[20:], 1)
			xgb.Put16(body[26:], 5)
			body = append(body, words(0x3f, 0x4a)...)
			body = append(body, "eDP-1"...)
			return xgbtest.ReplyBytes(req.Sequence, 0, xgb.PadBytes(body))
		case 20: // GetCrtcInfo
			body := make([]byte, 24)
			xgb.Put16(body[8:], 1024)
			xgb.Put16(body[10:], 768)
			xgb.Put16(body[20:], 1)
			body = append(body, words(0x41)...)
			return xgbtest.ReplyBytes(req.Sequence, 0, body)
		case 4: // SelectInput
			return nil
		}
	case syncExt.MajorOpcode:
		switch req.Minor {
		case 0: // Initialize
			return xgbtest.ReplyBytes(req.Sequence, 0, []byte{3, 1})
		case 1: // ListSystemCounters
			body := make([]byte, 24)
			xgb.Put32(body, 1)
			counter := make([]byte, 24)
			xgb.Put32(counter[0:], 0x10)
			xgb.Put32(counter[8:], 4)
			xgb.Put16(counter[12:], 10)
			copy(counter[14:], "SERVERTIME")
			return xgbtest.ReplyBytes(req.Sequence, 0, append(body, counter...))
		}
	case xcmiscExt.MajorOpcode:
		return xgbtest.ReplyBytes(req.Sequence, 0, []byte{1, 0, 1, 0})
	}
	return nil
}

func newConn(t *testing.T) (*xgb.Conn, *xgbtest.Server) {
	t.Helper()
	s := xgbtest.NewServer(handler, randrExt, syncExt, xcmiscExt)
	c, err := xgb.NewConnNet(s)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
		<-c.Done()
		s.Close()
		goleak.VerifyNone(t)
	})
	return c, s
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		args    []string
		want    options
		wantErr bool
	}{
		{nil, options{format: "text"}, false},
		{[]string{"-d", ":1", "--format", "yaml", "-wq"}, options{display: ":1", format: "yaml", watch: true, quiet: true}, false},
		{[]string{"--format", "json"}, options{}, true},
		{[]string{"extra"}, options{}, true},
		{[]string{"--nope"}, options{}, true},
	}
	for _, tt := range tests {
		got, err := parseFlags(tt.args)
		if tt.wantErr {
			require.Error(t, err, "%v", tt.args)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}

func TestCollect(t *testing.T) {
	c, _ := newConn(t)

	rep, err := collect(c)
	require.NoError(t, err)

	require.Equal(t, xgbtest.Vendor, rep.Vendor)
	require.Len(t, rep.Extensions, 5)
	require.False(t, rep.present("GLX"))
	require.False(t, rep.present("RENDER"))
	require.True(t, rep.present(randr.ExtName))
	require.Equal(t, extensionReport{Name: "RANDR", Present: true, MajorOpcode: 140,
		FirstEvent: 89, FirstError: 147, Version: "1.5"}, rep.Extensions[1])
	require.Equal(t, "3.1", rep.Extensions[3].Version)
	require.Equal(t, "1.1", rep.Extensions[4].Version)

	require.Equal(t, []outputReport{{Id: 0x41, Name: "eDP-1", Connected: true, Crtc: 0x3f, Mode: "1024x768"}}, rep.Outputs)
	require.Equal(t, []crtcReport{{Id: 0x3f, Width: 1024, Height: 768, Outputs: 1}}, rep.Crtcs)
	require.Equal(t, []counterReport{{Id: 0x10, Name: "SERVERTIME", Resolution: 4}}, rep.Counters)
}

func TestNoDefaultScreen(t *testing.T) {
	c, _ := newConn(t)
	rep, err := collect(c)
	require.NoError(t, err)
	c.Setup.Roots = nil

	_, err = collect(c)
	require.ErrorIs(t, err, errNoScreen)
	require.ErrorContains(t, err, randr.ExtName)
	require.ErrorIs(t, watch(c, rep, io.Discard), errNoScreen)
}

func TestWriteReport(t *testing.T) {
	c, _ := newConn(t)
	rep, err := collect(c)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.write(&buf, "yaml"))
	var decoded report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, *rep, decoded)

	buf.Reset()
	require.NoError(t, rep.write(&buf, "text"))
	require.Contains(t, buf.String(), "GLX      absent")
	require.Contains(t, buf.String(), "output eDP-1: connected 1024x768")
	require.Contains(t, buf.String(), "counter SERVERTIME: resolution 4")
}

func TestWatch(t *testing.T) {
	xgb.SetLogOutput(io.Discard)
	defer xgb.SetLogOutput(os.Stderr)

	c, s := newConn(t)
	rep, err := collect(c)
	require.NoError(t, err)
	countBefore := s.Count(randrExt.MajorOpcode)

	body := make([]byte, 28)
	xgb.Put16(body[20:], 800)
	xgb.Put16(body[22:], 600)
	require.NoError(t, s.Push(xgbtest.EventBytes(randrExt.FirstEvent+randr.ScreenChangeNotify,
		0, s.LastSequence(), body)))

	out := &lockedBuffer{}
	done := make(chan error)
	go func() { done <- watch(c, rep, out) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "ScreenChangeNotify")
	}, 5*time.Second, 10*time.Millisecond)
	c.Close()

	require.ErrorIs(t, <-done, xgb.ErrClosed)
	require.Equal(t, 1, s.Count(randrExt.MajorOpcode)-countBefore)
}

// lockedBuffer is written by the mux goroutine and read by the test.
type lockedBuffer struct {
	mu  stdsync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
