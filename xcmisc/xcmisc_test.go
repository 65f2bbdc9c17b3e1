package xcmisc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	xgb "github.com/BurntSushi/xgbext"
	"github.com/BurntSushi/xgbext/internal/xgbtest"
)

var testExt = xgbtest.Extension{Name: ExtName, MajorOpcode: 130}

const recycledStart = 0x04000100

func handler(req xgbtest.Request) []byte {
	if req.Major != testExt.MajorOpcode {
		return nil
	}
	body := make([]byte, 8)
	switch req.Minor {
	case 0:
		xgb.Put16(body[0:], MajorVersion)
		xgb.Put16(body[2:], MinorVersion)
	case 1:
		xgb.Put32(body[0:], recycledStart)
		xgb.Put32(body[4:], 2)
	case 2:
		n := xgb.Get32(req.Data[4:])
		body = make([]byte, 24+4*n)
		xgb.Put32(body[0:], n)
		for i := uint32(0); i < n; i++ {
			xgb.Put32(body[24+4*i:], recycledStart+i)
		}
	}
	return xgbtest.ReplyBytes(req.Sequence, 0, body)
}

func newConn(t *testing.T, s *xgbtest.Server) *xgb.Conn {
	t.Helper()
	c, err := xgb.NewConnNet(s)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
		<-c.Done()
		s.Close()
		goleak.VerifyNone(t)
	})
	return c
}

func TestGetVersion(t *testing.T) {
	c := newConn(t, xgbtest.NewServer(handler, testExt))
	require.NoError(t, Init(c))

	reply, err := GetVersion(c, MajorVersion, MinorVersion).Reply()
	require.NoError(t, err)
	require.EqualValues(t, MajorVersion, reply.ServerMajorVersion)
	require.EqualValues(t, MinorVersion, reply.ServerMinorVersion)
}

func TestGetXIDList(t *testing.T) {
	c := newConn(t, xgbtest.NewServer(handler, testExt))
	require.NoError(t, Init(c))

	reply, err := GetXIDList(c, 3).Reply()
	require.NoError(t, err)
	defer reply.Release()
	require.EqualValues(t, 3, reply.IdsLen)
	require.Equal(t, []uint32{recycledStart, recycledStart + 1, recycledStart + 2}, reply.Ids().Slice())
}

func TestGetXIDListMalformed(t *testing.T) {
	s := xgbtest.NewServer(func(req xgbtest.Request) []byte {
		body := make([]byte, 4)
		xgb.Put32(body, 100) // claims far more ids than sent
		return xgbtest.ReplyBytes(req.Sequence, 0, body)
	}, testExt)
	c := newConn(t, s)
	require.NoError(t, Init(c))

	_, err := GetXIDList(c, 100).Reply()
	require.ErrorIs(t, err, xgb.ErrMalformed)
}

func TestNewIdRecycling(t *testing.T) {
	s := xgbtest.NewServer(handler, testExt)
	s.ResourceIdMask = 0x3
	c := newConn(t, s)
	require.NoError(t, Init(c))

	for i := 0; i < 3; i++ {
		_, err := c.NewId()
		require.NoError(t, err)
	}
	for i := uint32(0); i < 2; i++ {
		id, err := c.NewId()
		require.NoError(t, err)
		require.Equal(t, recycledStart+i, id)
	}
	require.Equal(t, 1, countMinor(s, 1))
}

func TestUnavailable(t *testing.T) {
	s := xgbtest.NewServer(handler)
	c := newConn(t, s)

	require.ErrorIs(t, Init(c), xgb.ErrExtensionUnavailable)
	_, err := GetXIDRange(c).Reply()
	require.ErrorIs(t, err, xgb.ErrExtensionUnavailable)
	require.Zero(t, s.Count(testExt.MajorOpcode))
}

func countMinor(s *xgbtest.Server, minor byte) int {
	n := 0
	for _, req := range s.Requests() {
		if req.Major == testExt.MajorOpcode && req.Minor == minor {
			n++
		}
	}
	return n
}
