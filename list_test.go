package xgb

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// u32Reply builds a reply holding a count at byte 8 and that many CARD32s
// from byte 32.
func u32Reply(vals ...uint32) *Reply {
	buf := make([]byte, 32+4*len(vals))
	buf[0] = 1
	Put32(buf[4:], uint32(len(vals)))
	Put32(buf[8:], uint32(len(vals)))
	for i, v := range vals {
		Put32(buf[32+4*i:], v)
	}
	return NewReply(buf)
}

func u32List(r *Reply) List[uint32] {
	return NewList(r,
		func(buf []byte, i int) uint32 { return Get32(buf[32+4*i:]) },
		func(buf []byte) int { return int(Get32(buf[8:])) })
}

func TestList(t *testing.T) {
	r := u32Reply(3, 1, 4, 1, 5)
	l := u32List(r)

	require.Equal(t, 5, l.Len())
	require.EqualValues(t, 4, l.At(2))
	require.Equal(t, []uint32{3, 1, 4, 1, 5}, l.Slice())
	require.Equal(t, l.Slice(), l.Slice())

	it := l.Iter()
	var got []uint32
	for it.Next() {
		require.Equal(t, len(got), it.Index())
		got = append(got, it.Value())
	}
	require.Equal(t, l.Slice(), got)
	require.False(t, it.Next())

	// A fresh iterator starts over.
	it = l.Iter()
	require.True(t, it.Next())
	require.EqualValues(t, 3, it.Value())

	require.Panics(t, func() { l.At(5) })
	require.Panics(t, func() { l.At(-1) })
}

func TestListEmpty(t *testing.T) {
	l := u32List(u32Reply())
	require.Zero(t, l.Len())
	require.Empty(t, l.Slice())
	require.False(t, l.Iter().Next())

	var zero List[uint32]
	require.Zero(t, zero.Len())
	require.Empty(t, zero.Slice())
}

func TestReplyRelease(t *testing.T) {
	r := u32Reply(1, 2)
	l := u32List(r)
	it := l.Iter()
	require.True(t, it.Next())

	r.Release()
	r.Release()

	require.PanicsWithValue(t, ErrReplyReleased, func() { l.Len() })
	require.PanicsWithValue(t, ErrReplyReleased, func() { l.At(0) })
	require.PanicsWithValue(t, ErrReplyReleased, func() { it.Next() })
	require.PanicsWithValue(t, ErrReplyReleased, func() { r.Bytes() })
}

func TestCheckExtent(t *testing.T) {
	buf := make([]byte, 40)
	require.NoError(t, CheckExtent("thing", buf, 40))

	err := CheckExtent("thing", buf, 44)
	require.True(t, errors.Is(err, ErrMalformed))
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, 44, derr.Need)
	require.Equal(t, 40, derr.Have)
	require.Contains(t, err.Error(), "thing")
}

type testId uint32

func TestMakeHandle(t *testing.T) {
	tests := []uint32{0, 1, 0x04000001, math.MaxUint32}
	for _, raw := range tests {
		h := MakeHandle[testId](nil, raw)
		require.EqualValues(t, raw, h.Id())
		require.Equal(t, raw == 0, h.IsNone())
		require.Nil(t, h.Conn())
	}
}

func TestPad(t *testing.T) {
	for n, want := range map[int]int{0: 0, 1: 4, 3: 4, 4: 4, 5: 8} {
		require.Equal(t, want, Pad(n))
		require.Len(t, PadBytes(make([]byte, n)), want)
	}
}
