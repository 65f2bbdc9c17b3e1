package xgb

import (
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

// Reply owns the raw bytes of one reply, header included. Typed replies
// embed it and expose their variable length fields as List views into it.
//
// Release hands the buffer back to the pool. Any view read after Release
// panics with ErrReplyReleased.
type Reply struct {
	bb       *bytebufferpool.ByteBuffer
	released atomic.Bool
}

func newReply(bb *bytebufferpool.ByteBuffer) *Reply {
	return &Reply{bb: bb}
}

// NewReply wraps buf, which the Reply takes ownership of.
func NewReply(buf []byte) *Reply {
	return newReply(&bytebufferpool.ByteBuffer{B: buf})
}

// Bytes returns the reply's buffer.
func (r *Reply) Bytes() []byte {
	if r.released.Load() {
		panic(ErrReplyReleased)
	}
	return r.bb.B
}

func (r *Reply) Sequence() uint16 { return Get16(r.Bytes()[2:]) }

// Length is the reply length beyond the first 32 bytes, in 4-byte units.
func (r *Reply) Length() uint32 { return Get32(r.Bytes()[4:]) }

// Release returns the buffer to the pool. It is safe to call more than once.
func (r *Reply) Release() {
	if r.released.CompareAndSwap(false, true) {
		bytebufferpool.Put(r.bb)
	}
}

// Accessor decodes element i of a list from a reply buffer.
type Accessor[T any] func(buf []byte, i int) T

// LengthFunc reports the element count of a list from a reply buffer.
type LengthFunc func(buf []byte) int

// List is a lazy, read-only view of a variable length array in a reply.
// Elements are decoded on access, in wire order. A List never outlives
// the Reply it was built from.
type List[T any] struct {
	src    *Reply
	at     Accessor[T]
	length LengthFunc
}

func NewList[T any](src *Reply, at Accessor[T], length LengthFunc) List[T] {
	return List[T]{src: src, at: at, length: length}
}

func (l List[T]) Len() int {
	if l.src == nil {
		return 0
	}
	return l.length(l.src.Bytes())
}

// At decodes element i. It panics if i is out of range.
func (l List[T]) At(i int) T {
	buf := l.src.Bytes()
	if i < 0 || i >= l.length(buf) {
		panic("xgb: list index out of range")
	}
	return l.at(buf, i)
}

// Iter returns a fresh forward-only iterator positioned before the first
// element.
func (l List[T]) Iter() *Iterator[T] {
	return &Iterator[T]{list: l, i: -1, n: l.Len()}
}

// Slice decodes every element into a new slice.
func (l List[T]) Slice() []T {
	n := l.Len()
	out := make([]T, 0, n)
	for it := l.Iter(); it.Next(); {
		out = append(out, it.Value())
	}
	return out
}

// Iterator walks a List once. Build a new one from the List to start over.
type Iterator[T any] struct {
	list List[T]
	i, n int
	cur  T
}

// Next advances to the next element, reporting whether there was one.
func (it *Iterator[T]) Next() bool {
	if it.i+1 >= it.n {
		it.i = it.n
		return false
	}
	it.i++
	it.cur = it.list.at(it.list.src.Bytes(), it.i)
	return true
}

// Value is the element Next moved to.
func (it *Iterator[T]) Value() T { return it.cur }

// Index is the position of Value in the list.
func (it *Iterator[T]) Index() int { return it.i }
