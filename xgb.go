// Copyright 2009 The XGB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xgb

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

const (
	readBuffer = 100

	// maxNoReply is how many requests without replies may be written in a
	// row before a round trip is forced, so 16 bit sequence numbers in
	// responses never become ambiguous.
	maxNoReply = 65535

	opcodeGetInputFocus = 43
)

// A Conn represents a connection to an X server.
type Conn struct {
	host          string
	conn          net.Conn
	display       string
	defaultScreen int
	Setup         SetupInfo

	// guarded by writeLock
	lastSeq uint64
	noReply int

	// owned by the read goroutine
	lastResponse uint64

	// guarded by cookieLock, in sequence order
	cookies []*Cookie

	events    queue
	eventChan chan bool

	extensions  map[string]*extensionEntry
	dispatchers []*Dispatcher

	xidChan chan xid

	// guarded by newIdLock
	idRanger    func() (start, count uint32, err error)
	idNext      uint32
	idRemaining uint32

	done    chan struct{}
	closing atomic.Bool
	err     error // written before done is closed

	newIdLock    sync.Mutex
	writeLock    sync.Mutex
	dequeueLock  sync.Mutex
	cookieLock   sync.Mutex
	extLock      sync.Mutex
	dispatchLock sync.RWMutex
}

// NewConn creates a new connection instance. It initializes locks, data
// structures, and performs the initial handshake. (The code for the handshake
// has been relegated to conn.go.)
func NewConn() (*Conn, error) {
	return NewConnDisplay("")
}

// NewConnDisplay is just like NewConn, but allows a specific DISPLAY
// string to be used.
// If 'display' is empty it will be taken from os.Getenv("DISPLAY").
//
// Examples:
//
//	NewConn(":1") -> net.Dial("unix", "", "/tmp/.X11-unix/X1")
//	NewConn("/tmp/launch-123/:0") -> net.Dial("unix", "", "/tmp/launch-123/:0")
//	NewConn("hostname:2.1") -> net.Dial("tcp", "", "hostname:6002")
//	NewConn("tcp/hostname:1.0") -> net.Dial("tcp", "", "hostname:6001")
func NewConnDisplay(display string) (*Conn, error) {
	conn := &Conn{}

	// First connect. This reads authority, checks DISPLAY environment
	// variable, and loads the initial Setup info.
	if err := conn.connect(display); err != nil {
		return nil, err
	}
	return postNewConn(conn)
}

// NewConnNet runs the setup handshake, without authorization data, over an
// already established transport.
func NewConnNet(netConn net.Conn) (*Conn, error) {
	conn := &Conn{conn: netConn}
	if err := conn.handshake("", nil); err != nil {
		return nil, err
	}
	return postNewConn(conn)
}

func postNewConn(c *Conn) (*Conn, error) {
	c.events = queue{data: make([]eventOrError, 100)}
	c.eventChan = make(chan bool, readBuffer)
	c.extensions = make(map[string]*extensionEntry)
	c.xidChan = make(chan xid, 5)
	c.done = make(chan struct{})

	go c.generateXids()
	go c.readResponses()

	return c, nil
}

// Close closes the connection to the X server. Outstanding cookies fail
// with ErrClosed.
func (c *Conn) Close() {
	if c.closing.Swap(true) {
		return
	}
	c.conn.Close()
}

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) closeErr() error {
	if c.err == nil {
		return ErrClosed
	}
	return c.err
}

// DefaultScreen returns the Screen info for the default screen, which is
// 0 or the one given in the display argument to Dial.
func (c *Conn) DefaultScreen() *ScreenInfo {
	if c.defaultScreen >= len(c.Setup.Roots) {
		return nil
	}
	return &c.Setup.Roots[c.defaultScreen]
}

// NewId generates a new unused ID for use with requests like CreateCounter.
// If no new ids can be generated, the id returned is 0 and error is non-nil.
func (c *Conn) NewId() (uint32, error) {
	select {
	case xid := <-c.xidChan:
		if xid.err == errExhausted {
			return c.recycledId()
		}
		if xid.err != nil {
			return 0, xid.err
		}
		return xid.id, nil
	case <-c.done:
		return 0, c.closeErr()
	}
}

// errExhausted tells NewId the setup's id range is used up.
var errExhausted = errors.New("xgb: resource id range exhausted")

// xid encapsulates a resource identifier being sent over the Conn.xidChan
// channel. If no new resource id can be generated, id is set to 0 and a
// non-nil error is set in xid.err.
type xid struct {
	id  uint32
	err error
}

// SetIdRangeSource installs the function NewId falls back on once the
// setup's id range is used up. The XC-MISC extension provides one.
func (c *Conn) SetIdRangeSource(fn func() (start, count uint32, err error)) {
	c.newIdLock.Lock()
	c.idRanger = fn
	c.newIdLock.Unlock()
}

// recycledId hands out ids from ranges the server reports as free.
func (c *Conn) recycledId() (uint32, error) {
	c.newIdLock.Lock()
	defer c.newIdLock.Unlock()

	if c.idRemaining == 0 {
		if c.idRanger == nil {
			return 0, ErrNoIds
		}
		start, count, err := c.idRanger()
		if err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, ErrNoIds
		}
		c.idNext, c.idRemaining = start, count
	}

	id := c.idNext
	c.idNext += c.Setup.ResourceIdMask & -c.Setup.ResourceIdMask
	c.idRemaining--
	return id, nil
}

// generateXids sends new Ids down the channel for NewId to use.
func (c *Conn) generateXids() {
	inc := c.Setup.ResourceIdMask & -c.Setup.ResourceIdMask
	max := c.Setup.ResourceIdMask
	last := uint32(0)

	for {
		var id xid
		switch {
		case inc == 0:
			id.err = ErrNoIds
		case last > 0 && last >= max-inc+1:
			id.err = errExhausted
		default:
			last += inc
			id.id = last | c.Setup.ResourceIdBase
		}

		select {
		case c.xidChan <- id:
		case <-c.done:
			return
		}
	}
}

// NewRequest writes buf to the server and registers cookie so the response
// can find its way back. cookie may be nil for requests nobody tracks.
func (c *Conn) NewRequest(buf []byte, cookie *Cookie) {
	c.sendRequest(cookie, buf)
}

// NewExtensionRequest sends the request build produces for the extension
// named name. If the extension was never resolved on c, nothing is written
// and cookie fails with an *ExtensionUnavailableError.
func (c *Conn) NewExtensionRequest(name string, cookie *Cookie, build func(major byte) []byte) {
	ext, ok := c.Extension(name)
	if !ok {
		c.FailRequest(cookie, &ExtensionUnavailableError{Name: name})
		return
	}
	c.sendRequest(cookie, build(ext.MajorOpcode))
}

// FailRequest resolves cookie with err without writing anything to the
// server. Reply and Check report err whatever the policy; a request nobody
// can check is logged and dropped.
func (c *Conn) FailRequest(cookie *Cookie, err error) {
	if cookie != nil && cookie.tracked() {
		cookie.err = err
		return
	}
	Logger.Printf("dropping request: %s", err)
}

// SendExtensionRequest makes a cookie with the given policy and hands it to
// NewExtensionRequest.
func (c *Conn) SendExtensionRequest(name string, checked, reply bool, build func(major byte) []byte) *Cookie {
	cookie := c.NewCookie(checked, reply)
	c.NewExtensionRequest(name, cookie, build)
	return cookie
}

func (c *Conn) sendRequest(cookie *Cookie, bufs ...[]byte) {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	for _, buf := range bufs {
		bb.Write(buf)
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	needsReply := cookie != nil && cookie.replyChan != nil
	if !needsReply && c.noReply >= maxNoReply {
		c.writeSyncLocked()
	}
	c.write(cookie, needsReply, bb.B)
}

// write assigns the next sequence number. Must hold writeLock.
func (c *Conn) write(cookie *Cookie, needsReply bool, buf []byte) {
	c.lastSeq++
	if needsReply {
		c.noReply = 0
	} else {
		c.noReply++
	}

	if cookie != nil {
		cookie.seq = c.lastSeq
		if cookie.tracked() {
			c.cookieLock.Lock()
			c.cookies = append(c.cookies, cookie)
			c.cookieLock.Unlock()
		}
	}

	if _, err := c.conn.Write(buf); err != nil {
		if !c.closing.Load() {
			Logger.Printf("x protocol write error: %s", err)
		}
		// The read goroutine notices and fails everything outstanding.
		c.conn.Close()
	}
}

func getInputFocusRequest() []byte {
	buf := make([]byte, 4)
	buf[0] = opcodeGetInputFocus
	Put16(buf[2:], 1)
	return buf
}

// writeSyncLocked writes a GetInputFocus whose reply nobody waits for.
// Must hold writeLock.
func (c *Conn) writeSyncLocked() *Cookie {
	cookie := c.NewCookie(false, true)
	cookie.discard = true
	c.write(cookie, true, getInputFocusRequest())
	return cookie
}

// Sync makes a round trip to the server. When it returns, every request
// written before it has been answered.
func (c *Conn) Sync() {
	cookie := c.NewCookie(false, true)
	c.NewRequest(getInputFocusRequest(), cookie)
	if reply, _ := cookie.Reply(); reply != nil {
		reply.Release()
	}
}

func (c *Conn) readResponses() {
	var err error
	defer func() { c.shutdown(err) }()

	for {
		buf := make([]byte, 32)
		if _, err = io.ReadFull(c.conn, buf); err != nil {
			return
		}

		switch buf[0] {
		case 0:
			c.processError(buf)
		case 1:
			bb := bytebufferpool.Get()
			bb.B = append(bb.B[:0], buf...)
			if size := int(Get32(buf[4:])) * 4; size > 0 {
				bb.B = append(bb.B, make([]byte, size)...)
				if _, err = io.ReadFull(c.conn, bb.B[32:]); err != nil {
					bytebufferpool.Put(bb)
					return
				}
			}
			c.processReply(newReply(bb))
		default:
			if buf[0]&0x7f == GenericEvent {
				if size := int(Get32(buf[4:])) * 4; size > 0 {
					buf = append(buf, make([]byte, size)...)
					if _, err = io.ReadFull(c.conn, buf[32:]); err != nil {
						return
					}
				}
			}
			c.processEvent(buf)
		}
	}
}

func (c *Conn) shutdown(err error) {
	if c.closing.Load() || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		c.err = ErrClosed
	} else {
		Logger.Printf("x protocol read error: %s", err)
		c.err = fmt.Errorf("%w: %v", ErrClosed, err)
	}
	c.closing.Store(true)
	c.conn.Close()

	close(c.done)
	close(c.eventChan)
}

// expandSequence recovers the full sequence number of a response from its
// 16 bit wire form. Responses arrive in request order.
func (c *Conn) expandSequence(seq uint16) uint64 {
	c.lastResponse += uint64(seq - uint16(c.lastResponse))
	return c.lastResponse
}

// popCookies removes every cookie up to seq from the queue and returns the
// one for seq, if it is tracked. Cookies before seq got no response of
// their own, so they are resolved as done.
func (c *Conn) popCookies(seq uint64) *Cookie {
	c.cookieLock.Lock()
	defer c.cookieLock.Unlock()

	for len(c.cookies) > 0 {
		cookie := c.cookies[0]
		if cookie.seq > seq {
			return nil
		}
		c.cookies[0] = nil
		c.cookies = c.cookies[1:]
		if cookie.seq == seq {
			return cookie
		}
		cookie.noResponse()
	}
	return nil
}

func (c *Conn) processReply(reply *Reply) {
	cookie := c.popCookies(c.expandSequence(Get16(reply.bb.B[2:])))
	if cookie == nil || cookie.replyChan == nil || cookie.discard {
		reply.Release()
		if cookie != nil {
			cookie.noResponse()
		}
		return
	}
	cookie.replyChan <- reply
}

func (c *Conn) processError(buf []byte) {
	xerr := c.decodeError(buf)
	cookie := c.popCookies(c.expandSequence(Get16(buf[2:])))
	if cookie != nil && cookie.errorChan != nil {
		cookie.errorChan <- xerr
		return
	}
	if cookie != nil {
		cookie.pingChan <- true
	}
	c.queueEvent(eventOrError{err: xerr})
}

func (c *Conn) processEvent(buf []byte) {
	if buf[0]&0x7f != KeymapNotify {
		c.expandSequence(Get16(buf[2:]))
	}
	c.queueEvent(eventOrError{ev: c.decodeEvent(buf)})
}

func (c *Conn) decodeEvent(buf []byte) Event {
	var ev Event
	handler := func(e Event) { ev = e }
	for _, d := range c.Dispatchers() {
		if d.DispatchEvent(buf, handler) {
			return ev
		}
	}
	return UnknownEvent{buf}
}

func (c *Conn) decodeError(buf []byte) Error {
	if xerr, ok := newCoreError(buf); ok {
		return xerr
	}
	for _, d := range c.Dispatchers() {
		if xerr := d.DispatchError(buf); xerr != nil {
			return xerr
		}
	}
	Logger.Printf("unknown error code %d", buf[1])
	return newUnknownError(buf)
}

func (c *Conn) queueEvent(e eventOrError) {
	c.dequeueLock.Lock()
	c.events.queue(e)
	c.dequeueLock.Unlock()

	select {
	case c.eventChan <- true:
	default:
	}
}

// WaitForEvent returns the next event from the server, or an error that
// belongs to an unchecked request. It will block until one is available.
// Both are nil once the connection has shut down and the queue is empty.
func (c *Conn) WaitForEvent() (Event, Error) {
	for {
		if e, ok := c.events.dequeue(c); ok {
			return e.ev, e.err
		}
		if _, open := <-c.eventChan; !open {
			if e, ok := c.events.dequeue(c); ok {
				return e.ev, e.err
			}
			return nil, nil
		}
	}
}

// PollForEvent returns the next event from the server if one is available in the internal queue.
// It will not read from the connection, so you must call WaitForEvent to receive new events.
// Only use this function to empty the queue without blocking.
func (c *Conn) PollForEvent() (Event, Error) {
	if e, ok := c.events.dequeue(c); ok {
		return e.ev, e.err
	}
	return nil, nil
}
