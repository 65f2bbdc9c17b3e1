package xgbtest

import (
	"bytes"
	"errors"
	"io"
	"net"
	"time"
)

type addr struct {
	s string
}

func (addr) Network() string  { return "xgbtest" }
func (a addr) String() string { return a.s }

var (
	ErrNotImplemented = errors.New("command not implemented")
	ErrClosed         = errors.New("server closed")
	ErrWrite          = errors.New("server write failed")
	ErrRead           = errors.New("server read failed")
)

type ioResult struct {
	n   int
	err error
}

type ioOp struct {
	b      []byte
	result chan ioResult
}

type ctlWriteLock struct{}
type ctlWriteUnlock struct{}
type ctlWriteError struct{}
type ctlWriteSuccess struct{}
type ctlReadLock struct{}
type ctlReadUnlock struct{}
type ctlReadError struct{}
type ctlReadSuccess struct{}
type ctlPush struct{ b []byte }

// NetConn is an in-memory net.Conn backed by a reply function: every
// successful Write is passed to reply and whatever it returns becomes
// readable. It must be stopped with Close.
//
// By default Write and Read neither block nor fail. The lock and error
// controls change that for tests of transport failures.
type NetConn struct {
	reply   func([]byte) []byte
	addr    addr
	in, out chan ioOp
	control chan interface{}
	done    chan struct{}
}

// NewNetConn starts a NetConn. name is returned by LocalAddr and
// RemoteAddr.
func NewNetConn(name string, reply func([]byte) []byte) *NetConn {
	s := &NetConn{
		reply:   reply,
		addr:    addr{name},
		in:      make(chan ioOp),
		out:     make(chan ioOp),
		control: make(chan interface{}),
		done:    make(chan struct{}),
	}

	in, out := s.in, chan ioOp(nil)
	buf := &bytes.Buffer{}
	errorRead, errorWrite := false, false
	lockRead := false

	readable := func() {
		if !lockRead && (buf.Len() > 0 || errorRead) && out == nil {
			out = s.out
		}
	}

	go func() {
		defer close(s.done)
		for {
			select {
			case op := <-in:
				if errorWrite {
					op.result <- ioResult{0, ErrWrite}
					break
				}

				buf.Write(s.reply(op.b))
				op.result <- ioResult{len(op.b), nil}
				readable()
			case op := <-out:
				if errorRead {
					op.result <- ioResult{0, ErrRead}
					break
				}

				n, err := buf.Read(op.b)
				op.result <- ioResult{n, err}

				if buf.Len() == 0 {
					out = nil
				}
			case ci := <-s.control:
				if ci == nil {
					return
				}
				switch c := ci.(type) {
				case ctlWriteLock:
					in = nil
				case ctlWriteUnlock:
					in = s.in
				case ctlWriteError:
					errorWrite = true
				case ctlWriteSuccess:
					errorWrite = false
				case ctlReadLock:
					out = nil
					lockRead = true
				case ctlReadUnlock:
					lockRead = false
					readable()
				case ctlReadError:
					errorRead = true
					readable()
				case ctlReadSuccess:
					errorRead = false
					if buf.Len() == 0 {
						out = nil
					}
				case ctlPush:
					buf.Write(c.b)
					readable()
				}
			}
		}
	}()
	return s
}

// Close shuts the NetConn down. Blocked and later calls fail. It returns
// ErrClosed if it was already closed.
func (s *NetConn) Close() error {
	select {
	case s.control <- nil:
		<-s.done
		return nil
	case <-s.done:
	}
	return ErrClosed
}

// Write hands b to the reply function unless writing is locked (blocks)
// or set to fail (ErrWrite). After Close it returns ErrClosed.
func (s *NetConn) Write(b []byte) (int, error) {
	resChan := make(chan ioResult)
	select {
	case s.in <- ioOp{b, resChan}:
		res := <-resChan
		return res.n, res.err
	case <-s.done:
	}
	return 0, ErrClosed
}

// Read blocks until replies are buffered and reading is not locked. It
// fails with ErrRead when set to, and returns io.EOF after Close.
func (s *NetConn) Read(b []byte) (int, error) {
	resChan := make(chan ioResult)
	select {
	case s.out <- ioOp{b, resChan}:
		res := <-resChan
		return res.n, res.err
	case <-s.done:
	}
	return 0, io.EOF
}

func (s *NetConn) LocalAddr() net.Addr                { return s.addr }
func (s *NetConn) RemoteAddr() net.Addr               { return s.addr }
func (s *NetConn) SetDeadline(t time.Time) error      { return ErrNotImplemented }
func (s *NetConn) SetReadDeadline(t time.Time) error  { return ErrNotImplemented }
func (s *NetConn) SetWriteDeadline(t time.Time) error { return ErrNotImplemented }

func (s *NetConn) Control(i interface{}) error {
	select {
	case s.control <- i:
		return nil
	case <-s.done:
	}
	return ErrClosed
}

// Push makes b readable without a preceding Write, like an event the
// server sends on its own.
func (s *NetConn) Push(b []byte) error {
	return s.Control(ctlPush{append([]byte(nil), b...)})
}

// WriteLock blocks all writes until WriteUnlock or Close.
func (s *NetConn) WriteLock() error {
	return s.Control(ctlWriteLock{})
}

func (s *NetConn) WriteUnlock() error {
	return s.Control(ctlWriteUnlock{})
}

// WriteError unlocks writing and makes every Write fail with ErrWrite.
func (s *NetConn) WriteError() error {
	if err := s.WriteUnlock(); err != nil {
		return err
	}
	return s.Control(ctlWriteError{})
}

func (s *NetConn) WriteSuccess() error {
	if err := s.WriteUnlock(); err != nil {
		return err
	}
	return s.Control(ctlWriteSuccess{})
}

// ReadLock blocks all reads, even with data buffered, until ReadUnlock or
// Close.
func (s *NetConn) ReadLock() error {
	return s.Control(ctlReadLock{})
}

func (s *NetConn) ReadUnlock() error {
	return s.Control(ctlReadUnlock{})
}

// ReadError unlocks reading and makes every blocked and later Read fail
// with ErrRead.
func (s *NetConn) ReadError() error {
	if err := s.ReadUnlock(); err != nil {
		return err
	}
	return s.Control(ctlReadError{})
}

func (s *NetConn) ReadSuccess() error {
	if err := s.ReadUnlock(); err != nil {
		return err
	}
	return s.Control(ctlReadSuccess{})
}
