// Package xgbtest provides an in-memory X server for tests. It speaks just
// enough of the protocol to complete the setup handshake, answer
// QueryExtension and GetInputFocus, and hand every other request to a
// test supplied Handler.
package xgbtest

import (
	"encoding/binary"
	"sync"
)

// Ids the fake server hands out in its setup.
const (
	Root           = 0x100
	RootVisual     = 0x21
	ResourceIdBase = 0x04000000
	ResourceIdMask = 0x001fffff
)

const (
	opcodeGetInputFocus  = 43
	opcodeQueryExtension = 98
)

// Extension is an extension the fake server claims to support.
type Extension struct {
	Name        string
	MajorOpcode byte
	FirstEvent  byte
	FirstError  byte
}

// Request is one request as the server received it. Data holds the whole
// request, header included.
type Request struct {
	Sequence uint16
	Major    byte
	Minor    byte
	Data     []byte
}

// Handler answers a request. It returns the bytes to make readable, which
// may be nil for requests without a response. It runs on the server's
// goroutine and must not call back into the Server's NetConn.
type Handler func(req Request) []byte

// Server is a NetConn that behaves like a small X server.
type Server struct {
	*NetConn

	// The setup ids. Change them before the handshake.
	ResourceIdBase uint32
	ResourceIdMask uint32

	handler Handler
	exts    map[string]Extension

	mu        sync.Mutex
	handshook bool
	seq       uint16
	pending   []byte
	requests  []Request
}

// NewServer starts a server that supports exts. handler may be nil.
func NewServer(handler Handler, exts ...Extension) *Server {
	s := &Server{
		ResourceIdBase: ResourceIdBase,
		ResourceIdMask: ResourceIdMask,
		handler:        handler,
		exts:           make(map[string]Extension),
	}
	for _, ext := range exts {
		s.exts[ext.Name] = ext
	}
	s.NetConn = NewNetConn("xgbtest", s.serve)
	return s
}

// Requests returns every request received so far, in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastSequence is the sequence number of the latest request. Events pushed
// by tests should carry it, as a real server's would.
func (s *Server) LastSequence() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Count returns how many received requests had the given major opcode.
func (s *Server) Count(major byte) int {
	n := 0
	for _, req := range s.Requests() {
		if req.Major == major {
			n++
		}
	}
	return n
}

// serve is the NetConn reply function. The client's buffers are reused
// after Write returns, so everything kept is copied.
func (s *Server) serve(b []byte) []byte {
	s.mu.Lock()
	if !s.handshook {
		s.handshook = true
		s.mu.Unlock()
		return s.setup()
	}
	s.pending = append(s.pending, b...)

	var reqs []Request
	for len(s.pending) >= 4 {
		size := int(binary.LittleEndian.Uint16(s.pending[2:])) * 4
		if size < 4 || len(s.pending) < size {
			break
		}
		s.seq++
		req := Request{
			Sequence: s.seq,
			Major:    s.pending[0],
			Minor:    s.pending[1],
			Data:     append([]byte(nil), s.pending[:size]...),
		}
		s.pending = s.pending[size:]
		s.requests = append(s.requests, req)
		reqs = append(reqs, req)
	}
	s.mu.Unlock()

	var out []byte
	for _, req := range reqs {
		out = append(out, s.answer(req)...)
	}
	return out
}

func (s *Server) answer(req Request) []byte {
	switch req.Major {
	case opcodeGetInputFocus:
		body := make([]byte, 4)
		binary.LittleEndian.PutUint32(body, Root)
		return ReplyBytes(req.Sequence, 1, body)
	case opcodeQueryExtension:
		n := int(binary.LittleEndian.Uint16(req.Data[4:]))
		ext, ok := s.exts[string(req.Data[8:8+n])]
		body := make([]byte, 4)
		if ok {
			body[0] = 1
			body[1] = ext.MajorOpcode
			body[2] = ext.FirstEvent
			body[3] = ext.FirstError
		}
		return ReplyBytes(req.Sequence, 0, body)
	}
	if s.handler == nil {
		return nil
	}
	return s.handler(req)
}

// setup builds a successful setup response with one screen, one pixmap
// format and one TrueColor visual.
func (s *Server) setup() []byte {
	le := binary.LittleEndian
	buf := make([]byte, 128)

	buf[0] = 1
	le.PutUint16(buf[2:], 11)
	le.PutUint16(buf[6:], uint16((len(buf)-8)/4))
	le.PutUint32(buf[8:], 1)
	le.PutUint32(buf[12:], s.ResourceIdBase)
	le.PutUint32(buf[16:], s.ResourceIdMask)
	le.PutUint16(buf[24:], uint16(len(Vendor)))
	le.PutUint16(buf[26:], 0xffff)
	buf[28] = 1 // screens
	buf[29] = 1 // formats
	buf[32], buf[33] = 32, 32
	buf[34], buf[35] = 8, 255
	copy(buf[40:], Vendor)

	// pixmap format
	buf[48], buf[49], buf[50] = 24, 32, 32

	// screen
	scr := buf[56:]
	le.PutUint32(scr[0:], Root)
	le.PutUint32(scr[4:], 0x20)
	le.PutUint32(scr[8:], 0xffffff)
	le.PutUint16(scr[20:], 1920)
	le.PutUint16(scr[22:], 1080)
	le.PutUint16(scr[24:], 508)
	le.PutUint16(scr[26:], 286)
	le.PutUint16(scr[28:], 1)
	le.PutUint16(scr[30:], 1)
	le.PutUint32(scr[32:], RootVisual)
	scr[38] = 24
	scr[39] = 1 // depths

	// depth 24 with one visual
	scr[40] = 24
	le.PutUint16(scr[42:], 1)
	vis := scr[48:]
	le.PutUint32(vis[0:], RootVisual)
	vis[4] = 4 // TrueColor
	vis[5] = 8
	le.PutUint16(vis[6:], 256)
	le.PutUint32(vis[8:], 0xff0000)
	le.PutUint32(vis[12:], 0x00ff00)
	le.PutUint32(vis[16:], 0x0000ff)
	return buf
}

// Vendor is the vendor string in the setup.
const Vendor = "xgbtest"

// ReplyBytes builds a reply. body starts at byte 8 and the result is at
// least 32 bytes long.
func ReplyBytes(seq uint16, data1 byte, body []byte) []byte {
	size := (8 + len(body) + 3) &^ 3
	if size < 32 {
		size = 32
	}
	buf := make([]byte, size)
	buf[0] = 1
	buf[1] = data1
	binary.LittleEndian.PutUint16(buf[2:], seq)
	binary.LittleEndian.PutUint32(buf[4:], uint32((size-32)/4))
	copy(buf[8:], body)
	return buf
}

// ErrorBytes builds an error response.
func ErrorBytes(seq uint16, code byte, bad uint32, minor uint16, major byte) []byte {
	buf := make([]byte, 32)
	buf[1] = code
	binary.LittleEndian.PutUint16(buf[2:], seq)
	binary.LittleEndian.PutUint32(buf[4:], bad)
	binary.LittleEndian.PutUint16(buf[8:], minor)
	buf[10] = major
	return buf
}

// EventBytes builds a 32 byte event. body starts at byte 4.
func EventBytes(code, detail byte, seq uint16, body []byte) []byte {
	buf := make([]byte, 32)
	buf[0] = code
	buf[1] = detail
	binary.LittleEndian.PutUint16(buf[2:], seq)
	copy(buf[4:], body)
	return buf
}
