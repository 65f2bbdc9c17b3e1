package xgb

import "fmt"

// Core event codes the read loop has to know about.
const (
	// KeymapNotify carries no sequence number.
	KeymapNotify = 11
	// GenericEvent may be longer than 32 bytes.
	GenericEvent = 35
)

// Event is an interface that can contain any of the events returned by the
// server. Use a type assertion switch to extract the Event structs.
type Event interface {
	Bytes() []byte
	String() string
}

// NewEventFun decodes an event buffer.
type NewEventFun func(buf []byte) Event

// UnknownEvent is produced for an event code no table claims.
type UnknownEvent struct {
	buf []byte
}

func (v UnknownEvent) Bytes() []byte { return v.buf }

// Code is the event code with the SendEvent flag cleared.
func (v UnknownEvent) Code() byte { return v.buf[0] & 0x7f }

func (v UnknownEvent) String() string {
	return fmt.Sprintf("UnknownEvent {Code: %d}", v.Code())
}

type eventOrError struct {
	ev  Event
	err Error
}

// A simple queue used to stow away events.
type queue struct {
	data []eventOrError
	a, b int
}

func (q *queue) queue(item eventOrError) {
	if q.b == len(q.data) {
		if q.a > 0 {
			copy(q.data, q.data[q.a:q.b])
			q.a, q.b = 0, q.b-q.a
		} else {
			newData := make([]eventOrError, (len(q.data)*3)/2)
			copy(newData, q.data)
			q.data = newData
		}
	}
	q.data[q.b] = item
	q.b++
}

func (q *queue) dequeue(c *Conn) (eventOrError, bool) {
	c.dequeueLock.Lock()
	defer c.dequeueLock.Unlock()

	if q.a < q.b {
		item := q.data[q.a]
		q.data[q.a] = eventOrError{}
		q.a++
		return item, true
	}
	return eventOrError{}, false
}
