package xgb

import (
	"errors"
	"sync/atomic"
)

var errNoReply = errors.New("xgb: the server sent no reply for a request expecting one")

// Cookie is the sequence number of one request, used to pair the request
// with its reply or error. Extension packages wrap it in one cookie type
// per request.
type Cookie struct {
	conn      *Conn
	seq       uint64
	replyChan chan *Reply
	errorChan chan error
	pingChan  chan bool

	// err is a local failure known before the request was written. It is
	// reported by Reply and Check whatever the policy.
	err      error
	consumed atomic.Bool

	// discard marks an internal round trip whose reply nobody reads.
	discard bool
}

// NewCookie makes a cookie for a request. checked selects the error
// delivery policy; reply says whether the request produces a reply.
func (c *Conn) NewCookie(checked, reply bool) *Cookie {
	cookie := &Cookie{conn: c}

	// There are four different kinds of cookies:
	// Checked requests with replies get a reply channel and an error channel.
	// Unchecked requests with replies get a reply channel and a ping channel.
	// Checked requests w/o replies get a ping channel and an error channel.
	// Unchecked requests w/o replies get no channels.
	// The ping channel is used when one of the 'reply' or 'error' channels
	// is missing but the other is present. It says either "the error has
	// been handed to the event queue" (coupled with a reply channel) or "the
	// request you made that has no reply was successful" (coupled with an
	// error channel).
	if checked {
		cookie.errorChan = make(chan error, 1)
		if !reply {
			cookie.pingChan = make(chan bool, 1)
		}
	}
	if reply {
		cookie.replyChan = make(chan *Reply, 1)
		if !checked {
			cookie.pingChan = make(chan bool, 1)
		}
	}
	return cookie
}

// Sequence is the 16 bit sequence number the server echoes back in the
// reply, error or events caused by this request.
func (c *Cookie) Sequence() uint16 { return uint16(c.seq) }

func (c *Cookie) tracked() bool {
	return c.replyChan != nil || c.errorChan != nil
}

// Reply blocks until the reply for this cookie arrives.
//
// For a checked cookie a protocol error is returned as the typed Error.
// For an unchecked cookie a protocol error yields (nil, nil); the error
// itself is delivered through WaitForEvent.
func (c *Cookie) Reply() (*Reply, error) {
	if c == nil {
		panic("nil cookie")
	}
	if c.replyChan == nil {
		return nil, errors.New("xgb: cannot call 'Reply' on a cookie that " +
			"is not expecting a *reply*")
	}
	if !c.consumed.CompareAndSwap(false, true) {
		return nil, ErrCookieConsumed
	}
	if c.err != nil {
		return nil, c.err
	}
	if c.errorChan != nil {
		return c.replyChecked()
	}
	return c.replyUnchecked()
}

func (c *Cookie) replyChecked() (*Reply, error) {
	select {
	case reply := <-c.replyChan:
		return reply, nil
	case err := <-c.errorChan:
		return nil, err
	case <-c.conn.done:
		return c.afterClose()
	}
}

func (c *Cookie) replyUnchecked() (*Reply, error) {
	select {
	case reply := <-c.replyChan:
		return reply, nil
	case <-c.pingChan:
		return nil, nil
	case <-c.conn.done:
		return c.afterClose()
	}
}

// afterClose prefers an outcome that was delivered before the connection
// went away.
func (c *Cookie) afterClose() (*Reply, error) {
	select {
	case reply := <-c.replyChan:
		return reply, nil
	case err := <-c.errorChan:
		return nil, err
	case <-c.pingChan:
		return nil, nil
	default:
		return nil, c.conn.closeErr()
	}
}

// Check waits for the outcome of a checked request that has no reply. If
// nothing is known yet, it forces a round trip to the server.
func (c *Cookie) Check() error {
	if c == nil {
		panic("nil cookie")
	}
	if c.replyChan != nil {
		return errors.New("xgb: cannot call 'Check' on a cookie that is " +
			"expecting a *reply*. Use 'Reply' instead")
	}
	if c.errorChan == nil {
		return errors.New("xgb: cannot call 'Check' on a cookie that is " +
			"not expecting a possible *error*")
	}
	if !c.consumed.CompareAndSwap(false, true) {
		return ErrCookieConsumed
	}
	if c.err != nil {
		return c.err
	}

	select {
	case err := <-c.errorChan:
		return err
	case <-c.pingChan:
		return nil
	default:
	}

	c.conn.Sync()

	select {
	case err := <-c.errorChan:
		return err
	case <-c.pingChan:
		return nil
	case <-c.conn.done:
		_, err := c.afterClose()
		return err
	}
}

// noResponse resolves a cookie that a later response has overtaken: the
// request finished without a reply or an error.
func (c *Cookie) noResponse() {
	switch {
	case c.pingChan != nil:
		c.pingChan <- true
	case c.errorChan != nil:
		c.errorChan <- errNoReply
	}
}

// DecodeReply waits for the reply to cookie and decodes it with decode.
// The reply buffer is released once decode returns. A nil result with a
// nil error means an unchecked request failed; see Reply.
func DecodeReply[T any](cookie *Cookie, decode func(buf []byte) (*T, error)) (*T, error) {
	reply, err := cookie.Reply()
	if err != nil || reply == nil {
		return nil, err
	}
	defer reply.Release()
	return decode(reply.Bytes())
}

// DecodeListReply is DecodeReply for replies that expose List views. On
// success the result owns reply and the caller must release it.
func DecodeListReply[T any](cookie *Cookie, decode func(reply *Reply) (*T, error)) (*T, error) {
	reply, err := cookie.Reply()
	if err != nil || reply == nil {
		return nil, err
	}
	v, err := decode(reply)
	if err != nil {
		reply.Release()
		return nil, err
	}
	return v, nil
}
