package xgb

// Handle binds a resource identifier read off the wire to the connection it
// belongs to. Making one never contacts the server and never fails: X
// resource ids are plain integers with no existence check.
type Handle[T ~uint32] struct {
	conn *Conn
	id   T
}

// MakeHandle converts a raw wire id into a handle on c.
func MakeHandle[T ~uint32](c *Conn, raw uint32) Handle[T] {
	return Handle[T]{conn: c, id: T(raw)}
}

func (h Handle[T]) Conn() *Conn { return h.conn }
func (h Handle[T]) Id() T       { return h.id }

// IsNone reports whether the handle holds the None (zero) id.
func (h Handle[T]) IsNone() bool { return h.id == 0 }
