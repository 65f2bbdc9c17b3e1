package xgb

import "sync"

// Mux routes what WaitForEvent returns to handlers registered per event
// type. Errors from unchecked requests go to the error handlers.
type Mux struct {
	mu       sync.RWMutex
	events   []func(Event) bool
	errors   []func(Error)
	fallback func(Event)
}

func NewMux() *Mux {
	return &Mux{}
}

// HandleEvent registers fn for every event of type E.
func HandleEvent[E Event](m *Mux, fn func(E)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, func(ev Event) bool {
		e, ok := ev.(E)
		if ok {
			fn(e)
		}
		return ok
	})
}

// HandleError registers fn for protocol errors delivered out of band.
func (m *Mux) HandleError(fn func(Error)) {
	m.mu.Lock()
	m.errors = append(m.errors, fn)
	m.mu.Unlock()
}

// HandleUnmatched registers fn for events no typed handler took.
func (m *Mux) HandleUnmatched(fn func(Event)) {
	m.mu.Lock()
	m.fallback = fn
	m.mu.Unlock()
}

// Dispatch hands one event or error to the registered handlers and reports
// whether any of them took it.
// Handlers run without the lock held, so they may register more handlers;
// those take effect from the next call.
func (m *Mux) Dispatch(ev Event, xerr Error) bool {
	m.mu.RLock()
	errorFns := m.errors[:len(m.errors):len(m.errors)]
	eventFns := m.events[:len(m.events):len(m.events)]
	fallback := m.fallback
	m.mu.RUnlock()

	handled := false
	if xerr != nil {
		for _, fn := range errorFns {
			fn(xerr)
			handled = true
		}
	}
	if ev != nil {
		for _, fn := range eventFns {
			if fn(ev) {
				handled = true
			}
		}
		if !handled && fallback != nil {
			fallback(ev)
			handled = true
		}
	}
	return handled
}

// Run feeds every event and error from c to Dispatch until the connection
// shuts down. It returns the reason the connection went away.
func (m *Mux) Run(c *Conn) error {
	for {
		ev, xerr := c.WaitForEvent()
		if ev == nil && xerr == nil {
			return c.closeErr()
		}
		m.Dispatch(ev, xerr)
	}
}
