package xgb

// Dispatcher routes raw event and error buffers that belong to one
// extension to that extension's typed constructors.
type Dispatcher struct {
	ext  Extension
	info *ExtensionInfo
}

func NewDispatcher(ext Extension, info *ExtensionInfo) *Dispatcher {
	return &Dispatcher{ext: ext, info: info}
}

func (d *Dispatcher) Extension() Extension { return d.ext }

// DispatchEvent decodes buf and hands the event to handler if its code is
// one of this extension's. It reports false, without calling handler, for
// codes that belong to someone else.
func (d *Dispatcher) DispatchEvent(buf []byte, handler func(Event)) bool {
	raw := buf[0] & 0x7f
	if raw < d.ext.FirstEvent {
		return false
	}
	newEvent, ok := d.info.Events[raw-d.ext.FirstEvent]
	if !ok {
		return false
	}
	handler(newEvent(buf))
	return true
}

// DispatchError decodes buf into this extension's typed error, or returns
// nil if the error code is not one of this extension's.
func (d *Dispatcher) DispatchError(buf []byte) Error {
	raw := buf[1]
	if raw < d.ext.FirstError {
		return nil
	}
	newError, ok := d.info.Errors[raw-d.ext.FirstError]
	if !ok {
		return nil
	}
	return newError(buf)
}

func (c *Conn) addDispatcher(d *Dispatcher) {
	c.dispatchLock.Lock()
	c.dispatchers = append(c.dispatchers, d)
	c.dispatchLock.Unlock()
}

// Dispatchers returns the dispatchers of every extension resolved on c, in
// registration order.
func (c *Conn) Dispatchers() []*Dispatcher {
	c.dispatchLock.RLock()
	defer c.dispatchLock.RUnlock()
	return append([]*Dispatcher(nil), c.dispatchers...)
}
