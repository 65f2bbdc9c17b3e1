package xgb

const opcodeQueryExtension = 98

// Extension is what the server told us about one extension on one
// connection. It never changes after RegisterExtension returns it.
type Extension struct {
	Name        string
	MajorOpcode byte
	FirstEvent  byte
	FirstError  byte
}

// ExtensionInfo is the static description an extension package hands to
// RegisterExtension: the name the server knows it by and its events and
// errors, keyed by extension-relative code. Tables are never modified.
type ExtensionInfo struct {
	Name   string
	Events map[byte]NewEventFun
	Errors map[byte]NewErrorFun
}

type extensionEntry struct {
	ext *Extension
	err error
}

// RegisterExtension resolves an extension on c. The server is asked once
// per connection; later calls, including ones for an absent extension,
// return the cached answer. Once resolved, the extension's events and
// errors are decoded by the read loop.
func (c *Conn) RegisterExtension(info *ExtensionInfo) (*Extension, error) {
	c.extLock.Lock()
	defer c.extLock.Unlock()

	if entry, ok := c.extensions[info.Name]; ok {
		return entry.ext, entry.err
	}

	reply, err := c.QueryExtension(info.Name)
	if err != nil {
		return nil, err
	}

	entry := &extensionEntry{}
	if !reply.Present {
		entry.err = &ExtensionUnavailableError{Name: info.Name}
	} else {
		entry.ext = &Extension{
			Name:        info.Name,
			MajorOpcode: reply.MajorOpcode,
			FirstEvent:  reply.FirstEvent,
			FirstError:  reply.FirstError,
		}
		c.addDispatcher(NewDispatcher(*entry.ext, info))
	}
	c.extensions[info.Name] = entry
	return entry.ext, entry.err
}

// Extension returns the resolved extension named name, if it is present.
func (c *Conn) Extension(name string) (*Extension, bool) {
	c.extLock.Lock()
	defer c.extLock.Unlock()

	entry, ok := c.extensions[name]
	if !ok || entry.ext == nil {
		return nil, false
	}
	return entry.ext, true
}

// QueryExtensionReply is the core protocol's answer to QueryExtension.
type QueryExtensionReply struct {
	Sequence    uint16
	Present     bool
	MajorOpcode byte
	FirstEvent  byte
	FirstError  byte
}

// QueryExtension asks the server about the extension named name. Most
// callers want RegisterExtension, which caches the answer.
func (c *Conn) QueryExtension(name string) (*QueryExtensionReply, error) {
	cookie := c.NewCookie(true, true)
	c.NewRequest(queryExtensionRequest(name), cookie)

	reply, err := cookie.Reply()
	if err != nil {
		return nil, err
	}
	defer reply.Release()

	buf := reply.Bytes()
	if err := CheckExtent("QueryExtension reply", buf, 12); err != nil {
		return nil, err
	}
	return &QueryExtensionReply{
		Sequence:    Get16(buf[2:]),
		Present:     buf[8] != 0,
		MajorOpcode: buf[9],
		FirstEvent:  buf[10],
		FirstError:  buf[11],
	}, nil
}

func queryExtensionRequest(name string) []byte {
	size := Pad(8 + len(name))
	buf := make([]byte, size)
	buf[0] = opcodeQueryExtension
	Put16(buf[2:], uint16(size/4))
	Put16(buf[4:], uint16(len(name)))
	copy(buf[8:], name)
	return buf
}
