// Copyright 2009 The XGB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xgb

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

// displayAddr is a parsed DISPLAY string.
type displayAddr struct {
	network string
	address string
	host    string
	display string
	screen  int
}

// parseDisplay splits a DISPLAY string into the address to dial, the
// display number and the default screen.
func parseDisplay(display string) (displayAddr, error) {
	var addr displayAddr
	bad := errors.New("bad display string: " + display)

	colonIdx := strings.LastIndex(display, ":")
	if colonIdx < 0 {
		return addr, bad
	}

	var protocol, socket string
	if display[0] == '/' {
		socket = display[0:colonIdx]
	} else {
		slashIdx := strings.LastIndex(display[:colonIdx], "/")
		if slashIdx >= 0 {
			protocol = display[0:slashIdx]
			addr.host = display[slashIdx+1 : colonIdx]
		} else {
			addr.host = display[0:colonIdx]
		}
	}

	rest := display[colonIdx+1:]
	if len(rest) == 0 {
		return addr, bad
	}

	var scr string
	if dotIdx := strings.LastIndex(rest, "."); dotIdx < 0 {
		addr.display = rest
	} else {
		addr.display = rest[0:dotIdx]
		scr = rest[dotIdx+1:]
	}

	dispnum, err := strconv.Atoi(addr.display)
	if err != nil || dispnum < 0 {
		return addr, bad
	}
	if len(scr) != 0 {
		addr.screen, err = strconv.Atoi(scr)
		if err != nil || addr.screen < 0 {
			return addr, bad
		}
	}

	switch {
	case len(socket) != 0:
		addr.network, addr.address = "unix", socket+":"+addr.display
	case len(addr.host) != 0:
		if protocol == "" {
			protocol = "tcp"
		}
		addr.network = protocol
		addr.address = addr.host + ":" + strconv.Itoa(6000+dispnum)
	default:
		addr.network, addr.address = "unix", "/tmp/.X11-unix/X"+addr.display
	}
	return addr, nil
}

// connect dials the server named by display, reads the authority file and
// performs the setup handshake.
func (c *Conn) connect(display string) error {
	if len(display) == 0 {
		display = os.Getenv("DISPLAY")
	}
	if len(display) == 0 {
		return errors.New("empty display string")
	}

	addr, err := parseDisplay(display)
	if err != nil {
		return err
	}
	c.host, c.display, c.defaultScreen = addr.host, addr.display, addr.screen

	c.conn, err = net.Dial(addr.network, addr.address)
	if err != nil {
		return fmt.Errorf("cannot connect to %s: %w", display, err)
	}

	authName, authData, err := readAuthority(c.host, c.display)
	if err != nil {
		Logger.Printf("Could not get authority info: %v", err)
		Logger.Println("Trying connection without authority info...")
		authName, authData = "", nil
	}

	if err := c.handshake(authName, authData); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}

// handshake sends the connection setup request and reads the setup.
func (c *Conn) handshake(authName string, authData []byte) error {
	buf := make([]byte, 12+Pad(len(authName))+Pad(len(authData)))
	buf[0] = 0x6c // little endian
	Put16(buf[2:], 11)
	Put16(buf[4:], 0)
	Put16(buf[6:], uint16(len(authName)))
	Put16(buf[8:], uint16(len(authData)))
	copy(buf[12:], authName)
	copy(buf[12+Pad(len(authName)):], authData)
	if _, err := c.conn.Write(buf); err != nil {
		return err
	}

	head := make([]byte, 8)
	if _, err := io.ReadFull(c.conn, head); err != nil {
		return err
	}
	data := make([]byte, 8+int(Get16(head[6:]))*4)
	copy(data, head)
	if _, err := io.ReadFull(c.conn, data[8:]); err != nil {
		return err
	}

	switch head[0] {
	case 0:
		reasonLen := int(head[1])
		if reasonLen > len(data)-8 {
			reasonLen = len(data) - 8
		}
		return fmt.Errorf("x protocol authentication refused: %s",
			string(data[8:8+reasonLen]))
	case 2:
		return errors.New("x protocol authentication refused: " +
			"further authentication required")
	}

	major, minor := Get16(head[2:]), Get16(head[4:])
	if major != 11 || minor != 0 {
		return fmt.Errorf("x protocol version mismatch: %d.%d", major, minor)
	}
	return readSetupInfo(data, &c.Setup)
}
