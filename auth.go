// Copyright 2009 The XGB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xgb

import (
	"bufio"
	"errors"
	"io"
	"os"
)

func getU16BE(r io.Reader, b []byte) (uint16, error) {
	_, err := io.ReadFull(r, b[0:2])
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 + uint16(b[1]), nil
}

func getBytes(r io.Reader, b []byte) ([]byte, error) {
	n, err := getU16BE(r, b)
	if err != nil {
		return nil, err
	}
	if int(n) > len(b) {
		return nil, errors.New("bytes too long for buffer")
	}
	_, err = io.ReadFull(r, b[0:n])
	if err != nil {
		return nil, err
	}
	return b[0:n], nil
}

func getString(r io.Reader, b []byte) (string, error) {
	b, err := getBytes(r, b)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

const (
	// As per /usr/include/X11/Xauth.h.
	familyLocal = 256
	familyWild  = 65535

	authProtocol = "MIT-MAGIC-COOKIE-1"
)

// readAuthority reads the X authority file for the DISPLAY.
// If hostname == "" or hostname == "localhost",
// readAuthority uses the system's hostname (as returned by os.Hostname) instead.
func readAuthority(hostname, display string) (name string, data []byte, err error) {
	if len(hostname) == 0 || hostname == "localhost" {
		hostname, err = os.Hostname()
		if err != nil {
			return "", nil, err
		}
	}

	fname := os.Getenv("XAUTHORITY")
	if len(fname) == 0 {
		home := os.Getenv("HOME")
		if len(home) == 0 {
			err = errors.New("Xauthority not found: $XAUTHORITY, $HOME not set")
			return "", nil, err
		}
		fname = home + "/.Xauthority"
	}

	r, err := os.Open(fname)
	if err != nil {
		return "", nil, err
	}
	defer r.Close()

	return findAuthority(bufio.NewReader(r), hostname, display)
}

// findAuthority scans Xauthority entries for a MIT-MAGIC-COOKIE-1 matching
// the host and display. An entry with an empty display matches any display.
func findAuthority(r io.Reader, hostname, display string) (string, []byte, error) {
	// b is a scratch buffer to use and should be at least 256 bytes long
	// (i.e. it should be able to hold a hostname).
	var b [256]byte

	for {
		family, err := getU16BE(r, b[0:2])
		if err != nil {
			if err == io.EOF {
				err = errors.New("no authority entry for display " + display)
			}
			return "", nil, err
		}

		addr, err := getString(r, b[0:])
		if err != nil {
			return "", nil, err
		}

		disp, err := getString(r, b[0:])
		if err != nil {
			return "", nil, err
		}

		name, err := getString(r, b[0:])
		if err != nil {
			return "", nil, err
		}

		data, err := getBytes(r, b[0:])
		if err != nil {
			return "", nil, err
		}

		hostMatch := family == familyWild ||
			(family == familyLocal && addr == hostname)
		dispMatch := disp == "" || disp == display
		if hostMatch && dispMatch && name == authProtocol {
			return name, append([]byte(nil), data...), nil
		}
	}
}
