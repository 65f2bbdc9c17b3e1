package xgb

import (
	"errors"
	"fmt"
)

var (
	// ErrExtensionUnavailable is matched by every error produced for an
	// extension the server does not support, or one that was never
	// initialized on the connection.
	ErrExtensionUnavailable = errors.New("xgb: extension unavailable")

	ErrCookieConsumed = errors.New("xgb: cookie already consumed")
	ErrClosed         = errors.New("xgb: connection closed")
	ErrNoIds          = errors.New("xgb: there are no more available resource identifiers")

	// ErrMalformed is matched by every *DecodeError.
	ErrMalformed = errors.New("xgb: malformed server response")

	// ErrReplyReleased is the panic value when a list or buffer view is
	// read after its reply was released.
	ErrReplyReleased = errors.New("xgb: reply used after Release")
)

// ExtensionUnavailableError reports that the server does not support an
// extension, or that it was not initialized before a request was issued.
type ExtensionUnavailableError struct {
	Name string
}

func (e *ExtensionUnavailableError) Error() string {
	return fmt.Sprintf("xgb: no extension named '%s' is present", e.Name)
}

func (e *ExtensionUnavailableError) Is(target error) bool {
	return target == ErrExtensionUnavailable
}

// DecodeError is returned when a reply is structurally inconsistent with
// its own length fields.
type DecodeError struct {
	What string
	Need int
	Have int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("xgb: malformed %s: need %d bytes, have %d",
		e.What, e.Need, e.Have)
}

func (e *DecodeError) Unwrap() error { return ErrMalformed }

// CheckExtent fails with a *DecodeError when buf is shorter than need.
func CheckExtent(what string, buf []byte, need int) error {
	if need > len(buf) {
		return &DecodeError{What: what, Need: need, Have: len(buf)}
	}
	return nil
}

// Error is an interface that can contain any of the errors returned by
// the server. Use errors.As to extract the concrete error types.
type Error interface {
	error
	SequenceId() uint16
	BadId() uint32
}

// NewErrorFun decodes a 32 byte error buffer.
type NewErrorFun func(buf []byte) Error

// ProtocolError holds the fields every X error shares. Extension error
// types embed it.
type ProtocolError struct {
	Name        string
	Code        byte
	Sequence    uint16
	BadValue    uint32
	MinorOpcode uint16
	MajorOpcode byte
}

// NewProtocolError decodes the common error layout.
func NewProtocolError(name string, buf []byte) ProtocolError {
	return ProtocolError{
		Name:        name,
		Code:        buf[1],
		Sequence:    Get16(buf[2:]),
		BadValue:    Get32(buf[4:]),
		MinorOpcode: Get16(buf[8:]),
		MajorOpcode: buf[10],
	}
}

func (err ProtocolError) SequenceId() uint16 { return err.Sequence }
func (err ProtocolError) BadId() uint32      { return err.BadValue }

func (err ProtocolError) Error() string {
	return fmt.Sprintf("%s {Code: %d, Sequence: %d, BadValue: %d, "+
		"MinorOpcode: %d, MajorOpcode: %d}", err.Name, err.Code,
		err.Sequence, err.BadValue, err.MinorOpcode, err.MajorOpcode)
}

// UnknownError is produced for an error code no table claims.
type UnknownError struct {
	ProtocolError
}

func newUnknownError(buf []byte) Error {
	return UnknownError{NewProtocolError("UnknownError", buf)}
}

// Core protocol error codes.
const (
	BadRequest        = 1
	BadValue          = 2
	BadWindow         = 3
	BadPixmap         = 4
	BadAtom           = 5
	BadCursor         = 6
	BadFont           = 7
	BadMatch          = 8
	BadDrawable       = 9
	BadAccess         = 10
	BadAlloc          = 11
	BadColormap       = 12
	BadGContext       = 13
	BadIDChoice       = 14
	BadName           = 15
	BadLength         = 16
	BadImplementation = 17
)

var coreErrorNames = map[byte]string{
	BadRequest:        "BadRequest",
	BadValue:          "BadValue",
	BadWindow:         "BadWindow",
	BadPixmap:         "BadPixmap",
	BadAtom:           "BadAtom",
	BadCursor:         "BadCursor",
	BadFont:           "BadFont",
	BadMatch:          "BadMatch",
	BadDrawable:       "BadDrawable",
	BadAccess:         "BadAccess",
	BadAlloc:          "BadAlloc",
	BadColormap:       "BadColormap",
	BadGContext:       "BadGContext",
	BadIDChoice:       "BadIDChoice",
	BadName:           "BadName",
	BadLength:         "BadLength",
	BadImplementation: "BadImplementation",
}

// CoreError is any error defined by the core protocol.
type CoreError struct {
	ProtocolError
}

func newCoreError(buf []byte) (Error, bool) {
	name, ok := coreErrorNames[buf[1]]
	if !ok {
		return nil, false
	}
	return CoreError{NewProtocolError(name, buf)}, true
}
