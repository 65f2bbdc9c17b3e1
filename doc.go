/*
Package xgb is the protocol core shared by the X extension bindings in its
sub-packages: glx, randr, render, sync and xcmisc.

It owns the connection to the X server and everything every extension
needs from it: resolving an extension's opcodes and event and error bases,
issuing requests and matching their replies and errors by sequence number,
decoding the events and errors extensions define, reading lists out of
replies without copying them, and binding resource ids to the connection
they belong to. The extension packages add the wire layouts on top.

The request model is XCB's. A request returns a cookie at once and many can
be outstanding; the reply or error is collected later from the cookie.

Example

This example connects to X, initializes RandR and prints the size of every
mode the server knows about. Note the Release: list views borrow the reply's
buffer, and using them after Release panics.

	package main

	import (
		"fmt"
		"log"

		xgb "github.com/BurntSushi/xgbext"
		"github.com/BurntSushi/xgbext/randr"
	)

	func main() {
		X, err := xgb.NewConn()
		if err != nil {
			log.Fatal(err)
		}
		defer X.Close()

		// The appropriate 'Init' function must be run for *every*
		// extension before any of its requests can be used.
		if err := randr.Init(X); err != nil {
			log.Fatal(err)
		}

		resources, err := randr.GetScreenResources(X, X.DefaultScreen().Root).Reply()
		if err != nil {
			log.Fatal(err)
		}
		defer resources.Release()

		for it := resources.Modes().Iter(); it.Next(); {
			mode := it.Value()
			fmt.Printf("%d: %dx%d\n", mode.Id, mode.Width, mode.Height)
		}
	}

Checked and unchecked requests

Requests with a reply come in two forms. X(...) is checked: Reply returns
either the reply or the server's error. XUnchecked(...) is not: if the
server answers with an error, Reply returns a nil reply and a nil error,
and the error is delivered by WaitForEvent and PollForEvent instead.

Requests without a reply are unchecked by default. XChecked(...) returns a
cookie whose Check reports the error, if any, making a round trip to the
server when the outcome is not yet known.

Errors that happen before anything reaches the server, such as a request for
an extension that is absent or was never initialized, are returned from
Reply and Check in every form. They match ErrExtensionUnavailable.

Events

WaitForEvent returns events and errors from unchecked requests in the order
they arrived. A Mux routes them to handlers by their Go type:

	mux := xgb.NewMux()
	xgb.HandleEvent(mux, func(ev randr.ScreenChangeNotifyEvent) {
		fmt.Println(ev.Width, ev.Height)
	})
	err := mux.Run(X) // until the connection closes

Events of an extension are only decoded once it is initialized; before that
they surface as UnknownEvent.

Tests

The tests run against a scripted X server in internal/xgbtest, so they need
no display. xgb_test.go stresses the corners of the cookie protocol: many
requests in flight, checked and unchecked errors, sequence number wrapping
and the forced round trip every 65535 requests without a reply.

For the meaning of the requests themselves, see the X Protocol Reference
Manual and the protocol documents of each extension.
*/
package xgb
