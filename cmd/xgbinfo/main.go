// Command xgbinfo connects to an X server, initializes the GLX, RandR,
// Render, Sync and XC-MISC extensions and prints what it learned about
// each of them.
//
// With --watch it keeps running and prints RandR and Sync events as they
// arrive, which is handy while reconfiguring heads with 'xrandr'. Kill it
// with ctrl+c.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	xgb "github.com/BurntSushi/xgbext"
	"github.com/BurntSushi/xgbext/randr"
	"github.com/BurntSushi/xgbext/sync"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "xgbinfo: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	display string
	format  string
	watch   bool
	quiet   bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("xgbinfo", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.display, "display", "d", "", "X display to connect to (default: $DISPLAY)")
	flagSet.StringVarP(&opts.format, "format", "f", "text", "report format: text or yaml")
	flagSet.BoolVarP(&opts.watch, "watch", "w", false, "keep running and print RandR and Sync events")
	flagSet.BoolVarP(&opts.quiet, "quiet", "q", false, "silence the connection's own log output")
	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	if opts.format != "text" && opts.format != "yaml" {
		return opts, fmt.Errorf("unknown format %q", opts.format)
	}
	if flagSet.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	return opts, nil
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if opts.quiet {
		xgb.PrintLog = false
	}

	X, err := xgb.NewConnDisplay(opts.display)
	if err != nil {
		return err
	}
	defer X.Close()

	rep, err := collect(X)
	if err != nil {
		return err
	}
	if err := rep.write(out, opts.format); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	go func() {
		<-sigs
		X.Close()
	}()
	err = watch(X, rep, out)
	if errors.Is(err, xgb.ErrClosed) {
		return nil
	}
	return err
}

// watch selects RandR input on the default root and prints events until
// the connection goes away.
func watch(X *xgb.Conn, rep *report, out io.Writer) error {
	mux := xgb.NewMux()
	xgb.HandleEvent(mux, func(ev randr.ScreenChangeNotifyEvent) { fmt.Fprintln(out, ev) })
	xgb.HandleEvent(mux, func(ev randr.NotifyEvent) { fmt.Fprintln(out, ev) })
	xgb.HandleEvent(mux, func(ev sync.CounterNotifyEvent) { fmt.Fprintln(out, ev) })
	xgb.HandleEvent(mux, func(ev sync.AlarmNotifyEvent) { fmt.Fprintln(out, ev) })
	mux.HandleError(func(err xgb.Error) { fmt.Fprintf(out, "error: %s\n", err) })
	mux.HandleUnmatched(func(ev xgb.Event) { fmt.Fprintf(out, "unhandled: %s\n", ev) })

	if rep.present(randr.ExtName) {
		root, err := defaultRoot(X)
		if err != nil {
			return err
		}
		err = randr.SelectInputChecked(X, root,
			randr.NotifyMaskScreenChange|
				randr.NotifyMaskCrtcChange|
				randr.NotifyMaskOutputChange|
				randr.NotifyMaskOutputProperty).Check()
		if err != nil {
			return err
		}
	}
	return mux.Run(X)
}
