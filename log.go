package xgb

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

// PrintLog controls whether XGB emits errors to stderr. By default, it is
// enabled. Use SetLogOutput to send them elsewhere.
var PrintLog = true

// Logger is where XGB reports what it cannot return to a caller: errors
// for untracked requests, unknown error codes and transport failures.
var Logger = newLogger()

// xgblog is a wrapper around a log.Logger so we can control whether it
// should output anything.
type xgblog struct {
	out atomic.Pointer[log.Logger]
}

func newLogger() *xgblog {
	lg := &xgblog{}
	lg.out.Store(log.New(os.Stderr, "XGB: ", log.Lshortfile))
	return lg
}

// SetLogOutput redirects XGB's log output.
func SetLogOutput(w io.Writer) {
	Logger.out.Store(log.New(w, "XGB: ", log.Lshortfile))
}

func (lg *xgblog) Print(v ...interface{}) {
	if PrintLog {
		lg.out.Load().Output(2, fmt.Sprint(v...))
	}
}

func (lg *xgblog) Printf(format string, v ...interface{}) {
	if PrintLog {
		lg.out.Load().Output(2, fmt.Sprintf(format, v...))
	}
}

func (lg *xgblog) Println(v ...interface{}) {
	if PrintLog {
		lg.out.Load().Output(2, fmt.Sprintln(v...))
	}
}
