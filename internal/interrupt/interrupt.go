// Package interrupt records asynchronous signals for the interpreter to
// poll between clauses.
package interrupt

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Halting are the signals that request a HALT by default.
var Halting = []os.Signal{os.Interrupt, unix.SIGTERM, unix.SIGHUP}

// Watcher counts halt signals until they are taken.
type Watcher struct {
	mu     sync.Mutex
	sigs   chan os.Signal
	reason string
	count  int
}

// Watch starts recording sigs, or Halting when none are given. A broken
// pipe is ignored so that writes to a closed pipe fail with an error.
func Watch(sigs ...os.Signal) *Watcher {
	if len(sigs) == 0 {
		sigs = Halting
	}
	w := &Watcher{sigs: make(chan os.Signal, 8)}
	signal.Ignore(unix.SIGPIPE)
	signal.Notify(w.sigs, sigs...)
	return w
}

// Take returns the name of the last signal received and how many arrived
// since the previous call.
func (w *Watcher) Take() (string, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for drained := false; !drained; {
		select {
		case sig := <-w.sigs:
			w.reason = Name(sig)
			w.count++
		default:
			drained = true
		}
	}
	reason, count := w.reason, w.count
	w.reason, w.count = "", 0
	return reason, count
}

// Halt records a halt request as if a signal had arrived.
func (w *Watcher) Halt(reason string) {
	w.mu.Lock()
	w.reason = reason
	w.count++
	w.mu.Unlock()
}

// Stop restores the default handling of the watched signals.
func (w *Watcher) Stop() {
	signal.Stop(w.sigs)
}

// Name returns the conventional name of sig, such as SIGINT.
func Name(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		if n := unix.SignalName(s); n != "" {
			return n
		}
	}
	return sig.String()
}
