package trace

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// installSignal arranges for the configured signal to flip the enabled flag.
//
// The handling goroutine performs exactly one store per delivery; it
// allocates nothing and calls nothing else. Close detaches the notification
// and stops the goroutine.
func (e *Engine) installSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.Signal(e.cfg.Signal))
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				e.Toggle()
			case <-done:
				return
			}
		}
	}()
	e.sigStop = func() {
		signal.Stop(ch)
		close(done)
	}
}
