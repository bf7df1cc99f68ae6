package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// watchdog mimics the hardware watchdog timer: the control loop must kick
// it once per iteration, and if it is not kicked within the window the
// expire callback forces a device restart. This is the last line of
// defense against a blocked loop, not a routine code path.
type watchdog struct {
	clock   clockwork.Clock
	window  time.Duration
	kicks   chan struct{}
	expired func()
}

func newWatchdog(clock clockwork.Clock, window time.Duration, expired func()) *watchdog {
	return &watchdog{
		clock:   clock,
		window:  window,
		kicks:   make(chan struct{}, 1),
		expired: expired,
	}
}

// Kick re-arms the watchdog. Never blocks.
func (w *watchdog) Kick() {
	select {
	case w.kicks <- struct{}{}:
	default:
	}
}

// run watches for kicks until the context ends or the window elapses
// without one.
func (w *watchdog) run(ctx context.Context) {
	for {
		timer := w.clock.NewTimer(w.window)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.kicks:
			timer.Stop()
		case <-timer.Chan():
			w.expired()
			return
		}
	}
}
