package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/command"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/console"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/link"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/sensors"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/telemetry"
)

// ErrRestartRequested signals that the loop exited because a reboot was
// commanded; main starts the engine over, which is also the only point
// where statistics reset.
var ErrRestartRequested = errors.New("restart requested")

const (
	// tickInterval is the cooperative yield between loop iterations.
	tickInterval = 50 * time.Millisecond

	// rebootGrace is the delay between an accepted reboot command and the
	// actual restart, leaving time for the acknowledgement to flush.
	rebootGrace = time.Second
)

// scheduler is the single control loop tying the components together. One
// iteration services the link machine, pulls sensors, fires telemetry,
// drains inbound operator messages, and re-arms the watchdog. Nothing in
// the loop body blocks.
type scheduler struct {
	clock    clockwork.Clock
	machine  *link.Machine
	gps      *sensors.PositionReader
	power    *sensors.PowerReader
	dispatch *telemetry.Dispatcher
	commands *command.Handler
	console  *console.Controller
	watchdog *watchdog
	logger   *slog.Logger

	rebootAt time.Time
}

// requestReboot schedules the restart after the grace delay. Repeated
// requests keep the earliest deadline. Called only from the loop context.
func (s *scheduler) requestReboot() {
	if s.rebootAt.IsZero() {
		s.rebootAt = s.clock.Now().Add(rebootGrace)
	}
}

func (s *scheduler) run(ctx context.Context) error {
	wdCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.watchdog.run(wdCtx)

	s.logger.Info("control loop started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := s.clock.Now()

		s.machine.Advance(now)
		s.gps.Poll(now)
		s.power.Poll(now)
		s.dispatch.MaybeSend(now)
		s.drainCommands(now)
		s.console.Poll(now)

		if !s.rebootAt.IsZero() && !now.Before(s.rebootAt) {
			s.logger.Info("restarting")
			return ErrRestartRequested
		}

		s.watchdog.Kick()
		s.clock.Sleep(tickInterval)
	}
}

func (s *scheduler) drainCommands(now time.Time) {
	for {
		select {
		case raw := <-s.machine.Inbound():
			s.commands.Handle(raw, now)
		default:
			return
		}
	}
}
