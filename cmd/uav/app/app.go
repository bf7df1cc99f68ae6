package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/command"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/config"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/console"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/link"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/sensors"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/telemetry"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/transport"
)

// exitWatchdog is the process exit code used when the watchdog fires.
const exitWatchdog = 70

// nullSource is the position source used when no receiver is configured.
type nullSource struct{}

func (nullSource) ReadAvailable([]byte) (int, error) { return 0, nil }

// noProbe stands in for an absent power sensor; the reader degrades to the
// simulated series after the usual threshold.
type noProbe struct{}

func (noProbe) ReadRegisters() (float64, float64, float64, error) {
	return 0, 0, 0, errors.New("no power sensor configured")
}

// Run wires the engine together from the application configuration and
// drives the control loop until the context ends or a restart is requested.
// A returned ErrRestartRequested means the caller should call Run again
// with the same lines reader, so operator input typed around the restart
// reaches the next engine incarnation.
func Run(ctx context.Context, cfg *Config, lines *console.LineReader, logger *slog.Logger) error {
	clock := clockwork.NewRealClock()
	startedAt := clock.Now()

	store := config.NewSqliteStore(cfg.Storage.ConfigDatabase)
	defer store.Close()

	netcfg, err := store.Load()
	switch {
	case errors.Is(err, config.ErrNotFound):
		logger.Info("no saved network configuration, using defaults")
		netcfg = config.DefaultConfig()
	case err != nil:
		return fmt.Errorf("loading network configuration: %w", err)
	default:
		logger.Info("network configuration loaded",
			slog.String("network", netcfg.NetworkName),
			slog.String("deviceId", netcfg.DeviceID))
	}

	baseURL := fmt.Sprintf("http://%s:%d", netcfg.GroundHost, netcfg.GroundPort)
	wsURL := fmt.Sprintf("ws://%s:%d/ws", netcfg.GroundHost, netcfg.GroundPort)

	driver := link.NewSimDriver(cfg.AssociateDelay())
	stats := telemetry.NewStats()

	machine := link.NewMachine(netcfg, driver,
		transport.NewHTTPChannel(baseURL),
		transport.NewProber(baseURL),
		link.SecondaryDialerFunc(func(ctx context.Context) (transport.Secondary, error) {
			return transport.DialSecondary(ctx, wsURL)
		}),
		link.WithLogger(logger),
		link.WithProbeListener(stats.RecordProbe))
	defer machine.Close()

	var source sensors.ByteSource = nullSource{}
	if cfg.Sensors.GPSDevice != "" {
		f, err := os.Open(cfg.Sensors.GPSDevice)
		if err != nil {
			logger.Warn(fmt.Sprintf("opening position receiver: %s", err))
		} else {
			defer f.Close()
			source = sensors.NewStreamSource(f)
		}
	}
	gps := sensors.NewPositionReader(source, sensors.WithPositionLogger(logger))

	var probe sensors.PowerProbe = noProbe{}
	if cfg.Sensors.PowerSupply != "" {
		probe = sensors.NewSysfsPowerProbe(cfg.Sensors.PowerSupply)
	}
	power := sensors.NewPowerReader(probe, sensors.WithPowerLogger(logger))

	var relay command.Actuator = &command.MemRelay{}
	if cfg.Sensors.RelayPin != "" {
		relay = command.NewPinRelay(cfg.Sensors.RelayPin)
	}

	dispatch := telemetry.NewDispatcher(machine, gps, power, relay, stats,
		telemetry.WithInterval(cfg.TelemetryInterval()),
		telemetry.WithDispatcherLogger(logger))

	sched := scheduler{
		clock:    clock,
		machine:  machine,
		gps:      gps,
		power:    power,
		dispatch: dispatch,
		logger:   logger.With(slog.String("component", "engine")),
	}

	sched.commands = command.NewHandler(relay, machine, netcfg.DeviceID,
		sched.requestReboot, command.WithHandlerLogger(logger))
	sched.console = console.NewController(lines, os.Stdout, store, &netcfg,
		relay, machine, gps, power, stats, sched.requestReboot, startedAt,
		console.WithLogger(logger))
	sched.watchdog = newWatchdog(clock, cfg.WatchdogWindow(), func() {
		logger.Error("watchdog expired, forcing restart")
		os.Exit(exitWatchdog)
	})

	return sched.run(ctx)
}
