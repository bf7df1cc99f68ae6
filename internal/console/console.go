// Package console implements the operator-facing local control surface, a
// line-based command interface over a serial-style stream.
package console

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/command"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/config"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/link"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/sensors"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/telemetry"
)

// Link is the connectivity view the console reports on.
type Link interface {
	State() link.State
	RSSI() int
	ConnectionStatus() string
	TransportName() string
	SecondaryUp() bool
	RequestProbe()
}

// WithLogger sets the logger for the controller.
func WithLogger(logger *slog.Logger) func(*Controller) {
	return func(c *Controller) {
		c.logger = logger.With(slog.String("component", "console"))
	}
}

// Controller parses and executes operator commands. Poll drains the shared
// line queue and executes from the control loop, so command handling never
// blocks the loop on input. The LineReader is owned by the process, not the
// controller: a controller holds no goroutines and can simply be dropped
// when the engine restarts.
type Controller struct {
	lines  *LineReader
	out    io.Writer
	logger *slog.Logger

	store    config.Store
	cfg      *config.NetworkConfig
	actuator command.Actuator
	machine  Link
	position *sensors.PositionReader
	power    *sensors.PowerReader
	stats    *telemetry.Stats
	reboot   func()

	startedAt time.Time
}

// NewController creates a controller executing commands from lines and
// writing replies to out. cfg is the live in-memory configuration that
// config_* commands edit and save_config persists.
func NewController(lines *LineReader, out io.Writer, store config.Store, cfg *config.NetworkConfig,
	actuator command.Actuator, machine Link, position *sensors.PositionReader,
	power *sensors.PowerReader, stats *telemetry.Stats, reboot func(),
	startedAt time.Time, options ...func(*Controller)) *Controller {

	c := Controller{
		lines:     lines,
		out:       out,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:     store,
		cfg:       cfg,
		actuator:  actuator,
		machine:   machine,
		position:  position,
		power:     power,
		stats:     stats,
		reboot:    reboot,
		startedAt: startedAt,
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Poll executes all pending command lines.
func (c *Controller) Poll(now time.Time) {
	for {
		select {
		case line := <-c.lines.Lines():
			c.execute(line, now)
		default:
			return
		}
	}
}

func (c *Controller) execute(line string, now time.Time) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "status":
		c.printStatus(now)
	case "test":
		c.machine.RequestProbe()
		c.printf("link test scheduled, check status for the result\n")
	case "sensor":
		c.printSensor()
	case "gps":
		c.printGPS(now)
	case "relay_on":
		c.actuator.Set(true)
		c.printf("relay on\n")
	case "relay_off":
		c.actuator.Set(false)
		c.printf("relay off\n")
	case "config_wifi":
		c.configWifi(fields[1:])
	case "config_server":
		c.configServer(fields[1:])
	case "save_config":
		c.saveConfig()
	case "reboot":
		c.printf("rebooting\n")
		c.reboot()
	case "help":
		c.printHelp()
	default:
		c.printf("unknown command '%s', try help\n", fields[0])
	}
}

func (c *Controller) printStatus(now time.Time) {
	c.printf("state: %s (%s via %s)\n",
		c.machine.State(), c.machine.ConnectionStatus(), c.machine.TransportName())
	c.printf("signal: %d dBm, secondary channel up: %v\n", c.machine.RSSI(), c.machine.SecondaryUp())
	c.printf("telemetry: %s sent, %s failed, %d consecutive probe failures\n",
		humanize.Comma(int64(c.stats.Sent())),
		humanize.Comma(int64(c.stats.Failed())),
		c.stats.ProbeFailures())
	if desc, at := c.stats.LastError(); desc != "" {
		c.printf("last error: %s (%s)\n", desc, humanize.Time(at))
	}
	c.printf("uptime: %s\n", now.Sub(c.startedAt).Truncate(time.Second))
}

func (c *Controller) printSensor() {
	s := c.power.Sample()
	source := "measured"
	if !s.Measured {
		source = "simulated"
	}
	c.printf("battery: %.2f V, %.2f mA, %.2f W (%s)\n", s.Voltage, s.Current, s.Power, source)
}

func (c *Controller) printGPS(now time.Time) {
	fix := c.position.Fix()
	if fix.UpdatedAt.IsZero() {
		c.printf("gps: no fix yet\n")
		return
	}
	state := "valid"
	if !fix.Valid {
		state = "stale"
	}
	c.printf("gps: %.6f, %.6f alt %.1f m speed %.1f m/s sats %d (%s, updated %s)\n",
		fix.Latitude, fix.Longitude, fix.Altitude, fix.Speed, fix.Satellites,
		state, now.Sub(fix.UpdatedAt).Truncate(time.Second))
}

func (c *Controller) configWifi(args []string) {
	if len(args) != 2 {
		c.printf("usage: config_wifi <name> <secret>\n")
		return
	}

	next := *c.cfg
	next.NetworkName = args[0]
	next.NetworkSecret = args[1]
	if err := next.Validate(); err != nil {
		c.printf("error: %s\n", err)
		return
	}

	*c.cfg = next
	c.printf("network credentials staged, save_config to persist\n")
}

func (c *Controller) configServer(args []string) {
	if len(args) != 2 {
		c.printf("usage: config_server <host> <port>\n")
		return
	}

	port, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil || port == 0 {
		c.printf("error: invalid port '%s'\n", args[1])
		return
	}

	next := *c.cfg
	next.GroundHost = args[0]
	next.GroundPort = uint16(port)
	if err := next.Validate(); err != nil {
		c.printf("error: %s\n", err)
		return
	}

	*c.cfg = next
	c.printf("ground station staged, save_config to persist\n")
}

func (c *Controller) saveConfig() {
	cfg := *c.cfg
	cfg.Initialized = true
	if err := c.store.Save(cfg); err != nil {
		c.printf("error: %s\n", err)
		return
	}
	c.cfg.Initialized = true
	c.printf("configuration saved, takes effect after reboot\n")
}

func (c *Controller) printHelp() {
	c.printf("commands: status test sensor gps relay_on relay_off " +
		"config_wifi <name> <secret> config_server <host> <port> save_config reboot help\n")
}

func (c *Controller) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(c.out, format, args...); err != nil {
		c.logger.Warn(fmt.Sprintf("writing console output: %s", err))
	}
}
