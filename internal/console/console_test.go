package console

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/command"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/config"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/link"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/sensors"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/telemetry"
)

// syncBuffer makes the output buffer safe against the input pump goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeStore struct {
	saved []config.NetworkConfig
	err   error
}

func (s *fakeStore) Load() (config.NetworkConfig, error) {
	return config.NetworkConfig{}, config.ErrNotFound
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) Save(cfg config.NetworkConfig) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, cfg)
	return nil
}

type fakeLink struct {
	probes int
}

func (l *fakeLink) State() link.State        { return link.Connected }
func (l *fakeLink) RSSI() int                { return -55 }
func (l *fakeLink) ConnectionStatus() string { return "connected" }
func (l *fakeLink) TransportName() string    { return "http" }
func (l *fakeLink) SecondaryUp() bool        { return false }
func (l *fakeLink) RequestProbe()            { l.probes++ }

type nullSource struct{}

func (nullSource) ReadAvailable([]byte) (int, error) { return 0, nil }

type errProbe struct{}

func (errProbe) ReadRegisters() (float64, float64, float64, error) {
	return 0, 0, 0, config.ErrNotFound
}

type consoleFixture struct {
	controller *Controller
	out        *syncBuffer
	store      *fakeStore
	cfg        *config.NetworkConfig
	relay      *command.MemRelay
	machine    *fakeLink
}

func newConsoleFixture(t *testing.T, input string) *consoleFixture {
	t.Helper()

	cfg := config.NetworkConfig{
		NetworkName:   "Net1",
		NetworkSecret: "abcdefgh",
		GroundHost:    "10.0.0.5",
		GroundPort:    3003,
		DeviceID:      "uav-test",
	}
	f := consoleFixture{
		out:     &syncBuffer{},
		store:   &fakeStore{},
		cfg:     &cfg,
		relay:   &command.MemRelay{},
		machine: &fakeLink{},
	}
	f.controller = NewController(NewLineReader(strings.NewReader(input), f.out), f.out,
		f.store, f.cfg, f.relay, f.machine, sensors.NewPositionReader(nullSource{}),
		sensors.NewPowerReader(errProbe{}), telemetry.NewStats(), func() {},
		time.Now().Add(-time.Minute))
	return &f
}

// runUntilOutput polls until the controller produced output or times out.
func (f *consoleFixture) runUntilOutput(t *testing.T) string {
	t.Helper()
	for i := 0; i < 500; i++ {
		f.controller.Poll(time.Now())
		if s := f.out.String(); s != "" {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no console output produced")
	return ""
}

func TestConsoleUnknownCommand(t *testing.T) {
	f := newConsoleFixture(t, "frobnicate\n")

	out := f.runUntilOutput(t)
	if !strings.Contains(out, "unknown command 'frobnicate'") {
		t.Errorf("output = %q", out)
	}
}

func TestConsoleRelayCommands(t *testing.T) {
	f := newConsoleFixture(t, "relay_on\n")

	f.runUntilOutput(t)
	if !f.relay.State() {
		t.Error("relay_on must switch the actuator on")
	}
}

func TestConsoleTestCommand(t *testing.T) {
	f := newConsoleFixture(t, "test\n")

	f.runUntilOutput(t)
	if f.machine.probes != 1 {
		t.Errorf("probes = %d, want 1", f.machine.probes)
	}
}

func TestConsoleStatus(t *testing.T) {
	f := newConsoleFixture(t, "status\n")

	out := f.runUntilOutput(t)
	for _, want := range []string{"state: connected", "-55 dBm", "uptime:"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q: %q", want, out)
		}
	}
}

func TestConsoleConfigWifi(t *testing.T) {
	f := newConsoleFixture(t, "config_wifi NewNet newsecret\n")

	out := f.runUntilOutput(t)
	if !strings.Contains(out, "staged") {
		t.Fatalf("output = %q", out)
	}
	if f.cfg.NetworkName != "NewNet" || f.cfg.NetworkSecret != "newsecret" {
		t.Errorf("cfg = %+v", f.cfg)
	}
	if len(f.store.saved) != 0 {
		t.Error("config_wifi must not persist anything by itself")
	}
}

func TestConsoleConfigWifiRejected(t *testing.T) {
	f := newConsoleFixture(t, "config_wifi NewNet short\n")

	out := f.runUntilOutput(t)
	if !strings.Contains(out, "error:") {
		t.Fatalf("output = %q", out)
	}
	if f.cfg.NetworkName != "Net1" || f.cfg.NetworkSecret != "abcdefgh" {
		t.Error("rejected credentials must leave the staged configuration untouched")
	}
}

func TestConsoleConfigServer(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantHost string
		wantPort uint16
	}{
		{"valid", "config_server 192.168.1.7 8080\n", "192.168.1.7", 8080},
		{"zero port", "config_server 192.168.1.7 0\n", "10.0.0.5", 3003},
		{"port out of range", "config_server 192.168.1.7 70000\n", "10.0.0.5", 3003},
		{"malformed address", "config_server 999.1.2.3.4 8080\n", "10.0.0.5", 3003},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newConsoleFixture(t, test.line)
			f.runUntilOutput(t)

			if f.cfg.GroundHost != test.wantHost || f.cfg.GroundPort != test.wantPort {
				t.Errorf("cfg = %s:%d, want %s:%d",
					f.cfg.GroundHost, f.cfg.GroundPort, test.wantHost, test.wantPort)
			}
		})
	}
}

func TestConsoleSaveConfig(t *testing.T) {
	f := newConsoleFixture(t, "save_config\n")

	out := f.runUntilOutput(t)
	if !strings.Contains(out, "saved") {
		t.Fatalf("output = %q", out)
	}
	if len(f.store.saved) != 1 {
		t.Fatalf("saved %d records, want 1", len(f.store.saved))
	}
	if !f.store.saved[0].Initialized {
		t.Error("persisted configuration must carry the initialized marker")
	}
	if !f.cfg.Initialized {
		t.Error("staged configuration must be marked initialized after save")
	}
}

func TestConsoleInputSurvivesRestart(t *testing.T) {
	in, writer := io.Pipe()
	out := &syncBuffer{}
	lines := NewLineReader(in, out)
	defer writer.Close()

	newController := func(relay *command.MemRelay) *Controller {
		cfg := config.NetworkConfig{
			NetworkName:   "Net1",
			NetworkSecret: "abcdefgh",
			GroundHost:    "10.0.0.5",
			GroundPort:    3003,
			DeviceID:      "uav-test",
		}
		return NewController(lines, out, &fakeStore{}, &cfg, relay, &fakeLink{},
			sensors.NewPositionReader(nullSource{}), sensors.NewPowerReader(errProbe{}),
			telemetry.NewStats(), func() {}, time.Now())
	}

	runUntil := func(c *Controller, done func() bool) {
		t.Helper()
		for i := 0; i < 500; i++ {
			c.Poll(time.Now())
			if done() {
				return
			}
			time.Sleep(time.Millisecond)
		}
		t.Fatal("command did not execute")
	}

	first := &command.MemRelay{}
	c1 := newController(first)
	if _, err := writer.Write([]byte("relay_on\n")); err != nil {
		t.Fatal(err)
	}
	runUntil(c1, first.State)

	// The engine restarts: the old controller is dropped, a new one picks
	// up the same reader. Input typed afterwards must reach the new one.
	second := &command.MemRelay{}
	c2 := newController(second)
	for i := 0; i < 10; i++ {
		if _, err := writer.Write([]byte("relay_on\n")); err != nil {
			t.Fatal(err)
		}
	}
	runUntil(c2, second.State)
}

func TestConsoleLineTooLong(t *testing.T) {
	f := newConsoleFixture(t, strings.Repeat("x", MaxLineLen+10)+"\nhelp\n")

	// The overlong line is reported and discarded whole; the next line still
	// executes.
	for i := 0; i < 500; i++ {
		f.controller.Poll(time.Now())
		out := f.out.String()
		if strings.Contains(out, "line too long") && strings.Contains(out, "commands:") {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("output = %q", f.out.String())
}
