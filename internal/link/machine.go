package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/config"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/transport"
)

const (
	// AssociateTimeout bounds a single association attempt.
	AssociateTimeout = 30 * time.Second

	// BackoffBase is the reconnect backoff unit; the delay doubles per
	// attempt up to BackoffShiftCap doublings.
	BackoffBase     = time.Second
	BackoffShiftCap = 5

	// MaxReconnectAttempts is the attempts ceiling before entering Failed.
	MaxReconnectAttempts = 5

	// FailedCooldown is how long the machine stays in Failed before
	// starting over from Disconnected.
	FailedCooldown = 5 * time.Minute

	// ProbeInterval and ProbeTimeout govern reachability probing.
	ProbeInterval = 30 * time.Second
	ProbeTimeout  = 5 * time.Second

	// pollInterval rate-limits transition evaluation. Link loss detection
	// still runs on every Advance call.
	pollInterval = time.Second

	inboundQueueLen = 32
)

// ErrNoChannel is returned by Send when neither channel can carry the
// payload.
var ErrNoChannel = errors.New("no transport channel available")

// Prober answers whether the ground station is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// SecondaryDialer establishes the low-latency secondary channel.
type SecondaryDialer interface {
	Dial(ctx context.Context) (transport.Secondary, error)
}

// SecondaryDialerFunc adapts a function to the SecondaryDialer interface.
type SecondaryDialerFunc func(ctx context.Context) (transport.Secondary, error)

func (f SecondaryDialerFunc) Dial(ctx context.Context) (transport.Secondary, error) { return f(ctx) }

// WithLogger sets the logger for the machine.
func WithLogger(logger *slog.Logger) func(*Machine) {
	return func(m *Machine) {
		m.logger = logger.With(slog.String("component", "link"))
	}
}

// WithProbeListener registers a callback invoked after every completed
// reachability probe. desc is empty on success.
func WithProbeListener(fn func(ok bool, desc string, now time.Time)) func(*Machine) {
	return func(m *Machine) {
		m.probeListener = fn
	}
}

type dialOutcome struct {
	secondary transport.Secondary
	err       error
}

// Machine owns link association, reachability probing and the secondary
// channel lifecycle. All mutating methods must be called from the single
// control loop goroutine; asynchronous work (probes, dials) reports back
// through channels drained by Advance.
type Machine struct {
	cfg     config.NetworkConfig
	driver  Driver
	primary transport.Channel
	prober  Prober
	dialer  SecondaryDialer
	logger  *slog.Logger

	state             State
	stateEnteredAt    time.Time
	reconnectAttempts uint8
	lastPoll          time.Time

	lastProbe     time.Time
	probeDue      bool
	probeInFlight bool
	probeResult   chan error
	reachable     bool

	dialInFlight bool
	dialResult   chan dialOutcome
	secondary    transport.Secondary

	inbound chan []byte

	probeListener func(ok bool, desc string, now time.Time)
}

// NewMachine creates a machine in the Disconnected state.
func NewMachine(cfg config.NetworkConfig, driver Driver, primary transport.Channel, prober Prober, dialer SecondaryDialer, options ...func(*Machine)) *Machine {
	m := Machine{
		cfg:         cfg,
		driver:      driver,
		primary:     primary,
		prober:      prober,
		dialer:      dialer,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:       Disconnected,
		probeResult: make(chan error, 1),
		dialResult:  make(chan dialOutcome, 1),
		inbound:     make(chan []byte, inboundQueueLen),
	}

	for _, option := range options {
		option(&m)
	}

	return &m
}

// State returns the current connectivity state.
func (m *Machine) State() State { return m.state }

// ReconnectAttempts returns the current reconnect attempt counter.
func (m *Machine) ReconnectAttempts() uint8 { return m.reconnectAttempts }

// Associated reports whether the link layer is associated.
func (m *Machine) Associated() bool { return m.driver.Associated() }

// RSSI returns the link signal strength in dBm.
func (m *Machine) RSSI() int { return m.driver.RSSI() }

// SecondaryUp reports whether the low-latency channel is established.
func (m *Machine) SecondaryUp() bool { return m.secondary != nil }

// ConnectionStatus classifies the link for the telemetry snapshot:
// "connected" when the ground station is reachable, "wifi_only" when only
// the link layer is up, "disconnected" otherwise.
func (m *Machine) ConnectionStatus() string {
	switch {
	case m.driver.Associated() && (m.reachable || m.secondary != nil):
		return "connected"
	case m.driver.Associated():
		return "wifi_only"
	default:
		return "disconnected"
	}
}

// TransportName names the channel the next send would prefer.
func (m *Machine) TransportName() string {
	switch {
	case m.secondary != nil:
		return m.secondary.Name()
	case m.driver.Associated():
		return m.primary.Name()
	default:
		return "none"
	}
}

// Inbound returns the queue of operator messages received over the
// secondary channel.
func (m *Machine) Inbound() <-chan []byte { return m.inbound }

// RequestProbe schedules a reachability probe for the next Advance while
// Connected, ahead of the regular interval.
func (m *Machine) RequestProbe() { m.probeDue = true }

// Send transmits payload over the secondary channel when established,
// falling back to the primary channel within the same call. A failed
// secondary write tears the channel down so the next cycle re-probes.
func (m *Machine) Send(payload []byte) error {
	if m.secondary != nil {
		err := m.secondary.Send(payload)
		if err == nil {
			return nil
		}
		m.logger.Warn(fmt.Sprintf("secondary send failed, falling back: %s", err))
		m.teardownSecondary()
	}

	if !m.driver.Associated() {
		return ErrNoChannel
	}
	if err := m.primary.Send(payload); err != nil {
		return fmt.Errorf("primary send: %w", err)
	}
	return nil
}

// Advance services async results and runs the transition table. It is safe
// to call every loop iteration; transition evaluation is internally
// rate-limited to once per second, link loss detection is not.
func (m *Machine) Advance(now time.Time) {
	m.drainAsync(now)

	if m.state == Connected && !m.driver.Associated() {
		m.logger.Warn("link lost")
		m.teardownSecondary()
		m.setState(Reconnecting, now)
	}

	if now.Sub(m.lastPoll) < pollInterval && !m.lastPoll.IsZero() {
		return
	}
	m.lastPoll = now

	switch m.state {
	case Disconnected:
		if m.cfg.Validate() != nil {
			return
		}
		if err := m.driver.Join(m.cfg.NetworkName, m.cfg.NetworkSecret); err != nil {
			m.logger.Error(fmt.Sprintf("starting association: %s", err))
			return
		}
		m.setState(Connecting, now)

	case Connecting:
		if m.driver.Associated() {
			m.reconnectAttempts = 0
			m.probeDue = true // probe right away, then on the interval
			m.setState(Connected, now)
			return
		}
		if now.Sub(m.stateEnteredAt) > AssociateTimeout {
			m.logger.Warn("association timed out")
			m.driver.Leave()
			m.setState(Reconnecting, now)
		}

	case Connected:
		if m.probeInFlight {
			return
		}
		if m.probeDue || now.Sub(m.lastProbe) >= ProbeInterval {
			m.startProbe(now)
		}

	case Reconnecting:
		shift := m.reconnectAttempts
		if shift > BackoffShiftCap {
			shift = BackoffShiftCap
		}
		delay := BackoffBase << shift
		if now.Sub(m.stateEnteredAt) < delay {
			return
		}

		m.reconnectAttempts++
		if m.reconnectAttempts > MaxReconnectAttempts {
			m.logger.Error("reconnect attempts exhausted",
				slog.Int("attempts", int(m.reconnectAttempts)-1))
			m.driver.Leave()
			m.setState(Failed, now)
			return
		}

		m.logger.Info("retrying association", slog.Int("attempt", int(m.reconnectAttempts)))
		if err := m.driver.Join(m.cfg.NetworkName, m.cfg.NetworkSecret); err != nil {
			m.logger.Error(fmt.Sprintf("starting association: %s", err))
			return
		}
		m.setState(Connecting, now)

	case Failed:
		if now.Sub(m.stateEnteredAt) >= FailedCooldown {
			m.reconnectAttempts = 0
			m.setState(Disconnected, now)
		}
	}
}

// Close tears down the secondary channel and leaves the link.
func (m *Machine) Close() {
	m.teardownSecondary()
	m.driver.Leave()
}

func (m *Machine) setState(s State, now time.Time) {
	if m.state == s {
		return
	}
	m.logger.Info("state transition",
		slog.String("from", m.state.String()),
		slog.String("to", s.String()))
	m.state = s
	m.stateEnteredAt = now
}

func (m *Machine) startProbe(now time.Time) {
	m.probeInFlight = true
	m.probeDue = false
	m.lastProbe = now

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ProbeTimeout)
		defer cancel()
		m.probeResult <- m.prober.Probe(ctx)
	}()
}

func (m *Machine) startDial() {
	m.dialInFlight = true

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ProbeTimeout)
		defer cancel()
		sec, err := m.dialer.Dial(ctx)
		m.dialResult <- dialOutcome{secondary: sec, err: err}
	}()
}

func (m *Machine) drainAsync(now time.Time) {
	select {
	case err := <-m.probeResult:
		m.probeInFlight = false
		m.handleProbeResult(err, now)
	default:
	}

	select {
	case out := <-m.dialResult:
		m.dialInFlight = false
		m.handleDialResult(out)
	default:
	}

	// A closed inbound queue means the secondary connection died underneath
	// us; drop the channel so sends revert to primary.
	for i := 0; m.secondary != nil && i < inboundQueueLen; i++ {
		select {
		case data, ok := <-m.secondary.Inbound():
			if !ok {
				m.logger.Warn("secondary connection lost")
				m.teardownSecondary()
				return
			}
			m.forwardInbound(data)
		default:
			return
		}
	}
}

func (m *Machine) handleProbeResult(err error, now time.Time) {
	if err != nil {
		m.reachable = false
		m.logger.Warn(fmt.Sprintf("reachability probe failed: %s", err))
		// Conservative: one failed probe tears the secondary channel down.
		m.teardownSecondary()
		if m.probeListener != nil {
			m.probeListener(false, err.Error(), now)
		}
		return
	}

	m.reachable = true
	if m.probeListener != nil {
		m.probeListener(true, "", now)
	}
	if m.state == Connected && m.secondary == nil && !m.dialInFlight {
		m.startDial()
	}
}

func (m *Machine) handleDialResult(out dialOutcome) {
	if out.err != nil {
		m.logger.Warn(fmt.Sprintf("secondary channel dial failed: %s", out.err))
		return
	}
	if m.state != Connected {
		_ = out.secondary.Close()
		return
	}

	m.logger.Info("secondary channel established")
	m.secondary = out.secondary
}

func (m *Machine) forwardInbound(data []byte) {
	select {
	case m.inbound <- data:
	default:
		m.logger.Warn("inbound queue full, dropping message")
	}
}

func (m *Machine) teardownSecondary() {
	if m.secondary == nil {
		return
	}
	_ = m.secondary.Close()
	m.secondary = nil
}
