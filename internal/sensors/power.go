package sensors

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

const (
	// InvalidSamplesThreshold is the number of consecutive rejected samples
	// after which the reader switches to the simulated series.
	InvalidSamplesThreshold = 5

	// Accepted instrument bounds.
	MinVoltage = 0.0
	MaxVoltage = 50.0
	MaxCurrent = 20000.0 // mA, either direction
	MaxPower   = 1000.0  // W

	// Simulated battery bounds, a 3S pack between cutoff and full charge.
	simMinVoltage = 10.5
	simMaxVoltage = 12.6
)

// PowerProbe performs a register-style read of the power sensor. The read
// must be quick; a disconnected sensor should return an error rather than
// block.
type PowerProbe interface {
	ReadRegisters() (voltage, current, power float64, err error)
}

// PowerSample is one validated power measurement. Measured is false when
// the value comes from the simulated fallback series.
type PowerSample struct {
	Voltage  float32
	Current  float32
	Power    float32
	Measured bool
	ReadAt   time.Time
}

// WithPowerLogger sets the logger for the power reader.
func WithPowerLogger(logger *slog.Logger) func(*PowerReader) {
	return func(r *PowerReader) {
		r.logger = logger.With(slog.String("sensor", "power"))
	}
}

// WithSimSeed seeds the simulated series so tests get a repeatable walk.
func WithSimSeed(seed int64) func(*PowerReader) {
	return func(r *PowerReader) {
		r.rng = rand.New(rand.NewSource(seed))
	}
}

// PowerReader samples a PowerProbe, validating every reading. After
// InvalidSamplesThreshold consecutive rejects it degrades to a bounded
// random-walk simulation tagged Measured=false; a single valid probe read
// restores measured mode.
type PowerReader struct {
	probe  PowerProbe
	logger *slog.Logger
	rng    *rand.Rand

	invalidCount int
	degraded     bool

	simVoltage float64
	sample     PowerSample
}

// NewPowerReader creates a reader over the given probe with a discard
// logger.
func NewPowerReader(probe PowerProbe, options ...func(*PowerReader)) *PowerReader {
	r := PowerReader{
		probe:      probe,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		simVoltage: 11.8,
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Poll attempts one probe read and updates the current sample. It never
// blocks beyond the probe read itself.
func (r *PowerReader) Poll(now time.Time) {
	voltage, current, power, err := r.probe.ReadRegisters()
	if err == nil && validPowerReading(voltage, current, power) {
		if r.degraded {
			r.logger.Info("power sensor recovered, leaving simulated mode")
		}
		r.degraded = false
		r.invalidCount = 0
		r.sample = PowerSample{
			Voltage:  float32(voltage),
			Current:  float32(current),
			Power:    float32(power),
			Measured: true,
			ReadAt:   now,
		}
		return
	}

	if err != nil {
		r.logger.Debug(fmt.Sprintf("error reading power registers: %s", err))
	}

	if !r.degraded {
		r.invalidCount++
		if r.invalidCount >= InvalidSamplesThreshold {
			r.degraded = true
			r.logger.Warn("too many invalid power samples, switching to simulated series",
				slog.Int("count", r.invalidCount))
		}
	}

	if r.degraded {
		r.sample = r.simulate(now)
	}
}

// Sample returns the last power sample. Before the first valid or simulated
// reading it returns a zero sample with Measured=false.
func (r *PowerReader) Sample() PowerSample {
	return r.sample
}

// Degraded reports whether the reader is serving the simulated series.
func (r *PowerReader) Degraded() bool {
	return r.degraded
}

// simulate advances the bounded random walk by up to ±50 mV and derives
// current and power from a nominal load.
func (r *PowerReader) simulate(now time.Time) PowerSample {
	r.simVoltage += (r.rng.Float64() - 0.5) * 0.1
	r.simVoltage = math.Min(math.Max(r.simVoltage, simMinVoltage), simMaxVoltage)

	current := 450 + r.rng.Float64()*100 // mA
	power := r.simVoltage * current / 1000

	return PowerSample{
		Voltage:  float32(r.simVoltage),
		Current:  float32(current),
		Power:    float32(power),
		Measured: false,
		ReadAt:   now,
	}
}

func validPowerReading(voltage, current, power float64) bool {
	if math.IsNaN(voltage) || math.IsNaN(current) || math.IsNaN(power) {
		return false
	}
	if voltage < MinVoltage || voltage > MaxVoltage {
		return false
	}
	if math.Abs(current) > MaxCurrent {
		return false
	}
	if power < 0 || power > MaxPower {
		return false
	}
	return true
}
