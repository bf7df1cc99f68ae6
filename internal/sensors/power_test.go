package sensors

import (
	"errors"
	"math"
	"testing"
	"time"
)

type fakeProbe struct {
	voltage, current, power float64
	err                     error
}

func (p *fakeProbe) ReadRegisters() (float64, float64, float64, error) {
	if p.err != nil {
		return 0, 0, 0, p.err
	}
	return p.voltage, p.current, p.power, nil
}

func TestPowerReaderValidSample(t *testing.T) {
	probe := &fakeProbe{voltage: 11.83, current: 512, power: 6.06}
	r := NewPowerReader(probe)

	now := time.Now()
	r.Poll(now)

	s := r.Sample()
	if !s.Measured {
		t.Fatal("sample must be tagged measured")
	}
	if s.Voltage != 11.83 || s.Current != 512 || s.Power != 6.06 {
		t.Errorf("sample = %+v", s)
	}
	if r.Degraded() {
		t.Error("reader must not be degraded after a valid read")
	}
}

func TestPowerReaderDegradesAfterThreshold(t *testing.T) {
	probe := &fakeProbe{err: errors.New("bus error")}
	r := NewPowerReader(probe, WithSimSeed(1))

	now := time.Now()
	for i := 0; i < InvalidSamplesThreshold-1; i++ {
		r.Poll(now)
		if r.Degraded() {
			t.Fatalf("degraded after %d invalid samples, want %d", i+1, InvalidSamplesThreshold)
		}
		if r.Sample().Measured {
			t.Fatal("no sample should be tagged measured")
		}
	}

	r.Poll(now)
	if !r.Degraded() {
		t.Fatal("reader must degrade at the threshold")
	}

	s := r.Sample()
	if s.Measured {
		t.Error("simulated sample must not be tagged measured")
	}
	if s.Voltage < simMinVoltage || s.Voltage > simMaxVoltage {
		t.Errorf("simulated voltage %f outside [%f, %f]", s.Voltage, simMinVoltage, simMaxVoltage)
	}
}

func TestPowerReaderRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name                    string
		voltage, current, power float64
	}{
		{"negative voltage", -0.1, 100, 1},
		{"voltage over limit", MaxVoltage + 1, 100, 1},
		{"current over limit", 12, MaxCurrent + 1, 1},
		{"negative power", 12, 100, -1},
		{"NaN voltage", math.NaN(), 100, 1},
		{"NaN current", 12, math.NaN(), 1},
		{"NaN power", 12, 100, math.NaN()},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			probe := &fakeProbe{voltage: test.voltage, current: test.current, power: test.power}
			r := NewPowerReader(probe)

			r.Poll(time.Now())
			if r.Sample().Measured {
				t.Error("out-of-range reading must not produce a measured sample")
			}
		})
	}
}

func TestPowerReaderRecovers(t *testing.T) {
	probe := &fakeProbe{err: errors.New("bus error")}
	r := NewPowerReader(probe, WithSimSeed(1))

	now := time.Now()
	for i := 0; i < InvalidSamplesThreshold; i++ {
		r.Poll(now)
	}
	if !r.Degraded() {
		t.Fatal("reader must be degraded")
	}

	probe.err = nil
	probe.voltage, probe.current, probe.power = 12.1, 480, 5.8

	r.Poll(now)
	if r.Degraded() {
		t.Fatal("a single valid read must restore measured mode")
	}
	if s := r.Sample(); !s.Measured || s.Voltage != 12.1 {
		t.Errorf("sample = %+v, want measured 12.1 V", s)
	}
}
