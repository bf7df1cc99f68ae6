package telemetry

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestSnapshotWireFieldNames(t *testing.T) {
	payload, err := Snapshot{ConnectionStatus: "connected", ConnectionType: "http"}.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err = json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := []string{
		"battery_voltage", "battery_current", "battery_power",
		"gps_latitude", "gps_longitude", "altitude", "speed", "satellites",
		"temperature", "humidity", "signal_strength", "timestamp",
		"connection_status", "connection_type", "packet_number",
		"relay_state", "gps_valid", "power_sensor_ready", "voltage_valid",
		"gps_coords_valid",
	}
	for _, field := range want {
		if _, ok := decoded[field]; !ok {
			t.Errorf("field %q missing from wire record", field)
		}
	}
	if len(decoded) != len(want) {
		t.Errorf("wire record has %d fields, want %d", len(decoded), len(want))
	}
}

func TestSnapshotMarshalBudget(t *testing.T) {
	s := Snapshot{ConnectionStatus: strings.Repeat("x", MaxPayloadSize)}
	if _, err := s.Marshal(); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("Marshal() error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.0}, // binary representation of 1.005 is just below
		{1.006, 1.01},
		{-2.345, -2.35},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	}

	for _, test := range tests {
		if got := round2(test.in); got != test.want {
			t.Errorf("round2(%v) = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := clamp(60, 0, 50); got != 50 {
		t.Errorf("clamp(60, 0, 50) = %v, want 50", got)
	}
	if got := clamp(-1, 0, 50); got != 0 {
		t.Errorf("clamp(-1, 0, 50) = %v, want 0", got)
	}
	if got := clamp(math.NaN(), 0, 50); got != 0 {
		t.Errorf("clamp(NaN, 0, 50) = %v, want 0", got)
	}
}

func TestNextPacketNumber(t *testing.T) {
	if got := NextPacketNumber(41); got != 42 {
		t.Errorf("NextPacketNumber(41) = %d, want 42", got)
	}
	if got := NextPacketNumber(math.MaxUint32); got != 0 {
		t.Errorf("NextPacketNumber(MaxUint32) = %d, want 0", got)
	}
}
