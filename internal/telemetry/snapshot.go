package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// MaxPayloadSize is the serialization budget for one snapshot. A snapshot
// that does not fit is rejected, never truncated.
const MaxPayloadSize = 1024

// ErrPayloadTooLarge is returned when a serialized snapshot exceeds
// MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("snapshot exceeds payload budget")

// Physically plausible bounds every numeric field is clamped to before it
// enters a snapshot.
const (
	minVoltage  = 0.0
	maxVoltage  = 50.0
	maxCurrent  = 20000.0
	maxPower    = 1000.0
	minAltitude = -500.0
	maxAltitude = 10000.0
	maxSpeed    = 100.0
	maxSats     = 32
	minRSSI     = -120
	maxRSSI     = 0
)

// Snapshot is one immutable telemetry record. It is rebuilt from scratch
// every dispatch cycle; field names are the stable wire contract shared
// with the ground station.
type Snapshot struct {
	BatteryVoltage   float64 `json:"battery_voltage"`
	BatteryCurrent   float64 `json:"battery_current"`
	BatteryPower     float64 `json:"battery_power"`
	GPSLatitude      float64 `json:"gps_latitude"`
	GPSLongitude     float64 `json:"gps_longitude"`
	Altitude         float64 `json:"altitude"`
	Speed            float64 `json:"speed"`
	Satellites       int     `json:"satellites"`
	Temperature      float64 `json:"temperature"`
	Humidity         float64 `json:"humidity"`
	SignalStrength   int     `json:"signal_strength"`
	Timestamp        int64   `json:"timestamp"`
	ConnectionStatus string  `json:"connection_status"`
	ConnectionType   string  `json:"connection_type"`
	PacketNumber     uint32  `json:"packet_number"`
	RelayState       bool    `json:"relay_state"`
	GPSValid         bool    `json:"gps_valid"`
	PowerSensorReady bool    `json:"power_sensor_ready"`
	VoltageValid     bool    `json:"voltage_valid"`
	GPSCoordsValid   bool    `json:"gps_coords_valid"`
}

// Marshal serializes the snapshot, enforcing the fixed payload budget.
func (s Snapshot) Marshal() ([]byte, error) {
	p, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	if len(p) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(p))
	}
	return p, nil
}

// round2 rounds to two decimal places; NaN collapses to 0 so a corrupt
// float can never poison the wire record.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NextPacketNumber advances the sequence counter with safe wraparound:
// incrementing the maximum value yields 0.
func NextPacketNumber(n uint32) uint32 {
	return n + 1
}
