package telemetry

import (
	"math"
	"time"
)

// MaxErrorLen bounds the stored last-error description. Only the most
// recent error is retained.
const MaxErrorLen = 128

// Stats holds the saturating transmission counters. Counters never
// overflow: they stop at their maximum value. They are monotonic within a
// boot epoch and reset only by restarting the device.
type Stats struct {
	sent          uint32
	failed        uint32
	probeFailures uint8

	lastError   string
	lastErrorAt time.Time
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{}
}

// RecordSendSuccess counts one delivered telemetry snapshot.
func (s *Stats) RecordSendSuccess() {
	if s.sent < math.MaxUint32 {
		s.sent++
	}
}

// RecordSendFailure counts one failed snapshot and retains desc as the most
// recent error, truncated to MaxErrorLen.
func (s *Stats) RecordSendFailure(desc string, now time.Time) {
	if s.failed < math.MaxUint32 {
		s.failed++
	}
	s.setError(desc, now)
}

// RecordProbe updates the consecutive link-test failure counter. A
// successful probe resets it.
func (s *Stats) RecordProbe(ok bool, desc string, now time.Time) {
	if ok {
		s.probeFailures = 0
		return
	}
	if s.probeFailures < math.MaxUint8 {
		s.probeFailures++
	}
	s.setError(desc, now)
}

// Sent returns the number of delivered snapshots.
func (s *Stats) Sent() uint32 { return s.sent }

// Failed returns the number of failed snapshot sends.
func (s *Stats) Failed() uint32 { return s.failed }

// ProbeFailures returns the consecutive link-test failure count.
func (s *Stats) ProbeFailures() uint8 { return s.probeFailures }

// LastError returns the most recent error description and its timestamp.
// The description is empty when no error has been recorded.
func (s *Stats) LastError() (string, time.Time) {
	return s.lastError, s.lastErrorAt
}

func (s *Stats) setError(desc string, now time.Time) {
	if len(desc) > MaxErrorLen {
		desc = desc[:MaxErrorLen]
	}
	s.lastError = desc
	s.lastErrorAt = now
}
