package link

import (
	"sync/atomic"
	"time"
)

// State is the connectivity state. Exactly one state is active at a time
// and transitions only follow the table implemented by Machine.Advance.
type State uint8

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Driver owns link-layer association. Join begins an association attempt
// and returns immediately; completion is observed by polling Associated.
// Associated and RSSI must be safe to call from any context, including
// interrupt-style driver callbacks updating them concurrently.
type Driver interface {
	Join(name, secret string) error
	Leave()
	Associated() bool
	RSSI() int
}

// Status is the interrupt-safe view of the link layer shared between the
// driver's callbacks and the control loop. Raw fields are never exposed;
// all access goes through these accessors.
type Status struct {
	associated atomic.Bool
	rssi       atomic.Int32
}

func (s *Status) SetAssociated(v bool)  { s.associated.Store(v) }
func (s *Status) Associated() bool      { return s.associated.Load() }
func (s *Status) SetRSSI(dbm int)       { s.rssi.Store(int32(dbm)) }
func (s *Status) RSSI() int             { return int(s.rssi.Load()) }

// SimDriver is a bench link driver that associates a fixed delay after
// Join. It is used when no real link layer is available.
type SimDriver struct {
	status Status
	delay  time.Duration
}

// NewSimDriver creates a driver that reports association delay after Join.
func NewSimDriver(delay time.Duration) *SimDriver {
	d := SimDriver{delay: delay}
	d.status.SetRSSI(-55)
	return &d
}

func (d *SimDriver) Join(name, secret string) error {
	time.AfterFunc(d.delay, func() {
		d.status.SetAssociated(true)
	})
	return nil
}

func (d *SimDriver) Leave() {
	d.status.SetAssociated(false)
}

func (d *SimDriver) Associated() bool { return d.status.Associated() }

func (d *SimDriver) RSSI() int { return d.status.RSSI() }
