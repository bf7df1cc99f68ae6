package command

import (
	"os"
)

// MemRelay is an in-memory actuator for bench use and tests.
type MemRelay struct {
	on bool
}

func (r *MemRelay) Set(on bool) { r.on = on }
func (r *MemRelay) State() bool { return r.on }

// PinRelay drives a GPIO-style value file ("1"/"0"). Write failures leave
// the reported state at the last value actually written.
type PinRelay struct {
	path string
	on   bool
}

// NewPinRelay creates an actuator over the given value file.
func NewPinRelay(path string) *PinRelay {
	return &PinRelay{path: path}
}

func (r *PinRelay) Set(on bool) {
	v := []byte("0")
	if on {
		v = []byte("1")
	}
	if err := os.WriteFile(r.path, v, 0o644); err != nil {
		return
	}
	r.on = on
}

func (r *PinRelay) State() bool { return r.on }
