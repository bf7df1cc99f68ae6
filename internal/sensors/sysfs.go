package sensors

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SysfsPowerProbe reads voltage and current from power-supply class files
// (voltage_now/current_now in microvolts/microamps) and derives power. A
// missing or unreadable file surfaces as a read error, which the reader
// treats like any other invalid sample.
type SysfsPowerProbe struct {
	dir string
}

// NewSysfsPowerProbe creates a probe over the given power-supply directory.
func NewSysfsPowerProbe(dir string) *SysfsPowerProbe {
	return &SysfsPowerProbe{dir: dir}
}

func (p *SysfsPowerProbe) ReadRegisters() (voltage, current, power float64, err error) {
	uv, err := readIntFile(filepath.Join(p.dir, "voltage_now"))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("reading voltage: %w", err)
	}
	ua, err := readIntFile(filepath.Join(p.dir, "current_now"))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("reading current: %w", err)
	}

	voltage = float64(uv) / 1e6
	current = float64(ua) / 1e3 // mA
	power = voltage * current / 1000
	return voltage, current, power, nil
}

func readIntFile(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing '%s': %w", path, err)
	}
	return v, nil
}
