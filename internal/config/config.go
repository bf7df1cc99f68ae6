package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxNetworkNameLen is the maximum accepted network name length.
	MaxNetworkNameLen = 32

	// MinSecretLen and MaxSecretLen bound the network secret length.
	MinSecretLen = 8
	MaxSecretLen = 63

	// MaxHostLen is the maximum accepted ground host length.
	MaxHostLen = 64
)

var (
	// ErrNotFound is returned by Load when no initialized configuration
	// record exists in the store.
	ErrNotFound = errors.New("configuration not found")

	// ErrInvalidConfig is returned when a configuration record fails
	// validation, on load or before save.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// NetworkConfig holds the network credentials and ground station address.
// A zero value is not usable; start from DefaultConfig or a successful Load.
type NetworkConfig struct {
	NetworkName   string
	NetworkSecret string
	GroundHost    string
	GroundPort    uint16
	DeviceID      string
	Initialized   bool
}

// DefaultConfig returns the built-in first-boot fallback. The device ID is
// generated once and persisted with the first Save.
func DefaultConfig() NetworkConfig {
	return NetworkConfig{
		NetworkName:   "KRTI-GROUND",
		NetworkSecret: "krti-2025",
		GroundHost:    "192.168.4.1",
		GroundPort:    3003,
		DeviceID:      "uav-" + uuid.NewString()[:8],
		Initialized:   false,
	}
}

// Validate checks all field bounds. It returns an error wrapping
// ErrInvalidConfig describing the first violation found.
func (c NetworkConfig) Validate() error {
	if l := len(c.NetworkName); l == 0 || l > MaxNetworkNameLen {
		return fmt.Errorf("%w: network name length %d, want 1..%d", ErrInvalidConfig, l, MaxNetworkNameLen)
	}
	if l := len(c.NetworkSecret); l < MinSecretLen || l > MaxSecretLen {
		return fmt.Errorf("%w: network secret length %d, want %d..%d", ErrInvalidConfig, l, MinSecretLen, MaxSecretLen)
	}
	if l := len(c.GroundHost); l == 0 || l > MaxHostLen {
		return fmt.Errorf("%w: ground host length %d, want 1..%d", ErrInvalidConfig, l, MaxHostLen)
	}
	if err := validateHost(c.GroundHost); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	if c.GroundPort == 0 {
		return fmt.Errorf("%w: ground port must be non-zero", ErrInvalidConfig)
	}
	return nil
}

// validateHost accepts a hostname or a dotted IPv4 address. Anything that
// looks numeric must be a well-formed IPv4 address.
func validateHost(host string) error {
	if strings.Trim(host, "0123456789.") == "" {
		if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
			return fmt.Errorf("malformed IPv4 address '%s'", host)
		}
		return nil
	}
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-', r == '.', r == '_':
		default:
			return fmt.Errorf("invalid character %q in host", r)
		}
	}
	return nil
}
