package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() NetworkConfig {
	return NetworkConfig{
		NetworkName:   "Net1",
		NetworkSecret: "abcdefgh",
		GroundHost:    "10.0.0.5",
		GroundPort:    3003,
		DeviceID:      "uav-test",
		Initialized:   true,
	}
}

func TestNetworkConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*NetworkConfig)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *NetworkConfig) {},
		},
		{
			name:    "empty network name",
			mutate:  func(c *NetworkConfig) { c.NetworkName = "" },
			wantErr: true,
		},
		{
			name:   "network name at limit",
			mutate: func(c *NetworkConfig) { c.NetworkName = strings.Repeat("a", MaxNetworkNameLen) },
		},
		{
			name:    "network name over limit",
			mutate:  func(c *NetworkConfig) { c.NetworkName = strings.Repeat("a", MaxNetworkNameLen+1) },
			wantErr: true,
		},
		{
			name:    "secret too short",
			mutate:  func(c *NetworkConfig) { c.NetworkSecret = "1234567" },
			wantErr: true,
		},
		{
			name:   "secret at lower limit",
			mutate: func(c *NetworkConfig) { c.NetworkSecret = "12345678" },
		},
		{
			name:   "secret at upper limit",
			mutate: func(c *NetworkConfig) { c.NetworkSecret = strings.Repeat("s", MaxSecretLen) },
		},
		{
			name:    "secret over limit",
			mutate:  func(c *NetworkConfig) { c.NetworkSecret = strings.Repeat("s", MaxSecretLen+1) },
			wantErr: true,
		},
		{
			name:    "empty host",
			mutate:  func(c *NetworkConfig) { c.GroundHost = "" },
			wantErr: true,
		},
		{
			name:    "host over limit",
			mutate:  func(c *NetworkConfig) { c.GroundHost = strings.Repeat("h", MaxHostLen+1) },
			wantErr: true,
		},
		{
			name:   "hostname",
			mutate: func(c *NetworkConfig) { c.GroundHost = "ground-station.local" },
		},
		{
			name:    "malformed numeric host",
			mutate:  func(c *NetworkConfig) { c.GroundHost = "999.1.2.3.4" },
			wantErr: true,
		},
		{
			name:    "host with spaces",
			mutate:  func(c *NetworkConfig) { c.GroundHost = "bad host" },
			wantErr: true,
		},
		{
			name:    "zero port",
			mutate:  func(c *NetworkConfig) { c.GroundPort = 0 },
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := validConfig()
			test.mutate(&cfg)

			err := cfg.Validate()
			if test.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Initialized {
		t.Error("DefaultConfig() must not be marked initialized")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig() must validate, got %v", err)
	}
	if !strings.HasPrefix(cfg.DeviceID, "uav-") {
		t.Errorf("DeviceID = %q, want uav- prefix", cfg.DeviceID)
	}

	other := DefaultConfig()
	if cfg.DeviceID == other.DeviceID {
		t.Error("device IDs must be unique per generation")
	}
}
