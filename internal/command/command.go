package command

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// MaxRawLen caps an inbound payload before any decoding happens.
	MaxRawLen = 512

	// MaxActionLen caps the action string.
	MaxActionLen = 32
)

var (
	// ErrPayloadTooLarge is returned for payloads exceeding MaxRawLen.
	ErrPayloadTooLarge = errors.New("command payload too large")

	// ErrUnknownCommand is returned for commands outside the closed set.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidAction is returned for actions that are too long, contain
	// characters outside [a-z_], or are not recognized for the command.
	ErrInvalidAction = errors.New("invalid action")
)

// Kind is the closed set of operator commands, decoded once at the
// boundary and matched exhaustively after that.
type Kind uint8

const (
	KindRelay Kind = iota
	KindEmergency
	KindReboot
)

func (k Kind) String() string {
	switch k {
	case KindRelay:
		return "relay"
	case KindEmergency:
		return "emergency"
	case KindReboot:
		return "reboot"
	}
	return "unknown"
}

// Message is one decoded, validated operator command.
type Message struct {
	Kind   Kind
	Action string
}

// wireMessage is the inbound JSON shape.
type wireMessage struct {
	Command string `json:"command"`
	Action  string `json:"action"`
}

// Decode validates and decodes a raw inbound payload. It rejects oversized
// payloads before attempting to parse, and never partially applies a
// malformed message.
func Decode(raw []byte) (Message, error) {
	if len(raw) > MaxRawLen {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(raw))
	}

	var wire wireMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Message{}, fmt.Errorf("decoding command: %w", err)
	}

	if err := validateAction(wire.Action); err != nil {
		return Message{}, err
	}

	var kind Kind
	switch wire.Command {
	case "relay":
		kind = KindRelay
	case "emergency":
		kind = KindEmergency
	case "reboot":
		kind = KindReboot
	default:
		return Message{}, fmt.Errorf("%w: '%s'", ErrUnknownCommand, wire.Command)
	}

	return Message{Kind: kind, Action: wire.Action}, nil
}

// RelayTarget maps a relay/emergency action onto the desired actuator
// state. The emergency_* actions are aliases for on/off.
func RelayTarget(action string) (on bool, err error) {
	switch action {
	case "on", "emergency_on":
		return true, nil
	case "off", "emergency_off":
		return false, nil
	}
	return false, fmt.Errorf("%w: '%s'", ErrInvalidAction, action)
}

func validateAction(action string) error {
	if len(action) > MaxActionLen {
		return fmt.Errorf("%w: %d chars", ErrInvalidAction, len(action))
	}
	for _, r := range action {
		if (r < 'a' || r > 'z') && r != '_' {
			return fmt.Errorf("%w: character %q", ErrInvalidAction, r)
		}
	}
	return nil
}
