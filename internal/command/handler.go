package command

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Actuator drives the physical relay. Set is synchronous and deterministic;
// the last command wins.
type Actuator interface {
	Set(on bool)
	State() bool
}

// Sender transmits an acknowledgement over the currently preferred channel,
// falling back the same way telemetry does.
type Sender interface {
	Send(payload []byte) error
}

// Ack is the acknowledgement emitted for every applied relay/emergency
// command.
type Ack struct {
	Command    string `json:"command"`
	Action     string `json:"action"`
	Status     string `json:"status"`
	DeviceID   string `json:"device_id"`
	Timestamp  int64  `json:"timestamp"`
	RelayState bool   `json:"relay_state"`
}

// WithHandlerLogger sets the logger for the handler.
func WithHandlerLogger(logger *slog.Logger) func(*Handler) {
	return func(h *Handler) {
		h.logger = logger.With(slog.String("component", "command"))
	}
}

// Handler decodes inbound operator messages and drives the actuator.
// Unrecognized or malformed messages are logged and dropped without any
// side effect.
type Handler struct {
	actuator Actuator
	sender   Sender
	deviceID string
	reboot   func()
	logger   *slog.Logger
}

// NewHandler creates a handler. reboot is invoked for an accepted reboot
// command; it must schedule the restart rather than block.
func NewHandler(actuator Actuator, sender Sender, deviceID string, reboot func(), options ...func(*Handler)) *Handler {
	h := Handler{
		actuator: actuator,
		sender:   sender,
		deviceID: deviceID,
		reboot:   reboot,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&h)
	}

	return &h
}

// Handle processes one raw inbound payload. It never returns an error to
// the transport: a command is either fully applied and acknowledged, or
// dropped.
func (h *Handler) Handle(raw []byte, now time.Time) {
	msg, err := Decode(raw)
	if err != nil {
		h.logger.Warn(fmt.Sprintf("dropping command: %s", err))
		return
	}

	switch msg.Kind {
	case KindRelay, KindEmergency:
		on, err := RelayTarget(msg.Action)
		if err != nil {
			h.logger.Warn(fmt.Sprintf("dropping %s command: %s", msg.Kind, err))
			return
		}
		h.actuator.Set(on)
		h.logger.Info("relay command applied",
			slog.String("command", msg.Kind.String()),
			slog.String("action", msg.Action),
			slog.Bool("state", h.actuator.State()))
		h.acknowledge(msg, now)

	case KindReboot:
		h.logger.Info("reboot command accepted")
		h.reboot()
	}
}

func (h *Handler) acknowledge(msg Message, now time.Time) {
	ack := Ack{
		Command:    msg.Kind.String(),
		Action:     msg.Action,
		Status:     "executed",
		DeviceID:   h.deviceID,
		Timestamp:  now.Unix(),
		RelayState: h.actuator.State(),
	}

	payload, err := json.Marshal(ack)
	if err != nil {
		h.logger.Error(fmt.Sprintf("marshaling acknowledgement: %s", err))
		return
	}
	if err = h.sender.Send(payload); err != nil {
		h.logger.Warn(fmt.Sprintf("sending acknowledgement: %s", err))
	}
}
