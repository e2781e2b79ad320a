// Package bridge connects the API to the physical gate controllers over NATS.
// Commands go out on one subject, controller status reports come back on
// another. The controllers are fire-and-forget devices: nothing here waits for
// a reply, confirmation arrives (or doesn't) as a later status report.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/portones-fc/access/internal/domain"
	"github.com/portones-fc/access/pkg/logger"
)

// StatusHandler receives decoded door state reports.
type StatusHandler func(evt domain.GateStatusEvent)

type Bridge struct {
	conn           *nats.Conn
	commandSubject string
	statusSubject  string
	sub            *nats.Subscription
}

// New connects to NATS with automatic reconnection. Extra nats.Option values
// can be appended and override the defaults.
func New(url, commandSubject, statusSubject string, opts ...nats.Option) (*Bridge, error) {
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Gate bridge disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Gate bridge reconnected to NATS", "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &Bridge{
		conn:           nc,
		commandSubject: commandSubject,
		statusSubject:  statusSubject,
	}, nil
}

// Start subscribes to the status subject and relays decoded reports to the
// handler. Malformed or non-door payloads are dropped.
func (b *Bridge) Start(handler StatusHandler) error {
	sub, err := b.conn.Subscribe(b.statusSubject, func(msg *nats.Msg) {
		evt, ok := decodeStatus(msg.Data)
		if !ok {
			return
		}
		handler(evt)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.statusSubject, err)
	}
	// Flush ensures the subscription is registered on the server before
	// returning, so that reports published on other connections are routed.
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flushing subscription: %w", err)
	}
	b.sub = sub
	return nil
}

// PublishCommand sends a gate command to the controllers. When the connection
// is down the command is rejected immediately rather than buffered: a gate
// command queued for later delivery is worse than a visible failure.
func (b *Bridge) PublishCommand(ctx context.Context, cmd domain.GateCommand) error {
	if !b.conn.IsConnected() {
		return domain.ErrTransportUnavailable
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshaling command: %w", err)
	}
	logger.DebugContext(ctx, "Publishing gate command",
		"gate_id", cmd.GateID,
		"action", cmd.Action,
		"method", cmd.Method,
	)
	if err := b.conn.Publish(b.commandSubject, data); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransportUnavailable, err)
	}
	return nil
}

func (b *Bridge) Connected() bool {
	return b.conn.IsConnected()
}

func (b *Bridge) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.conn.Close()
	return nil
}

// statusReport is the controller wire format. Firmware builds vary: some send
// camelCase keys, some snake_case, and presence announcements ("online")
// share the subject with door state.
type statusReport struct {
	GateID    string `json:"gateId"`
	GateIDAlt string `json:"gate_id"`
	Status    string `json:"status"`
}

// decodeStatus parses a raw status payload. Reports are stamped at receipt;
// the controllers do not carry reliable clocks.
func decodeStatus(data []byte) (domain.GateStatusEvent, bool) {
	var report statusReport
	if err := json.Unmarshal(data, &report); err != nil {
		logger.Warn("Dropping undecodable status report", "error", err, "payload", string(data))
		return domain.GateStatusEvent{}, false
	}

	gateID := report.GateID
	if gateID == "" {
		gateID = report.GateIDAlt
	}
	if gateID == "" {
		logger.Warn("Dropping status report without gate id", "payload", string(data))
		return domain.GateStatusEvent{}, false
	}

	status, ok := domain.ParseGateStatus(report.Status)
	if !ok {
		logger.Debug("Dropping non-door status report", "gate_id", gateID, "status", report.Status)
		return domain.GateStatusEvent{}, false
	}

	return domain.GateStatusEvent{
		GateID:    gateID,
		Status:    status,
		Timestamp: time.Now(),
	}, true
}
