package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/portones-fc/access/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event types and subjects
const (
	// Audit events
	AuditCommand    = "portones.audit.command"
	AuditRedemption = "portones.audit.redemption"

	// Pass lifecycle events
	PassIssued  = "portones.pass.issued"
	PassRevoked = "portones.pass.revoked"
)

// Event payloads
type CommandAuditEvent struct {
	GateID   string    `json:"gate_id"`
	Action   string    `json:"action"`
	Method   string    `json:"method"`
	IssuedBy string    `json:"issued_by"`
	At       time.Time `json:"at"`
}

type RedemptionAuditEvent struct {
	PassID     string    `json:"pass_id"`
	ShortCode  string    `json:"short_code"`
	HouseID    string    `json:"house_id"`
	GateID     string    `json:"gate_id"`
	Direction  string    `json:"direction"`
	UsedVisits int       `json:"used_visits"`
	MaxUses    int       `json:"max_uses"`
	At         time.Time `json:"at"`
}

type PassIssuedEvent struct {
	PassID     string    `json:"pass_id"`
	PolicyType string    `json:"policy_type"`
	HouseID    string    `json:"house_id"`
	IssuedBy   string    `json:"issued_by"`
	ExpiresAt  time.Time `json:"expires_at"`
	At         time.Time `json:"at"`
}

type PassRevokedEvent struct {
	PassID    string    `json:"pass_id"`
	HouseID   string    `json:"house_id"`
	RevokedBy string    `json:"revoked_by"`
	At        time.Time `json:"at"`
}
