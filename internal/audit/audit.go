// Package audit emits the security trail: every gate command and every pass
// redemption is published to the event bus, best effort. A failed audit
// publish is logged and never fails the action it describes.
package audit

import (
	"context"
	"time"

	"github.com/portones-fc/access/internal/domain"
	"github.com/portones-fc/access/pkg/events"
	"github.com/portones-fc/access/pkg/logger"
)

type Recorder interface {
	RecordCommand(ctx context.Context, cmd domain.GateCommand)
	RecordRedemption(ctx context.Context, pass *domain.VisitorPass, gateID string, direction domain.Direction)
	RecordPassIssued(ctx context.Context, pass *domain.VisitorPass, issuedBy string)
	RecordPassRevoked(ctx context.Context, pass *domain.VisitorPass, revokedBy string)
}

type BusRecorder struct {
	publisher events.Publisher
}

var _ Recorder = (*BusRecorder)(nil)

func NewBusRecorder(publisher events.Publisher) *BusRecorder {
	return &BusRecorder{publisher: publisher}
}

func (r *BusRecorder) RecordCommand(ctx context.Context, cmd domain.GateCommand) {
	evt := events.CommandAuditEvent{
		GateID:   cmd.GateID,
		Action:   string(cmd.Action),
		Method:   string(cmd.Method),
		IssuedBy: cmd.IssuedBy,
		At:       cmd.Timestamp,
	}
	if err := r.publisher.Publish(ctx, events.AuditCommand, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish command audit event",
			"error", err, "gate_id", cmd.GateID, "action", cmd.Action)
	}
}

func (r *BusRecorder) RecordRedemption(ctx context.Context, pass *domain.VisitorPass, gateID string, direction domain.Direction) {
	evt := events.RedemptionAuditEvent{
		PassID:     pass.ID,
		ShortCode:  pass.ShortCode,
		HouseID:    pass.HouseID,
		GateID:     gateID,
		Direction:  string(direction),
		UsedVisits: pass.UsedVisits,
		MaxUses:    pass.MaxUses,
		At:         time.Now(),
	}
	if err := r.publisher.Publish(ctx, events.AuditRedemption, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish redemption audit event",
			"error", err, "pass_id", pass.ID, "gate_id", gateID)
	}
}

func (r *BusRecorder) RecordPassIssued(ctx context.Context, pass *domain.VisitorPass, issuedBy string) {
	evt := events.PassIssuedEvent{
		PassID:     pass.ID,
		PolicyType: string(pass.PolicyType),
		HouseID:    pass.HouseID,
		IssuedBy:   issuedBy,
		ExpiresAt:  pass.ExpiresAt,
		At:         time.Now(),
	}
	if err := r.publisher.Publish(ctx, events.PassIssued, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish pass issued event",
			"error", err, "pass_id", pass.ID)
	}
}

func (r *BusRecorder) RecordPassRevoked(ctx context.Context, pass *domain.VisitorPass, revokedBy string) {
	evt := events.PassRevokedEvent{
		PassID:    pass.ID,
		HouseID:   pass.HouseID,
		RevokedBy: revokedBy,
		At:        time.Now(),
	}
	if err := r.publisher.Publish(ctx, events.PassRevoked, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish pass revoked event",
			"error", err, "pass_id", pass.ID)
	}
}

// Noop is a Recorder that does nothing (used when NATS is not configured).
type Noop struct{}

var _ Recorder = Noop{}

func (Noop) RecordCommand(ctx context.Context, cmd domain.GateCommand) {}
func (Noop) RecordRedemption(ctx context.Context, pass *domain.VisitorPass, gateID string, direction domain.Direction) {
}
func (Noop) RecordPassIssued(ctx context.Context, pass *domain.VisitorPass, issuedBy string)   {}
func (Noop) RecordPassRevoked(ctx context.Context, pass *domain.VisitorPass, revokedBy string) {}
