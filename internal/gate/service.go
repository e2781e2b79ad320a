package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/portones-fc/access/internal/audit"
	"github.com/portones-fc/access/internal/domain"
	"github.com/portones-fc/access/internal/store"
	"github.com/portones-fc/access/pkg/logger"
)

// CommandPublisher carries commands to the physical controllers.
type CommandPublisher interface {
	PublishCommand(ctx context.Context, cmd domain.GateCommand) error
}

type Service interface {
	ListGates(ctx context.Context, coloniaID string) ([]domain.GateView, error)
	OpenGate(ctx context.Context, gateID, residentID string, method domain.CommandMethod) error
	CloseGate(ctx context.Context, gateID, residentID string) error
	OpenForPass(ctx context.Context, gateID, passID string) error
	GateForRedemption(ctx context.Context, gateID string) (*domain.Gate, error)
	HandleStatusReport(evt domain.GateStatusEvent)
	WatchStatus() (<-chan domain.GateStatusChange, func())
}

type service struct {
	gates          store.GateStore
	residents      store.ResidentStore
	states         *StateStore
	transport      CommandPublisher
	recorder       audit.Recorder
	confirmTimeout time.Duration
}

func NewService(
	gates store.GateStore,
	residents store.ResidentStore,
	states *StateStore,
	transport CommandPublisher,
	recorder audit.Recorder,
	confirmTimeout time.Duration,
) Service {
	return &service{
		gates:          gates,
		residents:      residents,
		states:         states,
		transport:      transport,
		recorder:       recorder,
		confirmTimeout: confirmTimeout,
	}
}

func (s *service) ListGates(ctx context.Context, coloniaID string) ([]domain.GateView, error) {
	gates, err := s.gates.ListGatesByColonia(ctx, coloniaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gates: %w", err)
	}

	views := make([]domain.GateView, 0, len(gates))
	for _, g := range gates {
		views = append(views, domain.GateView{Gate: g, Status: s.states.Status(g.ID)})
	}
	return views, nil
}

func (s *service) OpenGate(ctx context.Context, gateID, residentID string, method domain.CommandMethod) error {
	gate, err := s.validGate(ctx, gateID)
	if err != nil {
		return err
	}
	if err := s.authorizeResident(ctx, residentID, gate); err != nil {
		return err
	}
	return s.dispatch(ctx, gate, domain.ActionOpen, residentID, method)
}

func (s *service) CloseGate(ctx context.Context, gateID, residentID string) error {
	gate, err := s.validGate(ctx, gateID)
	if err != nil {
		return err
	}
	if err := s.authorizeResident(ctx, residentID, gate); err != nil {
		return err
	}
	return s.dispatch(ctx, gate, domain.ActionClose, residentID, domain.MethodApp)
}

// OpenForPass opens a gate on behalf of a redeemed visitor pass. The caller
// has already validated the pass; no resident check applies.
func (s *service) OpenForPass(ctx context.Context, gateID, passID string) error {
	gate, err := s.validGate(ctx, gateID)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, gate, domain.ActionOpen, passID, domain.MethodQR)
}

// GateForRedemption checks that a gate can accept a redemption before any
// pass use is consumed.
func (s *service) GateForRedemption(ctx context.Context, gateID string) (*domain.Gate, error) {
	return s.validGate(ctx, gateID)
}

// HandleStatusReport records a controller report in the state store. Reports
// always win over optimistic state; redelivery is harmless.
func (s *service) HandleStatusReport(evt domain.GateStatusEvent) {
	s.states.Apply(evt)
	logger.Debug("Gate status report applied", "gate_id", evt.GateID, "status", evt.Status)
}

func (s *service) WatchStatus() (<-chan domain.GateStatusChange, func()) {
	return s.states.Subscribe()
}

func (s *service) validGate(ctx context.Context, gateID string) (*domain.Gate, error) {
	gate, err := s.gates.GetGate(ctx, gateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get gate: %w", err)
	}
	if gate == nil {
		return nil, domain.ErrGateNotFound
	}
	if !gate.Enabled {
		return nil, domain.ErrGateDisabled
	}
	return gate, nil
}

func (s *service) authorizeResident(ctx context.Context, residentID string, gate *domain.Gate) error {
	resident, err := s.residents.GetResident(ctx, residentID)
	if err != nil {
		return fmt.Errorf("failed to get resident: %w", err)
	}
	if resident == nil || resident.AccessRevoked {
		return domain.ErrUnauthorized
	}
	if resident.ColoniaID != gate.ColoniaID {
		return domain.ErrUnauthorized
	}
	return nil
}

// dispatch performs the optimistic command sequence: flip the gate into its
// transitional status, put the command on the wire, and roll the status back
// if the wire rejects it. The confirmation timer armed by BeginTransition
// degrades the gate to UNKNOWN when no controller report follows.
func (s *service) dispatch(ctx context.Context, gate *domain.Gate, action domain.CommandAction, issuedBy string, method domain.CommandMethod) error {
	transitional := domain.GateOpening
	if action == domain.ActionClose {
		transitional = domain.GateClosing
	}
	prev := s.states.BeginTransition(gate.ID, transitional, s.confirmTimeout)

	cmd := domain.GateCommand{
		GateID:    gate.ID,
		Action:    action,
		IssuedBy:  issuedBy,
		Method:    method,
		Timestamp: time.Now(),
	}
	if err := s.transport.PublishCommand(ctx, cmd); err != nil {
		s.states.Revert(gate.ID, prev)
		logger.ErrorContext(ctx, "Gate command failed to publish",
			"error", err, "gate_id", gate.ID, "action", action)
		return err
	}

	s.recorder.RecordCommand(ctx, cmd)

	logger.InfoContext(ctx, "Gate command dispatched",
		"gate_id", gate.ID, "action", action, "method", method, "issued_by", issuedBy)
	return nil
}
