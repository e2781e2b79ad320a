// Package pass issues and redeems short-lived visitor credentials. A pass is
// identified by a human-typeable short code; each redemption consumes one use
// and flips the visitor's inside/outside state, so a full visit costs two
// uses (entry plus exit).
package pass

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/portones-fc/access/internal/audit"
	"github.com/portones-fc/access/internal/domain"
	"github.com/portones-fc/access/internal/store"
	"github.com/portones-fc/access/internal/utils"
	"github.com/portones-fc/access/pkg/logger"
)

// maxCodeAttempts bounds short code regeneration when an issued code collides
// with a live one.
const maxCodeAttempts = 3

// GateOpener is the slice of the gate service redemption needs: validate the
// gate before a use is consumed, open it after.
type GateOpener interface {
	GateForRedemption(ctx context.Context, gateID string) (*domain.Gate, error)
	OpenForPass(ctx context.Context, gateID, passID string) error
}

type IssueRequest struct {
	PolicyType  domain.PolicyType
	HouseID     string
	IssuedBy    string
	VisitorName string
	IDPhotoURL  string
}

// Redemption is the outcome of a successful redeem: the consumed pass, the
// direction of travel, and the gate that was commanded open.
type Redemption struct {
	Pass      *domain.VisitorPass
	Direction domain.Direction
	Gate      *domain.Gate
}

type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*domain.VisitorPass, error)
	Redeem(ctx context.Context, shortCode, gateID string) (*Redemption, error)
	Revoke(ctx context.Context, passID, houseID, revokedBy string) (*domain.PassView, error)
	List(ctx context.Context, houseID string) ([]domain.PassView, error)
}

type service struct {
	passes   store.PassStore
	gates    GateOpener
	catalog  *Catalog
	recorder audit.Recorder
}

func NewService(passes store.PassStore, gates GateOpener, catalog *Catalog, recorder audit.Recorder) Service {
	return &service{
		passes:   passes,
		gates:    gates,
		catalog:  catalog,
		recorder: recorder,
	}
}

func (s *service) Issue(ctx context.Context, req IssueRequest) (*domain.VisitorPass, error) {
	policy, err := s.catalog.Lookup(req.PolicyType)
	if err != nil {
		return nil, err
	}

	name := utils.NormalizeString(req.VisitorName)
	if policy.RequiresName && name == "" {
		return nil, domain.ErrMissingName
	}
	if policy.RequiresID && req.IDPhotoURL == "" {
		return nil, domain.ErrMissingID
	}

	now := time.Now()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := NewShortCode()
		if err != nil {
			return nil, err
		}

		pass := &domain.VisitorPass{
			ID:          uuid.New().String(),
			ShortCode:   code,
			PolicyType:  policy.Type,
			HouseID:     req.HouseID,
			VisitorName: name,
			IDPhotoURL:  req.IDPhotoURL,
			CreatedAt:   now,
			ExpiresAt:   now.Add(policy.Duration),
			MaxUses:     policy.MaxUses(),
		}

		err = s.passes.CreatePass(ctx, pass, policy.MaxPassesPerHouse)
		switch {
		case errors.Is(err, domain.ErrShortCodeTaken):
			continue
		case errors.Is(err, domain.ErrQuotaExceeded):
			return nil, err
		case err != nil:
			return nil, fmt.Errorf("failed to create pass: %w", err)
		}

		s.recorder.RecordPassIssued(ctx, pass, req.IssuedBy)

		logger.InfoContext(ctx, "Visitor pass issued",
			"pass_id", pass.ID, "policy_type", pass.PolicyType, "house_id", pass.HouseID)
		return pass, nil
	}

	return nil, fmt.Errorf("failed to allocate a unique short code after %d attempts", maxCodeAttempts)
}

// Redeem consumes one use of the pass behind shortCode and opens the gate.
// The gate is validated before the use is consumed so a bad gate id never
// burns a use; once the use is consumed it stays consumed even if the open
// command cannot be delivered.
func (s *service) Redeem(ctx context.Context, shortCode, gateID string) (*Redemption, error) {
	code := utils.NormalizeShortCode(shortCode)
	if code == "" {
		return nil, domain.ErrPassNotFound
	}

	gate, err := s.gates.GateForRedemption(ctx, gateID)
	if err != nil {
		return nil, err
	}

	pass, err := s.passes.GetPassByShortCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get pass: %w", err)
	}
	if pass == nil {
		return nil, domain.ErrPassNotFound
	}

	switch pass.EffectiveStatus(time.Now()) {
	case domain.PassRevoked:
		return nil, domain.ErrPassRevoked
	case domain.PassExpired:
		return nil, domain.ErrPassExpired
	case domain.PassCompleted:
		return nil, domain.ErrPassCompleted
	}

	consumed, err := s.passes.ConsumePass(ctx, pass.ID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyConsumed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to consume pass: %w", err)
	}
	if consumed == nil {
		// The pass was live a moment ago; losing it here means another
		// redemption won the race.
		return nil, domain.ErrAlreadyConsumed
	}

	direction := domain.DirectionExit
	if consumed.IsVisitorInside {
		direction = domain.DirectionEntry
	}

	s.recorder.RecordRedemption(ctx, consumed, gate.ID, direction)

	logger.InfoContext(ctx, "Visitor pass redeemed",
		"pass_id", consumed.ID, "gate_id", gate.ID, "direction", direction,
		"used_visits", consumed.UsedVisits, "max_uses", consumed.MaxUses)

	// The use stays consumed even if the command cannot be delivered.
	if err := s.gates.OpenForPass(ctx, gate.ID, consumed.ID); err != nil {
		return nil, err
	}

	return &Redemption{Pass: consumed, Direction: direction, Gate: gate}, nil
}

// Revoke marks a pass revoked. Only the issuing house may revoke; revoking an
// already revoked pass is a no-op that reports the current state.
func (s *service) Revoke(ctx context.Context, passID, houseID, revokedBy string) (*domain.PassView, error) {
	pass, err := s.passes.RevokePass(ctx, passID, houseID)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke pass: %w", err)
	}
	if pass == nil {
		return nil, domain.ErrPassNotFound
	}

	s.recorder.RecordPassRevoked(ctx, pass, revokedBy)

	logger.InfoContext(ctx, "Visitor pass revoked", "pass_id", pass.ID, "house_id", pass.HouseID)
	return s.view(pass), nil
}

func (s *service) List(ctx context.Context, houseID string) ([]domain.PassView, error) {
	passes, err := s.passes.ListPassesByHouse(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list passes: %w", err)
	}

	now := time.Now()
	views := make([]domain.PassView, 0, len(passes))
	for _, p := range passes {
		views = append(views, domain.PassView{VisitorPass: p, EffectiveStatus: p.EffectiveStatus(now)})
	}
	return views, nil
}

func (s *service) view(p *domain.VisitorPass) *domain.PassView {
	return &domain.PassView{VisitorPass: *p, EffectiveStatus: p.EffectiveStatus(time.Now())}
}
