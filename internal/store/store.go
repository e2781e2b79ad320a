// Package store defines the persistence boundary for gates, residents and
// visitor passes. Implementations live in subpackages; lookups return
// (nil, nil) for missing rows so callers decide which not-found kind applies.
package store

import (
	"context"

	"github.com/portones-fc/access/internal/domain"
)

type GateStore interface {
	GetGate(ctx context.Context, id string) (*domain.Gate, error)
	ListGatesByColonia(ctx context.Context, coloniaID string) ([]domain.Gate, error)
}

type ResidentStore interface {
	GetResident(ctx context.Context, id string) (*domain.Resident, error)
}

// PassStore persists visitor passes. CreatePass and ConsumePass carry the two
// critical sections of the engine and must be atomic under concurrency:
//
//   - CreatePass enforces the active-pass cap for (house, policy) when
//     houseCap is non-nil, returning domain.ErrQuotaExceeded at the cap, and
//     returns domain.ErrShortCodeTaken when the short code is already in use.
//   - ConsumePass increments used_visits and flips is_visitor_inside only
//     while the pass is still active with budget left; a lost race returns
//     domain.ErrAlreadyConsumed.
type PassStore interface {
	CreatePass(ctx context.Context, pass *domain.VisitorPass, houseCap *int) error
	GetPassByID(ctx context.Context, id string) (*domain.VisitorPass, error)
	GetPassByShortCode(ctx context.Context, code string) (*domain.VisitorPass, error)
	ListPassesByHouse(ctx context.Context, houseID string) ([]domain.VisitorPass, error)
	ConsumePass(ctx context.Context, id string) (*domain.VisitorPass, error)
	RevokePass(ctx context.Context, id, houseID string) (*domain.VisitorPass, error)
}
