// Package memory implements the store interfaces with in-process maps. It
// backs tests and the demo mode of cmd/api; production deployments use the
// postgres store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/portones-fc/access/internal/domain"
	"github.com/portones-fc/access/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	gates     map[string]domain.Gate
	residents map[string]domain.Resident
	passes    map[string]*domain.VisitorPass
	codes     map[string]string   // short code -> pass id
	houses    map[string][]string // house id -> pass ids, insertion order
}

var (
	_ store.GateStore     = (*Store)(nil)
	_ store.ResidentStore = (*Store)(nil)
	_ store.PassStore     = (*Store)(nil)
)

func New() *Store {
	return &Store{
		gates:     make(map[string]domain.Gate),
		residents: make(map[string]domain.Resident),
		passes:    make(map[string]*domain.VisitorPass),
		codes:     make(map[string]string),
		houses:    make(map[string][]string),
	}
}

func (s *Store) AddGate(g domain.Gate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates[g.ID] = g
}

func (s *Store) AddResident(r domain.Resident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.residents[r.ID] = r
}

// AddPass inserts without quota or uniqueness checks; tests use it to craft
// passes in arbitrary states.
func (s *Store) AddPass(p domain.VisitorPass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.passes[cp.ID] = &cp
	s.codes[cp.ShortCode] = cp.ID
	s.houses[cp.HouseID] = append(s.houses[cp.HouseID], cp.ID)
}

func (s *Store) GetGate(_ context.Context, id string) (*domain.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gates[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (s *Store) ListGatesByColonia(_ context.Context, coloniaID string) ([]domain.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var gates []domain.Gate
	for _, g := range s.gates {
		if g.ColoniaID == coloniaID {
			gates = append(gates, g)
		}
	}
	sort.Slice(gates, func(i, j int) bool { return gates[i].ID < gates[j].ID })
	return gates, nil
}

func (s *Store) GetResident(_ context.Context, id string) (*domain.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.residents[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) CreatePass(_ context.Context, pass *domain.VisitorPass, houseCap *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.codes[pass.ShortCode]; taken {
		return domain.ErrShortCodeTaken
	}

	if houseCap != nil {
		now := time.Now()
		active := 0
		for _, id := range s.houses[pass.HouseID] {
			p := s.passes[id]
			if p.PolicyType == pass.PolicyType && p.EffectiveStatus(now) == domain.PassActive {
				active++
			}
		}
		if active >= *houseCap {
			return domain.ErrQuotaExceeded
		}
	}

	cp := *pass
	s.passes[cp.ID] = &cp
	s.codes[cp.ShortCode] = cp.ID
	s.houses[cp.HouseID] = append(s.houses[cp.HouseID], cp.ID)
	return nil
}

func (s *Store) GetPassByID(_ context.Context, id string) (*domain.VisitorPass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passes[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetPassByShortCode(_ context.Context, code string) (*domain.VisitorPass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[code]
	if !ok {
		return nil, nil
	}
	cp := *s.passes[id]
	return &cp, nil
}

func (s *Store) ListPassesByHouse(_ context.Context, houseID string) ([]domain.VisitorPass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.houses[houseID]
	passes := make([]domain.VisitorPass, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		passes = append(passes, *s.passes[ids[i]])
	}
	return passes, nil
}

func (s *Store) ConsumePass(_ context.Context, id string) (*domain.VisitorPass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.passes[id]
	if !ok {
		return nil, nil
	}
	// Re-validate inside the critical section; a caller that saw an active
	// pass may have lost the race to another redemption.
	if p.EffectiveStatus(time.Now()) != domain.PassActive {
		return nil, domain.ErrAlreadyConsumed
	}
	p.UsedVisits++
	p.IsVisitorInside = !p.IsVisitorInside
	cp := *p
	return &cp, nil
}

func (s *Store) RevokePass(_ context.Context, id, houseID string) (*domain.VisitorPass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.passes[id]
	if !ok || p.HouseID != houseID {
		return nil, nil
	}
	if p.RevokedAt == nil {
		now := time.Now()
		p.RevokedAt = &now
	}
	cp := *p
	return &cp, nil
}
