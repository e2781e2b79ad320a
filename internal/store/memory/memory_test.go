package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/portones-fc/access/internal/domain"
)

func activePass(id, code, house string, maxUses, used int) domain.VisitorPass {
	return domain.VisitorPass{
		ID:         id,
		ShortCode:  code,
		PolicyType: domain.PolicyFriend,
		HouseID:    house,
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(time.Hour),
		MaxUses:    maxUses,
		UsedVisits: used,
	}
}

func TestConsumePass_LastUseRace_OneWinner(t *testing.T) {
	s := New()
	s.AddPass(activePass("p1", "AAAA2222", "casa-1", 2, 1))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ConsumePass(context.Background(), "p1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, consumed int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyConsumed):
			consumed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || consumed != 1 {
		t.Fatalf("got %d successes and %d already-consumed, want 1 and 1", ok, consumed)
	}

	p, _ := s.GetPassByID(context.Background(), "p1")
	if p.UsedVisits != 2 {
		t.Fatalf("used visits = %d, want 2", p.UsedVisits)
	}
}

func TestConsumePass_TogglesInsideState(t *testing.T) {
	s := New()
	s.AddPass(activePass("p1", "BBBB3333", "casa-1", 4, 0))

	for i := 1; i <= 4; i++ {
		p, err := s.ConsumePass(context.Background(), "p1")
		if err != nil {
			t.Fatalf("redemption %d failed: %v", i, err)
		}
		wantInside := i%2 == 1
		if p.IsVisitorInside != wantInside {
			t.Fatalf("redemption %d: inside = %v, want %v", i, p.IsVisitorInside, wantInside)
		}
	}

	if _, err := s.ConsumePass(context.Background(), "p1"); !errors.Is(err, domain.ErrAlreadyConsumed) {
		t.Fatalf("redemption past budget: got %v, want ErrAlreadyConsumed", err)
	}
}

func TestCreatePass_QuotaRace_SingleSlot(t *testing.T) {
	s := New()
	limit := 1

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := activePass("id-"+string(rune('a'+i)), "CODE000"+string(rune('a'+i)), "casa-9", 2, 0)
			results <- s.CreatePass(context.Background(), &p, &limit)
		}()
	}
	wg.Wait()
	close(results)

	var created, rejected int
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrQuotaExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || rejected != n-1 {
		t.Fatalf("got %d created and %d rejected, want 1 and %d", created, rejected, n-1)
	}
}

func TestCreatePass_QuotaIgnoresInactive(t *testing.T) {
	s := New()
	limit := 1

	expired := activePass("p-old", "OLDCODE1", "casa-1", 2, 0)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	s.AddPass(expired)

	fresh := activePass("p-new", "NEWCODE1", "casa-1", 2, 0)
	if err := s.CreatePass(context.Background(), &fresh, &limit); err != nil {
		t.Fatalf("expired pass counted against quota: %v", err)
	}
}

func TestCreatePass_ShortCodeTaken(t *testing.T) {
	s := New()
	s.AddPass(activePass("p1", "SAMECODE", "casa-1", 2, 0))

	dup := activePass("p2", "SAMECODE", "casa-2", 2, 0)
	if err := s.CreatePass(context.Background(), &dup, nil); !errors.Is(err, domain.ErrShortCodeTaken) {
		t.Fatalf("got %v, want ErrShortCodeTaken", err)
	}
}

func TestRevokePass_IdempotentAndScoped(t *testing.T) {
	s := New()
	s.AddPass(activePass("p1", "REVOKEME", "casa-1", 2, 1))

	first, err := s.RevokePass(context.Background(), "p1", "casa-1")
	if err != nil || first == nil || first.RevokedAt == nil {
		t.Fatalf("revoke failed: pass=%v err=%v", first, err)
	}
	if first.UsedVisits != 1 {
		t.Fatalf("revoke touched used visits: %d", first.UsedVisits)
	}

	second, err := s.RevokePass(context.Background(), "p1", "casa-1")
	if err != nil || second == nil {
		t.Fatalf("repeat revoke failed: %v", err)
	}
	if !second.RevokedAt.Equal(*first.RevokedAt) {
		t.Fatal("repeat revoke moved the revocation time")
	}

	// A different house cannot see or revoke the pass.
	other, err := s.RevokePass(context.Background(), "p1", "casa-2")
	if err != nil || other != nil {
		t.Fatalf("cross-house revoke: pass=%v err=%v", other, err)
	}
}

func TestListPassesByHouse_NewestFirst(t *testing.T) {
	s := New()
	s.AddPass(activePass("p1", "CODEAA11", "casa-1", 2, 0))
	s.AddPass(activePass("p2", "CODEBB22", "casa-1", 2, 0))
	s.AddPass(activePass("p3", "CODECC33", "casa-2", 2, 0))

	passes, err := s.ListPassesByHouse(context.Background(), "casa-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(passes) != 2 {
		t.Fatalf("got %d passes, want 2", len(passes))
	}
	if passes[0].ID != "p2" || passes[1].ID != "p1" {
		t.Fatalf("order = [%s %s], want [p2 p1]", passes[0].ID, passes[1].ID)
	}
}
