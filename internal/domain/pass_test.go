package domain

import (
	"testing"
	"time"
)

func TestEffectiveStatus_Precedence(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		pass VisitorPass
		want PassStatus
	}{
		{
			"active pass",
			VisitorPass{ExpiresAt: future, MaxUses: 2, UsedVisits: 0},
			PassActive,
		},
		{
			"expired pass",
			VisitorPass{ExpiresAt: past, MaxUses: 2, UsedVisits: 0},
			PassExpired,
		},
		{
			"completed pass",
			VisitorPass{ExpiresAt: future, MaxUses: 2, UsedVisits: 2},
			PassCompleted,
		},
		{
			"revoked wins over expired",
			VisitorPass{ExpiresAt: past, MaxUses: 2, UsedVisits: 0, RevokedAt: &past},
			PassRevoked,
		},
		{
			"revoked wins over completed",
			VisitorPass{ExpiresAt: future, MaxUses: 2, UsedVisits: 2, RevokedAt: &past},
			PassRevoked,
		},
		{
			"expired wins over completed",
			VisitorPass{ExpiresAt: past, MaxUses: 2, UsedVisits: 2},
			PassExpired,
		},
		{
			"expiry boundary is expired",
			VisitorPass{ExpiresAt: now, MaxUses: 2, UsedVisits: 0},
			PassExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pass.EffectiveStatus(now); got != tt.want {
				t.Fatalf("EffectiveStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPassPolicy_MaxUses_DoublesVisits(t *testing.T) {
	tests := []struct {
		visits int
		want   int
	}{
		{1, 2},
		{3, 6},
		{10, 20},
	}

	for _, tt := range tests {
		p := PassPolicy{MaxVisits: tt.visits}
		if got := p.MaxUses(); got != tt.want {
			t.Fatalf("MaxUses with %d visits = %d, want %d", tt.visits, got, tt.want)
		}
	}
}

func TestParseGateStatus(t *testing.T) {
	tests := []struct {
		in   string
		want GateStatus
		ok   bool
	}{
		{"open", GateOpen, true},
		{"OPEN", GateOpen, true},
		{"  closed ", GateClosed, true},
		{"Opening", GateOpening, true},
		{"unknown", GateUnknown, true},
		{"online", "", false},
		{"offline", "", false},
		{"", "", false},
		{"ajar", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseGateStatus(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseGateStatus(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParsePolicyType(t *testing.T) {
	for _, valid := range []string{"delivery_app", "family", "friend", "parcel", "service"} {
		if _, ok := ParsePolicyType(valid); !ok {
			t.Fatalf("ParsePolicyType(%q) rejected a valid policy", valid)
		}
	}
	if _, ok := ParsePolicyType("visitor"); ok {
		t.Fatal("ParsePolicyType accepted an unknown policy")
	}
}

func TestRemainingUses_NeverNegative(t *testing.T) {
	p := VisitorPass{MaxUses: 2, UsedVisits: 2}
	if got := p.RemainingUses(); got != 0 {
		t.Fatalf("RemainingUses = %d, want 0", got)
	}
	p.UsedVisits = 5
	if got := p.RemainingUses(); got != 0 {
		t.Fatalf("RemainingUses past budget = %d, want 0", got)
	}
}
