package domain

import (
	"strings"
	"time"
)

type PolicyType string

const (
	PolicyDeliveryApp PolicyType = "delivery_app"
	PolicyFamily      PolicyType = "family"
	PolicyFriend      PolicyType = "friend"
	PolicyParcel      PolicyType = "parcel"
	PolicyService     PolicyType = "service"
)

func ParsePolicyType(s string) (PolicyType, bool) {
	switch t := PolicyType(strings.ToLower(strings.TrimSpace(s))); t {
	case PolicyDeliveryApp, PolicyFamily, PolicyFriend, PolicyParcel, PolicyService:
		return t, true
	default:
		return "", false
	}
}

// PassPolicy describes a visitor category: validity window, visit quota, the
// identity fields issuance must collect, and an optional cap on simultaneous
// active passes per house.
type PassPolicy struct {
	Type              PolicyType
	Duration          time.Duration
	MaxVisits         int
	RequiresName      bool
	RequiresID        bool
	MaxPassesPerHouse *int // nil means unlimited
}

// MaxUses returns the redemption budget for passes under this policy. One
// visit is an entry plus an exit, so the budget is twice the visit quota.
func (p PassPolicy) MaxUses() int {
	return 2 * p.MaxVisits
}

type PassStatus string

const (
	PassActive    PassStatus = "active"
	PassExpired   PassStatus = "expired"
	PassCompleted PassStatus = "completed"
	PassRevoked   PassStatus = "revoked"
)

type Direction string

const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
)

type VisitorPass struct {
	ID              string     `json:"id"`
	ShortCode       string     `json:"short_code"`
	PolicyType      PolicyType `json:"policy_type"`
	HouseID         string     `json:"house_id"`
	VisitorName     string     `json:"visitor_name,omitempty"`
	IDPhotoURL      string     `json:"id_photo_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	MaxUses         int        `json:"max_uses"`
	UsedVisits      int        `json:"used_visits"`
	IsVisitorInside bool       `json:"is_visitor_inside"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
}

// EffectiveStatus derives the lifecycle state of the pass at the given
// instant. It is computed on every read and never stored. Revocation wins
// over expiry; expiry wins over completion.
func (p *VisitorPass) EffectiveStatus(now time.Time) PassStatus {
	switch {
	case p.RevokedAt != nil:
		return PassRevoked
	case !now.Before(p.ExpiresAt):
		return PassExpired
	case p.UsedVisits >= p.MaxUses:
		return PassCompleted
	default:
		return PassActive
	}
}

// RemainingUses reports how many redemptions the pass has left.
func (p *VisitorPass) RemainingUses() int {
	if r := p.MaxUses - p.UsedVisits; r > 0 {
		return r
	}
	return 0
}

// PassView is a pass with its derived status attached for read responses.
type PassView struct {
	VisitorPass
	EffectiveStatus PassStatus `json:"effective_status"`
}
