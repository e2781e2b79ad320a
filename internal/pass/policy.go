package pass

import (
	"time"

	"github.com/portones-fc/access/internal/domain"
)

// Catalog resolves policy types to their issuing rules.
type Catalog struct {
	policies map[domain.PolicyType]domain.PassPolicy
}

func NewCatalog(policies ...domain.PassPolicy) *Catalog {
	c := &Catalog{policies: make(map[domain.PolicyType]domain.PassPolicy, len(policies))}
	for _, p := range policies {
		c.policies[p.Type] = p
	}
	return c
}

// DefaultCatalog returns the stock visitor categories.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		domain.PassPolicy{
			Type:              domain.PolicyDeliveryApp,
			Duration:          2 * time.Hour,
			MaxVisits:         1,
			MaxPassesPerHouse: perHouse(5),
		},
		domain.PassPolicy{
			Type:         domain.PolicyFamily,
			Duration:     30 * 24 * time.Hour,
			MaxVisits:    10,
			RequiresName: true,
		},
		domain.PassPolicy{
			Type:         domain.PolicyFriend,
			Duration:     7 * 24 * time.Hour,
			MaxVisits:    3,
			RequiresName: true,
		},
		domain.PassPolicy{
			Type:              domain.PolicyParcel,
			Duration:          24 * time.Hour,
			MaxVisits:         1,
			MaxPassesPerHouse: perHouse(5),
		},
		domain.PassPolicy{
			Type:              domain.PolicyService,
			Duration:          12 * time.Hour,
			MaxVisits:         2,
			RequiresName:      true,
			RequiresID:        true,
			MaxPassesPerHouse: perHouse(3),
		},
	)
}

// Lookup resolves a policy type. Unknown types are an issuance error, not a
// catalog omission: the set of types is closed.
func (c *Catalog) Lookup(t domain.PolicyType) (domain.PassPolicy, error) {
	p, ok := c.policies[t]
	if !ok {
		return domain.PassPolicy{}, domain.ErrUnknownPolicy
	}
	return p, nil
}

func perHouse(n int) *int {
	return &n
}
