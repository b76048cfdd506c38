// Package entitlement holds the subscription tier model and the rules that
// gate playback actions: a per-tier daily play quota and a tier to language
// allow-list.
package entitlement

import "fmt"

// Tier is the subscription level of the current user.
type Tier int

const (
	TierFree Tier = iota
	TierPremium
	TierPremiumPlus
	TierEnterprise
)

// String returns the wire name of the tier.
func (t Tier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierPremium:
		return "premium"
	case TierPremiumPlus:
		return "premium_plus"
	case TierEnterprise:
		return "enterprise"
	default:
		return "unknown"
	}
}

// ParseTier converts a wire name into a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "free":
		return TierFree, nil
	case "premium":
		return TierPremium, nil
	case "premium_plus":
		return TierPremiumPlus, nil
	case "enterprise":
		return TierEnterprise, nil
	default:
		return TierFree, fmt.Errorf("entitlement: unknown tier %q", s)
	}
}

// IsPaid returns true for every tier above free.
func (t Tier) IsPaid() bool {
	return t != TierFree
}
