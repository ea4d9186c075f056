// models/models.go
package models

import (
	"time"
)

// Tier is a subscription level. Tiers are ordered; a higher tier unlocks
// everything a lower one does.
type Tier string

const (
	TierAffiliate Tier = "affiliate"
	TierPartner   Tier = "partner"
	TierPremier   Tier = "premier"
)

// LowestTier is what every unknown or unresolvable user gets.
const LowestTier = TierAffiliate

var tierRank = map[Tier]int{
	TierAffiliate: 0,
	TierPartner:   1,
	TierPremier:   2,
}

// ParseTier normalises raw. Unknown values map to LowestTier and report false.
func ParseTier(raw string) (Tier, bool) {
	t := Tier(raw)
	if _, ok := tierRank[t]; !ok {
		return LowestTier, false
	}
	return t, true
}

// Meets reports whether t is at least required.
func (t Tier) Meets(required Tier) bool {
	have, ok := tierRank[t]
	if !ok {
		have = tierRank[LowestTier]
	}
	need, ok := tierRank[required]
	if !ok {
		// an asset tagged with an unknown tier is never unlocked
		return false
	}
	return have >= need
}

// Entitlement is a user's resolved subscription record.
type Entitlement struct {
	UserID    string     `json:"user_id"`
	Tier      Tier       `json:"tier"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Active reports whether the entitlement still applies at now.
func (e Entitlement) Active(now time.Time) bool {
	return e.ExpiresAt == nil || now.Before(*e.ExpiresAt)
}
