package models

import (
	"testing"
	"time"
)

func TestParseTier(t *testing.T) {
	if tier, ok := ParseTier("partner"); !ok || tier != TierPartner {
		t.Errorf("Expected partner, got %s (%v)", tier, ok)
	}
	if tier, ok := ParseTier("platinum"); ok || tier != LowestTier {
		t.Errorf("Expected unknown tier to map to %s, got %s (%v)", LowestTier, tier, ok)
	}
}

func TestTierMeets(t *testing.T) {
	cases := []struct {
		have, need Tier
		want       bool
	}{
		{TierAffiliate, TierAffiliate, true},
		{TierAffiliate, TierPartner, false},
		{TierAffiliate, TierPremier, false},
		{TierPartner, TierAffiliate, true},
		{TierPartner, TierPremier, false},
		{TierPremier, TierPartner, true},
		{Tier("bogus"), TierAffiliate, true},
		{Tier("bogus"), TierPartner, false},
		{TierPremier, Tier("bogus"), false},
	}
	for _, c := range cases {
		if got := c.have.Meets(c.need); got != c.want {
			t.Errorf("%s.Meets(%s) = %v, want %v", c.have, c.need, got, c.want)
		}
	}
}

func TestEntitlementActive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if !(Entitlement{}).Active(now) {
		t.Error("an entitlement without expiry is always active")
	}
	if (Entitlement{ExpiresAt: &past}).Active(now) {
		t.Error("expired entitlement reported active")
	}
	if !(Entitlement{ExpiresAt: &future}).Active(now) {
		t.Error("future expiry reported inactive")
	}
}
