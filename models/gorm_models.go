// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormEntitlement is the entitlements table row.
type GormEntitlement struct {
	gorm.Model
	UserID    string `gorm:"uniqueIndex;not null"`
	Tier      string `gorm:"not null;default:affiliate"`
	ExpiresAt *time.Time
}

func (GormEntitlement) TableName() string {
	return "entitlements"
}

func (g GormEntitlement) ToEntitlement() Entitlement {
	tier, _ := ParseTier(g.Tier)
	return Entitlement{
		UserID:    g.UserID,
		Tier:      tier,
		ExpiresAt: g.ExpiresAt,
		UpdatedAt: g.UpdatedAt,
	}
}
