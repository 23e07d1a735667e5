package models

import (
	"time"
)

// BlockedIP is a denylist entry. At most one row exists per address; the
// active flag toggles enforcement without losing the audit trail.
type BlockedIP struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	IPAddress string    `json:"ip_address" gorm:"uniqueIndex"`
	Reason    *string   `json:"reason" gorm:"type:text"`
	IsActive  bool      `json:"is_active" gorm:"index;default:true"`
	CreatedAt time.Time `json:"created_at"`
}
