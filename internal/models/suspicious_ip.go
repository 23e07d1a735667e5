package models

import (
	"time"
)

// Finding categories used to scope the one-open-finding-per-rule invariant.
const (
	CategoryVolume  = "volume"
	CategoryBreadth = "breadth"

	// CategorySensitivePrefix prefixes the matched path, e.g.
	// "sensitive_path:/admin/", so each sensitive path is its own category.
	CategorySensitivePrefix = "sensitive_path:"
)

// SuspiciousIP is a detection finding produced by the anomaly rules. The
// partial unique index keeps at most one unresolved finding per
// (address, category) pair; resolved history accumulates freely until the
// retention sweep removes it.
type SuspiciousIP struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UUID         string    `json:"uuid" gorm:"uniqueIndex"`
	IPAddress    string    `json:"ip_address" gorm:"index;uniqueIndex:idx_open_finding,where:is_resolved = 0"`
	Category     string    `json:"category" gorm:"uniqueIndex:idx_open_finding,where:is_resolved = 0"`
	Reason       string    `json:"reason" gorm:"type:text"`
	RequestCount int       `json:"request_count" gorm:"default:0"`
	IsResolved   bool      `json:"is_resolved" gorm:"index;default:false"`
	DetectedAt   time.Time `json:"detected_at" gorm:"index"`
}
