package models

import (
	"time"
)

// RequestLog is an immutable record of a single allowed request, enriched
// with geolocation where it could be resolved. Rows are only ever created by
// the request recorder and deleted by the retention sweep.
type RequestLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	IPAddress string    `json:"ip_address" gorm:"index"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
	Path      string    `json:"path" gorm:"index;size:255"`
	Method    string    `json:"method" gorm:"size:10;default:GET"`
	Country   *string   `json:"country" gorm:"size:100"`
	City      *string   `json:"city" gorm:"size:100"`
	UserAgent *string   `json:"user_agent" gorm:"type:text"`
}
