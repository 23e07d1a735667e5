package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dperrym/ipsentry/internal/models"
)

// SuspiciousService manages detection findings: atomic create-if-absent for
// the detector and list/resolve operations for the review surface.
type SuspiciousService struct {
	db *gorm.DB
}

// NewSuspiciousService returns a SuspiciousService using the provided DB.
func NewSuspiciousService(db *gorm.DB) *SuspiciousService {
	return &SuspiciousService{db: db}
}

// CreateIfAbsent inserts the finding unless an unresolved one already exists
// for the same (address, category) pair. The partial unique index makes the
// check-and-insert atomic under concurrent detector runs; a conflict means
// "already flagged" and reports created=false.
func (s *SuspiciousService) CreateIfAbsent(finding *models.SuspiciousIP) (bool, error) {
	if finding.UUID == "" {
		finding.UUID = uuid.NewString()
	}
	if finding.DetectedAt.IsZero() {
		finding.DetectedAt = time.Now()
	}

	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(finding)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindingFilter narrows a findings listing.
type FindingFilter struct {
	IPAddress string
	Resolved  *bool
	Since     *time.Time
	Until     *time.Time
	Limit     int
}

// List returns findings matching the filter, newest first.
func (s *SuspiciousService) List(f FindingFilter) ([]models.SuspiciousIP, error) {
	var findings []models.SuspiciousIP
	q := s.db.Order("detected_at desc")
	if f.IPAddress != "" {
		q = q.Where("ip_address = ?", f.IPAddress)
	}
	if f.Resolved != nil {
		q = q.Where("is_resolved = ?", *f.Resolved)
	}
	if f.Since != nil {
		q = q.Where("detected_at >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("detected_at <= ?", *f.Until)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&findings).Error; err != nil {
		return nil, err
	}
	return findings, nil
}

// ResolveMany marks the given findings resolved and returns how many rows
// changed.
func (s *SuspiciousService) ResolveMany(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.Model(&models.SuspiciousIP{}).
		Where("id IN ?", ids).
		Update("is_resolved", true)
	return res.RowsAffected, res.Error
}
