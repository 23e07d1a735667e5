package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dperrym/ipsentry/internal/geo"
	"github.com/dperrym/ipsentry/internal/models"
)

// RequestLogService persists one log entry per allowed request and serves
// the review surface's filtered queries.
type RequestLogService struct {
	db       *gorm.DB
	resolver *geo.Resolver
}

// NewRequestLogService returns a RequestLogService using the provided DB and
// geolocation resolver.
func NewRequestLogService(db *gorm.DB, resolver *geo.Resolver) *RequestLogService {
	return &RequestLogService{db: db, resolver: resolver}
}

// RecordInput captures the request facts the gate attached to the context.
type RecordInput struct {
	IPAddress string
	Path      string
	Method    string
	UserAgent string
}

// Record resolves geolocation for the address and persists the entry.
// Geolocation degrades to empty fields on its own; a store error is returned
// for the caller to log, never to surface to the client.
func (s *RequestLogService) Record(ctx context.Context, in RecordInput) error {
	loc := s.resolver.Resolve(ctx, in.IPAddress)

	entry := models.RequestLog{
		IPAddress: in.IPAddress,
		Timestamp: time.Now(),
		Path:      in.Path,
		Method:    in.Method,
		Country:   loc.Country,
		City:      loc.City,
	}
	if in.UserAgent != "" {
		entry.UserAgent = &in.UserAgent
	}

	return s.db.WithContext(ctx).Create(&entry).Error
}

// LogFilter narrows a request-log listing.
type LogFilter struct {
	IPAddress string
	Path      string
	Since     *time.Time
	Until     *time.Time
	Limit     int
}

// List returns request logs matching the filter, newest first.
func (s *RequestLogService) List(f LogFilter) ([]models.RequestLog, error) {
	var entries []models.RequestLog
	q := s.db.Order("timestamp desc")
	if f.IPAddress != "" {
		q = q.Where("ip_address = ?", f.IPAddress)
	}
	if f.Path != "" {
		q = q.Where("path LIKE ?", "%"+f.Path+"%")
	}
	if f.Since != nil {
		q = q.Where("timestamp >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("timestamp <= ?", *f.Until)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
