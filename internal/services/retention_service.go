package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dperrym/ipsentry/internal/logger"
	"github.com/dperrym/ipsentry/internal/metrics"
	"github.com/dperrym/ipsentry/internal/models"
)

// RetentionService deletes request logs and resolved findings past their
// retention age. The two sweeps are independent: each runs and logs its own
// count, and a failure in one does not stop the other.
type RetentionService struct {
	db                  *gorm.DB
	logRetention        time.Duration
	suspiciousRetention time.Duration
}

// NewRetentionService returns a RetentionService over the given DB.
func NewRetentionService(db *gorm.DB, logRetention, suspiciousRetention time.Duration) *RetentionService {
	if logRetention <= 0 {
		logRetention = 30 * 24 * time.Hour
	}
	if suspiciousRetention <= 0 {
		suspiciousRetention = 7 * 24 * time.Hour
	}
	return &RetentionService{
		db:                  db,
		logRetention:        logRetention,
		suspiciousRetention: suspiciousRetention,
	}
}

// Run executes one retention sweep and returns the combined error of any
// sweeps that failed.
func (s *RetentionService) Run() error {
	logger.Log().Info("starting log cleanup")

	var errs []error

	res := s.db.Where("timestamp < ?", time.Now().Add(-s.logRetention)).
		Delete(&models.RequestLog{})
	if res.Error != nil {
		errs = append(errs, fmt.Errorf("delete old request logs: %w", res.Error))
		logger.WithFields(map[string]interface{}{"error": res.Error.Error()}).
			Error("failed to delete old request logs")
	} else {
		metrics.AddSweptRows("request_logs", res.RowsAffected)
		logger.WithFields(map[string]interface{}{"deleted": res.RowsAffected}).
			Info("deleted old request logs")
	}

	res = s.db.Where("is_resolved = ? AND detected_at < ?", true, time.Now().Add(-s.suspiciousRetention)).
		Delete(&models.SuspiciousIP{})
	if res.Error != nil {
		errs = append(errs, fmt.Errorf("delete resolved findings: %w", res.Error))
		logger.WithFields(map[string]interface{}{"error": res.Error.Error()}).
			Error("failed to delete resolved suspicious IP records")
	} else {
		metrics.AddSweptRows("suspicious_ips", res.RowsAffected)
		logger.WithFields(map[string]interface{}{"deleted": res.RowsAffected}).
			Info("deleted resolved suspicious IP records")
	}

	return errors.Join(errs...)
}
