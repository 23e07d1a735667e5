package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dperrym/ipsentry/internal/logger"
	"github.com/dperrym/ipsentry/internal/metrics"
	"github.com/dperrym/ipsentry/internal/models"
	"github.com/dperrym/ipsentry/internal/notify"
)

// Detection thresholds, per trailing window.
const (
	volumeThreshold        = 100
	sensitivePathThreshold = 10
	breadthThreshold       = 20
)

// DetectionService is the anomaly-detection batch job. Run applies three
// independent rules over the trailing window of the request log and records
// a finding per (address, rule) unless an unresolved one is already open.
type DetectionService struct {
	db             *gorm.DB
	findings       *SuspiciousService
	notifier       *notify.Notifier
	window         time.Duration
	sensitivePaths []string
}

// NewDetectionService returns a DetectionService over the given DB. The
// notifier may be nil when alerting is not configured.
func NewDetectionService(db *gorm.DB, findings *SuspiciousService, notifier *notify.Notifier, window time.Duration, sensitivePaths []string) *DetectionService {
	if window <= 0 {
		window = time.Hour
	}
	return &DetectionService{
		db:             db,
		findings:       findings,
		notifier:       notifier,
		window:         window,
		sensitivePaths: sensitivePaths,
	}
}

type addressCount struct {
	IPAddress string
	Total     int
}

// Run executes one detection pass. A store error aborts the run and
// propagates; findings committed by earlier rules stand, and re-runs are
// idempotent thanks to the open-finding uniqueness constraint.
func (s *DetectionService) Run() error {
	since := time.Now().Add(-s.window)
	log := logger.Log()
	log.Info("starting suspicious IP detection")

	var created []models.SuspiciousIP
	defer func() {
		if s.notifier != nil {
			s.notifier.FindingsCreated(created)
		}
	}()

	// Rule 1: excessive request volume per address.
	var heavy []addressCount
	if err := s.db.Model(&models.RequestLog{}).
		Select("ip_address, COUNT(*) AS total").
		Where("timestamp >= ?", since).
		Group("ip_address").
		Having("COUNT(*) > ?", volumeThreshold).
		Scan(&heavy).Error; err != nil {
		return fmt.Errorf("volume rule query: %w", err)
	}

	for _, row := range heavy {
		finding := models.SuspiciousIP{
			IPAddress:    row.IPAddress,
			Category:     models.CategoryVolume,
			Reason:       fmt.Sprintf("Excessive requests: %d requests in the last hour", row.Total),
			RequestCount: row.Total,
		}
		ok, err := s.findings.CreateIfAbsent(&finding)
		if err != nil {
			return fmt.Errorf("volume rule insert: %w", err)
		}
		if ok {
			created = append(created, finding)
			metrics.IncFinding("volume")
			logger.WithFields(map[string]interface{}{"ip": row.IPAddress, "count": row.Total}).
				Warn("flagged suspicious IP for excessive requests")
		}
	}

	// Rule 2: repeated access to sensitive paths. Substring matching is
	// intentional, matching paths that merely contain the configured value.
	for _, path := range s.sensitivePaths {
		var hits []addressCount
		if err := s.db.Model(&models.RequestLog{}).
			Select("ip_address, COUNT(*) AS total").
			Where("timestamp >= ? AND path LIKE ?", since, "%"+path+"%").
			Group("ip_address").
			Having("COUNT(*) > ?", sensitivePathThreshold).
			Scan(&hits).Error; err != nil {
			return fmt.Errorf("sensitive path rule query for %s: %w", path, err)
		}

		for _, row := range hits {
			finding := models.SuspiciousIP{
				IPAddress:    row.IPAddress,
				Category:     models.CategorySensitivePrefix + path,
				Reason:       fmt.Sprintf("Accessing sensitive path %s: %d times in the last hour", path, row.Total),
				RequestCount: row.Total,
			}
			ok, err := s.findings.CreateIfAbsent(&finding)
			if err != nil {
				return fmt.Errorf("sensitive path rule insert: %w", err)
			}
			if ok {
				created = append(created, finding)
				metrics.IncFinding("sensitive_path")
				logger.WithFields(map[string]interface{}{"ip": row.IPAddress, "path": path, "count": row.Total}).
					Warn("flagged suspicious IP for accessing sensitive path")
			}
		}
	}

	// Rule 3: unusually broad path coverage per address.
	var broad []addressCount
	if err := s.db.Model(&models.RequestLog{}).
		Select("ip_address, COUNT(DISTINCT path) AS total").
		Where("timestamp >= ?", since).
		Group("ip_address").
		Having("COUNT(DISTINCT path) > ?", breadthThreshold).
		Scan(&broad).Error; err != nil {
		return fmt.Errorf("breadth rule query: %w", err)
	}

	for _, row := range broad {
		finding := models.SuspiciousIP{
			IPAddress:    row.IPAddress,
			Category:     models.CategoryBreadth,
			Reason:       fmt.Sprintf("Unusual request pattern: %d different paths accessed in the last hour", row.Total),
			RequestCount: row.Total,
		}
		ok, err := s.findings.CreateIfAbsent(&finding)
		if err != nil {
			return fmt.Errorf("breadth rule insert: %w", err)
		}
		if ok {
			created = append(created, finding)
			metrics.IncFinding("breadth")
			logger.WithFields(map[string]interface{}{"ip": row.IPAddress, "paths": row.Total}).
				Warn("flagged suspicious IP for unusual request pattern")
		}
	}

	log.WithField("new_findings", len(created)).Info("suspicious IP detection completed")
	return nil
}
