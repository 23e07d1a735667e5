package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dperrym/ipsentry/internal/cache"
	"github.com/dperrym/ipsentry/internal/logger"
	"github.com/dperrym/ipsentry/internal/models"
)

var (
	ErrBlockedIPNotFound = errors.New("blocked ip not found")
	ErrInvalidIPAddress  = errors.New("invalid ip address")
)

const blockCacheKeyPrefix = "blocked_ip:"

// BlockListService answers "is this address blocked" with short-lived
// positive caching, and manages the denylist itself.
//
// Only blocked results are cached. An allowed address is re-checked against
// the store on every request, so unblocking takes effect immediately while a
// new block becomes effective everywhere within one cache TTL.
type BlockListService struct {
	db       *gorm.DB
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewBlockListService returns a BlockListService over the given store and cache.
func NewBlockListService(db *gorm.DB, c cache.Cache, cacheTTL time.Duration) *BlockListService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &BlockListService{db: db, cache: c, cacheTTL: cacheTTL}
}

// IsBlocked reports whether ipAddress has an active denylist entry. A store
// error is returned to the caller; the gate decides whether that fails open
// or closed. Cache errors only cost the shortcut and are logged here.
func (s *BlockListService) IsBlocked(ctx context.Context, ipAddress string) (bool, error) {
	key := blockCacheKeyPrefix + ipAddress
	if _, ok, err := s.cache.Get(ctx, key); err != nil {
		logger.WithFields(map[string]interface{}{"ip": ipAddress, "error": err.Error()}).
			Warn("block cache read failed")
	} else if ok {
		return true, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.BlockedIP{}).
		Where("ip_address = ? AND is_active = ?", ipAddress, true).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("query blocked ips: %w", err)
	}

	if count == 0 {
		return false, nil
	}

	if err := s.cache.Set(ctx, key, "1", s.cacheTTL); err != nil {
		logger.WithFields(map[string]interface{}{"ip": ipAddress, "error": err.Error()}).
			Warn("block cache write failed")
	}
	return true, nil
}

// Block adds ipAddress to the denylist. Blocking an address that is already
// present is a no-op: the existing row is returned with created=false.
func (s *BlockListService) Block(ipAddress, reason string) (*models.BlockedIP, bool, error) {
	if net.ParseIP(ipAddress) == nil {
		return nil, false, ErrInvalidIPAddress
	}

	var existing models.BlockedIP
	err := s.db.Where("ip_address = ?", ipAddress).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	blocked := models.BlockedIP{
		UUID:      uuid.NewString(),
		IPAddress: ipAddress,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if reason != "" {
		blocked.Reason = &reason
	}

	if err := s.db.Create(&blocked).Error; err != nil {
		// A concurrent Block may have won the unique-index race; the address
		// being present is exactly the outcome we wanted.
		if ferr := s.db.Where("ip_address = ?", ipAddress).First(&existing).Error; ferr == nil {
			return &existing, false, nil
		}
		return nil, false, err
	}

	return &blocked, true, nil
}

// SetActive toggles enforcement for a denylist entry.
func (s *BlockListService) SetActive(id uint, active bool) (*models.BlockedIP, error) {
	var blocked models.BlockedIP
	if err := s.db.First(&blocked, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlockedIPNotFound
		}
		return nil, err
	}

	if err := s.db.Model(&blocked).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	blocked.IsActive = active
	return &blocked, nil
}

// List returns denylist entries, optionally filtered by active state,
// newest first.
func (s *BlockListService) List(active *bool) ([]models.BlockedIP, error) {
	var entries []models.BlockedIP
	q := s.db.Order("created_at desc")
	if active != nil {
		q = q.Where("is_active = ?", *active)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
