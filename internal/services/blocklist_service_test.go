package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dperrym/ipsentry/internal/cache"
	"github.com/dperrym/ipsentry/internal/models"
)

func TestBlockListService_BlockIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	service := NewBlockListService(db, cache.NewMemoryCache(), time.Minute)

	blocked, created, err := service.Block("1.2.3.4", "scraping")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, blocked.UUID)
	assert.True(t, blocked.IsActive)
	require.NotNil(t, blocked.Reason)
	assert.Equal(t, "scraping", *blocked.Reason)

	again, created, err := service.Block("1.2.3.4", "different reason")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, blocked.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.BlockedIP{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestBlockListService_BlockRejectsInvalidAddress(t *testing.T) {
	db := setupTestDB(t)
	service := NewBlockListService(db, cache.NewMemoryCache(), time.Minute)

	_, _, err := service.Block("not-an-ip", "")
	assert.ErrorIs(t, err, ErrInvalidIPAddress)

	var count int64
	require.NoError(t, db.Model(&models.BlockedIP{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "invalid input must not write")
}

func TestBlockListService_IsBlocked(t *testing.T) {
	db := setupTestDB(t)
	service := NewBlockListService(db, cache.NewMemoryCache(), time.Minute)
	ctx := context.Background()

	blocked, err := service.IsBlocked(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.False(t, blocked)

	_, _, err = service.Block("5.6.7.8", "")
	require.NoError(t, err)

	blocked, err = service.IsBlocked(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestBlockListService_InactiveEntriesDoNotBlock(t *testing.T) {
	db := setupTestDB(t)
	service := NewBlockListService(db, cache.NewMemoryCache(), time.Minute)

	entry, _, err := service.Block("9.9.9.9", "")
	require.NoError(t, err)

	_, err = service.SetActive(entry.ID, false)
	require.NoError(t, err)

	blocked, err := service.IsBlocked(context.Background(), "9.9.9.9")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestBlockListService_PositiveResultIsCached(t *testing.T) {
	db := setupTestDB(t)
	store := cache.NewMemoryCache()
	service := NewBlockListService(db, store, time.Minute)
	ctx := context.Background()

	_, _, err := service.Block("8.8.4.4", "")
	require.NoError(t, err)

	blocked, err := service.IsBlocked(ctx, "8.8.4.4")
	require.NoError(t, err)
	require.True(t, blocked)

	// Remove the row; the cached positive decision must hold for its TTL.
	require.NoError(t, db.Where("ip_address = ?", "8.8.4.4").Delete(&models.BlockedIP{}).Error)

	blocked, err = service.IsBlocked(ctx, "8.8.4.4")
	require.NoError(t, err)
	assert.True(t, blocked, "deny decisions are served from cache until expiry")
}

func TestBlockListService_NegativeResultIsNotCached(t *testing.T) {
	db := setupTestDB(t)
	store := cache.NewMemoryCache()
	service := NewBlockListService(db, store, time.Minute)
	ctx := context.Background()

	blocked, err := service.IsBlocked(ctx, "4.4.4.4")
	require.NoError(t, err)
	require.False(t, blocked)
	assert.Equal(t, 0, store.Len(), "allow decisions must not be cached")

	// A fresh block is picked up on the very next check.
	_, _, err = service.Block("4.4.4.4", "")
	require.NoError(t, err)

	blocked, err = service.IsBlocked(ctx, "4.4.4.4")
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestBlockListService_StoreErrorPropagates(t *testing.T) {
	db := setupTestDB(t)
	service := NewBlockListService(db, cache.NewMemoryCache(), time.Minute)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = service.IsBlocked(context.Background(), "1.1.1.1")
	assert.Error(t, err, "a store failure must surface, not silently allow")
}
