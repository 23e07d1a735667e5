package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dperrym/ipsentry/internal/models"
)

var testSensitivePaths = []string{"/admin/", "/login/", "/api/admin/"}

func newDetection(db *gorm.DB) *DetectionService {
	return NewDetectionService(db, NewSuspiciousService(db), nil, time.Hour, testSensitivePaths)
}

func seedLogs(t *testing.T, db *gorm.DB, ip, path string, n int, age time.Duration) {
	t.Helper()
	entries := make([]models.RequestLog, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, models.RequestLog{
			IPAddress: ip,
			Timestamp: time.Now().Add(-age),
			Path:      path,
			Method:    "GET",
		})
	}
	require.NoError(t, db.Create(&entries).Error)
}

func openFindings(t *testing.T, db *gorm.DB, ip string) []models.SuspiciousIP {
	t.Helper()
	var findings []models.SuspiciousIP
	require.NoError(t, db.Where("ip_address = ? AND is_resolved = ?", ip, false).Find(&findings).Error)
	return findings
}

func TestDetection_VolumeRule(t *testing.T) {
	db := setupTestDB(t)
	seedLogs(t, db, "1.2.3.4", "/", 101, time.Minute)

	require.NoError(t, newDetection(db).Run())

	findings := openFindings(t, db, "1.2.3.4")
	require.Len(t, findings, 1)
	assert.Equal(t, models.CategoryVolume, findings[0].Category)
	assert.Equal(t, 101, findings[0].RequestCount)
	assert.Contains(t, findings[0].Reason, "Excessive requests: 101 requests")
	assert.False(t, findings[0].IsResolved)
	assert.NotEmpty(t, findings[0].UUID)
}

func TestDetection_VolumeRuleBelowThreshold(t *testing.T) {
	db := setupTestDB(t)
	seedLogs(t, db, "1.2.3.4", "/", 100, time.Minute)

	require.NoError(t, newDetection(db).Run())

	assert.Empty(t, openFindings(t, db, "1.2.3.4"))
}

func TestDetection_RerunCreatesNoDuplicate(t *testing.T) {
	db := setupTestDB(t)
	seedLogs(t, db, "1.2.3.4", "/", 101, time.Minute)

	detector := newDetection(db)
	require.NoError(t, detector.Run())
	require.NoError(t, detector.Run())

	assert.Len(t, openFindings(t, db, "1.2.3.4"), 1)
}

func TestDetection_ResolvedFindingAllowsNewOne(t *testing.T) {
	db := setupTestDB(t)
	seedLogs(t, db, "1.2.3.4", "/", 101, time.Minute)

	detector := newDetection(db)
	require.NoError(t, detector.Run())

	require.NoError(t, db.Model(&models.SuspiciousIP{}).
		Where("ip_address = ?", "1.2.3.4").
		Update("is_resolved", true).Error)

	require.NoError(t, detector.Run())

	var total int64
	require.NoError(t, db.Model(&models.SuspiciousIP{}).Where("ip_address = ?", "1.2.3.4").Count(&total).Error)
	assert.EqualValues(t, 2, total, "a resolved finding does not suppress re-detection")
	assert.Len(t, openFindings(t, db, "1.2.3.4"), 1)
}

func TestDetection_SensitivePathRule(t *testing.T) {
	db := setupTestDB(t)
	seedLogs(t, db, "5.6.7.8", "/admin/dashboard", 11, time.Minute)

	require.NoError(t, newDetection(db).Run())

	findings := openFindings(t, db, "5.6.7.8")
	require.Len(t, findings, 1)
	assert.Equal(t, models.CategorySensitivePrefix+"/admin/", findings[0].Category)
	assert.Equal(t, 11, findings[0].RequestCount)
	assert.Contains(t, findings[0].Reason, "Accessing sensitive path /admin/: 11 times")
}

func TestDetection_SensitivePathSubstringMatch(t *testing.T) {
	db := setupTestDB(t)
	// Substring semantics: nested paths containing /login/ also count.
	seedLogs(t, db, "5.6.7.8", "/api/login/history/", 11, time.Minute)

	require.NoError(t, newDetection(db).Run())

	findings := openFindings(t, db, "5.6.7.8")
	require.Len(t, findings, 1)
	assert.Equal(t, models.CategorySensitivePrefix+"/login/", findings[0].Category)
}

func TestDetection_BreadthRule(t *testing.T) {
	db := setupTestDB(t)
	for i := 0; i < 21; i++ {
		seedLogs(t, db, "9.9.9.9", fmt.Sprintf("/page/%d", i), 1, time.Minute)
	}

	require.NoError(t, newDetection(db).Run())

	findings := openFindings(t, db, "9.9.9.9")
	require.Len(t, findings, 1)
	assert.Equal(t, models.CategoryBreadth, findings[0].Category)
	assert.Equal(t, 21, findings[0].RequestCount)
	assert.Contains(t, findings[0].Reason, "21 different paths")
}

func TestDetection_CategoriesAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	// One noisy address trips both the volume and the sensitive-path rule.
	seedLogs(t, db, "6.6.6.6", "/admin/users", 101, time.Minute)

	require.NoError(t, newDetection(db).Run())

	findings := openFindings(t, db, "6.6.6.6")
	require.Len(t, findings, 2)

	categories := map[string]bool{}
	for _, f := range findings {
		categories[f.Category] = true
	}
	assert.True(t, categories[models.CategoryVolume])
	assert.True(t, categories[models.CategorySensitivePrefix+"/admin/"])
}

func TestDetection_IgnoresEntriesOutsideWindow(t *testing.T) {
	db := setupTestDB(t)
	seedLogs(t, db, "1.2.3.4", "/", 101, 2*time.Hour)

	require.NoError(t, newDetection(db).Run())

	assert.Empty(t, openFindings(t, db, "1.2.3.4"))
}

func TestDetection_StoreErrorAborts(t *testing.T) {
	db := setupTestDB(t)
	detector := newDetection(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	assert.Error(t, detector.Run())
}
