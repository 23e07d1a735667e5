package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dperrym/ipsentry/internal/cache"
	"github.com/dperrym/ipsentry/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Environment:         "test",
		HTTPPort:            "0",
		BlockCacheTTL:       time.Minute,
		GeoCacheTTL:         time.Hour,
		GeoProviderURL:      "http://127.0.0.1:0",
		GeoTimeout:          time.Second,
		SensitivePaths:      []string{"/admin/"},
		DetectionWindow:     time.Hour,
		LogRetention:        30 * 24 * time.Hour,
		SuspiciousRetention: 7 * 24 * time.Hour,
	}
}

func TestNew_WiresPipelineAndJobs(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	srv, err := New(db, cache.NewMemoryCache(), testConfig())
	require.NoError(t, err)
	require.NotNil(t, srv.Detection)
	require.NotNil(t, srv.Retention)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	w := httptest.NewRecorder()
	srv.Engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// The exposed job instances run against the same migrated store.
	assert.NoError(t, srv.Detection.Run())
	assert.NoError(t, srv.Retention.Run())
}
