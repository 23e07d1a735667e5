package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dperrym/ipsentry/internal/version"
)

// HealthHandler handles GET /api/v1/health
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Full(),
	})
}
