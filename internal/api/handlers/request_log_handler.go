package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dperrym/ipsentry/internal/services"
)

type RequestLogHandler struct {
	service *services.RequestLogService
}

func NewRequestLogHandler(service *services.RequestLogService) *RequestLogHandler {
	return &RequestLogHandler{service: service}
}

// List handles GET /api/v1/request-logs
func (h *RequestLogHandler) List(c *gin.Context) {
	filter := services.LogFilter{
		IPAddress: c.Query("ip"),
		Path:      c.Query("path"),
		Limit:     100,
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	since, err := parseTimeQuery(c, "since")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since timestamp"})
		return
	}
	filter.Since = since

	until, err := parseTimeQuery(c, "until")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid until timestamp"})
		return
	}
	filter.Until = until

	entries, err := h.service.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
