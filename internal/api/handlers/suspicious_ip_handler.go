package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dperrym/ipsentry/internal/services"
)

type SuspiciousIPHandler struct {
	service *services.SuspiciousService
}

func NewSuspiciousIPHandler(service *services.SuspiciousService) *SuspiciousIPHandler {
	return &SuspiciousIPHandler{service: service}
}

// List handles GET /api/v1/suspicious-ips
func (h *SuspiciousIPHandler) List(c *gin.Context) {
	filter := services.FindingFilter{
		IPAddress: c.Query("ip"),
	}

	if raw := c.Query("resolved"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resolved filter"})
			return
		}
		filter.Resolved = &parsed
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

	findings, err := h.service.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, findings)
}

type resolveRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

// Resolve handles POST /api/v1/suspicious-ips/resolve
func (h *SuspiciousIPHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.ResolveMany(req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": updated})
}
