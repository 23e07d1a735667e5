package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dperrym/ipsentry/internal/services"
)

type BlockedIPHandler struct {
	service *services.BlockListService
}

// NewBlockedIPHandler shares the gate's BlockListService so admin blocks and
// gate decisions read the same cache.
func NewBlockedIPHandler(service *services.BlockListService) *BlockedIPHandler {
	return &BlockedIPHandler{service: service}
}

type blockRequest struct {
	IPAddress string `json:"ip_address" binding:"required"`
	Reason    string `json:"reason"`
}

// Create handles POST /api/v1/blocked-ips
func (h *BlockedIPHandler) Create(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blocked, created, err := h.service.Block(req.IPAddress, req.Reason)
	if err != nil {
		if errors.Is(err, services.ErrInvalidIPAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid IP address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if !created {
		c.JSON(http.StatusOK, gin.H{"message": "IP address is already blocked", "blocked_ip": blocked})
		return
	}

	c.JSON(http.StatusCreated, blocked)
}

// List handles GET /api/v1/blocked-ips
func (h *BlockedIPHandler) List(c *gin.Context) {
	var active *bool
	if raw := c.Query("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active filter"})
			return
		}
		active = &parsed
	}

	entries, err := h.service.List(active)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetActive handles PATCH /api/v1/blocked-ips/:id
func (h *BlockedIPHandler) SetActive(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blocked, err := h.service.SetActive(uint(id), *req.IsActive)
	if err != nil {
		if errors.Is(err, services.ErrBlockedIPNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "blocked IP not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, blocked)
}
