package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dperrym/ipsentry/internal/services"
)

// TaskHandler exposes the batch jobs' run-once entry points so an external
// scheduler or an operator can trigger them outside the cron cadence.
type TaskHandler struct {
	detection *services.DetectionService
	retention *services.RetentionService
}

func NewTaskHandler(detection *services.DetectionService, retention *services.RetentionService) *TaskHandler {
	return &TaskHandler{detection: detection, retention: retention}
}

// RunDetection handles POST /api/v1/tasks/detection
func (h *TaskHandler) RunDetection(c *gin.Context) {
	if err := h.detection.Run(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// RunCleanup handles POST /api/v1/tasks/cleanup
func (h *TaskHandler) RunCleanup(c *gin.Context) {
	if err := h.retention.Run(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
