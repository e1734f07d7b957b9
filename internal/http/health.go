package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/vcfgen/internal/database"
)

const (
	healthy   = "healthy"
	unhealthy = "unhealthy"
)

type HealthResponse struct {
	Status      string            `json:"status"`
	Time        string            `json:"time"`
	Version     string            `json:"version,omitempty"`
	Checks      map[string]string `json:"checks"`
	NextCleanup *time.Time        `json:"next_cleanup,omitempty"`
}

// HealthController reports whether the database answers and which optional
// components are running.
type HealthController struct {
	db        *database.Database
	queue     TaskQueue
	scheduler Scheduler
	version   string
}

func NewHealthController(db *database.Database, queue TaskQueue, scheduler Scheduler, version string) *HealthController {
	return &HealthController{db: db, queue: queue, scheduler: scheduler, version: version}
}

// Status handles GET /health
func (h *HealthController) Status(c *gin.Context) {
	resp := HealthResponse{
		Status:  healthy,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks: map[string]string{
			"database": h.databaseCheck(),
			"tasks":    enabledCheck(h.queue != nil),
		},
	}
	if resp.Checks["database"] != "ok" && resp.Checks["database"] != "not configured" {
		resp.Status = unhealthy
	}
	if h.scheduler != nil {
		resp.NextCleanup = h.scheduler.GetNextRunTime()
	}

	code := http.StatusOK
	if resp.Status == unhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func (h *HealthController) databaseCheck() string {
	if h.db == nil {
		return "not configured"
	}
	if err := h.db.Ping(); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func enabledCheck(enabled bool) string {
	if enabled {
		return "ok"
	}
	return "disabled"
}
