package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/vcfgen/internal/audit"
	"github.com/mrlokans/vcfgen/internal/entities"
)

const (
	defaultAuditPageSize = 25
	maxAuditPageSize     = 100
)

type AuditController struct {
	auditService *audit.Service
	generations  GenerationStore
}

func NewAuditController(auditService *audit.Service, generations GenerationStore) *AuditController {
	return &AuditController{
		auditService: auditService,
		generations:  generations,
	}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?type=&page=&limit=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAuditPageSize)))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxAuditPageSize {
		limit = defaultAuditPageSize
	}

	eventType := entities.AuditEventType(c.Query("type"))
	offset := (page - 1) * limit

	events, total, err := ac.auditService.GetEvents(eventType, limit, offset)
	if err != nil {
		respondInternalError(c, err, "load audit events")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
	})
}

// GenerationEvents lists the audit trail of one generation, oldest first.
// GET /generations/:id/events
func (ac *AuditController) GenerationEvents(c *gin.Context) {
	id, ok := parsePublicIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := ac.generations.GetByPublicID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "generation")
			return
		}
		respondInternalError(c, err, "load generation")
		return
	}

	events, err := ac.auditService.GetEventsForEntity(id)
	if err != nil {
		respondInternalError(c, err, "load generation events")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}
