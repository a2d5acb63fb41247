// README: Admin handlers for the audit trail and manual scheduler runs.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"petcare/internal/modules/audit"
	"petcare/internal/modules/reservation"
	"petcare/internal/types"
)

type AuditReader interface {
	List(ctx context.Context, entityType audit.EntityType, entityID types.ID, limit int) ([]audit.Entry, error)
}

type SchedulerRunner interface {
	RunOnce(ctx context.Context) (reservation.RunReport, error)
}

type AdminHandler struct {
	audit     AuditReader
	scheduler SchedulerRunner
	logger    *slog.Logger
}

func NewAdminHandler(auditReader AuditReader, scheduler SchedulerRunner, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{audit: auditReader, scheduler: scheduler, logger: logger}
}

func (h *AdminHandler) Audit(c *gin.Context) {
	entityType, err := audit.ParseEntityType(c.Param("entityType"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := pathID(c, "entityId")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 100)
	if !ok {
		return
	}
	entries, err := h.audit.List(c.Request.Context(), entityType, id, limit)
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(c, http.StatusOK, gin.H{"items": entries})
}

func (h *AdminHandler) RunScheduler(c *gin.Context) {
	report, err := h.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, report)
}
