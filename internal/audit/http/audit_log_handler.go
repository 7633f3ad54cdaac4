package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/http/dto"
	auditUseCase "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/usecase"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/httputil"
	customValidation "github.com/kvhuynh79-oss/sda-management-sub004/internal/validation"
)

// immutableErrorCode is returned for every deletion attempt.
const immutableErrorCode = "immutable"

// AuditLogHandler handles HTTP requests for audit chain operations.
type AuditLogHandler struct {
	auditChainUseCase       auditUseCase.AuditChainUseCase
	integrityAuditorUseCase auditUseCase.IntegrityAuditorUseCase
	logger                  *slog.Logger
}

// NewAuditLogHandler creates a new audit log handler with required dependencies.
func NewAuditLogHandler(
	auditChainUseCase auditUseCase.AuditChainUseCase,
	integrityAuditorUseCase auditUseCase.IntegrityAuditorUseCase,
	logger *slog.Logger,
) *AuditLogHandler {
	return &AuditLogHandler{
		auditChainUseCase:       auditChainUseCase,
		integrityAuditorUseCase: integrityAuditorUseCase,
		logger:                  logger,
	}
}

// RegisterRoutes mounts the audit log routes on group. The group must already run
// IdentityMiddleware.
func (h *AuditLogHandler) RegisterRoutes(group *gin.RouterGroup) {
	auditLogs := group.Group("/audit-logs")
	{
		auditLogs.POST("", h.AppendHandler)
		auditLogs.GET("", h.ListHandler)
		auditLogs.DELETE("", h.BulkDeleteHandler)
		auditLogs.GET("/stats", h.StatsHandler)
		auditLogs.POST("/verify", h.VerifyHandler)
		auditLogs.GET("/entities/:entity_type/:entity_id", h.EntityHistoryHandler)
		auditLogs.GET("/users/:user_id", h.UserActivityHandler)
		auditLogs.DELETE("/:id", h.DeleteHandler)
	}
}

// AppendHandler appends an entry to the caller's organization chain.
// POST /v1/audit-logs
// The actor is taken from the identity headers, never from the body. Returns 201 Created with
// the stored entry including its id, sequence number and hashes.
func (h *AuditLogHandler) AppendHandler(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	var req dto.AppendAuditLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	entry, err := h.auditChainUseCase.Append(
		c.Request.Context(),
		req.ToAppendInput(identity.OrganizationID, identity.Actor),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapEntryToResponse(entry))
}

// ListHandler retrieves the caller organization's entries, newest first.
// GET /v1/audit-logs?offset=0&limit=50&entity_type=&entity_id=&user_id=&action=&start=&end=&search=
// start and end are RFC3339 timestamps (inclusive). Returns 200 OK with the page and the total
// number of matching entries.
func (h *AuditLogHandler) ListHandler(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	start, end, err := httputil.ParseTimeRange(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var action auditDomain.Action
	if raw := c.Query("action"); raw != "" {
		action, err = auditDomain.ParseAction(raw)
		if err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
	}

	filter := auditDomain.ListFilter{
		OrganizationID: identity.OrganizationID,
		EntityType:     c.Query("entity_type"),
		EntityID:       c.Query("entity_id"),
		UserID:         c.Query("user_id"),
		Action:         action,
		StartTime:      start,
		EndTime:        end,
		SearchTerm:     c.Query("search"),
		Offset:         offset,
		Limit:          limit,
	}

	result, err := h.auditChainUseCase.List(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapListResultToResponse(result, offset, limit))
}

// StatsHandler counts the caller organization's entries by action, entity type and user.
// GET /v1/audit-logs/stats?start=&end=
func (h *AuditLogHandler) StatsHandler(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	start, end, err := httputil.ParseTimeRange(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	stats, err := h.auditChainUseCase.Stats(c.Request.Context(), identity.OrganizationID, start, end)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatsToResponse(stats))
}

// EntityHistoryHandler returns the latest entries for one entity.
// GET /v1/audit-logs/entities/:entity_type/:entity_id?limit=20
func (h *AuditLogHandler) EntityHistoryHandler(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	limit, err := httputil.ParseLimit(c, 20)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	entries, err := h.auditChainUseCase.EntityHistory(
		c.Request.Context(),
		identity.OrganizationID,
		c.Param("entity_type"),
		c.Param("entity_id"),
		limit,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.EntriesResponse{Data: dto.MapEntriesToResponse(entries)})
}

// UserActivityHandler returns the latest entries recorded for one user.
// GET /v1/audit-logs/users/:user_id?limit=50
func (h *AuditLogHandler) UserActivityHandler(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	limit, err := httputil.ParseLimit(c, 50)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	entries, err := h.auditChainUseCase.UserActivity(
		c.Request.Context(),
		identity.OrganizationID,
		c.Param("user_id"),
		limit,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.EntriesResponse{Data: dto.MapEntriesToResponse(entries)})
}

// VerifyHandler verifies the caller organization's chain.
// POST /v1/audit-logs/verify?mode=full|incremental
// Returns 200 OK with the verification report; violations are data, not an error status.
func (h *AuditLogHandler) VerifyHandler(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	mode, err := auditDomain.ParseVerifyMode(c.Query("mode"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	report, err := h.integrityAuditorUseCase.Verify(c.Request.Context(), identity.OrganizationID, mode)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapReportToResponse(report))
}

// DeleteHandler rejects deletion of a single entry.
// DELETE /v1/audit-logs/:id
// Always returns 403 Forbidden with error "immutable".
func (h *AuditLogHandler) DeleteHandler(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	id, _ := uuid.Parse(c.Param("id"))
	h.handleDeleteError(c, h.auditChainUseCase.Delete(c.Request.Context(), identity.OrganizationID, id))
}

// BulkDeleteHandler rejects bulk deletion.
// DELETE /v1/audit-logs
// Always returns 403 Forbidden with error "immutable".
func (h *AuditLogHandler) BulkDeleteHandler(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	h.handleDeleteError(c, h.auditChainUseCase.BulkDelete(c.Request.Context(), identity.OrganizationID, nil))
}

func (h *AuditLogHandler) handleDeleteError(c *gin.Context, err error) {
	if errors.Is(err, auditDomain.ErrImmutable) {
		httputil.HandleForbiddenGin(c, immutableErrorCode, auditDomain.ErrImmutable, h.logger)
		return
	}
	if err == nil {
		err = auditDomain.ErrImmutable
	}
	httputil.HandleErrorGin(c, err, h.logger)
}

func (h *AuditLogHandler) identity(c *gin.Context) (*Identity, bool) {
	identity, ok := GetIdentity(c.Request.Context())
	if !ok || identity == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return nil, false
	}
	return identity, true
}
