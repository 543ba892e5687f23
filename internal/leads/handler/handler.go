package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"leaddesk_backend/internal/leads/repository"
	"leaddesk_backend/internal/leads/service"
	"leaddesk_backend/internal/leads/transport"
	"leaddesk_backend/platform/httpkit"
	"leaddesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// DedupEnqueuer hands a duplicate scan to the background queue.
type DedupEnqueuer interface {
	EnqueueDedupScan(ctx context.Context, windowMinutes int, dryRun bool) error
}

// Handler handles HTTP requests for leads
type Handler struct {
	svc   *service.Service
	val   *validator.Validator
	dedup DedupEnqueuer // optional — nil means scans only run inline
}

// New creates a new leads handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// SetDedupEnqueuer injects the background queue client.
func (h *Handler) SetDedupEnqueuer(enq DedupEnqueuer) {
	h.dedup = enq
}

// RegisterRoutes registers the lead routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/rules", h.RuleCatalog)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/rules", h.ApplyRule)
	rg.POST("/:id/move", h.Move)
	rg.POST("/:id/score", h.Score)
	rg.GET("/:id/score-diagnostics", h.ScoreDiagnostics)
	rg.GET("/:id/events", h.ListEvents)
	rg.GET("/:id/notes", h.ListNotes)
	rg.POST("/:id/notes", h.AddNote)
	rg.GET("/:id/next-action", h.GetNextAction)
	rg.PUT("/:id/next-action", h.SaveNextAction)
	rg.DELETE("/:id/next-action", h.ClearNextAction)
}

// RegisterBoardRoutes registers the kanban board routes
func (h *Handler) RegisterBoardRoutes(rg *gin.RouterGroup) {
	rg.GET("/board", h.Board)
	rg.POST("/move", h.MoveOnBoard)
}

// RegisterEventRoutes registers the raw event intake route
func (h *Handler) RegisterEventRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.AppendEvent)
}

// RegisterAdminRoutes registers the duplicate reconciliation route
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/dedup-leads", h.DedupScan)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /api/v1/leads
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateOrMerge(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	if result.Deduplicated {
		httpkit.OK(c, result)
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// List handles GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	params := repository.ListParams{
		Status:  strings.TrimSpace(c.Query("status")),
		Region:  strings.TrimSpace(c.Query("region")),
		Segment: strings.TrimSpace(c.Query("segment")),
	}
	if raw := c.Query("min_score"); raw != "" {
		minScore, err := strconv.Atoi(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid min_score", nil)
			return
		}
		params.MinScore = &minScore
	}

	result, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetByID handles GET /api/v1/leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Update handles PUT/PATCH /api/v1/leads/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Delete handles DELETE /api/v1/leads/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"ok": true})
}

// RuleCatalog handles GET /api/v1/leads/rules
func (h *Handler) RuleCatalog(c *gin.Context) {
	httpkit.OK(c, h.svc.RuleCatalog())
}

// ApplyRule handles POST /api/v1/leads/:id/rules
func (h *Handler) ApplyRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.ApplyRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ApplyRule(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Move handles POST /api/v1/leads/:id/move
func (h *Handler) Move(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	h.move(c, id)
}

// MoveOnBoard handles POST /api/v1/crm/move with the lead id in the body
func (h *Handler) MoveOnBoard(c *gin.Context) {
	var req transport.MoveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if req.LeadID == nil {
		httpkit.Error(c, http.StatusBadRequest, "lead_id is required", nil)
		return
	}

	result, err := h.svc.MoveStage(c.Request.Context(), *req.LeadID, req.Stage)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) move(c *gin.Context, id uuid.UUID) {
	var req transport.MoveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.MoveStage(c.Request.Context(), id, req.Stage)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Board handles GET /api/v1/crm/board
func (h *Handler) Board(c *gin.Context) {
	result, err := h.svc.Board(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Score handles POST /api/v1/leads/:id/score
func (h *Handler) Score(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Score(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ScoreDiagnostics handles GET /api/v1/leads/:id/score-diagnostics
func (h *Handler) ScoreDiagnostics(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.ScoreDiagnostics(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// AppendEvent handles POST /api/v1/events
func (h *Handler) AppendEvent(c *gin.Context) {
	var req transport.AppendEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.AppendEvent(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// ListEvents handles GET /api/v1/leads/:id/events
func (h *Handler) ListEvents(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = parsed
	}

	result, err := h.svc.ListEvents(c.Request.Context(), id, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// AddNote handles POST /api/v1/leads/:id/notes
func (h *Handler) AddNote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.AddNote(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// ListNotes handles GET /api/v1/leads/:id/notes
func (h *Handler) ListNotes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.ListNotes(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetNextAction handles GET /api/v1/leads/:id/next-action
func (h *Handler) GetNextAction(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetNextAction(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// SaveNextAction handles PUT /api/v1/leads/:id/next-action
func (h *Handler) SaveNextAction(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.NextActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SaveNextAction(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ClearNextAction handles DELETE /api/v1/leads/:id/next-action
func (h *Handler) ClearNextAction(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.ClearNextAction(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// DedupScan handles POST /api/v1/admin/dedup-leads
func (h *Handler) DedupScan(c *gin.Context) {
	dryRun := c.DefaultQuery("dry_run", "true") != "false"

	windowMinutes := 0
	if raw := c.Query("window_minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpkit.Error(c, http.StatusBadRequest, "invalid window_minutes", nil)
			return
		}
		windowMinutes = parsed
	}

	if c.Query("async") == "true" {
		if h.dedup == nil {
			httpkit.Error(c, http.StatusServiceUnavailable, "background queue not configured", nil)
			return
		}
		if err := h.dedup.EnqueueDedupScan(c.Request.Context(), windowMinutes, dryRun); httpkit.HandleError(c, err) {
			return
		}
		httpkit.JSON(c, http.StatusAccepted, gin.H{
			"ok":             true,
			"enqueued":       true,
			"dry_run":        dryRun,
			"window_minutes": windowMinutes,
		})
		return
	}

	result, err := h.svc.DedupScan(c.Request.Context(), windowMinutes, dryRun)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
