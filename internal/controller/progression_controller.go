package controller

import (
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/service"
	"anchor_gate_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressionController struct {
	Progression *service.ProgressionService
	Gating      *service.GatingService
	Ledger      *service.LedgerService
}

func NewProgressionController(progression *service.ProgressionService, gating *service.GatingService, ledger *service.LedgerService) *ProgressionController {
	return &ProgressionController{
		Progression: progression,
		Gating:      gating,
		Ledger:      ledger,
	}
}

// @Summary 开始闯关
// @Tags 闯关
// @Produce json
// @Security BearerAuth
// @Param id path int true "锚点ID"
// @Success 201 {object} util.Response
// @Router /api/tags/{id}/attempts [post]
func (c *ProgressionController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	tagID := util.MustParseUint(ctx.Param("id"))

	attempt, err := c.Progression.Start(user.UserID, tagID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Created(ctx, attempt)
}

// @Summary 恢复进行中的答题
// @Tags 闯关
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "答题记录ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{attemptId} [get]
func (c *ProgressionController) ResumeAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID := util.MustParseUint(ctx.Param("attemptId"))

	attempt, err := c.Progression.Resume(user.UserID, attemptID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, attempt)
}

type submitRequest struct {
	Answers    []service.SubmittedAnswer `json:"answers" binding:"required"`
	MaxResults int                       `json:"maxResults"`
}

// @Summary 提交答案
// @Tags 闯关
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "答题记录ID"
// @Param body body submitRequest true "答案"
// @Success 200 {object} util.Response
// @Router /api/attempts/{attemptId}/submit [post]
func (c *ProgressionController) SubmitAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID := util.MustParseUint(ctx.Param("attemptId"))

	var req submitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	outcome, err := c.Progression.Submit(ctx.Request.Context(), user.UserID, attemptID, req.Answers, req.MaxResults)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, outcome)
}

// @Summary 放弃进行中的答题
// @Tags 闯关
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "答题记录ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{attemptId}/abandon [post]
func (c *ProgressionController) AbandonAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID := util.MustParseUint(ctx.Param("attemptId"))

	attempt, err := c.Progression.Abandon(user.UserID, attemptID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, attempt)
}

// @Summary 答题操作审计记录
// @Tags 闯关
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "答题记录ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{attemptId}/audit [get]
func (c *ProgressionController) AttemptAudit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID := util.MustParseUint(ctx.Param("attemptId"))

	records, err := c.Ledger.AuditTrail(user.UserID, attemptID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, records)
}

// @Summary 学生操作审计记录
// @Tags 闯关
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "学生ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response
// @Router /api/author/students/{studentId}/audit [get]
func (c *ProgressionController) StudentAudit(ctx *gin.Context) {
	studentID := util.MustParseUint(ctx.Param("studentId"))
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	records, total, err := c.Ledger.StudentAuditTrail(studentID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  records,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// @Summary 锚点答题历史
// @Tags 闯关
// @Produce json
// @Security BearerAuth
// @Param id path int true "锚点ID"
// @Success 200 {object} util.Response
// @Router /api/tags/{id}/attempts [get]
func (c *ProgressionController) History(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	tagID := util.MustParseUint(ctx.Param("id"))

	attempts, err := c.Ledger.History(user.UserID, tagID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, attempts)
}

// @Summary 锚点通关状态
// @Tags 闯关
// @Produce json
// @Security BearerAuth
// @Param id path int true "锚点ID"
// @Success 200 {object} util.Response
// @Router /api/tags/{id}/status [get]
func (c *ProgressionController) TagStatus(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	tagID := util.MustParseUint(ctx.Param("id"))

	status, err := c.Gating.TagStatus(user.UserID, tagID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"tagId": tagID, "status": status})
}

// @Summary 单元完成进度
// @Tags 闯关
// @Produce json
// @Security BearerAuth
// @Param contentType query string true "内容类型"
// @Param contentRef query int true "内容ID"
// @Success 200 {object} util.Response
// @Router /api/progress [get]
func (c *ProgressionController) UnitProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	contentType := model.ContentType(ctx.Query("contentType"))
	contentRef, _ := strconv.ParseUint(ctx.Query("contentRef"), 10, 32)
	if contentRef == 0 {
		util.BadRequest(ctx, "contentRef is required")
		return
	}

	progress, err := c.Gating.UnitProgress(user.UserID, contentType, uint(contentRef))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}
