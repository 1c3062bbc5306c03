package controller

import (
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/service"
	"anchor_gate_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type AnchorTagController struct {
	Service *service.AnchorTagService
}

func NewAnchorTagController(svc *service.AnchorTagService) *AnchorTagController {
	return &AnchorTagController{Service: svc}
}

// @Summary 创建锚点
// @Tags 锚点管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.AnchorTagRequest true "锚点信息"
// @Success 201 {object} util.Response
// @Router /api/author/tags [post]
func (c *AnchorTagController) CreateTag(ctx *gin.Context) {
	var req service.AnchorTagRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	tag, err := c.Service.CreateTag(user.UserID, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Created(ctx, tag)
}

// @Summary 获取锚点详情
// @Tags 锚点管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "锚点ID"
// @Success 200 {object} util.Response
// @Router /api/tags/{id} [get]
func (c *AnchorTagController) GetTag(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	tag, err := c.Service.GetTag(id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, tag)
}

// @Summary 锚点列表
// @Tags 锚点管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param mandatoryOnly query bool false "仅必修锚点"
// @Success 200 {object} util.Response
// @Router /api/author/tags [get]
func (c *AnchorTagController) ListTags(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	mandatoryOnly := ctx.Query("mandatoryOnly") == "true"

	tags, total, err := c.Service.ListTags(page, limit, mandatoryOnly)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  tags,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// @Summary 按内容查询锚点
// @Tags 锚点管理
// @Produce json
// @Security BearerAuth
// @Param contentType query string true "内容类型"
// @Param contentRef query int true "内容ID"
// @Param includeDeleted query bool false "包含已删除（审计）"
// @Success 200 {object} util.Response
// @Router /api/tags [get]
func (c *AnchorTagController) ListByContent(ctx *gin.Context) {
	contentType := model.ContentType(ctx.Query("contentType"))
	contentRef := util.MustParseUint(ctx.Query("contentRef"))
	includeDeleted := ctx.Query("includeDeleted") == "true"

	if contentRef == 0 {
		util.BadRequest(ctx, "contentRef is required")
		return
	}

	tags, err := c.Service.ListByContent(contentType, contentRef, includeDeleted)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, tags)
}

// @Summary 题组关联的锚点
// @Tags 锚点管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "题组ID"
// @Success 200 {object} util.Response
// @Router /api/author/quiz-groups/{id}/tags [get]
func (c *AnchorTagController) ListByQuizGroup(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	tags, err := c.Service.TagsForQuizGroup(id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, tags)
}

// @Summary 归档锚点
// @Tags 锚点管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "锚点ID"
// @Success 200 {object} util.Response
// @Router /api/author/tags/{id}/archive [post]
func (c *AnchorTagController) ArchiveTag(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	tag, err := c.Service.ArchiveTag(id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, tag)
}

// @Summary 删除锚点
// @Tags 锚点管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "锚点ID"
// @Success 200 {object} util.Response
// @Router /api/author/tags/{id} [delete]
func (c *AnchorTagController) DeleteTag(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	if err := c.Service.DeleteTag(id); err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}
