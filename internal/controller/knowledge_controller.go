package controller

import (
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/service"
	"anchor_gate_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type KnowledgeController struct {
	Service *service.KnowledgeService
}

func NewKnowledgeController(svc *service.KnowledgeService) *KnowledgeController {
	return &KnowledgeController{Service: svc}
}

// @Summary 添加知识文档
// @Tags 知识库
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.KnowledgeDocumentRequest true "文档内容"
// @Success 201 {object} util.Response
// @Router /api/author/knowledge-documents [post]
func (c *KnowledgeController) CreateDocument(ctx *gin.Context) {
	var req service.KnowledgeDocumentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	doc, err := c.Service.AddDocument(req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Created(ctx, doc)
}

// @Summary 按内容查询知识文档
// @Tags 知识库
// @Produce json
// @Security BearerAuth
// @Param contentType query string true "内容类型"
// @Param contentRef query int true "内容ID"
// @Success 200 {object} util.Response
// @Router /api/author/knowledge-documents [get]
func (c *KnowledgeController) ListDocuments(ctx *gin.Context) {
	contentType := model.ContentType(ctx.Query("contentType"))
	contentRef := util.MustParseUint(ctx.Query("contentRef"))
	if contentRef == 0 {
		util.BadRequest(ctx, "contentRef is required")
		return
	}

	docs, err := c.Service.DocumentsFor(contentType, contentRef)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, docs)
}
