package controller

import (
	"anchor_gate_backend/internal/service"
	"anchor_gate_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizGroupController struct {
	Service *service.QuizGroupService
}

func NewQuizGroupController(svc *service.QuizGroupService) *QuizGroupController {
	return &QuizGroupController{Service: svc}
}

// @Summary 创建题组
// @Tags 题组管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.QuizGroupRequest true "题组信息"
// @Success 201 {object} util.Response
// @Router /api/author/quiz-groups [post]
func (c *QuizGroupController) CreateGroup(ctx *gin.Context) {
	var req service.QuizGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	group, err := c.Service.CreateGroup(user.UserID, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Created(ctx, group)
}

// @Summary 获取题组及题目
// @Tags 题组管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "题组ID"
// @Success 200 {object} util.Response
// @Router /api/author/quiz-groups/{id} [get]
func (c *QuizGroupController) GetGroup(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	group, questions, err := c.Service.GetGroup(id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"group":     group,
		"questions": questions,
	})
}

// @Summary 添加题目
// @Tags 题组管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "题组ID"
// @Param body body service.QuizQuestionRequest true "题目信息"
// @Success 201 {object} util.Response
// @Router /api/author/quiz-groups/{id}/questions [post]
func (c *QuizGroupController) AddQuestion(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	var req service.QuizQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Service.AddQuestion(id, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Created(ctx, q)
}

// @Summary 更新题目
// @Tags 题组管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Param body body service.QuizQuestionRequest true "题目信息"
// @Success 200 {object} util.Response
// @Router /api/author/quiz-questions/{questionId} [put]
func (c *QuizGroupController) UpdateQuestion(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("questionId"))

	var req service.QuizQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Service.UpdateQuestion(id, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, q)
}

// @Summary 删除题目
// @Tags 题组管理
// @Produce json
// @Security BearerAuth
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/author/quiz-questions/{questionId} [delete]
func (c *QuizGroupController) DeleteQuestion(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("questionId"))

	if err := c.Service.DeleteQuestion(id); err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}
