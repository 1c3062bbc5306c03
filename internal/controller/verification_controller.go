package controller

import (
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/service"
	"anchor_gate_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// VerificationController exposes the engine directly for callers that bring
// their own question set (e.g. ad-hoc checks from the authoring UI).
type VerificationController struct {
	Engine *service.VerificationService
}

func NewVerificationController(engine *service.VerificationService) *VerificationController {
	return &VerificationController{Engine: engine}
}

type verifyQuestionRequest struct {
	Question      string   `json:"question" binding:"required"`
	QuestionType  string   `json:"question_type" binding:"required"`
	Options       []string `json:"options"`
	UserAnswer    string   `json:"user_answer"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type verifyRequest struct {
	ContentType       string                  `json:"content_type"` // 可选，带上后按内容键检索知识库
	ContentRef        uint                    `json:"content_ref"`
	ModuleTitle       string                  `json:"module_title"`
	ModuleDescription string                  `json:"module_description"`
	Questions         []verifyQuestionRequest `json:"questions" binding:"required"`
	MaxResults        int                     `json:"max_results"`
}

type verifyQuestionResponse struct {
	QuestionIndex int     `json:"question_index"`
	Question      string  `json:"question"`
	QuestionType  string  `json:"question_type"`
	UserAnswer    string  `json:"user_answer"`
	IsCorrect     bool    `json:"is_correct"`
	CorrectAnswer string  `json:"correct_answer,omitempty"`
	Explanation   *string `json:"explanation"`
	Feedback      *string `json:"feedback"`
	Score         float64 `json:"score"`
}

type verifyResponse struct {
	TotalQuestions     int                      `json:"total_questions"`
	CorrectAnswers     int                      `json:"correct_answers"`
	ScorePercentage    int                      `json:"score_percentage"`
	OverallFeedback    string                   `json:"overall_feedback"`
	KnowledgeAvailable bool                     `json:"knowledge_available"`
	QuestionsResults   []verifyQuestionResponse `json:"questions_results"`
}

// @Summary 批量校验答案
// @Tags 校验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body verifyRequest true "校验请求"
// @Success 200 {object} util.Response
// @Router /api/verify [post]
func (c *VerificationController) Verify(ctx *gin.Context) {
	var req verifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	batch := &service.VerificationBatch{
		ContentType:       model.ContentType(req.ContentType),
		ContentRef:        req.ContentRef,
		ModuleTitle:       req.ModuleTitle,
		ModuleDescription: req.ModuleDescription,
		Questions:         make([]service.BatchQuestion, len(req.Questions)),
		MaxResults:        req.MaxResults,
		RequireQuestions:  true,
	}
	for i, q := range req.Questions {
		batch.Questions[i] = service.BatchQuestion{
			Question:      q.Question,
			QuestionType:  model.QuestionType(q.QuestionType),
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			UserAnswer:    q.UserAnswer,
		}
	}

	result, err := c.Engine.Verify(ctx.Request.Context(), batch)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	resp := verifyResponse{
		TotalQuestions:     result.TotalQuestions,
		CorrectAnswers:     result.CorrectAnswers,
		ScorePercentage:    result.ScorePercentage,
		OverallFeedback:    result.OverallFeedback,
		KnowledgeAvailable: result.KnowledgeAvailable,
		QuestionsResults:   make([]verifyQuestionResponse, len(result.QuestionsResults)),
	}
	for i, r := range result.QuestionsResults {
		resp.QuestionsResults[i] = verifyQuestionResponse{
			QuestionIndex: r.QuestionIndex,
			Question:      r.Question,
			QuestionType:  string(r.QuestionType),
			UserAnswer:    r.UserAnswer,
			IsCorrect:     r.IsCorrect,
			CorrectAnswer: r.CorrectAnswer,
			Explanation:   r.Explanation,
			Feedback:      r.Feedback,
			Score:         r.Score,
		}
	}

	util.Success(ctx, resp)
}
