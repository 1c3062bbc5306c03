package app

import (
	"anchor_gate_backend/docs"
	"anchor_gate_backend/internal/config"
	"anchor_gate_backend/internal/middleware"
	"anchor_gate_backend/internal/model"

	"anchor_gate_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerAuthorRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	// 锚点查询
	rg.GET("/tags", c.anchorTag.ListByContent)
	rg.GET("/tags/:id", c.anchorTag.GetTag)

	// 闯关
	rg.POST("/tags/:id/attempts", c.progression.StartAttempt)
	rg.GET("/tags/:id/attempts", c.progression.History)
	rg.GET("/tags/:id/status", c.progression.TagStatus)
	rg.GET("/attempts/:attemptId", c.progression.ResumeAttempt)
	rg.POST("/attempts/:attemptId/submit", c.progression.SubmitAttempt)
	rg.POST("/attempts/:attemptId/abandon", c.progression.AbandonAttempt)
	rg.GET("/attempts/:attemptId/audit", c.progression.AttemptAudit)
	rg.GET("/progress", c.progression.UnitProgress)

	// 直接调用校验引擎（调用方自带题目）
	rg.POST("/verify", c.verification.Verify)
}

func (a *App) registerAuthorRoutes(rg *gin.RouterGroup, c *controllers) {
	author := rg.Group("/author")
	author.Use(middleware.RoleMiddleware(model.Author, model.Admin))
	{
		// 锚点管理
		author.POST("/tags", c.anchorTag.CreateTag)
		author.GET("/tags", c.anchorTag.ListTags)
		author.POST("/tags/:id/archive", c.anchorTag.ArchiveTag)
		author.DELETE("/tags/:id", c.anchorTag.DeleteTag)

		// 题组管理
		author.POST("/quiz-groups", c.quizGroup.CreateGroup)
		author.GET("/quiz-groups/:id", c.quizGroup.GetGroup)
		author.POST("/quiz-groups/:id/questions", c.quizGroup.AddQuestion)
		author.PUT("/quiz-questions/:questionId", c.quizGroup.UpdateQuestion)
		author.DELETE("/quiz-questions/:questionId", c.quizGroup.DeleteQuestion)
		author.GET("/quiz-groups/:id/tags", c.anchorTag.ListByQuizGroup)

		// 知识库
		author.POST("/knowledge-documents", c.knowledge.CreateDocument)
		author.GET("/knowledge-documents", c.knowledge.ListDocuments)

		// 学生操作审计
		author.GET("/students/:studentId/audit", c.progression.StudentAudit)
	}
}
