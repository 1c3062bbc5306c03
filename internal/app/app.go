package app

import (
	"anchor_gate_backend/internal/config"
	"anchor_gate_backend/internal/controller"
	"anchor_gate_backend/internal/repository"
	"anchor_gate_backend/internal/service"
	"anchor_gate_backend/pkg/database"
	"anchor_gate_backend/pkg/logger"
	"anchor_gate_backend/pkg/monitoring"
	"anchor_gate_backend/pkg/security"
	"anchor_gate_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	tag       *repository.AnchorTagRepository
	attempt   *repository.AttemptRepository
	quizGroup *repository.QuizGroupRepository
	knowledge *repository.KnowledgeRepository
	audit     *repository.AuditRepository
}

type services struct {
	knowledge   *service.KnowledgeService
	engine      *service.VerificationService
	ledger      *service.LedgerService
	gating      *service.GatingService
	anchorTag   *service.AnchorTagService
	quizGroup   *service.QuizGroupService
	progression *service.ProgressionService
}

type controllers struct {
	anchorTag    *controller.AnchorTagController
	quizGroup    *controller.QuizGroupController
	progression  *controller.ProgressionController
	verification *controller.VerificationController
	knowledge    *controller.KnowledgeController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig swaps the live configuration and notifies subscribers.
// Called by the config watcher when configs/config.yaml changes on disk.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	logger.Log.Info("Configuration reloaded")
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		tag:       repository.NewAnchorTagRepository(db, rdb),
		attempt:   repository.NewAttemptRepository(db),
		quizGroup: repository.NewQuizGroupRepository(db),
		knowledge: repository.NewKnowledgeRepository(db),
		audit:     repository.NewAuditRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.knowledge = service.NewKnowledgeService(cfg.Knowledge, repos.knowledge)
	s.engine = service.NewVerificationService(s.knowledge, cfg.Verification)
	s.ledger = service.NewLedgerService(repos.attempt, repos.tag, repos.audit)
	s.gating = service.NewGatingService(repos.attempt, repos.tag)
	s.anchorTag = service.NewAnchorTagService(repos.tag, repos.quizGroup)
	s.quizGroup = service.NewQuizGroupService(repos.quizGroup)
	s.progression = service.NewProgressionService(s.ledger, s.gating, s.engine, repos.tag, repos.quizGroup)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		anchorTag:    controller.NewAnchorTagController(s.anchorTag),
		quizGroup:    controller.NewQuizGroupController(s.quizGroup),
		progression:  controller.NewProgressionController(s.progression, s.gating, s.ledger),
		verification: controller.NewVerificationController(s.engine),
		knowledge:    controller.NewKnowledgeController(s.knowledge),
		health:       controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks runs the ledger sweep: abandoned browser sessions
// leave attempts stuck in progress, the sweep fails them after the
// configured timeout so the student can start fresh.
func (a *App) startBackgroundTasks(s *services) {
	go func() {
		ticker := time.NewTicker(a.Config.Ledger.SweepInterval)
		for range ticker.C {
			swept, err := s.ledger.AbandonExpired(a.Config.Ledger.SessionTimeout)
			if err != nil {
				logger.Log.Error("stale attempt sweep error", zap.Error(err))
				continue
			}
			if swept > 0 {
				logger.Log.Info("swept stale attempts", zap.Int("count", swept))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("anchor-gate", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
