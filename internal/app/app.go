package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"phish_trainer_backend/internal/config"
	"phish_trainer_backend/internal/controller"
	"phish_trainer_backend/internal/repository"
	"phish_trainer_backend/internal/service"
	"phish_trainer_backend/internal/util"
	"phish_trainer_backend/pkg/configwatcher"
	"phish_trainer_backend/pkg/database"
	"phish_trainer_backend/pkg/logger"
	"phish_trainer_backend/pkg/monitoring"
	"phish_trainer_backend/pkg/security"
	"phish_trainer_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config     *config.Config
	ConfigFile string
	Router     *gin.Engine
	DB         *gorm.DB
	Redis      *redis.Client

	shutdownHooks []func(context.Context)
}

type repositories struct {
	user     *repository.UserRepository
	quiz     *repository.QuizRepository
	progress *repository.ProgressRepository
	cache    repository.QuizCache
	redis    *redis.Client
}

type services struct {
	access   *service.AccessControl
	auth     *service.AuthService
	user     *service.UserService
	quiz     *service.QuizService
	progress *service.ProgressService
	archive  *service.ReportArchive
}

type controllers struct {
	auth   *controller.AuthController
	user   *controller.UserController
	quiz   *controller.QuizController
	test   *controller.TestController
	health *controller.HealthController
}

func initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		quiz:     repository.NewQuizRepository(db),
		progress: repository.NewProgressRepository(db),
		cache:    repository.NewQuizCache(rdb, cfg.Redis.TTL),
		redis:    rdb,
	}
}

func initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.access = service.NewAccessControl(nil)
	s.archive = service.NewReportArchive(cfg)
	s.auth = service.NewAuthService(repos.user, cfg, service.NewLoginGuard(repos.redis))
	s.user = service.NewUserService(repos.user, s.access)
	s.quiz = service.NewQuizService(repos.quiz, repos.cache, s.access, s.archive)
	s.progress = service.NewProgressService(repos.progress, repos.user, s.quiz, s.access, s.archive)

	return s
}

func initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:   controller.NewAuthController(s.auth, s.user),
		user:   controller.NewUserController(s.user),
		quiz:   controller.NewQuizController(s.quiz, s.progress),
		test:   controller.NewTestController(s.quiz, s.progress),
		health: controller.NewHealthController(db, rdb),
	}
}

func setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window()))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewEngine 组装路由，数据库与缓存由调用方提供；测试直接使用
func NewEngine(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	repos := initRepositories(db, rdb, cfg)
	svcs := initServices(repos, cfg)
	ctrls := initControllers(svcs, db, rdb)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == gin.DebugMode {
		router.Use(gin.Logger())
	}
	setupMiddlewares(router, cfg)
	registerRoutes(router, ctrls, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/reports", cfg.Storage.LocalPath)
	}
	return router
}

func NewApp(cfg *config.Config, configFile string) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")
	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config:     cfg,
		ConfigFile: configFile,
		DB:         db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存不可用时直读数据库
		logger.Log.Warn("Redis unavailable, quiz cache disabled", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("phish-trainer", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.shutdownHooks = append(app.shutdownHooks, func(ctx context.Context) {
			if err := tp.Shutdown(ctx); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		})
	}

	app.Router = NewEngine(cfg, db, rdb)
	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if a.ConfigFile != "" {
		go func() {
			if err := configwatcher.WatchConfig(watchCtx, a.ConfigFile, configwatcher.ReloadLogLevel); err != nil {
				logger.Log.Warn("Config watcher disabled", zap.Error(err))
			}
		}()
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	for _, hook := range a.shutdownHooks {
		hook(ctx)
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
