package app

import (
	"phish_trainer_backend/docs"
	"phish_trainer_backend/internal/config"
	"phish_trainer_backend/internal/middleware"
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/pkg/monitoring"
	"phish_trainer_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActiveUserMiddleware(repos.user))
	{
		// 受测者/通用 授权接口
		registerTakerRoutes(authGroup, c)

		// 用户管理接口
		registerManagementRoutes(authGroup, c)

		// 管理员接口
		registerAdminRoutes(authGroup, c)
	}
}

func registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", security.RateLimiter(cfg.RateLimit.LoginMaxRequests, cfg.RateLimit.Window()), c.auth.Login)
	}
}

func registerTakerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/tests", c.test.ListTests)
	rg.GET("/test/:id", c.test.GetTest)
	rg.POST("/test/:id/start", c.test.StartTest)
	rg.POST("/test/:id/submit", c.test.SubmitTest)
	rg.GET("/test/:id/attempts", c.test.GetAttempts)
	rg.GET("/test_results", c.test.GetResults)

	rg.GET("/user/stats", c.test.GetStats)
	rg.GET("/user/profile", c.auth.GetProfile)
	rg.PUT("/user/profile", c.user.UpdateProfile)
	rg.POST("/user/password", c.user.ChangePassword)
}

func registerManagementRoutes(rg *gin.RouterGroup, c *controllers) {
	users := rg.Group("/users")
	users.Use(middleware.RoleMiddleware(model.Manager))
	{
		users.GET("", c.user.ListUsers)
		users.POST("", c.user.CreateUser)
		users.DELETE("/:id", c.user.DeleteUser)
	}
}

func registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	adminOnly := rg.Group("")
	adminOnly.Use(middleware.RoleMiddleware(model.Admin))
	{
		adminOnly.GET("/organizations", c.user.ListOrganizations)
		adminOnly.GET("/organizations/:org/users", c.user.GetOrganizationUsers)

		adminOnly.POST("/create_test", c.quiz.Create)
		adminOnly.POST("/delete_test/:id", c.quiz.Delete)

		adminOnly.GET("/admin/tests", c.quiz.ListAll)
		adminOnly.GET("/admin/tests/:id", c.quiz.Get)
		adminOnly.PUT("/admin/tests/:id", c.quiz.Update)
		adminOnly.POST("/admin/tests/:id/questions", c.quiz.AddQuestion)
		adminOnly.GET("/admin/tests/:id/statistics", c.quiz.Statistics)
	}
}
