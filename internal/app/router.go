package app

import (
	"tutor_market_backend/docs"
	"tutor_market_backend/internal/config"
	"tutor_market_backend/internal/middleware"
	"tutor_market_backend/internal/model"
	"tutor_market_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.ActivityMiddleware(repos.user))
	{
		// 学生/通用 授权接口
		a.registerStudentRoutes(authGroup, c)

		// 教师相关接口
		a.registerTeacherRoutes(authGroup, c)

		// 管理员相关接口
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 登录用户可查看自己未发布的课程
		courses := public.Group("/courses")
		courses.Use(middleware.TryAuthMiddleware(cfg.JWT.Secret))
		{
			courses.GET("", c.course.ListCourses)
			courses.GET("/:id", c.course.GetCourse)
		}
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)
	group.PUT("/profile", c.auth.UpdateProfile)

	group.POST("/courses/:id/enroll", c.enrollment.Enroll)
	group.POST("/courses/:id/save", c.enrollment.ToggleSaved)
	group.POST("/courses/:id/like", c.enrollment.ToggleLiked)
	group.POST("/lessons/:id/complete", c.enrollment.CompleteLesson)
	group.POST("/quizzes/:id/attempts", c.enrollment.SubmitQuiz)
	group.POST("/assignments/:id/submissions", c.enrollment.SubmitAssignment)

	payments := group.Group("/payments")
	{
		payments.POST("/intents", c.payment.CreateIntent)
		payments.POST("/:id/confirm", c.payment.ConfirmIntent)
		payments.POST("/:id/cancel", c.payment.CancelIntent)
	}

	notifications := group.Group("/notifications")
	{
		notifications.GET("", c.notification.ListNotifications)
		notifications.GET("/unread-count", c.notification.UnreadCount)
		notifications.PATCH("/read-all", c.notification.MarkAllRead)
		notifications.PATCH("/:id/read", c.notification.MarkRead)
		notifications.GET("/ws", c.notification.ServeWs)
	}
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.GET("/courses", c.course.ListTeacherCourses)
		teacher.POST("/courses", c.course.CreateCourse)
		teacher.PUT("/courses/:id", c.course.UpdateCourse)
		teacher.DELETE("/courses/:id", c.course.DeleteCourse)
		teacher.POST("/courses/:id/submit", c.course.SubmitCourse)
		teacher.POST("/courses/:id/archive", c.course.ArchiveCourse)

		teacher.POST("/uploads/video", c.upload.UploadVideo)
	}
}

func (a *App) registerAdminRoutes(group *gin.RouterGroup, c *controllers) {
	admin := group.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/courses/:id/review", c.course.ReviewCourse)
	}
}
