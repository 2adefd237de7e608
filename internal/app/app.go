package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutor_market_backend/internal/config"
	"tutor_market_backend/internal/controller"
	"tutor_market_backend/internal/repository"
	"tutor_market_backend/internal/service"
	"tutor_market_backend/pkg/configwatcher"
	"tutor_market_backend/pkg/database"
	"tutor_market_backend/pkg/locker"
	"tutor_market_backend/pkg/logger"
	"tutor_market_backend/pkg/monitoring"
	"tutor_market_backend/pkg/security"
	"tutor_market_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	repos           *repositories
	services        *services
	tracer          *trace.TracerProvider
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	course       *repository.CourseRepository
	enrollment   *repository.EnrollmentRepository
	notification *repository.NotificationRepository
	payment      *repository.PaymentRepository
}

type services struct {
	auth          *service.AuthService
	content       *service.CourseContentService
	course        *service.CourseService
	enrollment    *service.EnrollmentService
	payment       *service.PaymentService
	notification  *service.NotificationService
	notifications *service.NotificationHub
	upload        *service.UploadService
}

type controllers struct {
	auth         *controller.AuthController
	course       *controller.CourseController
	enrollment   *controller.EnrollmentController
	payment      *controller.PaymentController
	notification *controller.NotificationController
	upload       *controller.UploadController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		course:       repository.NewCourseRepository(db),
		enrollment:   repository.NewEnrollmentRepository(db),
		notification: repository.NewNotificationRepository(db),
		payment:      repository.NewPaymentRepository(db),
	}
}

// newLocker 配置了 Redis 时使用分布式锁，多实例部署下才能互斥
func newLocker(cfg *config.LockConfig, rdb *redis.Client) locker.Locker {
	if rdb != nil {
		return locker.NewRedisLocker(rdb, cfg.TTL(), cfg.Wait())
	}
	return locker.NewLocalLocker(cfg.Wait())
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	hub := service.NewNotificationHub(rdb)
	notification := service.NewNotificationService(repos.notification, hub)
	content := service.NewCourseContentService(db, repos.course, newLocker(&cfg.Lock, rdb))

	return &services{
		auth:          service.NewAuthService(repos.user, cfg),
		content:       content,
		course:        service.NewCourseService(repos.course, content, notification),
		enrollment:    service.NewEnrollmentService(repos.enrollment, repos.course, notification),
		payment:       service.NewPaymentService(db, repos.payment, repos.course, repos.enrollment, notification),
		notification:  notification,
		notifications: hub,
		upload:        service.NewUploadService(service.NewStorageProvider(&cfg.Storage), &cfg.Storage),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		course:       controller.NewCourseController(s.course),
		enrollment:   controller.NewEnrollmentController(s.enrollment),
		payment:      controller.NewPaymentController(s.payment),
		notification: controller.NewNotificationController(s.notification, s.notifications),
		upload:       controller.NewUploadController(s.upload),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	go a.services.notifications.Run(ctx)

	// 配置热更新目前只作用于日志级别
	a.RegisterConfigCallback(logger.SetLevel)
	err := configwatcher.WatchConfig(ctx, a.ConfigDir, func(cfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(cfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config watcher disabled", zap.Error(err))
	}
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	app.repos = app.initRepositories(db)
	app.services = app.initServices(app.repos, cfg, db, rdb)
	controllers := app.initControllers(app.services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, app.repos, cfg)

	if cfg.Storage.Type == "local" {
		if err := os.MkdirAll(cfg.Storage.LocalPath, os.ModePerm); err != nil {
			logger.Log.Warn("Failed to create upload dir", zap.Error(err))
		}
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.startBackgroundTasks(ctx)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
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

	// 请求结束后再关闭通知中心，确保异步通知已落库
	a.services.notification.Wait()
	a.cancel()

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
