package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"tp_portal_backend/internal/config"
	"tp_portal_backend/internal/controller"
	"tp_portal_backend/internal/repository"
	"tp_portal_backend/internal/service"
	"tp_portal_backend/internal/util"
	"tp_portal_backend/pkg/configwatcher"
	"tp_portal_backend/pkg/database"
	"tp_portal_backend/pkg/logger"
	"tp_portal_backend/pkg/monitoring"
	"tp_portal_backend/pkg/security"
	"tp_portal_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	// ConfigFile is watched for changes while the server runs.
	ConfigFile string

	services        *services
	cors            *security.CORS
	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	accessCode   *repository.AccessCodeRepository
	registration *repository.RegistrationRepository
	approval     *repository.ApprovalRepository
	notification *repository.NotificationRepository
	review       *repository.ReviewRepository
	tokens       service.TokenStore
}

type services struct {
	auth         *service.AuthService
	codes        *service.CodeService
	storage      *service.StorageService
	notification *service.NotificationService
	hub          *service.NotificationHub
	approval     *service.ApprovalService
	supervisor   *service.SupervisorService
	review       *service.ReviewService
	welcome      *service.WelcomeService
	dashboard    *service.DashboardService
	export       *service.ExportService
	user         *service.UserService
}

type controllers struct {
	auth         *controller.AuthController
	contact      *controller.ContactController
	profile      *controller.ProfileController
	notification *controller.NotificationController
	student      *controller.StudentController
	supervisor   *controller.SupervisorController
	coordinator  *controller.CoordinatorController
	admin        *controller.AdminController
	health       *controller.HealthController
}

// RegisterConfigCallback runs callback with every reloaded config.
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	repos := &repositories{
		user:         repository.NewUserRepository(db),
		accessCode:   repository.NewAccessCodeRepository(db),
		registration: repository.NewRegistrationRepository(db),
		approval:     repository.NewApprovalRepository(db),
		notification: repository.NewNotificationRepository(db),
		review:       repository.NewReviewRepository(db),
	}
	if rdb != nil {
		repos.tokens = repository.NewRedisTokenRepository(rdb)
	} else {
		repos.tokens = repository.NewMemoryTokenRepository()
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	// with Redis every instance hears every notification; without it only
	// this process does
	var bus service.NotificationBus
	if rdb != nil {
		redisBus := service.NewRedisBus(rdb)
		go redisBus.Run(a.ctx)
		bus = redisBus
	} else {
		bus = service.NewLocalBus()
	}

	s.storage = service.NewStorageService(cfg)
	s.codes = service.NewCodeService(repos.accessCode, repos.registration, cfg)
	s.auth = service.NewAuthService(repos.user, s.codes, repos.tokens, cfg)
	s.notification = service.NewNotificationService(repos.notification, bus)
	s.approval = service.NewApprovalService(repos.user, repos.approval, s.notification)
	s.supervisor = service.NewSupervisorService(repos.user, repos.review, s.notification)
	s.review = service.NewReviewService(repos.user, repos.review)
	s.welcome = service.NewWelcomeService(repos.user, repos.review, cfg.Notify.WelcomeBackWindow())
	s.dashboard = service.NewDashboardService(repos.user, repos.review)
	s.export = service.NewExportService(repos.user)
	s.user = service.NewUserService(repos.user, s.storage, repos.tokens)

	s.hub = service.NewNotificationHub(s.notification)
	s.hub.Accounts = s.auth
	s.user.Sessions = s.hub
	go s.hub.Run(a.ctx)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		contact:      controller.NewContactController(a.Config),
		profile:      controller.NewProfileController(s.auth, s.user, s.welcome),
		notification: controller.NewNotificationController(s.notification, s.hub),
		student:      controller.NewStudentController(s.approval, s.welcome, s.review, s.dashboard),
		supervisor:   controller.NewSupervisorController(s.supervisor, s.approval),
		coordinator:  controller.NewCoordinatorController(s.dashboard, s.export),
		admin:        controller.NewAdminController(s.codes, s.user, s.dashboard),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	a.cors = security.NewCORS(cfg.CORS.AllowedOrigins)
	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	go a.limiter.Sweep(a.ctx)

	router.Use(a.cors.Middleware())
	router.Use(security.Secure())
	router.Use(a.limiter.Middleware())

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// applyConfig pushes the settings that may change at runtime into the
// running components.
func (a *App) applyConfig(cfg *config.Config) {
	a.cors.SetOrigins(cfg.CORS.AllowedOrigins)
	a.limiter.SetLimit(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	a.services.welcome.SetWindow(cfg.Notify.WelcomeBackWindow())

	logger.Log.Info("Runtime settings updated",
		zap.Strings("corsOrigins", cfg.CORS.AllowedOrigins),
		zap.Int("rateLimit", cfg.RateLimit.MaxRequests),
		zap.Int("welcomeBackMinutes", cfg.Notify.WelcomeBackMinutes),
	)
}

func NewApp(cfg *config.Config) *App {
	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:     cfg,
		DB:         db,
		ConfigFile: filepath.Join("configs", "config.yaml"),
		ctx:        ctx,
		cancel:     cancel,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	repos := app.initRepositories(db, rdb)
	app.services = app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(app.services, db, rdb)

	suspended, err := app.services.auth.SyncSuspensions(ctx)
	if err != nil {
		logger.Log.Fatal("Failed to load suspended accounts", zap.Error(err))
	}
	logger.Log.Info("Suspended accounts loaded", zap.Int("count", suspended))

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("tp-portal", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = 8 << 20
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(app.applyConfig)
	return app
}

func (a *App) watchConfig() {
	err := configwatcher.Watch(a.ctx, a.ConfigFile, func(cfg *config.Config) {
		for _, callback := range a.configCallbacks {
			callback(cfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.String("file", a.ConfigFile), zap.Error(err))
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go a.watchConfig()

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// stops the hub, the Redis relay, the limiter sweep and the config watcher
	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
	logger.Log.Sync()
}
