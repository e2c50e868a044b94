package app

import (
	"context"
	"credlyse_backend/internal/config"
	"credlyse_backend/internal/controller"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/repository"
	"credlyse_backend/internal/service"
	"credlyse_backend/internal/util"
	"credlyse_backend/pkg/cache"
	"credlyse_backend/pkg/configwatcher"
	"credlyse_backend/pkg/database"
	"credlyse_backend/pkg/logger"
	"credlyse_backend/pkg/monitoring"
	"credlyse_backend/pkg/ratelimit"
	"credlyse_backend/pkg/security"
	"credlyse_backend/pkg/tracing"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	limiters        *limiters
	scheduler       *cron.Cron
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)

	ctx    context.Context
	cancel context.CancelFunc
}

type repositories struct {
	user        *repository.UserRepository
	course      *repository.CourseRepository
	video       *repository.VideoRepository
	enrollment  *repository.EnrollmentRepository
	progress    *repository.ProgressRepository
	certificate *repository.CertificateRepository
}

type caches struct {
	transcripts *cache.TTLCache[string]
	quizzes     *cache.TTLCache[model.QuizData]
}

type limiters struct {
	api *ratelimit.Limiter
	ai  *ratelimit.Limiter
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	ai          *service.AIService
	progress    *service.ProgressService
	course      *service.CourseService
	certificate *service.CertificateService
	analysis    *service.AnalysisService
	analytics   *service.AnalyticsService
	events      *service.EventHub
}

type controllers struct {
	auth        *controller.AuthController
	progress    *controller.ProgressController
	course      *controller.CourseController
	certificate *controller.CertificateController
	analysis    *controller.AnalysisController
	analytics   *controller.AnalyticsController
	cache       *controller.CacheController
	health      *controller.HealthController
	events      *controller.EventController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		course:      repository.NewCourseRepository(db),
		video:       repository.NewVideoRepository(db),
		enrollment:  repository.NewEnrollmentRepository(db),
		progress:    repository.NewProgressRepository(db),
		certificate: repository.NewCertificateRepository(db),
	}
}

func cachePolicy(p config.CachePolicy, size int, ttl time.Duration) (int, time.Duration) {
	if p.MaxSize > 0 {
		size = p.MaxSize
	}
	if p.TTL > 0 {
		ttl = p.TTL
	}
	return size, ttl
}

func (a *App) initCaches(cfg *config.Config) *caches {
	tSize, tTTL := cachePolicy(cfg.Cache.Transcript, util.TranscriptCacheSize, util.TranscriptCacheTTL)
	qSize, qTTL := cachePolicy(cfg.Cache.Quiz, util.QuizCacheSize, util.QuizCacheTTL)
	c := &caches{
		transcripts: cache.New[string](tSize, tTTL),
		quizzes:     cache.New[model.QuizData](qSize, qTTL),
	}

	if err := monitoring.RegisterCache(util.CacheTranscript, c.transcripts.Stats); err != nil {
		logger.Log.Warn("Failed to register cache metrics", zap.String("cache", util.CacheTranscript), zap.Error(err))
	}
	if err := monitoring.RegisterCache(util.CacheQuiz, c.quizzes.Stats); err != nil {
		logger.Log.Warn("Failed to register cache metrics", zap.String("cache", util.CacheQuiz), zap.Error(err))
	}
	return c
}

func (a *App) initServices(repos *repositories, c *caches, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{events: service.NewEventHub()}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)

	var store service.TranscriptStore
	if rdb != nil {
		store = &service.RedisTranscriptStore{Client: rdb, TTL: cfg.Redis.TranscriptTTL}
	}
	s.ai = service.NewAIService(cfg.AI, c.transcripts, c.quizzes, store)

	s.progress = service.NewProgressService(db, repos.enrollment, repos.progress, repos.video)
	s.course = service.NewCourseService(repos.course, repos.video, repos.enrollment)
	s.certificate = service.NewCertificateService(
		db,
		repos.certificate,
		repos.enrollment,
		repos.progress,
		repos.course,
		repos.video,
		repos.user,
		service.NewPNGCertificateRenderer(s.storage, cfg.Certificate.ArtifactPrefix),
		service.Notifiers{service.NewNotifier(cfg), s.events},
	)
	s.analysis = service.NewAnalysisService(repos.course, repos.video, s.ai, cfg.Batch.Concurrency)
	s.analysis.Events = s.events
	s.analytics = service.NewAnalyticsService(
		repos.course,
		repos.video,
		repos.enrollment,
		repos.progress,
		repos.certificate,
		repos.user,
	)
	return s
}

func (a *App) initControllers(s *services, c *caches, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		progress:    controller.NewProgressController(s.progress),
		course:      controller.NewCourseController(s.course),
		certificate: controller.NewCertificateController(s.certificate, a.Config.Certificate.VerifyBaseURL),
		analysis:    controller.NewAnalysisController(s.analysis),
		analytics:   controller.NewAnalyticsController(s.analytics),
		cache: controller.NewCacheController(map[string]controller.NamedCache{
			util.CacheTranscript: c.transcripts,
			util.CacheQuiz:       c.quizzes,
		}),
		health: controller.NewHealthController(db, rdb),
		events: controller.NewEventController(s.events),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks schedules limiter cleanup and the pending-analysis sweep.
func (a *App) startBackgroundTasks(cfg *config.Config) error {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Log))
	a.scheduler = cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	interval := cfg.RateLimit.CleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	maxAge := cfg.RateLimit.MaxAge
	if _, err := a.scheduler.AddFunc("@every "+interval.String(), func() {
		removed := a.limiters.api.Cleanup(maxAge) + a.limiters.ai.Cleanup(maxAge)
		if removed > 0 {
			logger.Log.Debug("Idle rate limit buckets removed", zap.Int("count", removed))
		}
	}); err != nil {
		return err
	}

	if spec := cfg.Batch.SweepSpec; spec != "" {
		if _, err := a.scheduler.AddFunc(spec, func() {
			if err := a.services.analysis.SweepPending(a.ctx); err != nil {
				logger.Log.Warn("Pending analysis sweep stopped", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	a.scheduler.Start()
	return nil
}

func (a *App) watchConfig() {
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		a.limiters.api.SetPolicy(newCfg.RateLimit.Default)
		a.limiters.ai.SetPolicy(newCfg.RateLimit.AI)
		logger.Log.Info("Rate limit policies reloaded",
			zap.Int("default_rpm", newCfg.RateLimit.Default.RequestsPerMinute),
			zap.Int("ai_rpm", newCfg.RateLimit.AI.RequestsPerMinute))
	})

	go func() {
		err := configwatcher.Watch(a.ctx, filepath.Join(configDir, "config.yaml"), func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis unavailable, transcripts cached in process only", zap.Error(err))
		} else {
			app.Redis = rdb
		}
	}

	app.ctx, app.cancel = context.WithCancel(context.Background())

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	repos := app.initRepositories(db)
	c := app.initCaches(cfg)
	app.services = app.initServices(repos, c, cfg, db, app.Redis)
	app.limiters = &limiters{
		api: ratelimit.New(cfg.RateLimit.Default),
		ai:  ratelimit.New(cfg.RateLimit.AI),
	}
	controllers := app.initControllers(app.services, c, db, app.Redis)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	if err := app.startBackgroundTasks(cfg); err != nil {
		logger.Log.Fatal("Failed to schedule background tasks", zap.Error(err))
	}
	app.watchConfig()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close stops background work and releases connections.
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}
	if a.services != nil {
		a.services.events.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
