// Package server contains the HTTP handlers for the feed API.
package server

import (
	"context"
	"fmt"
	"time"

	_ "inkfeed/docs" // swagger docs
	"inkfeed/internal/cache"
	"inkfeed/internal/config"
	"inkfeed/internal/database"
	"inkfeed/internal/middleware"
	"inkfeed/internal/models"
	"inkfeed/internal/observability"
	"inkfeed/internal/repository"
	"inkfeed/internal/scheduler"
	"inkfeed/internal/service"
	"inkfeed/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// localCacheMaxTTL bounds every entry in the in-process cache backend.
const localCacheMaxTTL = 5 * time.Minute

type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	cache          cache.Store
	sched          *scheduler.Scheduler

	userRepo repository.UserRepository
	postRepo repository.PostRepository
	relRepo  repository.RelationshipRepository

	feedService        *service.FeedService
	interactionService *service.InteractionService
	postService        *service.PostService
	followService      *service.FollowService
}

// NewServer connects to the database and Redis and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// nil when Redis is unreachable; rate limits then fail open and the
	// in-process cache is used.
	redisClient := cache.Connect(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps wires the server around existing connections.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	store := newCacheStore(cfg, redisClient)
	sched := scheduler.New(cfg.SchedulerMaxConcurrency, scheduler.WithName("app"))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	relRepo := repository.NewRelationshipRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: observability.NewHTTPMetrics("inkfeed-api"),
		cache:          store,
		sched:          sched,
		userRepo:       userRepo,
		postRepo:       postRepo,
		relRepo:        relRepo,
	}

	server.feedService = service.NewFeedService(
		postRepo, relRepo, service.NewResponseAssembler(relRepo), store, sched, service.FeedConfigFrom(cfg))
	server.interactionService = service.NewInteractionService(
		repository.NewInteractionStore(db), service.InteractionConfigFrom(cfg))
	server.postService = service.NewPostService(
		postRepo, storage.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL), sched, store)
	server.followService = service.NewFollowService(userRepo, relRepo, store)

	return server, nil
}

func newCacheStore(cfg *config.Config, redisClient *redis.Client) cache.Store {
	if cfg.CacheBackend == config.CacheBackendRedis {
		if redisClient != nil {
			return cache.NewRedis(redisClient)
		}
		observability.Logger.Warn("redis cache backend requested but redis is unavailable, using in-process cache")
	}
	return cache.NewLRU(cfg.CacheSize, localCacheMaxTTL)
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	bodyLimit := s.config.MediaMaxUploadMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:   "Inkfeed API",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			observability.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware installs the global middleware chain.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes registers every API route on app.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if s.config.MediaBaseURL != "" && s.config.MediaDir != "" {
		app.Static(s.config.MediaBaseURL, s.config.MediaDir)
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	secret := s.config.JWTSecret
	requireAuth := middleware.AuthRequired(secret)
	optionalAuth := middleware.OptionalAuth(secret)

	feed := api.Group("/feed")
	feed.Get("/", optionalAuth, s.GetFeed)
	feed.Get("/following", requireAuth, s.GetFollowingFeed)

	toggleLimit := middleware.RateLimit(s.redis, 120, time.Minute, "toggle")

	posts := api.Group("/posts")
	posts.Post("/", requireAuth, middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:id", optionalAuth, s.GetPost)
	posts.Delete("/:id", requireAuth, s.DeletePost)
	posts.Post("/:id/toggle", requireAuth, toggleLimit, s.TogglePostInteraction)
	posts.Post("/:id/like", requireAuth, toggleLimit, s.toggleKind(models.InteractionLike))
	posts.Post("/:id/save", requireAuth, toggleLimit, s.toggleKind(models.InteractionSave))

	users := api.Group("/users", requireAuth)
	users.Post("/:id/follow", middleware.RateLimit(
		s.redis, 30, time.Minute, "follow"), s.FollowUser)
	users.Delete("/:id/follow", s.UnfollowUser)
}

// Start builds the app and blocks serving on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()

	observability.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, drains the scheduler and closes
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	// Pending media deletes still run; new work is refused.
	if s.sched != nil {
		s.sched.Close()
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				observability.Logger.Error("error closing sql DB", "error", cerr)
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			observability.Logger.Error("error closing redis", "error", rerr)
		}
	}

	observability.Logger.Info("server shutdown complete")
	return nil
}
