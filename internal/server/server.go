// Package server contains HTTP and WebSocket handlers for the board API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "posterboard/docs" // swagger docs
	"posterboard/internal/bootstrap"
	"posterboard/internal/cache"
	"posterboard/internal/config"
	"posterboard/internal/featureflags"
	"posterboard/internal/middleware"
	"posterboard/internal/models"
	"posterboard/internal/notifications"
	"posterboard/internal/repository"
	"posterboard/internal/service"
	"posterboard/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
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

// Server owns the board's stores, services and realtime fan-out and serves
// them over fiber.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	blobs          storage.BlobStore
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	pinRepo        repository.PinRepository
	replyRepo      repository.ReplyRepository
	hub            *notifications.Hub
	notifier       *notifications.Notifier
	broadcaster    *notifications.Broadcaster
	featureFlags   *featureflags.Manager
	team           *middleware.TeamGate
	pinService     *service.PinService
	replyService   *service.ReplyService
	posterService  *service.PosterService
}

// NewServer opens the database, Redis and blob store from cfg and wires
// the server on top of them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	deps, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, deps.DB, deps.Redis, deps.Blobs)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; the server then runs single-instance.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, blobs storage.BlobStore) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("server requires a database")
	}
	if blobs == nil {
		return nil, fmt.Errorf("server requires a blob store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		blobs:          blobs,
		promMiddleware: middleware.InitMetrics("posterboard-api"),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		pinRepo:        repository.NewPinRepository(db),
		replyRepo:      repository.NewReplyRepository(db),
		hub:            notifications.NewHub(),
		notifier:       notifications.NewNotifier(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		team:           middleware.NewTeamGate(cfg.JWTSecret, cfg.TeamSecret, cfg.TeamTokenTTL),
	}
	server.broadcaster = notifications.NewBroadcaster(server.hub, server.notifier)

	server.pinService = service.NewPinService(server.pinRepo, server.featureFlags, cfg.DeletePolicy, server.broadcaster)
	server.replyService = service.NewReplyService(server.replyRepo, server.pinRepo, server.broadcaster)
	server.posterService = service.NewPosterService(blobs, cache.NewStore(redisClient), server.featureFlags, cfg.MaxPosterMB)

	if err := server.broadcaster.Start(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("realtime fan-out: %w", err)
	}

	return server, nil
}

// PosterService exposes the poster service for the janitor job.
func (s *Server) PosterService() *service.PosterService {
	return s.posterService
}

// NewApp builds a Fiber app with the board's JSON codec and error handler.
func (s *Server) NewApp() *fiber.App {
	maxBody := s.config.MaxPosterMB
	if maxBody <= 0 {
		maxBody = service.DefaultMaxPosterMB
	}
	return fiber.New(fiber.Config{
		AppName:     "Posterboard API",
		BodyLimit:   (maxBody + 1) * 1024 * 1024,
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			slog.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
}

// SetupMiddleware installs the global chain. CORS runs before the limiter so
// rejected requests still carry CORS headers.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// poster images are served from the blob store's origin
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
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

// SetupRoutes mounts health, metrics, docs and the /api surface.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")

	unlock := []fiber.Handler{}
	if s.redis != nil {
		unlock = append(unlock, middleware.RateLimitWithPolicy(s.redis, 5, time.Minute, middleware.FailClosed, "team_unlock"))
	}
	api.Post("/team/unlock", append(unlock, s.UnlockTeam)...)

	pins := api.Group("/pins")
	pins.Get("/", s.ListPins)
	pins.Post("/", middleware.Cooldown(s.redis, s.config.PostCooldown, "create_pin", cooldownMessage(s.config.PostCooldown)), s.CreatePin)
	// specific routes before /:id
	pins.Get("/list", s.team.Required(), s.ListPinsForTeam)
	pins.Get("/:id/replies", s.ListReplies)
	pins.Post("/:id/replies", s.CreateReply)
	pins.Delete("/:id", s.team.Detect(), s.DeletePin)

	poster := api.Group("/poster")
	poster.Get("/", s.GetPoster)
	poster.Post("/", s.team.Required(), s.UploadPoster)

	ws := api.Group("/ws", s.upgradeRequired)
	ws.Get("/board", s.BoardSocket())
	ws.Get("/pins/:id", s.requirePin, s.RepliesSocket())
}

// Start builds the app and listens on the configured port until Shutdown.
func (s *Server) Start() error {
	app := s.NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	slog.Info("board server listening", "port", s.config.Port, "delete_policy", s.config.DeletePolicy, "flags", s.featureFlags.String())
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops the redis subscriber, drains HTTP, closes viewer sockets
// and then releases the stores. Every step runs; failures are joined.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()

	var errs []error
	step := func(what string, err error) {
		if err != nil {
			slog.ErrorContext(ctx, "shutdown step failed", "step", what, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", what, err))
		}
	}

	if s.app != nil {
		step("http", s.app.ShutdownWithContext(ctx))
	}
	step("hub", s.hub.Shutdown(ctx))
	if sqlDB, err := s.db.DB(); err == nil {
		step("database", sqlDB.Close())
	}
	if s.redis != nil {
		step("redis", s.redis.Close())
	}

	slog.InfoContext(ctx, "board server stopped")
	return errors.Join(errs...)
}

func cooldownMessage(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs == 1 {
		return "Please wait 1 second between posts."
	}
	return fmt.Sprintf("Please wait %d seconds between posts.", secs)
}
