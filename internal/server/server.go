package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/planwise/planwise/internal/auth"
	"github.com/planwise/planwise/internal/health"
	"github.com/planwise/planwise/internal/metrics"
	"github.com/planwise/planwise/internal/requestid"
	"github.com/planwise/planwise/internal/stories"
	"github.com/planwise/planwise/internal/store"
)

// Config holds configuration for the API server.
type Config struct {
	ListenAddr  string
	CORSOrigins string
	RateLimit   RateLimitConfig
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	store     *store.Store
	stories   *stories.Service
	tokens    *auth.Manager
	checker   *health.Checker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	startTime time.Time
}

// Server is the planwise API Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	limiter  *rateLimiter
	logger   zerolog.Logger
	config   Config
}

// New creates and configures the API server.
func New(
	cfg Config,
	st *store.Store,
	storySvc *stories.Service,
	tokens *auth.Manager,
	checker *health.Checker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	handlers := &Handlers{
		store:     st,
		stories:   storySvc,
		tokens:    tokens,
		checker:   checker,
		metrics:   m,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}

	s := &Server{
		app:      app,
		handlers: handlers,
		logger:   logger.With().Str("component", "server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, tokens, m, logger)
	s.setupRoutes(handlers, m)

	return s
}

func (s *Server) setupMiddleware(cfg Config, tokens *auth.Manager, m *metrics.Metrics, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware
	s.app.Use(func(c *fiber.Ctx) error {
		_, reqID := requestid.New(c.Context())
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	// Request metrics
	if m != nil {
		s.app.Use(func(c *fiber.Ctx) error {
			start := time.Now()
			err := c.Next()
			route := c.Route().Path
			m.RecordRequest(c.Method(), route, fmt.Sprintf("%d", c.Response().StatusCode()))
			m.ObserveRequestDuration(route, time.Since(start).Seconds())
			return err
		})
	}

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
		}))
	}

	if cfg.RateLimit.RPS > 0 {
		s.limiter = newRateLimiter(cfg.RateLimit)
		s.app.Use(s.limiter.middleware())
	}

	s.app.Use(NewAuthMiddleware(tokens, logger))

	// Audit middleware (log every request)
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", fmt.Sprintf("%v", c.Locals("request_id"))).
			Msg("api request")

		return c.Next()
	})
}

func (s *Server) setupRoutes(h *Handlers, m *metrics.Metrics) {
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)

	if m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	authGroup := s.app.Group("/api/auth")
	authGroup.Post("/register", h.Register)
	authGroup.Post("/login", h.Login)

	users := s.app.Group("/api/users")
	users.Get("/", requireRole(RoleAdmin, RoleManager), h.ListUsers)
	users.Get("/me", h.Me)
	users.Delete("/me", h.DeleteAccount)

	projects := s.app.Group("/api/projects")
	projects.Post("/", requireRole(RoleAdmin, RoleManager), h.CreateProject)
	projects.Get("/", h.ListProjects)
	projects.Get("/:id", h.GetProject)
	projects.Put("/:id", requireRole(RoleAdmin, RoleManager), h.UpdateProject)
	projects.Delete("/:id", requireRole(RoleAdmin), h.DeleteProject)
	projects.Post("/:id/assign-members", requireRole(RoleAdmin, RoleManager), h.AssignMembers)
	projects.Get("/:id/summary", h.ProjectSummary)
	projects.Get("/:id/members", requireRole(RoleAdmin, RoleManager), h.ListMembers)
	projects.Post("/:id/members", requireRole(RoleAdmin, RoleManager), h.AddMembers)
	projects.Put("/:id/members/:userId", requireRole(RoleAdmin, RoleManager), h.UpdateMemberRole)
	projects.Delete("/:id/members/:userId", requireRole(RoleAdmin, RoleManager), h.RemoveMember)

	tasks := s.app.Group("/api/tasks")
	tasks.Post("/", requireRole(RoleAdmin, RoleManager), h.CreateTask)
	tasks.Get("/", h.ListTasks)
	tasks.Get("/reports/summary", h.TaskSummary)
	tasks.Put("/:id", h.UpdateTask)
	tasks.Delete("/:id", requireRole(RoleAdmin, RoleManager), h.DeleteTask)

	ai := s.app.Group("/api/ai")
	ai.Post("/generate-user-stories", h.GenerateStories)
	ai.Get("/user-stories/:projectId", h.ListStories)
	ai.Post("/user-stories/:storyId/convert-to-task", h.ConvertStory)
	ai.Put("/user-stories/:storyId/status", h.UpdateStoryStatus)
	ai.Delete("/user-stories/:storyId", h.DeleteStory)
}

// customErrorHandler converts unhandled Fiber errors to problem responses.
func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if fe, ok := err.(*fiber.Error); ok {
			code = fe.Code
		}

		if code >= 500 {
			logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled server error")
		}

		return problemResponse(c, code, "internal_error", "Error", err.Error())
	}
}

// App returns the underlying Fiber app (for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("API server starting")
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully stops the server and the rate limiter's janitor.
func (s *Server) Shutdown() error {
	if s.limiter != nil {
		s.limiter.Close()
	}
	return s.app.ShutdownWithTimeout(10 * time.Second)
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(h.startTime).String(),
	})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	ready, results := h.checker.Ready(c.Context())
	status := fiber.StatusOK
	if !ready {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"ready":  ready,
		"checks": results,
	})
}
