// Package mgmt is the operations API: probes, a dry-run classification
// endpoint and a health detail view, served on a separate listener from the
// Slack webhook.
package mgmt

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/pmo-agent/internal/health"
	"github.com/p-blackswan/pmo-agent/internal/requestid"
)

// ServerConfig holds configuration for the operations API server.
type ServerConfig struct {
	ListenAddr string
	APIKey     string // empty disables auth
}

// Server is the operations API Fiber application.
type Server struct {
	app    *fiber.App
	config ServerConfig
	logger zerolog.Logger
}

// NewServer creates and configures the operations API server.
func NewServer(cfg ServerConfig, classifier Classifier, checker *health.Checker, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:    app,
		config: cfg,
		logger: logger.With().Str("component", "mgmt_server").Logger(),
	}

	handlers := NewHandlers(classifier, checker, logger)
	s.setupMiddleware(cfg, logger)
	s.setupRoutes(handlers)

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, logger zerolog.Logger) {
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

	// API key auth. Probes stay open.
	s.app.Use(func(c *fiber.Ctx) error {
		if cfg.APIKey == "" || isProbePath(c.Path()) {
			return c.Next()
		}
		key := c.Get("X-API-Key")
		if key == "" {
			key = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		}
		if key != cfg.APIKey {
			return problemResponse(c, fiber.StatusUnauthorized,
				"unauthorized", "Unauthorized",
				"Missing or invalid API key")
		}
		return c.Next()
	})

	// Audit middleware (log every request)
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		// Skip noisy probe logging
		if isProbePath(path) {
			return c.Next()
		}

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", c.Locals("request_id").(string)).
			Msg("mgmt api request")

		return c.Next()
	})
}

func isProbePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

func (s *Server) setupRoutes(h *Handlers) {
	// Probe endpoints (no auth required)
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)

	// Full Prometheus exposition lives on the webhook server.
	s.app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/plain; charset=utf-8")
		return c.SendString("# Prometheus metrics are served on the main HTTP server\n")
	})

	v1 := s.app.Group("/api/v1")
	v1.Post("/classify", h.ClassifyDryRun)
	v1.Get("/health", h.HealthDetail)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8090"
	}
	s.logger.Info().Str("addr", addr).Msg("operations API server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("operations API server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		return problemResponse(c, code, "internal_error", "Internal Server Error", err.Error())
	}
}

// problemResponse writes an RFC 7807 style error body.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(fiber.Map{
		"type":   errType,
		"title":  title,
		"detail": detail,
		"status": status,
	})
}
