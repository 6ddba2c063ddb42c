package mgmt

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/pmo-agent/internal/health"
	"github.com/p-blackswan/pmo-agent/internal/intent"
)

// Classifier resolves text to an intent, used by the dry-run endpoint.
type Classifier interface {
	Classify(ctx context.Context, text string) intent.Classification
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	classifier Classifier
	checker    *health.Checker
	logger     zerolog.Logger
	startTime  time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(classifier Classifier, checker *health.Checker, logger zerolog.Logger) *Handlers {
	return &Handlers{
		classifier: classifier,
		checker:    checker,
		logger:     logger.With().Str("component", "mgmt_handlers").Logger(),
		startTime:  time.Now(),
	}
}

// ClassifyRequest is the POST /api/v1/classify body.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassifyResponse echoes the classification without executing anything.
type ClassifyResponse struct {
	Intent     string        `json:"intent"`
	Confidence float64       `json:"confidence"`
	Params     intent.Params `json:"params,omitempty"`
}

// ClassifyDryRun handles POST /api/v1/classify. It runs the classifier only;
// no board, repository or Slack call is made.
func (h *Handlers) ClassifyDryRun(c *fiber.Ctx) error {
	var req ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Text == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_text", "Bad Request",
			"Field text is required")
	}

	cls := h.classifier.Classify(c.Context(), req.Text)
	return c.JSON(ClassifyResponse{
		Intent:     string(cls.Intent),
		Confidence: cls.Confidence,
		Params:     cls.Params,
	})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())

	ready := true
	for _, status := range results {
		if status == health.StatusDown {
			ready = false
			break
		}
	}

	body := fiber.Map{"checks": results}
	if ready {
		body["status"] = "ready"
		return c.JSON(body)
	}
	body["status"] = "not_ready"
	return c.Status(fiber.StatusServiceUnavailable).JSON(body)
}

// HealthDetail handles GET /api/v1/health. Returns the last probe results
// without re-running the checks.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"checks":         h.checker.Snapshot(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}
