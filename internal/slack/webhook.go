package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/p-blackswan/pmo-agent/internal/dedup"
	"github.com/p-blackswan/pmo-agent/internal/intent"
	"github.com/p-blackswan/pmo-agent/internal/metrics"
)

const maxBodyBytes = 1 << 20

// Classifier resolves an utterance to a single intent.
type Classifier interface {
	Classify(ctx context.Context, text string) intent.Classification
}

// Planner resolves an utterance to a multi-action plan.
type Planner interface {
	Plan(ctx context.Context, text string) (intent.Plan, error)
}

// Resolver executes classifications and plans, returning the reply text.
type Resolver interface {
	HandleClassification(ctx context.Context, cls intent.Classification, userID, rawText string) string
	ExecutePlan(ctx context.Context, plan intent.Plan, userID, rawText string) string
}

// Poster delivers reply text back to the channel the mention came from.
type Poster interface {
	Post(ctx context.Context, channelID, text string) error
}

// Handler is the Events API webhook endpoint. It acknowledges every
// delivery immediately and processes app mentions asynchronously, so Slack
// never retries on slow backends. When a planner is present it is tried
// first; classification is the fallback path.
type Handler struct {
	signingSecret string
	gate          *dedup.Gate
	classifier    Classifier
	planner       Planner
	resolver      Resolver
	poster        Poster
	timeout       time.Duration
	logger        zerolog.Logger
	metrics       *metrics.Metrics

	wg sync.WaitGroup
}

// NewHandler creates the webhook handler. planner may be nil, which
// disables the plan path. An empty signingSecret skips signature
// verification, for local development only.
func NewHandler(signingSecret string, gate *dedup.Gate, classifier Classifier, planner Planner, resolver Resolver, poster Poster, timeout time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		signingSecret: signingSecret,
		gate:          gate,
		classifier:    classifier,
		planner:       planner,
		resolver:      resolver,
		poster:        poster,
		timeout:       timeout,
		logger:        logger.With().Str("component", "slack.webhook").Logger(),
	}
}

// SetMetrics attaches Prometheus metrics.
func (h *Handler) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
}

// Wait blocks until all in-flight event processing finishes. Called during
// graceful shutdown.
func (h *Handler) Wait() {
	h.wg.Wait()
}

type envelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge"`
	EventID   string     `json:"event_id"`
	Event     innerEvent `json:"event"`
}

type innerEvent struct {
	Type    string `json:"type"`
	User    string `json:"user"`
	BotID   string `json:"bot_id"`
	Text    string `json:"text"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
	EventTS string `json:"event_ts"`
}

func (e innerEvent) eventTS() string {
	if e.EventTS != "" {
		return e.EventTS
	}
	return e.TS
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	if h.signingSecret != "" {
		if err := h.verify(r.Header, body); err != nil {
			h.logger.Warn().Err(err).Msg("rejected unsigned or stale request")
			h.recordEvent("unauthorized")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if env.Type == "url_verification" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"challenge": env.Challenge})
		return
	}

	ev := env.Event
	switch {
	case env.Type != "event_callback" || ev.Type != "app_mention":
		h.recordEvent("ignored")

	case ev.BotID != "":
		// Never answer other bots, including ourselves.
		h.recordEvent("ignored")

	default:
		fingerprint := env.EventID + "_" + ev.eventTS()
		if h.gate.Seen(fingerprint) {
			h.logger.Debug().Str("fingerprint", fingerprint).Msg("duplicate delivery dropped")
			h.recordEvent("duplicate")
			break
		}
		h.wg.Add(1)
		go h.process(fingerprint, ev)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true}`))
}

// verify checks the v0 request signature against the signing secret. Slack
// signs "v0:{timestamp}:{body}" with HMAC-SHA256 and the verifier rejects
// timestamps more than five minutes old.
func (h *Handler) verify(header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}

// process runs after the delivery is acknowledged, so failures here can only
// be logged and counted, never reported to Slack's retry machinery.
func (h *Handler) process(fingerprint string, ev innerEvent) {
	defer h.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	start := time.Now()
	label, reply := h.resolve(ctx, ev)
	if h.metrics != nil {
		h.metrics.ObserveDispatch(label, time.Since(start).Seconds())
	}
	h.recordEvent("processed")

	if err := h.poster.Post(ctx, ev.Channel, reply); err != nil {
		h.logger.Error().Err(err).
			Str("fingerprint", fingerprint).
			Str("channel", ev.Channel).
			Msg("posting reply failed")
		if h.metrics != nil {
			h.metrics.RecordError("slack", "post_failed")
		}
	}
}

func (h *Handler) resolve(ctx context.Context, ev innerEvent) (label, reply string) {
	if h.planner != nil {
		plan, err := h.planner.Plan(ctx, ev.Text)
		if err == nil {
			return string(plan.IntentType), h.resolver.ExecutePlan(ctx, plan, ev.User, ev.Text)
		}
		h.logger.Warn().Err(err).Msg("planner unavailable, falling back to classification")
	}

	cls := h.classifier.Classify(ctx, ev.Text)
	if h.metrics != nil {
		h.metrics.RecordIntent(string(cls.Intent))
	}
	return string(cls.Intent), h.resolver.HandleClassification(ctx, cls, ev.User, ev.Text)
}

func (h *Handler) recordEvent(result string) {
	if h.metrics != nil {
		h.metrics.RecordEvent(result)
	}
}
