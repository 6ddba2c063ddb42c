package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080"`

	// Slack
	SlackBotToken      string `envconfig:"SLACK_BOT_TOKEN"`
	SlackSigningSecret string `envconfig:"SLACK_SIGNING_SECRET"`

	// Trello board
	TrelloAPIKey  string `envconfig:"TRELLO_API_KEY"`
	TrelloToken   string `envconfig:"TRELLO_TOKEN"`
	TrelloBoardID string `envconfig:"TRELLO_BOARD_ID"`

	// GitHub repository. Token auth by default; App auth when an app ID and
	// private key are provided.
	GitHubToken          string `envconfig:"GITHUB_TOKEN"`
	GitHubRepo           string `envconfig:"GITHUB_REPO"` // "owner/repo"
	GitHubAppID          int64  `envconfig:"GITHUB_APP_ID"`
	GitHubInstallationID int64  `envconfig:"GITHUB_INSTALLATION_ID"`
	GitHubPrivateKeyPath string `envconfig:"GITHUB_PRIVATE_KEY_PATH"`

	// Intent classification
	OpenAIAPIKey      string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	ClassifierTimeout time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"10s"`
	PlannerEnabled    bool          `envconfig:"PLANNER_ENABLED" default:"false"`
	PhrasesPath       string        `envconfig:"PHRASES_PATH"` // optional YAML status-phrase overrides

	// Processing
	DedupCacheSize int           `envconfig:"DEDUP_CACHE_SIZE" default:"100"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"15s"`

	// Ops API
	MgmtListenAddr string `envconfig:"MGMT_LISTEN_ADDR" default:":8090"`
	MgmtAPIKey     string `envconfig:"MGMT_API_KEY"`
}

// SlackEnabled returns true if Slack credentials are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != ""
}

// BoardEnabled returns true if the Trello credentials are configured.
func (c *Config) BoardEnabled() bool {
	return c.TrelloAPIKey != "" && c.TrelloToken != "" && c.TrelloBoardID != ""
}

// GitHubEnabled returns true if any GitHub credential is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubRepo != "" && (c.GitHubToken != "" || c.GitHubAppEnabled())
}

// GitHubAppEnabled returns true if GitHub App credentials are configured.
func (c *Config) GitHubAppEnabled() bool {
	return c.GitHubAppID > 0 && c.GitHubPrivateKeyPath != ""
}

// ModelEnabled returns true if a completion credential is configured.
func (c *Config) ModelEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// SplitRepo splits GITHUB_REPO into owner and repo name.
func (c *Config) SplitRepo() (owner, repo string, err error) {
	parts := strings.SplitN(c.GitHubRepo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GITHUB_REPO %q, expected owner/repo", c.GitHubRepo)
	}
	return parts[0], parts[1], nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.DedupCacheSize < 1 {
		return nil, fmt.Errorf("DEDUP_CACHE_SIZE must be >= 1, got %d", cfg.DedupCacheSize)
	}
	return &cfg, nil
}
