package github

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// refresh slightly before GitHub's one-hour expiry
const tokenRefreshMargin = 5 * time.Minute

// NewAppClient creates a client authenticated as a GitHub App installation.
// Installation tokens are fetched lazily and cached until shortly before
// they expire.
func NewAppClient(appID, installationID int64, privateKeyPath, owner, repo string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	keyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	return NewAppClientFromKeyBytes(appID, installationID, keyData, owner, repo, logger, opts...)
}

// NewAppClientFromKeyBytes creates an App client from PEM key bytes
// (useful for testing).
func NewAppClientFromKeyBytes(appID, installationID int64, keyData []byte, owner, repo string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyData)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	at := &appTransport{
		appID:          appID,
		installationID: installationID,
		privateKey:     key,
		base:           http.DefaultTransport,
		logger:         logger.With().Str("component", "github.app").Logger(),
	}
	hc := &http.Client{Transport: at, Timeout: 30 * time.Second}

	c := newClient(hc, owner, repo, logger, opts...)
	// the token endpoint follows the configured API base
	at.tokenURL = c.gh.BaseURL.String() + fmt.Sprintf("app/installations/%d/access_tokens", installationID)
	return c, nil
}

// appTransport injects a cached installation token into every request,
// minting a new one via an App JWT when the cache is cold or stale.
type appTransport struct {
	appID          int64
	installationID int64
	privateKey     *rsa.PrivateKey
	tokenURL       string
	base           http.RoundTripper
	logger         zerolog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func (t *appTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.installationToken(req)
	if err != nil {
		return nil, err
	}
	req2 := req.Clone(req.Context())
	req2.Header.Set("Authorization", "token "+token)
	return t.base.RoundTrip(req2)
}

func (t *appTransport) installationToken(req *http.Request) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiresAt.Add(-tokenRefreshMargin)) {
		return t.token, nil
	}

	t.logger.Info().Int64("installation_id", t.installationID).Msg("minting installation token")
	jwtToken, err := t.generateJWT()
	if err != nil {
		return "", fmt.Errorf("generating JWT: %w", err)
	}

	tokenReq, err := http.NewRequestWithContext(req.Context(), http.MethodPost, t.tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	tokenReq.Header.Set("Authorization", "Bearer "+jwtToken)
	tokenReq.Header.Set("Accept", "application/vnd.github+json")

	resp, err := t.base.RoundTrip(tokenReq)
	if err != nil {
		return "", fmt.Errorf("requesting installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("installation token request failed (status %d): %s", resp.StatusCode, body)
	}

	var tokenResp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	t.token = tokenResp.Token
	t.expiresAt = tokenResp.ExpiresAt
	return t.token, nil
}

// generateJWT creates a short-lived JWT for GitHub App authentication.
func (t *appTransport) generateJWT() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    fmt.Sprintf("%d", t.appID),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(t.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing JWT: %w", err)
	}
	return signed, nil
}
