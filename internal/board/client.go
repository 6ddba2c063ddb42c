// Package board wraps the Trello REST API behind the capability interface
// the dispatcher executes against.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	errs "github.com/p-blackswan/pmo-agent/internal/errors"
	"github.com/p-blackswan/pmo-agent/internal/retry"
)

const defaultBaseURL = "https://api.trello.com"

// List is one column of the board.
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Card is one card on the board.
type Card struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc,omitempty"`
	ListID string `json:"idList"`
	URL    string `json:"url,omitempty"`
}

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Trello REST client scoped to a single board. Credentials ride
// as query parameters, which is how the Trello API authenticates.
type Client struct {
	baseURL    string
	apiKey     string
	token      string
	boardID    string
	httpClient HTTPClient
	retryCfg   retry.Config
	logger     zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// NewClient creates a board client for the given board.
func NewClient(apiKey, token, boardID string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		token:      token,
		boardID:    boardID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retryCfg:   retry.DefaultConfig(),
		logger:     logger.With().Str("component", "board").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BoardID returns the board this client operates on.
func (c *Client) BoardID() string { return c.boardID }

// do executes one authenticated API request and decodes the JSON response
// into out (skipped when out is nil).
func (c *Client) do(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.apiKey)
	params.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return errs.NewAPIError("trello", resp.StatusCode, strings.TrimSpace(string(body)), nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Lists returns the board's lists in board order.
func (c *Client) Lists(ctx context.Context) ([]List, error) {
	return retry.Do(ctx, c.retryCfg, func(ctx context.Context) ([]List, error) {
		var lists []List
		if err := c.do(ctx, http.MethodGet, "/1/boards/"+c.boardID+"/lists", nil, &lists); err != nil {
			return nil, err
		}
		return lists, nil
	})
}

// Cards returns every card on the board in listing order.
func (c *Client) Cards(ctx context.Context) ([]Card, error) {
	return retry.Do(ctx, c.retryCfg, func(ctx context.Context) ([]Card, error) {
		var cards []Card
		if err := c.do(ctx, http.MethodGet, "/1/boards/"+c.boardID+"/cards", nil, &cards); err != nil {
			return nil, err
		}
		return cards, nil
	})
}

// CreateCard creates a card at the bottom of the given list.
func (c *Client) CreateCard(ctx context.Context, listID, name, desc string) (Card, error) {
	params := url.Values{"idList": {listID}, "name": {name}}
	if desc != "" {
		params.Set("desc", desc)
	}

	var card Card
	if err := c.do(ctx, http.MethodPost, "/1/cards", params, &card); err != nil {
		return Card{}, err
	}
	c.logger.Info().Str("card_id", card.ID).Str("list_id", listID).Msg("card created")
	return card, nil
}

// MoveCard moves the card to another list.
func (c *Client) MoveCard(ctx context.Context, cardID, listID string) error {
	params := url.Values{"idList": {listID}}
	if err := c.do(ctx, http.MethodPut, "/1/cards/"+cardID, params, nil); err != nil {
		return err
	}
	c.logger.Info().Str("card_id", cardID).Str("list_id", listID).Msg("card moved")
	return nil
}

// UpdateCard renames a card and/or replaces its description. Empty fields
// are left untouched.
func (c *Client) UpdateCard(ctx context.Context, cardID, name, desc string) error {
	params := url.Values{}
	if name != "" {
		params.Set("name", name)
	}
	if desc != "" {
		params.Set("desc", desc)
	}
	if len(params) == 0 {
		return fmt.Errorf("%w: nothing to update", errs.ErrInvalidInput)
	}
	if err := c.do(ctx, http.MethodPut, "/1/cards/"+cardID, params, nil); err != nil {
		return err
	}
	c.logger.Info().Str("card_id", cardID).Msg("card updated")
	return nil
}

// DeleteCard permanently deletes a card.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	if err := c.do(ctx, http.MethodDelete, "/1/cards/"+cardID, nil, nil); err != nil {
		return err
	}
	c.logger.Info().Str("card_id", cardID).Msg("card deleted")
	return nil
}
