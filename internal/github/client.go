// Package github wraps the GitHub API behind the repository capability the
// dispatcher executes against.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	errs "github.com/p-blackswan/pmo-agent/internal/errors"
)

// Commit is the subset of commit data the assistant reports on.
type Commit struct {
	SHA     string
	Message string
	Author  string
	Date    time.Time
	URL     string
}

// Issue is the subset of issue data the assistant reports on.
type Issue struct {
	Number int
	Title  string
	State  string
	Author string
	URL    string
}

// RepoInfo summarizes the repository.
type RepoInfo struct {
	FullName    string
	Description string
	Stars       int
	Forks       int
	OpenIssues  int
	URL         string
}

// Client is a GitHub API client scoped to a single repository.
type Client struct {
	owner  string
	repo   string
	gh     *github.Client
	logger zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the underlying client at a different API endpoint
// (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		parsed, err := url.Parse(strings.TrimSuffix(u, "/") + "/")
		if err != nil {
			panic(fmt.Sprintf("github: invalid base URL %q: %v", u, err))
		}
		c.gh.BaseURL = parsed
	}
}

// NewClient creates a client authenticated with a personal access token.
func NewClient(token, owner, repo string, logger zerolog.Logger, opts ...Option) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return newClient(oauth2.NewClient(context.Background(), ts), owner, repo, logger, opts...)
}

func newClient(hc *http.Client, owner, repo string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		owner:  owner,
		repo:   repo,
		gh:     github.NewClient(hc),
		logger: logger.With().Str("component", "github").Str("repo", owner+"/"+repo).Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Repo returns the owner/name pair this client is scoped to.
func (c *Client) Repo() string { return c.owner + "/" + c.repo }

// RecentCommits returns the newest limit commits on the default branch.
func (c *Client) RecentCommits(ctx context.Context, limit int) ([]Commit, error) {
	if limit < 1 {
		limit = 1
	}
	commits, resp, err := c.gh.Repositories.ListCommits(ctx, c.owner, c.repo, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, wrapAPIError("listing commits", resp, err)
	}

	out := make([]Commit, 0, len(commits))
	for _, rc := range commits {
		cm := Commit{
			SHA: rc.GetSHA(),
			URL: rc.GetHTMLURL(),
		}
		if gc := rc.GetCommit(); gc != nil {
			cm.Message = firstLine(gc.GetMessage())
			if a := gc.GetAuthor(); a != nil {
				cm.Author = a.GetName()
				cm.Date = a.GetDate().Time
			}
		}
		if cm.Author == "" {
			cm.Author = rc.GetAuthor().GetLogin()
		}
		out = append(out, cm)
	}
	return out, nil
}

// Issues returns the repository's issues with the given state ("open",
// "closed" or "all"). Pull requests are excluded.
func (c *Client) Issues(ctx context.Context, state string) ([]Issue, error) {
	if state == "" {
		state = "open"
	}
	issues, resp, err := c.gh.Issues.ListByRepo(ctx, c.owner, c.repo, &github.IssueListByRepoOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: 30},
	})
	if err != nil {
		return nil, wrapAPIError("listing issues", resp, err)
	}

	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if is.IsPullRequest() {
			continue
		}
		out = append(out, Issue{
			Number: is.GetNumber(),
			Title:  is.GetTitle(),
			State:  is.GetState(),
			Author: is.GetUser().GetLogin(),
			URL:    is.GetHTMLURL(),
		})
	}
	return out, nil
}

// Info returns repository metadata.
func (c *Client) Info(ctx context.Context) (RepoInfo, error) {
	repo, resp, err := c.gh.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		return RepoInfo{}, wrapAPIError("fetching repository", resp, err)
	}
	return RepoInfo{
		FullName:    repo.GetFullName(),
		Description: repo.GetDescription(),
		Stars:       repo.GetStargazersCount(),
		Forks:       repo.GetForksCount(),
		OpenIssues:  repo.GetOpenIssuesCount(),
		URL:         repo.GetHTMLURL(),
	}, nil
}

func wrapAPIError(op string, resp *github.Response, err error) error {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	return errs.NewAPIError("github", status, op, err)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
