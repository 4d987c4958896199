package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/pkg/logger"
	"github.com/okian/ace/pkg/metrics"
	"github.com/okian/ace/pkg/retry"
)

const (
	authHeader          = "X-TBA-Auth-Key"
	defaultTimeout      = 30 * time.Second
	defaultPageParallel = 4
	maxErrorBody        = 512
)

// Endpoint labels for metrics.
const (
	endpointTeams      = "teams"
	endpointTeamEvents = "team_events"
	endpointEventMatch = "event_matches"
)

// TBAClient is a Source backed by the HTTP API. It is safe for concurrent use.
type TBAClient struct {
	baseURL      string
	authKey      string
	http         *http.Client
	retry        retry.Policy
	pageParallel int
	logger       logger.Logger
}

// NewTBAClient creates a client for baseURL, e.g.
// https://www.thebluealliance.com/api/v3.
func NewTBAClient(baseURL, authKey string, opts ...Option) *TBAClient {
	c := &TBAClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		authKey:      authKey,
		http:         &http.Client{Timeout: defaultTimeout},
		retry:        retry.New(),
		pageParallel: defaultPageParallel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.Retryable = IsTransient
	if c.logger == nil {
		c.logger = logger.Get().Named("source")
	}
	return c
}

// TeamsForYear reads the paged team key listing. Pages are fetched
// pageParallel at a time until an empty page is seen.
func (c *TBAClient) TeamsForYear(ctx context.Context, year int) ([]int, error) {
	var teams []int
	for first := 0; ; first += c.pageParallel {
		pages := make([][]string, c.pageParallel)
		g, gctx := errgroup.WithContext(ctx)
		for i := range pages {
			page := first + i
			g.Go(func() error {
				path := fmt.Sprintf("/teams/%d/%d/keys", year, page)
				return c.get(gctx, endpointTeams, path, &pages[i])
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		done := false
		for _, keys := range pages {
			if len(keys) == 0 {
				done = true
				break
			}
			for _, k := range keys {
				n, err := model.ParseTeamKey(k)
				if err != nil {
					c.logger.Warn(ctx, "skipping malformed team key", logger.String("key", k))
					continue
				}
				teams = append(teams, n)
			}
		}
		if done {
			return teams, nil
		}
	}
}

// TeamEvents lists the events a team attended in year.
func (c *TBAClient) TeamEvents(ctx context.Context, team, year int) ([]model.Event, error) {
	var raw []tbaEvent
	path := fmt.Sprintf("/team/%s/events/%d/simple", model.TeamKey(team), year)
	if err := c.get(ctx, endpointTeamEvents, path, &raw); err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(raw))
	for _, e := range raw {
		out = append(out, e.toModel())
	}
	return out, nil
}

// EventMatches lists every match of an event.
func (c *TBAClient) EventMatches(ctx context.Context, eventKey string) ([]model.Match, error) {
	var raw []tbaMatch
	path := "/event/" + url.PathEscape(eventKey) + "/matches"
	if err := c.get(ctx, endpointEventMatch, path, &raw); err != nil {
		return nil, err
	}
	out := make([]model.Match, 0, len(raw))
	for _, m := range raw {
		out = append(out, m.toModel())
	}
	return out, nil
}

// get fetches path into dst, retrying transient failures.
func (c *TBAClient) get(ctx context.Context, endpoint, path string, dst any) error {
	return c.retry.Do(ctx, func(ctx context.Context) error {
		return c.once(ctx, endpoint, path, dst)
	})
}

func (c *TBAClient) once(ctx context.Context, endpoint, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.authKey != "" {
		req.Header.Set(authHeader, c.authKey)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		metrics.RecordSourceRequest(endpoint, 0, msSince(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: GET %s: %w", ErrTransient, path, err)
	}
	defer func() { _ = res.Body.Close() }()
	metrics.RecordSourceRequest(endpoint, res.StatusCode, msSince(start))

	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: GET %s", ErrNotFound, path)
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
		c.logger.Warn(ctx, "source request failed",
			logger.String("path", path),
			logger.Int("status", res.StatusCode),
		)
		return fmt.Errorf("%w: GET %s: %s", ErrTransient, path, res.Status)
	case res.StatusCode/100 != 2:
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return fmt.Errorf("%w: GET %s: %s: %s", ErrUnexpectedStatus, path, res.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: GET %s: %w", ErrTransient, path, err)
		}
		return fmt.Errorf("%w: GET %s: %w", ErrDecode, path, err)
	}
	c.logger.Debug(ctx, "source request", logger.String("path", path), logger.Duration("took", time.Since(start)))
	return nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
