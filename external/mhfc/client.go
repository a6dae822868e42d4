// Package mhfc is the fixtures collaborator: it scrapes the Maccabi Haifa FC
// site's matches page and hands the raw rows to the normalizer.
package mhfc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/net/html"

	"github.com/matchcal/matchcal/internal/domain/match"
	"github.com/matchcal/matchcal/internal/platform/logging"
)

const (
	defaultBaseURL      = "https://www.mhaifafc.com/matches"
	defaultLookahead    = 120 * 24 * time.Hour
	upcomingTab         = "משחקים הבאים"
	maxPageBytes        = 8 << 20
	defaultFetchTimeout = 30 * time.Second
)

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration
	// Lookahead is the offset of the second date filter. The site's "Load
	// More" hides fixtures past the first screen; a second request filtered
	// from this far ahead captures them without executing any scripts.
	Lookahead time.Duration
	Logger    *logging.Logger
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	lookahead  time.Duration
	logger     *logging.Logger
	sourceLoc  *time.Location
	now        func() time.Time
}

func NewClient(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultFetchTimeout
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	lookahead := cfg.Lookahead
	if lookahead <= 0 {
		lookahead = defaultLookahead
	}

	sourceLoc, err := time.LoadLocation(match.SourceTimezone)
	if err != nil {
		return nil, crerr.Wrapf(err, "load timezone %s", match.SourceTimezone)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		lookahead:  lookahead,
		logger:     logger,
		sourceLoc:  sourceLoc,
		now:        time.Now,
	}, nil
}

// FetchMatches scrapes the upcoming-fixtures tab twice, once filtered from
// now and once from the lookahead offset, and merges the unique rows. One
// request may fail as long as the other returns fixtures.
func (c *Client) FetchMatches(ctx context.Context) ([]match.Raw, error) {
	now := c.now()
	urls := []string{
		c.pageURL(now.Format("02/01/2006 15:04")),
		c.pageURL(now.Add(c.lookahead).Format("02/01/2006") + " 00:00"),
	}

	p := pool.NewWithResults[[]match.Raw]().WithContext(ctx)
	for _, pageURL := range urls {
		p.Go(func(ctx context.Context) ([]match.Raw, error) {
			return c.fetchPage(ctx, pageURL)
		})
	}
	pages, err := p.Wait()

	var merged []match.Raw
	seen := make(map[string]struct{})
	for _, page := range pages {
		for _, raw := range page {
			key := fmt.Sprintf("%s-%s-%s-%s", raw.DateDay, raw.DateMonth, raw.HomeTeam, raw.AwayTeam)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, raw)
		}
	}

	if err != nil {
		if len(merged) == 0 {
			return nil, crerr.Wrap(err, "fetch fixtures")
		}
		c.logger.WarnContext(ctx, "one fixtures request failed, continuing with partial listing",
			"fixtures", len(merged), "error", err)
	}

	c.logger.InfoContext(ctx, "fetched fixtures", "fixtures", len(merged))
	return merged, nil
}

func (c *Client) pageURL(startDate string) string {
	filters := fmt.Sprintf(`{"date":{"startDate":"%s","endDate":""},"league":"","session":"","gamesDirection":"1","againstTeam":""}`, startDate)

	values := url.Values{}
	values.Set("filters", filters)
	values.Set("tab", upcomingTab)
	return c.baseURL + "?" + values.Encode()
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]match.Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, crerr.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, crerr.Wrap(err, "fetch matches page")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, crerr.Newf("matches page status=%d", resp.StatusCode)
	}

	root, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, crerr.Wrap(err, "parse matches page")
	}

	rows := parseFixtures(root)
	for i := range rows {
		rows[i].Time = c.toLocalClock(rows[i].Time)
	}
	return rows, nil
}

// toLocalClock converts the site's UTC kickoff clock to the local wall clock
// the normalizer expects. Conversion is pinned to today's date, which matters
// only across a DST boundary and matches how the site itself displays times.
func (c *Client) toLocalClock(hhmm string) string {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		c.logger.Warn("unparseable kickoff time, keeping as scraped", "time", hhmm)
		return hhmm
	}
	today := c.now().UTC()
	utc := time.Date(today.Year(), today.Month(), today.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
	return utc.In(c.sourceLoc).Format("15:04")
}
