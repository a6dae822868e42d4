// Package gcal is the Google Calendar collaborator: a REST client for the
// events API implementing usecase.CalendarProvider. Authentication is handled
// by the OAuth transport on the injected HTTP client; see auth.go.
package gcal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/matchcal/matchcal/internal/platform/logging"
	"github.com/matchcal/matchcal/internal/platform/resilience"
	"github.com/matchcal/matchcal/internal/usecase"
)

const (
	defaultBaseURL    = "https://www.googleapis.com/calendar/v3"
	defaultListWindow = 365 * 24 * time.Hour
	listPageSize      = 250
	maxResponseBytes  = 4 << 20
)

var errGoogleTransient = crerr.New("google calendar transient failure")

type ClientConfig struct {
	// HTTPClient must carry OAuth credentials; see NewAuthorizedHTTPClient.
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// TimeZone names the zone stamped on event payloads.
	TimeZone string
	// ListWindow bounds how far ahead ListEvents looks. The engine only owns
	// upcoming fixtures, so a year is plenty.
	ListWindow time.Duration
	Logger     *logging.Logger
	Breaker    resilience.BreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	timeZone       string
	listWindow     time.Duration
	logger         *logging.Logger
	breaker        *resilience.Breaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	now            func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	listWindow := cfg.ListWindow
	if listWindow <= 0 {
		listWindow = defaultListWindow
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     max(cfg.MaxRetries, 0),
		timeZone:       cfg.TimeZone,
		listWindow:     listWindow,
		logger:         logger,
		breaker:        resilience.NewBreaker(cfg.Breaker),
		circuitEnabled: cfg.Breaker.Enabled,
		now:            time.Now,
	}
}

// ListEvents drains every page of the calendar's upcoming events. A failure on
// any page fails the whole listing; the engine must never reconcile against a
// truncated view of the calendar.
func (c *Client) ListEvents(ctx context.Context, calendarID string) ([]usecase.RemoteEvent, error) {
	now := c.now()
	basePath := "/calendars/" + url.PathEscape(calendarID) + "/events"

	var out []usecase.RemoteEvent
	pageToken := ""
	for {
		query := map[string]string{
			"singleEvents": "true",
			"orderBy":      "startTime",
			"maxResults":   strconv.Itoa(listPageSize),
			"timeMin":      now.Add(-24 * time.Hour).Format(time.RFC3339),
			"timeMax":      now.Add(c.listWindow).Format(time.RFC3339),
		}
		if pageToken != "" {
			query["pageToken"] = pageToken
		}

		var env eventListEnvelope
		if err := c.doJSON(ctx, http.MethodGet, basePath, query, nil, &env); err != nil {
			return nil, crerr.Wrapf(err, "list events page_token=%q", pageToken)
		}

		for _, item := range env.Items {
			ev, ok := mapWireEvent(item)
			if !ok {
				continue
			}
			out = append(out, ev)
		}

		if env.NextPageToken == "" {
			return out, nil
		}
		pageToken = env.NextPageToken
	}
}

func (c *Client) CreateEvent(ctx context.Context, calendarID string, payload usecase.EventPayload) (string, error) {
	path := "/calendars/" + url.PathEscape(calendarID) + "/events"

	var created wireEvent
	if err := c.doJSON(ctx, http.MethodPost, path, nil, c.wirePayload(payload), &created); err != nil {
		return "", crerr.Wrap(err, "create event")
	}
	if created.ID == "" {
		return "", crerr.New("create event: response carried no event id")
	}
	return created.ID, nil
}

func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, payload usecase.EventPayload) error {
	path := "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)

	var updated wireEvent
	if err := c.doJSON(ctx, http.MethodPut, path, nil, c.wirePayload(payload), &updated); err != nil {
		return crerr.Wrapf(err, "update event %s", eventID)
	}
	return nil
}

func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	path := "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)

	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return crerr.Wrapf(err, "delete event %s", eventID)
	}
	return nil
}

func (c *Client) wirePayload(p usecase.EventPayload) wireEvent {
	overrides := make([]reminderOverride, 0, len(p.Reminders))
	for _, r := range p.Reminders {
		overrides = append(overrides, reminderOverride{Method: r.Method, Minutes: r.Minutes})
	}

	return wireEvent{
		Summary:     p.Title,
		Location:    p.Location,
		Description: p.Description,
		Start:       &eventDateTime{DateTime: p.StartTime.Format(time.RFC3339), TimeZone: c.timeZone},
		End:         &eventDateTime{DateTime: p.EndTime.Format(time.RFC3339), TimeZone: c.timeZone},
		Reminders:   &eventReminders{UseDefault: false, Overrides: overrides},
	}
}

func mapWireEvent(item wireEvent) (usecase.RemoteEvent, bool) {
	if item.ID == "" || item.Status == "cancelled" {
		return usecase.RemoteEvent{}, false
	}
	// All-day events carry only a date; the engine never creates those.
	if item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
		return usecase.RemoteEvent{}, false
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return usecase.RemoteEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return usecase.RemoteEvent{}, false
	}

	return usecase.RemoteEvent{
		EventID:     item.ID,
		Title:       item.Summary,
		StartTime:   start,
		EndTime:     end,
		Location:    item.Location,
		Description: item.Description,
	}, true
}

func (c *Client) doJSON(ctx context.Context, method, path string, query map[string]string, body, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "calendar circuit breaker rejected request", "state", c.breaker.State())
			return crerr.Wrap(err, "calendar api temporarily unavailable")
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	var encodedBody []byte
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			return crerr.Wrap(err, "encode request body")
		}
		encodedBody = raw
	}

	execute := func() ([]byte, error) {
		raw, reqErr := c.executeRequest(ctx, method, fullURL, encodedBody)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errGoogleTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	}

	var raw []byte
	var err error
	if method == http.MethodGet {
		// Reads are deduplicated; writes must each reach the API.
		var out any
		out, err, _ = c.flight.Do(method+" "+fullURL, func() (any, error) { return execute() })
		if err == nil {
			raw = out.([]byte)
		}
	} else {
		raw, err = execute()
	}
	if err != nil {
		return err
	}

	if target == nil || len(raw) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return crerr.Wrap(err, "decode calendar response")
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, method, fullURL string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Wrapf(errGoogleTransient, "send request: %v", err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Wrapf(errGoogleTransient, "read response body: %v", readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Wrapf(errGoogleTransient, "calendar status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, crerr.Newf("calendar status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.New("calendar request failed")
	}
	c.logger.WarnContext(ctx, "google calendar request failed", "method", method, "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return fmt.Sprintf("%s… (%d bytes)", body[:limit], len(body))
	}
	return body
}
