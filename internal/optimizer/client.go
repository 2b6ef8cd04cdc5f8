// Package optimizer wraps the rate-limited third-party route optimization
// endpoint behind a single global permit.
package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Location is one stop submitted for optimization.
type Location struct {
	Address      string  `json:"address"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	ServiceTime  int     `json:"servicetime"`
	Restrictions string  `json:"restrictions,omitempty"`
}

// Stop is one entry of the computed visiting order.
type Stop struct {
	Key      string  `json:"key"`
	Name     string  `json:"name"`
	Arrival  int     `json:"arrival"`
	Distance float64 `json:"distance"`
}

// Plan is the parsed optimization result, stops ordered by arrival.
type Plan struct {
	ID       string `json:"id"`
	Count    int    `json:"count"`
	Feasible bool   `json:"feasible"`
	Stops    []Stop `json:"stops"`
}

type wireStop struct {
	Name     string  `json:"Name"`
	Arrival  int     `json:"Arrival"`
	Distance float64 `json:"Distance"`
}

type wireResponse struct {
	ID       string              `json:"Id"`
	Count    int                 `json:"Count"`
	Feasible bool                `json:"Feasible"`
	Route    map[string]wireStop `json:"Route"`
}

// Metrics receives client observations. Optional.
type Metrics interface {
	ObserveOptimizerCall(outcome string)
	ObserveOptimizerRetry()
}

// Config collects client dependencies.
type Config struct {
	Endpoint   string
	Username   string
	Password   string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    Metrics
}

// Client submits batches to the external endpoint. The endpoint enforces
// global rate limits per caller credential, so the client owns a single
// permit: at most one outstanding call system-wide, additional callers queue
// on Acquire.
type Client struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client
	permit     *semaphore.Weighted
	logger     *slog.Logger
	metrics    Metrics
}

// New constructs a Client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: httpClient,
		permit:     semaphore.NewWeighted(1),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Optimize submits the locations and returns the feasible visiting order.
//
// Cancellation is honored while queued for the permit. Once the permit is
// held, the retry-on-429 loop is exempt from cancellation: aborting mid-retry
// would leave the external rate-limit window in an ambiguous state, so the
// call runs to a terminal outcome and the permit is released on every exit
// path.
func (c *Client) Optimize(ctx context.Context, locations []Location) (*Plan, error) {
	if len(locations) == 0 {
		return nil, ErrNoLocations
	}

	payload, err := json.Marshal(locations)
	if err != nil {
		return nil, fmt.Errorf("optimizer: encode locations: %w", err)
	}

	if err := c.permit.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("optimizer: acquire permit: %w", err)
	}
	defer c.permit.Release(1)

	correlationID := uuid.New()
	attempt := 0
	for {
		attempt++
		plan, retry, err := c.call(context.WithoutCancel(ctx), payload)
		if err != nil {
			c.observe("fatal")
			c.logger.Error("optimizer call failed",
				slog.String("correlation_id", correlationID.String()),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return nil, &FatalError{CorrelationID: correlationID, Cause: err}
		}
		if retry {
			c.observeRetry()
			c.logger.Debug("optimizer rate limited, retrying",
				slog.String("correlation_id", correlationID.String()),
				slog.Int("attempt", attempt))
			continue
		}
		c.observe("ok")
		return plan, nil
	}
}

// call performs one HTTP exchange. retry is true only on 429.
func (c *Client) call(ctx context.Context, payload []byte) (*Plan, bool, error) {
	form := url.Values{}
	form.Set("locations", string(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("http: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	return planFromWire(wire), false, nil
}

func planFromWire(wire wireResponse) *Plan {
	stops := make([]Stop, 0, len(wire.Route))
	for key, ws := range wire.Route {
		stops = append(stops, Stop{
			Key:      key,
			Name:     ws.Name,
			Arrival:  ws.Arrival,
			Distance: ws.Distance,
		})
	}
	sort.Slice(stops, func(i, j int) bool {
		if stops[i].Arrival != stops[j].Arrival {
			return stops[i].Arrival < stops[j].Arrival
		}
		return stops[i].Key < stops[j].Key
	})
	return &Plan{
		ID:       wire.ID,
		Count:    wire.Count,
		Feasible: wire.Feasible,
		Stops:    stops,
	}
}

func (c *Client) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.ObserveOptimizerCall(outcome)
	}
}

func (c *Client) observeRetry() {
	if c.metrics != nil {
		c.metrics.ObserveOptimizerRetry()
	}
}
