package bfban

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// StatsClient talks to the player stats source.
type StatsClient struct {
	host      string
	httpc     *http.Client
	cache     *StatsCache
	retryWait time.Duration
	log       zerolog.Logger
}

func NewStatsClient(host string, cache *StatsCache, logger zerolog.Logger) *StatsClient {
	return &StatsClient{
		host:      host,
		httpc:     &http.Client{Timeout: 30 * time.Second},
		cache:     cache,
		retryWait: 2 * time.Second,
		log:       logger.With().Str("client", "stats").Logger(),
	}
}

// ResolvePlayerID resolves a player name to its persona id.
func (c *StatsClient) ResolvePlayerID(ctx context.Context, name string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v2/pid/fast?name=%s", c.host, name), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var out struct {
		Exist bool  `json:"exist"`
		PID   int64 `json:"pid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("pid lookup: %w", err)
	}
	if !out.Exist {
		return 0, fmt.Errorf("%q: %w", name, ErrPlayerNotFound)
	}
	return out.PID, nil
}

// QueryFullStats fetches the full career snapshot. Only bfv is backed by the
// stats source. A non-200 answer is retried once after a short wait.
func (c *StatsClient) QueryFullStats(ctx context.Context, game, name string, pid int64) (*StatsSnapshot, error) {
	if game != "bfv" {
		return nil, fmt.Errorf("%s: %w", game, ErrNotImplemented)
	}

	if s, ok := c.cache.Get(name); ok {
		return s, nil
	}

	url := fmt.Sprintf("%s/api/v2/bfv/status/all/fast?name=%s&pid=%d", c.host, name, pid)
	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		c.log.Warn().Int("status", status).Str("name", name).Msg("stats fetch non-200, retrying")
		select {
		case <-time.After(c.retryWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if body, status, err = c.get(ctx, url); err != nil {
			return nil, err
		}
	}

	var probe struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		// Degenerate upstream answer; surface it instead of guessing.
		return nil, fmt.Errorf("stats response (%d): %w", status, err)
	}
	if probe.Detail == "player not found" {
		return nil, fmt.Errorf("%q: %w", name, ErrPlayerNotFound)
	}

	var snap StatsSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("stats response (%d): %w", status, err)
	}

	c.cache.Put(name, &snap)
	return &snap, nil
}

func (c *StatsClient) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return b, resp.StatusCode, nil
}
