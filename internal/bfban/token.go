package bfban

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TokenSource fetches a fresh session token from upstream.
type TokenSource interface {
	FetchToken(ctx context.Context) (string, error)
}

// HTTPTokenSource pulls the bfban session token from the stats data source.
type HTTPTokenSource struct {
	host  string
	httpc *http.Client
}

func NewHTTPTokenSource(host string) *HTTPTokenSource {
	return &HTTPTokenSource{host: host, httpc: &http.Client{Timeout: 20 * time.Second}}
}

func (s *HTTPTokenSource) FetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.host+"/api/v2/bfban/token?type=bfban_token", nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token fetch %d", resp.StatusCode)
	}
	var out struct {
		Data string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Data, nil
}

// TokenCache lazily fetches the session token and keeps it fresh with a
// background refresh loop. The first caller pays for the fetch; everyone else
// gets the cached value, stale or not, until the loop replaces it.
type TokenCache struct {
	source  TokenSource
	refresh time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	token   string
	started bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewTokenCache(source TokenSource, refresh time.Duration, logger zerolog.Logger) *TokenCache {
	if refresh <= 0 {
		refresh = 30 * time.Minute
	}
	return &TokenCache{
		source:  source,
		refresh: refresh,
		log:     logger.With().Str("client", "token").Logger(),
		done:    make(chan struct{}),
	}
}

// Get returns the cached token, fetching it synchronously on first access and
// starting the refresh loop exactly once.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		token, err := c.source.FetchToken(ctx)
		if err != nil {
			return "", err
		}
		c.token = token
		c.started = true

		loopCtx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		go c.refreshLoop(loopCtx)
	}
	return c.token, nil
}

// Close stops the refresh loop. Safe to call before first Get.
func (c *TokenCache) Close() {
	c.mu.Lock()
	cancel := c.cancel
	started := c.started
	c.mu.Unlock()
	if !started {
		return
	}
	cancel()
	<-c.done
}

func (c *TokenCache) refreshLoop(ctx context.Context) {
	defer close(c.done)
	t := time.NewTicker(c.refresh)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			token, err := c.source.FetchToken(ctx)
			if err != nil {
				// keep serving the stale token, try again next tick
				c.log.Warn().Err(err).Msg("token refresh failed")
				continue
			}
			c.mu.Lock()
			c.token = token
			c.mu.Unlock()
		}
	}
}
