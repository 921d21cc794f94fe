package bfban

import (
	"context"
	"strings"
	"sync"
	"time"
)

// StatsCache keeps fetched snapshots between report sessions. Entries have no
// individual TTL: a background sweep drops the whole map on a fixed interval.
type StatsCache struct {
	mu      sync.RWMutex
	entries map[string]*StatsSnapshot

	sweepEvery time.Duration
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewStatsCache(sweepEvery time.Duration) *StatsCache {
	if sweepEvery <= 0 {
		sweepEvery = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &StatsCache{
		entries:    make(map[string]*StatsSnapshot),
		sweepEvery: sweepEvery,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go c.sweep(ctx)
	return c
}

func (c *StatsCache) Get(name string) (*StatsSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[strings.ToLower(name)]
	return s, ok
}

func (c *StatsCache) Put(name string, s *StatsSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[strings.ToLower(name)] = s
}

func (c *StatsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the sweep goroutine.
func (c *StatsCache) Close() {
	c.cancel()
	<-c.done
}

func (c *StatsCache) sweep(ctx context.Context) {
	defer close(c.done)
	t := time.NewTicker(c.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.mu.Lock()
			c.entries = make(map[string]*StatsSnapshot)
			c.mu.Unlock()
		}
	}
}
