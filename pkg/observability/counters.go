package observability

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Counters is an in-process implementation of every hook interface. It
// tallies events per stage, cache key type and route; the API server
// exposes a Snapshot at /v1/stats.
type Counters struct {
	mu     sync.Mutex
	stages map[string]*StageStats
	cache  map[string]*CacheStats
	routes map[string]*RouteStats
}

// StageStats aggregates pipeline stage events.
type StageStats struct {
	Runs     int           `json:"runs"`
	Failures int           `json:"failures"`
	Points   int           `json:"points"`
	Warnings int           `json:"warnings"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// CacheStats aggregates cache events.
type CacheStats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
	Sets   int `json:"sets"`
	Bytes  int `json:"bytes"`
}

// HitRate returns Hits/(Hits+Misses), or 0 before any lookup.
func (s CacheStats) HitRate() float64 {
	if n := s.Hits + s.Misses; n > 0 {
		return float64(s.Hits) / float64(n)
	}
	return 0
}

// RouteStats aggregates API requests by status class.
type RouteStats struct {
	Requests int            `json:"requests"`
	Status   map[string]int `json:"status"`
	Errors   map[string]int `json:"errors,omitempty"`
	Elapsed  time.Duration  `json:"elapsed_ns"`
}

// Snapshot is a copy of the counters.
type Snapshot struct {
	Stages map[string]StageStats `json:"stages"`
	Cache  map[string]CacheStats `json:"cache"`
	Routes map[string]RouteStats `json:"routes"`
}

// NewCounters returns empty counters.
func NewCounters() *Counters {
	return &Counters{
		stages: make(map[string]*StageStats),
		cache:  make(map[string]*CacheStats),
		routes: make(map[string]*RouteStats),
	}
}

func (c *Counters) stage(name string) *StageStats {
	s, ok := c.stages[name]
	if !ok {
		s = &StageStats{}
		c.stages[name] = s
	}
	return s
}

func (c *Counters) cacheStats(keyType string) *CacheStats {
	s, ok := c.cache[keyType]
	if !ok {
		s = &CacheStats{}
		c.cache[keyType] = s
	}
	return s
}

func (c *Counters) route(method, route string) *RouteStats {
	key := method + " " + route
	s, ok := c.routes[key]
	if !ok {
		s = &RouteStats{Status: make(map[string]int)}
		c.routes[key] = s
	}
	return s
}

func (c *Counters) OnStageStart(context.Context, string, int) {}

func (c *Counters) OnStageComplete(_ context.Context, stage string, size int, d time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stage(stage)
	s.Runs++
	s.Points += size
	s.Elapsed += d
	if err != nil {
		s.Failures++
	}
}

func (c *Counters) OnWarnings(_ context.Context, stage string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stage(stage).Warnings += count
}

func (c *Counters) OnCacheHit(_ context.Context, keyType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheStats(keyType).Hits++
}

func (c *Counters) OnCacheMiss(_ context.Context, keyType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheStats(keyType).Misses++
}

func (c *Counters) OnCacheSet(_ context.Context, keyType string, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.cacheStats(keyType)
	s.Sets++
	s.Bytes += size
}

func (c *Counters) OnRequest(context.Context, string, string) {}

func (c *Counters) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.route(method, route)
	s.Requests++
	s.Status[statusClass(status)]++
	s.Elapsed += d
}

func (c *Counters) OnError(_ context.Context, method, route, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.route(method, route)
	if s.Errors == nil {
		s.Errors = make(map[string]int)
	}
	s.Errors[code]++
}

// Snapshot returns a deep copy of the current counts.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Stages: make(map[string]StageStats, len(c.stages)),
		Cache:  make(map[string]CacheStats, len(c.cache)),
		Routes: make(map[string]RouteStats, len(c.routes)),
	}
	for k, v := range c.stages {
		snap.Stages[k] = *v
	}
	for k, v := range c.cache {
		snap.Cache[k] = *v
	}
	for k, v := range c.routes {
		r := *v
		r.Status = copyMap(v.Status)
		r.Errors = copyMap(v.Errors)
		snap.Routes[k] = r
	}
	return snap
}

// StageNames returns the recorded stage names in sorted order.
func (s Snapshot) StageNames() []string {
	names := make([]string, 0, len(s.Stages))
	for k := range s.Stages {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func copyMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var (
	_ PipelineHooks = (*Counters)(nil)
	_ CacheHooks    = (*Counters)(nil)
	_ HTTPHooks     = (*Counters)(nil)
)
