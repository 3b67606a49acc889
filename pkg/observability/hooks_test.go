package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnStageStart(ctx, "grid", 100)
	p.OnStageComplete(ctx, "grid", 100, time.Second, nil)
	p.OnWarnings(ctx, "grid", 3)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "grid")
	c.OnCacheMiss(ctx, "profile")
	c.OnCacheSet(ctx, "luminosity", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/grid")
	h.OnResponse(ctx, "POST", "/v1/grid", 200, time.Second)
	h.OnError(ctx, "POST", "/v1/grid", "INVALID_INPUT")
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	counters := NewCounters()
	SetPipelineHooks(counters)
	SetCacheHooks(counters)
	SetHTTPHooks(counters)
	if Pipeline() != PipelineHooks(counters) || Cache() != CacheHooks(counters) || HTTP() != HTTPHooks(counters) {
		t.Error("Set*Hooks should register the counters")
	}

	SetPipelineHooks(nil)
	if Pipeline() != PipelineHooks(counters) {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestCounters(t *testing.T) {
	ctx := context.Background()
	c := NewCounters()

	c.OnStageComplete(ctx, "grid", 20, time.Millisecond, nil)
	c.OnStageComplete(ctx, "grid", 10, time.Millisecond, errors.New("boom"))
	c.OnWarnings(ctx, "grid", 2)
	c.OnStageComplete(ctx, "profile", 40, time.Millisecond, nil)

	c.OnCacheMiss(ctx, "grid")
	c.OnCacheSet(ctx, "grid", 512)
	c.OnCacheHit(ctx, "grid")
	c.OnCacheHit(ctx, "grid")
	c.OnCacheHit(ctx, "grid")

	c.OnResponse(ctx, "POST", "/v1/grid", 200, time.Millisecond)
	c.OnResponse(ctx, "POST", "/v1/grid", 422, time.Millisecond)
	c.OnError(ctx, "POST", "/v1/grid", "INVALID_INPUT")

	snap := c.Snapshot()

	grid := snap.Stages["grid"]
	if grid.Runs != 2 || grid.Failures != 1 || grid.Points != 30 || grid.Warnings != 2 {
		t.Errorf("Stages[grid] = %+v", grid)
	}
	if got := snap.StageNames(); len(got) != 2 || got[0] != "grid" || got[1] != "profile" {
		t.Errorf("StageNames() = %v, want [grid profile]", got)
	}

	cs := snap.Cache["grid"]
	if cs.Hits != 3 || cs.Misses != 1 || cs.Sets != 1 || cs.Bytes != 512 {
		t.Errorf("Cache[grid] = %+v", cs)
	}
	if got := cs.HitRate(); got != 0.75 {
		t.Errorf("HitRate() = %v, want 0.75", got)
	}
	if got := (CacheStats{}).HitRate(); got != 0 {
		t.Errorf("HitRate() of empty stats = %v, want 0", got)
	}

	r := snap.Routes["POST /v1/grid"]
	if r.Requests != 2 || r.Status["2xx"] != 1 || r.Status["4xx"] != 1 || r.Errors["INVALID_INPUT"] != 1 {
		t.Errorf("Routes[POST /v1/grid] = %+v", r)
	}

	// The snapshot is detached from later updates.
	c.OnResponse(ctx, "POST", "/v1/grid", 500, time.Millisecond)
	if snap.Routes["POST /v1/grid"].Status["5xx"] != 0 {
		t.Error("Snapshot() should be a copy")
	}
}
