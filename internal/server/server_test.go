package server

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matzehuels/windprofile/pkg/cache"
	"github.com/matzehuels/windprofile/pkg/observability"
	"github.com/matzehuels/windprofile/pkg/pipeline"
)

const smoothWind = `{"method": "analytic", "beta": 1, "tau_star": 1}`

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}
	s := New(pipeline.NewRunner(fc, nil, nil), nil, opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path, body string, v any) int {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", resp.StatusCode)
	}
}

func TestVersion(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var info struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Version == "" {
		t.Error("version is empty")
	}
}

func TestDepth(t *testing.T) {
	ts := newTestServer(t)

	var res pipeline.DepthResult
	status := post(t, ts, "/v1/depth", `{"wind": `+smoothWind+`, "p": 0, "z": 2}`, &res)
	if status != http.StatusOK {
		t.Fatalf("POST /v1/depth = %d, want 200", status)
	}
	if math.Abs(res.Tau-math.Ln2) > 1e-9 {
		t.Errorf("tau = %v, want ln 2", res.Tau)
	}
	if res.RunID == "" {
		t.Error("run_id is empty")
	}

	var total pipeline.DepthResult
	if status := post(t, ts, "/v1/depth", `{"wind": `+smoothWind+`, "p": 0.5}`, &total); status != http.StatusOK {
		t.Fatalf("POST /v1/depth (total) = %d, want 200", status)
	}
	if !total.Total || !total.Occulted {
		t.Errorf("total depth at p=0.5: total=%v occulted=%v, want both", total.Total, total.Occulted)
	}
}

func TestPoints(t *testing.T) {
	ts := newTestServer(t)

	var res pipeline.PointsResult
	status := post(t, ts, "/v1/points", `{"wind": `+smoothWind+`, "p": [0, 0, 0.5], "z": [2, 3, -1]}`, &res)
	if status != http.StatusOK {
		t.Fatalf("POST /v1/points = %d, want 200", status)
	}
	if len(res.Samples) != 3 {
		t.Fatalf("len(samples) = %d, want 3", len(res.Samples))
	}
	if math.Abs(res.Samples[0].Tau-math.Ln2) > 1e-9 {
		t.Errorf("samples[0].tau = %v, want ln 2", res.Samples[0].Tau)
	}
	if want := math.Log(1.5); math.Abs(res.Samples[1].Tau-want) > 1e-9 {
		t.Errorf("samples[1].tau = %v, want %v", res.Samples[1].Tau, want)
	}
	if !res.Samples[2].Occulted {
		t.Error("samples[2] should be occulted")
	}
}

func TestGridCached(t *testing.T) {
	ts := newTestServer(t)
	body := `{"wind": ` + smoothWind + `, "p": [0, 2], "z": [-1, 2]}`

	var first, second pipeline.GridResult
	if status := post(t, ts, "/v1/grid", body, &first); status != http.StatusOK {
		t.Fatalf("POST /v1/grid = %d, want 200", status)
	}
	if first.CacheHit {
		t.Error("first request should not hit the cache")
	}
	if got := first.Grid.Tau[0][1]; math.Abs(got-math.Ln2) > 1e-9 {
		t.Errorf("tau(0, 2) = %v, want ln 2", got)
	}

	post(t, ts, "/v1/grid", body, &second)
	if !second.CacheHit {
		t.Error("second request should hit the cache")
	}
}

func TestLuminosity(t *testing.T) {
	ts := newTestServer(t)
	body := `{"wind": {"method": "analytic", "beta": 1, "u0": 0.65, "tau_star": 0}}`

	var res pipeline.LuminosityResult
	if status := post(t, ts, "/v1/luminosity", body, &res); status != http.StatusOK {
		t.Fatalf("POST /v1/luminosity = %d, want 200", status)
	}
	if math.Abs(res.Fraction-0.938835486660448) > 1e-5 {
		t.Errorf("fraction = %v, want 0.938835", res.Fraction)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed", "/v1/grid", `{"wind":`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"unknown field", "/v1/grid", `{"colour": "red"}`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"bad config", "/v1/grid", `{"wind": {"method": "analytic", "beta": -1, "tau_star": 1}}`, http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{"bad grid", "/v1/grid", `{"wind": ` + smoothWind + `, "p": [1, 0]}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"empty sweep", "/v1/sweep", `{"wind": ` + smoothWind + `}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unpaired points", "/v1/points", `{"wind": ` + smoothWind + `, "p": [0, 1], "z": [2]}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown route", "/v1/nothing", `{}`, http.StatusNotFound, "NOT_FOUND"},
	}

	ts := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			status := post(t, ts, tt.path, tt.body, &body)
			if status != tt.status {
				t.Errorf("POST %s = %d, want %d", tt.path, status, tt.status)
			}
			if string(body.Error.Code) != tt.code {
				t.Errorf("code = %q, want %q (message %q)", body.Error.Code, tt.code, body.Error.Message)
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	ts := newTestServer(t, WithMaxBody(16))
	body := `{"wind": ` + smoothWind + `, "p": [0, 1, 2, 3]}`
	if status := post(t, ts, "/v1/grid", body, nil); status != http.StatusRequestEntityTooLarge {
		t.Errorf("POST /v1/grid = %d, want 413", status)
	}
}

func TestStats(t *testing.T) {
	counters := observability.NewCounters()
	observability.SetHTTPHooks(counters)
	observability.SetPipelineHooks(counters)
	t.Cleanup(observability.Reset)

	ts := newTestServer(t, WithCounters(counters))
	post(t, ts, "/v1/grid", `{"wind": `+smoothWind+`, "p": [2], "z": [0]}`, nil)
	post(t, ts, "/v1/grid", `{"wind":`, nil)

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var snap observability.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}

	route := snap.Routes["POST /v1/grid"]
	if route.Requests != 2 {
		t.Errorf("grid requests = %d, want 2", route.Requests)
	}
	if route.Status["2xx"] != 1 || route.Status["4xx"] != 1 {
		t.Errorf("grid status = %v, want one 2xx and one 4xx", route.Status)
	}
	if route.Errors["INVALID_FORMAT"] != 1 {
		t.Errorf("grid errors = %v, want one INVALID_FORMAT", route.Errors)
	}
	if snap.Stages[pipeline.StageGrid].Runs != 1 {
		t.Errorf("grid stage runs = %d, want 1", snap.Stages[pipeline.StageGrid].Runs)
	}
}

func TestStatsDisabled(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /v1/stats = %d, want 404", resp.StatusCode)
	}
}
