package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidestat/internal/analytics"
	"slidestat/internal/model"
)

type memoryCache struct {
	entries map[string]model.Result
	down    bool
	saves   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]model.Result{}}
}

func cacheKey(req model.Request) string {
	payload, _ := json.Marshal(req)
	return string(payload)
}

func (c *memoryCache) Check(context.Context) error {
	if c.down {
		return errors.New("connection refused")
	}
	return nil
}

func (c *memoryCache) Fetch(_ context.Context, req model.Request) (*model.Result, error) {
	if c.down {
		return nil, errors.New("connection refused")
	}
	res, ok := c.entries[cacheKey(req)]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (c *memoryCache) Save(_ context.Context, req model.Request, res model.Result) error {
	if c.down {
		return errors.New("connection refused")
	}
	c.saves++
	c.entries[cacheKey(req)] = res
	return nil
}

func (c *memoryCache) Stop() error { return nil }

func newTestServer(t *testing.T, cache resultCache) *httptest.Server {
	t.Helper()
	service := newApp(analytics.NewAnalyzer(zerolog.Nop()), cache, zerolog.Nop())
	srv := httptest.NewServer(service.router())
	t.Cleanup(srv.Close)
	return srv
}

func postCompute(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/compute", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestComputeEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postCompute(t, srv, `{"func":"sum","values":[34,30,29,34,38,25,35],"period":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res model.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, []float64{34, 64, 93, 93, 101, 97, 98}, res.Series)

	resp = postCompute(t, srv, `{"func":"top","values":[34,30,29,34,38,25,35],"period":3,"top":2,"precision":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, []string{"35", "38"}, res.FormattedSets[6])
}

func TestComputeEndpointErrors(t *testing.T) {
	srv := newTestServer(t, nil)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{"func":`, http.StatusBadRequest},
		{"unknown field", `{"func":"sum","values":[1],"period":1,"window":3}`, http.StatusBadRequest},
		{"unknown func", `{"func":"median","values":[1],"period":1}`, http.StatusNotFound},
		{"zero period", `{"func":"sma","values":[1,2],"period":0}`, http.StatusBadRequest},
		{"zero top", `{"func":"bottom","values":[1,2],"period":2}`, http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp := postCompute(t, srv, c.body)
			assert.Equal(t, c.status, resp.StatusCode)
		})
	}

	resp, err := http.Get(srv.URL + "/compute")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestComputeUsesCache(t *testing.T) {
	cache := newMemoryCache()
	srv := newTestServer(t, cache)
	body := `{"func":"stdp","values":[34,30,29,34],"period":3}`

	first := postCompute(t, srv, body)
	require.Equal(t, http.StatusOK, first.StatusCode)
	assert.Empty(t, first.Header.Get("X-Cache"))
	assert.Equal(t, 1, cache.saves)

	second := postCompute(t, srv, body)
	require.Equal(t, http.StatusOK, second.StatusCode)
	assert.Equal(t, "hit", second.Header.Get("X-Cache"))
	assert.Equal(t, 1, cache.saves)
}

func TestComputeSurvivesCacheOutage(t *testing.T) {
	cache := newMemoryCache()
	cache.down = true
	srv := newTestServer(t, cache)

	resp := postCompute(t, srv, `{"func":"max","values":[1,5,2],"period":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res model.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, []float64{1, 5, 5}, res.Series)

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, health.StatusCode)
}

func TestFunctionsAndAnalyticsEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	postCompute(t, srv, `{"func":"wwma","values":[34,30,29],"period":3}`)

	resp, err := http.Get(srv.URL + "/functions")
	require.NoError(t, err)
	defer resp.Body.Close()
	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Contains(t, names, "wwma")
	assert.Contains(t, names, "bottom")

	resp, err = http.Get(srv.URL + "/analytics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var snap analytics.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "wwma", snap.Func)
	assert.Equal(t, 3, snap.Points)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
