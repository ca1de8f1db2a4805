package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envimetry/pipeline/internal/pipeline"
	"github.com/envimetry/pipeline/internal/telemetry"
)

type fakeRunner struct {
	crawlRes   pipeline.CrawlResult
	crawlErr   error
	processRes pipeline.ProcessResult
	processErr error

	gotDomain string
	gotReq    pipeline.CrawlRequest
	gotCSV    []byte
}

func (f *fakeRunner) RunCrawl(_ context.Context, domain string, req pipeline.CrawlRequest) (pipeline.CrawlResult, error) {
	f.gotDomain = domain
	f.gotReq = req
	return f.crawlRes, f.crawlErr
}

func (f *fakeRunner) RunProcess(_ context.Context, domain string, content []byte) (pipeline.ProcessResult, error) {
	f.gotDomain = domain
	f.gotCSV = content
	return f.processRes, f.processErr
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeRunner{}, nil, 0)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, ServiceName, body["service"])
}

func TestCrawlPassesFilter(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{crawlRes: pipeline.CrawlResult{
		Success:        true,
		RunID:          "run-0001",
		TotalRecords:   3,
		TotalLocations: 2,
	}}
	s := NewServer(runner, nil, 0)

	body := map[string]any{
		"filter": map[string]any{"provinces": []string{"Kien Giang"}, "names": []string{"Hanoi"}, "limit": 5},
	}
	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/crawl/air", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "air", runner.gotDomain)
	assert.Equal(t, []string{"Kien Giang"}, runner.gotReq.Filter.Provinces)
	assert.Equal(t, []string{"Hanoi"}, runner.gotReq.Filter.Names)
	assert.Equal(t, 5, runner.gotReq.Filter.Limit)
	assert.Empty(t, runner.gotReq.Locations)

	var res pipeline.CrawlResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.TotalRecords)
}

func TestCrawlWithoutBody(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{crawlRes: pipeline.CrawlResult{Success: true}}
	s := NewServer(runner, nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/v1/crawl/soil", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "soil", runner.gotDomain)
	assert.Empty(t, runner.gotReq.Filter.Provinces)
}

func TestCrawlAcceptsLocationObjects(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{crawlRes: pipeline.CrawlResult{Success: true, TotalLocations: 1}}
	s := NewServer(runner, nil, 0)

	body := map[string]any{
		"locations": []map[string]any{
			{"name": "Hanoi", "province": "Hanoi", "lat": 21.0285, "lon": 105.8542},
		},
	}
	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/crawl/air", body)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, runner.gotReq.Locations, 1)
	assert.Equal(t, telemetry.Location{
		Name:     "Hanoi",
		Province: "Hanoi",
		Lat:      21.0285,
		Lon:      105.8542,
	}, runner.gotReq.Locations[0])
}

func TestCrawlErrorStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"AllSourcesFailed", telemetry.ErrAllSourcesFailed, http.StatusBadGateway},
		{"BatchEmpty", telemetry.ErrBatchEmpty, http.StatusUnprocessableEntity},
		{"StoreUnavailable", fmt.Errorf("load: %w", telemetry.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"UnknownDomain", fmt.Errorf(`unknown domain "minerals"`), http.StatusNotFound},
		{"Other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			runner := &fakeRunner{
				crawlErr: tc.err,
				crawlRes: pipeline.CrawlResult{
					DataSources: map[string]telemetry.SourceCounts{"waqi": {Failed: 2}},
				},
			}
			s := NewServer(runner, nil, 0)
			rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/crawl/air", map[string]any{})

			require.Equal(t, tc.want, rec.Code)

			var body struct {
				Error  string               `json:"error"`
				Result pipeline.CrawlResult `json:"result"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, 2, body.Result.DataSources["waqi"].Failed)
		})
	}
}

func TestProcessRequiresCSVContent(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeRunner{}, nil, 0)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/process/air", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessForwardsContent(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{processRes: pipeline.ProcessResult{
		Status:      "success",
		RecordCount: 2,
		Columns:     []string{"timestamp", "aqi"},
	}}
	s := NewServer(runner, nil, 0)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/process/air",
		map[string]string{"csv_content": "timestamp,aqi\n2025-03-01,80\n"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "timestamp,aqi\n2025-03-01,80\n", string(runner.gotCSV))

	var res pipeline.ProcessResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, 2, res.RecordCount)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeRunner{}, nil, 0)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
