package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/kitewatch/wind-archive/internal/adapter/http"
	"github.com/kitewatch/wind-archive/internal/archive"
	"github.com/kitewatch/wind-archive/internal/domain"
	"github.com/kitewatch/wind-archive/internal/storage"
)

// --- mocks ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockService struct {
	record   domain.FetchRecord
	dataset  domain.Dataset
	fetchErr error
	lookups  map[string]bool
}

func (m *mockService) Fetch(_ context.Context, req domain.ArchiveRequest) (domain.FetchRecord, domain.Dataset, error) {
	if m.fetchErr != nil {
		return domain.FetchRecord{}, domain.Dataset{}, m.fetchErr
	}
	record := m.record
	record.ID = req.FetchID()
	return record, m.dataset, nil
}

func (m *mockService) Dataset(_ context.Context, id string) (domain.FetchRecord, domain.Dataset, error) {
	if !m.lookups[id] {
		return domain.FetchRecord{}, domain.Dataset{}, storage.ErrNotFound
	}
	return m.record, m.dataset, nil
}

func (m *mockService) Stats(ctx context.Context, id string) (domain.FetchRecord, domain.Summary, error) {
	record, dataset, err := m.Dataset(ctx, id)
	if err != nil {
		return domain.FetchRecord{}, domain.Summary{}, err
	}
	return record, domain.Summarize(dataset), nil
}

func (m *mockService) Fetches(_ context.Context) ([]domain.FetchRecord, error) {
	if len(m.lookups) == 0 {
		return nil, nil
	}
	return []domain.FetchRecord{m.record}, nil
}

type mockSearcher struct {
	result domain.SpotSearchResult
	err    error
}

func (m *mockSearcher) SearchSpots(_ context.Context, query string, limit int) (domain.SpotSearchResult, error) {
	if m.err != nil {
		return domain.SpotSearchResult{}, m.err
	}
	return m.result, nil
}

// --- helpers ---

func floatPtr(v float64) *float64 { return &v }

func testService() *mockService {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	first := domain.NewDataPoint(date, 0)
	first.WindSpeed = floatPtr(12.5)
	second := domain.NewDataPoint(date, 2)
	second.WindSpeed = floatPtr(18)

	return &mockService{
		record: domain.FetchRecord{
			ID:         "a1b2c3d4e5f60718",
			SpotID:     48743,
			ModelID:    3,
			From:       date,
			To:         date,
			StepHours:  2,
			PointCount: 2,
		},
		dataset: domain.Dataset{
			SpotID:    48743,
			ModelID:   3,
			StepHours: 2,
			Points:    []domain.DataPoint{first, second},
		},
		lookups: map[string]bool{"a1b2c3d4e5f60718": true},
	}
}

func newTestServer(service *mockService, spots domain.SpotSearcher, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", service, spots, &mockReadiness{err: readyErr},
		slog.New(slog.DiscardHandler))
}

func doRequest(srv *httpadapter.Server, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	srv.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(testService(), nil, fmt.Errorf("storage not reachable"))

	rec := doRequest(srv, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "storage not reachable", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestModelsEndpoint(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/models", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models []domain.Model `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.Models(), body.Models)
}

func TestSpotSearch(t *testing.T) {
	spots := &mockSearcher{result: domain.SpotSearchResult{
		Query: "tarifa",
		Spots: []domain.Spot{{ID: 48743, Name: "Spain - Tarifa", Country: "Spain"}},
		Total: 1,
	}}
	srv := newTestServer(testService(), spots, nil)

	rec := doRequest(srv, http.MethodGet, "/api/spots?query=tarifa", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var result domain.SpotSearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Spots, 1)
	assert.Equal(t, 48743, result.Spots[0].ID)
}

func TestSpotSearchValidation(t *testing.T) {
	srv := newTestServer(testService(), &mockSearcher{}, nil)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing query", "/api/spots", http.StatusBadRequest},
		{"zero limit", "/api/spots?query=tarifa&limit=0", http.StatusBadRequest},
		{"non numeric limit", "/api/spots?query=tarifa&limit=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestSpotSearchUnconfigured(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/spots?query=tarifa", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSpotSearchBackendFailure(t *testing.T) {
	srv := newTestServer(testService(), &mockSearcher{err: errors.New("down")}, nil)

	rec := doRequest(srv, http.MethodGet, "/api/spots?query=tarifa", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestFetchArchive(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodPost, "/api/archive",
		`{"spot_id":48743,"model_id":3,"from":"2024-06-01","to":"2024-06-07"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Fetch   domain.FetchRecord `json:"fetch"`
		Dataset domain.Dataset     `json:"dataset"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Fetch.ID, 16)
	assert.Len(t, body.Dataset.Points, 2)
}

func TestFetchArchiveValidation(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"bad from date", `{"spot_id":1,"model_id":3,"from":"01.06.2024","to":"2024-06-07"}`},
		{"bad to date", `{"spot_id":1,"model_id":3,"from":"2024-06-01","to":"soon"}`},
		{"missing spot", `{"model_id":3,"from":"2024-06-01","to":"2024-06-07"}`},
		{"reversed range", `{"spot_id":1,"model_id":3,"from":"2024-06-07","to":"2024-06-01"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/api/archive", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestFetchArchiveNoTable(t *testing.T) {
	service := testService()
	service.fetchErr = fmt.Errorf("decode archive: %w", archive.ErrTableNotFound)
	srv := newTestServer(service, nil, nil)

	rec := doRequest(srv, http.MethodPost, "/api/archive",
		`{"spot_id":48743,"model_id":3,"from":"2024-06-01","to":"2024-06-07"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFetchArchiveBackendFailure(t *testing.T) {
	service := testService()
	service.fetchErr = errors.New("backend down")
	srv := newTestServer(service, nil, nil)

	rec := doRequest(srv, http.MethodPost, "/api/archive",
		`{"spot_id":48743,"model_id":3,"from":"2024-06-01","to":"2024-06-07"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestListFetches(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/archive", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Fetches []domain.FetchRecord `json:"fetches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Fetches, 1)
}

func TestListFetchesEmpty(t *testing.T) {
	service := testService()
	service.lookups = nil
	srv := newTestServer(service, nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/archive", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fetches":[]`, "empty list, not null")
}

func TestGetDataset(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/archive/a1b2c3d4e5f60718", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Dataset domain.Dataset `json:"dataset"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Dataset.Points, 2)
}

func TestGetDatasetNotFound(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/archive/unknown", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStats(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/archive/a1b2c3d4e5f60718/stats", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Summary domain.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Summary.TotalPoints)
	require.NotNil(t, body.Summary.WindSpeed)
	assert.InDelta(t, 15.25, body.Summary.WindSpeed.Mean, 1e-9)
	assert.Nil(t, body.Summary.Temperature)
}

func TestGetChart(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/archive/a1b2c3d4e5f60718/chart", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Wind speed")
}

func TestGetChartNotFound(t *testing.T) {
	srv := newTestServer(testService(), nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/archive/unknown/chart", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
