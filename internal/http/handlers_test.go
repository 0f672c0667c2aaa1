package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtoivanen/fuelwatch/internal/api"
	"github.com/mtoivanen/fuelwatch/internal/config"
	"github.com/mtoivanen/fuelwatch/internal/coordinator"
	"github.com/mtoivanen/fuelwatch/internal/models"
	"github.com/mtoivanen/fuelwatch/internal/registry"
	"github.com/mtoivanen/fuelwatch/internal/scheduler"
	"github.com/mtoivanen/fuelwatch/internal/service"
)

// stubClient serves a fixed station list.
type stubClient struct {
	stations []models.Station
	authErr  error
}

func (s *stubClient) HasToken() bool { return s.authErr == nil }

func (s *stubClient) Authenticate(_ context.Context) error { return s.authErr }

func (s *stubClient) GetStations(_ context.Context) ([]models.Station, error) {
	return s.stations, nil
}

func (s *stubClient) GetStationsByLocation(_ context.Context, _, _ float64, _ int) ([]models.Station, error) {
	return s.stations, nil
}

func (s *stubClient) FindStationsByName(_ context.Context, _ []string) ([]models.Station, error) {
	return s.stations, nil
}

func newTestService(t *testing.T, client *stubClient, filter config.Filter) *service.Service {
	t.Helper()
	coord := coordinator.New(client, filter, zerolog.Nop())
	reg := registry.New(zerolog.Nop(), nil)
	return service.New(coord, reg, zerolog.Nop())
}

func testStations() []models.Station {
	return []models.Station{
		{
			ID:    "s1",
			Name:  "Shell Kamppi",
			Chain: "Shell",
			Fuels: []string{"95", "dsl"},
			Prices: []models.Price{
				{Tag: "95", Price: 1.789, Updated: time.Now()},
			},
			Updated: time.Now(),
		},
	}
}

func TestSensorsHandlerReturnsStates(t *testing.T) {
	svc := newTestService(t, &stubClient{stations: testStations()}, config.Filter{Fuels: []string{"95"}})
	require.NoError(t, svc.RunCycle(context.Background()))

	rec := httptest.NewRecorder()
	NewSensorsHandler(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sensors", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Count   int                  `json:"count"`
		Sensors []models.SensorState `json:"sensors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Sensors, 2)
	assert.Equal(t, "Shell Kamppi 95E10", resp.Sensors[0].Name)
	assert.Equal(t, "1.789", resp.Sensors[0].State)
	assert.True(t, resp.Sensors[0].Available)
}

func TestSensorsHandlerRejectsNonGet(t *testing.T) {
	svc := newTestService(t, &stubClient{}, config.Filter{})

	rec := httptest.NewRecorder()
	NewSensorsHandler(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sensors", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusHandlerHealthy(t *testing.T) {
	svc := newTestService(t, &stubClient{stations: testStations()}, config.Filter{Fuels: []string{"95"}})
	require.NoError(t, svc.RunCycle(context.Background()))

	rec := httptest.NewRecorder()
	NewStatusHandler(svc, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.Refresh.LastRefreshSuccess)
	assert.Equal(t, 1, resp.Refresh.StationCount)
	assert.False(t, resp.Database.Enabled)
}

func TestStatusHandlerDegradedAfterFailedRefresh(t *testing.T) {
	client := &stubClient{authErr: &api.AuthenticationError{Reason: "invalid credentials"}}
	svc := newTestService(t, client, config.Filter{Fuels: []string{"95"}})
	require.Error(t, svc.RunCycle(context.Background()))

	rec := httptest.NewRecorder()
	NewStatusHandler(svc, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	require.NotNil(t, resp.Refresh.LastError)
}

func TestFilterHandlerUpdatesAndReports(t *testing.T) {
	svc := newTestService(t, &stubClient{stations: testStations()}, config.Filter{Fuels: []string{"95", "dsl"}})
	require.NoError(t, svc.RunCycle(context.Background()))
	require.Equal(t, 3, svc.Registry().Count())

	body := strings.NewReader(`{"fuels": ["95"], "ignored_chains": [" Neste "]}`)
	rec := httptest.NewRecorder()
	NewFilterHandler(svc, zerolog.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/filter", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Removed int `json:"removed"`
		Added   int `json:"added"`
		Sensors int `json:"sensors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Removed)
	assert.Zero(t, resp.Added)
	assert.Equal(t, 2, resp.Sensors)
	assert.Equal(t, []string{"neste"}, svc.Filter().IgnoredChains)
}

func TestFilterHandlerKeepsCurrentFuelsWhenOmitted(t *testing.T) {
	svc := newTestService(t, &stubClient{stations: testStations()}, config.Filter{Fuels: []string{"95"}})

	body := strings.NewReader(`{"ignored_chains": ["teboil"]}`)
	rec := httptest.NewRecorder()
	NewFilterHandler(svc, zerolog.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/filter", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"95"}, svc.Filter().Fuels)
}

func TestFilterHandlerRejectsInvalidFilter(t *testing.T) {
	svc := newTestService(t, &stubClient{}, config.Filter{Fuels: []string{"95"}})

	body := strings.NewReader(`{"use_location_filter": true}`)
	rec := httptest.NewRecorder()
	NewFilterHandler(svc, zerolog.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/filter", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "latitude and longitude")
}

func TestFilterHandlerRejectsMalformedBody(t *testing.T) {
	svc := newTestService(t, &stubClient{}, config.Filter{})

	rec := httptest.NewRecorder()
	NewFilterHandler(svc, zerolog.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/filter", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilterHandlerRejectsNonPut(t *testing.T) {
	svc := newTestService(t, &stubClient{}, config.Filter{})

	rec := httptest.NewRecorder()
	NewFilterHandler(svc, zerolog.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/filter", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRefreshHandlerSchedulesRefresh(t *testing.T) {
	svc := newTestService(t, &stubClient{stations: testStations()}, config.Filter{Fuels: []string{"95"}})
	sched := scheduler.New(svc, time.Hour, zerolog.Nop())

	rec := httptest.NewRecorder()
	NewRefreshHandler(sched).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"refresh scheduled"}`, rec.Body.String())
}

func TestRefreshHandlerRejectsNonPost(t *testing.T) {
	sched := scheduler.New(nil, time.Hour, zerolog.Nop())

	rec := httptest.NewRecorder()
	NewRefreshHandler(sched).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/refresh", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
