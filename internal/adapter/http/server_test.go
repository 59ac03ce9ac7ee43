package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agroclim/gdd-tracker/internal/domain"
	"github.com/agroclim/gdd-tracker/internal/service"
)

type mockRunner struct {
	gotReq  service.Request
	outcome service.Outcome
	err     error
}

func (m *mockRunner) Run(_ context.Context, req service.Request, _ domain.ProgressSink) (service.Outcome, error) {
	m.gotReq = req
	return m.outcome, m.err
}

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func testServer(runner SimulationRunner, ready ReadinessChecker) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", runner, ready, logger)
}

func completedOutcome() service.Outcome {
	stages, _ := domain.NewStages([]float64{100})
	stages.MarkReached(105, time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC))
	return service.Outcome{
		RunID:    "run-1",
		Lat:      13.0827,
		Lon:      80.2707,
		Location: "Chennai, India",
		Result: domain.Result{
			Records: []domain.Record{
				{Date: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), TMax: 30, TMin: 20, GDDDay: 15, GDDCum: 15},
			},
			Stages:    stages,
			Completed: true,
		},
	}
}

func TestHandleSimulate_Success(t *testing.T) {
	runner := &mockRunner{outcome: completedOutcome()}
	srv := testServer(runner, &mockReadiness{})

	body := `{"place":"Chennai, India","start":"2025-01-01","base_temp":10,"targets":[100]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/simulations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp simulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, 13.0827, resp.Location.Lat)
	assert.Equal(t, "Chennai, India", resp.Location.Label)
	assert.True(t, resp.Completed)
	assert.Empty(t, resp.Error)
	require.Len(t, resp.Stages, 1)
	assert.True(t, resp.Stages[0].Reached)

	// The parsed request reaches the runner intact.
	assert.Equal(t, "Chennai, India", runner.gotReq.Place)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), runner.gotReq.Start)
	assert.Equal(t, 10.0, runner.gotReq.BaseTemp)
	assert.Equal(t, []float64{100}, runner.gotReq.Targets)
}

func TestHandleSimulate_CoordinateRequest(t *testing.T) {
	runner := &mockRunner{outcome: completedOutcome()}
	srv := testServer(runner, &mockReadiness{})

	body := `{"lat":11.5,"lon":77.25,"start":"2025-01-01","base_temp":8}`
	req := httptest.NewRequest(http.MethodPost, "/v1/simulations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, runner.gotReq.Lat)
	require.NotNil(t, runner.gotReq.Lon)
	assert.Equal(t, 11.5, *runner.gotReq.Lat)
	assert.Equal(t, 77.25, *runner.gotReq.Lon)
}

func TestHandleSimulate_InvalidJSON(t *testing.T) {
	srv := testServer(&mockRunner{}, &mockReadiness{})

	req := httptest.NewRequest(http.MethodPost, "/v1/simulations", strings.NewReader("{oops"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
}

func TestHandleSimulate_BadStartDate(t *testing.T) {
	srv := testServer(&mockRunner{}, &mockReadiness{})

	body := `{"place":"Chennai","start":"01/01/2025","base_temp":10}`
	req := httptest.NewRequest(http.MethodPost, "/v1/simulations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "YYYY-MM-DD")
}

func TestHandleSimulate_PlaceNotFound(t *testing.T) {
	runner := &mockRunner{err: fmt.Errorf("geocode %q: %w", "atlantis", domain.ErrPlaceNotFound)}
	srv := testServer(runner, &mockReadiness{})

	body := `{"place":"atlantis","start":"2025-01-01","base_temp":10}`
	req := httptest.NewRequest(http.MethodPost, "/v1/simulations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "atlantis")
}

func TestHandleSimulate_ValidationError(t *testing.T) {
	runner := &mockRunner{err: errors.New("latitude must be between -90 and 90")}
	srv := testServer(runner, &mockReadiness{})

	body := `{"lat":123,"lon":80,"start":"2025-01-01","base_temp":10}`
	req := httptest.NewRequest(http.MethodPost, "/v1/simulations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "latitude")
}

func TestHandleSimulate_PartialResultIsOK(t *testing.T) {
	out := completedOutcome()
	out.Result.Completed = false
	out.RunErr = &domain.RemoteError{Status: 503, Attempts: 3, Err: errors.New("service unavailable")}
	srv := testServer(&mockRunner{outcome: out}, &mockReadiness{})

	body := `{"place":"Chennai","start":"2025-01-01","base_temp":10}`
	req := httptest.NewRequest(http.MethodPost, "/v1/simulations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp simulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Completed)
	assert.Contains(t, resp.Error, "503")
	assert.Len(t, resp.Records, 1, "partial records are still returned")
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(&mockRunner{}, &mockReadiness{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHandleReady(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := testServer(&mockRunner{}, &mockReadiness{})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		srv := testServer(&mockRunner{}, &mockReadiness{err: errors.New("power client not configured")})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "not ready")
	})
}

func TestMethodRouting(t *testing.T) {
	srv := testServer(&mockRunner{}, &mockReadiness{})

	req := httptest.NewRequest(http.MethodGet, "/v1/simulations", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
