package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/duty-roster/internal/config"
	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/services"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
	"github.com/jakechorley/duty-roster/pkg/db"
	"github.com/jakechorley/duty-roster/pkg/metrics"
)

type mockStore struct {
	inputs map[string]solver.Input
	saved  int
}

func (m *mockStore) LoadRosterInput(ctx context.Context, rosterID string) (solver.Input, error) {
	in, ok := m.inputs[rosterID]
	if !ok {
		return solver.Input{}, fmt.Errorf("%w: %s", db.ErrRosterNotFound, rosterID)
	}
	return in, nil
}

func (m *mockStore) SaveSolveResult(ctx context.Context, result db.SolveResult) error {
	m.saved++
	return nil
}

type response struct {
	Data  map[string]any `json:"data"`
	Error *APIError      `json:"error"`
}

func sampleInput() solver.Input {
	return solver.Input{
		RosterID: "r1",
		Workers: []model.Worker{
			{ID: "w1", Team: model.TeamAny, Capabilities: []model.Capability{{ServiceCode: "X"}}},
			{ID: "w2", Team: model.TeamAny, Capabilities: []model.Capability{{ServiceCode: "X"}}},
		},
		Services:     []model.ServiceType{{Code: "X", Team: model.TeamAny}},
		Requirements: []model.Requirement{{Date: "2024-03-04", Timeblock: model.TimeblockMorning, ServiceCode: "X", Count: 2}},
	}
}

func newTestServer(store services.SolveRosterStore) (*Server, *metrics.Metrics) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	return NewServer(config.Default(), store, services.Collaborators{Metrics: m}), m
}

func do(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp response
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(nil)

	w, _ := do(t, s, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSolve(t *testing.T) {
	s, _ := newTestServer(nil)

	w, resp := do(t, s, http.MethodPost, "/v1/solve", sampleInput())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, resp.Error)
	output := resp.Data["output"].(map[string]any)
	assert.Equal(t, "success", output["status"])
	assert.Equal(t, 100.0, output["coveragePercent"])
	assert.Len(t, output["assignments"], 2)
	assert.Equal(t, "greedy/gap", resp.Data["solver"])
}

func TestSolve_BadJSON(t *testing.T) {
	s, _ := newTestServer(nil)

	w, resp := do(t, s, http.MethodPost, "/v1/solve", `{"workers":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeBadRequest, resp.Error.Code)
}

func TestSolve_DataErrorIs422(t *testing.T) {
	s, _ := newTestServer(nil)
	in := sampleInput()
	in.Requirements[0].ServiceCode = "UNKNOWN"

	w, resp := do(t, s, http.MethodPost, "/v1/solve", in)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeDataError, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "UNKNOWN")
}

func TestSolveRoster(t *testing.T) {
	store := &mockStore{inputs: map[string]solver.Input{"r1": sampleInput()}}
	s, _ := newTestServer(store)

	w, resp := do(t, s, http.MethodPost, "/v1/rosters/r1/solve?dryRun=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp.Data["persisted"])
	assert.Equal(t, 0, store.saved)

	w, resp = do(t, s, http.MethodPost, "/v1/rosters/r1/solve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data["persisted"])
	assert.Equal(t, 1, store.saved)
}

func TestSolveRoster_NotFound(t *testing.T) {
	s, _ := newTestServer(&mockStore{})

	w, resp := do(t, s, http.MethodPost, "/v1/rosters/missing/solve", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)
}

func TestSolveRoster_InvalidDryRun(t *testing.T) {
	s, _ := newTestServer(&mockStore{})

	w, _ := do(t, s, http.MethodPost, "/v1/rosters/r1/solve?dryRun=maybe", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSolveRoster_NoStore(t *testing.T) {
	s, _ := newTestServer(nil)

	w, resp := do(t, s, http.MethodPost, "/v1/rosters/r1/solve", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeUnavailable, resp.Error.Code)
}

func TestValidate(t *testing.T) {
	s, _ := newTestServer(nil)
	req := ValidateRequest{
		Input: sampleInput(),
		Assignments: []model.Assignment{
			{WorkerID: "w1", Date: "2024-03-04", Timeblock: model.TimeblockMorning, ServiceCode: "X", Status: model.StatusActive},
		},
	}

	w, resp := do(t, s, http.MethodPost, "/v1/validate", req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50.0, resp.Data["coveragePercent"])
	acceptance := resp.Data["acceptance"].(map[string]any)
	assert.Equal(t, true, acceptance["accepted"])
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(nil)
	do(t, s, http.MethodPost, "/v1/solve", sampleInput())

	w, _ := do(t, s, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `roster_solves_total{solver="greedy/gap",status="success"} 1`)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="POST",path="/v1/solve",status="200"} 1`)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{model.NewDataError("op", "bad"), http.StatusUnprocessableEntity, CodeDataError},
		{model.NewInvariantViolation("op", "broken"), http.StatusInternalServerError, CodeInvariantViolation},
		{fmt.Errorf("failed to solve roster: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, CodeTimeout},
		{db.ErrRosterNotFound, http.StatusNotFound, CodeNotFound},
		{fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		status, code := statusOf(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
