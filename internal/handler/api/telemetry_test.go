package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/engine"
	"RiskPulse/internal/usecase"
	applogger "RiskPulse/pkg/logger"
)

type noopMetrics struct{}

func (noopMetrics) RecordTick(float64)           {}
func (noopMetrics) RecordAlert(string)           {}
func (noopMetrics) RecordRegime(string, float64) {}
func (noopMetrics) RecordPublish(string, error)  {}
func (noopMetrics) SetStreamClients(int)         {}
func (noopMetrics) RecordError(string)           {}

func newTestHandler(t *testing.T) (*TelemetryHandler, *echo.Echo) {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	require.NoError(t, err)

	t0 := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	eng := engine.New(7, t0)
	clock := func() time.Time { return t0 }
	sim := usecase.NewSimulator(eng, time.Second, clock, noopMetrics{}, l)

	h := NewTelemetryHandler(l, sim)
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestSnapshotEndpoint(t *testing.T) {
	_, e := newTestHandler(t)
	rec, env := doJSON(t, e, http.MethodGet, "/api/snapshot", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Status)

	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, models.PhaseCalm, snap.Phase)
	assert.Len(t, snap.Pillars, 7)
	assert.NotNil(t, snap.Portfolio)
}

func TestScenariosEndpoint(t *testing.T) {
	_, e := newTestHandler(t)
	rec, env := doJSON(t, e, http.MethodGet, "/api/scenarios", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	require.NoError(t, json.Unmarshal(env.Data, &ids))
	assert.Contains(t, ids, "flash-crash")
	assert.Contains(t, ids, "crypto-contagion")
	assert.Contains(t, ids, "grind-down")
}

func TestControlPhase(t *testing.T) {
	h, e := newTestHandler(t)

	_, env := doJSON(t, e, http.MethodPost, "/api/control/phase", `{"phase":"DELEVERAGE"}`)
	assert.Equal(t, http.StatusOK, env.Status)

	var ack models.ControlAck
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	assert.True(t, ack.Applied)
	assert.Equal(t, "DELEVERAGE", ack.Phase)

	// The forced phase takes effect on the next tick.
	h.sim.Engine().Tick(h.sim.Now())
	assert.Equal(t, models.PhaseDeleverage, h.sim.Engine().Snapshot().Phase)
}

func TestControlPhaseRejectsUnknownName(t *testing.T) {
	_, e := newTestHandler(t)
	_, env := doJSON(t, e, http.MethodPost, "/api/control/phase", `{"phase":"PANIC"}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestControlScenarioLifecycle(t *testing.T) {
	h, e := newTestHandler(t)

	_, env := doJSON(t, e, http.MethodPost, "/api/control/scenario", `{"scenario":"grind-down"}`)
	assert.Equal(t, http.StatusOK, env.Status)

	h.sim.Engine().Tick(h.sim.Now())
	snap := h.sim.Engine().Snapshot()
	require.NotNil(t, snap.Scenario)
	assert.Equal(t, "grind-down", snap.Scenario.ID)

	_, env = doJSON(t, e, http.MethodPost, "/api/control/scenario/clear", "")
	assert.Equal(t, http.StatusOK, env.Status)
	h.sim.Engine().Tick(h.sim.Now())
	assert.Nil(t, h.sim.Engine().Snapshot().Scenario)
}

func TestControlScenarioUnknownID(t *testing.T) {
	_, e := newTestHandler(t)
	_, env := doJSON(t, e, http.MethodPost, "/api/control/scenario", `{"scenario":"black-monday"}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestControlDemo(t *testing.T) {
	_, e := newTestHandler(t)
	_, env := doJSON(t, e, http.MethodPost, "/api/control/demo", "")

	var ack models.ControlAck
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	assert.True(t, ack.Applied)
	assert.Equal(t, "flash-crash", ack.Scenario)
}

func TestApproveReentryOutsideScenario(t *testing.T) {
	_, e := newTestHandler(t)
	rec, env := doJSON(t, e, http.MethodPost, "/api/control/approve-reentry", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var ack models.ControlAck
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	assert.False(t, ack.Applied, "no re-entry approval while free-running")
}

func TestAlertsEndpointLimit(t *testing.T) {
	h, e := newTestHandler(t)

	// Walk the engine far enough to accumulate phase-transition alerts.
	now := h.sim.Now()
	for i := 1; i <= 60; i++ {
		h.sim.Engine().Tick(now.Add(time.Duration(i) * time.Second))
	}
	total := len(h.sim.Engine().Snapshot().Alerts)
	require.Greater(t, total, 2)

	_, env := doJSON(t, e, http.MethodGet, "/api/alerts?limit=2", "")
	var list struct {
		Rows  []models.AlertEvent `json:"rows"`
		Total int64               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Rows, 2)
	assert.Equal(t, int64(total), list.Total)

	_, env = doJSON(t, e, http.MethodGet, "/api/alerts?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}
