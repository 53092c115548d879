// machine/api/handler_test.go
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rigforge/rig-services/machine/service"
	"github.com/rigforge/rig-services/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *mux.Router {
	// Batch status never touches storage, so a bare service is enough here.
	handlers := NewMachineAPIHandlers(&service.MachineService{})
	router := mux.NewRouter()
	handlers.RegisterRoutes(router)
	return router
}

func postJSON(t *testing.T, router *mux.Router, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBatchStatusProjectsRunningMachine(t *testing.T) {
	router := newTestRouter()

	started := time.Now().Add(-90 * time.Second)
	machine := &models.Machine{
		ID:                   "player-1-m1",
		OwnerID:              "player-1",
		BaseRate:             0.5,
		DurationSec:          3600,
		HealthPct:            100,
		Running:              true,
		StartedAt:            &started,
		EffectiveRate:        0.5,
		EffectiveDurationSec: 3600,
	}

	rec := postJSON(t, router, "/machines/status", BatchStatusRequest{Machines: []*models.Machine{machine}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BatchStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Statuses, 1)

	st := resp.Statuses[0]
	assert.Equal(t, "player-1-m1", st.MachineID)
	assert.True(t, st.Running)
	assert.False(t, st.Complete)
	assert.InDelta(t, 90, st.ProgressSec, 2)
	assert.Equal(t, int64(3600), st.DurationSec)
	assert.Equal(t, 100, st.HealthPct)
}

func TestBatchStatusReportsIdleMachineVerbatim(t *testing.T) {
	router := newTestRouter()

	machine := &models.Machine{
		ID:                   "player-1-m1",
		OwnerID:              "player-1",
		BaseRate:             0.5,
		DurationSec:          3600,
		HealthPct:            80,
		Complete:             true,
		ProgressSec:          3600,
		EffectiveRate:        0.5,
		EffectiveDurationSec: 3600,
	}

	rec := postJSON(t, router, "/machines/status", BatchStatusRequest{Machines: []*models.Machine{machine}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BatchStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Statuses, 1)

	st := resp.Statuses[0]
	assert.False(t, st.Running)
	assert.True(t, st.Complete)
	assert.Equal(t, int64(0), st.RemainingSec)
	assert.Equal(t, 80, st.HealthPct)
}

func TestBatchStatusRejectsEmptyRequest(t *testing.T) {
	router := newTestRouter()

	rec := postJSON(t, router, "/machines/status", BatchStatusRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchStatusRejectsMachineWithoutID(t *testing.T) {
	router := newTestRouter()

	rec := postJSON(t, router, "/machines/status", BatchStatusRequest{Machines: []*models.Machine{{}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
