package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perturbscope/adapters/ledger"
	"perturbscope/adapters/matrix"
	adaptermixscape "perturbscope/adapters/mixscape"
	"perturbscope/app"
	"perturbscope/domain/core"
	"perturbscope/domain/expr"
	"perturbscope/domain/mixscape"
	"perturbscope/internal/testkit"
)

type syntheticReader struct{}

func (r *syntheticReader) Read(ctx context.Context, dir string) (*expr.Bundle, error) {
	return testkit.GenerateBundle(testkit.DefaultConfig())
}

func testServer(t *testing.T) (*Server, *JobManager, *ledger.Memory) {
	t.Helper()
	store := ledger.NewMemory()
	pipeline := app.NewPipeline(
		&syntheticReader{},
		matrix.NewNormalizer(),
		matrix.NewReducer(),
		adaptermixscape.NewSignatureCalculator(),
		adaptermixscape.NewClassifier(nil),
		adaptermixscape.NewExtractor(),
		store,
		nil,
	)

	registry := prometheus.NewRegistry()
	jobs := NewJobManager(pipeline, NewMetrics(registry), nil, 1)
	server := NewServer(gin.TestMode, jobs, store, registry, nil)
	return server, jobs, store
}

func TestServer_Health(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestServer_SubmitJobAndFetchRun(t *testing.T) {
	server, jobs, _ := testServer(t)

	params := mixscape.DefaultParams()
	params.Neighbors = 10
	params.Components = 10
	body, err := json.Marshal(map[string]interface{}{
		"dataset_dir": "synthetic",
		"params":      params,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var submitted Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.ID)

	jobs.Wait()

	// Job finished and points at a stored run.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+submitted.ID.String(), nil)
	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var done Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &done))
	require.Equal(t, JobDone, done.Status, "job error: %s", done.Error)
	require.NotEmpty(t, done.RunID)

	// The stored run is retrievable with its knockout list.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+done.RunID.String()+"/knockouts", nil)
	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		RunID     core.RunID              `json:"run_id"`
		Knockouts []mixscape.KnockoutGene `json:"knockouts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, done.RunID, payload.RunID)
	assert.NotEmpty(t, payload.Knockouts)
}

func TestServer_SubmitJob_BadRequests(t *testing.T) {
	server, _, _ := testServer(t)

	t.Run("missing dataset dir", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		server.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid params", func(t *testing.T) {
		body := []byte(`{"dataset_dir":"x","params":{"neighbors":0}}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		server.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_GetRun_NotFound(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/missing", nil)
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_GetJob_NotFound(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil)
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ListRuns(t *testing.T) {
	server, _, store := testServer(t)

	record := &mixscape.RunRecord{
		ID:        core.RunID(core.NewID()),
		DatasetID: core.DatasetID(core.NewID()),
		Params:    mixscape.DefaultParams(),
		StartedAt: core.Now(),
		EndedAt:   core.Now(),
	}
	require.NoError(t, store.SaveRun(context.Background(), record))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		Runs []mixscape.RunRecord `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Runs, 1)

	// Filtering by a different dataset returns nothing.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs?dataset_id=other", nil)
	server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Empty(t, payload.Runs)
}

func TestServer_Metrics(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
