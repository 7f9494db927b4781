package v1

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

	"github.com/Biniyam-Belay/rulDashboard/internal/domain/entity"
)

type stubUseCase struct {
	ready     bool
	singleRes *entity.PredictionResult
	singleErr error
	batchRes  *entity.BatchResult
	batchErr  error

	gotMode    entity.BatchMode
	gotWindows int
}

func (s *stubUseCase) PredictSingle(_ context.Context, _ string, w entity.Window) (*entity.PredictionResult, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return s.singleRes, s.singleErr
}

func (s *stubUseCase) PredictBatch(_ context.Context, _ string, windows []entity.Window, mode entity.BatchMode) (*entity.BatchResult, error) {
	s.gotMode = mode
	s.gotWindows = len(windows)
	return s.batchRes, s.batchErr
}

func (s *stubUseCase) RecentPredictions(context.Context, string, int) ([]entity.PredictionRecord, error) {
	return []entity.PredictionRecord{{BearingID: "b1", PredictedRUL: 42}}, nil
}

func (s *stubUseCase) Stats(context.Context) (entity.ServiceStats, error) {
	return entity.ServiceStats{Processed: 10, Failed: 2}, nil
}

func (s *stubUseCase) Ready() bool { return s.ready }

func newRouter(stub *stubUseCase, maxBatch int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPredictHandler(stub, maxBatch)

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Readiness)
	r.POST("/api/v1/predict", h.PredictSingle)
	r.POST("/api/v1/predict/batch", h.PredictBatch)
	r.GET("/api/v1/predictions/:bearing_id", h.GetRecent)
	r.GET("/api/v1/stats", h.GetStats)
	return r
}

func samplesJSON(n int) []map[string]float64 {
	samples := make([]map[string]float64, n)
	for i := range samples {
		samples[i] = map[string]float64{
			"x_direction":         float64(i + 1),
			"y_direction":         0,
			"bearing_temperature": 300,
			"env_temperature":     25,
		}
	}
	return samples
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPredictSingle_OK(t *testing.T) {
	stub := &stubUseCase{ready: true, singleRes: &entity.PredictionResult{PredictedRUL: 96.5}}
	r := newRouter(stub, 8)

	w := doJSON(t, r, http.MethodPost, "/api/v1/predict", gin.H{
		"bearing_id": "b1",
		"samples":    samplesJSON(entity.SequenceLength),
	})

	require.Equal(t, http.StatusOK, w.Code)
	var res entity.PredictionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.InDelta(t, 96.5, res.PredictedRUL, 1e-9)
}

func TestPredictSingle_WrongLength(t *testing.T) {
	stub := &stubUseCase{ready: true, singleRes: &entity.PredictionResult{}}
	r := newRouter(stub, 8)

	w := doJSON(t, r, http.MethodPost, "/api/v1/predict", gin.H{
		"bearing_id": "b1",
		"samples":    samplesJSON(entity.SequenceLength - 1),
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "schema mismatch")
	assert.Contains(t, w.Body.String(), "expected")
}

func TestPredictSingle_MissingSampleFields(t *testing.T) {
	stub := &stubUseCase{ready: true, singleRes: &entity.PredictionResult{PredictedRUL: 1}}
	r := newRouter(stub, 8)

	// Samples carrying only x_direction must be rejected at binding, not
	// treated as zero-valued readings.
	partial := make([]map[string]float64, entity.SequenceLength)
	for i := range partial {
		partial[i] = map[string]float64{"x_direction": float64(i + 1)}
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/predict", gin.H{
		"bearing_id": "b1",
		"samples":    partial,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "schema mismatch")
	assert.Contains(t, w.Body.String(), "bearing_temperature")
}

func TestPredictBatch_MissingSampleFields(t *testing.T) {
	stub := &stubUseCase{ready: true, batchRes: &entity.BatchResult{}}
	r := newRouter(stub, 8)

	bad := make([]map[string]float64, entity.SequenceLength)
	for i := range bad {
		bad[i] = map[string]float64{"y_direction": 0}
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/predict/batch", gin.H{
		"bearing_id": "b1",
		"windows":    []any{samplesJSON(50), bad},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "schema mismatch")
}

func TestPredictSingle_NotReady(t *testing.T) {
	stub := &stubUseCase{ready: false, singleErr: entity.ErrNotReady}
	r := newRouter(stub, 8)

	w := doJSON(t, r, http.MethodPost, "/api/v1/predict", gin.H{
		"bearing_id": "b1",
		"samples":    samplesJSON(entity.SequenceLength),
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPredictBatch_ModeDefaultsToTolerant(t *testing.T) {
	stub := &stubUseCase{ready: true, batchRes: &entity.BatchResult{TotalProcessed: 2}}
	r := newRouter(stub, 8)

	w := doJSON(t, r, http.MethodPost, "/api/v1/predict/batch", gin.H{
		"bearing_id": "b1",
		"windows":    [][]map[string]float64{samplesJSON(50), samplesJSON(50)},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.ModeTolerant, stub.gotMode)
	assert.Equal(t, 2, stub.gotWindows)
}

func TestPredictBatch_BadMode(t *testing.T) {
	stub := &stubUseCase{ready: true}
	r := newRouter(stub, 8)

	w := doJSON(t, r, http.MethodPost, "/api/v1/predict/batch", gin.H{
		"bearing_id": "b1",
		"mode":       "turbo",
		"windows":    [][]map[string]float64{samplesJSON(50)},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictBatch_TooLarge(t *testing.T) {
	stub := &stubUseCase{ready: true}
	r := newRouter(stub, 2)

	w := doJSON(t, r, http.MethodPost, "/api/v1/predict/batch", gin.H{
		"bearing_id": "b1",
		"windows": [][]map[string]float64{
			samplesJSON(50), samplesJSON(50), samplesJSON(50),
		},
	})

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "max_batch_size")
}

func TestPredictBatch_Empty(t *testing.T) {
	stub := &stubUseCase{ready: true}
	r := newRouter(stub, 8)

	w := doJSON(t, r, http.MethodPost, "/api/v1/predict/batch", gin.H{
		"bearing_id": "b1",
		"windows":    [][]map[string]float64{},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictBatch_FastSchemaMismatchFailsWhole(t *testing.T) {
	stub := &stubUseCase{
		ready: true,
		batchErr: &entity.SchemaMismatchError{
			Reason:   "window length",
			Expected: []string{"50 samples"},
			Got:      []string{"20 samples"},
		},
	}
	r := newRouter(stub, 8)

	w := doJSON(t, r, http.MethodPost, "/api/v1/predict/batch", gin.H{
		"bearing_id": "b1",
		"mode":       "fast",
		"windows":    [][]map[string]float64{samplesJSON(50), samplesJSON(20)},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "results")
}

func TestReadiness(t *testing.T) {
	r := newRouter(&stubUseCase{ready: false}, 8)
	w := doJSON(t, r, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	r = newRouter(&stubUseCase{ready: true}, 8)
	w = doJSON(t, r, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	r := newRouter(&stubUseCase{}, 8)
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestGetRecent(t *testing.T) {
	r := newRouter(&stubUseCase{ready: true}, 8)

	w := doJSON(t, r, http.MethodGet, "/api/v1/predictions/b1?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "b1")

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/predictions/b1?limit=%d", -3), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStats(t *testing.T) {
	r := newRouter(&stubUseCase{ready: true}, 8)

	w := doJSON(t, r, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats entity.ServiceStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 10, stats.Processed)
	assert.EqualValues(t, 2, stats.Failed)
}
