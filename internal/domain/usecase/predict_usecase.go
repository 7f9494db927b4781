package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Biniyam-Belay/rulDashboard/internal/domain/entity"
	"github.com/Biniyam-Belay/rulDashboard/internal/domain/features"
	"github.com/Biniyam-Belay/rulDashboard/pkg/utils"
)

// Model is the opaque prediction oracle. Predict takes a
// [batch, SequenceLength, NumFeatures] tensor and returns one scaled score
// per window. Implementations must be safe for concurrent use, or be wrapped
// with SerializeModel.
type Model interface {
	Predict(ctx context.Context, instances [][][]float64) ([]float64, error)
}

// FeatureScaler is the pre-fitted transform for the engineered feature block.
type FeatureScaler interface {
	FeatureNames() []string
	Transform(rows [][]float64) ([][]float64, error)
}

// RULScaler inverse-transforms scaled model scores back to revolutions.
type RULScaler interface {
	InverseTransform(rows [][]float64) ([][]float64, error)
}

type ResultCache interface {
	GetRUL(ctx context.Context, digest string) (float64, bool, error)
	SetRUL(ctx context.Context, digest string, rul float64) error
	IncrCounters(ctx context.Context, processed, failed int64) error
	Stats(ctx context.Context) (entity.ServiceStats, error)
}

type HistoryRepo interface {
	SaveRecords(ctx context.Context, recs []entity.PredictionRecord) error
	RecentByBearing(ctx context.Context, bearingID string, limit int) ([]entity.PredictionRecord, error)
}

type Publisher interface {
	Publish(ctx context.Context, messageID string, body json.RawMessage) error
}

// PredictUseCase runs the full inference pipeline: feature engineering,
// column assembly and scaling, one model invocation, RUL decoding. It refuses
// all requests until Install has provided the model and both scalers.
//
// Cache, History and Publisher are optional; when set, failures there are
// logged and never fail a prediction.
type PredictUseCase struct {
	Cache     ResultCache
	History   HistoryRepo
	Publisher Publisher

	mu            sync.RWMutex
	model         Model
	featureScaler FeatureScaler
	rulScaler     RULScaler
	ready         atomic.Bool
}

func NewPredictUseCase(cache ResultCache, history HistoryRepo, pub Publisher) *PredictUseCase {
	return &PredictUseCase{
		Cache:     cache,
		History:   history,
		Publisher: pub,
	}
}

// Install wires the loaded artifacts and marks the service ready. The feature
// scaler's recorded column set must match the engineered columns exactly,
// otherwise scaling would silently produce wrong values.
func (u *PredictUseCase) Install(model Model, fs FeatureScaler, rs RULScaler) error {
	got := fs.FeatureNames()
	want := features.EngineeredColumns
	if !equalColumns(got, want) {
		return &entity.SchemaMismatchError{
			Reason:   "feature scaler columns",
			Expected: want,
			Got:      got,
		}
	}

	u.mu.Lock()
	u.model = model
	u.featureScaler = fs
	u.rulScaler = rs
	u.mu.Unlock()
	u.ready.Store(true)
	return nil
}

func (u *PredictUseCase) Ready() bool { return u.ready.Load() }

func (u *PredictUseCase) collaborators() (Model, FeatureScaler, RULScaler, error) {
	if !u.ready.Load() {
		return nil, nil, nil, entity.ErrNotReady
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.model, u.featureScaler, u.rulScaler, nil
}

// PredictSingle predicts the remaining useful life, in hours, for one window.
func (u *PredictUseCase) PredictSingle(ctx context.Context, bearingID string, w entity.Window) (*entity.PredictionResult, error) {
	model, fs, rs, err := u.collaborators()
	if err != nil {
		return nil, err
	}

	digest := utils.WindowDigest(w)
	if u.Cache != nil {
		if rul, ok, cerr := u.Cache.GetRUL(ctx, digest); cerr == nil && ok {
			return &entity.PredictionResult{PredictedRUL: rul}, nil
		}
	}

	frame, err := features.EngineerWindow(w)
	if err != nil {
		u.count(ctx, 1, 1)
		return nil, err
	}
	tensor, err := scaleFrame(fs, frame)
	if err != nil {
		u.count(ctx, 1, 1)
		return nil, err
	}

	hours, err := u.infer(ctx, model, rs, [][][]float64{tensor})
	if err != nil {
		u.count(ctx, 1, 1)
		return nil, err
	}
	rul := hours[0]

	if u.Cache != nil {
		if cerr := u.Cache.SetRUL(ctx, digest, rul); cerr != nil {
			log.Printf("prediction cache set failed: %v", cerr)
		}
	}
	u.count(ctx, 1, 0)

	requestID := uuid.New().String()
	u.record(ctx, []entity.PredictionRecord{{
		RequestID:    requestID,
		BearingID:    bearingID,
		Mode:         "single",
		PredictedRUL: rul,
	}})
	u.publish(ctx, entity.PredictionMadeMessage{
		RequestID:    requestID,
		BearingID:    bearingID,
		Mode:         "single",
		WindowCount:  1,
		MeanRULHours: rul,
		At:           time.Now().UTC(),
	})

	return &entity.PredictionResult{PredictedRUL: rul}, nil
}

// RecentPredictions returns the latest persisted rows for one bearing.
func (u *PredictUseCase) RecentPredictions(ctx context.Context, bearingID string, limit int) ([]entity.PredictionRecord, error) {
	if u.History == nil {
		return nil, nil
	}
	return u.History.RecentByBearing(ctx, bearingID, limit)
}

// Stats exposes the running request counters.
func (u *PredictUseCase) Stats(ctx context.Context) (entity.ServiceStats, error) {
	if u.Cache == nil {
		return entity.ServiceStats{}, nil
	}
	return u.Cache.Stats(ctx)
}

// infer is the sole point of contact with the model oracle: exactly one
// Predict call per request, regardless of batch size, then decoding back to
// hours.
func (u *PredictUseCase) infer(ctx context.Context, model Model, rs RULScaler, tensors [][][]float64) ([]float64, error) {
	scores, err := model.Predict(ctx, tensors)
	if err != nil {
		return nil, &entity.OracleError{Op: "model predict", Err: err}
	}
	if len(scores) != len(tensors) {
		return nil, &entity.OracleError{
			Op:  "model predict",
			Err: fmt.Errorf("expected %d scores, got %d", len(tensors), len(scores)),
		}
	}
	return decodeRUL(rs, scores)
}

// decodeRUL inverse-transforms scaled scores to revolutions and converts to
// hours. The scaler contract wants a 2D column vector. No clamping: negative
// or implausibly large values pass through.
func decodeRUL(rs RULScaler, scores []float64) ([]float64, error) {
	cols := make([][]float64, len(scores))
	for i, s := range scores {
		cols[i] = []float64{s}
	}
	revs, err := rs.InverseTransform(cols)
	if err != nil {
		return nil, &entity.OracleError{Op: "rul scaler inverse transform", Err: err}
	}
	hours := make([]float64, len(revs))
	for i, r := range revs {
		hours[i] = r[0] / entity.MaxRevolutions * entity.MaxHours
	}
	return hours, nil
}

// scaleFrame transforms one window's engineered block and reassembles the
// final [SequenceLength, NumFeatures] tensor. Only the engineered block goes
// through the scaler; the raw block is appended unscaled.
func scaleFrame(fs FeatureScaler, frame *features.Frame) ([][]float64, error) {
	scaled, err := fs.Transform(frame.Engineered)
	if err != nil {
		return nil, &entity.OracleError{Op: "feature scaler transform", Err: err}
	}
	return features.Assemble(scaled, frame.Raw), nil
}

func (u *PredictUseCase) count(ctx context.Context, processed, failed int64) {
	if u.Cache == nil {
		return
	}
	if err := u.Cache.IncrCounters(ctx, processed, failed); err != nil {
		log.Printf("stats counters update failed: %v", err)
	}
}

func (u *PredictUseCase) record(ctx context.Context, recs []entity.PredictionRecord) {
	if u.History == nil || len(recs) == 0 {
		return
	}
	if err := u.History.SaveRecords(ctx, recs); err != nil {
		log.Printf("prediction history save failed: %v", err)
	}
}

func (u *PredictUseCase) publish(ctx context.Context, msg entity.PredictionMadeMessage) {
	if u.Publisher == nil {
		return
	}
	body, err := utils.ToRawMessage(msg)
	if err != nil {
		log.Printf("prediction event marshal failed: %v", err)
		return
	}
	// The request id doubles as the broker message id for downstream dedup.
	if err := u.publishWithRetry(ctx, msg.RequestID, body); err != nil {
		log.Printf("prediction event publish failed: %v", err)
	}
}

func (u *PredictUseCase) publishWithRetry(ctx context.Context, messageID string, msg json.RawMessage) error {
	var (
		baseDelay   = 200 * time.Millisecond
		maxDelay    = 2 * time.Second
		maxAttempts = 3
	)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := u.Publisher.Publish(ctx, messageID, msg); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == maxAttempts {
			break
		}

		backoff := baseDelay << (attempt - 1)
		if backoff > maxDelay {
			backoff = maxDelay
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return errors.New("publish canceled by context")
		}
	}
	return lastErr
}

func equalColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// serialModel funnels Predict calls through a mutex, for model runtimes that
// are not safe to invoke concurrently.
type serialModel struct {
	mu    sync.Mutex
	inner Model
}

// SerializeModel wraps m so that at most one Predict runs at a time.
func SerializeModel(m Model) Model {
	return &serialModel{inner: m}
}

func (s *serialModel) Predict(ctx context.Context, instances [][][]float64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Predict(ctx, instances)
}
