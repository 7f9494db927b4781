package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Biniyam-Belay/rulDashboard/internal/domain/entity"
	"github.com/Biniyam-Belay/rulDashboard/internal/domain/features"
)

// PredictBatch fans one request out across many windows and returns results
// aligned 1:1 with the input order.
//
// Tolerant mode isolates per-window failures: a window that fails feature
// engineering or scaling becomes a failed slot (sentinel RUL) and the rest
// proceed to a single shared model invocation. Fast mode processes the whole
// batch as one vectorized pass; any malformed window fails the request.
func (u *PredictUseCase) PredictBatch(ctx context.Context, bearingID string, windows []entity.Window, mode entity.BatchMode) (*entity.BatchResult, error) {
	model, fs, rs, err := u.collaborators()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	requestID := uuid.New().String()

	var (
		results []entity.PredictionResult
		failed  int
	)

	switch mode {
	case entity.ModeTolerant:
		results, failed, err = u.runTolerant(ctx, model, fs, rs, windows)
	case entity.ModeFast:
		results, err = u.runFast(ctx, model, fs, rs, windows)
	default:
		err = fmt.Errorf("unknown batch mode %q", mode)
	}
	if err != nil {
		u.count(ctx, int64(len(windows)), int64(len(windows)))
		return nil, err
	}

	res := &entity.BatchResult{
		RequestID:      requestID,
		Results:        results,
		TotalProcessed: len(windows),
		FailedCount:    failed,
		ElapsedSeconds: time.Since(start).Seconds(),
	}

	u.count(ctx, int64(res.TotalProcessed), int64(res.FailedCount))
	u.record(ctx, batchRecords(requestID, bearingID, mode, results))
	u.publish(ctx, entity.PredictionMadeMessage{
		RequestID:    requestID,
		BearingID:    bearingID,
		Mode:         string(mode),
		WindowCount:  res.TotalProcessed,
		FailedCount:  res.FailedCount,
		MeanRULHours: meanRUL(results),
		At:           time.Now().UTC(),
	})

	return res, nil
}

// runTolerant engineers and scales every window independently, splices failed
// slots back in at their original positions, and sends the survivors through
// one model call. Only per-window input problems (schema or numeric) become
// failed slots; an oracle failure, whether from the scaler or the shared model
// invocation, aborts the whole batch since it affects every window at once.
func (u *PredictUseCase) runTolerant(ctx context.Context, model Model, fs FeatureScaler, rs RULScaler, windows []entity.Window) ([]entity.PredictionResult, int, error) {
	results := make([]entity.PredictionResult, len(windows))
	tensors := make([][][]float64, 0, len(windows))
	okIdx := make([]int, 0, len(windows))

	var failed int
	for i, w := range windows {
		tensor, err := engineerAndScale(fs, w)
		if err != nil {
			if !entity.IsInputError(err) {
				return nil, 0, err
			}
			results[i] = entity.PredictionResult{
				PredictedRUL: entity.FailedRUL,
				Failed:       true,
				Error:        err.Error(),
			}
			failed++
			continue
		}
		tensors = append(tensors, tensor)
		okIdx = append(okIdx, i)
	}

	if len(tensors) > 0 {
		hours, err := u.infer(ctx, model, rs, tensors)
		if err != nil {
			return nil, 0, err
		}
		for k, i := range okIdx {
			results[i] = entity.PredictionResult{PredictedRUL: hours[k]}
		}
	}
	return results, failed, nil
}

// runFast engineers the whole batch, runs one vectorized scaler transform over
// all rows, and one model call. No per-window isolation: the first bad window
// fails the request.
func (u *PredictUseCase) runFast(ctx context.Context, model Model, fs FeatureScaler, rs RULScaler, windows []entity.Window) ([]entity.PredictionResult, error) {
	frames, err := features.EngineerBatch(windows)
	if err != nil {
		return nil, err
	}

	stacked := make([][]float64, 0, len(frames)*entity.SequenceLength)
	for _, f := range frames {
		stacked = append(stacked, f.Engineered...)
	}
	scaled, err := fs.Transform(stacked)
	if err != nil {
		return nil, &entity.OracleError{Op: "feature scaler transform", Err: err}
	}

	tensors := make([][][]float64, len(frames))
	for i, f := range frames {
		block := scaled[i*entity.SequenceLength : (i+1)*entity.SequenceLength]
		tensors[i] = features.Assemble(block, f.Raw)
	}

	hours, err := u.infer(ctx, model, rs, tensors)
	if err != nil {
		return nil, err
	}

	results := make([]entity.PredictionResult, len(hours))
	for i, h := range hours {
		results[i] = entity.PredictionResult{PredictedRUL: h}
	}
	return results, nil
}

func engineerAndScale(fs FeatureScaler, w entity.Window) ([][]float64, error) {
	frame, err := features.EngineerWindow(w)
	if err != nil {
		return nil, err
	}
	return scaleFrame(fs, frame)
}

func batchRecords(requestID, bearingID string, mode entity.BatchMode, results []entity.PredictionResult) []entity.PredictionRecord {
	recs := make([]entity.PredictionRecord, 0, len(results))
	for i, r := range results {
		if r.Failed {
			continue
		}
		recs = append(recs, entity.PredictionRecord{
			RequestID:    requestID,
			BearingID:    bearingID,
			Mode:         string(mode),
			WindowIndex:  i,
			PredictedRUL: r.PredictedRUL,
		})
	}
	return recs
}

func meanRUL(results []entity.PredictionResult) float64 {
	var sum float64
	var n int
	for _, r := range results {
		if r.Failed {
			continue
		}
		sum += r.PredictedRUL
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
