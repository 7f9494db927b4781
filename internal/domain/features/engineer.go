package features

import (
	"math"

	"github.com/Biniyam-Belay/rulDashboard/internal/domain/entity"
)

const (
	// Epsilon keeps every logarithm argument strictly positive.
	Epsilon = 1e-6

	rollingWindow = 5
	ewmaSpan      = 5
)

// ewmaAlpha is the recurrence weight for span 5 (alpha = 2/(span+1)).
const ewmaAlpha = 2.0 / (ewmaSpan + 1)

// Frame holds the engineered and raw feature rows for one window, each row
// ordered as EngineeredColumns / RawColumns.
type Frame struct {
	Engineered [][]float64 // SequenceLength x len(EngineeredColumns)
	Raw        [][]float64 // SequenceLength x len(RawColumns)
}

// EngineerWindow derives the engineered columns for one validated window.
// Every mode (single, tolerant batch, fast batch) runs through this one
// kernel, so single-window and batch requests can never diverge numerically.
//
// The bearing temperature logarithm uses the windowed convention: plain
// ln(v) when every value in the window is positive, otherwise
// ln(v - min(window) + Epsilon).
func EngineerWindow(w entity.Window) (*Frame, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	n := len(w)
	minTemp := w[0].BearingTemperature
	for _, s := range w[1:] {
		if s.BearingTemperature < minTemp {
			minTemp = s.BearingTemperature
		}
	}
	tempShift := 0.0
	if minTemp <= 0 {
		tempShift = -minTemp + Epsilon
	}

	frame := &Frame{
		Engineered: make([][]float64, n),
		Raw:        make([][]float64, n),
	}

	var ewmaX, ewmaY float64
	var rollSumX, rollSumY float64

	for i, s := range w {
		logTemp := math.Log(s.BearingTemperature + tempShift)
		logAbsX := math.Log(math.Abs(s.XDirection) + Epsilon)
		logAbsY := math.Log(math.Abs(s.YDirection) + Epsilon)

		// Trailing mean over the last rollingWindow samples, or as many as
		// exist at the start of the window.
		rollSumX += s.XDirection
		rollSumY += s.YDirection
		if i >= rollingWindow {
			rollSumX -= w[i-rollingWindow].XDirection
			rollSumY -= w[i-rollingWindow].YDirection
		}
		span := i + 1
		if span > rollingWindow {
			span = rollingWindow
		}
		rollMeanX := rollSumX / float64(span)
		rollMeanY := rollSumY / float64(span)

		// Recurrence EWMA, not bias-adjusted: first value seeds the series.
		if i == 0 {
			ewmaX = s.XDirection
			ewmaY = s.YDirection
		} else {
			ewmaX = ewmaAlpha*s.XDirection + (1-ewmaAlpha)*ewmaX
			ewmaY = ewmaAlpha*s.YDirection + (1-ewmaAlpha)*ewmaY
		}

		var deltaX, deltaY float64
		if i > 0 {
			deltaX = s.XDirection - w[i-1].XDirection
			deltaY = s.YDirection - w[i-1].YDirection
		}

		frame.Engineered[i] = []float64{
			logTemp, logAbsX, logAbsY,
			rollMeanX, rollMeanY,
			ewmaX, ewmaY,
			deltaX, deltaY,
		}
		frame.Raw[i] = []float64{
			s.XDirection, s.YDirection,
			s.BearingTemperature, s.EnvTemperature,
		}
	}

	if err := checkFinite(frame.Engineered); err != nil {
		return nil, err
	}
	return frame, nil
}

// EngineerBatch runs EngineerWindow over every window. Any failing window
// fails the whole call; the tolerant path calls EngineerWindow per window
// instead.
func EngineerBatch(windows []entity.Window) ([]*Frame, error) {
	frames := make([]*Frame, len(windows))
	for i, w := range windows {
		f, err := EngineerWindow(w)
		if err != nil {
			return nil, err
		}
		frames[i] = f
	}
	return frames, nil
}

func checkFinite(rows [][]float64) error {
	for i, row := range rows {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &entity.NumericError{Column: EngineeredColumns[j], Index: i}
			}
		}
	}
	return nil
}
