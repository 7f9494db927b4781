package scaler

import (
	"fmt"
)

// Params are the fitted parameters of an sklearn MinMaxScaler, exported to
// JSON by the training pipeline. The scaler is never refitted here.
type Params struct {
	FeatureNames []string  `json:"feature_names"`
	DataMin      []float64 `json:"data_min"`
	DataMax      []float64 `json:"data_max"`
	RangeMin     float64   `json:"range_min"`
	RangeMax     float64   `json:"range_max"`
}

// MinMax applies a pre-fitted min-max transform:
//
//	scaled = x*scale + min
//	scale  = (range_max - range_min) / (data_max - data_min)
//	min    = range_min - data_min*scale
type MinMax struct {
	names []string
	scale []float64
	min   []float64
}

func New(p Params) (*MinMax, error) {
	n := len(p.FeatureNames)
	if n == 0 {
		return nil, fmt.Errorf("scaler params: no feature names")
	}
	if len(p.DataMin) != n || len(p.DataMax) != n {
		return nil, fmt.Errorf("scaler params: %d feature names but %d/%d min/max values",
			n, len(p.DataMin), len(p.DataMax))
	}
	if p.RangeMax == 0 && p.RangeMin == 0 {
		// Artifact without an explicit range was fitted with the (0, 1) default.
		p.RangeMax = 1
	}

	m := &MinMax{
		names: append([]string(nil), p.FeatureNames...),
		scale: make([]float64, n),
		min:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		span := p.DataMax[i] - p.DataMin[i]
		if span == 0 {
			// Constant column: sklearn treats the zero span as 1.
			span = 1
		}
		m.scale[i] = (p.RangeMax - p.RangeMin) / span
		m.min[i] = p.RangeMin - p.DataMin[i]*m.scale[i]
	}
	return m, nil
}

// FeatureNames returns the column names, in order, the scaler was fitted on.
func (m *MinMax) FeatureNames() []string {
	return append([]string(nil), m.names...)
}

func (m *MinMax) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(m.scale) {
			return nil, fmt.Errorf("transform: row %d has %d values, scaler fitted on %d columns",
				i, len(row), len(m.scale))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = v*m.scale[j] + m.min[j]
		}
		out[i] = scaled
	}
	return out, nil
}

func (m *MinMax) InverseTransform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(m.scale) {
			return nil, fmt.Errorf("inverse transform: row %d has %d values, scaler fitted on %d columns",
				i, len(row), len(m.scale))
		}
		orig := make([]float64, len(row))
		for j, v := range row {
			orig[j] = (v - m.min[j]) / m.scale[j]
		}
		out[i] = orig
	}
	return out, nil
}
