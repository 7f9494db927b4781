package scaler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinMax_Transform(t *testing.T) {
	m, err := New(Params{
		FeatureNames: []string{"a", "b"},
		DataMin:      []float64{0, 10},
		DataMax:      []float64{10, 20},
		RangeMin:     0,
		RangeMax:     1,
	})
	require.NoError(t, err)

	out, err := m.Transform([][]float64{{5, 15}, {0, 20}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out[0][0], 1e-12)
	assert.InDelta(t, 0.5, out[0][1], 1e-12)
	assert.InDelta(t, 0.0, out[1][0], 1e-12)
	assert.InDelta(t, 1.0, out[1][1], 1e-12)
}

func TestMinMax_RoundTrip(t *testing.T) {
	m, err := New(Params{
		FeatureNames: []string{"rul"},
		DataMin:      []float64{50},
		DataMax:      []float64{8000},
		RangeMin:     0,
		RangeMax:     1,
	})
	require.NoError(t, err)

	for _, v := range []float64{50, 123.4, 4000, 8000} {
		scaled, err := m.Transform([][]float64{{v}})
		require.NoError(t, err)
		back, err := m.InverseTransform(scaled)
		require.NoError(t, err)
		assert.InEpsilon(t, v, back[0][0], 1e-12)
	}
}

func TestMinMax_DefaultRange(t *testing.T) {
	// Artifacts written before the range fields existed imply (0, 1).
	m, err := New(Params{
		FeatureNames: []string{"a"},
		DataMin:      []float64{0},
		DataMax:      []float64{2},
	})
	require.NoError(t, err)

	out, err := m.Transform([][]float64{{1}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out[0][0], 1e-12)
}

func TestMinMax_ConstantColumn(t *testing.T) {
	m, err := New(Params{
		FeatureNames: []string{"const"},
		DataMin:      []float64{7},
		DataMax:      []float64{7},
		RangeMin:     0,
		RangeMax:     1,
	})
	require.NoError(t, err)

	out, err := m.Transform([][]float64{{7}})
	require.NoError(t, err)
	require.False(t, math.IsNaN(out[0][0]) || math.IsInf(out[0][0], 0))
}

func TestMinMax_WidthMismatch(t *testing.T) {
	m, err := New(Params{
		FeatureNames: []string{"a", "b"},
		DataMin:      []float64{0, 0},
		DataMax:      []float64{1, 1},
		RangeMax:     1,
	})
	require.NoError(t, err)

	_, err = m.Transform([][]float64{{1, 2, 3}})
	assert.Error(t, err)

	_, err = m.InverseTransform([][]float64{{1}})
	assert.Error(t, err)
}

func TestMinMax_BadParams(t *testing.T) {
	_, err := New(Params{})
	assert.Error(t, err)

	_, err = New(Params{
		FeatureNames: []string{"a", "b"},
		DataMin:      []float64{0},
		DataMax:      []float64{1, 2},
	})
	assert.Error(t, err)
}

func TestMinMax_FeatureNamesCopy(t *testing.T) {
	m, err := New(Params{
		FeatureNames: []string{"a"},
		DataMin:      []float64{0},
		DataMax:      []float64{1},
		RangeMax:     1,
	})
	require.NoError(t, err)

	names := m.FeatureNames()
	names[0] = "mutated"
	assert.Equal(t, []string{"a"}, m.FeatureNames())
}
