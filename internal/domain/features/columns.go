package features

// Column order is load-bearing: the feature scaler was fitted on the
// engineered block in exactly this order, and the model was trained on the
// engineered block followed by the raw block. Do not reorder.
var (
	EngineeredColumns = []string{
		"log_bearing_temperature",
		"log_abs_x_direction",
		"log_abs_y_direction",
		"rolling_mean_x",
		"rolling_mean_y",
		"ewma_x",
		"ewma_y",
		"delta_x",
		"delta_y",
	}

	RawColumns = []string{
		"x_direction",
		"y_direction",
		"bearing_temperature",
		"env_temperature",
	}
)

// NumFeatures is the model's per-timestep feature count.
var NumFeatures = len(EngineeredColumns) + len(RawColumns)

// Columns returns the final model input column order: scaled engineered
// block first, unscaled raw block last.
func Columns() []string {
	cols := make([]string, 0, NumFeatures)
	cols = append(cols, EngineeredColumns...)
	cols = append(cols, RawColumns...)
	return cols
}

// Assemble recombines scaled engineered rows with raw rows into the final
// column order. Both inputs must have the same row count.
func Assemble(engineered, raw [][]float64) [][]float64 {
	out := make([][]float64, len(engineered))
	for i := range engineered {
		row := make([]float64, 0, NumFeatures)
		row = append(row, engineered[i]...)
		row = append(row, raw[i]...)
		out[i] = row
	}
	return out
}
