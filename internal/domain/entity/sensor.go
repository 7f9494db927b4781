package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// SequenceLength is the number of samples the model was trained on per window.
const SequenceLength = 50

type SensorSample struct {
	XDirection         float64 `json:"x_direction"`
	YDirection         float64 `json:"y_direction"`
	BearingTemperature float64 `json:"bearing_temperature"`
	EnvTemperature     float64 `json:"env_temperature"`
}

var sampleFields = []string{"x_direction", "y_direction", "bearing_temperature", "env_temperature"}

// UnmarshalJSON rejects samples with absent required fields. Without this an
// omitted field would bind to 0 and feed the model a confident wrong input.
func (s *SensorSample) UnmarshalJSON(data []byte) error {
	var raw struct {
		XDirection         *float64 `json:"x_direction"`
		YDirection         *float64 `json:"y_direction"`
		BearingTemperature *float64 `json:"bearing_temperature"`
		EnvTemperature     *float64 `json:"env_temperature"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var present []string
	var missing []string
	for _, f := range []struct {
		name  string
		value *float64
	}{
		{"x_direction", raw.XDirection},
		{"y_direction", raw.YDirection},
		{"bearing_temperature", raw.BearingTemperature},
		{"env_temperature", raw.EnvTemperature},
	} {
		if f.value == nil {
			missing = append(missing, f.name)
		} else {
			present = append(present, f.name)
		}
	}
	if len(missing) > 0 {
		return &SchemaMismatchError{
			Reason:   "missing sample fields: " + strings.Join(missing, ", "),
			Expected: sampleFields,
			Got:      present,
		}
	}

	s.XDirection = *raw.XDirection
	s.YDirection = *raw.YDirection
	s.BearingTemperature = *raw.BearingTemperature
	s.EnvTemperature = *raw.EnvTemperature
	return nil
}

// Window is one inference unit: an ordered sequence of exactly SequenceLength
// samples. Order matters, the rolling/EWMA/delta features depend on it.
type Window []SensorSample

func (w Window) Validate() error {
	if len(w) != SequenceLength {
		return &SchemaMismatchError{
			Reason:   "window length",
			Expected: []string{fmt.Sprintf("%d samples", SequenceLength)},
			Got:      []string{fmt.Sprintf("%d samples", len(w))},
		}
	}
	for i, s := range w {
		for _, f := range []struct {
			name  string
			value float64
		}{
			{"x_direction", s.XDirection},
			{"y_direction", s.YDirection},
			{"bearing_temperature", s.BearingTemperature},
			{"env_temperature", s.EnvTemperature},
		} {
			if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
				return &SchemaMismatchError{
					Reason:   "non-finite field",
					Expected: []string{f.name + " finite"},
					Got:      []string{fmt.Sprintf("%s=%v at sample %d", f.name, f.value, i)},
				}
			}
		}
	}
	return nil
}
