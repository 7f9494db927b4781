package utils

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Biniyam-Belay/rulDashboard/internal/domain/entity"
)

func ToRawMessage(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal struct to JSON: %w", err)
	}
	return json.RawMessage(data), nil
}

// WindowDigest returns a stable hex digest of a window's samples, used as the
// prediction cache key. Identical windows always hash identically.
func WindowDigest(w entity.Window) string {
	h := sha256.New()
	var buf [8]byte
	for _, s := range w {
		for _, v := range []float64{s.XDirection, s.YDirection, s.BearingTemperature, s.EnvTemperature} {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
