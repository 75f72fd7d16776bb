package governance

import (
	"encoding/json"
	"math"
	"strconv"
)

// Metric is a tri-state numeric value: either an available normalized number
// or explicitly unavailable. The zero value is unavailable.
type Metric struct {
	value     float64
	available bool
}

// Available wraps a known value.
func Available(v float64) Metric {
	return Metric{value: v, available: true}
}

// Unavailable returns a metric with no value.
func Unavailable() Metric {
	return Metric{}
}

func (m Metric) Available() bool {
	return m.available
}

// Value returns the number and whether it is available.
func (m Metric) Value() (float64, bool) {
	return m.value, m.available
}

func (m Metric) String() string {
	if !m.available {
		return "unavailable"
	}
	return strconv.FormatFloat(m.value, 'f', -1, 64)
}

// MarshalJSON encodes unavailable metrics as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.available {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Unavailable()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Available(v)
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
