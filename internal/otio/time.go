package otio

import (
	"encoding/json"
	"fmt"
	"math"
)

// RationalTime is a point in time, or a duration, measured in units of Rate per second.
type RationalTime struct {
	Value float64
	Rate  float64
}

// NewRationalTime returns value at rate.
func NewRationalTime(value, rate float64) RationalTime {
	return RationalTime{Value: value, Rate: rate}
}

// FromSeconds converts seconds into a RationalTime at rate.
func FromSeconds(seconds, rate float64) RationalTime {
	return RationalTime{Value: seconds * rate, Rate: rate}
}

// ToFrames returns the time as a whole frame count at its own rate.
// Values are rounded to absorb float drift from rate conversions.
func (t RationalTime) ToFrames() int {
	return int(math.Round(t.Value))
}

// RescaledTo returns the same instant expressed at rate.
func (t RationalTime) RescaledTo(rate float64) RationalTime {
	if t.Rate == rate || t.Rate == 0 {
		return RationalTime{Value: t.Value, Rate: rate}
	}
	return RationalTime{Value: t.Value * rate / t.Rate, Rate: rate}
}

func (t RationalTime) String() string {
	return fmt.Sprintf("%g@%g", t.Value, t.Rate)
}

// TimeRange is a start time and a duration.
type TimeRange struct {
	StartTime RationalTime
	Duration  RationalTime
}

// NewTimeRange builds a range from start and duration.
func NewTimeRange(start, duration RationalTime) TimeRange {
	return TimeRange{StartTime: start, Duration: duration}
}

type rationalTimeWire struct {
	Schema string  `json:"OTIO_SCHEMA"`
	Rate   float64 `json:"rate"`
	Value  float64 `json:"value"`
}

// MarshalJSON implements json.Marshaler.
func (t RationalTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(rationalTimeWire{Schema: SchemaRationalTime, Rate: t.Rate, Value: t.Value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *RationalTime) UnmarshalJSON(data []byte) error {
	var w rationalTimeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if err := checkSchema(w.Schema, SchemaRationalTime); err != nil {
		return err
	}
	t.Rate = w.Rate
	t.Value = w.Value
	return nil
}

type timeRangeWire struct {
	Schema    string       `json:"OTIO_SCHEMA"`
	Duration  RationalTime `json:"duration"`
	StartTime RationalTime `json:"start_time"`
}

// MarshalJSON implements json.Marshaler.
func (r TimeRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeRangeWire{Schema: SchemaTimeRange, Duration: r.Duration, StartTime: r.StartTime})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *TimeRange) UnmarshalJSON(data []byte) error {
	var w timeRangeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if err := checkSchema(w.Schema, SchemaTimeRange); err != nil {
		return err
	}
	r.StartTime = w.StartTime
	r.Duration = w.Duration
	return nil
}
