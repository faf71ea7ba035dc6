package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Reading is a single motion-sensor observation. The zero value is not useful;
// construct with NewReading.
type Reading struct {
	timestamp      time.Time
	motionDetected bool
}

// NewReading returns a Reading at ts (normalized to UTC, monotonic clock stripped).
func NewReading(ts time.Time, motionDetected bool) Reading {
	return Reading{timestamp: ts.Round(0).UTC(), motionDetected: motionDetected}
}

// InitialReading is the value served to viewers before any sensor reported.
func InitialReading(start time.Time) Reading {
	return NewReading(start, false)
}

func (r Reading) Timestamp() time.Time { return r.timestamp }

func (r Reading) MotionDetected() bool { return r.motionDetected }

// Equal reports whether both readings describe the same instant and motion state.
func (r Reading) Equal(other Reading) bool {
	return r.motionDetected == other.motionDetected && r.timestamp.Equal(other.timestamp)
}

func (r Reading) String() string {
	return fmt.Sprintf("Reading{%s motion=%t}", r.timestamp.Format(time.RFC3339Nano), r.motionDetected)
}

type wireReading struct {
	Timestamp      *time.Time `json:"timestamp"`
	MotionDetected *bool      `json:"motionDetected"`
}

func (r Reading) MarshalJSON() ([]byte, error) {
	ts := r.timestamp
	motion := r.motionDetected
	data, err := json.Marshal(wireReading{Timestamp: &ts, MotionDetected: &motion})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}
	return data, nil
}

func (r *Reading) UnmarshalJSON(data []byte) error {
	var w wireReading
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}
	if w.Timestamp == nil {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidReading)
	}
	if w.MotionDetected == nil {
		return fmt.Errorf("%w: missing motionDetected", ErrInvalidReading)
	}
	*r = NewReading(*w.Timestamp, *w.MotionDetected)
	return nil
}

// EncodeReading serializes r into the payload of a single text frame.
func EncodeReading(r Reading) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode reading: %w", err)
	}
	return data, nil
}

// DecodeReading parses a payload produced by EncodeReading (or any producer using
// the same field names).
func DecodeReading(data []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(data, &r); err != nil {
		if errors.Is(err, ErrInvalidReading) {
			return Reading{}, fmt.Errorf("decode reading: %w", err)
		}
		return Reading{}, fmt.Errorf("decode reading: %w: %w", ErrInvalidReading, err)
	}
	return r, nil
}
