package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReading_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2024, 6, 1, 14, 30, 0, 123456789, loc)

	r := NewReading(ts, true)

	assert.Equal(t, time.UTC, r.Timestamp().Location())
	assert.True(t, r.Timestamp().Equal(ts))
	assert.True(t, r.MotionDetected())
}

func TestReading_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		reading Reading
	}{
		{"motion", NewReading(time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC), true)},
		{"no motion", NewReading(time.Date(2023, 12, 31, 23, 59, 59, 999999999, time.UTC), false)},
		{"wall clock now", NewReading(time.Now(), true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := EncodeReading(tt.reading)
			require.NoError(t, err)

			decoded, err := DecodeReading(payload)
			require.NoError(t, err)
			assert.True(t, tt.reading.Equal(decoded), "want %s, got %s", tt.reading, decoded)
			assert.Equal(t, tt.reading, decoded)
		})
	}
}

func TestEncodeReading_FieldNames(t *testing.T) {
	r := NewReading(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), true)

	payload, err := EncodeReading(r)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(payload, &fields))
	assert.Len(t, fields, 2)
	assert.Equal(t, "2024-05-06T07:08:09Z", fields["timestamp"])
	assert.Equal(t, true, fields["motionDetected"])
}

func TestEncodeReading_OutOfRangeYear(t *testing.T) {
	r := NewReading(time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC), false)

	_, err := EncodeReading(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidReading)
}

func TestDecodeReading_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "motion!"},
		{"missing timestamp", `{"motionDetected":true}`},
		{"missing flag", `{"timestamp":"2024-01-01T00:00:00Z"}`},
		{"bad timestamp", `{"timestamp":"yesterday","motionDetected":true}`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeReading([]byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidReading)
		})
	}
}

func TestDecodeReading_AcceptsOffsets(t *testing.T) {
	r, err := DecodeReading([]byte(`{"timestamp":"2024-01-01T02:00:00+02:00","motionDetected":false}`))
	require.NoError(t, err)

	assert.True(t, r.Timestamp().Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, r.Timestamp().Location())
	assert.False(t, r.MotionDetected())
}

func TestInitialReading(t *testing.T) {
	start := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	r := InitialReading(start)

	assert.False(t, r.MotionDetected())
	assert.True(t, r.Timestamp().Equal(start))
}
