package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf)

	tests := []struct {
		name    string
		level   Level
		message string
		fields  Fields
		err     error
		want    bool // should log
	}{
		{
			name:    "info message",
			level:   LevelInfo,
			message: "test message",
			fields:  Fields{"key": "value"},
			want:    true,
		},
		{
			name:    "debug below threshold",
			level:   LevelDebug,
			message: "debug message",
			want:    false,
		},
		{
			name:    "error with err",
			level:   LevelError,
			message: "error occurred",
			err:     errors.New("test error"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := buf.Len()

			logger.log(tt.level, tt.message, tt.fields, tt.err)

			assert.Equal(t, tt.want, buf.Len() > before)
		})
	}
}

func TestLogger_JSONEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelDebug, &buf)

	logger.Error("export failed", Fields{"spider": "chi_council", "records": 3}, errors.New("boom"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded), buf.String())

	assert.Equal(t, "export failed", decoded["message"])
	assert.Equal(t, "ERROR", decoded["level"])
	assert.Equal(t, "chi_council", decoded["spider"])
	assert.Equal(t, "boom", decoded["error"])
	assert.Contains(t, decoded, "timestamp")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf).With(Fields{"spider": "cook_board"})

	logger.Info("hello", nil)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "cook_board", decoded["spider"])
}

func TestNewDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDevelopment(LevelDebug, &buf)

	logger.Debug("crawl started", Fields{"spider": "cook_board"})

	out := buf.String()
	assert.Contains(t, out, "crawl started")
	assert.Contains(t, out, "cook_board")
	assert.False(t, json.Valid(buf.Bytes()), "development output should not be JSON")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestMetrics_Counter(t *testing.T) {
	m := NewMetrics()

	m.IncrCounter("test_counter")
	m.IncrCounter("test_counter")
	m.AddCounter("test_counter", 3)

	assert.EqualValues(t, 5, m.Snapshot().Counters["test_counter"])
	assert.Zero(t, m.Counter("missing"))
}

func TestMetrics_Gauge(t *testing.T) {
	m := NewMetrics()

	m.SetGauge("previous_records", 12)
	m.SetGauge("previous_records", 40)

	assert.EqualValues(t, 40, m.Snapshot().Gauges["previous_records"])
}

func TestMetrics_Timing(t *testing.T) {
	m := NewMetrics()

	m.RecordTiming("crawl", 100*time.Millisecond)
	m.RecordTiming("crawl", 200*time.Millisecond)
	m.RecordTiming("crawl", 150*time.Millisecond)

	stats := m.Snapshot().Timings["crawl"]
	assert.EqualValues(t, 3, stats.Count)
	assert.Equal(t, "100ms", stats.Min)
	assert.Equal(t, "200ms", stats.Max)
}

func TestSnapshot_CounterNames(t *testing.T) {
	m := NewMetrics()
	m.IncrCounter("b")
	m.IncrCounter("a")

	assert.Equal(t, []string{"a", "b"}, m.Snapshot().CounterNames())
}

func TestPackageLevelFunctions(t *testing.T) {
	SetDefault(NewNop())
	defer SetDefault(New(LevelInfo, &bytes.Buffer{}))

	Info("test info", Fields{"key": "value"})
	Warn("test warning", nil)
	Error("test error", Fields{"component": "test"}, errors.New("test"))

	IncrCounter("test")
	SetGauge("test", 42.0)
	RecordTiming("test", time.Second)

	assert.NotNil(t, GetMetricsSnapshot().Counters)
}
