package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		name     string
		ratio    float64
		expected string
	}{
		{"normal", 0.985, "98.5%"},
		{"zero", 0.0, "0.0%"},
		{"one", 1.0, "100.0%"},
		{"small", 0.012, "1.2%"},
		{"very_small", 0.0003, "0.0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPercentage(tt.ratio))
		})
	}
}

func TestFormatPolarity(t *testing.T) {
	tests := []struct {
		name     string
		polarity float64
		expected string
	}{
		{"positive", 0.4213, "+0.42"},
		{"negative", -0.5, "-0.50"},
		{"zero", 0, "0.00"},
		{"max", 1, "+1.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPolarity(tt.polarity))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"hours_and_minutes", 8100, "2h 15m"},
		{"only_hours", 7200, "2h 0m"},
		{"only_minutes", 900, "15m"},
		{"zero", 0, "0m"},
		{"one_minute", 60, "1m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.seconds))
		})
	}
}

func TestFormatAgo(t *testing.T) {
	assert.Equal(t, "now", FormatAgo(200*time.Millisecond))
	assert.Equal(t, "12s ago", FormatAgo(12*time.Second))
	assert.Equal(t, "3m ago", FormatAgo(3*time.Minute+10*time.Second))
	assert.Equal(t, "2h ago", FormatAgo(2*time.Hour))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hell…", Truncate("hello world", 5))
	assert.Equal(t, "héll…", Truncate("héllo wörld", 5))
	assert.Equal(t, "", Truncate("hello", 0))
}
