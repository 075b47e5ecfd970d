package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp_ISO8601(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", "2024-06-01T12:30:00Z", time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)},
		{"no timezone", "2024-06-01T12:30:00", time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)},
		{"space separator", "2024-06-01 12:30:00", time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)},
		{"date only", "2024-06-01", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.raw)
			require.NotNil(t, got)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseTimestamp_SlashDates(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"first number over 12 is day", "15/3/2023", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"second number over 12 is day", "3/15/2023", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"ambiguous defaults day-first", "4/5/2023", time.Date(2023, 5, 4, 0, 0, 0, 0, time.UTC)},
		{"with time", "15/3/2023 14:05", time.Date(2023, 3, 15, 14, 5, 0, 0, time.UTC)},
		{"with seconds", "15/3/2023 14:05:30", time.Date(2023, 3, 15, 14, 5, 30, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.raw)
			require.NotNil(t, got)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseTimestamp_TextualDate(t *testing.T) {
	got := ParseTimestamp("1-Mar-2024")
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseTimestamp_SpreadsheetSerial(t *testing.T) {
	// Day 45000 counted from the 1899-12-30 epoch.
	got := ParseTimestamp("45000")
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)), "got %v", got)
}

func TestParseTimestamp_Unparseable(t *testing.T) {
	assert.Nil(t, ParseTimestamp(""))
	assert.Nil(t, ParseTimestamp("   "))
	assert.Nil(t, ParseTimestamp("not a date at all ???"))
}

func TestParseTimestamp_InvalidSlashDate(t *testing.T) {
	// Both numbers over 12 cannot form a month.
	assert.Nil(t, ParseTimestamp("13/13/2023"))
}
