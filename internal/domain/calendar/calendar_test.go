package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISOWeek(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		wantYear int
		wantWeek int
	}{
		{"monday in week containing jan 4", "2024-01-01", 2024, 1},
		{"sunday belongs to prior iso year", "2023-01-01", 2022, 52},
		{"jan 4 is always week 1", "2025-01-04", 2025, 1},
		{"dec 31 of a 53-week year", "2020-12-31", 2020, 53},
		{"mid-year", "2024-07-15", 2024, 29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := time.Parse(DateLayout, tt.date)
			require.NoError(t, err)
			year, week := ISOWeek(d)
			assert.Equal(t, tt.wantYear, year)
			assert.Equal(t, tt.wantWeek, week)
		})
	}
}

func TestYearWeek(t *testing.T) {
	d, err := time.Parse(DateLayout, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-W01", YearWeek(d))

	d, err = time.Parse(DateLayout, "2023-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2022-W52", YearWeek(d))
}

func TestQuarter(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2024-01-15", 1},
		{"2024-03-31", 1},
		{"2024-04-01", 2},
		{"2024-09-30", 3},
		{"2024-12-25", 4},
	}
	for _, tt := range tests {
		d, err := time.Parse(DateLayout, tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.want, Quarter(d), tt.date)
	}
}

func TestWindowDaysBack(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)
	w := WindowDaysBack(now, 35)

	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 6, 15, 23, 59, 59, 999000000, time.UTC), w.End)
	assert.True(t, w.Start.Before(w.End))
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	t.Run("explicit range wins over days", func(t *testing.T) {
		w, err := ResolveWindow(now, "2024-01-01", "2024-01-31", 7, 35)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), w.Start)
		assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999000000, time.UTC), w.End)
	})

	t.Run("days wins over default", func(t *testing.T) {
		w, err := ResolveWindow(now, "", "", 7, 35)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC), w.Start)
	})

	t.Run("default lookback", func(t *testing.T) {
		w, err := ResolveWindow(now, "", "", 0, 35)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), w.Start)
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := ResolveWindow(now, "01/01/2024", "2024-01-31", 0, 35)
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("inverted window", func(t *testing.T) {
		_, err := ResolveWindow(now, "2024-02-01", "2024-01-01", 0, 35)
		assert.ErrorIs(t, err, ErrInvertedWindow)
	})
}

func TestParseOrderDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"rfc3339 with offset", "2024-01-15T10:30:00-05:00", true},
		{"rfc3339 utc", "2024-01-15T10:30:00Z", true},
		{"bare date", "2024-01-15", true},
		{"space separated", "2024-01-15 10:30:00", true},
		{"garbage", "last tuesday", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseOrderDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, 2024, got.Year())
			}
		})
	}
}
