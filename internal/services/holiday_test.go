package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHolidayService_IsWorkday(t *testing.T) {
	s := NewHolidayService()

	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	christmas := time.Date(2026, 12, 25, 10, 0, 0, 0, time.UTC)

	assert.False(t, s.IsWorkday(saturday, "NONE"))
	assert.True(t, s.IsWorkday(monday, "NONE"))
	assert.True(t, s.IsWorkday(christmas, "NONE"), "NONE only skips weekends")
	assert.False(t, s.IsWorkday(christmas, "US"))
	assert.False(t, s.IsWorkday(christmas, "GB"))
	assert.True(t, s.IsWorkday(monday, "XX"), "unknown country falls back to weekdays")
}

func TestHolidayService_China(t *testing.T) {
	s := NewHolidayService()
	nationalDay := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, s.IsHoliday(nationalDay, "CN"))
}

func TestHolidayService_AddBusinessDays(t *testing.T) {
	s := NewHolidayService()

	tests := []struct {
		name    string
		from    time.Time
		days    int
		country string
		want    time.Time
	}{
		{
			name:    "zero days",
			from:    time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC),
			days:    0,
			country: "NONE",
			want:    time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC),
		},
		{
			name:    "friday plus three skips the weekend",
			from:    time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC),
			days:    3,
			country: "NONE",
			want:    time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC),
		},
		{
			name:    "christmas skipped for US",
			from:    time.Date(2026, 12, 23, 9, 0, 0, 0, time.UTC),
			days:    2,
			country: "US",
			want:    time.Date(2026, 12, 28, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "saturday start",
			from:    time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC),
			days:    1,
			country: "NONE",
			want:    time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.AddBusinessDays(tt.from, tt.days, tt.country))
		})
	}
}

func TestHolidayService_SupportedCountries(t *testing.T) {
	countries := NewHolidayService().GetSupportedCountries()
	codes := map[string]bool{}
	for _, c := range countries {
		codes[c.Code] = true
	}
	for _, code := range []string{"CN", "US", "GB", "NONE"} {
		assert.True(t, codes[code], "missing %s", code)
	}
}
