package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBandFor(t *testing.T) {
	cases := []struct {
		name    string
		percent float64
		total   int
		want    AttendanceBand
	}{
		{"excellent boundary", 85.0, 20, BandExcellent},
		{"just below excellent", 84.9, 20, BandGood},
		{"good boundary", 75.0, 20, BandGood},
		{"just below good", 74.9, 20, BandAverage},
		{"average boundary", 65.0, 20, BandAverage},
		{"just below average", 64.9, 20, BandNeedsAttention},
		{"needs attention boundary", 50.0, 20, BandNeedsAttention},
		{"just below needs attention", 49.9, 20, BandCritical},
		{"zero percent with records", 0, 20, BandCritical},
		{"perfect attendance", 100, 20, BandExcellent},
		{"no records is no data", 0, 0, BandNoData},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BandFor(tc.percent, tc.total))
		})
	}
}

func TestAttendanceStatusValid(t *testing.T) {
	assert.True(t, AttendanceStatusPresent.Valid())
	assert.True(t, AttendanceStatusAbsent.Valid())
	assert.False(t, AttendanceStatus("late").Valid())
	assert.False(t, AttendanceStatus("").Valid())
}
