package models

import (
	"testing"
	"time"
)

func TestAppointmentOverlaps(t *testing.T) {
	base := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	appt := &Appointment{StartsAt: base, EndsAt: base.Add(time.Hour)}

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"identical range", base, base.Add(time.Hour), true},
		{"contained inside", base.Add(15 * time.Minute), base.Add(45 * time.Minute), true},
		{"straddles start", base.Add(-30 * time.Minute), base.Add(30 * time.Minute), true},
		{"straddles end", base.Add(30 * time.Minute), base.Add(90 * time.Minute), true},
		{"encloses", base.Add(-time.Hour), base.Add(2 * time.Hour), true},
		{"touches end boundary", base.Add(time.Hour), base.Add(2 * time.Hour), false},
		{"touches start boundary", base.Add(-time.Hour), base, false},
		{"fully before", base.Add(-2 * time.Hour), base.Add(-time.Hour), false},
		{"fully after", base.Add(2 * time.Hour), base.Add(3 * time.Hour), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := appt.Overlaps(tc.start, tc.end); got != tc.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
		})
	}
}
