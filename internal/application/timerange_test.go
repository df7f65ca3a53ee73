package application

import (
	"testing"
	"time"
)

func TestWeekRange(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("CET", 3600)
	cases := []struct {
		name string
		ref  time.Time
	}{
		{name: "wednesday", ref: time.Date(2024, 5, 15, 13, 30, 0, 0, loc)},
		{name: "monday midnight", ref: time.Date(2024, 5, 13, 0, 0, 0, 0, loc)},
		{name: "sunday night", ref: time.Date(2024, 5, 19, 23, 59, 59, 0, loc)},
		{name: "utc instant late on sunday", ref: time.Date(2024, 5, 19, 22, 30, 0, 0, time.UTC)},
	}

	wantStart := time.Date(2024, 5, 13, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2024, 5, 19, 23, 59, 59, 0, loc)
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := WeekRange(tc.ref, loc)
			if !got.Start.Equal(wantStart) || !got.End.Equal(wantEnd) {
				t.Fatalf("WeekRange(%v) = [%v, %v], want [%v, %v]", tc.ref, got.Start, got.End, wantStart, wantEnd)
			}
		})
	}
}

func TestDayRange(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	got := DayRange(time.Date(2024, 2, 29, 18, 0, 0, 0, loc), loc)
	if !got.Start.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected day start %v", got.Start)
	}
	if !got.End.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected day end %v", got.End)
	}
}

func TestValidateInterval(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	if validateInterval(start, nil).HasErrors() {
		t.Fatalf("expected open interval to be valid")
	}
	if validateInterval(start, timePtr(time.Unix(2000, 0))).HasErrors() {
		t.Fatalf("expected ordered interval to be valid")
	}
	if !validateInterval(start, timePtr(time.Unix(1000, 0))).HasErrors() {
		t.Fatalf("expected empty interval to be rejected")
	}
	if !validateInterval(start, timePtr(time.Unix(900, 0))).HasErrors() {
		t.Fatalf("expected reversed interval to be rejected")
	}
	if !validateInterval(time.Time{}, nil).HasErrors() {
		t.Fatalf("expected missing start to be rejected")
	}
}
