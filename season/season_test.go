package season

import (
	"testing"
	"time"
)

func loadNY(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestForAnchors(t *testing.T) {
	t.Parallel()

	loc := loadNY(t)

	// June 1, 2025 was a Sunday, so that year exercises the "on or after"
	// half of the anchor rule.
	for _, test := range []struct {
		year      int
		wantStart time.Time
	}{
		{2024, time.Date(2024, time.June, 23, 0, 0, 0, 0, loc)},
		{2025, time.Date(2025, time.June, 22, 0, 0, 0, 0, loc)},
		{2026, time.Date(2026, time.June, 28, 0, 0, 0, 0, loc)},
		{2027, time.Date(2027, time.June, 27, 0, 0, 0, 0, loc)},
	} {
		test := test
		s := For(test.year, loc)

		if !s.Start.Equal(test.wantStart) {
			t.Errorf("For(%d).Start = %v, want %v", test.year, s.Start, test.wantStart)
		}
		if got, want := s.End, test.wantStart.AddDate(0, 0, 63); !got.Equal(want) {
			t.Errorf("For(%d).End = %v, want %v", test.year, got, want)
		}
		if len(s.WeekStarts) != Weeks {
			t.Errorf("For(%d) has %d weeks, want %d", test.year, len(s.WeekStarts), Weeks)
		}
		for i, ws := range s.WeekStarts {
			if ws.Weekday() != time.Sunday {
				t.Errorf("For(%d) week %d starts on %v, want Sunday", test.year, i+1, ws.Weekday())
			}
		}
	}
}

func TestWeekOf(t *testing.T) {
	t.Parallel()

	loc := loadNY(t)
	s := For(2025, loc)

	for _, test := range []struct {
		desc string
		t    time.Time
		want int
	}{
		{"day before opening", time.Date(2025, time.June, 21, 12, 0, 0, 0, loc), 0},
		{"opening midnight", time.Date(2025, time.June, 22, 0, 0, 0, 0, loc), 1},
		{"july first is week two", time.Date(2025, time.July, 1, 10, 45, 0, 0, loc), 2},
		{"closing saturday night", time.Date(2025, time.August, 23, 23, 59, 0, 0, loc), 9},
		{"midnight after closing", time.Date(2025, time.August, 24, 0, 0, 0, 0, loc), 0},
		{"off season", time.Date(2025, time.December, 25, 0, 0, 0, 0, loc), 0},
		// Same instant as 8pm July 1 on the grounds, expressed in UTC.
		{"utc instant", time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC), 2},
	} {
		test := test
		t.Run(test.desc, func(t *testing.T) {
			t.Parallel()

			if got := s.WeekOf(test.t); got != test.want {
				t.Fatalf("WeekOf(%v) = %d, want %d", test.t, got, test.want)
			}
		})
	}
}

func TestWeekBounds(t *testing.T) {
	t.Parallel()

	loc := loadNY(t)
	s := For(2025, loc)

	start, end := s.WeekBounds(2)
	if want := time.Date(2025, time.June, 29, 0, 0, 0, 0, loc); !start.Equal(want) {
		t.Errorf("WeekBounds(2) start = %v, want %v", start, want)
	}
	if want := time.Date(2025, time.July, 6, 0, 0, 0, 0, loc); !end.Equal(want) {
		t.Errorf("WeekBounds(2) end = %v, want %v", end, want)
	}

	if start, end := s.WeekBounds(0); !start.IsZero() || !end.IsZero() {
		t.Errorf("WeekBounds(0) = %v, %v, want zero times", start, end)
	}
	if start, end := s.WeekBounds(10); !start.IsZero() || !end.IsZero() {
		t.Errorf("WeekBounds(10) = %v, %v, want zero times", start, end)
	}
}

func TestWeekLabel(t *testing.T) {
	t.Parallel()

	loc := loadNY(t)
	s := For(2025, loc)

	for _, test := range []struct {
		n    int
		want string
	}{
		{1, "Week 1 (Jun 22 - Jun 28)"},
		{2, "Week 2 (Jun 29 - Jul 5)"},
		{9, "Week 9 (Aug 17 - Aug 23)"},
		{0, ""},
		{10, ""},
	} {
		if got := s.WeekLabel(test.n); got != test.want {
			t.Errorf("WeekLabel(%d) = %q, want %q", test.n, got, test.want)
		}
	}
}

func TestFallback(t *testing.T) {
	t.Parallel()

	loc := loadNY(t)

	s := For(0, loc)
	if s.Year != 2025 {
		t.Fatalf("For(0).Year = %d, want fallback 2025", s.Year)
	}
	if want := time.Date(2025, time.June, 22, 0, 0, 0, 0, loc); !s.Start.Equal(want) {
		t.Errorf("fallback Start = %v, want %v", s.Start, want)
	}
	if want := time.Date(2025, time.August, 24, 0, 0, 0, 0, loc); !s.End.Equal(want) {
		t.Errorf("fallback End = %v, want %v", s.End, want)
	}

	// The fallback must agree with the computed 2025 season.
	computed := For(2025, loc)
	if !s.Start.Equal(computed.Start) || !s.End.Equal(computed.End) {
		t.Errorf("fallback disagrees with computed 2025 season: %v..%v vs %v..%v",
			s.Start, s.End, computed.Start, computed.End)
	}
}

func TestCurrent(t *testing.T) {
	t.Parallel()

	loc := loadNY(t)

	// New Year's Eve in UTC is still the old year on the grounds.
	now := time.Date(2026, time.January, 1, 2, 0, 0, 0, time.UTC)
	if got := Current(now, loc); got.Year != 2025 {
		t.Fatalf("Current(%v).Year = %d, want 2025", now, got.Year)
	}
}
