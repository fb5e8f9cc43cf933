package tempora_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	Me "github.com/maroda/tempora/engine"
	Mt "github.com/maroda/tempora/types"
)

func TestAngleFor(t *testing.T) {
	t.Run("Noon is a quarter turn past the top on the day ring", func(t *testing.T) {
		noon := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
		got := Me.AngleFor(Mt.Day, noon)
		assertFloat(t, got, 90.0, 1e-9)
	})

	t.Run("Midnight starts the day ring at the top", func(t *testing.T) {
		midnight := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
		assertFloat(t, Me.AngleFor(Mt.Day, midnight), -90.0, 1e-9)
	})

	t.Run("First day of a common year sits just past the top", func(t *testing.T) {
		jan1 := time.Date(2023, 1, 1, 8, 30, 0, 0, time.UTC)
		got := Me.AngleFor(Mt.Year, jan1)
		want := (1.0/365.0)*360.0 - 90.0
		assertFloat(t, got, want, 1e-9)
		assertFloat(t, got, -89.01, 0.01)
	})

	t.Run("Leap years divide by 366", func(t *testing.T) {
		jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		want := (1.0/366.0)*360.0 - 90.0
		assertFloat(t, Me.AngleFor(Mt.Year, jan1), want, 1e-9)
	})

	t.Run("Sunday midnight starts the week ring", func(t *testing.T) {
		sunday := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		assertFloat(t, Me.AngleFor(Mt.Week, sunday), -90.0, 1e-9)
	})

	t.Run("Week ring moves in whole hours", func(t *testing.T) {
		monday := time.Date(2024, 3, 11, 6, 45, 0, 0, time.UTC)
		want := (float64(1*24+6)/168.0)*360.0 - 90.0
		assertFloat(t, Me.AngleFor(Mt.Week, monday), want, 1e-9)
	})

	t.Run("First of every month starts the month ring", func(t *testing.T) {
		for m := time.January; m <= time.December; m++ {
			first := time.Date(2025, m, 1, 15, 0, 0, 0, time.UTC)
			assertFloat(t, Me.AngleFor(Mt.Month, first), -90.0, 1e-9)
		}
	})

	t.Run("Mid February uses 28 days", func(t *testing.T) {
		feb := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
		want := (14.0/28.0)*360.0 - 90.0
		assertFloat(t, Me.AngleFor(Mt.Month, feb), want, 1e-9)
	})

	t.Run("Invalid scale panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Errorf("expected a panic for an invalid scale")
			}
		}()
		Me.AngleFor(Mt.TimeScale(42), time.Now())
	})
}

func TestAngleFor_Periodicity(t *testing.T) {
	rng := rand.New(rand.NewSource(1618))
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 200; i++ {
		// anywhere in 2021, a common year followed by another
		offset := time.Duration(rng.Int63n(int64(364 * 24 * time.Hour)))
		at := base.Add(offset)

		for _, scale := range []Mt.TimeScale{Mt.Day, Mt.Week, Mt.Year} {
			later := at.Add(Me.Period(scale, at))
			a1 := Me.AngleFor(scale, at)
			a2 := Me.AngleFor(scale, later)
			if d := Me.AngularDistance(a1, a2); d > 1e-6 {
				t.Fatalf("%s not periodic at %s: %v vs %v", scale, at, a1, a2)
			}
		}
	}

	t.Run("Month ring returns to the top one month later", func(t *testing.T) {
		for m := time.January; m <= time.December; m++ {
			first := time.Date(2024, m, 1, 9, 0, 0, 0, time.UTC)
			next := first.Add(Me.Period(Mt.Month, first))
			assertInt(t, next.Day(), 1)
			assertFloat(t, Me.AngleFor(Mt.Month, next), Me.AngleFor(Mt.Month, first), 1e-9)
		}
	})
}

func TestCalendarHelpers(t *testing.T) {
	t.Run("Days in year follow the Gregorian rules", func(t *testing.T) {
		assertInt(t, Me.DaysInYear(2023), 365)
		assertInt(t, Me.DaysInYear(2024), 366)
		assertInt(t, Me.DaysInYear(1900), 365)
		assertInt(t, Me.DaysInYear(2000), 366)
	})

	t.Run("Days in month", func(t *testing.T) {
		assertInt(t, Me.DaysInMonth(2024, time.February), 29)
		assertInt(t, Me.DaysInMonth(2023, time.February), 28)
		assertInt(t, Me.DaysInMonth(2023, time.December), 31)
		assertInt(t, Me.DaysInMonth(2023, time.April), 30)
	})
}

func TestAngularDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"Wraps across the top", 359, 2, 3},
		{"Opposite points", 0, 180, 180},
		{"Same point", 45, 45, 0},
		{"Order does not matter", 2, 359, 3},
		{"Negative angles", -90, 270, 0},
		{"More than a turn apart", 725, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFloat(t, Me.AngularDistance(tt.a, tt.b), tt.want, 1e-9)
		})
	}
}

func TestNormalizeDegrees(t *testing.T) {
	assertFloat(t, Me.NormalizeDegrees(-90), 270, 1e-9)
	assertFloat(t, Me.NormalizeDegrees(360), 0, 1e-9)
	assertFloat(t, Me.NormalizeDegrees(725), 5, 1e-9)

	got := Me.NormalizeDegrees(-1e-15)
	if got < 0 || got >= 360 {
		t.Errorf("NormalizeDegrees out of range: %v", got)
	}
}

func TestPolarToXY(t *testing.T) {
	t.Run("Top of the ring is straight above the center", func(t *testing.T) {
		x, y := Me.PolarToXY(250, 250, 200, -90)
		assertFloat(t, x, 250, 1e-9)
		assertFloat(t, y, 50, 1e-9)
	})

	t.Run("Zero degrees is three o'clock", func(t *testing.T) {
		x, y := Me.PolarToXY(0, 0, 10, 0)
		assertFloat(t, x, 10, 1e-9)
		assertFloat(t, y, 0, 1e-9)
	})
}

func assertFloat(t testing.TB, got, want, tolerance float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tolerance {
		t.Errorf("got %v, want %v (±%v)", got, want, tolerance)
	}
}
