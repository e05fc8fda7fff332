package types

import (
	"testing"
	"time"
)

func TestAddClampedDate(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		years  int
		months int
		days   int
		want   time.Time
	}{
		{
			name:   "simple month add",
			start:  time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "jan 31 clamps to leap february",
			start:  time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "jan 31 clamps to non-leap february",
			start:  time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "cross year boundary",
			start:  time.Date(2024, time.November, 30, 0, 0, 0, 0, time.UTC),
			months: 3,
			want:   time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "backwards month",
			start:  time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			months: -2,
			want:   time.Date(2023, time.November, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "year add keeps day",
			start: time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC),
			years: 1,
			want:  time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "preserves clock",
			start: time.Date(2024, time.March, 10, 13, 45, 30, 0, time.UTC),
			days:  5,
			want:  time.Date(2024, time.March, 15, 13, 45, 30, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddClampedDate(tt.start, tt.years, tt.months, tt.days)
			if !got.Equal(tt.want) {
				t.Errorf("AddClampedDate(%v, %d, %d, %d) = %v, want %v",
					tt.start, tt.years, tt.months, tt.days, got, tt.want)
			}
		})
	}
}

func TestClampedDayOfMonth(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		day    int
		want   time.Time
	}{
		{
			name:   "plain day",
			anchor: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			day:    15,
			want:   time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "day 31 in leap february",
			anchor: time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC),
			day:    31,
			want:   time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "day 31 in april",
			anchor: time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC),
			day:    31,
			want:   time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "day below one is clamped up",
			anchor: time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC),
			day:    0,
			want:   time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampedDayOfMonth(tt.anchor, tt.day)
			if !got.Equal(tt.want) {
				t.Errorf("ClampedDayOfMonth(%v, %d) = %v, want %v", tt.anchor, tt.day, got, tt.want)
			}
		})
	}
}

func TestNextBillingDate(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		cycle   BillingCycle
		want    time.Time
		wantErr bool
	}{
		{
			name:  "monthly",
			start: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			cycle: BillingCycleMonthly,
			want:  time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "quarterly",
			start: time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			cycle: BillingCycleQuarterly,
			want:  time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "annual over leap day",
			start: time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			cycle: BillingCycleAnnual,
			want:  time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "unknown cycle",
			start:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			cycle:   BillingCycle("weekly"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextBillingDate(tt.start, tt.cycle)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NextBillingDate(%v, %s) expected error, got %v", tt.start, tt.cycle, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NextBillingDate(%v, %s) unexpected error: %v", tt.start, tt.cycle, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextBillingDate(%v, %s) = %v, want %v", tt.start, tt.cycle, got, tt.want)
			}
		})
	}
}

func TestBillingPeriod(t *testing.T) {
	period := NewBillingPeriod(time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), BillingCycleMonthly)

	if got := period.End; !got.Equal(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("period end = %v, want 2024-02-29", got)
	}
	if got := period.Key(); got != "2024-01-31" {
		t.Errorf("period key = %q, want 2024-01-31", got)
	}
	if !period.Contains(time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC)) {
		t.Error("period should contain a date inside the interval")
	}
	if period.Contains(period.End) {
		t.Error("period end is exclusive")
	}
	if !period.Contains(period.Start) {
		t.Error("period start is inclusive")
	}
	if got := period.Days(); got != 29 {
		t.Errorf("period days = %d, want 29", got)
	}
}
