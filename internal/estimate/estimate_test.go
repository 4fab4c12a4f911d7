package estimate

import (
	"testing"

	"permitwise/internal/domain"
)

func TestFromRange(t *testing.T) {
	fixed := FromRange(domain.CostRange{Min: 150, Max: 150})
	if fixed.Formatted != "$150" {
		t.Fatalf("fixed = %q", fixed.Formatted)
	}
	ranged := FromRange(domain.CostRange{Min: 400, Max: 1200})
	if ranged.Formatted != "$400 - $1,200" {
		t.Fatalf("ranged = %q", ranged.Formatted)
	}
}

func TestTotalCostSumsBounds(t *testing.T) {
	fee := domain.CostEstimate{Min: 400, Max: 1200}
	eng := domain.CostEstimate{Min: 2000, Max: 3500}
	total := TotalCost(&fee, &eng)
	if total.Min != 2400 || total.Max != 4700 {
		t.Fatalf("total = %+v", total)
	}
	if total.Formatted != "$2,400 - $4,700" {
		t.Fatalf("formatted = %q", total.Formatted)
	}
}

func TestTotalCostSkipsAbsentComponents(t *testing.T) {
	fee := domain.CostEstimate{Min: 150, Max: 400}
	total := TotalCost(&fee, nil)
	if total.Min != 150 || total.Max != 400 {
		t.Fatalf("total = %+v", total)
	}
	empty := TotalCost(nil, nil)
	if empty.Min != 0 || empty.Max != 0 || empty.Formatted != "$0" {
		t.Fatalf("empty = %+v", empty)
	}
}

func TestTotalCostNeverNegative(t *testing.T) {
	bad := domain.CostEstimate{Min: -50, Max: -10}
	total := TotalCost(&bad)
	if total.Min != 0 || total.Max != 0 {
		t.Fatalf("total = %+v", total)
	}
}

func TestTotalTimelineRoundsWeeksUp(t *testing.T) {
	// 3 review days plus one engineering week lands mid-second-week
	got := TotalTimeline(3, 1)
	if got.Days != 10 || got.Weeks != 2 || got.Formatted != "2 weeks" {
		t.Fatalf("got %+v", got)
	}
	if got := TotalTimeline(0, 0); got.Formatted != "same day" {
		t.Fatalf("zero total = %q", got.Formatted)
	}
	if got := TotalTimeline(7, 0); got.Weeks != 1 || got.Formatted != "1 week" {
		t.Fatalf("one week = %+v", got)
	}
	if got := TotalTimeline(-5, 0); got.Days != 0 {
		t.Fatalf("negative input = %+v", got)
	}
}

func TestReviewTimeline(t *testing.T) {
	if got := ReviewTimeline(0); got.Formatted != "same day" {
		t.Fatalf("zero = %q", got.Formatted)
	}
	if got := ReviewTimeline(1); got.Formatted != "1 day" {
		t.Fatalf("one = %q", got.Formatted)
	}
	got := ReviewTimeline(15)
	if got.Days != 15 || got.Weeks != 3 || got.Formatted != "15 days" {
		t.Fatalf("got %+v", got)
	}
}
