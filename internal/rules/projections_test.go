package rules

import (
	"testing"

	"permitwise/internal/domain"
)

func TestCostProjectionNilWithoutCost(t *testing.T) {
	if got := CostProjection(domain.EngineeringVerdict{Required: true}); got != nil {
		t.Fatalf("got %+v", got)
	}
}

func TestCostProjectionFixedPrice(t *testing.T) {
	v := domain.EngineeringVerdict{Cost: &domain.CostRange{Min: 500, Max: 500}}
	got := CostProjection(v)
	if got == nil || got.Formatted != "$500" || got.Typical != nil {
		t.Fatalf("got %+v", got)
	}
}

func TestCostProjectionRangeMidpoint(t *testing.T) {
	v := domain.EngineeringVerdict{Cost: &domain.CostRange{Min: 2000, Max: 3500}}
	got := CostProjection(v)
	if got == nil {
		t.Fatal("expected estimate")
	}
	if got.Typical == nil || *got.Typical != 2750 {
		t.Fatalf("typical = %v", got.Typical)
	}
	if got.Formatted != "$2,000 - $3,500 (typically $2,750)" {
		t.Fatalf("formatted = %q", got.Formatted)
	}
}

func TestCostProjectionKeepsPrecomputedTypical(t *testing.T) {
	typ := 3000.0
	v := domain.EngineeringVerdict{Cost: &domain.CostRange{Min: 2000, Max: 3500, Typical: &typ}}
	got := CostProjection(v)
	if got.Typical == nil || *got.Typical != 3000 {
		t.Fatalf("typical = %v", got.Typical)
	}
}

func TestTimelineProjectionBuckets(t *testing.T) {
	cases := []struct {
		engType string
		weeks   int
	}{
		{"assessment", 1},
		{"calculations", 2},
		{"full", 3},
		{"", 3},
		{"unrecognized", 3},
	}
	for _, tc := range cases {
		got := TimelineProjection(domain.EngineeringVerdict{Required: true, EngineeringType: tc.engType})
		if got.Weeks != tc.weeks {
			t.Errorf("%q: weeks = %d, want %d", tc.engType, got.Weeks, tc.weeks)
		}
		if got.Description == "" {
			t.Errorf("%q: missing description", tc.engType)
		}
	}
}

func TestTimelineProjectionZeroWhenNotRequired(t *testing.T) {
	got := TimelineProjection(domain.EngineeringVerdict{Required: false, EngineeringType: "full"})
	if got.Weeks != 0 || got.Description != "" {
		t.Fatalf("got %+v", got)
	}
}
