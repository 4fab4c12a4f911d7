// Package estimate combines permit-fee and engineering estimates into
// aggregate cost and timeline totals. Components are always summed, never
// averaged, and an absent component counts as zero.
package estimate

import (
	"fmt"

	"permitwise/internal/domain"
)

// FromRange converts a configured cost bracket to a display estimate.
func FromRange(c domain.CostRange) domain.CostEstimate {
	return formatted(domain.CostEstimate{Min: c.Min, Max: c.Max, Typical: c.Typical})
}

// TotalCost sums the bounds of each present component. The result is never
// negative on either bound.
func TotalCost(parts ...*domain.CostEstimate) domain.CostEstimate {
	var total domain.CostEstimate
	for _, p := range parts {
		if p == nil {
			continue
		}
		total.Min += p.Min
		total.Max += p.Max
	}
	if total.Min < 0 {
		total.Min = 0
	}
	if total.Max < 0 {
		total.Max = 0
	}
	return formatted(total)
}

// TotalTimeline combines plan-review days with engineering weeks. Weeks
// round up; a zero total renders as "same day".
func TotalTimeline(reviewDays, engineeringWeeks int) domain.TimelineEstimate {
	days := reviewDays + engineeringWeeks*7
	if days < 0 {
		days = 0
	}
	weeks := (days + 6) / 7
	return domain.TimelineEstimate{
		Days:      days,
		Weeks:     weeks,
		Formatted: formatWeeks(weeks),
	}
}

// ReviewTimeline renders a plan-review duration on its own.
func ReviewTimeline(days int) domain.TimelineEstimate {
	if days < 0 {
		days = 0
	}
	weeks := (days + 6) / 7
	return domain.TimelineEstimate{
		Days:      days,
		Weeks:     weeks,
		Formatted: formatDays(days),
	}
}

func formatted(c domain.CostEstimate) domain.CostEstimate {
	if c.Min == c.Max {
		c.Typical = nil
		c.Formatted = domain.FormatMoney(c.Min)
		return c
	}
	c.Formatted = domain.FormatMoney(c.Min) + " - " + domain.FormatMoney(c.Max)
	return c
}

func formatWeeks(weeks int) string {
	switch weeks {
	case 0:
		return "same day"
	case 1:
		return "1 week"
	}
	return fmt.Sprintf("%d weeks", weeks)
}

func formatDays(days int) string {
	switch days {
	case 0:
		return "same day"
	case 1:
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
