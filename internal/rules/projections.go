package rules

import (
	"math"

	"permitwise/internal/domain"
)

// CostProjection turns a verdict's cost bracket into a display estimate. A
// fixed price formats as a single value; a range carries a typical midpoint
// unless the rule set precomputed one. Returns nil when the verdict has no
// cost attached.
func CostProjection(v domain.EngineeringVerdict) *domain.CostEstimate {
	if v.Cost == nil {
		return nil
	}
	c := *v.Cost
	if c.Min == c.Max {
		return &domain.CostEstimate{
			Min:       c.Min,
			Max:       c.Max,
			Formatted: domain.FormatMoney(c.Min),
		}
	}
	typical := c.Typical
	if typical == nil {
		mid := math.Round((c.Min + c.Max) / 2)
		typical = &mid
	}
	return &domain.CostEstimate{
		Min:       c.Min,
		Max:       c.Max,
		Typical:   typical,
		Formatted: domain.FormatMoney(c.Min) + " - " + domain.FormatMoney(c.Max) + " (typically " + domain.FormatMoney(*typical) + ")",
	}
}

// TimelineProjection maps the verdict's engineering type to a canonical
// duration bucket: assessment one week, calculations two, full three.
func TimelineProjection(v domain.EngineeringVerdict) domain.EngineeringTimeline {
	if !v.Required {
		return domain.EngineeringTimeline{}
	}
	switch engineeringType(v.EngineeringType) {
	case "assessment":
		return domain.EngineeringTimeline{Weeks: 1, Description: "site assessment and engineer's letter"}
	case "calculations":
		return domain.EngineeringTimeline{Weeks: 2, Description: "load calculations and connection details"}
	default:
		return domain.EngineeringTimeline{Weeks: 3, Description: "full stamped plan set"}
	}
}
