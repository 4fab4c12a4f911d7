// Package rules decides whether licensed structural engineering review is
// required for a project, working through the layered jurisdiction rule set
// in a fixed stage order.
package rules

import (
	"fmt"
	"strings"

	"permitwise/internal/config"
	"permitwise/internal/domain"
)

// Evaluator applies the configured rule set. Evaluation is pure: identical
// inputs always produce the identical verdict.
type Evaluator struct {
	Rules config.RulesConfig
}

func New(cfg *config.Config) Evaluator {
	return Evaluator{Rules: cfg.Rules}
}

// Evaluate runs the six stages in order, short-circuiting at the first stage
// that produces a verdict:
//
//  1. global keyword scan over the serialized answers
//  2. jurisdiction lookup (missing state degrades, never errors)
//  3. explicit always-required project flag
//  4. ordered structured predicate rules
//  5. named boolean triggers, each with its own cost bracket
//  6. county note plus the terminal not-required default
func (e Evaluator) Evaluate(project domain.ProjectType, answers *domain.AnswerSet, j domain.JurisdictionContext) domain.EngineeringVerdict {
	serialized := answers.Serialized()
	for _, keyword := range e.Rules.GlobalTriggers {
		if strings.Contains(serialized, strings.ToLower(keyword)) {
			return domain.EngineeringVerdict{
				Required:        true,
				Reason:          fmt.Sprintf("project details mention %q, which always requires review by a licensed structural engineer", keyword),
				Confidence:      domain.ConfidenceHigh,
				EngineeringType: "full",
			}
		}
	}

	sr, ok := e.stateRules(j)
	if !ok {
		return domain.EngineeringVerdict{
			Required:   false,
			Reason:     fmt.Sprintf("no engineering rule data for %s; defaulting to not required", stateName(j)),
			Confidence: domain.ConfidenceLow,
			Notes:      []string{"verify engineering requirements with the local building department"},
		}
	}

	pr, hasProject := sr.Projects[string(project)]
	if hasProject {
		if pr.AlwaysRequired {
			return domain.EngineeringVerdict{
				Required:        true,
				Reason:          pr.Reason,
				Confidence:      domain.ConfidenceHigh,
				EngineeringType: "full",
				Cost:            pr.Cost,
				Requirements:    pr.Requirements,
			}
		}
		for _, p := range pr.Predicates {
			if conditionsMatch(p.When, answers) {
				return domain.EngineeringVerdict{
					Required:        true,
					Reason:          p.Reason,
					Confidence:      confidence(p.Confidence),
					EngineeringType: engineeringType(p.EngineeringType),
					CostKey:         p.CostKey,
					Cost:            costFor(pr, p.CostKey),
					Requirements:    p.Requirements,
				}
			}
		}
		for _, t := range pr.Triggers {
			if conditionMatches(t.When, answers) {
				return domain.EngineeringVerdict{
					Required:        true,
					Reason:          t.Reason,
					Confidence:      confidence(t.Confidence),
					EngineeringType: engineeringType(t.EngineeringType),
					CostKey:         t.CostKey,
					Cost:            costFor(pr, t.CostKey),
					Requirements:    t.Requirements,
				}
			}
		}
	}

	verdict := domain.EngineeringVerdict{
		Required:   false,
		Reason:     "no engineering triggers matched for this project",
		Confidence: domain.ConfidenceHigh,
	}
	if note, ok := sr.CountyNotes[j.County]; ok && note != "" {
		verdict.Notes = append(verdict.Notes, note)
	}
	return verdict
}

func (e Evaluator) stateRules(j domain.JurisdictionContext) (config.StateRules, bool) {
	if sr, ok := e.Rules.States[j.StateShort]; ok {
		return sr, true
	}
	sr, ok := e.Rules.States[j.State]
	return sr, ok
}

func stateName(j domain.JurisdictionContext) string {
	if j.State != "" {
		return j.State
	}
	if j.StateShort != "" {
		return j.StateShort
	}
	return "this jurisdiction"
}

func costFor(pr config.ProjectRules, costKey string) *domain.CostRange {
	if costKey == "" {
		return nil
	}
	if c, ok := pr.CostTable[costKey]; ok {
		out := c
		return &out
	}
	return nil
}

func confidence(s string) domain.Confidence {
	switch domain.Confidence(s) {
	case domain.ConfidenceLow, domain.ConfidenceMedium, domain.ConfidenceHigh:
		return domain.Confidence(s)
	}
	return domain.ConfidenceHigh
}

func engineeringType(s string) string {
	switch s {
	case "assessment", "calculations", "full":
		return s
	}
	return "full"
}

func conditionsMatch(conds []config.Condition, answers *domain.AnswerSet) bool {
	for _, c := range conds {
		if !conditionMatches(c, answers) {
			return false
		}
	}
	return len(conds) > 0
}

// conditionMatches evaluates one data-driven condition. Every set comparator
// must hold; a missing answer never matches.
func conditionMatches(c config.Condition, answers *domain.AnswerSet) bool {
	matched := false
	if c.Equals != "" {
		v, ok := answers.String(c.Question)
		if !ok || v != c.Equals {
			return false
		}
		matched = true
	}
	if len(c.In) > 0 {
		v, ok := answers.String(c.Question)
		if !ok {
			return false
		}
		found := false
		for _, want := range c.In {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
		matched = true
	}
	if c.Contains != "" {
		if !answers.Contains(c.Question, c.Contains) {
			return false
		}
		matched = true
	}
	if c.GT != nil || c.GTE != nil || c.LT != nil {
		n, ok := answers.Number(c.Question)
		if !ok {
			return false
		}
		if c.GT != nil && !(n > *c.GT) {
			return false
		}
		if c.GTE != nil && !(n >= *c.GTE) {
			return false
		}
		if c.LT != nil && !(n < *c.LT) {
			return false
		}
		matched = true
	}
	return matched
}
