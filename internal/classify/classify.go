// Package classify maps a project type and a completed answer set to a
// permit tier. Each project type carries its own ordered guard list; the
// first guard whose predicate holds wins, and the decision cites it. The
// thresholds encode external regulation, so the lists are deliberately
// explicit rather than generic.
package classify

import "permitwise/internal/domain"

// Decision is a permit tier plus the guard that produced it.
type Decision struct {
	Level  domain.PermitLevel `json:"level"`
	Label  string             `json:"label" enum:"none,express,standard,complex"`
	Reason string             `json:"reason"`
}

type guard struct {
	when   func(*domain.AnswerSet) bool
	level  domain.PermitLevel
	reason string
}

type guardList struct {
	guards        []guard
	defaultLevel  domain.PermitLevel
	defaultReason string
}

// Classify returns the permit tier for a project's answers. Missing answers
// never match a guard; an unknown project type gets the conservative
// standard tier.
func Classify(project domain.ProjectType, answers *domain.AnswerSet) Decision {
	list, ok := guardLists[project]
	if !ok {
		return decision(domain.PermitStandard, "unrecognized project type defaults to a standard permit")
	}
	for _, g := range list.guards {
		if g.when(answers) {
			return decision(g.level, g.reason)
		}
	}
	return decision(list.defaultLevel, list.defaultReason)
}

func decision(level domain.PermitLevel, reason string) Decision {
	return Decision{Level: level, Label: level.String(), Reason: reason}
}

func numberOver(id string, threshold float64) func(*domain.AnswerSet) bool {
	return func(a *domain.AnswerSet) bool {
		n, ok := a.Number(id)
		return ok && n > threshold
	}
}

func answeredYes(id string) func(*domain.AnswerSet) bool {
	return func(a *domain.AnswerSet) bool { return a.Bool(id) }
}

var guardLists = map[domain.ProjectType]guardList{
	domain.ProjectFence: {
		guards: []guard{
			{answeredYes("retaining"), domain.PermitComplex,
				"fences that retain soil are engineered structures"},
			{func(a *domain.AnswerSet) bool {
				v, _ := a.String("material")
				n, ok := a.Number("height")
				return v == "masonry" && ok && n > 3.5
			}, domain.PermitStandard,
				"masonry fences over 3.5 feet need footing review"},
			{numberOver("height", 6), domain.PermitExpress,
				"fences over 6 feet need an over-height permit"},
		},
		defaultLevel:  domain.PermitNone,
		defaultReason: "standard-height fences are exempt from permitting",
	},
	domain.ProjectDeck: {
		guards: []guard{
			{answeredYes("second-floor"), domain.PermitComplex,
				"second-story decks require full structural review"},
			{answeredYes("roof"), domain.PermitComplex,
				"roofed decks add structural load paths"},
			{func(a *domain.AnswerSet) bool {
				n, ok := a.Number("size")
				return ok && n > 200 && a.Bool("attached")
			}, domain.PermitStandard,
				"large attached decks need plan review"},
			{func(a *domain.AnswerSet) bool {
				n, ok := a.Number("height")
				return ok && n >= 30
			}, domain.PermitStandard,
				"decks 30 inches or more above grade need plan review"},
			{func(a *domain.AnswerSet) bool {
				size, okSize := a.Number("size")
				height, okHeight := a.Number("height")
				return okSize && okHeight && size <= 200 && height < 30 && !a.Bool("attached")
			}, domain.PermitNone,
				"small freestanding ground-level decks are exempt"},
		},
		defaultLevel:  domain.PermitExpress,
		defaultReason: "typical decks qualify for an express permit",
	},
	domain.ProjectBathroomRemodel: {
		guards: []guard{
			{func(a *domain.AnswerSet) bool { return a.Contains("scope", "wall-removal") }, domain.PermitComplex,
				"wall removal requires structural plan review"},
			{func(a *domain.AnswerSet) bool { return a.Contains("scope", "addition") }, domain.PermitComplex,
				"footprint expansion requires full plan review"},
			{func(a *domain.AnswerSet) bool { return a.OnlyContains("scope", "cosmetic") }, domain.PermitNone,
				"cosmetic-only work does not require a permit"},
			{func(a *domain.AnswerSet) bool {
				return a.Contains("scope", "plumbing-relocation") || a.Contains("scope", "layout-change")
			}, domain.PermitStandard,
				"relocating plumbing or changing layout needs standard review"},
		},
		defaultLevel:  domain.PermitExpress,
		defaultReason: "in-place fixture and finish work qualifies for an express permit",
	},
	domain.ProjectKitchenRemodel: {
		guards: []guard{
			{func(a *domain.AnswerSet) bool { return a.Contains("scope", "wall-removal") }, domain.PermitComplex,
				"wall removal requires structural plan review"},
			{func(a *domain.AnswerSet) bool { return a.OnlyContains("scope", "cosmetic") }, domain.PermitNone,
				"cosmetic-only work does not require a permit"},
			{answeredYes("gas-line"), domain.PermitStandard,
				"gas line changes need standard mechanical review"},
			{func(a *domain.AnswerSet) bool {
				return a.Contains("scope", "plumbing-relocation") || a.Contains("scope", "layout-change")
			}, domain.PermitStandard,
				"relocating plumbing or changing layout needs standard review"},
		},
		defaultLevel:  domain.PermitExpress,
		defaultReason: "in-place appliance and finish work qualifies for an express permit",
	},
	domain.ProjectHVACReplacement: {
		guards: []guard{
			{func(a *domain.AnswerSet) bool {
				v, _ := a.String("replacement-type")
				return v == "relocation" || v == "new-system"
			}, domain.PermitStandard,
				"relocated or first-time systems need standard mechanical review"},
			{answeredYes("fuel-change"), domain.PermitStandard,
				"fuel conversions need standard mechanical and electrical review"},
			{answeredYes("ductwork"), domain.PermitStandard,
				"duct modifications need standard mechanical review"},
			{func(a *domain.AnswerSet) bool {
				v, _ := a.String("replacement-type")
				return v == "like-for-like"
			}, domain.PermitExpress,
				"like-for-like replacement in place qualifies for an express permit"},
		},
		defaultLevel:  domain.PermitExpress,
		defaultReason: "equipment swaps qualify for an express permit",
	},
	domain.ProjectWaterHeater: {
		guards: []guard{
			{func(a *domain.AnswerSet) bool {
				v, _ := a.String("replacement-type")
				return v == "tankless-conversion" || v == "relocation"
			}, domain.PermitStandard,
				"conversions and relocations need standard plumbing review"},
			{func(a *domain.AnswerSet) bool {
				v, _ := a.String("replacement-type")
				return v == "same-type-same-location"
			}, domain.PermitExpress,
				"same-type in-place replacement qualifies for an express permit"},
		},
		defaultLevel:  domain.PermitExpress,
		defaultReason: "water heater swaps qualify for an express permit",
	},
}
