package classify

import (
	"testing"

	"permitwise/internal/domain"
)

func answers(pairs map[string]any) *domain.AnswerSet {
	s := domain.NewAnswerSet()
	for k, v := range pairs {
		s.Set(k, v)
	}
	return s
}

func TestFenceTiers(t *testing.T) {
	cases := []struct {
		name string
		in   map[string]any
		want domain.PermitLevel
	}{
		{"retaining wins over everything", map[string]any{"retaining": "yes", "height": 4.0, "material": "wood"}, domain.PermitComplex},
		{"tall masonry", map[string]any{"retaining": "no", "height": 4.0, "material": "masonry"}, domain.PermitStandard},
		{"over-height wood", map[string]any{"retaining": "no", "height": 7.0, "material": "wood"}, domain.PermitExpress},
		{"ordinary fence exempt", map[string]any{"retaining": "no", "height": 6.0, "material": "wood"}, domain.PermitNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(domain.ProjectFence, answers(tc.in))
			if got.Level != tc.want {
				t.Fatalf("level = %v (%s), want %v", got.Level, got.Reason, tc.want)
			}
			if got.Label != tc.want.String() {
				t.Fatalf("label = %q", got.Label)
			}
			if got.Reason == "" {
				t.Fatal("decisions always cite a reason")
			}
		})
	}
}

func TestDeckTiers(t *testing.T) {
	secondFloor := answers(map[string]any{"second-floor": "yes", "size": 100.0, "height": 20.0})
	if got := Classify(domain.ProjectDeck, secondFloor); got.Level != domain.PermitComplex {
		t.Fatalf("second-story deck = %v", got.Level)
	}

	roofed := answers(map[string]any{"second-floor": "no", "roof": "yes", "size": 100.0, "height": 20.0})
	if got := Classify(domain.ProjectDeck, roofed); got.Level != domain.PermitComplex {
		t.Fatalf("roofed deck = %v", got.Level)
	}

	largeAttached := answers(map[string]any{"second-floor": "no", "roof": "no", "attached": "yes", "size": 250.0, "height": 20.0})
	if got := Classify(domain.ProjectDeck, largeAttached); got.Level != domain.PermitStandard {
		t.Fatalf("large attached deck = %v", got.Level)
	}

	tall := answers(map[string]any{"second-floor": "no", "roof": "no", "attached": "no", "size": 100.0, "height": 30.0})
	if got := Classify(domain.ProjectDeck, tall); got.Level != domain.PermitStandard {
		t.Fatalf("30-inch deck = %v", got.Level)
	}

	exempt := answers(map[string]any{"second-floor": "no", "roof": "no", "attached": "no", "size": 180.0, "height": 24.0})
	if got := Classify(domain.ProjectDeck, exempt); got.Level != domain.PermitNone {
		t.Fatalf("small freestanding deck = %v (%s)", got.Level, got.Reason)
	}
}

func TestRemodelTiers(t *testing.T) {
	wallRemoval := answers(map[string]any{"scope": []string{"fixtures", "wall-removal"}})
	if got := Classify(domain.ProjectBathroomRemodel, wallRemoval); got.Level != domain.PermitComplex {
		t.Fatalf("wall removal = %v", got.Level)
	}

	cosmetic := answers(map[string]any{"scope": []string{"cosmetic"}})
	if got := Classify(domain.ProjectBathroomRemodel, cosmetic); got.Level != domain.PermitNone {
		t.Fatalf("cosmetic-only = %v", got.Level)
	}

	plumbing := answers(map[string]any{"scope": []string{"fixtures", "plumbing-relocation"}})
	if got := Classify(domain.ProjectBathroomRemodel, plumbing); got.Level != domain.PermitStandard {
		t.Fatalf("plumbing relocation = %v", got.Level)
	}

	gas := answers(map[string]any{"scope": []string{"appliances"}, "gas-line": "yes"})
	if got := Classify(domain.ProjectKitchenRemodel, gas); got.Level != domain.PermitStandard {
		t.Fatalf("gas line = %v", got.Level)
	}

	fixtures := answers(map[string]any{"scope": []string{"fixtures"}, "electrical": "no"})
	if got := Classify(domain.ProjectBathroomRemodel, fixtures); got.Level != domain.PermitExpress {
		t.Fatalf("in-place fixtures = %v", got.Level)
	}
}

func TestMechanicalTiers(t *testing.T) {
	relocation := answers(map[string]any{"replacement-type": "relocation", "fuel-change": "no", "ductwork": "no"})
	if got := Classify(domain.ProjectHVACReplacement, relocation); got.Level != domain.PermitStandard {
		t.Fatalf("relocated hvac = %v", got.Level)
	}
	likeForLike := answers(map[string]any{"replacement-type": "like-for-like", "fuel-change": "no", "ductwork": "no"})
	if got := Classify(domain.ProjectHVACReplacement, likeForLike); got.Level != domain.PermitExpress {
		t.Fatalf("like-for-like hvac = %v", got.Level)
	}

	tankless := answers(map[string]any{"replacement-type": "tankless-conversion"})
	if got := Classify(domain.ProjectWaterHeater, tankless); got.Level != domain.PermitStandard {
		t.Fatalf("tankless conversion = %v", got.Level)
	}
	inPlace := answers(map[string]any{"replacement-type": "same-type-same-location"})
	if got := Classify(domain.ProjectWaterHeater, inPlace); got.Level != domain.PermitExpress {
		t.Fatalf("in-place water heater = %v", got.Level)
	}
}

func TestUnknownProjectDefaultsToStandard(t *testing.T) {
	got := Classify("treehouse", domain.NewAnswerSet())
	if got.Level != domain.PermitStandard {
		t.Fatalf("unknown project = %v", got.Level)
	}
}

func TestMissingAnswersNeverMatchGuards(t *testing.T) {
	got := Classify(domain.ProjectFence, domain.NewAnswerSet())
	if got.Level != domain.PermitNone {
		t.Fatalf("empty fence answers = %v (%s)", got.Level, got.Reason)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	in := answers(map[string]any{"second-floor": "yes", "roof": "yes"})
	first := Classify(domain.ProjectDeck, in)
	for i := 0; i < 5; i++ {
		if got := Classify(domain.ProjectDeck, in); got != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}
