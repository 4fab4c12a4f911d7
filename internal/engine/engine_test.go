package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"permitwise/internal/config"
	"permitwise/internal/db"
	"permitwise/internal/domain"
	"permitwise/internal/engine"
	"permitwise/internal/migrate"
	"permitwise/internal/session"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

var losAngeles = domain.JurisdictionContext{
	State:      "California",
	StateShort: "CA",
	County:     "Los Angeles",
	City:       "Los Angeles",
}

func TestStartRejectsUnknownProjectType(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Start(env.Ctx, "treehouse", losAngeles)
	var verr domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "project_type" {
		t.Fatalf("err = %v", err)
	}
}

func TestStartSeedsSessionAndChecklist(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Engine.Start(env.Ctx, "deck", losAngeles)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.SessionID == "" || res.Completed {
		t.Fatalf("res = %+v", res)
	}
	if res.Question == nil || res.Question.ID != "attached" {
		t.Fatalf("first question = %v", res.Question)
	}
	if res.Answered != 0 || res.Total != 5 {
		t.Fatalf("progress = %d/%d", res.Answered, res.Total)
	}

	items, err := env.Engine.Repo.ListChecklistItems(env.Ctx, res.SessionID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("persisted items = %d", len(items))
	}
	for _, it := range items {
		if it.Status != domain.ItemPending {
			t.Fatalf("item %s status = %v", it.ItemID, it.Status)
		}
	}

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 5, res.SessionID, "session.started", "", "")
	if err != nil || len(evts) != 1 {
		t.Fatalf("started events = %v %v", evts, err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(evts[0].Payload), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["project_type"] != "deck" || payload["county"] != "Los Angeles" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestStartCompletesEmptyQuestionTree(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Questions["shed"] = []domain.Question{}

	res, err := env.Engine.Start(env.Ctx, "shed", losAngeles)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !res.Completed || res.Question != nil {
		t.Fatalf("zero-question project should complete immediately: %+v", res)
	}
	if res.Assessment == nil || res.Assessment.PermitLevel != domain.PermitStandard {
		t.Fatalf("assessment = %+v", res.Assessment)
	}

	stored, err := env.Engine.Repo.GetAssessment(env.Ctx, res.SessionID)
	if err != nil || stored.PermitLevel != int(domain.PermitStandard) {
		t.Fatalf("stored = %+v %v", stored, err)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 5, res.SessionID, "", "", "")
	if err != nil || len(evts) != 2 || evts[0].Type != "session.completed" {
		t.Fatalf("events = %v %v", evts, err)
	}
}

func TestDeckAssessmentEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Engine.Start(env.Ctx, "deck", losAngeles)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id := res.SessionID

	steps := []struct {
		question string
		value    any
	}{
		{"attached", "yes"},
		{"ledger-flashing", "yes"},
		{"size", 300},
		{"height", 96},
		{"second-floor", "yes"},
		{"roof", "no"},
	}
	for _, s := range steps {
		res, err = env.Engine.Answer(env.Ctx, id, s.question, s.value)
		if err != nil {
			t.Fatalf("answer %s: %v", s.question, err)
		}
	}
	if !res.Completed || res.Assessment == nil {
		t.Fatalf("final step = %+v", res)
	}

	a := res.Assessment
	if a.PermitLevel != domain.PermitComplex || a.PermitLabel != "complex" {
		t.Fatalf("permit = %v %q", a.PermitLevel, a.PermitLabel)
	}
	if !a.Engineering.Required || a.Engineering.CostKey != "elevated_deck" {
		t.Fatalf("engineering = %+v", a.Engineering)
	}
	if a.EngineeringCost == nil || a.EngineeringCost.Min != 2000 {
		t.Fatalf("engineering cost = %+v", a.EngineeringCost)
	}
	if a.EngineeringTimeline.Weeks != 3 {
		t.Fatalf("engineering timeline = %+v", a.EngineeringTimeline)
	}
	// complex fee 1200-3000 plus engineering 2000-3500
	if a.TotalCost.Min != 3200 || a.TotalCost.Max != 6500 {
		t.Fatalf("total cost = %+v", a.TotalCost)
	}
	// 30 review days plus 3 engineering weeks
	if a.TotalTimeline.Days != 51 || a.TotalTimeline.Weeks != 8 {
		t.Fatalf("total timeline = %+v", a.TotalTimeline)
	}
	if len(a.ReviewSummary) != len(steps) {
		t.Fatalf("review summary = %+v", a.ReviewSummary)
	}

	stored, err := env.Engine.Repo.GetAssessment(env.Ctx, id)
	if err != nil {
		t.Fatalf("stored assessment: %v", err)
	}
	if stored.PermitLevel != int(domain.PermitComplex) || !stored.EngineeringRequired {
		t.Fatalf("stored = %+v", stored)
	}
	if stored.Result.PermitLabel != "complex" {
		t.Fatalf("stored result = %+v", stored.Result)
	}

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 20, id, "", "", "")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	// started + six answers + completed
	if len(evts) != 8 {
		t.Fatalf("event count = %d", len(evts))
	}
	if evts[0].Type != "session.completed" {
		t.Fatalf("last event = %s", evts[0].Type)
	}
}

func TestAnswerValidationDoesNotAdvance(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.Engine.Start(env.Ctx, "deck", losAngeles)
	id := res.SessionID

	if _, err := env.Engine.Answer(env.Ctx, id, "attached", "maybe"); err == nil {
		t.Fatal("expected validation error")
	}
	review, err := env.Engine.Review(env.Ctx, id)
	if err != nil || review.Answered != 0 {
		t.Fatalf("rejected answer recorded: %+v %v", review, err)
	}
	if _, err := env.Engine.Answer(env.Ctx, id, "roof", "yes"); err == nil {
		t.Fatal("expected out-of-order rejection")
	}
}

func TestBackRewindsAndRecomputes(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.Engine.Start(env.Ctx, "fence", losAngeles)
	id := res.SessionID

	for _, s := range []struct {
		q string
		v any
	}{
		{"location", "back-yard"}, {"height", 4}, {"retaining", "no"},
		{"material", "wood"}, {"on-boundary", "no"},
	} {
		if _, err := env.Engine.Answer(env.Ctx, id, s.q, s.v); err != nil {
			t.Fatalf("answer %s: %v", s.q, err)
		}
	}
	first, err := env.Engine.Assessment(env.Ctx, id)
	if err != nil {
		t.Fatalf("assessment: %v", err)
	}
	if first.PermitLevel != domain.PermitNone {
		t.Fatalf("ordinary fence = %v", first.PermitLevel)
	}

	step, prev, err := env.Engine.Back(env.Ctx, id, "material")
	if err != nil {
		t.Fatalf("back: %v", err)
	}
	if prev != "wood" {
		t.Fatalf("previous answer = %q", prev)
	}
	if step.Completed || step.Question == nil || step.Question.ID != "material" {
		t.Fatalf("step after back = %+v", step)
	}

	// rewinding discards the stale result
	review, _ := env.Engine.Review(env.Ctx, id)
	if review.Assessment != nil {
		t.Fatal("stale assessment survived the rewind")
	}

	for _, s := range []struct {
		q string
		v any
	}{
		{"material", "masonry"}, {"on-boundary", "no"},
	} {
		if _, err := env.Engine.Answer(env.Ctx, id, s.q, s.v); err != nil {
			t.Fatalf("answer %s: %v", s.q, err)
		}
	}
	second, err := env.Engine.Assessment(env.Ctx, id)
	if err != nil {
		t.Fatalf("assessment: %v", err)
	}
	if second.PermitLevel != domain.PermitStandard {
		t.Fatalf("masonry fence = %v", second.PermitLevel)
	}
	if !second.Engineering.Required || second.Engineering.CostKey != "masonry_fence" {
		t.Fatalf("engineering = %+v", second.Engineering)
	}

	// the stored row reflects the recomputation
	stored, err := env.Engine.Repo.GetAssessment(env.Ctx, id)
	if err != nil || stored.PermitLevel != int(domain.PermitStandard) {
		t.Fatalf("stored = %+v %v", stored, err)
	}
}

func TestBackReplayIdenticalAnswers(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.Engine.Start(env.Ctx, "fence", losAngeles)
	id := res.SessionID

	steps := []struct {
		q string
		v any
	}{
		{"location", "back-yard"}, {"height", 4}, {"retaining", "no"},
		{"material", "masonry"}, {"on-boundary", "no"},
	}
	for _, s := range steps {
		if _, err := env.Engine.Answer(env.Ctx, id, s.q, s.v); err != nil {
			t.Fatalf("answer %s: %v", s.q, err)
		}
	}
	first, err := env.Engine.Assessment(env.Ctx, id)
	if err != nil {
		t.Fatalf("assessment: %v", err)
	}
	firstReview, err := env.Engine.Review(env.Ctx, id)
	if err != nil {
		t.Fatalf("review: %v", err)
	}

	if _, _, err := env.Engine.Back(env.Ctx, id, "height"); err != nil {
		t.Fatalf("back: %v", err)
	}
	for _, s := range steps[1:] {
		if _, err := env.Engine.Answer(env.Ctx, id, s.q, s.v); err != nil {
			t.Fatalf("replay %s: %v", s.q, err)
		}
	}
	second, err := env.Engine.Assessment(env.Ctx, id)
	if err != nil {
		t.Fatalf("assessment after replay: %v", err)
	}
	secondReview, err := env.Engine.Review(env.Ctx, id)
	if err != nil {
		t.Fatalf("review after replay: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical replay changed the assessment:\nfirst  %+v\nsecond %+v", first, second)
	}
	if !reflect.DeepEqual(firstReview.Summary, secondReview.Summary) {
		t.Fatalf("identical replay changed the summary:\nfirst  %+v\nsecond %+v", firstReview.Summary, secondReview.Summary)
	}
}

func TestAssessmentSurvivesSessionExpiry(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.Engine.Start(env.Ctx, "water-heater", losAngeles)
	id := res.SessionID

	for _, s := range []struct {
		q string
		v any
	}{
		{"replacement-type", "tankless-conversion"}, {"expansion-tank", "yes"},
	} {
		if _, err := env.Engine.Answer(env.Ctx, id, s.q, s.v); err != nil {
			t.Fatalf("answer %s: %v", s.q, err)
		}
	}

	env.Engine.Sessions.Delete(id)
	if _, err := env.Engine.Review(env.Ctx, id); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("review after expiry err = %v", err)
	}
	a, err := env.Engine.Assessment(env.Ctx, id)
	if err != nil {
		t.Fatalf("assessment after expiry: %v", err)
	}
	if a.PermitLevel != domain.PermitStandard {
		t.Fatalf("level = %v", a.PermitLevel)
	}
}

func TestChecklistWalkPersistsCompletedItems(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.Engine.Start(env.Ctx, "deck", losAngeles)
	id := res.SessionID

	cr, err := env.Engine.ChecklistMessage(env.Ctx, id, "start")
	if err != nil {
		t.Fatalf("start walkthrough: %v", err)
	}
	if cr.Phase != "mid-item" {
		t.Fatalf("phase = %v", cr.Phase)
	}
	for _, token := range []string{"yes", "yes"} {
		if cr, err = env.Engine.ChecklistMessage(env.Ctx, id, token); err != nil {
			t.Fatalf("message %q: %v", token, err)
		}
	}
	if cr.Phase != "confirming" {
		t.Fatalf("phase = %v", cr.Phase)
	}
	cr, err = env.Engine.ChecklistMessage(env.Ctx, id, "confirm_complete")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if cr.Reply.CompletedItem == nil || cr.Reply.CompletedItem.ID != "site-plan" {
		t.Fatalf("completed = %+v", cr.Reply.CompletedItem)
	}

	stored, err := env.Engine.Repo.GetChecklistItem(env.Ctx, id, "site-plan")
	if err != nil {
		t.Fatalf("stored item: %v", err)
	}
	if stored.Status != domain.ItemComplete || stored.Answers["property-lines"] != "yes" {
		t.Fatalf("stored = %+v", stored)
	}

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 5, id, "checklist.item.completed", "", "")
	if err != nil || len(evts) != 1 || evts[0].EntityID != "site-plan" {
		t.Fatalf("completion events = %v %v", evts, err)
	}
}

func TestUnknownSessionErrors(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Answer(env.Ctx, "nope", "attached", "yes"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("answer err = %v", err)
	}
	if _, _, err := env.Engine.Back(env.Ctx, "nope", "attached"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("back err = %v", err)
	}
	if _, err := env.Engine.Checklist(env.Ctx, "nope"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("checklist err = %v", err)
	}
	if _, err := env.Engine.Assessment(env.Ctx, "nope"); err == nil {
		t.Fatal("assessment for unknown session should fail")
	}
}

func TestJurisdictionWithoutRuleData(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.Engine.Start(env.Ctx, "deck", domain.JurisdictionContext{State: "Vermont", StateShort: "VT"})
	id := res.SessionID
	for _, s := range []struct {
		q string
		v any
	}{
		{"attached", "no"}, {"size", 150}, {"height", 20},
		{"second-floor", "no"}, {"roof", "no"},
	} {
		if _, err := env.Engine.Answer(env.Ctx, id, s.q, s.v); err != nil {
			t.Fatalf("answer %s: %v", s.q, err)
		}
	}
	a, err := env.Engine.Assessment(env.Ctx, id)
	if err != nil {
		t.Fatalf("assessment: %v", err)
	}
	if a.Engineering.Required {
		t.Fatalf("no rule data should not require engineering: %+v", a.Engineering)
	}
	if a.Engineering.Confidence != domain.ConfidenceLow {
		t.Fatalf("confidence = %v", a.Engineering.Confidence)
	}
	if a.PermitLevel != domain.PermitNone {
		t.Fatalf("exempt deck = %v", a.PermitLevel)
	}
	if a.PermitFee.Min != 0 || a.TotalTimeline.Formatted != "same day" {
		t.Fatalf("fee %+v timeline %+v", a.PermitFee, a.TotalTimeline)
	}
}
