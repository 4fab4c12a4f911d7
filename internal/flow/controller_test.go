package flow

import (
	"strings"
	"testing"

	"permitwise/internal/config"
	"permitwise/internal/domain"
)

func newController(t *testing.T) *Controller {
	t.Helper()
	return NewController("sess-1", config.Default().Checklist)
}

func send(c *Controller, token string) Reply {
	return c.Handle(ParseToken(token))
}

func TestParseToken(t *testing.T) {
	if ev := ParseToken(" start "); ev.Kind != EventStart {
		t.Fatalf("start parsed as %v", ev.Kind)
	}
	if ev := ParseToken("select:photos"); ev.Kind != EventSelectItem || ev.Value != "photos" {
		t.Fatalf("select parsed as %+v", ev)
	}
	if ev := ParseToken("my property lines are marked"); ev.Kind != EventAnswer || ev.Value == "" {
		t.Fatalf("free text parsed as %+v", ev)
	}
}

func TestStartPresentsFirstItem(t *testing.T) {
	c := newController(t)
	if c.Phase() != PhaseIdle {
		t.Fatalf("fresh phase = %v", c.Phase())
	}
	r := send(c, "start")
	if !strings.Contains(r.Message, "Site plan") {
		t.Fatalf("start message = %q", r.Message)
	}
	if c.Phase() != PhaseMidItem {
		t.Fatalf("phase after start = %v", c.Phase())
	}
	if len(r.QuickReplies) == 0 {
		t.Fatal("first question should offer quick replies")
	}
}

func TestAnswerBeforeStartPrompts(t *testing.T) {
	c := newController(t)
	r := send(c, "yes")
	if !strings.Contains(r.Message, "start") {
		t.Fatalf("message = %q", r.Message)
	}
	if c.Phase() != PhaseIdle {
		t.Fatalf("phase = %v", c.Phase())
	}
}

func TestFollowUpOnFlaggedAnswer(t *testing.T) {
	c := newController(t)
	send(c, "start")
	send(c, "yes") // property-lines
	r := send(c, "no")
	if !strings.Contains(r.Message, "setback") {
		t.Fatalf("dimensions=no should surface the follow-up: %q", r.Message)
	}
}

func TestItemConfirmFlow(t *testing.T) {
	c := newController(t)
	send(c, "start")
	send(c, "yes") // property-lines
	r := send(c, "yes") // dimensions
	if c.Phase() != PhaseConfirming {
		t.Fatalf("phase = %v", c.Phase())
	}
	if !strings.Contains(r.Message, "property-lines: yes") {
		t.Fatalf("confirmation should list drafted answers: %q", r.Message)
	}

	r = send(c, "confirm_complete")
	if r.CompletedItem == nil {
		t.Fatal("confirm should commit the item")
	}
	if r.CompletedItem.ID != "site-plan" || r.CompletedItem.Status != domain.ItemComplete {
		t.Fatalf("completed item = %+v", r.CompletedItem)
	}
	if r.CompletedItem.Answers["dimensions"] != "yes" {
		t.Fatalf("answers = %v", r.CompletedItem.Answers)
	}
	if !strings.Contains(r.Message, "Construction drawings") {
		t.Fatalf("flow should advance to the next item: %q", r.Message)
	}
}

func TestEditResetsDraft(t *testing.T) {
	c := newController(t)
	send(c, "start")
	send(c, "yes")
	send(c, "yes")
	r := send(c, "edit_answers")
	if c.Phase() != PhaseMidItem {
		t.Fatalf("phase after edit = %v", c.Phase())
	}
	if !strings.Contains(r.Message, "property lines") {
		t.Fatalf("edit should restart the item's questions: %q", r.Message)
	}
	// answers drafted before the edit must be gone
	send(c, "yes")
	r = send(c, "no")
	if !strings.Contains(r.Message, "dimensions: no") {
		t.Fatalf("confirmation = %q", r.Message)
	}
}

func TestConfirmWithoutPendingIsNoop(t *testing.T) {
	c := newController(t)
	r := send(c, "confirm_complete")
	if r.CompletedItem != nil || !strings.Contains(r.Message, "Nothing") {
		t.Fatalf("reply = %+v", r)
	}
}

func TestNeedsHelpSideBranch(t *testing.T) {
	c := newController(t)
	send(c, "start")
	r := send(c, "unknown") // property-lines
	if !strings.Contains(r.Message, "photo") {
		t.Fatalf("needs-help should offer the photo branch: %q", r.Message)
	}
	if !strings.Contains(r.Message, "GIS") {
		t.Fatalf("follow-up text should prefix the branch prompt: %q", r.Message)
	}
	// phase stays mid-item; the question index has not advanced
	if c.Phase() != PhaseMidItem {
		t.Fatalf("phase = %v", c.Phase())
	}

	r = send(c, "take_photo")
	if !strings.Contains(r.Message, "property lines") {
		t.Fatalf("photo branch should re-present the same question: %q", r.Message)
	}
}

func TestContinueAnywayKeepsDraftedValue(t *testing.T) {
	c := newController(t)
	send(c, "start")
	send(c, "unknown")
	r := send(c, "continue_anyway")
	if !strings.Contains(r.Message, "distances") {
		t.Fatalf("continue should advance to the next question: %q", r.Message)
	}
	send(c, "yes")
	r = send(c, "confirm_complete")
	if r.CompletedItem == nil || r.CompletedItem.Answers["property-lines"] != "unknown" {
		t.Fatalf("drafted needs-help value should be committed: %+v", r.CompletedItem)
	}
}

func TestContinueAnywayOutsideBranch(t *testing.T) {
	c := newController(t)
	send(c, "start")
	r := send(c, "continue_anyway")
	if !strings.Contains(r.Message, "Nothing") {
		t.Fatalf("reply = %q", r.Message)
	}
}

func TestSelectItemJumpsAndResumes(t *testing.T) {
	c := newController(t)
	send(c, "start")
	send(c, "yes") // partway into site-plan

	r := send(c, "select:contractor-info")
	if !strings.Contains(r.Message, "licensed contractor") {
		t.Fatalf("select should present the item's first question: %q", r.Message)
	}
	items := c.Items()
	var siteplan, contractor domain.ChecklistItem
	for _, it := range items {
		switch it.ID {
		case "site-plan":
			siteplan = it
		case "contractor-info":
			contractor = it
		}
	}
	if contractor.Status != domain.ItemActive {
		t.Fatalf("contractor status = %v", contractor.Status)
	}
	if siteplan.Status != domain.ItemPending {
		t.Fatalf("only one item may be active, site-plan = %v", siteplan.Status)
	}

	r = send(c, "select:bogus")
	if !strings.Contains(r.Message, "No checklist item") {
		t.Fatalf("unknown item reply = %q", r.Message)
	}
}

func TestPhotoOnlyItem(t *testing.T) {
	c := newController(t)
	r := send(c, "select:photos")
	if !strings.Contains(r.Message, "Site photos") {
		t.Fatalf("photo prompt = %q", r.Message)
	}
	r = send(c, "take_photo")
	if r.CompletedItem == nil || r.CompletedItem.ID != "photos" {
		t.Fatalf("take_photo should complete the photo-only item: %+v", r.CompletedItem)
	}
}

func TestResumePhotoOnlyItem(t *testing.T) {
	c := newController(t)
	send(c, "select:photos")
	r := send(c, "start")
	if !strings.Contains(r.Message, "Site photos") {
		t.Fatalf("resuming a photo-only item should re-prompt for photos: %q", r.Message)
	}
	if c.Phase() != PhaseMidItem {
		t.Fatalf("phase = %v", c.Phase())
	}
	send(c, "pause")
	r = send(c, "start")
	if !strings.Contains(r.Message, "Site photos") {
		t.Fatalf("resume after pause = %q", r.Message)
	}
	r = send(c, "take_photo")
	if r.CompletedItem == nil || r.CompletedItem.ID != "photos" {
		t.Fatalf("take_photo should still complete the item: %+v", r.CompletedItem)
	}
}

func TestDirectAnswerLeavesSideBranch(t *testing.T) {
	c := newController(t)
	send(c, "start")
	send(c, "unknown") // property-lines, enters the branch
	r := send(c, "yes") // answer outright instead of the branch replies
	if !strings.Contains(r.Message, "distances") {
		t.Fatalf("direct answer should advance past the question: %q", r.Message)
	}
	r = send(c, "take_photo")
	if !strings.Contains(r.Message, "active checklist item") {
		t.Fatalf("stray take_photo must not re-enter the branch: %q", r.Message)
	}
	send(c, "yes")
	if c.Phase() != PhaseConfirming {
		t.Fatalf("phase = %v", c.Phase())
	}
}

func TestPauseKeepsProgress(t *testing.T) {
	c := newController(t)
	send(c, "start")
	send(c, "yes")
	r := send(c, "pause")
	if !strings.Contains(r.Message, "Paused") {
		t.Fatalf("pause reply = %q", r.Message)
	}
	r = send(c, "start")
	if !strings.Contains(r.Message, "Picking up") {
		t.Fatalf("resume reply = %q", r.Message)
	}
	if !strings.Contains(r.Message, "distances") {
		t.Fatalf("resume should re-present the open question: %q", r.Message)
	}
}

func TestFullWalkthroughFinishes(t *testing.T) {
	c := newController(t)
	send(c, "start")
	// site-plan
	send(c, "yes")
	send(c, "yes")
	send(c, "confirm_complete")
	// construction-drawings
	send(c, "professional")
	send(c, "yes")
	send(c, "confirm_complete")
	// contractor-info (questioned items come before photo-only ones)
	send(c, "yes")
	send(c, "yes")
	r := send(c, "confirm_complete")
	// photos is the only item left
	if !strings.Contains(r.Message, "Site photos") {
		t.Fatalf("expected the photo-only item: %q", r.Message)
	}
	r = send(c, "take_photo")
	if !r.Done || c.Phase() != PhaseFinished {
		t.Fatalf("done=%v phase=%v msg=%q", r.Done, c.Phase(), r.Message)
	}
	for _, it := range c.Items() {
		if it.Status != domain.ItemComplete {
			t.Fatalf("item %s = %v", it.ID, it.Status)
		}
	}

	r = send(c, "start")
	if !r.Done {
		t.Fatalf("start after finish should report completion: %q", r.Message)
	}
	r = send(c, "yes")
	if !r.Done {
		t.Fatalf("answers after finish should report completion: %q", r.Message)
	}
}
