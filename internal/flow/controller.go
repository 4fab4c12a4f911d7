// Package flow drives the permit-package checklist walkthrough: a small
// state machine that presents each checklist item's questions in order,
// layers follow-up and needs-help branching on top, and requires explicit
// confirmation before committing an item's answers.
package flow

import (
	"fmt"
	"sort"
	"strings"

	"permitwise/internal/config"
	"permitwise/internal/domain"
)

// Phase is the controller's position; the phases are mutually exclusive.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseMidItem    Phase = "mid-item"
	PhaseConfirming Phase = "confirming"
	PhaseFinished   Phase = "finished"
)

// Reply is what the controller wants presented next.
type Reply struct {
	Message      string              `json:"message"`
	QuickReplies []config.QuickReply `json:"quick_replies,omitempty"`
	// CompletedItem is set when this turn committed a checklist item; the
	// caller persists it and emits the completion event.
	CompletedItem *domain.ChecklistItem `json:"completed_item,omitempty"`
	Done          bool                  `json:"done,omitempty"`
}

// needsHelp are answer values that divert to the take-photo side branch
// instead of advancing the question index.
var needsHelp = map[string]bool{
	"unknown": true,
	"photo":   true,
	"explain": true,
}

// Controller walks one session's checklist. Not safe for concurrent use;
// callers serialize access per session.
type Controller struct {
	templates []config.ChecklistTemplate
	items     map[string]*domain.ChecklistItem

	activeItemID  string
	questionIndex int
	draft         map[string]string
	sideBranch    bool
	pending       bool
	finished      bool
}

func NewController(sessionID string, templates []config.ChecklistTemplate) *Controller {
	items := make(map[string]*domain.ChecklistItem, len(templates))
	for _, t := range templates {
		items[t.ID] = &domain.ChecklistItem{
			ID:          t.ID,
			SessionID:   sessionID,
			Title:       t.Title,
			Description: t.Description,
			Status:      domain.ItemPending,
		}
	}
	return &Controller{templates: templates, items: items}
}

// Phase reports which of the four mutually exclusive states the controller
// is in.
func (c *Controller) Phase() Phase {
	switch {
	case c.finished:
		return PhaseFinished
	case c.pending:
		return PhaseConfirming
	case c.activeItemID != "":
		return PhaseMidItem
	default:
		return PhaseIdle
	}
}

// Items returns the checklist in template order.
func (c *Controller) Items() []domain.ChecklistItem {
	out := make([]domain.ChecklistItem, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, *c.items[t.ID])
	}
	return out
}

// Handle processes one conversation event and returns the next reply.
func (c *Controller) Handle(ev Event) Reply {
	switch ev.Kind {
	case EventStart:
		return c.handleStart()
	case EventPause, EventSkip:
		return Reply{Message: "Paused. Your progress is saved; say start to pick up where you left off."}
	case EventSelectItem:
		return c.handleSelect(ev.Value)
	case EventConfirm:
		return c.handleConfirm()
	case EventEdit:
		return c.handleEdit()
	case EventTakePhoto:
		return c.handleTakePhoto()
	case EventContinueAnyway:
		return c.handleContinueAnyway()
	default:
		return c.handleAnswer(ev.Value)
	}
}

func (c *Controller) handleStart() Reply {
	if c.finished {
		return Reply{Message: "Your permit package checklist is complete.", Done: true}
	}
	if c.pending {
		return c.confirmationReply()
	}
	if c.activeItemID != "" {
		return c.presentQuestion("Picking up where you left off. ")
	}
	return c.advanceToNextItem("")
}

func (c *Controller) handleSelect(itemID string) Reply {
	item, ok := c.items[itemID]
	if !ok {
		return Reply{Message: fmt.Sprintf("No checklist item %q. Items: %s.", itemID, strings.Join(c.itemIDs(), ", "))}
	}
	c.activate(itemID)
	t := c.template(itemID)
	if len(t.Questions) == 0 {
		return c.photoPrompt(item)
	}
	return c.presentQuestion("")
}

func (c *Controller) handleConfirm() Reply {
	if !c.pending {
		return Reply{Message: "Nothing is waiting for confirmation right now."}
	}
	item := c.items[c.activeItemID]
	item.Status = domain.ItemComplete
	item.Answers = c.draft
	completed := *item
	c.clearActive()
	next := c.advanceToNextItem(fmt.Sprintf("%s is documented. ", completed.Title))
	next.CompletedItem = &completed
	return next
}

func (c *Controller) handleEdit() Reply {
	if !c.pending {
		return Reply{Message: "Nothing is waiting for confirmation right now."}
	}
	c.pending = false
	c.questionIndex = 0
	c.draft = map[string]string{}
	return c.presentQuestion("Let's go through it again. ")
}

func (c *Controller) handleTakePhoto() Reply {
	if c.sideBranch {
		c.sideBranch = false
		r := c.presentQuestion("Attach the photo to this checklist item, then we'll continue. ")
		return r
	}
	if c.activeItemID != "" {
		t := c.template(c.activeItemID)
		if len(t.Questions) == 0 {
			item := c.items[c.activeItemID]
			item.Status = domain.ItemComplete
			completed := *item
			c.clearActive()
			next := c.advanceToNextItem(fmt.Sprintf("%s is documented. ", completed.Title))
			next.CompletedItem = &completed
			return next
		}
	}
	return Reply{Message: "Attach the photo to the active checklist item."}
}

func (c *Controller) handleContinueAnyway() Reply {
	if !c.sideBranch {
		return Reply{Message: "Nothing to continue past right now."}
	}
	// The needs-help value was already drafted; accept it and move on.
	c.sideBranch = false
	c.questionIndex++
	return c.afterAdvance("")
}

func (c *Controller) handleAnswer(value string) Reply {
	if c.finished {
		return Reply{Message: "The checklist is already complete.", Done: true}
	}
	if c.pending {
		return c.confirmationReply()
	}
	if c.activeItemID == "" {
		return Reply{Message: "Say start to begin documenting your permit package.", QuickReplies: []config.QuickReply{{Label: "Start", Value: "start"}}}
	}
	t := c.template(c.activeItemID)
	if c.questionIndex >= len(t.Questions) {
		return c.confirmationReply()
	}
	// A fresh answer leaves any needs-help branch behind.
	c.sideBranch = false
	q := t.Questions[c.questionIndex]
	if c.draft == nil {
		c.draft = map[string]string{}
	}
	c.draft[q.ID] = value

	var prefix string
	if followUp, ok := q.FollowUps[value]; ok {
		prefix = followUp + " "
	}
	if needsHelp[value] {
		c.sideBranch = true
		return Reply{
			Message: strings.TrimSpace(prefix + "Would a photo help, or do you want to continue anyway?"),
			QuickReplies: []config.QuickReply{
				{Label: "Take a photo", Value: "take_photo"},
				{Label: "Continue anyway", Value: "continue_anyway"},
			},
		}
	}
	c.questionIndex++
	return c.afterAdvance(prefix)
}

func (c *Controller) afterAdvance(prefix string) Reply {
	t := c.template(c.activeItemID)
	if c.questionIndex >= len(t.Questions) {
		c.pending = true
		r := c.confirmationReply()
		r.Message = strings.TrimSpace(prefix + r.Message)
		return r
	}
	return c.presentQuestion(prefix)
}

func (c *Controller) presentQuestion(prefix string) Reply {
	t := c.template(c.activeItemID)
	// Photo-only items have no questions to present; resuming one prompts
	// for the photo again.
	if len(t.Questions) == 0 {
		r := c.photoPrompt(c.items[c.activeItemID])
		r.Message = strings.TrimSpace(prefix + r.Message)
		return r
	}
	q := t.Questions[c.questionIndex]
	return Reply{
		Message:      strings.TrimSpace(prefix + q.Prompt),
		QuickReplies: q.QuickReplies,
	}
}

func (c *Controller) confirmationReply() Reply {
	t := c.template(c.activeItemID)
	var lines []string
	lines = append(lines, fmt.Sprintf("Here's what I have for %s:", c.items[c.activeItemID].Title))
	for _, q := range t.Questions {
		if v, ok := c.draft[q.ID]; ok {
			lines = append(lines, fmt.Sprintf("- %s: %s", q.ID, v))
		}
	}
	lines = append(lines, "Confirm to mark it complete, or edit your answers.")
	return Reply{
		Message: strings.Join(lines, "\n"),
		QuickReplies: []config.QuickReply{
			{Label: "Looks right", Value: "confirm_complete"},
			{Label: "Edit answers", Value: "edit_answers"},
		},
	}
}

// advanceToNextItem activates the next incomplete item, preferring one with
// defined questions, then photo-only items, then finishes the flow.
func (c *Controller) advanceToNextItem(prefix string) Reply {
	for _, t := range c.templates {
		if c.items[t.ID].Status == domain.ItemComplete || len(t.Questions) == 0 {
			continue
		}
		c.activate(t.ID)
		r := c.presentQuestion(prefix + fmt.Sprintf("Next up: %s. ", t.Title))
		return r
	}
	for _, t := range c.templates {
		if c.items[t.ID].Status == domain.ItemComplete {
			continue
		}
		c.activate(t.ID)
		r := c.photoPrompt(c.items[t.ID])
		r.Message = strings.TrimSpace(prefix + r.Message)
		return r
	}
	c.finished = true
	return Reply{Message: strings.TrimSpace(prefix + "That's everything - your permit package checklist is complete."), Done: true}
}

func (c *Controller) photoPrompt(item *domain.ChecklistItem) Reply {
	return Reply{
		Message: fmt.Sprintf("%s: %s Add photos when you're ready.", item.Title, item.Description),
		QuickReplies: []config.QuickReply{
			{Label: "Photo added", Value: "take_photo"},
			{Label: "Skip for now", Value: "skip"},
		},
	}
}

func (c *Controller) activate(itemID string) {
	for id, item := range c.items {
		if item.Status == domain.ItemActive && id != itemID {
			item.Status = domain.ItemPending
		}
	}
	if c.items[itemID].Status != domain.ItemComplete {
		c.items[itemID].Status = domain.ItemActive
	}
	c.activeItemID = itemID
	c.questionIndex = 0
	c.draft = map[string]string{}
	c.pending = false
	c.sideBranch = false
}

func (c *Controller) clearActive() {
	c.activeItemID = ""
	c.questionIndex = 0
	c.draft = nil
	c.pending = false
	c.sideBranch = false
}

func (c *Controller) template(itemID string) config.ChecklistTemplate {
	for _, t := range c.templates {
		if t.ID == itemID {
			return t
		}
	}
	return config.ChecklistTemplate{}
}

func (c *Controller) itemIDs() []string {
	ids := make([]string, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
