package flow

import "strings"

// EventKind is the closed set of conversation events. Inbound quick-reply
// tokens are parsed into exactly one kind; anything unrecognized becomes
// EventAnswer so free-text replies still reach the question branch.
type EventKind string

const (
	EventStart          EventKind = "start"
	EventConfirm        EventKind = "confirm_complete"
	EventEdit           EventKind = "edit_answers"
	EventPause          EventKind = "pause"
	EventSkip           EventKind = "skip"
	EventSelectItem     EventKind = "select_item"
	EventTakePhoto      EventKind = "take_photo"
	EventContinueAnyway EventKind = "continue_anyway"
	EventAnswer         EventKind = "answer"
)

// Event is one parsed conversation input.
type Event struct {
	Kind  EventKind
	Value string
}

const selectPrefix = "select:"

// ParseToken maps a raw quick-reply token to an Event. Unknown tokens map to
// EventAnswer carrying the raw value.
func ParseToken(token string) Event {
	token = strings.TrimSpace(token)
	switch token {
	case "start":
		return Event{Kind: EventStart}
	case "confirm_complete":
		return Event{Kind: EventConfirm}
	case "edit_answers":
		return Event{Kind: EventEdit}
	case "pause":
		return Event{Kind: EventPause}
	case "skip":
		return Event{Kind: EventSkip}
	case "take_photo":
		return Event{Kind: EventTakePhoto}
	case "continue_anyway":
		return Event{Kind: EventContinueAnyway}
	}
	if strings.HasPrefix(token, selectPrefix) {
		return Event{Kind: EventSelectItem, Value: strings.TrimPrefix(token, selectPrefix)}
	}
	return Event{Kind: EventAnswer, Value: token}
}
