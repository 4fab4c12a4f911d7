package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ProjectType identifies the kind of renovation work a session is about.
type ProjectType string

const (
	ProjectDeck            ProjectType = "deck"
	ProjectFence           ProjectType = "fence"
	ProjectBathroomRemodel ProjectType = "bathroom-remodel"
	ProjectKitchenRemodel  ProjectType = "kitchen-remodel"
	ProjectHVACReplacement ProjectType = "hvac-replacement"
	ProjectWaterHeater     ProjectType = "water-heater"
)

type QuestionType string

const (
	QuestionYesNo       QuestionType = "yes-no"
	QuestionSelect      QuestionType = "select"
	QuestionMultiSelect QuestionType = "multi-select"
	QuestionNumber      QuestionType = "number"
	QuestionText        QuestionType = "text"
)

// Option is one selectable answer choice.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Validation constrains numeric answers.
type Validation struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// ShowIf gates a question on a previously given answer.
type ShowIf struct {
	Question string   `json:"question" yaml:"question"`
	Equals   string   `json:"equals,omitempty" yaml:"equals,omitempty"`
	AnyOf    []string `json:"any_of,omitempty" yaml:"any_of,omitempty"`
}

// Question is one immutable node of a project type's question tree.
type Question struct {
	ID         string       `json:"id" yaml:"id"`
	Text       string       `json:"text" yaml:"text"`
	Type       QuestionType `json:"type" yaml:"type" enum:"yes-no,select,multi-select,number,text"`
	Options    []Option     `json:"options,omitempty" yaml:"options,omitempty"`
	Required   bool         `json:"required" yaml:"required"`
	Validation *Validation  `json:"validation,omitempty" yaml:"validation,omitempty"`
	ShowIf     *ShowIf      `json:"show_if,omitempty" yaml:"show_if,omitempty"`
}

// PermitLevel is the ordinal permit complexity tier.
type PermitLevel int

const (
	PermitNone     PermitLevel = 0
	PermitExpress  PermitLevel = 1
	PermitStandard PermitLevel = 2
	PermitComplex  PermitLevel = 3
)

func (l PermitLevel) String() string {
	switch l {
	case PermitNone:
		return "none"
	case PermitExpress:
		return "express"
	case PermitStandard:
		return "standard"
	case PermitComplex:
		return "complex"
	}
	return fmt.Sprintf("permit-level-%d", int(l))
}

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// CostRange is a configured price bracket. Min==Max means a fixed price.
type CostRange struct {
	Min     float64  `json:"min" yaml:"min"`
	Max     float64  `json:"max" yaml:"max"`
	Typical *float64 `json:"typical,omitempty" yaml:"typical,omitempty"`
}

// EngineeringVerdict is the outcome of rule evaluation for one answer set.
type EngineeringVerdict struct {
	Required        bool       `json:"required"`
	Reason          string     `json:"reason,omitempty"`
	Confidence      Confidence `json:"confidence" enum:"low,medium,high"`
	EngineeringType string     `json:"engineering_type,omitempty"`
	CostKey         string     `json:"cost_key,omitempty"`
	Cost            *CostRange `json:"cost,omitempty"`
	Requirements    []string   `json:"requirements,omitempty"`
	Notes           []string   `json:"notes,omitempty"`
}

// JurisdictionContext is the resolved location for a session. Supplied by an
// external lookup; the engine never mutates it.
type JurisdictionContext struct {
	State            string `json:"state"`
	StateShort       string `json:"state_short,omitempty"`
	County           string `json:"county,omitempty"`
	City             string `json:"city,omitempty"`
	LikelyCityLimits bool   `json:"likely_city_limits,omitempty"`
}

// CostEstimate is an aggregated dollar range.
type CostEstimate struct {
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	Typical   *float64 `json:"typical,omitempty"`
	Formatted string   `json:"formatted"`
}

// TimelineEstimate is an aggregated duration.
type TimelineEstimate struct {
	Days      int    `json:"days"`
	Weeks     int    `json:"weeks"`
	Formatted string `json:"formatted"`
}

type ItemStatus string

const (
	ItemPending  ItemStatus = "PENDING"
	ItemActive   ItemStatus = "ACTIVE"
	ItemComplete ItemStatus = "COMPLETE"
)

// ChecklistItem is one documentation requirement in the permit package phase.
type ChecklistItem struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"session_id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      ItemStatus        `json:"status" enum:"PENDING,ACTIVE,COMPLETE"`
	Answers     map[string]string `json:"answers,omitempty"`
	UpdatedAt   string            `json:"updated_at,omitempty" format:"date-time"`
}

// ValidationError reports a rejected input naming the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// AnswerSet is the insertion-ordered answers of one session. Yes/no answers
// are stored as the strings "yes"/"no", numbers as float64, multi-selects as
// []string.
type AnswerSet struct {
	order  []string
	values map[string]any
}

func NewAnswerSet() *AnswerSet {
	return &AnswerSet{values: make(map[string]any)}
}

func (s *AnswerSet) Len() int { return len(s.order) }

// Order returns the question ids in the order they were answered.
func (s *AnswerSet) Order() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *AnswerSet) Set(questionID string, value any) {
	if _, ok := s.values[questionID]; !ok {
		s.order = append(s.order, questionID)
	}
	s.values[questionID] = value
}

func (s *AnswerSet) Get(questionID string) (any, bool) {
	v, ok := s.values[questionID]
	return v, ok
}

func (s *AnswerSet) Has(questionID string) bool {
	_, ok := s.values[questionID]
	return ok
}

// Bool reports whether a yes/no question was answered yes. A missing answer
// counts as no.
func (s *AnswerSet) Bool(questionID string) bool {
	v, ok := s.values[questionID]
	if !ok {
		return false
	}
	sv, ok := v.(string)
	if !ok {
		return false
	}
	return sv == "yes" || sv == "true"
}

func (s *AnswerSet) Number(questionID string) (float64, bool) {
	v, ok := s.values[questionID]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func (s *AnswerSet) String(questionID string) (string, bool) {
	v, ok := s.values[questionID]
	if !ok {
		return "", false
	}
	sv, ok := v.(string)
	return sv, ok
}

func (s *AnswerSet) Strings(questionID string) []string {
	v, ok := s.values[questionID]
	if !ok {
		return nil
	}
	switch vs := v.(type) {
	case []string:
		return vs
	case string:
		return []string{vs}
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Contains reports whether a multi-select answer includes option.
func (s *AnswerSet) Contains(questionID, option string) bool {
	for _, v := range s.Strings(questionID) {
		if v == option {
			return true
		}
	}
	return false
}

// OnlyContains reports whether a multi-select answer is exactly {option}.
func (s *AnswerSet) OnlyContains(questionID, option string) bool {
	vals := s.Strings(questionID)
	return len(vals) == 1 && vals[0] == option
}

// TruncateFrom discards questionID's answer and every answer recorded after
// it, returning the discarded value. Reports false when questionID was never
// answered.
func (s *AnswerSet) TruncateFrom(questionID string) (any, bool) {
	idx := -1
	for i, id := range s.order {
		if id == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	prev := s.values[questionID]
	for _, id := range s.order[idx:] {
		delete(s.values, id)
	}
	s.order = s.order[:idx]
	return prev, true
}

// Serialized renders the answers to a lowercased searchable string for
// keyword scanning. Negative and empty answers are omitted so a question id
// alone (e.g. retaining=no) cannot satisfy a keyword.
func (s *AnswerSet) Serialized() string {
	parts := make([]string, 0, len(s.order))
	for _, id := range s.order {
		v := formatAnswer(s.values[id])
		if v == "" || v == "no" {
			continue
		}
		parts = append(parts, id+"="+v)
	}
	return strings.ToLower(strings.Join(parts, ";"))
}

// Map returns a copy of the answers keyed by question id.
func (s *AnswerSet) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy preserving insertion order.
func (s *AnswerSet) Clone() *AnswerSet {
	c := NewAnswerSet()
	for _, id := range s.order {
		c.Set(id, s.values[id])
	}
	return c
}

func formatAnswer(v any) string {
	switch av := v.(type) {
	case string:
		return av
	case float64:
		return strconv.FormatFloat(av, 'f', -1, 64)
	case []string:
		sorted := make([]string, len(av))
		copy(sorted, av)
		sort.Strings(sorted)
		return strings.Join(sorted, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatAnswer renders any answer value for display.
func FormatAnswer(v any) string { return formatAnswer(v) }
