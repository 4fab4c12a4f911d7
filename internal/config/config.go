package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"permitwise/internal/domain"
)

// Config models permitwise.yml: question trees, rule sets, fee and timeline
// tables, checklist templates. Loaded once at startup and treated as
// read-only afterwards.
type Config struct {
	Session         SessionConfig                 `yaml:"session"`
	Questions       map[string][]domain.Question  `yaml:"questions"`
	Rules           RulesConfig                   `yaml:"rules"`
	Fees            map[string]domain.CostRange   `yaml:"fees"`
	ReviewTimelines map[string]int                `yaml:"review_timelines"`
	Checklist       []ChecklistTemplate           `yaml:"checklist"`
	Webhooks        []WebhookConfig               `yaml:"webhooks"`
}

type SessionConfig struct {
	TTLMinutes   int `yaml:"ttl_minutes"`
	SweepMinutes int `yaml:"sweep_minutes"`
}

// RulesConfig is the layered engineering rule table.
type RulesConfig struct {
	GlobalTriggers []string              `yaml:"global_triggers"`
	States         map[string]StateRules `yaml:"states"`
}

// StateRules holds one state's per-project rules plus county notes.
type StateRules struct {
	Projects    map[string]ProjectRules `yaml:"projects"`
	CountyNotes map[string]string       `yaml:"county_notes"`
}

// ProjectRules is the rule record for one project type within a state.
type ProjectRules struct {
	AlwaysRequired bool                        `yaml:"always_required"`
	Reason         string                      `yaml:"reason,omitempty"`
	Cost           *domain.CostRange           `yaml:"cost,omitempty"`
	Requirements   []string                    `yaml:"requirements,omitempty"`
	Predicates     []PredicateRule             `yaml:"predicates,omitempty"`
	Triggers       []TriggerRule               `yaml:"triggers,omitempty"`
	CostTable      map[string]domain.CostRange `yaml:"cost_table,omitempty"`
}

// Condition is one data-driven check against an answer. All set fields must
// hold for the condition to match; a missing answer never matches.
type Condition struct {
	Question string   `yaml:"question"`
	Equals   string   `yaml:"equals,omitempty"`
	In       []string `yaml:"in,omitempty"`
	Contains string   `yaml:"contains,omitempty"`
	GT       *float64 `yaml:"gt,omitempty"`
	GTE      *float64 `yaml:"gte,omitempty"`
	LT       *float64 `yaml:"lt,omitempty"`
}

// PredicateRule is an ordered structured rule; the first satisfied predicate
// wins and carries its own confidence.
type PredicateRule struct {
	Reason          string      `yaml:"reason"`
	When            []Condition `yaml:"when"`
	Confidence      string      `yaml:"confidence,omitempty"`
	EngineeringType string      `yaml:"engineering_type,omitempty"`
	CostKey         string      `yaml:"cost_key,omitempty"`
	Requirements    []string    `yaml:"requirements,omitempty"`
}

// TriggerRule is a discrete named condition mapped to its own cost bracket.
type TriggerRule struct {
	When            Condition `yaml:"when"`
	Reason          string    `yaml:"reason"`
	Confidence      string    `yaml:"confidence,omitempty"`
	EngineeringType string    `yaml:"engineering_type,omitempty"`
	CostKey         string    `yaml:"cost_key"`
	Requirements    []string  `yaml:"requirements,omitempty"`
}

// ChecklistTemplate seeds one checklist item for new sessions.
type ChecklistTemplate struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description,omitempty"`
	PhotoOnly   bool           `yaml:"photo_only,omitempty"`
	Questions   []ItemQuestion `yaml:"questions,omitempty"`
}

// ItemQuestion is one prompt inside a checklist item's walkthrough.
type ItemQuestion struct {
	ID           string            `yaml:"id"`
	Prompt       string            `yaml:"prompt"`
	QuickReplies []QuickReply      `yaml:"quick_replies,omitempty"`
	FollowUps    map[string]string `yaml:"follow_ups,omitempty"`
}

type QuickReply struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events,omitempty"`
	Secret         string   `yaml:"secret,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
}

// Load reads and validates config from workspace, falling back to the
// built-in dataset when no file exists.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "permitwise.yml")
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

func (c *Config) applyDefaults() {
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 60
	}
	if c.Session.SweepMinutes == 0 {
		c.Session.SweepMinutes = 5
	}
}

var permitLevelNames = []string{"none", "express", "standard", "complex"}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("config.questions is required")
	}
	for project, qs := range c.Questions {
		if project == "" {
			return fmt.Errorf("config.questions contains empty project type")
		}
		seen := map[string]bool{}
		for i, q := range qs {
			if q.ID == "" {
				return fmt.Errorf("questions.%s[%d].id is required", project, i)
			}
			if seen[q.ID] {
				return fmt.Errorf("questions.%s has duplicate id %s", project, q.ID)
			}
			seen[q.ID] = true
			if q.Text == "" {
				return fmt.Errorf("questions.%s.%s.text is required", project, q.ID)
			}
			switch q.Type {
			case domain.QuestionYesNo, domain.QuestionNumber, domain.QuestionText:
			case domain.QuestionSelect, domain.QuestionMultiSelect:
				if len(q.Options) == 0 {
					return fmt.Errorf("questions.%s.%s requires options", project, q.ID)
				}
			default:
				return fmt.Errorf("questions.%s.%s has unknown type %q", project, q.ID, q.Type)
			}
			if q.Validation != nil && q.Validation.Min != nil && q.Validation.Max != nil &&
				*q.Validation.Min > *q.Validation.Max {
				return fmt.Errorf("questions.%s.%s validation min exceeds max", project, q.ID)
			}
			if q.ShowIf != nil {
				if !seen[q.ShowIf.Question] {
					return fmt.Errorf("questions.%s.%s show_if references %q which is not an earlier question", project, q.ID, q.ShowIf.Question)
				}
			}
		}
	}
	for state, sr := range c.Rules.States {
		if state == "" {
			return fmt.Errorf("rules.states contains empty state key")
		}
		for project, pr := range sr.Projects {
			for i, p := range pr.Predicates {
				if len(p.When) == 0 {
					return fmt.Errorf("rules.states.%s.%s.predicates[%d] has no conditions", state, project, i)
				}
				if p.Reason == "" {
					return fmt.Errorf("rules.states.%s.%s.predicates[%d] missing reason", state, project, i)
				}
			}
			for i, t := range pr.Triggers {
				if t.When.Question == "" {
					return fmt.Errorf("rules.states.%s.%s.triggers[%d] missing question", state, project, i)
				}
				if t.CostKey == "" {
					return fmt.Errorf("rules.states.%s.%s.triggers[%d] missing cost_key", state, project, i)
				}
			}
		}
	}
	for level, fee := range c.Fees {
		if !validPermitLevel(level) {
			return fmt.Errorf("fees has unknown permit level %q", level)
		}
		if fee.Min < 0 || fee.Max < fee.Min {
			return fmt.Errorf("fees.%s range is invalid", level)
		}
	}
	for level, days := range c.ReviewTimelines {
		if !validPermitLevel(level) {
			return fmt.Errorf("review_timelines has unknown permit level %q", level)
		}
		if days < 0 {
			return fmt.Errorf("review_timelines.%s is negative", level)
		}
	}
	seenItems := map[string]bool{}
	for i, item := range c.Checklist {
		if item.ID == "" {
			return fmt.Errorf("checklist[%d].id is required", i)
		}
		if seenItems[item.ID] {
			return fmt.Errorf("checklist has duplicate id %s", item.ID)
		}
		seenItems[item.ID] = true
		if item.Title == "" {
			return fmt.Errorf("checklist.%s.title is required", item.ID)
		}
		for j, q := range item.Questions {
			if q.ID == "" || q.Prompt == "" {
				return fmt.Errorf("checklist.%s.questions[%d] needs id and prompt", item.ID, j)
			}
			for _, r := range q.QuickReplies {
				if r.Value == "" {
					return fmt.Errorf("checklist.%s.%s has quick reply with empty value", item.ID, q.ID)
				}
			}
		}
	}
	return nil
}

func validPermitLevel(name string) bool {
	for _, n := range permitLevelNames {
		if n == name {
			return true
		}
	}
	return false
}

// QuestionsFor returns the question tree for a project type.
func (c *Config) QuestionsFor(project domain.ProjectType) []domain.Question {
	return c.Questions[string(project)]
}

// StateRulesFor resolves a state's rule table by short code or full name.
func (c *Config) StateRulesFor(j domain.JurisdictionContext) (StateRules, bool) {
	if sr, ok := c.Rules.States[j.StateShort]; ok {
		return sr, true
	}
	sr, ok := c.Rules.States[j.State]
	return sr, ok
}

// FeeFor returns the permit fee bracket for a level, if configured.
func (c *Config) FeeFor(level domain.PermitLevel) (domain.CostRange, bool) {
	fee, ok := c.Fees[level.String()]
	return fee, ok
}

// ReviewDaysFor returns the plan-review duration in days for a level.
func (c *Config) ReviewDaysFor(level domain.PermitLevel) int {
	return c.ReviewTimelines[level.String()]
}
