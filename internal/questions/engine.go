// Package questions walks one session's question tree: it validates answers,
// advances the traversal, and supports destructive back-navigation.
package questions

import (
	"fmt"

	"permitwise/internal/domain"
)

// Engine owns the traversal state for one session. Not safe for concurrent
// use; callers serialize access per session.
type Engine struct {
	project domain.ProjectType
	tree    []domain.Question
	byID    map[string]domain.Question
	answers *domain.AnswerSet
}

// Summary is the raw projection of a session's answers.
type Summary struct {
	ProjectType domain.ProjectType `json:"project_type"`
	Answers     map[string]any     `json:"answers"`
}

func New(project domain.ProjectType, tree []domain.Question) *Engine {
	byID := make(map[string]domain.Question, len(tree))
	for _, q := range tree {
		byID[q.ID] = q
	}
	return &Engine{
		project: project,
		tree:    tree,
		byID:    byID,
		answers: domain.NewAnswerSet(),
	}
}

func (e *Engine) Project() domain.ProjectType { return e.project }

// Answers exposes the session's answer set. Callers must not mutate it.
func (e *Engine) Answers() *domain.AnswerSet { return e.answers }

// visible reports whether a question applies given the current answers.
func (e *Engine) visible(q domain.Question) bool {
	if q.ShowIf == nil {
		return true
	}
	cond := q.ShowIf
	if !e.answers.Has(cond.Question) {
		return false
	}
	matches := func(want string) bool {
		if v, ok := e.answers.String(cond.Question); ok && v == want {
			return true
		}
		return e.answers.Contains(cond.Question, want)
	}
	if cond.Equals != "" {
		return matches(cond.Equals)
	}
	for _, want := range cond.AnyOf {
		if matches(want) {
			return true
		}
	}
	return false
}

// NextQuestion returns the next unanswered, applicable question in tree
// order, or nil when the tree is exhausted. Safe to call repeatedly.
func (e *Engine) NextQuestion() *domain.Question {
	for _, q := range e.tree {
		if e.answers.Has(q.ID) {
			continue
		}
		if !e.visible(q) {
			continue
		}
		out := q
		return &out
	}
	return nil
}

// Complete reports whether every applicable question has been answered.
func (e *Engine) Complete() bool { return e.NextQuestion() == nil }

// Progress returns the number of answered questions and the number of
// questions currently applicable.
func (e *Engine) Progress() (answered, total int) {
	for _, q := range e.tree {
		if e.answers.Has(q.ID) || e.visible(q) {
			total++
		}
		if e.answers.Has(q.ID) {
			answered++
		}
	}
	return answered, total
}

// ValidateAnswer checks a candidate answer without recording it. It returns
// a domain.ValidationError naming the offending field; it never panics on
// malformed input.
func (e *Engine) ValidateAnswer(questionID string, value any) error {
	_, err := e.normalize(questionID, value)
	return err
}

func (e *Engine) normalize(questionID string, value any) (any, error) {
	q, ok := e.byID[questionID]
	if !ok {
		return nil, domain.ValidationError{Field: "question_id", Message: fmt.Sprintf("unknown question %q for project %s", questionID, e.project)}
	}
	next := e.NextQuestion()
	atHead := next != nil && next.ID == questionID
	if !atHead && !e.answers.Has(questionID) {
		return nil, domain.ValidationError{Field: "question_id", Message: fmt.Sprintf("question %q is not the current question", questionID)}
	}

	if isEmpty(value) {
		if q.Required {
			return nil, domain.ValidationError{Field: questionID, Message: "answer is required"}
		}
		return emptyValue(q.Type), nil
	}

	switch q.Type {
	case domain.QuestionYesNo:
		switch v := value.(type) {
		case bool:
			if v {
				return "yes", nil
			}
			return "no", nil
		case string:
			if v == "yes" || v == "no" {
				return v, nil
			}
		}
		return nil, domain.ValidationError{Field: questionID, Message: "answer must be yes or no"}
	case domain.QuestionSelect:
		v, ok := value.(string)
		if !ok {
			return nil, domain.ValidationError{Field: questionID, Message: "answer must be a single option"}
		}
		if !optionAllowed(q.Options, v) {
			return nil, domain.ValidationError{Field: questionID, Message: fmt.Sprintf("%q is not an allowed option", v)}
		}
		return v, nil
	case domain.QuestionMultiSelect:
		vals, err := stringSlice(value)
		if err != nil || len(vals) == 0 {
			return nil, domain.ValidationError{Field: questionID, Message: "answer must be a non-empty list of options"}
		}
		for _, v := range vals {
			if !optionAllowed(q.Options, v) {
				return nil, domain.ValidationError{Field: questionID, Message: fmt.Sprintf("%q is not an allowed option", v)}
			}
		}
		return vals, nil
	case domain.QuestionNumber:
		n, ok := numeric(value)
		if !ok {
			return nil, domain.ValidationError{Field: questionID, Message: "answer must be a number"}
		}
		if q.Validation != nil {
			if q.Validation.Min != nil && n < *q.Validation.Min {
				return nil, domain.ValidationError{Field: questionID, Message: fmt.Sprintf("answer must be at least %v", *q.Validation.Min)}
			}
			if q.Validation.Max != nil && n > *q.Validation.Max {
				return nil, domain.ValidationError{Field: questionID, Message: fmt.Sprintf("answer must be at most %v", *q.Validation.Max)}
			}
		}
		return n, nil
	case domain.QuestionText:
		v, ok := value.(string)
		if !ok {
			return nil, domain.ValidationError{Field: questionID, Message: "answer must be text"}
		}
		return v, nil
	}
	return nil, domain.ValidationError{Field: questionID, Message: fmt.Sprintf("unsupported question type %q", q.Type)}
}

// AnswerQuestion records a validated answer and returns the next question,
// or nil when the tree is exhausted. Re-answering an earlier question
// truncates everything recorded after it, since later questions may depend
// on the rewound answer.
func (e *Engine) AnswerQuestion(questionID string, value any) (*domain.Question, error) {
	normalized, err := e.normalize(questionID, value)
	if err != nil {
		return nil, err
	}
	if e.answers.Has(questionID) {
		head := e.NextQuestion()
		if head == nil || head.ID != questionID {
			e.answers.TruncateFrom(questionID)
		}
	}
	e.answers.Set(questionID, normalized)
	return e.NextQuestion(), nil
}

// GoBack rewinds the traversal to questionID, discarding its answer and
// every answer recorded after it. Returns the question and its previous
// answer. This is a destructive rewind, not an undo stack.
func (e *Engine) GoBack(questionID string) (*domain.Question, any, error) {
	q, ok := e.byID[questionID]
	if !ok {
		return nil, nil, domain.ValidationError{Field: "question_id", Message: fmt.Sprintf("unknown question %q for project %s", questionID, e.project)}
	}
	prev, ok := e.answers.TruncateFrom(questionID)
	if !ok {
		return nil, nil, domain.ValidationError{Field: "question_id", Message: fmt.Sprintf("question %q has not been answered", questionID)}
	}
	return &q, prev, nil
}

// ReviewSummary returns the answered questions in answer order with
// display-formatted values.
func (e *Engine) ReviewSummary() []domain.SummaryEntry {
	var out []domain.SummaryEntry
	for _, id := range e.answers.Order() {
		v, _ := e.answers.Get(id)
		out = append(out, domain.SummaryEntry{
			QuestionID: id,
			Question:   e.byID[id].Text,
			Answer:     domain.FormatAnswer(v),
		})
	}
	return out
}

// Summary returns the project type with the raw answers map.
func (e *Engine) Summary() Summary {
	return Summary{ProjectType: e.project, Answers: e.answers.Map()}
}

func optionAllowed(opts []domain.Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}

func stringSlice(value any) ([]string, error) {
	switch vs := value.(type) {
	case []string:
		return vs, nil
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("non-string element")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("not a list")
}

func numeric(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

func emptyValue(t domain.QuestionType) any {
	if t == domain.QuestionMultiSelect {
		return []string{}
	}
	return ""
}
