// Package engine ties the decision pipeline together: it owns the session
// store, runs the question tree, and on completion computes the permit
// assessment and persists it with an audit event.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"permitwise/internal/classify"
	"permitwise/internal/config"
	"permitwise/internal/domain"
	"permitwise/internal/estimate"
	"permitwise/internal/events"
	"permitwise/internal/flow"
	"permitwise/internal/questions"
	"permitwise/internal/repo"
	"permitwise/internal/rules"
	"permitwise/internal/session"
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Config   *config.Config
	Sessions *session.Store
	Rules    rules.Evaluator
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	ttl := time.Duration(cfg.Session.TTLMinutes) * time.Minute
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Events:   events.Writer{DB: db},
		Config:   cfg,
		Sessions: session.NewStore(ttl),
		Rules:    rules.New(cfg),
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// SweepInterval is the configured session sweep cadence.
func (e Engine) SweepInterval() time.Duration {
	return time.Duration(e.Config.Session.SweepMinutes) * time.Minute
}

// StepResult is the conversation state after starting a session or answering
// a question.
type StepResult struct {
	SessionID string           `json:"session_id"`
	Question  *domain.Question `json:"question,omitempty"`
	Answered  int              `json:"answered"`
	Total     int              `json:"total"`
	Completed bool             `json:"completed"`
	// Assessment is set once the questionnaire is complete.
	Assessment *domain.Assessment `json:"assessment,omitempty"`
}

// Start opens a new session for a project type in a jurisdiction and returns
// the first question.
func (e Engine) Start(ctx context.Context, projectType string, j domain.JurisdictionContext) (StepResult, error) {
	pt := domain.ProjectType(projectType)
	tree, ok := e.Config.Questions[projectType]
	if !ok {
		return StepResult{}, domain.ValidationError{Field: "project_type", Message: "unknown project type " + projectType}
	}
	id := uuid.New().String()
	s := &session.Session{
		ID:           id,
		ProjectType:  pt,
		Jurisdiction: j,
		Questions:    questions.New(pt, tree),
		Checklist:    flow.NewController(id, e.Config.Checklist),
	}
	e.Sessions.Put(s)

	if err := e.persistChecklist(ctx, s); err != nil {
		return StepResult{}, err
	}
	if err := e.Events.Append(ctx, nil, "session.started", s.ID, "session", s.ID, events.EventPayload{
		"project_type": projectType,
		"state":        j.State,
		"county":       j.County,
	}); err != nil {
		return StepResult{}, err
	}
	// A project type configured without questions completes on the spot.
	if s.Questions.Complete() {
		if err := e.finalize(ctx, s); err != nil {
			return StepResult{}, err
		}
	}
	return e.stepResult(s), nil
}

// Answer records one answer and returns the next question, or the completed
// assessment when the tree is exhausted.
func (e Engine) Answer(ctx context.Context, sessionID, questionID string, value any) (StepResult, error) {
	s, err := e.Sessions.Get(sessionID)
	if err != nil {
		return StepResult{}, err
	}
	s.Lock()
	defer s.Unlock()

	if _, err := s.Questions.AnswerQuestion(questionID, value); err != nil {
		return StepResult{}, err
	}
	// re-answering an earlier question discards any computed result
	s.Result = nil

	stored, _ := s.Questions.Answers().Get(questionID)
	if err := e.Events.Append(ctx, nil, "question.answered", s.ID, "question", questionID, events.EventPayload{
		"value": domain.FormatAnswer(stored),
	}); err != nil {
		return StepResult{}, err
	}
	if s.Questions.Complete() {
		if err := e.finalize(ctx, s); err != nil {
			return StepResult{}, err
		}
	}
	return e.stepResult(s), nil
}

// Back reopens a previously answered question, discarding it and everything
// after it. The previous answer is returned for display.
func (e Engine) Back(ctx context.Context, sessionID, questionID string) (StepResult, string, error) {
	s, err := e.Sessions.Get(sessionID)
	if err != nil {
		return StepResult{}, "", err
	}
	s.Lock()
	defer s.Unlock()

	_, prev, err := s.Questions.GoBack(questionID)
	if err != nil {
		return StepResult{}, "", err
	}
	s.Result = nil
	if err := e.Events.Append(ctx, nil, "session.rewound", s.ID, "question", questionID, nil); err != nil {
		return StepResult{}, "", err
	}
	return e.stepResult(s), domain.FormatAnswer(prev), nil
}

// ReviewResult is the session's answers so far plus the assessment when the
// questionnaire is complete.
type ReviewResult struct {
	SessionID  string                `json:"session_id"`
	Summary    []domain.SummaryEntry `json:"summary"`
	Answered   int                   `json:"answered"`
	Total      int                   `json:"total"`
	Completed  bool                  `json:"completed"`
	Assessment *domain.Assessment    `json:"assessment,omitempty"`
}

func (e Engine) Review(ctx context.Context, sessionID string) (ReviewResult, error) {
	s, err := e.Sessions.Get(sessionID)
	if err != nil {
		return ReviewResult{}, err
	}
	s.Lock()
	defer s.Unlock()
	answered, total := s.Questions.Progress()
	return ReviewResult{
		SessionID:  s.ID,
		Summary:    s.Questions.ReviewSummary(),
		Answered:   answered,
		Total:      total,
		Completed:  s.Questions.Complete(),
		Assessment: s.Result,
	}, nil
}

// ChecklistResult is one conversation turn of the checklist walkthrough.
type ChecklistResult struct {
	SessionID string                 `json:"session_id"`
	Reply     flow.Reply             `json:"reply"`
	Phase     flow.Phase             `json:"phase"`
	Items     []domain.ChecklistItem `json:"items"`
}

// ChecklistMessage feeds one raw conversation token through the session's
// checklist controller, persisting any item that the turn completed.
func (e Engine) ChecklistMessage(ctx context.Context, sessionID, token string) (ChecklistResult, error) {
	s, err := e.Sessions.Get(sessionID)
	if err != nil {
		return ChecklistResult{}, err
	}
	s.Lock()
	defer s.Unlock()

	reply := s.Checklist.Handle(flow.ParseToken(token))
	if reply.CompletedItem != nil {
		item := *reply.CompletedItem
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return ChecklistResult{}, err
		}
		defer tx.Rollback()
		if err := e.Repo.UpsertChecklistItem(ctx, tx, repo.StoredItem{
			SessionID:   s.ID,
			ItemID:      item.ID,
			Title:       item.Title,
			Description: item.Description,
			Status:      item.Status,
			Answers:     item.Answers,
			UpdatedAt:   e.now().UTC().Format(time.RFC3339),
		}); err != nil {
			return ChecklistResult{}, err
		}
		if err := e.Events.Append(ctx, tx, "checklist.item.completed", s.ID, "checklist_item", item.ID, events.EventPayload{
			"title": item.Title,
		}); err != nil {
			return ChecklistResult{}, err
		}
		if err := tx.Commit(); err != nil {
			return ChecklistResult{}, err
		}
	}
	return ChecklistResult{
		SessionID: s.ID,
		Reply:     reply,
		Phase:     s.Checklist.Phase(),
		Items:     s.Checklist.Items(),
	}, nil
}

// Checklist returns the session's checklist items in template order.
func (e Engine) Checklist(ctx context.Context, sessionID string) ([]domain.ChecklistItem, error) {
	s, err := e.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.Lock()
	defer s.Unlock()
	return s.Checklist.Items(), nil
}

// Assessment loads the stored result for a completed session, falling back to
// the database when the in-memory session has expired.
func (e Engine) Assessment(ctx context.Context, sessionID string) (domain.Assessment, error) {
	s, err := e.Sessions.Get(sessionID)
	if err == nil {
		s.Lock()
		result := s.Result
		s.Unlock()
		if result != nil {
			return *result, nil
		}
	} else if !errors.Is(err, session.ErrNotFound) {
		return domain.Assessment{}, err
	}
	stored, err := e.Repo.GetAssessment(ctx, sessionID)
	if err != nil {
		return domain.Assessment{}, err
	}
	return stored.Result, nil
}

// finalize computes the full assessment from the final answer set. Always a
// full recomputation; nothing is carried over from earlier passes.
func (e Engine) finalize(ctx context.Context, s *session.Session) error {
	answers := s.Questions.Answers()
	decision := classify.Classify(s.ProjectType, answers)
	verdict := e.Rules.Evaluate(s.ProjectType, answers, s.Jurisdiction)

	engCost := rules.CostProjection(verdict)
	engTimeline := rules.TimelineProjection(verdict)

	feeRange, _ := e.Config.FeeFor(decision.Level)
	fee := estimate.FromRange(feeRange)
	reviewDays := e.Config.ReviewDaysFor(decision.Level)

	a := &domain.Assessment{
		ProjectType:         s.ProjectType,
		Jurisdiction:        s.Jurisdiction,
		PermitLevel:         decision.Level,
		PermitLabel:         decision.Label,
		PermitReason:        decision.Reason,
		Engineering:         verdict,
		EngineeringCost:     engCost,
		EngineeringTimeline: engTimeline,
		PermitFee:           fee,
		TotalCost:           estimate.TotalCost(&fee, engCost),
		ReviewTimeline:      estimate.ReviewTimeline(reviewDays),
		TotalTimeline:       estimate.TotalTimeline(reviewDays, engTimeline.Weeks),
		ReviewSummary:       s.Questions.ReviewSummary(),
	}
	s.Result = a

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAssessment(ctx, tx, repo.StoredAssessment{
		SessionID:           s.ID,
		ProjectType:         string(s.ProjectType),
		State:               s.Jurisdiction.State,
		County:              s.Jurisdiction.County,
		PermitLevel:         int(decision.Level),
		EngineeringRequired: verdict.Required,
		Result:              *a,
		CreatedAt:           e.now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "session.completed", s.ID, "session", s.ID, events.EventPayload{
		"permit_level":         decision.Label,
		"engineering_required": verdict.Required,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) persistChecklist(ctx context.Context, s *session.Session) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	for _, item := range s.Checklist.Items() {
		if err := e.Repo.UpsertChecklistItem(ctx, tx, repo.StoredItem{
			SessionID:   s.ID,
			ItemID:      item.ID,
			Title:       item.Title,
			Description: item.Description,
			Status:      item.Status,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (e Engine) stepResult(s *session.Session) StepResult {
	answered, total := s.Questions.Progress()
	return StepResult{
		SessionID:  s.ID,
		Question:   s.Questions.NextQuestion(),
		Answered:   answered,
		Total:      total,
		Completed:  s.Questions.Complete(),
		Assessment: s.Result,
	}
}
