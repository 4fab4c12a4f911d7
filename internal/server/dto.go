package server

import (
	"permitwise/internal/domain"
	"permitwise/internal/engine"
)

// Request payloads

type StartSessionRequest struct {
	ProjectType  string                     `json:"project_type" enum:"deck,fence,bathroom-remodel,kitchen-remodel,hvac-replacement,water-heater"`
	Jurisdiction domain.JurisdictionContext `json:"jurisdiction,omitempty"`
}

type AnswerRequest struct {
	QuestionID string `json:"question_id"`
	Value      any    `json:"value"`
}

type BackRequest struct {
	QuestionID string `json:"question_id"`
}

type ChecklistMessageRequest struct {
	Message string `json:"message"`
}

// Response payloads

type StepResponse struct {
	SessionID  string             `json:"session_id"`
	Question   *domain.Question   `json:"question,omitempty"`
	Answered   int                `json:"answered"`
	Total      int                `json:"total"`
	Completed  bool               `json:"completed"`
	Assessment *domain.Assessment `json:"assessment,omitempty"`
}

type BackResponse struct {
	StepResponse
	PreviousAnswer string `json:"previous_answer,omitempty"`
}

type ChecklistItemsResponse struct {
	SessionID string                 `json:"session_id"`
	Items     []domain.ChecklistItem `json:"items"`
}

type paginatedEvents struct {
	Items      []domain.Event `json:"items"`
	NextCursor int64          `json:"next_cursor,omitempty"`
}

func stepResponse(res engine.StepResult) StepResponse {
	return StepResponse{
		SessionID:  res.SessionID,
		Question:   res.Question,
		Answered:   res.Answered,
		Total:      res.Total,
		Completed:  res.Completed,
		Assessment: res.Assessment,
	}
}
