package domain

// SummaryEntry is one answered question for review display.
type SummaryEntry struct {
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// EngineeringTimeline is the projected duration of the engineering work.
type EngineeringTimeline struct {
	Weeks       int    `json:"weeks"`
	Description string `json:"description,omitempty"`
}

// Assessment is the terminal result of a completed questionnaire: the permit
// tier, the engineering verdict, and the aggregated cost and timeline
// estimates. Always recomputed in full from the final answer set.
type Assessment struct {
	ProjectType  ProjectType         `json:"project_type"`
	Jurisdiction JurisdictionContext `json:"jurisdiction"`

	PermitLevel  PermitLevel `json:"permit_level"`
	PermitLabel  string      `json:"permit_label" enum:"none,express,standard,complex"`
	PermitReason string      `json:"permit_reason"`

	Engineering         EngineeringVerdict  `json:"engineering"`
	EngineeringCost     *CostEstimate       `json:"engineering_cost,omitempty"`
	EngineeringTimeline EngineeringTimeline `json:"engineering_timeline"`

	PermitFee      CostEstimate     `json:"permit_fee"`
	TotalCost      CostEstimate     `json:"total_cost"`
	ReviewTimeline TimelineEstimate `json:"review_timeline"`
	TotalTimeline  TimelineEstimate `json:"total_timeline"`

	ReviewSummary []SummaryEntry `json:"review_summary"`
}
