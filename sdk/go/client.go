package permitwisesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Permitwise HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Jurisdiction locates a session for rule selection.
type Jurisdiction struct {
	State            string `json:"state,omitempty"`
	StateShort       string `json:"state_short,omitempty"`
	County           string `json:"county,omitempty"`
	City             string `json:"city,omitempty"`
	LikelyCityLimits bool   `json:"likely_city_limits,omitempty"`
}

// Question is the node the server wants answered next (partial).
type Question struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Options  []struct {
		Value string `json:"value"`
		Label string `json:"label,omitempty"`
	} `json:"options,omitempty"`
}

// Step is the conversation state after starting or answering.
type Step struct {
	SessionID  string          `json:"session_id"`
	Question   *Question       `json:"question,omitempty"`
	Answered   int             `json:"answered"`
	Total      int             `json:"total"`
	Completed  bool            `json:"completed"`
	Assessment json.RawMessage `json:"assessment,omitempty"`
}

// BackStep is a Step plus the answer the rewind discarded.
type BackStep struct {
	Step
	PreviousAnswer string `json:"previous_answer"`
}

// SummaryEntry is one answered question in a review.
type SummaryEntry struct {
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// Review is the full answered-so-far state of a session.
type Review struct {
	SessionID  string          `json:"session_id"`
	Summary    []SummaryEntry  `json:"summary"`
	Answered   int             `json:"answered"`
	Total      int             `json:"total"`
	Completed  bool            `json:"completed"`
	Assessment json.RawMessage `json:"assessment,omitempty"`
}

// Assessment is the decision result (partial).
type Assessment struct {
	ProjectType  string `json:"project_type"`
	PermitLevel  int    `json:"permit_level"`
	PermitLabel  string `json:"permit_label"`
	PermitReason string `json:"permit_reason"`
	Engineering  struct {
		Required   bool   `json:"required"`
		Reason     string `json:"reason,omitempty"`
		Confidence string `json:"confidence"`
	} `json:"engineering"`
	TotalCost struct {
		Min       float64 `json:"min"`
		Max       float64 `json:"max"`
		Formatted string  `json:"formatted"`
	} `json:"total_cost"`
	TotalTimeline struct {
		Days      int    `json:"days"`
		Weeks     int    `json:"weeks"`
		Formatted string `json:"formatted"`
	} `json:"total_timeline"`
}

// ChecklistItem is one documentation requirement.
type ChecklistItem struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"session_id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	Answers     map[string]string `json:"answers,omitempty"`
}

// ChecklistReply is the next conversation turn.
type ChecklistReply struct {
	SessionID string `json:"session_id"`
	Reply     struct {
		Message      string `json:"message"`
		QuickReplies []struct {
			Label string `json:"label"`
			Value string `json:"value"`
		} `json:"quick_replies,omitempty"`
		CompletedItem *ChecklistItem `json:"completed_item,omitempty"`
		Done          bool           `json:"done,omitempty"`
	} `json:"reply"`
	Phase string          `json:"phase"`
	Items []ChecklistItem `json:"items"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Payload    string `json:"payload"`
}

// PaginatedEvents wraps event listings with a cursor.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor int64   `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// StartSession opens a questionnaire for a project type.
func (c *Client) StartSession(ctx context.Context, projectType string, j Jurisdiction) (Step, error) {
	body := map[string]any{
		"project_type": projectType,
		"jurisdiction": j,
	}
	var resp Step
	err := c.do(ctx, http.MethodPost, "v0/sessions", body, &resp)
	return resp, err
}

// Answer submits an answer for the named question.
func (c *Client) Answer(ctx context.Context, sessionID, questionID string, value any) (Step, error) {
	body := map[string]any{
		"question_id": questionID,
		"value":       value,
	}
	var resp Step
	err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "answers"), body, &resp)
	return resp, err
}

// Back rewinds to an earlier question, discarding it and everything after.
func (c *Client) Back(ctx context.Context, sessionID, questionID string) (BackStep, error) {
	body := map[string]any{"question_id": questionID}
	var resp BackStep
	err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "back"), body, &resp)
	return resp, err
}

// Review returns everything answered so far.
func (c *Client) Review(ctx context.Context, sessionID string) (Review, error) {
	var resp Review
	err := c.do(ctx, http.MethodGet, c.sessionPath(sessionID, "review"), nil, &resp)
	return resp, err
}

// Assessment fetches the stored decision result for a completed session.
func (c *Client) Assessment(ctx context.Context, sessionID string) (Assessment, error) {
	var resp Assessment
	err := c.do(ctx, http.MethodGet, c.sessionPath(sessionID, "assessment"), nil, &resp)
	return resp, err
}

// Checklist returns the session's checklist items.
func (c *Client) Checklist(ctx context.Context, sessionID string) ([]ChecklistItem, error) {
	var resp struct {
		Items []ChecklistItem `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, c.sessionPath(sessionID, "checklist"), nil, &resp)
	return resp.Items, err
}

// SendChecklistMessage feeds one conversation token through the walkthrough.
func (c *Client) SendChecklistMessage(ctx context.Context, sessionID, message string) (ChecklistReply, error) {
	body := map[string]any{"message": message}
	var resp ChecklistReply
	err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "checklist/messages"), body, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, 0)
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor int64) (PaginatedEvents, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%d", endpoint, sep, cursor)
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) sessionPath(sessionID, p string) string {
	return fmt.Sprintf("v0/sessions/%s/%s", url.PathEscape(sessionID), strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
