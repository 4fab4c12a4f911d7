package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"permitwise/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// StoredItem is a checklist item row with its drafted answers decoded.
type StoredItem struct {
	SessionID   string            `json:"session_id"`
	ItemID      string            `json:"item_id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      domain.ItemStatus `json:"status"`
	Answers     map[string]string `json:"answers,omitempty"`
	UpdatedAt   string            `json:"updated_at"`
}

func (r Repo) UpsertChecklistItem(ctx context.Context, tx *sql.Tx, it StoredItem) error {
	payload, err := json.Marshal(it.Answers)
	if err != nil {
		return err
	}
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err = exec(ctx, `INSERT INTO checklist_items(session_id,item_id,title,description,status,answers_json,updated_at) VALUES (?,?,?,?,?,?,?)
ON CONFLICT(session_id,item_id) DO UPDATE SET title=excluded.title, description=excluded.description, status=excluded.status, answers_json=excluded.answers_json, updated_at=excluded.updated_at`,
		it.SessionID, it.ItemID, it.Title, nullable(it.Description), string(it.Status), string(payload), it.UpdatedAt)
	return err
}

func scanItem(scan func(dest ...any) error) (StoredItem, error) {
	var it StoredItem
	var desc, answers sql.NullString
	var status string
	if err := scan(&it.SessionID, &it.ItemID, &it.Title, &desc, &status, &answers, &it.UpdatedAt); err != nil {
		return it, err
	}
	it.Status = domain.ItemStatus(status)
	if desc.Valid {
		it.Description = desc.String
	}
	if answers.Valid && answers.String != "" && answers.String != "null" {
		if err := json.Unmarshal([]byte(answers.String), &it.Answers); err != nil {
			return it, fmt.Errorf("decode answers for %s/%s: %w", it.SessionID, it.ItemID, err)
		}
	}
	return it, nil
}

func (r Repo) GetChecklistItem(ctx context.Context, sessionID, itemID string) (StoredItem, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT session_id,item_id,title,description,status,answers_json,updated_at FROM checklist_items WHERE session_id=? AND item_id=?`, sessionID, itemID)
	it, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	return it, err
}

func (r Repo) ListChecklistItems(ctx context.Context, sessionID string) ([]StoredItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT session_id,item_id,title,description,status,answers_json,updated_at FROM checklist_items WHERE session_id=? ORDER BY item_id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []StoredItem
	for rows.Next() {
		it, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, rows.Err()
}

// StoredAssessment is a persisted decision result for a completed session.
type StoredAssessment struct {
	SessionID           string
	ProjectType         string
	State               string
	County              string
	PermitLevel         int
	EngineeringRequired bool
	Result              domain.Assessment
	CreatedAt           string
}

func (r Repo) InsertAssessment(ctx context.Context, tx *sql.Tx, a StoredAssessment) error {
	payload, err := json.Marshal(a.Result)
	if err != nil {
		return err
	}
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err = exec(ctx, `INSERT INTO assessments(session_id,project_type,state,county,permit_level,engineering_required,result_json,created_at) VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(session_id) DO UPDATE SET project_type=excluded.project_type, state=excluded.state, county=excluded.county, permit_level=excluded.permit_level, engineering_required=excluded.engineering_required, result_json=excluded.result_json, created_at=excluded.created_at`,
		a.SessionID, a.ProjectType, nullable(a.State), nullable(a.County), a.PermitLevel, boolInt(a.EngineeringRequired), string(payload), a.CreatedAt)
	return err
}

func (r Repo) GetAssessment(ctx context.Context, sessionID string) (StoredAssessment, error) {
	var a StoredAssessment
	var state, county sql.NullString
	var engineering int
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT session_id,project_type,state,county,permit_level,engineering_required,result_json,created_at FROM assessments WHERE session_id=?`, sessionID).
		Scan(&a.SessionID, &a.ProjectType, &state, &county, &a.PermitLevel, &engineering, &payload, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if state.Valid {
		a.State = state.String
	}
	if county.Valid {
		a.County = county.String
	}
	a.EngineeringRequired = engineering != 0
	if err := json.Unmarshal([]byte(payload), &a.Result); err != nil {
		return a, fmt.Errorf("decode assessment for %s: %w", sessionID, err)
	}
	return a, nil
}

func (r Repo) ListAssessments(ctx context.Context, limit int) ([]StoredAssessment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT session_id,project_type,state,county,permit_level,engineering_required,result_json,created_at FROM assessments ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []StoredAssessment
	for rows.Next() {
		var a StoredAssessment
		var state, county sql.NullString
		var engineering int
		var payload string
		if err := rows.Scan(&a.SessionID, &a.ProjectType, &state, &county, &a.PermitLevel, &engineering, &payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		if state.Valid {
			a.State = state.String
		}
		if county.Valid {
			a.County = county.String
		}
		a.EngineeringRequired = engineering != 0
		if err := json.Unmarshal([]byte(payload), &a.Result); err != nil {
			return nil, fmt.Errorf("decode assessment for %s: %w", a.SessionID, err)
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) LatestEvents(ctx context.Context, limit int, sessionID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, sessionID, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, sessionID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if sessionID != "" {
		clauses = append(clauses, "session_id=?")
		args = append(args, sessionID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(session_id,''),entity_kind,COALESCE(entity_id,''),payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.SessionID, &e.EntityKind, &e.EntityID, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64, sessionID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if sessionID != "" {
		clauses = append(clauses, "session_id=?")
		args = append(args, sessionID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(session_id,''),entity_kind,COALESCE(entity_id,''),payload_json FROM events %s ORDER BY id ASC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.SessionID, &e.EntityKind, &e.EntityID, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the most recent event ID, or zero when the log is empty.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
