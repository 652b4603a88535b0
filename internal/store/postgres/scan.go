package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/forgeline/stageflow/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanCursor scans a single row into a model.Cursor.
func scanCursor(row scannable) (*model.Cursor, error) {
	var c model.Cursor
	err := row.Scan(&c.Project, &c.CurrentStage, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// scanCommit scans a single row into a model.Commit.
// The row must contain columns in the order defined by commitColumns.
func scanCommit(row scannable) (*model.Commit, error) {
	var c model.Commit
	var (
		description sql.NullString
		rollbackOf  sql.NullInt64
	)
	err := row.Scan(
		&c.Project,
		&c.ID,
		&c.StageID,
		&c.Author,
		&c.Message,
		&description,
		&c.Timestamp,
		&rollbackOf,
	)
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	if rollbackOf.Valid {
		v := rollbackOf.Int64
		c.RollbackOf = &v
	}
	return &c, nil
}

// scanCommitWithTotal scans a row that has a leading total_count column
// followed by the standard commit columns. Used by queryListCommits with
// COUNT(*) OVER().
func scanCommitWithTotal(row scannable) (*model.Commit, int, error) {
	var total int
	var c model.Commit
	var (
		description sql.NullString
		rollbackOf  sql.NullInt64
	)
	err := row.Scan(
		&total,
		&c.Project,
		&c.ID,
		&c.StageID,
		&c.Author,
		&c.Message,
		&description,
		&c.Timestamp,
		&rollbackOf,
	)
	if err != nil {
		return nil, 0, err
	}
	c.Description = description.String
	if rollbackOf.Valid {
		v := rollbackOf.Int64
		c.RollbackOf = &v
	}
	return &c, total, nil
}

// scanChecklist scans multiple rows into checklist items.
func scanChecklist(rows *sql.Rows) ([]model.ChecklistItem, error) {
	var items []model.ChecklistItem
	for rows.Next() {
		var item model.ChecklistItem
		var (
			completedBy sql.NullString
			completedAt sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.Label, &item.Completed, &completedBy, &completedAt); err != nil {
			return nil, err
		}
		item.CompletedBy = completedBy.String
		if completedAt.Valid {
			t := completedAt.Time
			item.CompletedAt = &t
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// scanApprovals scans multiple rows into approvals.
func scanApprovals(rows *sql.Rows) ([]model.Approval, error) {
	var approvals []model.Approval
	for rows.Next() {
		var a model.Approval
		var (
			role    sql.NullString
			comment sql.NullString
			ts      sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.User, &role, &a.Status, &comment, &ts); err != nil {
			return nil, err
		}
		a.Role = role.String
		a.Comment = comment.String
		if ts.Valid {
			t := ts.Time
			a.Timestamp = &t
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

// scanAutoChecks scans multiple rows into auto-checks.
func scanAutoChecks(rows *sql.Rows) ([]model.AutoCheck, error) {
	var checks []model.AutoCheck
	for rows.Next() {
		var c model.AutoCheck
		var score sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.Label, &c.Passed, &score); err != nil {
			return nil, err
		}
		if score.Valid {
			s := score.Float64
			c.Score = &s
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		actor   sql.NullString
		payload []byte
	)
	err := row.Scan(&e.ID, &e.Project, &e.Topic, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullInt64Ptr converts a *int64 to a sql.NullInt64.
func nullInt64Ptr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// nullFloatPtr converts a *float64 to a sql.NullFloat64.
func nullFloatPtr(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
