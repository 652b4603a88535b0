package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/forgeline/stageflow/internal/model"
)

// commitColumns is the column list used for SELECT statements on the commits table.
const commitColumns = `project, id, stage_id, author, message, description, created_at, rollback_of`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateCursor(ctx context.Context, db executor, c *model.Cursor) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO cursors (project, current_stage, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`,
		c.Project, c.CurrentStage, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// queryGetCursor locks the cursor row when run inside a transaction, so two
// concurrent stage advances serialize on it.
func queryGetCursor(ctx context.Context, db executor, project string) (*model.Cursor, error) {
	row := db.QueryRowContext(ctx, `
		SELECT project, current_stage, created_at, updated_at
		FROM cursors WHERE project = $1
		FOR UPDATE`, project)
	c, err := scanCursor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func queryUpdateCursor(ctx context.Context, db executor, c *model.Cursor) error {
	_, err := db.ExecContext(ctx, `
		UPDATE cursors SET current_stage = $2, updated_at = $3
		WHERE project = $1`,
		c.Project, c.CurrentStage, c.UpdatedAt,
	)
	return err
}

func queryListCursors(ctx context.Context, db executor) ([]*model.Cursor, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT project, current_stage, created_at, updated_at
		FROM cursors ORDER BY project`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Cursor
	for rows.Next() {
		c, err := scanCursor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func queryGetViewState(ctx context.Context, db executor, project, user string) (*model.ViewState, error) {
	var vs model.ViewState
	err := db.QueryRowContext(ctx, `
		SELECT project, user_name, viewing_stage
		FROM view_states WHERE project = $1 AND user_name = $2`,
		project, user,
	).Scan(&vs.Project, &vs.User, &vs.ViewingStage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vs, nil
}

func queryPutViewState(ctx context.Context, db executor, vs *model.ViewState) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO view_states (project, user_name, viewing_stage)
		VALUES ($1, $2, $3)
		ON CONFLICT (project, user_name) DO UPDATE SET viewing_stage = $3`,
		vs.Project, vs.User, vs.ViewingStage,
	)
	return err
}

func queryListViewStates(ctx context.Context, db executor, project string) ([]*model.ViewState, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT project, user_name, viewing_stage
		FROM view_states WHERE project = $1
		ORDER BY user_name`, project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ViewState
	for rows.Next() {
		var vs model.ViewState
		if err := rows.Scan(&vs.Project, &vs.User, &vs.ViewingStage); err != nil {
			return nil, err
		}
		out = append(out, &vs)
	}
	return out, rows.Err()
}

func queryCreateGate(ctx context.Context, db executor, g *model.GateRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO gates (project, stage_id, status, required_approvals, total_approvers)
		VALUES ($1, $2, $3, $4, $5)`,
		g.Project, g.StageID, string(g.Status), g.RequiredApprovals, g.TotalApprovers,
	)
	if err != nil {
		return err
	}
	return insertGateDetail(ctx, db, g)
}

// queryGetGate locks the gate row when run inside a transaction, so two
// concurrent mutations on the same gate serialize.
func queryGetGate(ctx context.Context, db executor, project, stageID string) (*model.GateRecord, error) {
	var g model.GateRecord
	err := db.QueryRowContext(ctx, `
		SELECT project, stage_id, status, required_approvals, total_approvers
		FROM gates WHERE project = $1 AND stage_id = $2
		FOR UPDATE`,
		project, stageID,
	).Scan(&g.Project, &g.StageID, &g.Status, &g.RequiredApprovals, &g.TotalApprovers)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := loadGateDetail(ctx, db, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// querySaveGate replaces the full gate record: the gate row plus its
// checklist, approvals, and auto-checks.
func querySaveGate(ctx context.Context, db executor, g *model.GateRecord) error {
	_, err := db.ExecContext(ctx, `
		UPDATE gates SET status = $3, required_approvals = $4, total_approvers = $5
		WHERE project = $1 AND stage_id = $2`,
		g.Project, g.StageID, string(g.Status), g.RequiredApprovals, g.TotalApprovers,
	)
	if err != nil {
		return err
	}
	for _, table := range []string{"checklist_items", "approvals", "auto_checks"} {
		if _, err := db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE project = $1 AND stage_id = $2`,
			g.Project, g.StageID,
		); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return insertGateDetail(ctx, db, g)
}

func queryListGates(ctx context.Context, db executor, project string) ([]*model.GateRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT project, stage_id, status, required_approvals, total_approvers
		FROM gates WHERE project = $1
		ORDER BY stage_id`, project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gates []*model.GateRecord
	for rows.Next() {
		var g model.GateRecord
		if err := rows.Scan(&g.Project, &g.StageID, &g.Status, &g.RequiredApprovals, &g.TotalApprovers); err != nil {
			return nil, err
		}
		gates = append(gates, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range gates {
		if err := loadGateDetail(ctx, db, g); err != nil {
			return nil, err
		}
	}
	return gates, nil
}

func insertGateDetail(ctx context.Context, db executor, g *model.GateRecord) error {
	for i, item := range g.Checklist {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO checklist_items (id, project, stage_id, position, label, completed, completed_by, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, g.Project, g.StageID, i, item.Label, item.Completed,
			nullString(item.CompletedBy), nullTimePtr(item.CompletedAt),
		); err != nil {
			return fmt.Errorf("insert checklist item %q: %w", item.ID, err)
		}
	}
	for i, a := range g.Approvals {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO approvals (id, project, stage_id, position, user_name, role, status, comment, ts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			a.ID, g.Project, g.StageID, i, a.User, nullString(a.Role),
			string(a.Status), nullString(a.Comment), nullTimePtr(a.Timestamp),
		); err != nil {
			return fmt.Errorf("insert approval %q: %w", a.ID, err)
		}
	}
	for i, c := range g.AutoChecks {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO auto_checks (id, project, stage_id, position, label, passed, score)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, g.Project, g.StageID, i, c.Label, c.Passed, nullFloatPtr(c.Score),
		); err != nil {
			return fmt.Errorf("insert auto check %q: %w", c.ID, err)
		}
	}
	return nil
}

func loadGateDetail(ctx context.Context, db executor, g *model.GateRecord) error {
	checklist, err := queryGetChecklist(ctx, db, g.Project, g.StageID)
	if err != nil {
		return fmt.Errorf("load checklist: %w", err)
	}
	g.Checklist = checklist

	approvals, err := queryGetApprovals(ctx, db, g.Project, g.StageID)
	if err != nil {
		return fmt.Errorf("load approvals: %w", err)
	}
	g.Approvals = approvals

	checks, err := queryGetAutoChecks(ctx, db, g.Project, g.StageID)
	if err != nil {
		return fmt.Errorf("load auto checks: %w", err)
	}
	g.AutoChecks = checks
	return nil
}

func queryGetChecklist(ctx context.Context, db executor, project, stageID string) ([]model.ChecklistItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, label, completed, completed_by, completed_at
		FROM checklist_items
		WHERE project = $1 AND stage_id = $2
		ORDER BY position`, project, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChecklist(rows)
}

func queryGetApprovals(ctx context.Context, db executor, project, stageID string) ([]model.Approval, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_name, role, status, comment, ts
		FROM approvals
		WHERE project = $1 AND stage_id = $2
		ORDER BY position`, project, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanApprovals(rows)
}

func queryGetAutoChecks(ctx context.Context, db executor, project, stageID string) ([]model.AutoCheck, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, label, passed, score
		FROM auto_checks
		WHERE project = $1 AND stage_id = $2
		ORDER BY position`, project, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAutoChecks(rows)
}

// queryAppendCommit assigns the next per-project commit id inside the insert
// itself; the primary key rejects the loser of a genuine race.
func queryAppendCommit(ctx context.Context, db executor, c *model.Commit) (int64, error) {
	err := db.QueryRowContext(ctx, `
		INSERT INTO commits (project, id, stage_id, author, message, description, created_at, rollback_of)
		VALUES ($1, (SELECT COALESCE(MAX(id), 0) + 1 FROM commits WHERE project = $1), $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		c.Project, c.StageID, c.Author, c.Message, nullString(c.Description),
		c.Timestamp, nullInt64Ptr(c.RollbackOf),
	).Scan(&c.ID)
	if err != nil {
		return 0, err
	}

	for i, a := range c.Artifacts {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO commit_artifacts (project, commit_id, position, name, change_summary)
			VALUES ($1, $2, $3, $4, $5)`,
			c.Project, c.ID, i, a.Name, nullString(a.ChangeSummary),
		); err != nil {
			return 0, fmt.Errorf("insert artifact %q: %w", a.Name, err)
		}
	}
	for i, l := range c.LinkedItems {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO commit_links (project, commit_id, position, type, item_id)
			VALUES ($1, $2, $3, $4, $5)`,
			c.Project, c.ID, i, nullString(l.Type), l.ID,
		); err != nil {
			return 0, fmt.Errorf("insert link %q: %w", l.ID, err)
		}
	}
	return c.ID, nil
}

func queryGetCommit(ctx context.Context, db executor, project string, id int64) (*model.Commit, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+commitColumns+` FROM commits WHERE project = $1 AND id = $2`,
		project, id)
	c, err := scanCommit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := loadCommitDetail(ctx, db, project, []*model.Commit{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func queryListCommits(ctx context.Context, db executor, project string, filter model.CommitFilter) ([]*model.Commit, int, error) {
	whereClauses := []string{"project = $1"}
	args := []any{project}
	argIdx := 1

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.Stage != "" {
		whereClauses = append(whereClauses, "stage_id = "+nextArg())
		args = append(args, filter.Stage)
	}
	if filter.Author != "" {
		whereClauses = append(whereClauses, "author = "+nextArg())
		args = append(args, filter.Author)
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + commitColumns +
		" FROM commits WHERE " + strings.Join(whereClauses, " AND ") +
		" ORDER BY id DESC"

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list commits: %w", err)
	}
	defer rows.Close()

	var commits []*model.Commit
	var total int
	for rows.Next() {
		c, t, err := scanCommitWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan commits: %w", err)
		}
		total = t
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan commits: %w", err)
	}

	if err := loadCommitDetail(ctx, db, project, commits); err != nil {
		return nil, 0, err
	}
	return commits, total, nil
}

// loadCommitDetail attaches artifacts and linked items to a page of commits
// in two queries rather than one pair per commit.
func loadCommitDetail(ctx context.Context, db executor, project string, commits []*model.Commit) error {
	if len(commits) == 0 {
		return nil
	}
	ids := make([]int64, len(commits))
	byID := make(map[int64]*model.Commit, len(commits))
	for i, c := range commits {
		ids[i] = c.ID
		byID[c.ID] = c
	}

	artRows, err := db.QueryContext(ctx, `
		SELECT commit_id, name, change_summary
		FROM commit_artifacts
		WHERE project = $1 AND commit_id = ANY($2)
		ORDER BY commit_id, position`,
		project, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load artifacts: %w", err)
	}
	defer artRows.Close()
	for artRows.Next() {
		var commitID int64
		var a model.CommitArtifact
		var summary sql.NullString
		if err := artRows.Scan(&commitID, &a.Name, &summary); err != nil {
			return fmt.Errorf("scan artifact: %w", err)
		}
		a.ChangeSummary = summary.String
		if c, ok := byID[commitID]; ok {
			c.Artifacts = append(c.Artifacts, a)
		}
	}
	if err := artRows.Err(); err != nil {
		return fmt.Errorf("artifact rows: %w", err)
	}

	linkRows, err := db.QueryContext(ctx, `
		SELECT commit_id, type, item_id
		FROM commit_links
		WHERE project = $1 AND commit_id = ANY($2)
		ORDER BY commit_id, position`,
		project, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load links: %w", err)
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var commitID int64
		var l model.LinkedItem
		var typ sql.NullString
		if err := linkRows.Scan(&commitID, &typ, &l.ID); err != nil {
			return fmt.Errorf("scan link: %w", err)
		}
		l.Type = typ.String
		if c, ok := byID[commitID]; ok {
			c.LinkedItems = append(c.LinkedItems, l)
		}
	}
	return linkRows.Err()
}

func queryArtifactHead(ctx context.Context, db executor, project, name string) (int64, error) {
	var head int64
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(commit_id), 0)
		FROM commit_artifacts
		WHERE project = $1 AND name = $2`,
		project, name,
	).Scan(&head)
	return head, err
}

func queryListArtifacts(ctx context.Context, db executor, project string) ([]*model.ArtifactState, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT ON (a.name)
			a.name, c.stage_id, c.id, c.author, c.created_at
		FROM commit_artifacts a
		JOIN commits c ON c.project = a.project AND c.id = a.commit_id
		WHERE a.project = $1
		ORDER BY a.name, c.id DESC`, project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ArtifactState
	for rows.Next() {
		st := &model.ArtifactState{Project: project}
		if err := rows.Scan(&st.Name, &st.StageID, &st.LastCommitID, &st.LastAuthor, &st.LastEditedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO events (project, topic, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Project, e.Topic, e.Actor, []byte(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryListEvents(ctx context.Context, db executor, project string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, project, topic, actor, payload, created_at
		FROM events
		WHERE project = $1
		ORDER BY id ASC`, project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}
