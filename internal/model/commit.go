package model

import "time"

// CommitArtifact records one artifact touched by a commit, with a short
// human-readable change summary (e.g. "+15 -3"). Artifact content itself
// lives with the editing surface, not in the ledger.
type CommitArtifact struct {
	Name          string `json:"name"`
	ChangeSummary string `json:"change_summary,omitempty"`
}

// LinkedItem is a reference attached to a commit (requirement, task, gate...).
type LinkedItem struct {
	Type string `json:"type,omitempty"`
	ID   string `json:"id"`
}

// Commit is an immutable, timestamped record of an artifact change.
// IDs are assigned by the store and strictly increase within a project.
// Rollbacks append a new commit with RollbackOf set; history is never
// mutated or deleted.
type Commit struct {
	ID          int64            `json:"id"`
	Project     string           `json:"project"`
	StageID     string           `json:"stage_id"`
	Author      string           `json:"author"`
	Message     string           `json:"message"`
	Description string           `json:"description,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
	Artifacts   []CommitArtifact `json:"artifacts"`
	LinkedItems []LinkedItem     `json:"linked_items,omitempty"`
	RollbackOf  *int64           `json:"rollback_of,omitempty"`
}

// IsRollback reports whether the commit was appended by a rollback.
func (c *Commit) IsRollback() bool {
	return c.RollbackOf != nil
}

// CommitFilter holds criteria for querying the commit ledger.
// Results are always ordered newest first.
type CommitFilter struct {
	Stage  string `json:"stage,omitempty"`
	Author string `json:"author,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ArtifactState is the current ledger state of one artifact: the highest
// commit that touched it. The commit id doubles as the artifact's version
// for optimistic concurrency.
type ArtifactState struct {
	Project      string    `json:"project"`
	StageID      string    `json:"stage_id"`
	Name         string    `json:"name"`
	LastCommitID int64     `json:"last_commit_id"`
	LastAuthor   string    `json:"last_author,omitempty"`
	LastEditedAt time.Time `json:"last_edited_at"`
}
