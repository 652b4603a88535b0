package model

import "time"

// Cursor is the project-wide lifecycle position. CurrentStage only moves
// forward, one stage at a time, and only when the current stage's gate has
// passed.
type Cursor struct {
	Project      string    `json:"project"`
	CurrentStage string    `json:"current_stage"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ViewState is one collaborator's browsing position within a project.
// The viewing stage never outruns the project's current stage. A user with
// no ViewState row is treated as tracking the current stage.
type ViewState struct {
	Project      string `json:"project"`
	User         string `json:"user"`
	ViewingStage string `json:"viewing_stage"`
}

// ArtifactNode is the latest ledger state of one artifact within a stage
// folder: who touched it last and in which commit.
type ArtifactNode struct {
	Name         string    `json:"name"`
	LastCommitID int64     `json:"last_commit_id"`
	LastAuthor   string    `json:"last_author,omitempty"`
	LastEditedAt time.Time `json:"last_edited_at"`
}

// StageFolder groups the artifacts committed under one stage.
type StageFolder struct {
	StageID   string         `json:"stage_id"`
	Name      string         `json:"name"`
	Artifacts []ArtifactNode `json:"artifacts"`
}

// ArtifactTree is the folder listing exposed to the editing surface,
// filtered to stages at or before the viewer's viewing stage.
type ArtifactTree struct {
	Project      string        `json:"project"`
	ViewingStage string        `json:"viewing_stage"`
	Folders      []StageFolder `json:"folders"`
}
