package model

import "time"

// GateStatus represents the derived state of a stage gate.
type GateStatus string

const (
	GateNotStarted GateStatus = "not_started"
	GatePending    GateStatus = "pending"
	GateReady      GateStatus = "ready"
	GatePassed     GateStatus = "passed"
	GateFailed     GateStatus = "failed"
	GateBlocked    GateStatus = "blocked"
)

// String returns the string representation of the gate status.
func (s GateStatus) String() string {
	return string(s)
}

// IsValid checks whether the gate status is a known value.
func (s GateStatus) IsValid() bool {
	switch s {
	case GateNotStarted, GatePending, GateReady, GatePassed, GateFailed, GateBlocked:
		return true
	}
	return false
}

// ApprovalDecision is a reviewer's recorded decision on a gate.
type ApprovalDecision string

const (
	DecisionPending  ApprovalDecision = "pending"
	DecisionApproved ApprovalDecision = "approved"
	DecisionRejected ApprovalDecision = "rejected"
)

// String returns the string representation of the decision.
func (d ApprovalDecision) String() string {
	return string(d)
}

// IsValid checks whether the decision is a known value.
func (d ApprovalDecision) IsValid() bool {
	switch d {
	case DecisionPending, DecisionApproved, DecisionRejected:
		return true
	}
	return false
}

// ChecklistItem is a binary manual task gating a stage. CompletedBy and
// CompletedAt are set when the item is toggled on and cleared when it is
// toggled off.
type ChecklistItem struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Completed   bool       `json:"completed"`
	CompletedBy string     `json:"completed_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Approval is one reviewer's decision on a gate. There is at most one live
// approval per (gate, user); a later submission from the same user replaces
// the prior one in place.
type Approval struct {
	ID        string           `json:"id"`
	User      string           `json:"user"`
	Role      string           `json:"role,omitempty"`
	Status    ApprovalDecision `json:"status"`
	Comment   string           `json:"comment,omitempty"`
	Timestamp *time.Time       `json:"timestamp,omitempty"`
}

// AutoCheck is an automated, externally computed pass/fail signal feeding
// gate status. The engine treats these as read-only inputs.
type AutoCheck struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Passed bool     `json:"passed"`
	Score  *float64 `json:"score,omitempty"`
}

// GateRecord holds the full gate state for one (project, stage) pair.
// Status is derived from the checklist, approvals, and auto-checks; it is
// mutated only through engine operations.
type GateRecord struct {
	Project           string     `json:"project"`
	StageID           string     `json:"stage_id"`
	Status            GateStatus `json:"status"`
	RequiredApprovals int        `json:"required_approvals"`
	TotalApprovers    int        `json:"total_approvers"`

	Checklist  []ChecklistItem `json:"checklist"`
	Approvals  []Approval      `json:"approvals"`
	AutoChecks []AutoCheck     `json:"auto_checks"`
}

// ApprovedCount returns the number of approvals with status approved.
func (g *GateRecord) ApprovedCount() int {
	n := 0
	for _, a := range g.Approvals {
		if a.Status == DecisionApproved {
			n++
		}
	}
	return n
}

// ChecklistComplete reports whether every checklist item is completed.
// A gate with no checklist items is vacuously complete.
func (g *GateRecord) ChecklistComplete() bool {
	for _, item := range g.Checklist {
		if !item.Completed {
			return false
		}
	}
	return true
}

// AutoChecksPassed reports whether every auto-check has passed.
// A gate with no auto-checks is vacuously passing.
func (g *GateRecord) AutoChecksPassed() bool {
	for _, c := range g.AutoChecks {
		if !c.Passed {
			return false
		}
	}
	return true
}
