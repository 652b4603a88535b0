package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forgeline/stageflow/internal/events"
	"github.com/forgeline/stageflow/internal/idgen"
	"github.com/forgeline/stageflow/internal/model"
	"github.com/forgeline/stageflow/internal/store"
)

// Gate returns the full gate record for one stage of a project.
func (e *Engine) Gate(ctx context.Context, project, stageID string) (*model.GateRecord, error) {
	return loadGate(ctx, e.store, e.graph, project, stageID)
}

// Gates returns every gate of a project in stage order.
func (e *Engine) Gates(ctx context.Context, project string) ([]*model.GateRecord, error) {
	cursor, err := e.store.GetCursor(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to load cursor: %w", err)
	}
	if cursor == nil {
		return nil, &UnknownProjectError{Project: project}
	}
	gates, err := e.store.ListGates(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list gates: %w", err)
	}
	byStage := make(map[string]*model.GateRecord, len(gates))
	for _, g := range gates {
		byStage[g.StageID] = g
	}
	ordered := make([]*model.GateRecord, 0, len(gates))
	for _, s := range e.graph.Stages() {
		if g, ok := byStage[s.ID]; ok {
			ordered = append(ordered, g)
		}
	}
	return ordered, nil
}

// ToggleChecklistItem marks a checklist item completed or not. The checklist
// is frozen once the gate has passed.
func (e *Engine) ToggleChecklistItem(ctx context.Context, project, stageID, itemID string, completed bool, actor string) (*model.GateRecord, error) {
	var gate *model.GateRecord
	var item *model.ChecklistItem
	passedNow := false

	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		gate, err = loadGate(ctx, tx, e.graph, project, stageID)
		if err != nil {
			return err
		}
		if gate.Status == model.GatePassed {
			return &GateAlreadyPassedError{Stage: stageID}
		}

		idx := -1
		for i := range gate.Checklist {
			if gate.Checklist[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &UnknownChecklistItemError{Stage: stageID, Item: itemID}
		}

		it := &gate.Checklist[idx]
		it.Completed = completed
		if completed {
			now := time.Now().UTC()
			it.CompletedBy = actor
			it.CompletedAt = &now
		} else {
			it.CompletedBy = ""
			it.CompletedAt = nil
		}
		item = it

		passedNow = recompute(gate)
		if err := tx.SaveGate(ctx, gate); err != nil {
			return fmt.Errorf("failed to save gate: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordAndPublish(ctx, events.TopicGateChecklist, project, actor, events.ChecklistToggled{
		Project:   project,
		StageID:   stageID,
		Item:      item,
		GateState: gate.Status,
	})
	if passedNow {
		e.recordAndPublish(ctx, events.TopicGatePassed, project, actor, events.GatePassed{Project: project, StageID: stageID})
	}
	return gate, nil
}

// SubmitApproval records one reviewer's decision on a gate. A later
// submission from the same user replaces the prior one in place. A blank
// comment is rejected and produces no state change.
func (e *Engine) SubmitApproval(ctx context.Context, project, stageID, user, role string, decision model.ApprovalDecision, comment string) (*model.GateRecord, error) {
	if decision != model.DecisionApproved && decision != model.DecisionRejected {
		return nil, InputError(fmt.Sprintf("decision must be approved or rejected, got %q", decision))
	}
	if strings.TrimSpace(user) == "" {
		return nil, InputError("user is required")
	}
	if strings.TrimSpace(comment) == "" {
		return nil, ErrEmptyComment
	}

	var gate *model.GateRecord
	var approval *model.Approval
	passedNow := false

	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		gate, err = loadGate(ctx, tx, e.graph, project, stageID)
		if err != nil {
			return err
		}
		if gate.Status == model.GatePassed {
			return &GateAlreadyPassedError{Stage: stageID}
		}

		now := time.Now().UTC()
		idx := -1
		for i := range gate.Approvals {
			if gate.Approvals[i].User == user {
				idx = i
				break
			}
		}
		if idx >= 0 {
			a := &gate.Approvals[idx]
			a.Role = role
			a.Status = decision
			a.Comment = comment
			a.Timestamp = &now
			approval = a
		} else {
			id, err := idgen.Generate()
			if err != nil {
				return fmt.Errorf("failed to generate approval id: %w", err)
			}
			gate.Approvals = append(gate.Approvals, model.Approval{
				ID:        id,
				User:      user,
				Role:      role,
				Status:    decision,
				Comment:   comment,
				Timestamp: &now,
			})
			approval = &gate.Approvals[len(gate.Approvals)-1]
		}

		passedNow = recompute(gate)
		if err := tx.SaveGate(ctx, gate); err != nil {
			return fmt.Errorf("failed to save gate: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordAndPublish(ctx, events.TopicGateApproval, project, user, events.ApprovalSubmitted{
		Project:   project,
		StageID:   stageID,
		Approval:  approval,
		GateState: gate.Status,
	})
	if passedNow {
		e.recordAndPublish(ctx, events.TopicGatePassed, project, user, events.GatePassed{Project: project, StageID: stageID})
	}
	return gate, nil
}

// RecordAutoCheck upserts an externally computed check result by check id.
// It is idempotent and allowed on a passed gate; a passed gate's status is
// never recomputed away.
func (e *Engine) RecordAutoCheck(ctx context.Context, project, stageID string, check model.AutoCheck) (*model.GateRecord, error) {
	if strings.TrimSpace(check.ID) == "" {
		return nil, InputError("check id is required")
	}

	var gate *model.GateRecord
	var stored *model.AutoCheck
	passedNow := false

	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		gate, err = loadGate(ctx, tx, e.graph, project, stageID)
		if err != nil {
			return err
		}

		idx := -1
		for i := range gate.AutoChecks {
			if gate.AutoChecks[i].ID == check.ID {
				idx = i
				break
			}
		}
		if idx >= 0 {
			gate.AutoChecks[idx] = check
			stored = &gate.AutoChecks[idx]
		} else {
			gate.AutoChecks = append(gate.AutoChecks, check)
			stored = &gate.AutoChecks[len(gate.AutoChecks)-1]
		}

		passedNow = recompute(gate)
		if err := tx.SaveGate(ctx, gate); err != nil {
			return fmt.Errorf("failed to save gate: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordAndPublish(ctx, events.TopicGateAutoCheck, project, "", events.AutoCheckRecorded{
		Project:   project,
		StageID:   stageID,
		Check:     stored,
		GateState: gate.Status,
	})
	if passedNow {
		e.recordAndPublish(ctx, events.TopicGatePassed, project, "", events.GatePassed{Project: project, StageID: stageID})
	}
	return gate, nil
}

// Reopen moves a gate out of passed back to pending. Checklist, approvals,
// and checks are kept, to be corrected manually. This is the only path out
// of passed.
func (e *Engine) Reopen(ctx context.Context, project, stageID, actor, reason string) (*model.GateRecord, error) {
	var gate *model.GateRecord

	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		gate, err = loadGate(ctx, tx, e.graph, project, stageID)
		if err != nil {
			return err
		}
		gate.Status = model.GatePending
		if err := tx.SaveGate(ctx, gate); err != nil {
			return fmt.Errorf("failed to save gate: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordAndPublish(ctx, events.TopicGateReopened, project, actor, events.GateReopened{
		Project: project,
		StageID: stageID,
		Reason:  reason,
	})
	return gate, nil
}

// SignalGate asserts an externally determined blocked or failed state on a
// gate. The state is preserved until the gate's pass condition is met.
func (e *Engine) SignalGate(ctx context.Context, project, stageID string, status model.GateStatus, actor, reason string) (*model.GateRecord, error) {
	if status != model.GateBlocked && status != model.GateFailed {
		return nil, &InvalidGateSignalError{Status: status}
	}

	var gate *model.GateRecord

	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		gate, err = loadGate(ctx, tx, e.graph, project, stageID)
		if err != nil {
			return err
		}
		if gate.Status == model.GatePassed {
			return &GateAlreadyPassedError{Stage: stageID}
		}
		gate.Status = status
		if err := tx.SaveGate(ctx, gate); err != nil {
			return fmt.Errorf("failed to save gate: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordAndPublish(ctx, events.TopicGateSignaled, project, actor, events.GateSignaled{
		Project: project,
		StageID: stageID,
		Status:  status,
		Reason:  reason,
	})
	return gate, nil
}

// recompute derives the gate status after a mutation and reports whether the
// gate transitioned to passed. passed is sticky; blocked and failed are
// preserved unless the pass condition is now met.
func recompute(g *model.GateRecord) (passedNow bool) {
	if g.Status == model.GatePassed {
		return false
	}
	if g.ApprovedCount() >= g.RequiredApprovals && g.ChecklistComplete() && g.AutoChecksPassed() {
		g.Status = model.GatePassed
		return true
	}
	if g.Status == model.GateBlocked || g.Status == model.GateFailed {
		return false
	}
	started := len(g.Approvals) > 0
	for _, item := range g.Checklist {
		if item.Completed {
			started = true
			break
		}
	}
	if started {
		g.Status = model.GateReady
	} else {
		g.Status = model.GatePending
	}
	return false
}
