package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateCommitRequest checks the caller-supplied parts of a commit before it
// is appended to the ledger. It returns a *ValidationError if any rules fail.
func ValidateCommitRequest(c *Commit) error {
	var ve ValidationError

	if strings.TrimSpace(c.Project) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "project", Message: "is required"})
	}

	if strings.TrimSpace(c.StageID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "stage_id", Message: "is required"})
	}

	if strings.TrimSpace(c.Author) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "author", Message: "is required"})
	}

	// Message: required and at most 500 characters.
	msg := strings.TrimSpace(c.Message)
	if msg == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "message", Message: "is required"})
	} else if len([]rune(msg)) > 500 {
		ve.Errors = append(ve.Errors, FieldError{Field: "message", Message: "must be 500 characters or fewer"})
	}

	if len(c.Artifacts) == 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: "artifacts", Message: "at least one artifact is required"})
	}
	for i, a := range c.Artifacts {
		if strings.TrimSpace(a.Name) == "" {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   fmt.Sprintf("artifacts[%d].name", i),
				Message: "is required",
			})
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateGateRecord checks a gate record for internal consistency.
func ValidateGateRecord(g *GateRecord) error {
	var ve ValidationError

	if !g.Status.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "status",
			Message: fmt.Sprintf("invalid value %q", g.Status),
		})
	}
	if g.RequiredApprovals < 0 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "required_approvals",
			Message: fmt.Sprintf("must be >= 0, got %d", g.RequiredApprovals),
		})
	}
	if g.TotalApprovers < g.RequiredApprovals {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "total_approvers",
			Message: fmt.Sprintf("must be >= required_approvals (%d), got %d", g.RequiredApprovals, g.TotalApprovers),
		})
	}
	for i, a := range g.Approvals {
		if !a.Status.IsValid() {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   fmt.Sprintf("approvals[%d].status", i),
				Message: fmt.Sprintf("invalid value %q", a.Status),
			})
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
