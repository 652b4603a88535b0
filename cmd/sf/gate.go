package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/forgeline/stageflow/internal/client"
	"github.com/forgeline/stageflow/internal/model"
)

var (
	approvalRole    string
	approvalComment string
	autocheckLabel  string
	autocheckScore  string
	signalReason    string
	reopenReason    string
)

var gateCmd = &cobra.Command{
	Use:     "gate",
	Short:   "Inspect and operate stage gates",
	GroupID: "gates",
}

var gateShowCmd = &cobra.Command{
	Use:   "show <project> [stage]",
	Short: "Show one gate, or all gates for a project",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if len(args) == 2 {
			gate, err := workflowClient.GetGate(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("loading gate: %w", err)
			}
			if jsonOutput {
				return printJSON(gate)
			}
			printGate(gate)
			return nil
		}

		gates, err := workflowClient.ListGates(ctx, args[0])
		if err != nil {
			return fmt.Errorf("listing gates: %w", err)
		}
		if jsonOutput {
			return printJSON(gates)
		}
		for i, gate := range gates {
			if i > 0 {
				fmt.Println()
			}
			printGate(gate)
		}
		return nil
	},
}

var gateCheckCmd = &cobra.Command{
	Use:   "check <project> <stage> <item>",
	Short: "Mark a checklist item complete",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleChecklist(args[0], args[1], args[2], true)
	},
}

var gateUncheckCmd = &cobra.Command{
	Use:   "uncheck <project> <stage> <item>",
	Short: "Mark a checklist item incomplete",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleChecklist(args[0], args[1], args[2], false)
	},
}

func toggleChecklist(project, stage, item string, completed bool) error {
	gate, err := workflowClient.ToggleChecklistItem(context.Background(), project, stage, item, completed, actor)
	if err != nil {
		return fmt.Errorf("updating checklist: %w", err)
	}

	if jsonOutput {
		return printJSON(gate)
	}
	printGate(gate)
	return nil
}

var gateApproveCmd = &cobra.Command{
	Use:   "approve <project> <stage>",
	Short: "Approve a gate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitApproval(args[0], args[1], string(model.DecisionApproved))
	},
}

var gateRejectCmd = &cobra.Command{
	Use:   "reject <project> <stage>",
	Short: "Reject a gate (requires --comment)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitApproval(args[0], args[1], string(model.DecisionRejected))
	},
}

func submitApproval(project, stage, decision string) error {
	gate, err := workflowClient.SubmitApproval(context.Background(), &client.SubmitApprovalRequest{
		Project:  project,
		Stage:    stage,
		User:     actor,
		Role:     approvalRole,
		Decision: decision,
		Comment:  approvalComment,
	})
	if err != nil {
		return fmt.Errorf("submitting %s: %w", decision, err)
	}

	if jsonOutput {
		return printJSON(gate)
	}
	printGate(gate)
	return nil
}

var gateAutocheckCmd = &cobra.Command{
	Use:   "autocheck <project> <stage> <check> <pass|fail>",
	Short: "Record an automated check result",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		var passed bool
		switch args[3] {
		case "pass":
			passed = true
		case "fail":
			passed = false
		default:
			return fmt.Errorf("result must be pass or fail, got %q", args[3])
		}

		check := model.AutoCheck{ID: args[2], Label: autocheckLabel, Passed: passed}
		if autocheckScore != "" {
			score, err := strconv.ParseFloat(autocheckScore, 64)
			if err != nil {
				return fmt.Errorf("parsing --score: %w", err)
			}
			check.Score = &score
		}

		gate, err := workflowClient.RecordAutoCheck(context.Background(), args[0], args[1], check)
		if err != nil {
			return fmt.Errorf("recording check: %w", err)
		}

		if jsonOutput {
			return printJSON(gate)
		}
		printGate(gate)
		return nil
	},
}

var gateReopenCmd = &cobra.Command{
	Use:   "reopen <project> <stage>",
	Short: "Move a passed gate back to pending",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gate, err := workflowClient.Reopen(context.Background(), args[0], args[1], actor, reopenReason)
		if err != nil {
			return fmt.Errorf("reopening gate: %w", err)
		}

		if jsonOutput {
			return printJSON(gate)
		}
		printGate(gate)
		return nil
	},
}

var gateSignalCmd = &cobra.Command{
	Use:   "signal <project> <stage> <status>",
	Short: "Force a gate status (pending, blocked, passed)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		gate, err := workflowClient.SignalGate(context.Background(), args[0], args[1], args[2], actor, signalReason)
		if err != nil {
			return fmt.Errorf("signaling gate: %w", err)
		}

		if jsonOutput {
			return printJSON(gate)
		}
		printGate(gate)
		return nil
	},
}

func init() {
	gateApproveCmd.Flags().StringVar(&approvalRole, "role", "", "Reviewer role")
	gateApproveCmd.Flags().StringVar(&approvalComment, "comment", "", "Review comment (required)")
	gateRejectCmd.Flags().StringVar(&approvalRole, "role", "", "Reviewer role")
	gateRejectCmd.Flags().StringVar(&approvalComment, "comment", "", "Review comment (required)")
	gateAutocheckCmd.Flags().StringVar(&autocheckLabel, "label", "", "Human-readable check label")
	gateAutocheckCmd.Flags().StringVar(&autocheckScore, "score", "", "Optional numeric score")
	gateSignalCmd.Flags().StringVar(&signalReason, "reason", "", "Reason recorded with the signal")
	gateReopenCmd.Flags().StringVar(&reopenReason, "reason", "", "Reason recorded with the reopen")

	gateCmd.AddCommand(gateShowCmd)
	gateCmd.AddCommand(gateCheckCmd)
	gateCmd.AddCommand(gateUncheckCmd)
	gateCmd.AddCommand(gateApproveCmd)
	gateCmd.AddCommand(gateRejectCmd)
	gateCmd.AddCommand(gateAutocheckCmd)
	gateCmd.AddCommand(gateReopenCmd)
	gateCmd.AddCommand(gateSignalCmd)
}
