package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/forgeline/stageflow/internal/model"
)

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printGate(gate *model.GateRecord) {
	fmt.Printf("Stage:      %s\n", gate.StageID)
	fmt.Printf("Status:     %s\n", gate.Status)
	fmt.Printf("Approvals:  %d/%d required (%d approvers)\n",
		gate.ApprovedCount(), gate.RequiredApprovals, gate.TotalApprovers)

	if len(gate.Checklist) > 0 {
		fmt.Println("Checklist:")
		for _, item := range gate.Checklist {
			mark := " "
			if item.Completed {
				mark = "x"
			}
			fmt.Printf("  [%s] %s  (%s)\n", mark, item.Label, item.ID)
		}
	}
	if len(gate.Approvals) > 0 {
		fmt.Println("Reviewers:")
		for _, a := range gate.Approvals {
			fmt.Printf("  %-12s %-9s %s\n", a.User, a.Status, a.Comment)
		}
	}
	if len(gate.AutoChecks) > 0 {
		fmt.Println("Auto checks:")
		for _, c := range gate.AutoChecks {
			result := "fail"
			if c.Passed {
				result = "pass"
			}
			if c.Score != nil {
				fmt.Printf("  %-12s %-5s score %.2f\n", c.ID, result, *c.Score)
			} else {
				fmt.Printf("  %-12s %s\n", c.ID, result)
			}
		}
	}
}

func printCommit(c *model.Commit) {
	fmt.Printf("Commit:     %d\n", c.ID)
	fmt.Printf("Stage:      %s\n", c.StageID)
	fmt.Printf("Author:     %s\n", c.Author)
	fmt.Printf("Message:    %s\n", c.Message)
	if c.Description != "" {
		fmt.Printf("Detail:     %s\n", c.Description)
	}
	if c.IsRollback() {
		fmt.Printf("Rollback:   reverts to commit %d\n", *c.RollbackOf)
	}
	if !c.Timestamp.IsZero() {
		fmt.Printf("Timestamp:  %s\n", c.Timestamp.Format("2006-01-02 15:04:05"))
	}
	for _, a := range c.Artifacts {
		if a.ChangeSummary != "" {
			fmt.Printf("  %s  %s\n", a.Name, a.ChangeSummary)
		} else {
			fmt.Printf("  %s\n", a.Name)
		}
	}
	for _, li := range c.LinkedItems {
		fmt.Printf("  linked: %s %s\n", li.Type, li.ID)
	}
}

func printCommitTable(commits []*model.Commit, total int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTAGE\tAUTHOR\tMESSAGE\tARTIFACTS")
	for _, c := range commits {
		msg := c.Message
		if len(msg) > 50 {
			msg = msg[:47] + "..."
		}
		if c.IsRollback() {
			msg = fmt.Sprintf("%s (rollback of %d)", msg, *c.RollbackOf)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", c.ID, c.StageID, c.Author, msg, len(c.Artifacts))
	}
	w.Flush()
	fmt.Printf("\n%d commits (%d total)\n", len(commits), total)
}

func printTree(tree *model.ArtifactTree) {
	fmt.Printf("%s (viewing %s)\n", tree.Project, tree.ViewingStage)
	for i, folder := range tree.Folders {
		connector, childPrefix := "├── ", "│   "
		if i == len(tree.Folders)-1 {
			connector, childPrefix = "└── ", "    "
		}
		fmt.Printf("%s%s/\n", connector, folder.Name)
		for j, a := range folder.Artifacts {
			leaf := "├── "
			if j == len(folder.Artifacts)-1 {
				leaf = "└── "
			}
			fmt.Printf("%s%s%s  (commit %d, %s)\n", childPrefix, leaf, a.Name, a.LastCommitID, a.LastAuthor)
		}
	}
}
