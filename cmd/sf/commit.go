package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgeline/stageflow/internal/engine"
	"github.com/forgeline/stageflow/internal/model"
)

var (
	commitStage       string
	commitMessage     string
	commitDescription string
	commitArtifacts   []string
	commitLinks       []string
	commitBases       []string
)

var commitCmd = &cobra.Command{
	Use:   "commit <project>",
	Short: "Append an immutable commit to the project ledger",
	Long: `Commit records an artifact change in the project's append-only ledger.
Each --artifact takes "name" or "name=summary". Each --base takes
"name=version" and pins the artifact version the change was built on;
a stale base is rejected so concurrent edits cannot silently clobber
each other.`,
	GroupID: "ledger",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := &engine.CommitInput{
			Project:     args[0],
			Stage:       commitStage,
			Author:      actor,
			Message:     commitMessage,
			Description: commitDescription,
		}

		for _, a := range commitArtifacts {
			name, summary, _ := strings.Cut(a, "=")
			in.Artifacts = append(in.Artifacts, model.CommitArtifact{Name: name, ChangeSummary: summary})
		}
		for _, l := range commitLinks {
			typ, id, ok := strings.Cut(l, ":")
			if !ok {
				typ, id = "", l
			}
			in.LinkedItems = append(in.LinkedItems, model.LinkedItem{Type: typ, ID: id})
		}
		for _, b := range commitBases {
			name, ver, ok := strings.Cut(b, "=")
			if !ok {
				return fmt.Errorf("invalid --base %q, want name=version", b)
			}
			v, err := strconv.ParseInt(ver, 10, 64)
			if err != nil {
				return fmt.Errorf("parsing --base %q: %w", b, err)
			}
			if in.BaseVersions == nil {
				in.BaseVersions = make(map[string]int64)
			}
			in.BaseVersions[name] = v
		}

		commit, err := workflowClient.CreateCommit(context.Background(), in)
		if err != nil {
			return fmt.Errorf("creating commit: %w", err)
		}

		if jsonOutput {
			return printJSON(commit)
		}
		printCommit(commit)
		return nil
	},
}

var showCommitCmd = &cobra.Command{
	Use:     "show-commit <project> <id>",
	Short:   "Show one commit by id",
	GroupID: "ledger",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid commit id %q", args[1])
		}

		commit, err := workflowClient.GetCommit(context.Background(), args[0], id)
		if err != nil {
			return fmt.Errorf("loading commit: %w", err)
		}

		if jsonOutput {
			return printJSON(commit)
		}
		printCommit(commit)
		return nil
	},
}

func init() {
	commitCmd.Flags().StringVar(&commitStage, "stage", "", "Stage the commit belongs to (default: current stage)")
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "Commit message (required)")
	commitCmd.Flags().StringVar(&commitDescription, "description", "", "Longer description")
	commitCmd.Flags().StringArrayVar(&commitArtifacts, "artifact", nil, "Artifact touched, as name or name=summary (repeatable)")
	commitCmd.Flags().StringArrayVar(&commitLinks, "link", nil, "Linked item, as type:id (repeatable)")
	commitCmd.Flags().StringArrayVar(&commitBases, "base", nil, "Base version, as name=version (repeatable)")
	commitCmd.MarkFlagRequired("message")
}
