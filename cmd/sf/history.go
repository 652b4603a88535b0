package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/forgeline/stageflow/internal/model"
)

var (
	historyStage  string
	historyAuthor string
	historyLimit  int
	historyOffset int
)

var historyCmd = &cobra.Command{
	Use:     "history <project>",
	Short:   "List a project's commits, newest first",
	GroupID: "ledger",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := model.CommitFilter{
			Stage:  historyStage,
			Author: historyAuthor,
			Limit:  historyLimit,
			Offset: historyOffset,
		}

		resp, err := workflowClient.ListCommits(context.Background(), args[0], filter)
		if err != nil {
			return fmt.Errorf("listing commits: %w", err)
		}

		if jsonOutput {
			return printJSON(resp)
		}
		printCommitTable(resp.Commits, resp.Total)
		return nil
	},
}

var artifactsCmd = &cobra.Command{
	Use:     "artifacts <project>",
	Short:   "List artifact head versions from the ledger",
	GroupID: "ledger",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		states, err := workflowClient.ListArtifacts(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("listing artifacts: %w", err)
		}

		if jsonOutput {
			return printJSON(states)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tARTIFACT\tVERSION\tLAST AUTHOR\tLAST EDITED")
		for _, s := range states {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				s.StageID, s.Name, s.LastCommitID, s.LastAuthor,
				s.LastEditedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
		fmt.Printf("\n%d artifacts\n", len(states))
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyStage, "stage", "", "Filter by stage")
	historyCmd.Flags().StringVar(&historyAuthor, "author", "", "Filter by author")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum commits to return")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "Commits to skip")
}
