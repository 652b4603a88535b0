package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create <project>",
	Short:   "Create a project at the first stage of the catalog",
	GroupID: "projects",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := workflowClient.CreateProject(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}

		if jsonOutput {
			return printJSON(summary)
		}
		fmt.Printf("Created %s at stage %s\n", summary.Cursor.Project, summary.Cursor.CurrentStage)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <project>",
	Short:   "Show a project's cursor and accessible stages",
	GroupID: "projects",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := workflowClient.GetProject(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("loading project: %w", err)
		}

		if jsonOutput {
			return printJSON(summary)
		}

		fmt.Printf("Project:    %s\n", summary.Cursor.Project)
		fmt.Printf("Stage:      %s\n", summary.Cursor.CurrentStage)
		if !summary.Cursor.UpdatedAt.IsZero() {
			fmt.Printf("Updated:    %s\n", summary.Cursor.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Print("Accessible: ")
		for i, s := range summary.AccessibleStages {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(s.ID)
		}
		fmt.Println()
		return nil
	},
}

var stagesCmd = &cobra.Command{
	Use:     "stages",
	Short:   "List the stage catalog",
	GroupID: "projects",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stages, err := workflowClient.ListStages(context.Background())
		if err != nil {
			return fmt.Errorf("listing stages: %w", err)
		}

		if jsonOutput {
			return printJSON(stages)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ORDER\tID\tNAME")
		for _, s := range stages {
			fmt.Fprintf(w, "%d\t%s\t%s\n", s.Order, s.ID, s.Name)
		}
		w.Flush()
		return nil
	},
}
