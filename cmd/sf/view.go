package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:     "view <project> <stage>",
	Short:   "Move your viewing position to an accessible stage",
	GroupID: "projects",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := workflowClient.SetViewingStage(context.Background(), args[0], actor, args[1])
		if err != nil {
			return fmt.Errorf("setting viewing stage: %w", err)
		}

		if jsonOutput {
			return printJSON(vs)
		}
		fmt.Printf("%s is now viewing %s/%s\n", vs.User, vs.Project, vs.ViewingStage)
		return nil
	},
}

var advanceCmd = &cobra.Command{
	Use:   "advance <project>",
	Short: "Advance the project to the next stage",
	Long: `Advance moves the project cursor to the next stage in the catalog.
The current stage's gate must have status passed; otherwise the server
rejects the request and the cursor stays put.`,
	GroupID: "projects",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cursor, err := workflowClient.Advance(context.Background(), args[0], actor)
		if err != nil {
			return fmt.Errorf("advancing project: %w", err)
		}

		if jsonOutput {
			return printJSON(cursor)
		}
		fmt.Printf("Advanced %s to stage %s\n", cursor.Project, cursor.CurrentStage)
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:     "tree <project>",
	Short:   "Show the artifact tree up to your viewing stage",
	GroupID: "projects",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := workflowClient.GetTree(context.Background(), args[0], actor)
		if err != nil {
			return fmt.Errorf("loading artifact tree: %w", err)
		}

		if jsonOutput {
			return printJSON(tree)
		}
		printTree(tree)
		return nil
	},
}
