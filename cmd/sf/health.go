package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check server health",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := workflowClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("server unreachable: %w", err)
		}

		if jsonOutput {
			return printJSON(map[string]string{"status": status})
		}
		fmt.Printf("Server %s: %s\n", serverURL, status)
		return nil
	},
}
