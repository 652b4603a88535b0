package main

import (
	"os"
	"os/exec"
	"strings"

	"github.com/forgeline/stageflow/internal/client"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	authToken  string
	jsonOutput bool
	actor      string

	workflowClient client.WorkflowClient
)

func defaultActor() string {
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func defaultServer() string {
	if s := os.Getenv("STAGEFLOW_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:   "sf <command>",
	Short: "CLI client for the stageflow service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workflowClient = client.NewHTTPClient(serverURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if workflowClient != nil {
			workflowClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "stageflow server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("STAGEFLOW_AUTH_TOKEN"), "bearer token for authentication")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "actor name recorded on mutations")

	rootCmd.AddGroup(
		&cobra.Group{ID: "projects", Title: "Projects:"},
		&cobra.Group{ID: "gates", Title: "Gates:"},
		&cobra.Group{ID: "ledger", Title: "Ledger:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false

	// Projects
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(advanceCmd)
	rootCmd.AddCommand(treeCmd)

	// Gates
	rootCmd.AddCommand(gateCmd)

	// Ledger
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(showCommitCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(artifactsCmd)

	// System
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
