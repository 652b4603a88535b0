package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rollbackYes bool

var rollbackCmd = &cobra.Command{
	Use:   "rollback <project> <commit>",
	Short: "Roll the ledger back to a commit",
	Long: `Rollback appends a new commit that restores the ledger state as of the
given commit. History is never rewritten. The operation must be confirmed
by retyping the commit id, or by passing --yes.`,
	GroupID: "ledger",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid commit id %q", args[1])
		}

		confirm := args[1]
		if !rollbackYes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("refusing to roll back without confirmation; re-run with --yes")
			}
			fmt.Printf("Roll %s back to commit %d? This appends a rollback commit.\n", args[0], id)
			fmt.Printf("Type the commit id to confirm: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading confirmation: %w", err)
			}
			confirm = strings.TrimSpace(line)
		}

		commit, err := workflowClient.Rollback(context.Background(), args[0], id, actor, confirm)
		if err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}

		if jsonOutput {
			return printJSON(commit)
		}
		fmt.Printf("Rolled back to commit %d\n", id)
		printCommit(commit)
		return nil
	},
}

func init() {
	rollbackCmd.Flags().BoolVarP(&rollbackYes, "yes", "y", false, "Skip the interactive confirmation")
}
