package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:     "events <project>",
	Short:   "List a project's recorded events",
	GroupID: "system",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := workflowClient.GetEvents(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("listing events: %w", err)
		}

		if jsonOutput {
			return printJSON(events)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tTOPIC\tACTOR")
		for _, ev := range events {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				ev.ID, ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Topic, ev.Actor)
		}
		w.Flush()
		fmt.Printf("\n%d events\n", len(events))
		return nil
	},
}
