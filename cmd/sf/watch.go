package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeline/stageflow/internal/events"
)

var watchNATSURL string

var watchCmd = &cobra.Command{
	Use:   "watch [topic]",
	Short: "Stream workflow events from NATS",
	Long: `Watch subscribes to the event bus and prints events as they happen.
The topic accepts NATS wildcards: "stageflow.gate.*" matches one segment,
"stageflow.>" matches everything. Default is all stageflow events.`,
	GroupID: "system",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := "stageflow.>"
		if len(args) == 1 {
			topic = args[0]
		}

		sub, err := events.NewNATSSubscriber(watchNATSURL)
		if err != nil {
			return fmt.Errorf("connecting to NATS at %s: %w", watchNATSURL, err)
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stderr, "Watching %s (ctrl-c to stop)\n", topic)
		for {
			select {
			case <-ctx.Done():
				return nil
			case data, ok := <-ch:
				if !ok {
					return nil
				}
				if jsonOutput {
					fmt.Println(string(data))
					continue
				}
				var ev struct {
					Topic   string `json:"topic"`
					Project string `json:"project"`
					Actor   string `json:"actor"`
				}
				if err := json.Unmarshal(data, &ev); err != nil || ev.Topic == "" {
					fmt.Println(string(data))
					continue
				}
				fmt.Printf("%s  %-32s  project=%s actor=%s\n",
					time.Now().Format("15:04:05"), ev.Topic, ev.Project, ev.Actor)
			}
		}
	},
}

func init() {
	defaultNATS := os.Getenv("STAGEFLOW_NATS_URL")
	if defaultNATS == "" {
		defaultNATS = "nats://localhost:4222"
	}
	watchCmd.Flags().StringVar(&watchNATSURL, "nats", defaultNATS, "NATS server URL")
}
