package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"office-chat/config"
	"office-chat/event"

	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [out.log]",
	Short: "Republish events from an outbound event log",
	Long: `Replay reads an outbound event log written by the server and publishes
every entry again, in order. Defaults to out.log under EVENT_LOG_DIR.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := filepath.Join(config.ConfigOr("EVENT_LOG_DIR", "log"), event.OutLogFile)
	if len(args) == 1 {
		path = args[0]
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer file.Close()

	mq, err := event.RabbitMQConnect(event.RabbitMQURL(), event.QueueChat, []string{event.QueueChat}, nil, logger)
	if err != nil {
		return err
	}
	defer mq.Close()

	n, err := mq.Replay(context.Background(), file)
	if err != nil {
		return fmt.Errorf("replay stopped after %d events: %w", n, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "replayed %d events\n", n)
	return nil
}
