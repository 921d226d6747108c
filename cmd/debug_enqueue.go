package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/fxrelay/internal/core"
)

var (
	debugEnqueueEmail       string
	debugEnqueueTransferSub string
)

var debugEnqueueCmd = &cobra.Command{
	Use:   "enqueue USER-ID EVENT",
	Short: "Put a relay event on the configured queue",
	Long: `Puts a relay event on the configured queue, bypassing the webhook gateway.
EVENT is one of user_delete, profile_update or apple_migration.`,
	Example: `  fxrelay debug enqueue -c fxrelay.yaml 0f4e1a9c2b user_delete
  fxrelay debug enqueue -c fxrelay.yaml 0f4e1a9c2b profile_update --email new@example.com`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := core.ParseEventKind(args[1])
		if err != nil {
			return err
		}
		ev := core.RelayEvent{
			SubjectID:       args[0],
			Kind:            kind,
			Timestamp:       time.Now().Unix(),
			Email:           debugEnqueueEmail,
			TransferSubject: debugEnqueueTransferSub,
		}
		body, err := json.Marshal(ev)
		if err != nil {
			return err
		}

		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		rt, err := f.BuildRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.Queue.Send(cmd.Context(), body); err != nil {
			return fmt.Errorf("sending event: %w", err)
		}
		log.Info().RawJSON("event", body).Msgf("%s Event enqueued", greenCheck)
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugEnqueueCmd)

	debugEnqueueCmd.Flags().StringVar(&debugEnqueueEmail, "email", "", "user email of the event")
	debugEnqueueCmd.Flags().StringVar(&debugEnqueueTransferSub, "transfer-sub", "", "transfer subject of a migration event")
}
