package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewScanCommand creates the scan command group
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run and inspect scan-and-sort sessions",
	}
	cmd.AddCommand(newScanStartCommand())
	cmd.AddCommand(newScanResultCommand())
	return cmd
}

func newScanStartCommand() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Queue a scan session at the scan table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitAndReport(cmd.Context(), "SCAN_QRCODE", nil, wait)
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Block until the session finishes")
	return cmd
}

func newScanResultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "result <task_id>",
		Short: "Show the scan progress of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := newClient().Send(cmd.Context(), "SCAN_QRCODE_RESULT",
				map[string]string{"task_id": args[0]})
			if err != nil {
				return err
			}
			return printJSON(json.RawMessage(reply.Data))
		},
	}
}

// NewEnterIDCommand creates the enter-id command
func NewEnterIDCommand() *cobra.Command {
	var objectType string

	cmd := &cobra.Command{
		Use:   "enter-id <bottle_id>",
		Short: "Deliver a bottle id to the waiting scan session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := newClient().Send(cmd.Context(), "ENTER_ID", map[string]string{
				"bottle_id": args[0],
				"type":      objectType,
			})
			if err != nil {
				return err
			}
			if rawOutput {
				return printJSON(reply)
			}
			fmt.Printf("Accepted %s (%s)\n", args[0], objectType)
			return nil
		},
	}

	cmd.Flags().StringVar(&objectType, "type", "", "Bottle object type, e.g. glass_bottle_500")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
