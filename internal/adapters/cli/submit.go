package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewSubmitCommand creates the submit command: it posts a hand-written
// command envelope, for cmd_types without a dedicated subcommand.
func NewSubmitCommand() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit [file]",
		Short: "Post a raw command envelope from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 1 {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read envelope: %w", err)
			}
			if !json.Valid(raw) {
				return fmt.Errorf("envelope is not valid JSON")
			}

			reply, err := newClient().SendRaw(cmd.Context(), raw)
			if err != nil {
				return err
			}
			if rawOutput {
				return printJSON(reply)
			}
			if reply.TaskID != "" {
				fmt.Printf("Task queued: %s\n", reply.TaskID)
				if wait {
					return waitForTask(cmd.Context(), newClient(), reply.TaskID)
				}
				return nil
			}
			return printJSON(reply)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the queued task to finish")
	return cmd
}
