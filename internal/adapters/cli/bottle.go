package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// NewBottleCommand creates the bottle command
func NewBottleCommand() *cobra.Command {
	var poseName string
	var detail bool

	cmd := &cobra.Command{
		Use:   "bottle [bottle_id]",
		Short: "Query bottle and slot inventory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{}
			if len(args) == 1 {
				params["bottle_id"] = args[0]
			}
			if poseName != "" {
				params["pose_name"] = poseName
			}
			if detail {
				params["detail_params"] = true
			}

			reply, err := newClient().Send(cmd.Context(), "BOTTLE_GET", params)
			if err != nil {
				return err
			}
			return printJSON(json.RawMessage(reply.Data))
		},
	}

	cmd.Flags().StringVar(&poseName, "pose", "", "Filter by slot pose name")
	cmd.Flags().BoolVar(&detail, "detail", false, "Include slot occupancy detail")
	return cmd
}
