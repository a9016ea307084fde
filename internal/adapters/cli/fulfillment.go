package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewPickupCommand creates the pickup command
func NewPickupCommand() *cobra.Command {
	var timeoutSec float64
	var wait bool

	cmd := &cobra.Command{
		Use:   "pickup <bottle_id>...",
		Short: "Collect shelf bottles onto the robot's back platform",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]map[string]string, 0, len(args))
			for _, id := range args {
				targets = append(targets, map[string]string{"bottle_id": id})
			}
			params := map[string]any{"target_params": targets}
			if timeoutSec > 0 {
				params["timeout"] = timeoutSec
			}
			return submitAndReport(cmd.Context(), "PICK_UP", params, wait)
		},
	}

	cmd.Flags().Float64Var(&timeoutSec, "timeout-sec", 0, "Per-primitive timeout in seconds")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Block until the task finishes")
	return cmd
}

// NewPutToCommand creates the putto command
func NewPutToCommand() *cobra.Command {
	var timeoutSec float64
	var wait bool

	cmd := &cobra.Command{
		Use:   "putto <bottle_id>:<release_pose>...",
		Short: "Deliver back-platform bottles into destination slots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			releases, err := parseReleasePairs(args)
			if err != nil {
				return err
			}
			params := map[string]any{"release_params": releases}
			if timeoutSec > 0 {
				params["timeout"] = timeoutSec
			}
			return submitAndReport(cmd.Context(), "PUT_TO", params, wait)
		},
	}

	cmd.Flags().Float64Var(&timeoutSec, "timeout-sec", 0, "Per-primitive timeout in seconds")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Block until the task finishes")
	return cmd
}

// NewTransferCommand creates the transfer command
func NewTransferCommand() *cobra.Command {
	var timeoutSec float64
	var wait bool

	cmd := &cobra.Command{
		Use:   "transfer <bottle_id>:<release_pose>...",
		Short: "Move bottles shelf-to-slot in platform-sized batches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			releases, err := parseReleasePairs(args)
			if err != nil {
				return err
			}
			targets := make([]map[string]string, 0, len(releases))
			for _, r := range releases {
				targets = append(targets, map[string]string{"bottle_id": r["bottle_id"]})
			}
			params := map[string]any{
				"target_params":  targets,
				"release_params": releases,
			}
			if timeoutSec > 0 {
				params["timeout"] = timeoutSec
			}
			return submitAndReport(cmd.Context(), "TAKE_BOTTOL_FROM_SP_TO_SP", params, wait)
		},
	}

	cmd.Flags().Float64Var(&timeoutSec, "timeout-sec", 0, "Per-primitive timeout in seconds")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Block until the task finishes")
	return cmd
}

// parseReleasePairs turns bottle:pose arguments into release params
func parseReleasePairs(args []string) ([]map[string]string, error) {
	releases := make([]map[string]string, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid pair %q, expected <bottle_id>:<release_pose>", arg)
		}
		releases = append(releases, map[string]string{
			"bottle_id":    parts[0],
			"release_pose": parts[1],
		})
	}
	return releases, nil
}

// submitAndReport queues a task and optionally waits for it
func submitAndReport(ctx context.Context, cmdType string, params any, wait bool) error {
	client := newClient()
	reply, err := client.Send(ctx, cmdType, params)
	if err != nil {
		return err
	}
	if rawOutput {
		return printJSON(reply)
	}

	fmt.Printf("Task queued: %s\n", reply.TaskID)
	if reply.QueueSize != nil {
		fmt.Printf("Queue size:  %d\n", *reply.QueueSize)
	}
	if !wait {
		return nil
	}
	return waitForTask(ctx, client, reply.TaskID)
}
