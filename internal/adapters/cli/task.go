package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// taskView is the slice of the task snapshot the CLI displays
type taskView struct {
	TaskID       string          `json:"task_id"`
	CmdType      string          `json:"cmd_type"`
	Status       string          `json:"status"`
	SubmitTime   time.Time       `json:"submit_time"`
	EndTime      *time.Time      `json:"end_time,omitempty"`
	CurrentStep  string          `json:"current_step,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// taskReply is the daemon's data envelope around one task
type taskReply struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// NewTaskCommand creates the task command group
func NewTaskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect queued and archived tasks",
	}
	cmd.AddCommand(newTaskGetCommand())
	cmd.AddCommand(newTaskWaitCommand())
	cmd.AddCommand(newTaskRecentCommand())
	return cmd
}

func newTaskGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <task_id>",
		Short: "Show one task's state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := fetchTask(cmd.Context(), newClient(), args[0])
			if err != nil {
				return err
			}
			if rawOutput {
				return printJSON(view)
			}
			printTask(view)
			return nil
		},
	}
}

func newTaskWaitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wait <task_id>",
		Short: "Block until a task reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return waitForTask(cmd.Context(), newClient(), args[0])
		},
	}
}

func newTaskRecentCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "recent",
		Aliases: []string{"history"},
		Short:   "List recently finished tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var reply struct {
				Success bool       `json:"success"`
				Data    []taskView `json:"data"`
			}
			path := fmt.Sprintf("/tasks/recent?limit=%d", limit)
			if err := newClient().Get(cmd.Context(), path, &reply); err != nil {
				return err
			}
			if rawOutput {
				return printJSON(reply.Data)
			}
			if len(reply.Data) == 0 {
				fmt.Println("No archived tasks")
				return nil
			}
			for _, view := range reply.Data {
				fmt.Printf("%-32s  %-26s  %s\n", view.TaskID, view.CmdType, view.Status)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum tasks to list")
	return cmd
}

// NewQueueCommand creates the queue command
func NewQueueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show task queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var reply struct {
				Success bool `json:"success"`
				Data    struct {
					QueueSize      int    `json:"queue_size"`
					RunningTask    string `json:"running_task"`
					TotalTasks     int    `json:"total_tasks"`
					CompletedTasks int    `json:"completed_tasks"`
					FailedTasks    int    `json:"failed_tasks"`
					CancelledTasks int    `json:"cancelled_tasks"`
				} `json:"data"`
			}
			if err := newClient().Get(cmd.Context(), "/queue/status", &reply); err != nil {
				return err
			}
			if rawOutput {
				return printJSON(reply.Data)
			}
			d := reply.Data
			fmt.Printf("Queue size: %d\n", d.QueueSize)
			if d.RunningTask != "" {
				fmt.Printf("Running:    %s\n", d.RunningTask)
			}
			fmt.Printf("Submitted:  %d\n", d.TotalTasks)
			fmt.Printf("Completed:  %d\n", d.CompletedTasks)
			fmt.Printf("Failed:     %d\n", d.FailedTasks)
			fmt.Printf("Cancelled:  %d\n", d.CancelledTasks)
			return nil
		},
	}
}

// NewCancelCommand creates the cancel command
func NewCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task_id>",
		Short: "Request cancellation of a queued or running task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := newClient().Send(cmd.Context(), "CANCEL",
				map[string]string{"task_id": args[0]})
			if err != nil {
				return err
			}
			if rawOutput {
				return printJSON(reply)
			}
			fmt.Printf("Cancellation requested for %s\n", args[0])
			return nil
		},
	}
}

// fetchTask reads one task from the daemon's status endpoint
func fetchTask(ctx context.Context, client *Client, taskID string) (*taskView, error) {
	var reply taskReply
	if err := client.Get(ctx, "/task/"+taskID, &reply); err != nil {
		return nil, err
	}
	var view taskView
	if err := json.Unmarshal(reply.Data, &view); err != nil {
		return nil, fmt.Errorf("malformed task record: %w", err)
	}
	return &view, nil
}

// waitForTask polls until the task leaves the queue one way or another
func waitForTask(ctx context.Context, client *Client, taskID string) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lastStep := ""
	for {
		view, err := fetchTask(ctx, client, taskID)
		if err != nil {
			return err
		}
		if view.CurrentStep != "" && view.CurrentStep != lastStep && !rawOutput {
			fmt.Printf("  %s\n", view.CurrentStep)
			lastStep = view.CurrentStep
		}
		switch view.Status {
		case "COMPLETED", "FAILED", "CANCELLED":
			if rawOutput {
				return printJSON(view)
			}
			printTask(view)
			if view.Status == "FAILED" {
				return fmt.Errorf("task %s failed", taskID)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// printTask renders a task record for humans
func printTask(view *taskView) {
	fmt.Printf("Task:    %s\n", view.TaskID)
	fmt.Printf("Command: %s\n", view.CmdType)
	fmt.Printf("Status:  %s\n", view.Status)
	if view.CurrentStep != "" {
		fmt.Printf("Step:    %s\n", view.CurrentStep)
	}
	if view.ErrorMessage != "" {
		fmt.Printf("Error:   %s\n", view.ErrorMessage)
	}
	if len(view.Result) > 0 {
		fmt.Println("Result:")
		_ = printJSON(json.RawMessage(view.Result))
	}
}
