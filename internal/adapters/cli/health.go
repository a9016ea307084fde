package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHealthCommand creates the health command
func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon health status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var health struct {
				Status        string          `json:"status"`
				Version       string          `json:"version"`
				UptimeSeconds int             `json:"uptime_seconds"`
				Robots        map[string]bool `json:"robots"`
				Battery       []struct {
					RobotID    string  `json:"robot_id"`
					Percentage float64 `json:"percentage"`
					State      string  `json:"state"`
				} `json:"battery"`
			}
			if err := newClient().Get(cmd.Context(), "/", &health); err != nil {
				return err
			}
			if rawOutput {
				return printJSON(health)
			}

			fmt.Println("✓ Daemon is healthy")
			fmt.Printf("  Status:  %s\n", health.Status)
			fmt.Printf("  Version: %s\n", health.Version)
			fmt.Printf("  Uptime:  %ds\n", health.UptimeSeconds)
			for id, connected := range health.Robots {
				state := "connected"
				if !connected {
					state = "disconnected"
				}
				fmt.Printf("  Robot %s: %s\n", id, state)
			}
			for _, b := range health.Battery {
				fmt.Printf("  Battery %s: %.0f%% (%s)\n", b.RobotID, b.Percentage*100, b.State)
			}
			return nil
		},
	}
}
