package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	daemonAddr string
	timeout    time.Duration
	rawOutput  bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "workcell",
		Short: "Workcell CLI - drive the robot fleet daemon",
		Long: `Workcell CLI submits commands to the workcell daemon and inspects
task state. The daemon exposes a single HTTP command endpoint; every
robot operation goes through its task queue.

Examples:
  workcell pickup glass_bottle_1000_001 glass_bottle_500_002
  workcell putto glass_bottle_1000_001:worktable_1000_001
  workcell transfer glass_bottle_1000_001:worktable_1000_001
  workcell scan start
  workcell enter-id BOTTLE_123 --type glass_bottle_500
  workcell task get TASK_20250117_103000_001
  workcell queue
  workcell cancel TASK_20250117_103000_001`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&daemonAddr, "addr", defaultDaemonAddr(),
		"Daemon base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second,
		"Request timeout")
	rootCmd.PersistentFlags().BoolVar(&rawOutput, "json", false,
		"Print raw JSON responses")

	rootCmd.AddCommand(NewSubmitCommand())
	rootCmd.AddCommand(NewPickupCommand())
	rootCmd.AddCommand(NewPutToCommand())
	rootCmd.AddCommand(NewTransferCommand())
	rootCmd.AddCommand(NewScanCommand())
	rootCmd.AddCommand(NewEnterIDCommand())
	rootCmd.AddCommand(NewBottleCommand())
	rootCmd.AddCommand(NewTaskCommand())
	rootCmd.AddCommand(NewQueueCommand())
	rootCmd.AddCommand(NewCancelCommand())
	rootCmd.AddCommand(NewHealthCommand())

	return rootCmd
}

// defaultDaemonAddr returns the daemon base URL
func defaultDaemonAddr() string {
	if addr := os.Getenv("WORKCELL_ADDR"); addr != "" {
		return addr
	}
	return "http://127.0.0.1:8090"
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
