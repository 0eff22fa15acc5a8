package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const defaultConfigPath = "chatsync.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatsync",
		Short: "Chatsync — real-time chat sync engine for the support console",
		Long:  "Chatsync keeps a support agent's conversations in sync: optimistic sends, resends, socket events, connection health and notifications.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newLogCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newNotificationsCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatsync %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
