package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/chatsync/internal/config"
	"github.com/zulandar/chatsync/internal/health"
	"github.com/zulandar/chatsync/internal/socket"
)

func newHealthCmd() *cobra.Command {
	var (
		configPath string
		wait       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the real-time socket connection",
		Long:  "Dials the real-time socket, waits briefly, and prints the connection status and the banner the console would show.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sock, err := newSocket(cfg)
			if err != nil {
				return err
			}
			defer sock.Close()

			ctx, cancel := context.WithTimeout(context.Background(), wait+10*time.Second)
			defer cancel()
			if err := sock.Connect(ctx); err != nil {
				log.Printf("chatsync: %v", err)
			} else {
				time.Sleep(wait)
			}

			mon, err := health.New(health.Opts{Connection: sock, Out: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Socket:    %s\n", sock.Status())
			fmt.Fprintf(out, "Attempts:  %d/%d\n", sock.ReconnectAttempts(), sock.MaxReconnectAttempts())
			printBanner(out, mon.Banner(), false)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to chatsync config file")
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Second, "how long to hold the connection before reporting")
	return cmd
}

func newSocket(cfg *config.Config) (*socket.Client, error) {
	return socket.New(socket.Opts{
		URL:                  cfg.Socket.URL,
		Token:                cfg.Backend.Token,
		MaxReconnectAttempts: cfg.Socket.MaxReconnectAttempts,
		BaseBackoff:          time.Duration(cfg.Socket.BaseBackoffMs) * time.Millisecond,
		MaxBackoff:           time.Duration(cfg.Socket.MaxBackoffMs) * time.Millisecond,
	})
}

// printBanner renders the connection banner. On a terminal it is colored.
func printBanner(out io.Writer, b health.Banner, tty bool) {
	if !b.Visible {
		fmt.Fprintln(out, "Banner:    hidden")
		return
	}
	if tty {
		color := "\033[33m"
		if b.Kind == health.BannerDisconnected {
			color = "\033[31m"
		}
		fmt.Fprintf(out, "Banner:    %s%s\033[0m\n", color, b.Message)
		return
	}
	fmt.Fprintf(out, "Banner:    %s (%s)\n", b.Message, b.Kind)
}
