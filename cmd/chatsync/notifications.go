package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/chatsync/internal/notify"
)

func newNotificationsCmd() *cobra.Command {
	var (
		configPath string
		ack        uint
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List or acknowledge queued mobile notifications",
		Long:  "Lists notifications queued for mobile consoles, or marks one delivered with --ack.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			queue, err := notify.NewPersisted(gormDB)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ctx := context.Background()
			if cmd.Flags().Changed("ack") {
				if err := queue.MarkDelivered(ctx, ack); err != nil {
					return err
				}
				fmt.Fprintf(out, "Notification %d marked delivered\n", ack)
				return nil
			}

			recs, err := queue.Pending(ctx, limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "No pending notifications.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tBODY\tCREATED")
			for _, r := range recs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Title, r.Body, r.CreatedAt.Format("2006-01-02 15:04"))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to chatsync config file")
	cmd.Flags().UintVar(&ack, "ack", 0, "mark the notification with this id delivered")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum notifications to list")
	return cmd
}
