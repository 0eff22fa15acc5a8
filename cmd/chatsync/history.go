package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/chatsync/internal/journal"
	"github.com/zulandar/chatsync/internal/models"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		failures   bool
		since      time.Duration
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history [message-uuid]",
		Short: "Show delivery journal entries",
		Long:  "Shows the delivery attempts journaled for one message, or with --failures the most recent failed deliveries.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !failures && len(args) == 0 {
				return fmt.Errorf("pass a message uuid or --failures")
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			j, err := journal.New(gormDB)
			if err != nil {
				return err
			}

			var rows []models.DeliveryRecord
			if failures {
				var from time.Time
				if since > 0 {
					from = time.Now().Add(-since)
				}
				rows, err = j.Failures(from, limit)
			} else {
				rows, err = j.History(args[0])
			}
			if err != nil {
				return err
			}

			printDeliveries(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to chatsync config file")
	cmd.Flags().BoolVar(&failures, "failures", false, "list recent failed deliveries")
	cmd.Flags().DurationVar(&since, "since", 0, "with --failures, only failures newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows with --failures")
	return cmd
}

func printDeliveries(out io.Writer, rows []models.DeliveryRecord) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No deliveries journaled.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MESSAGE\tCONTAINER\tOP\tATTEMPT\tOUTCOME\tERROR\tAT")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s:%s\t%s\t%d\t%s\t%s\t%s\n",
			r.MessageUUID, r.ContainerKind, r.ContainerUUID, r.Operation,
			r.Attempt, r.Outcome, r.Error, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}
